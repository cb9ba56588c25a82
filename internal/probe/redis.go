package probe

import (
	"context"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

// Redis checks readiness with PING. A NOAUTH reply means the server is up
// and only the probe lacks the password.
type Redis struct {
	Addr     string
	Password string
}

func (r *Redis) Check(ctx context.Context) error {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:       r.Addr,
		Password:   r.Password,
		MaxRetries: -1,
	})
	defer rdb.Close()

	err := rdb.Ping(ctx).Err()
	if err != nil && strings.HasPrefix(err.Error(), "NOAUTH") {
		return nil
	}
	return err
}
