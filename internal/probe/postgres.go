package probe

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres checks readiness by running a trivial query.
type Postgres struct {
	DSN string
}

func (p *Postgres) Check(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, p.DSN)
	if err != nil {
		// 服务端已经在校验凭据，说明已可接受连接
		if isAuthError(err) {
			return nil
		}
		return err
	}
	defer conn.Close(context.Background())

	var one int
	return conn.QueryRow(ctx, "SELECT 1").Scan(&one)
}

// isAuthError reports whether the server rejected the credentials
// (SQLSTATE class 28, invalid authorization specification).
func isAuthError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "28")
}
