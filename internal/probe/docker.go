package probe

import (
	"context"

	"github.com/docker/docker/client"
)

// Docker checks that the engine answers its API ping.
type Docker struct {
	Host string // e.g. unix:///var/run/docker.sock, empty uses DOCKER_HOST or the default socket
}

func (d *Docker) Check(ctx context.Context) error {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if d.Host != "" {
		opts = append(opts, client.WithHost(d.Host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return err
	}
	defer cli.Close()

	_, err = cli.Ping(ctx)
	return err
}
