// Package probe implements readiness checks for services and the bounded
// polling loop that drives them.
package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"devhost-keeper/internal/config"
	"devhost-keeper/internal/utils"
)

// CheckTimeout bounds a single probe.
const CheckTimeout = 2 * time.Second

// ErrTimedOut is returned by Poll when every attempt failed.
var ErrTimedOut = errors.New("readiness attempts exhausted")

// Checker performs a single readiness probe.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

/**
 * Poll a checker until it succeeds or attempts run out
 * @param {context.Context} ctx - Cancels the wait
 * @param {Checker} checker - Probe to run
 * @param {int} attempts - Maximum number of probes, at least 1
 * @param {time.Duration} interval - Delay between probes
 * @param {func(int, error)} onFailure - Called after each failed probe, may be nil
 * @returns {int} Number of probes performed
 * @returns {error} nil when ready, ErrTimedOut wrapping the last probe error otherwise
 * @description
 * - Returns right after the first successful probe, without sleeping
 * - Never runs more than attempts probes and does not sleep after the last one
 */
func Poll(ctx context.Context, checker Checker, attempts int, interval time.Duration, onFailure func(attempt int, err error)) (int, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		checkCtx, cancel := context.WithTimeout(ctx, CheckTimeout)
		err := checker.Check(checkCtx)
		cancel()
		if err == nil {
			return i, nil
		}
		lastErr = err
		if onFailure != nil {
			onFailure(i, err)
		}
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return i, fmt.Errorf("readiness wait cancelled after %d attempts: %w", i, ctx.Err())
		case <-time.After(interval):
		}
	}
	return attempts, fmt.Errorf("%w after %d attempts (last error: %v)", ErrTimedOut, attempts, lastErr)
}

/**
 * Build a checker from a service's probe configuration
 * @param {*config.ServiceConfig} svc - Service whose probe is built
 * @param {interface{}} data - Template data for address, path and command
 * @returns {Checker} The readiness checker
 * @returns {error} Template or type errors
 */
func FromConfig(svc *config.ServiceConfig, data interface{}) (Checker, error) {
	cfg := svc.Probe
	addr, err := utils.RenderTemplate(cfg.Address, data)
	if err != nil {
		return nil, fmt.Errorf("probe address: %w", err)
	}

	switch cfg.Type {
	case "tcp":
		return &TCP{Addr: addr}, nil
	case "http":
		path, err := utils.RenderTemplate(cfg.Path, data)
		if err != nil {
			return nil, fmt.Errorf("probe path: %w", err)
		}
		return &HTTP{URL: strings.TrimRight(addr, "/"), Path: path, Insecure: cfg.Insecure}, nil
	case "grpc":
		return &GRPC{Addr: addr}, nil
	case "postgres":
		return &Postgres{DSN: addr}, nil
	case "redis":
		return &Redis{Addr: addr, Password: cfg.Password}, nil
	case "docker":
		return &Docker{Host: addr}, nil
	case "process":
		match := addr
		if match == "" {
			if match, err = utils.RenderTemplate(svc.Match, data); err != nil {
				return nil, fmt.Errorf("probe match: %w", err)
			}
		}
		return &Process{Match: match}, nil
	case "command":
		argv, err := utils.GetCommandLine(cfg.Command, data)
		if err != nil {
			return nil, fmt.Errorf("probe command: %w", err)
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("probe command is empty")
		}
		return &Command{Argv: argv}, nil
	}
	return nil, fmt.Errorf("unknown probe type %q", cfg.Type)
}
