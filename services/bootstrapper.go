package services

import (
	"context"
	"fmt"
	"time"

	"devhost-keeper/internal/logger"
	"devhost-keeper/internal/models"
	"devhost-keeper/internal/probe"
)

// Failure policies applied when a service does not come up.
const (
	PolicyContinue = "continue"
	PolicyAbort    = "abort"
)

// DefaultLogTailLines is how much of a failed service's log is reported.
const DefaultLogTailLines = 20

// Starter launches a service with one start mechanism.
type Starter interface {
	// Strategy names the mechanism, e.g. "systemd", "daemon", "nohup", "command".
	Strategy() string
	Start(ctx context.Context) error
}

// Initializer is a one-time setup action guarded by a marker observable on the host.
type Initializer interface {
	// Done reports whether the marker is present, i.e. the action already ran.
	Done(ctx context.Context) (bool, error)
	Run(ctx context.Context) error
}

/**
 * ServiceSpec is the runtime description of one service
 * @property {string} Name - Service name
 * @property {Starter} Starter - Start mechanism chosen from the run's init strategy
 * @property {Starter} Fallback - Alternate start used once after a readiness timeout, may be nil
 * @property {probe.Checker} Probe - Readiness probe
 * @property {Initializer} Init - One-time setup, may be nil
 * @property {int} MaxProbeAttempts - Probe bound for each readiness wait
 * @property {time.Duration} ProbeInterval - Delay between probes
 * @property {func} LogTail - Returns the last n lines of the service's log
 * @property {func} Diagnose - Returns a best-guess failure cause
 *
 * Built from static configuration at the start of a run and discarded at exit.
 */
type ServiceSpec struct {
	Name             string
	Starter          Starter
	Fallback         Starter
	Probe            probe.Checker
	Init             Initializer
	MaxProbeAttempts int
	ProbeInterval    time.Duration
	LogTail          func(ctx context.Context, n int) []string
	Diagnose         func(ctx context.Context) string
}

/**
 * Bootstrapper brings services up in declared order
 * @property {string} Policy - continue or abort after a failed service
 * @property {int} TailLines - Log lines attached to a failure
 * @property {func} OnResult - Called with every final result, may be nil
 */
type Bootstrapper struct {
	Policy    string
	TailLines int
	OnResult  func(models.ServiceResult)
}

func NewBootstrapper(policy string) *Bootstrapper {
	return &Bootstrapper{Policy: policy, TailLines: DefaultLogTailLines}
}

/**
 * Run every service strictly sequentially
 * @param {context.Context} ctx - Cancels the run
 * @param {[]ServiceSpec} specs - Services in start order
 * @returns {[]models.ServiceResult} One result per spec, in order
 * @returns {bool} True when the abort policy stopped the run early
 * @description
 * - A failed service never stops the run under the continue policy
 * - Under the abort policy the remaining services are reported as skipped
 */
func (b *Bootstrapper) Run(ctx context.Context, specs []ServiceSpec) ([]models.ServiceResult, bool) {
	results := make([]models.ServiceResult, 0, len(specs))
	aborted := false
	for _, spec := range specs {
		if aborted || ctx.Err() != nil {
			results = append(results, models.ServiceResult{Name: spec.Name, State: models.StateSkipped})
			continue
		}
		res := b.RunService(ctx, spec)
		results = append(results, res)
		if b.OnResult != nil {
			b.OnResult(res)
		}
		if res.State.Failed() && b.Policy == PolicyAbort {
			logger.Warnf("Service [%s] failed, policy is abort, skipping remaining services", spec.Name)
			aborted = true
		}
	}
	return results, aborted
}

/**
 * Bring one service up
 * @param {context.Context} ctx - Cancels the service
 * @param {ServiceSpec} spec - Service to start
 * @returns {models.ServiceResult} Final state with diagnostics on failure
 * @description
 * - not_started -> starting -> ready/start_failed/timed_out, ready -> initialized/init_failed
 * - A start failure or timeout escalates once to the fallback starter when one exists
 */
func (b *Bootstrapper) RunService(ctx context.Context, spec ServiceSpec) models.ServiceResult {
	start := time.Now()
	res := models.ServiceResult{Name: spec.Name, State: models.StateNotStarted, Strategy: spec.Starter.Strategy()}
	log := logger.Service(spec.Name)

	res.State = models.StateStarting
	log.Info().Str("strategy", res.Strategy).Msg("starting")
	startErr := spec.Starter.Start(ctx)
	var waitErr error
	if startErr == nil {
		res.Attempts, waitErr = WaitUntilReady(ctx, spec)
	} else {
		log.Error().Err(startErr).Msg("start failed")
	}

	if (startErr != nil || waitErr != nil) && spec.Fallback != nil && ctx.Err() == nil {
		res.FallbackUsed = true
		log.Warn().Str("fallback", spec.Fallback.Strategy()).Msg("escalating to fallback start")
		if err := spec.Fallback.Start(ctx); err != nil {
			log.Error().Err(err).Msg("fallback start failed")
			if startErr != nil {
				startErr = fmt.Errorf("%w; fallback start failed: %v", startErr, err)
			} else {
				waitErr = fmt.Errorf("%w; fallback start failed: %v", waitErr, err)
			}
		} else {
			var n int
			n, waitErr = WaitUntilReady(ctx, spec)
			res.Attempts += n
			startErr = nil
		}
	}

	switch {
	case startErr != nil:
		b.fail(ctx, spec, &res, models.StateStartFailed, startErr)
	case waitErr != nil:
		b.fail(ctx, spec, &res, models.StateTimedOut, waitErr)
	default:
		res.State = models.StateReady
		log.Info().Int("attempts", res.Attempts).Msg("ready")
		if spec.Init != nil {
			ran, err := RunInitActionOnce(ctx, spec)
			res.InitRan = ran
			if err != nil {
				res.State = models.StateInitFailed
				res.Error = fmt.Sprintf("init action failed: %v", err)
				log.Error().Err(err).Msg("init action failed")
			} else {
				res.State = models.StateInitialized
			}
		}
	}
	res.Duration = time.Since(start)
	return res
}

func (b *Bootstrapper) fail(ctx context.Context, spec ServiceSpec, res *models.ServiceResult, state models.ServiceState, err error) {
	res.State = state
	res.Error = err.Error()
	res.Cause = CauseNoDiagnosis
	if spec.Diagnose != nil {
		res.Cause = spec.Diagnose(ctx)
	}
	if spec.LogTail != nil {
		res.LogTail = spec.LogTail(ctx, b.TailLines)
	}
	log := logger.Service(spec.Name)
	log.Error().Str("state", string(state)).Str("cause", res.Cause).Msg(res.Error)
	for _, line := range res.LogTail {
		log.Error().Msg("  | " + line)
	}
}

/**
 * Poll the service's probe until ready
 * @param {context.Context} ctx - Cancels the wait
 * @param {ServiceSpec} spec - Service being waited on
 * @returns {int} Probes performed, at most MaxProbeAttempts
 * @returns {error} probe.ErrTimedOut when attempts were exhausted
 */
func WaitUntilReady(ctx context.Context, spec ServiceSpec) (int, error) {
	log := logger.Service(spec.Name)
	return probe.Poll(ctx, spec.Probe, spec.MaxProbeAttempts, spec.ProbeInterval, func(attempt int, err error) {
		log.Debug().Int("attempt", attempt).Int("max", spec.MaxProbeAttempts).Err(err).Msg("not ready")
	})
}

/**
 * Run the service's init action unless its marker is present
 * @param {context.Context} ctx - Cancels the action
 * @param {ServiceSpec} spec - A ready service
 * @returns {bool} True when the action executed in this call
 * @returns {error} Marker check or action error
 */
func RunInitActionOnce(ctx context.Context, spec ServiceSpec) (bool, error) {
	if spec.Init == nil {
		return false, nil
	}
	done, err := spec.Init.Done(ctx)
	if err != nil {
		return false, fmt.Errorf("check init marker: %w", err)
	}
	log := logger.Service(spec.Name)
	if done {
		log.Info().Msg("init marker present, skipping init action")
		return false, nil
	}
	log.Info().Msg("running init action")
	if err := spec.Init.Run(ctx); err != nil {
		return true, err
	}
	return true, nil
}
