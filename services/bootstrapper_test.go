package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"devhost-keeper/internal/models"
	"devhost-keeper/internal/probe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStarter struct {
	name  string
	err   error
	calls int
}

func (f *fakeStarter) Strategy() string { return f.name }

func (f *fakeStarter) Start(context.Context) error {
	f.calls++
	return f.err
}

type countingProbe struct {
	failures int // probes failing before the first success, -1 fails forever
	calls    int
}

func (p *countingProbe) Check(context.Context) error {
	p.calls++
	if p.failures < 0 || p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

type fakeInit struct {
	done    bool
	err     error
	runs    int
	doneErr error
}

func (f *fakeInit) Done(context.Context) (bool, error) { return f.done, f.doneErr }

func (f *fakeInit) Run(context.Context) error {
	f.runs++
	if f.err == nil {
		f.done = true
	}
	return f.err
}

func newSpec(name string, p probe.Checker) ServiceSpec {
	return ServiceSpec{
		Name:             name,
		Starter:          &fakeStarter{name: "daemon"},
		Probe:            p,
		MaxProbeAttempts: 30,
		ProbeInterval:    time.Millisecond,
	}
}

func TestDatabaseTimeoutUsesFallbackOnceAndContinues(t *testing.T) {
	dbProbe := &countingProbe{failures: -1}
	fallback := &fakeStarter{name: "command"}
	db := newSpec("postgresql", dbProbe)
	db.Fallback = fallback
	db.LogTail = func(context.Context, int) []string { return []string{"FATAL: could not bind IPv4 address"} }
	db.Diagnose = func(context.Context) string { return CausePortBound }

	cacheProbe := &countingProbe{}
	editorProbe := &countingProbe{failures: 2}
	specs := []ServiceSpec{db, newSpec("redis", cacheProbe), newSpec("code-server", editorProbe)}

	results, aborted := NewBootstrapper(PolicyContinue).Run(context.Background(), specs)
	require.Len(t, results, 3)
	assert.False(t, aborted)

	assert.Equal(t, 1, fallback.calls, "exactly one fallback start")
	assert.Equal(t, 60, dbProbe.calls, "one bounded wait before and one after the fallback")
	assert.Equal(t, models.StateTimedOut, results[0].State)
	assert.True(t, results[0].FallbackUsed)
	assert.Equal(t, 60, results[0].Attempts)
	assert.Equal(t, CausePortBound, results[0].Cause)
	assert.Equal(t, []string{"FATAL: could not bind IPv4 address"}, results[0].LogTail)

	assert.Equal(t, models.StateReady, results[1].State)
	assert.Equal(t, models.StateReady, results[2].State)
	assert.Equal(t, 3, results[2].Attempts)

	report := &models.BootstrapReport{Services: results}
	report.Tally()
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Succeeded)
}

func TestReadyOnFirstProbe(t *testing.T) {
	p := &countingProbe{}
	spec := newSpec("redis", p)
	spec.ProbeInterval = time.Hour

	start := time.Now()
	res := NewBootstrapper(PolicyContinue).RunService(context.Background(), spec)
	assert.Equal(t, models.StateReady, res.State)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, p.calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFallbackRecoversTimedOutService(t *testing.T) {
	p := &countingProbe{failures: 30}
	spec := newSpec("postgresql", p)
	spec.Fallback = &fakeStarter{name: "command"}

	res := NewBootstrapper(PolicyContinue).RunService(context.Background(), spec)
	assert.Equal(t, models.StateReady, res.State)
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, 31, res.Attempts)
}

func TestStartFailure(t *testing.T) {
	p := &countingProbe{}
	spec := newSpec("nginx", p)
	spec.Starter = &fakeStarter{name: "systemd", err: errors.New("Job for nginx.service failed")}
	spec.Diagnose = func(context.Context) string { return CauseUnitInactive }

	res := NewBootstrapper(PolicyContinue).RunService(context.Background(), spec)
	assert.Equal(t, models.StateStartFailed, res.State)
	assert.Equal(t, CauseUnitInactive, res.Cause)
	assert.Contains(t, res.Error, "nginx.service failed")
	assert.Zero(t, p.calls, "no probe after a failed start")
}

func TestStartAndFallbackFailuresBothReported(t *testing.T) {
	p := &countingProbe{}
	spec := newSpec("postgresql", p)
	spec.Starter = &fakeStarter{name: "daemon", err: errors.New("exec: postgres not found")}
	fallback := &fakeStarter{name: "command", err: errors.New("pg_ctlcluster exited 1")}
	spec.Fallback = fallback

	res := NewBootstrapper(PolicyContinue).RunService(context.Background(), spec)
	assert.Equal(t, models.StateStartFailed, res.State)
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, 1, fallback.calls)
	assert.Contains(t, res.Error, "postgres not found")
	assert.Contains(t, res.Error, "fallback start failed: pg_ctlcluster exited 1")
	assert.Zero(t, p.calls)
}

func TestStartFailureWithoutDiagnostics(t *testing.T) {
	spec := newSpec("nginx", &countingProbe{})
	spec.Starter = &fakeStarter{name: "daemon", err: errors.New("exec: not found")}

	res := NewBootstrapper(PolicyContinue).RunService(context.Background(), spec)
	assert.Equal(t, models.StateStartFailed, res.State)
	assert.Equal(t, CauseNoDiagnosis, res.Cause)
}

func TestAbortPolicySkipsRemaining(t *testing.T) {
	failing := newSpec("postgresql", &countingProbe{failures: -1})
	failing.MaxProbeAttempts = 3
	laterProbe := &countingProbe{}
	later := newSpec("redis", laterProbe)

	var seen []string
	b := NewBootstrapper(PolicyAbort)
	b.OnResult = func(r models.ServiceResult) { seen = append(seen, r.Name) }
	results, aborted := b.Run(context.Background(), []ServiceSpec{failing, later})

	assert.True(t, aborted)
	assert.Equal(t, models.StateTimedOut, results[0].State)
	assert.Equal(t, models.StateSkipped, results[1].State)
	assert.Zero(t, laterProbe.calls)
	assert.Equal(t, []string{"postgresql"}, seen)
	assert.Equal(t, ExitAborted, ExitCode(&models.BootstrapReport{Aborted: aborted}, nil))
}

func TestInitActionRunsOnce(t *testing.T) {
	action := &fakeInit{}
	spec := newSpec("postgresql", &countingProbe{})
	spec.Init = action
	b := NewBootstrapper(PolicyContinue)

	first := b.RunService(context.Background(), spec)
	assert.Equal(t, models.StateInitialized, first.State)
	assert.True(t, first.InitRan)

	second := b.RunService(context.Background(), spec)
	assert.Equal(t, models.StateInitialized, second.State)
	assert.False(t, second.InitRan)
	assert.Equal(t, 1, action.runs)
}

func TestInitActionFailure(t *testing.T) {
	spec := newSpec("postgresql", &countingProbe{})
	spec.Init = &fakeInit{err: errors.New("permission denied to create database")}

	res := NewBootstrapper(PolicyContinue).RunService(context.Background(), spec)
	assert.Equal(t, models.StateInitFailed, res.State)
	assert.True(t, strings.HasPrefix(res.Error, "init action failed"))
	assert.True(t, res.State.Failed())
}

func TestInitActionNotRunWhenTimedOut(t *testing.T) {
	action := &fakeInit{}
	spec := newSpec("postgresql", &countingProbe{failures: -1})
	spec.MaxProbeAttempts = 2
	spec.Init = action

	res := NewBootstrapper(PolicyContinue).RunService(context.Background(), spec)
	assert.Equal(t, models.StateTimedOut, res.State)
	assert.Zero(t, action.runs)
}

func TestFileMarkerAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{}
	marker := &FileMarker{Path: filepath.Join(dir, "markers", "postgresql"), Argv: []string{"createdb", "devhost"}, Runner: runner}
	spec := newSpec("postgresql", &countingProbe{})
	spec.Init = marker

	for i := 0; i < 2; i++ {
		res := NewBootstrapper(PolicyContinue).RunService(context.Background(), spec)
		require.Equal(t, models.StateInitialized, res.State)
		assert.Equal(t, i == 0, res.InitRan)
	}
	assert.Equal(t, []string{"createdb devhost"}, runner.calls)
	_, err := os.Stat(marker.Path)
	assert.NoError(t, err)
}

func TestRunSkipsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, _ := NewBootstrapper(PolicyContinue).Run(ctx, []ServiceSpec{newSpec("redis", &countingProbe{})})
	assert.Equal(t, models.StateSkipped, results[0].State)
}

func TestDiagnose(t *testing.T) {
	assert.Equal(t, CausePortBound, diagnose(diagnosis{portOpen: true}))
	assert.Equal(t, CauseUnitInactive, diagnose(diagnosis{systemd: true}))
	assert.Equal(t, CauseNotRunning, diagnose(diagnosis{}))
	assert.Equal(t, CauseNoDiagnosis, diagnose(diagnosis{running: true, portOpen: true, systemd: true, active: true}))
}
