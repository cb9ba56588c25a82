package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"devhost-keeper/internal/config"
	"devhost-keeper/internal/host"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu     sync.Mutex
	calls  []string
	output map[string]string
	fail   map[string]error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, call)
	for prefix, err := range r.fail {
		if strings.HasPrefix(call, prefix) {
			return nil, err
		}
	}
	for prefix, out := range r.output {
		if strings.HasPrefix(call, prefix) {
			return []byte(out), nil
		}
	}
	return nil, nil
}

type fakeLauncher struct {
	running []int
	starts  int
	argv    []string
	match   string
}

func (f *fakeLauncher) StartProcess(context.Context) error {
	f.starts++
	f.running = []int{4242}
	return nil
}

func (f *fakeLauncher) FindRunning() []int  { return f.running }
func (f *fakeLauncher) CommandLine() string { return strings.Join(f.argv, " ") }
func (f *fakeLauncher) Argv() []string      { return f.argv }
func (f *fakeLauncher) Fragment() string    { return f.match }

func editorConfig() config.ServiceConfig {
	return config.ServiceConfig{
		Name:     "code-server",
		Unit:     "code-server@{{.User}}",
		Mode:     config.ModeNohup,
		RunAs:    "{{.User}}",
		Command:  []string{"code-server", "--config", "{{.Home}}/.config/code-server/config.yaml"},
		Match:    "code-server",
		Profiles: []string{"full"},
		Probe: config.ProbeConfig{
			Type:        "http",
			Address:     "http://127.0.0.1:8080",
			Path:        "/healthz",
			MaxAttempts: 3,
			Interval:    time.Millisecond,
		},
	}
}

func testRun(t *testing.T, strategy host.InitStrategy) host.RunConfig {
	dir := t.TempDir()
	return host.RunConfig{
		HostAddress: "127.0.0.1",
		AddressMode: host.ModeIPv4,
		User:        currentUserName(),
		Home:        filepath.Join(dir, "home"),
		Privilege:   host.PrivilegeRoot,
		Strategy:    strategy,
		Profile:     "full",
		Dirs: host.Dirs{
			State: filepath.Join(dir, "state"),
			Logs:  filepath.Join(dir, "logs"),
			Cache: filepath.Join(dir, "cache"),
		},
	}
}

func TestNoSystemdEditorStartsBackgroundProcessWithGuard(t *testing.T) {
	run := testRun(t, host.NoSystemd)
	runner := &recordingRunner{}
	cfg := &config.AppConfig{Services: []config.ServiceConfig{editorConfig()}}
	sm := newServiceManager(cfg, run, nil, runner)

	spec, err := sm.BuildSpec(&cfg.Services[0])
	require.NoError(t, err)
	starter, ok := spec.Starter.(*NohupStarter)
	require.True(t, ok, "expected nohup starter, got %T", spec.Starter)
	assert.Equal(t, "nohup", starter.Strategy())

	proc := starter.Proc.(*ProcessInstance)
	assert.Equal(t, []string{"code-server", "--config", run.Home + "/.config/code-server/config.yaml"}, proc.Argv())
	assert.Equal(t, filepath.Join(run.Dirs.Logs, "code-server.log"), proc.LogFile)

	launcher := &fakeLauncher{argv: proc.Argv(), match: proc.Match}
	starter.Proc = launcher
	require.NoError(t, starter.Start(context.Background()))
	require.NoError(t, starter.Start(context.Background()))

	assert.Equal(t, 1, launcher.starts, "second start finds the running process")
	for _, call := range runner.calls {
		assert.NotContains(t, call, "systemctl")
	}

	guard, err := os.ReadFile(starter.GuardPath)
	require.NoError(t, err)
	assert.Contains(t, string(guard), "nohup 'code-server' '--config'")
	assert.Contains(t, string(guard), "grep -F -- 'code-server'")

	rc, err := os.ReadFile(filepath.Join(run.Home, ".bashrc"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(rc), RCHook(starter.GuardPath)), "hook appended once")
}

func TestSystemdStrategyUsesUnitManager(t *testing.T) {
	run := testRun(t, host.SystemdAvailable)
	runner := &recordingRunner{}
	cfg := &config.AppConfig{Services: []config.ServiceConfig{editorConfig()}}
	sm := newServiceManager(cfg, run, nil, runner)

	spec, err := sm.BuildSpec(&cfg.Services[0])
	require.NoError(t, err)
	starter, ok := spec.Starter.(*SystemdStarter)
	require.True(t, ok)
	assert.Equal(t, "code-server@"+run.User, starter.Unit)

	require.NoError(t, starter.Start(context.Background()))
	assert.Equal(t, []string{
		"systemctl enable code-server@" + run.User,
		"systemctl start code-server@" + run.User,
	}, runner.calls)
}

func TestSystemdReloadWhenActive(t *testing.T) {
	runner := &recordingRunner{}
	sm := newServiceManager(&config.AppConfig{}, testRun(t, host.SystemdAvailable), nil, runner)
	starter := &SystemdStarter{Systemd: sm.systemd, Unit: "nginx", Reload: true}

	require.NoError(t, starter.Start(context.Background()))
	assert.Equal(t, []string{"systemctl is-active --quiet nginx", "systemctl reload nginx"}, runner.calls)
}

func TestSystemdOnlyServiceWithoutSystemd(t *testing.T) {
	svc := config.ServiceConfig{Name: "docker", Unit: "docker", Mode: config.ModeSystemdOnly,
		Probe: config.ProbeConfig{Type: "docker", MaxAttempts: 1, Interval: time.Millisecond}}
	cfg := &config.AppConfig{Services: []config.ServiceConfig{svc}}
	sm := newServiceManager(cfg, testRun(t, host.NoSystemd), nil, &recordingRunner{})

	spec, err := sm.BuildSpec(&cfg.Services[0])
	require.NoError(t, err)
	assert.ErrorContains(t, spec.Starter.Start(context.Background()), "requires systemd")
}

func TestDaemonStarterDoesNotDuplicate(t *testing.T) {
	launcher := &fakeLauncher{running: []int{100}}
	d := &DaemonStarter{Proc: launcher}
	require.NoError(t, d.Start(context.Background()))
	assert.Zero(t, launcher.starts)

	launcher.running = nil
	require.NoError(t, d.Start(context.Background()))
	require.NoError(t, d.Start(context.Background()))
	assert.Equal(t, 1, launcher.starts)
}

func TestSelected(t *testing.T) {
	plain := config.ServiceConfig{Name: "redis"}
	full := config.ServiceConfig{Name: "nginx", Profiles: []string{"full"}}
	off := config.ServiceConfig{Name: "docker", Disabled: true}
	cfg := &config.AppConfig{Services: []config.ServiceConfig{plain, full, off}}

	run := testRun(t, host.NoSystemd)
	run.Profile = "plain"
	sm := newServiceManager(cfg, run, nil, &recordingRunner{})

	selected, err := sm.Selected(nil)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "redis", selected[0].Name)

	selected, err = sm.Selected([]string{"nginx"})
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "nginx", selected[0].Name)

	_, err = sm.Selected([]string{"mysql"})
	assert.ErrorIs(t, err, config.ErrServiceNotFound)
}

func TestBuildSpecsFromDefaultCatalog(t *testing.T) {
	cfg := &config.AppConfig{Services: config.DefaultServices()}
	for i := range cfg.Services {
		cfg.Services[i].Probe.MaxAttempts = 30
		cfg.Services[i].Probe.Interval = time.Second
	}
	sm := newServiceManager(cfg, testRun(t, host.NoSystemd), nil, &recordingRunner{})

	specs, err := sm.BuildSpecs(nil)
	require.NoError(t, err)
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"postgresql", "redis", "docker", "nginx", "code-server"}, names)

	db := specs[0]
	require.NotNil(t, db.Fallback)
	assert.Equal(t, []string{"pg_ctlcluster", "16", "main", "start"}, db.Fallback.(*CommandStarter).Argv)
	assert.IsType(t, &PostgresDatabase{}, db.Init)
	assert.IsType(t, &DaemonStarter{}, db.Starter)
	assert.Equal(t, "postgres", db.Starter.(*DaemonStarter).Proc.(*ProcessInstance).RunAs)
}

func TestProbeEndpoint(t *testing.T) {
	cases := []struct {
		cfg  config.ProbeConfig
		want string
	}{
		{config.ProbeConfig{Type: "redis", Address: "127.0.0.1:6379"}, "127.0.0.1:6379"},
		{config.ProbeConfig{Type: "http", Address: "https://127.0.0.1"}, "127.0.0.1:443"},
		{config.ProbeConfig{Type: "http", Address: "http://127.0.0.1:8080"}, "127.0.0.1:8080"},
		{config.ProbeConfig{Type: "postgres", Address: "host=127.0.0.1 port=5433 user=postgres"}, "127.0.0.1:5433"},
		{config.ProbeConfig{Type: "postgres", Address: "host=/var/run/postgresql user=postgres"}, ""},
		{config.ProbeConfig{Type: "docker"}, ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, probeEndpoint(c.cfg, nil), c.cfg.Address)
	}
}

func TestCommandStarter(t *testing.T) {
	runner := &recordingRunner{}
	c := &CommandStarter{Argv: []string{"pg_ctlcluster", "16", "main", "start"}, Runner: runner}
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, []string{"pg_ctlcluster 16 main start"}, runner.calls)
}

func TestProcessInstanceSudoArgv(t *testing.T) {
	pi := NewProcessInstance("service postgresql", "postgres -D", []string{"postgres", "-D", "/data"})
	name, args := pi.argv()
	assert.Equal(t, "postgres", name)
	assert.Equal(t, []string{"-D", "/data"}, args)

	pi.Sudo = true
	pi.RunAs = "postgres"
	name, args = pi.argv()
	assert.Equal(t, "sudo", name)
	assert.Equal(t, []string{"-n", "-u", "postgres", "--", "postgres", "-D", "/data"}, args)
}
