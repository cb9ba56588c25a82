package pkgmgr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"devhost-keeper/internal/host"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	installed map[string]bool
	failOn    string
	calls     []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, call)
	if f.failOn != "" && strings.HasPrefix(call, f.failOn) {
		return nil, errors.New("exit status 100")
	}
	if name == "dpkg-query" {
		pkg := args[len(args)-1]
		if f.installed[pkg] {
			return []byte("install ok installed"), nil
		}
		return []byte("deinstall ok config-files"), nil
	}
	return nil, nil
}

func TestForOS(t *testing.T) {
	r := &fakeRunner{}
	m, err := ForOS(host.OSInfo{ID: "ubuntu", IDLike: []string{"debian"}}, r)
	require.NoError(t, err)
	assert.Equal(t, "apt-get", m.Name)

	m, err = ForOS(host.OSInfo{ID: "rocky", IDLike: []string{"rhel", "centos", "fedora"}}, r)
	require.NoError(t, err)
	assert.Equal(t, "dnf", m.Name)

	_, err = ForOS(host.OSInfo{ID: "plan9"}, r)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestEnsureInstalledOnlyMissing(t *testing.T) {
	r := &fakeRunner{installed: map[string]bool{"curl": true, "git": true}}
	m, err := ForOS(host.OSInfo{ID: "debian"}, r)
	require.NoError(t, err)

	installed, err := m.EnsureInstalled(context.Background(), []string{"curl", "git", "nginx", "redis-server"})
	require.NoError(t, err)
	assert.Equal(t, []string{"nginx", "redis-server"}, installed)
	assert.Contains(t, r.calls, "apt-get update -q")
	assert.Contains(t, r.calls, "env DEBIAN_FRONTEND=noninteractive apt-get install -y -q --no-install-recommends nginx redis-server")
}

func TestEnsureInstalledNothingToDo(t *testing.T) {
	r := &fakeRunner{installed: map[string]bool{"curl": true}}
	m, err := ForOS(host.OSInfo{ID: "debian"}, r)
	require.NoError(t, err)

	installed, err := m.EnsureInstalled(context.Background(), []string{"curl"})
	require.NoError(t, err)
	assert.Empty(t, installed)
	for _, call := range r.calls {
		assert.False(t, strings.HasPrefix(call, "env "), "unexpected install: %s", call)
	}
}

func TestEnsureInstalledFailure(t *testing.T) {
	r := &fakeRunner{failOn: "env DEBIAN_FRONTEND"}
	m, err := ForOS(host.OSInfo{ID: "debian"}, r)
	require.NoError(t, err)

	_, err = m.EnsureInstalled(context.Background(), []string{"nginx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "install nginx")
}
