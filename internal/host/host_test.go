package host

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDetectInitStrategy(t *testing.T) {
	t.Run("systemd", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "run", "systemd", "system"), 0755))
		writeFile(t, root, "proc/1/comm", "systemd\n")
		assert.Equal(t, SystemdAvailable, DetectInitStrategy(root))
	})

	t.Run("container with leftover directory", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "run", "systemd", "system"), 0755))
		writeFile(t, root, "proc/1/comm", "bash\n")
		assert.Equal(t, NoSystemd, DetectInitStrategy(root))
	})

	t.Run("bare container", func(t *testing.T) {
		assert.Equal(t, NoSystemd, DetectInitStrategy(t.TempDir()))
	})
}

func TestDetectOS(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "etc/os-release", `PRETTY_NAME="Ubuntu 24.04 LTS"
NAME="Ubuntu"
VERSION_ID="24.04"
ID=ubuntu
ID_LIKE=debian
`)
	info, err := DetectOS(root)
	require.NoError(t, err)
	assert.Equal(t, "ubuntu", info.ID)
	assert.Equal(t, "24.04", info.VersionID)
	assert.True(t, info.Family("debian"))
	assert.False(t, info.Family("rhel"))

	_, err = DetectOS(t.TempDir())
	assert.ErrorIs(t, err, ErrUnknownOS)
}

func TestDetectAddress(t *testing.T) {
	fail := errors.New("unavailable")
	ctx := context.Background()

	t.Run("configured wins", func(t *testing.T) {
		assert.Equal(t, "dev.example.com", DetectAddress(ctx, "dev.example.com", ModeIPv4, AddressSources{}))
	})

	t.Run("ipv4 outbound", func(t *testing.T) {
		src := AddressSources{
			OutboundIPv4:   func() (net.IP, error) { return net.ParseIP("10.0.0.5"), nil },
			InterfaceAddrs: func() ([]net.IP, error) { return nil, fail },
		}
		assert.Equal(t, "10.0.0.5", DetectAddress(ctx, "", ModeIPv4, src))
	})

	t.Run("ipv4 interface fallback", func(t *testing.T) {
		src := AddressSources{
			OutboundIPv4: func() (net.IP, error) { return nil, fail },
			InterfaceAddrs: func() ([]net.IP, error) {
				return []net.IP{net.ParseIP("fe80::1"), net.ParseIP("192.168.1.20")}, nil
			},
		}
		assert.Equal(t, "192.168.1.20", DetectAddress(ctx, "", ModeIPv4, src))
	})

	t.Run("ipv4 loopback last resort", func(t *testing.T) {
		src := AddressSources{
			OutboundIPv4:   func() (net.IP, error) { return nil, fail },
			InterfaceAddrs: func() ([]net.IP, error) { return nil, fail },
		}
		assert.Equal(t, "127.0.0.1", DetectAddress(ctx, "", ModeIPv4, src))
	})

	t.Run("ipv6 interface", func(t *testing.T) {
		src := AddressSources{
			InterfaceAddrs: func() ([]net.IP, error) {
				return []net.IP{net.ParseIP("fd00::2"), net.ParseIP("2a01:4f8::10")}, nil
			},
			RouteIPv6: func(context.Context) (net.IP, error) { return nil, fail },
		}
		assert.Equal(t, "2a01:4f8::10", DetectAddress(ctx, "", ModeIPv6, src))
	})

	t.Run("ipv6 unique local when no public address", func(t *testing.T) {
		src := AddressSources{
			InterfaceAddrs: func() ([]net.IP, error) {
				return []net.IP{net.ParseIP("fe80::1"), net.ParseIP("fd12:3456::7"), net.ParseIP("fd00::2")}, nil
			},
			RouteIPv6: func(context.Context) (net.IP, error) { return nil, fail },
		}
		assert.Equal(t, "fd12:3456::7", DetectAddress(ctx, "", ModeIPv6, src))
	})

	t.Run("ipv6 route fallback", func(t *testing.T) {
		src := AddressSources{
			InterfaceAddrs: func() ([]net.IP, error) { return nil, fail },
			RouteIPv6: func(context.Context) (net.IP, error) {
				return parseRouteSource("2001:4860:4860::8888 from :: via fe80::1 dev eth0 proto ra src 2a01:4f8::20 metric 1024 pref medium"), nil
			},
		}
		assert.Equal(t, "2a01:4f8::20", DetectAddress(ctx, "", ModeIPv6, src))
	})

	t.Run("ipv6 loopback last resort", func(t *testing.T) {
		src := AddressSources{
			InterfaceAddrs: func() ([]net.IP, error) { return nil, fail },
			RouteIPv6:      func(context.Context) (net.IP, error) { return nil, fail },
		}
		assert.Equal(t, "::1", DetectAddress(ctx, "", ModeIPv6, src))
	})
}

func TestRunConfigPrivilege(t *testing.T) {
	assert.NoError(t, RunConfig{Privilege: PrivilegeRoot}.RequirePrivilege())
	assert.True(t, RunConfig{Privilege: PrivilegeSudo}.Sudo())
	assert.ErrorIs(t, RunConfig{Privilege: PrivilegeUnprivileged}.RequirePrivilege(), ErrNoPrivilege)
}
