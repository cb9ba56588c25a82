package artifact

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

func TestPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "devhost.conf")

	changed, err := Place(path, []byte("a"), 0644)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = Place(path, []byte("a"), 0644)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = Place(path, []byte("b"), 0600)
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), st.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

type installRunner struct{ calls [][]string }

func (r *installRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil, nil
}

func TestInstallerSudo(t *testing.T) {
	r := &installRunner{}
	inst := Installer{Runner: r, Sudo: true}
	changed, err := inst.Install(context.Background(), File{Path: "/etc/nginx/devhost.htpasswd", Data: []byte("x"), Mode: 0640, Owner: "www-data"})
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, r.calls, 1)
	call := r.calls[0]
	assert.Equal(t, []string{"install", "-D", "-m", "640", "-o", "www-data"}, call[:6])
	assert.Equal(t, "/etc/nginx/devhost.htpasswd", call[len(call)-1])
}

func TestRenderVhost(t *testing.T) {
	d := VhostData{ServerName: "2001:db8::10", CertPath: "/c.crt", KeyPath: "/c.key", HtpasswdPath: "/h", Upstream: "127.0.0.1:8080"}

	out, err := RenderVhost(d)
	require.NoError(t, err)
	assert.Contains(t, string(out), "proxy_pass http://127.0.0.1:8080;")
	assert.Contains(t, string(out), "auth_basic_user_file /h;")
	assert.NotContains(t, string(out), "[::]")

	d.IPv6 = true
	out, err = RenderVhost(d)
	require.NoError(t, err)
	assert.Contains(t, string(out), "listen [::]:80;")
	assert.Contains(t, string(out), "listen [::]:443 ssl;")
}

func TestSelfSignedCert(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cert, key, err := GenerateSelfSigned("203.0.113.7", now)
	require.NoError(t, err)
	assert.Contains(t, string(key), "EC PRIVATE KEY")
	assert.True(t, CertCovers(cert, "203.0.113.7", now))
	assert.True(t, CertCovers(cert, "localhost", now))
	assert.False(t, CertCovers(cert, "203.0.113.8", now), "address changed")
	assert.False(t, CertCovers(cert, "203.0.113.7", now.Add(CertValidity+time.Hour)), "expired")

	cert, _, err = GenerateSelfSigned("dev.example.com", now)
	require.NoError(t, err)
	assert.True(t, CertCovers(cert, "dev.example.com", now))
	assert.False(t, CertCovers([]byte("garbage"), "dev.example.com", now))
}

func TestRenderEditorConfig(t *testing.T) {
	out, err := RenderEditorConfig("127.0.0.1:8080", "pw")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &got))
	assert.Equal(t, "127.0.0.1:8080", got["bind-addr"])
	assert.Equal(t, "password", got["auth"])
	assert.Equal(t, "pw", got["password"])
	assert.Equal(t, false, got["cert"])
}

func TestRenderUnit(t *testing.T) {
	out, err := RenderUnit(UnitData{Description: "code-server", ExecStart: "/usr/bin/code-server"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "User=%i\n")
	assert.Contains(t, string(out), "ExecStart=/usr/bin/code-server\n")
}

func TestRenderHtpasswd(t *testing.T) {
	first, err := RenderHtpasswd(nil, "dev", "secret")
	require.NoError(t, err)
	user, hash, ok := strings.Cut(strings.TrimSpace(string(first)), ":")
	require.True(t, ok)
	assert.Equal(t, "dev", user)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")))

	again, err := RenderHtpasswd(first, "dev", "secret")
	require.NoError(t, err)
	assert.Equal(t, first, again, "matching entry is kept")

	rotated, err := RenderHtpasswd(first, "dev", "other")
	require.NoError(t, err)
	assert.NotEqual(t, first, rotated)

	_, err = RenderHtpasswd(nil, "a:b", "x")
	assert.Error(t, err)
}

func TestRenderTunnelConfig(t *testing.T) {
	out, err := RenderTunnelConfig("devhost", "/etc/cloudflared/devhost.json", "dev.example.com")
	require.NoError(t, err)

	var got TunnelSettings
	require.NoError(t, yaml.Unmarshal(out, &got))
	require.Len(t, got.Ingress, 2)
	assert.Equal(t, "dev.example.com", got.Ingress[0].Hostname)
	assert.True(t, got.Ingress[0].OriginRequest.NoTLSVerify)
	assert.Equal(t, "http_status:404", got.Ingress[1].Service)
}

func TestEnsureCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.env")

	creds, generated, err := EnsureCredentials(path, DefaultCredentialKeys)
	require.NoError(t, err)
	assert.True(t, generated)
	for _, k := range DefaultCredentialKeys {
		assert.Len(t, creds[k], PasswordLength)
	}
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), st.Mode().Perm())

	again, generated, err := EnsureCredentials(path, DefaultCredentialKeys)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, creds, again)

	more, generated, err := EnsureCredentials(path, append(DefaultCredentialKeys, "EXTRA"))
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Equal(t, creds[KeyEditorPassword], more[KeyEditorPassword])
	assert.Len(t, more["EXTRA"], PasswordLength)
}

func TestGeneratePassword(t *testing.T) {
	a, err := GeneratePassword(32)
	require.NoError(t, err)
	b, err := GeneratePassword(32)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "0")
	assert.NotContains(t, a, "O")
}
