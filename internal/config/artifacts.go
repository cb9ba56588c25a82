package config

import (
	"path/filepath"

	"devhost-keeper/internal/env"

	"github.com/spf13/viper"
)

type NginxConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	VhostPath    string `mapstructure:"vhost_path"`
	HtpasswdPath string `mapstructure:"htpasswd_path"`
	AuthUser     string `mapstructure:"auth_user"`
	Upstream     string `mapstructure:"upstream" validate:"omitempty,hostname_port"`
}

type TLSConfig struct {
	CertPath string `mapstructure:"cert_path"`
	KeyPath  string `mapstructure:"key_path"`
}

type EditorConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ConfigPath string `mapstructure:"config_path"`
	BindAddr   string `mapstructure:"bind_addr" validate:"omitempty,hostname_port"`
	UnitPath   string `mapstructure:"unit_path"`
}

/**
 * Tunnel ingress configuration
 * @property {string} hostname - Public hostname routed through the tunnel, empty disables it
 * @property {string} tunnel - Tunnel name or ID
 * @property {string} credentials_file - Tunnel credentials JSON
 * @property {string} config_path - Where the ingress file is written
 */
type TunnelConfig struct {
	Hostname        string `mapstructure:"hostname" validate:"omitempty,fqdn"`
	Tunnel          string `mapstructure:"tunnel"`
	CredentialsFile string `mapstructure:"credentials_file"`
	ConfigPath      string `mapstructure:"config_path"`
}

/**
 * Generated artifacts
 * @property {string} credentials_path - godotenv file holding generated passwords
 *
 * Paths may be text/template strings rendered against the run configuration.
 */
type ArtifactsConfig struct {
	CredentialsPath string       `mapstructure:"credentials_path"`
	Nginx           NginxConfig  `mapstructure:"nginx"`
	TLS             TLSConfig    `mapstructure:"tls"`
	Editor          EditorConfig `mapstructure:"editor"`
	Tunnel          TunnelConfig `mapstructure:"tunnel"`
}

func setArtifactDefaults(v *viper.Viper) {
	v.SetDefault("artifacts.credentials_path", filepath.Join(env.DevhostDir, "credentials.env"))
	v.SetDefault("artifacts.nginx.enabled", true)
	v.SetDefault("artifacts.nginx.vhost_path", "/etc/nginx/sites-enabled/devhost.conf")
	v.SetDefault("artifacts.nginx.htpasswd_path", "/etc/nginx/devhost.htpasswd")
	v.SetDefault("artifacts.nginx.auth_user", "{{.User}}")
	v.SetDefault("artifacts.nginx.upstream", "127.0.0.1:8080")
	v.SetDefault("artifacts.tls.cert_path", "/etc/ssl/devhost/devhost.crt")
	v.SetDefault("artifacts.tls.key_path", "/etc/ssl/devhost/devhost.key")
	v.SetDefault("artifacts.editor.enabled", true)
	v.SetDefault("artifacts.editor.config_path", "{{.Home}}/.config/code-server/config.yaml")
	v.SetDefault("artifacts.editor.bind_addr", "127.0.0.1:8080")
	v.SetDefault("artifacts.editor.unit_path", "/etc/systemd/system/code-server@.service")
	v.SetDefault("artifacts.tunnel.config_path", "/etc/cloudflared/config.yml")
}
