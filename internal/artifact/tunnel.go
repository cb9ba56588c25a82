package artifact

import "gopkg.in/yaml.v3"

type TunnelIngress struct {
	Hostname      string         `yaml:"hostname,omitempty"`
	Service       string         `yaml:"service"`
	OriginRequest *OriginRequest `yaml:"originRequest,omitempty"`
}

type OriginRequest struct {
	NoTLSVerify bool `yaml:"noTLSVerify"`
}

// TunnelSettings is the cloudflared config.yml.
type TunnelSettings struct {
	Tunnel          string          `yaml:"tunnel"`
	CredentialsFile string          `yaml:"credentials-file,omitempty"`
	Ingress         []TunnelIngress `yaml:"ingress"`
}

// RenderTunnelConfig routes hostname to the local proxy and rejects everything else.
func RenderTunnelConfig(tunnel, credentialsFile, hostname string) ([]byte, error) {
	return yaml.Marshal(TunnelSettings{
		Tunnel:          tunnel,
		CredentialsFile: credentialsFile,
		Ingress: []TunnelIngress{
			{
				Hostname:      hostname,
				Service:       "https://localhost:443",
				OriginRequest: &OriginRequest{NoTLSVerify: true},
			},
			{Service: "http_status:404"},
		},
	})
}
