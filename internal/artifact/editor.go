package artifact

import (
	"bytes"
	"text/template"

	"gopkg.in/yaml.v3"
)

// EditorSettings is the code-server config.yaml.
type EditorSettings struct {
	BindAddr string `yaml:"bind-addr"`
	Auth     string `yaml:"auth"`
	Password string `yaml:"password"`
	Cert     bool   `yaml:"cert"`
}

// RenderEditorConfig renders a password protected editor config. TLS is
// terminated by the reverse proxy, so the editor itself serves plain HTTP.
func RenderEditorConfig(bindAddr, password string) ([]byte, error) {
	return yaml.Marshal(EditorSettings{
		BindAddr: bindAddr,
		Auth:     "password",
		Password: password,
	})
}

var unitTemplate = template.Must(template.New("unit").Parse(`# generated by devhost
[Unit]
Description={{.Description}}
After=network.target

[Service]
Type=exec
User=%i
ExecStart={{.ExecStart}}
Restart=always

[Install]
WantedBy=default.target
`))

// UnitData feeds the templated systemd unit; the instance name is the user.
type UnitData struct {
	Description string
	ExecStart   string
}

// RenderUnit renders a per-user systemd template unit (name@.service).
func RenderUnit(d UnitData) ([]byte, error) {
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
