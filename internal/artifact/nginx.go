package artifact

import (
	"bytes"
	"text/template"
)

/**
 * VhostData feeds the reverse proxy template
 * @property {string} ServerName - Detected host address or tunnel hostname
 * @property {bool} IPv6 - Also listen on [::]
 * @property {string} Upstream - Editor address proxied at /
 */
type VhostData struct {
	ServerName   string
	IPv6         bool
	CertPath     string
	KeyPath      string
	HtpasswdPath string
	Upstream     string
}

var vhostTemplate = template.Must(template.New("vhost").Parse(`# generated by devhost, local edits are overwritten
map $http_upgrade $connection_upgrade {
    default upgrade;
    ''      close;
}

server {
    listen 80;
{{- if .IPv6}}
    listen [::]:80;
{{- end}}
    server_name {{.ServerName}};
    return 301 https://$host$request_uri;
}

server {
    listen 443 ssl;
{{- if .IPv6}}
    listen [::]:443 ssl;
{{- end}}
    server_name {{.ServerName}};

    ssl_certificate     {{.CertPath}};
    ssl_certificate_key {{.KeyPath}};

    auth_basic           "devhost";
    auth_basic_user_file {{.HtpasswdPath}};

    location / {
        proxy_pass http://{{.Upstream}};
        proxy_http_version 1.1;
        proxy_set_header Host $host;
        proxy_set_header Upgrade $http_upgrade;
        proxy_set_header Connection $connection_upgrade;
        proxy_set_header Accept-Encoding gzip;
        proxy_read_timeout 1d;
    }
}
`))

// RenderVhost renders the nginx server blocks.
func RenderVhost(d VhostData) ([]byte, error) {
	var buf bytes.Buffer
	if err := vhostTemplate.Execute(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
