package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"devhost-keeper/internal/artifact"
	"devhost-keeper/internal/config"
	"devhost-keeper/internal/host"
	"devhost-keeper/internal/initsys"
	"devhost-keeper/internal/logger"
	"devhost-keeper/internal/utils"
)

// ArtifactService renders and places the generated files of a run.
type ArtifactService struct {
	cfg       *config.ArtifactsConfig
	run       host.RunConfig
	creds     artifact.Credentials
	installer artifact.Installer
	systemd   *initsys.Systemd
	now       func() time.Time
}

func NewArtifactService(cfg *config.ArtifactsConfig, run host.RunConfig, creds artifact.Credentials, runner utils.Runner) *ArtifactService {
	return &ArtifactService{
		cfg:       cfg,
		run:       run,
		creds:     creds,
		installer: artifact.Installer{Runner: runner, Sudo: run.Sudo()},
		systemd:   initsys.NewSystemd(runner),
		now:       time.Now,
	}
}

/**
 * Place every artifact enabled for the run
 * @param {context.Context} ctx - Cancels privileged installs
 * @returns {[]string} Paths whose content changed
 * @returns {error} First render or placement error, fatal for the run
 * @description
 * - The proxy and editor artifacts are only placed for the full profile
 * - The editor unit is only placed when systemd is the init strategy,
 *   followed by daemon-reload when it changed
 * - The TLS pair is kept while the certificate still covers the host address
 */
func (as *ArtifactService) PlaceAll(ctx context.Context) ([]string, error) {
	var changed []string
	place := func(f artifact.File) (bool, error) {
		ok, err := as.installer.Install(ctx, f)
		if err != nil {
			return false, err
		}
		if ok {
			logger.Infof("Artifact [%s] updated", f.Path)
			changed = append(changed, f.Path)
		}
		return ok, nil
	}

	if as.run.Profile == "full" && as.cfg.Nginx.Enabled {
		if err := as.placeProxy(place); err != nil {
			return changed, fmt.Errorf("proxy artifacts: %w", err)
		}
	}
	if as.run.Profile == "full" && as.cfg.Editor.Enabled {
		unitChanged, err := as.placeEditor(place)
		if err != nil {
			return changed, fmt.Errorf("editor artifacts: %w", err)
		}
		if unitChanged {
			if err := as.systemd.DaemonReload(ctx); err != nil {
				return changed, err
			}
		}
	}
	if as.cfg.Tunnel.Hostname != "" {
		data, err := artifact.RenderTunnelConfig(as.cfg.Tunnel.Tunnel, as.cfg.Tunnel.CredentialsFile, as.cfg.Tunnel.Hostname)
		if err != nil {
			return changed, err
		}
		if _, err := place(artifact.File{Path: as.cfg.Tunnel.ConfigPath, Data: data, Mode: 0644}); err != nil {
			return changed, fmt.Errorf("tunnel config: %w", err)
		}
	}
	return changed, nil
}

func (as *ArtifactService) render(s string) (string, error) {
	return utils.RenderTemplate(s, TemplateData{RunConfig: as.run, Credentials: as.creds})
}

type placeFunc func(artifact.File) (bool, error)

func (as *ArtifactService) placeProxy(place placeFunc) error {
	ng := as.cfg.Nginx
	tls := as.cfg.TLS

	cert, _ := os.ReadFile(tls.CertPath)
	if !artifact.CertCovers(cert, as.run.HostAddress, as.now()) {
		certPEM, keyPEM, err := artifact.GenerateSelfSigned(as.run.HostAddress, as.now())
		if err != nil {
			return err
		}
		if _, err := place(artifact.File{Path: tls.KeyPath, Data: keyPEM, Mode: 0600}); err != nil {
			return err
		}
		if _, err := place(artifact.File{Path: tls.CertPath, Data: certPEM, Mode: 0644}); err != nil {
			return err
		}
	}

	authUser, err := as.render(ng.AuthUser)
	if err != nil {
		return err
	}
	existing, _ := os.ReadFile(ng.HtpasswdPath)
	htpasswd, err := artifact.RenderHtpasswd(existing, authUser, as.creds[artifact.KeyBasicAuthPassword])
	if err != nil {
		return err
	}
	if _, err := place(artifact.File{Path: ng.HtpasswdPath, Data: htpasswd, Mode: 0644}); err != nil {
		return err
	}

	upstream, err := as.render(ng.Upstream)
	if err != nil {
		return err
	}
	names := []string{as.run.HostAddress}
	if as.cfg.Tunnel.Hostname != "" {
		names = append(names, as.cfg.Tunnel.Hostname)
	}
	vhost, err := artifact.RenderVhost(artifact.VhostData{
		ServerName:   strings.Join(names, " "),
		IPv6:         as.run.AddressMode == host.ModeIPv6,
		CertPath:     tls.CertPath,
		KeyPath:      tls.KeyPath,
		HtpasswdPath: ng.HtpasswdPath,
		Upstream:     upstream,
	})
	if err != nil {
		return err
	}
	_, err = place(artifact.File{Path: ng.VhostPath, Data: vhost, Mode: 0644})
	return err
}

func (as *ArtifactService) placeEditor(place placeFunc) (bool, error) {
	ed := as.cfg.Editor
	path, err := as.render(ed.ConfigPath)
	if err != nil {
		return false, err
	}
	bind, err := as.render(ed.BindAddr)
	if err != nil {
		return false, err
	}
	data, err := artifact.RenderEditorConfig(bind, as.creds[artifact.KeyEditorPassword])
	if err != nil {
		return false, err
	}
	if _, err := place(artifact.File{Path: path, Data: data, Mode: 0600, Owner: as.run.User}); err != nil {
		return false, err
	}

	if as.run.Strategy != host.SystemdAvailable || ed.UnitPath == "" {
		return false, nil
	}
	unit, err := artifact.RenderUnit(artifact.UnitData{Description: "code-server for %i", ExecStart: "/usr/bin/env code-server"})
	if err != nil {
		return false, err
	}
	return place(artifact.File{Path: ed.UnitPath, Data: unit, Mode: 0644})
}
