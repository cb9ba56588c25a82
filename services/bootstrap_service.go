package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"devhost-keeper/internal/artifact"
	"devhost-keeper/internal/config"
	"devhost-keeper/internal/host"
	"devhost-keeper/internal/logger"
	"devhost-keeper/internal/models"
	"devhost-keeper/internal/pkgmgr"
	"devhost-keeper/internal/utils"

	"github.com/google/uuid"
)

// Exit codes of a bootstrap run.
const (
	ExitOK      = 0
	ExitFatal   = 1
	ExitAborted = 2
)

// FatalError is a failed prerequisite; no service is attempted after it.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err stopped the run before services were attempted.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

/**
 * Options of one bootstrap run
 * @property {[]string} Only - Restrict the run to these services
 * @property {bool} SkipPackages - Do not query or install OS packages
 * @property {string} Profile - Override host.profile
 */
type BootstrapOptions struct {
	Only         []string
	SkipPackages bool
	Profile      string
	Detect       host.DetectOptions
}

/**
 * Run a full bootstrap
 * @param {context.Context} ctx - Cancels the run
 * @param {*config.AppConfig} cfg - Loaded configuration
 * @param {BootstrapOptions} opts - Run options
 * @returns {*models.BootstrapReport} Report, also on fatal errors
 * @returns {error} FatalError when a prerequisite failed
 * @description
 * - Detection, privilege, packages, credentials and artifacts are the fatal tier
 * - Services then run sequentially under the configured failure policy
 * - The report is persisted to <cache>/report.json and metrics are pushed when configured
 */
func RunBootstrap(ctx context.Context, cfg *config.AppConfig, opts BootstrapOptions) (*models.BootstrapReport, error) {
	report := &models.BootstrapReport{RunID: uuid.NewString(), StartTime: time.Now()}
	err := runBootstrap(ctx, cfg, opts, report)
	report.EndTime = time.Now()
	report.Tally()
	if err != nil {
		report.FatalError = err.Error()
	}
	RecordRun(report)

	if report.Host.Dirs.Cache != "" {
		if serr := SaveReport(report.Host.Dirs.Cache, report); serr != nil {
			logger.Warnf("Save report failed: %v", serr)
		}
	}
	if cfg.Metrics.Pushgateway != "" {
		if perr := PushMetrics(cfg.Metrics.Pushgateway, cfg.Metrics.Job, report.Host.HostAddress); perr != nil {
			logger.Warnf("Push metrics to %s failed: %v", cfg.Metrics.Pushgateway, perr)
		}
	}
	return report, err
}

func runBootstrap(ctx context.Context, cfg *config.AppConfig, opts BootstrapOptions, report *models.BootstrapReport) error {
	if opts.Profile != "" {
		cfg.Host.Profile = opts.Profile
	}
	if opts.Detect.Privilege == nil {
		opts.Detect = host.DefaultDetectOptions()
	}
	run, err := host.Detect(ctx, cfg, opts.Detect)
	if err != nil {
		return &FatalError{Stage: "detect host", Err: err}
	}
	report.Host = run
	logger.Infof("Host %s (%s), init strategy %s, privilege %s, address %s",
		run.OS.ID, run.OS.VersionID, run.Strategy, run.Privilege, run.HostAddress)

	if err := run.RequirePrivilege(); err != nil {
		return &FatalError{Stage: "check privilege", Err: err}
	}
	runner := utils.ExecRunner{Sudo: run.Sudo()}

	if !opts.SkipPackages && !cfg.Packages.Skip && len(cfg.Packages.Install) > 0 {
		mgr, err := pkgmgr.ForOS(run.OS, runner)
		if err != nil {
			return &FatalError{Stage: "select package manager", Err: err}
		}
		installed, err := mgr.EnsureInstalled(ctx, cfg.Packages.Install)
		if err != nil {
			return &FatalError{Stage: "install packages", Err: err}
		}
		report.Packages = installed
	}

	creds, err := EnsureCredentials(cfg, run)
	if err != nil {
		return &FatalError{Stage: "credentials", Err: err}
	}

	changed, err := NewArtifactService(&cfg.Artifacts, run, creds, runner).PlaceAll(ctx)
	report.Artifacts = changed
	if err != nil {
		return &FatalError{Stage: "place artifacts", Err: err}
	}

	specs, err := NewServiceManager(cfg, run, creds).BuildSpecs(opts.Only)
	if err != nil {
		return &FatalError{Stage: "build services", Err: err}
	}
	b := NewBootstrapper(cfg.Policy.OnServiceFailure)
	b.OnResult = RecordServiceResult
	report.Services, report.Aborted = b.Run(ctx, specs)
	return nil
}

// CredentialsPath renders artifacts.credentials_path for the run.
func CredentialsPath(cfg *config.AppConfig, run host.RunConfig) (string, error) {
	return utils.RenderTemplate(cfg.Artifacts.CredentialsPath, run)
}

// EnsureCredentials loads the stored credentials, generating the missing default keys.
func EnsureCredentials(cfg *config.AppConfig, run host.RunConfig) (artifact.Credentials, error) {
	path, err := CredentialsPath(cfg, run)
	if err != nil {
		return nil, err
	}
	creds, generated, err := artifact.EnsureCredentials(path, artifact.DefaultCredentialKeys)
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Infof("Generated credentials stored in %s", path)
	}
	return creds, nil
}

// LoadCredentials reads the stored credentials without generating any.
func LoadCredentials(cfg *config.AppConfig, run host.RunConfig) (artifact.Credentials, error) {
	path, err := CredentialsPath(cfg, run)
	if err != nil {
		return nil, err
	}
	return artifact.LoadCredentials(path)
}

// ExitCode maps a run outcome to the process exit status.
func ExitCode(report *models.BootstrapReport, err error) int {
	switch {
	case err != nil:
		return ExitFatal
	case report.Aborted:
		return ExitAborted
	}
	return ExitOK
}

func reportPath(cacheDir string) string {
	return filepath.Join(cacheDir, "report.json")
}

// SaveReport writes the report of the latest run.
func SaveReport(cacheDir string, report *models.BootstrapReport) error {
	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = artifact.Place(reportPath(cacheDir), jsonData, 0644)
	return err
}

// LoadReport reads the report of the latest run; os.ErrNotExist when there is none.
func LoadReport(cacheDir string) (*models.BootstrapReport, error) {
	jsonData, err := os.ReadFile(reportPath(cacheDir))
	if err != nil {
		return nil, err
	}
	var report models.BootstrapReport
	if err := json.Unmarshal(jsonData, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}
