// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bombsimon/logrusr/v3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/metrics"
	"github.com/imamik/vpsgate/internal/params"
	hcloud_internal "github.com/imamik/vpsgate/internal/platform/hcloud"
	"github.com/imamik/vpsgate/internal/platform/s3"
	"github.com/imamik/vpsgate/internal/prompt"
	"github.com/imamik/vpsgate/internal/provisioning"
	"github.com/imamik/vpsgate/internal/util/command"
)

// Environment variables read by the handlers. Parameter variables such as
// DOMAIN and TOKEN are read by the parameters phase.
const (
	EnvVariant     = "VPSGATE_VARIANT"
	EnvHCloudToken = "HCLOUD_TOKEN"
	EnvS3AccessKey = "VPSGATE_S3_ACCESS_KEY"
	EnvS3SecretKey = "VPSGATE_S3_SECRET_KEY"
)

// ProvisionOptions are the flags of the root command.
type ProvisionOptions struct {
	Variant    string
	ConfigPath string
	InstallDir string

	Overrides      params.Overrides
	RegenerateKeys bool
	Restart        string
	FreePorts      bool

	NonInteractive bool
	Yes            bool
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfig reads the configuration file on top of the variant defaults.
	loadConfig = config.LoadWithoutValidation

	// newLogger returns the logger every run logs to.
	newLogger = logrus.StandardLogger

	// newRunner creates the runner for external commands.
	newRunner = func(timeout time.Duration) command.Runner {
		return command.NewExecRunner(timeout)
	}

	// newPrompter picks the prompt implementation.
	newPrompter = prompt.New

	// newCloudFirewall creates the Hetzner Cloud client.
	newCloudFirewall = func(token string, timeout time.Duration) provisioning.CloudFirewall {
		return hcloud_internal.NewClient(token, hcloud_internal.WithTimeout(timeout))
	}

	// newBackupStore creates the S3 client for offsite backups.
	newBackupStore = func(ctx context.Context, cfg config.S3BackupConfig, accessKey, secretKey string) (provisioning.BackupStore, error) {
		return s3.NewClient(ctx, cfg.Endpoint, cfg.Region, accessKey, secretKey)
	}

	// newProvisioningContext creates the context shared by all phases.
	newProvisioningContext = provisioning.NewContext

	// runPhases runs the pipeline.
	runPhases = provisioning.RunPhases

	// writeTextfile exports the run metrics.
	writeTextfile = func(r *metrics.Recorder, dir string) error {
		return r.WriteTextfile(dir)
	}

	lookupEnv = os.LookupEnv

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Provision installs or updates the gateway on this VPS.
//
// The workflow:
//  1. Builds the configuration from the config file, VPSGATE_VARIANT and flags
//  2. Sets up logging (stderr plus an optional rotated file)
//  3. Connects optional Hetzner Cloud and S3 clients from the environment
//  4. Runs every provisioning phase and prints the summary
//  5. Exports run metrics when a textfile directory is configured
//
// A declined update is not an error.
func Provision(ctx context.Context, opts ProvisionOptions) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}

	logger := newLogger()
	logFile, err := configureLogging(logger, cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	runID := uuid.New().String()
	pctx := newProvisioningContext(ctx, cfg, newRunner(config.LoadTimeouts().Command), newPrompter(!opts.NonInteractive, opts.Yes))
	defer func() {
		if err := pctx.Close(); err != nil {
			logger.WithError(err).Warn("failed to release install directory lock")
		}
	}()

	pctx.Observer = provisioning.NewLogObserver(logrusr.New(logger)).WithFields(map[string]string{"run": runID})
	pctx.Out = stdout
	pctx.Options = provisioning.Options{
		Overrides:      opts.Overrides,
		RegenerateKeys: opts.RegenerateKeys,
	}

	if err := attachClients(ctx, pctx); err != nil {
		return err
	}

	runErr := runPhases(pctx, provisioning.Phases())

	pctx.Metrics.Finish(runErr == nil, pctx.Now())
	if dir := cfg.Metrics.TextfileDir; dir != "" {
		if err := writeTextfile(pctx.Metrics, dir); err != nil {
			logger.WithError(err).Warn("failed to export metrics")
		}
	}

	if runErr != nil {
		printFailure(stderr, runErr)
		return runErr
	}

	if pctx.Results.Declined {
		fmt.Fprintln(stdout, "Update declined, the existing installation was left unchanged.")
	}
	return nil
}

// buildConfig loads the configuration and applies the variant and flag
// overrides on top. Validation is left to the preflight phase so that every
// problem is reported the same way.
func buildConfig(opts ProvisionOptions) (*config.Config, error) {
	variant := config.Variant(strings.TrimSpace(opts.Variant))
	if variant == "" {
		if v, ok := lookupEnv(EnvVariant); ok {
			variant = config.Variant(strings.TrimSpace(v))
		}
	}

	cfg, err := loadConfig(opts.ConfigPath, variant)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if variant != "" {
		cfg.Variant = variant
	}
	if opts.InstallDir != "" {
		cfg.InstallDir = opts.InstallDir
	}
	if opts.Restart != "" {
		cfg.Restart = config.RestartPolicy(opts.Restart)
	}
	if opts.FreePorts {
		cfg.FreePorts = true
	}
	return cfg, nil
}

// attachClients connects the optional cloud integrations. Each stays nil
// when its credentials are missing; the phases then warn and carry on.
func attachClients(ctx context.Context, pctx *provisioning.Context) error {
	cfg := pctx.Config

	if cfg.Firewall.HCloud.Name != "" {
		if token, _ := lookupEnv(EnvHCloudToken); token != "" {
			pctx.CloudFirewall = newCloudFirewall(token, pctx.Timeouts.Cloud)
		}
	}

	if cfg.Backup.S3.Enabled() {
		accessKey, _ := lookupEnv(EnvS3AccessKey)
		secretKey, _ := lookupEnv(EnvS3SecretKey)
		if accessKey != "" && secretKey != "" {
			store, err := newBackupStore(ctx, cfg.Backup.S3, accessKey, secretKey)
			if err != nil {
				return fmt.Errorf("failed to create S3 client: %w", err)
			}
			pctx.Backups = store
		}
	}
	return nil
}

// printFailure adds what the one-line error cannot carry, such as the
// service log tail.
func printFailure(w io.Writer, err error) {
	var perr *provisioning.Error
	if !errors.As(err, &perr) {
		return
	}

	fmt.Fprintf(w, "\nProvisioning failed in the %s phase (%s error).\n", perr.Phase, perr.Kind)
	if perr.Diagnostics != "" {
		fmt.Fprintln(w, "Recent service log:")
		for _, line := range strings.Split(strings.TrimRight(perr.Diagnostics, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	if errors.Is(err, provisioning.ErrNotRoot) {
		fmt.Fprintln(w, "Run vpsgate as root, for example with sudo.")
	}
	fmt.Fprintln(w, "Fix the problem and run vpsgate again; completed steps are skipped.")
}
