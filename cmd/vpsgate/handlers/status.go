package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/report"
	"github.com/imamik/vpsgate/internal/state"
)

// StatusOptions are the flags of the status command.
type StatusOptions struct {
	Variant    string
	ConfigPath string
	InstallDir string
}

var readConnectionInfo = report.ReadConnectionInfo

// Status prints the connection info stored by the last successful run.
// Without a variant or install directory both default locations are tried.
func Status(_ context.Context, w io.Writer, opts StatusOptions) error {
	cfg, err := buildConfig(ProvisionOptions{
		Variant:    opts.Variant,
		ConfigPath: opts.ConfigPath,
		InstallDir: opts.InstallDir,
	})
	if err != nil {
		return err
	}

	for _, dir := range candidateDirs(cfg) {
		entries, err := readConnectionInfo(dir)
		if errors.Is(err, state.ErrNotInstalled) {
			continue
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "Installation in %s\n\n", dir)
		for _, e := range entries {
			fmt.Fprintf(w, "  %-24s %s\n", e.Key, e.Value)
		}
		return nil
	}

	return fmt.Errorf("%w: run vpsgate --variant <frp|wireguard> first", state.ErrNotInstalled)
}

func candidateDirs(cfg *config.Config) []string {
	if cfg.InstallDir != "" || cfg.Variant.IsValid() {
		return []string{cfg.ResolvedInstallDir()}
	}
	return []string{config.DefaultFRPInstallDir, config.DefaultWireGuardInstallDir}
}
