package handlers

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/report"
	"github.com/imamik/vpsgate/internal/state"
)

func TestStatus_PrintsConnectionInfo(t *testing.T) {
	stubFactories(t, nil, nil)
	dir := t.TempDir()
	entries := []report.Entry{
		{Key: "DOMAIN", Value: "example.com"},
		{Key: "VPS_IP", Value: "203.0.113.5"},
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, report.ConnectionInfoFile), report.FormatEntries(entries), 0600))

	var out bytes.Buffer
	require.NoError(t, Status(context.Background(), &out, StatusOptions{Variant: "frp", InstallDir: dir}))

	assert.Contains(t, out.String(), "Installation in "+dir)
	assert.Contains(t, out.String(), "DOMAIN")
	assert.Contains(t, out.String(), "example.com")
	assert.Contains(t, out.String(), "203.0.113.5")
}

func TestStatus_NotInstalled(t *testing.T) {
	stubFactories(t, nil, nil)

	err := Status(context.Background(), &bytes.Buffer{}, StatusOptions{InstallDir: t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, state.ErrNotInstalled)
}

func TestStatus_TriesBothDefaultsWithoutVariant(t *testing.T) {
	stubFactories(t, nil, nil)

	var tried []string
	readConnectionInfo = func(dir string) ([]report.Entry, error) {
		tried = append(tried, dir)
		if dir == config.DefaultWireGuardInstallDir {
			return []report.Entry{{Key: "DOMAIN", Value: "example.com"}}, nil
		}
		return nil, state.ErrNotInstalled
	}

	var out bytes.Buffer
	require.NoError(t, Status(context.Background(), &out, StatusOptions{}))

	assert.Equal(t, []string{config.DefaultFRPInstallDir, config.DefaultWireGuardInstallDir}, tried)
	assert.Contains(t, out.String(), config.DefaultWireGuardInstallDir)
}

func TestStatus_ReadError(t *testing.T) {
	stubFactories(t, nil, nil)
	readConnectionInfo = func(string) ([]report.Entry, error) {
		return nil, errors.New("malformed line")
	}

	err := Status(context.Background(), &bytes.Buffer{}, StatusOptions{Variant: "frp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed line")
}
