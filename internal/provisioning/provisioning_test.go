package provisioning

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/params"
	"github.com/imamik/vpsgate/internal/prompt"
	"github.com/imamik/vpsgate/internal/render"
	"github.com/imamik/vpsgate/internal/report"
	"github.com/imamik/vpsgate/internal/service"
	"github.com/imamik/vpsgate/internal/state"
	"github.com/imamik/vpsgate/internal/util/command"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// snapshotTree records the content and modification time of every file
// below dir.
func snapshotTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[path] = info.ModTime().Format(time.RFC3339Nano) + "|" + string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func newFRPRun(t *testing.T) *testEnv {
	t.Helper()
	env := newTestContext(t, config.VariantFRP)
	env.fetcher.bodies = frpRelease(t)
	env.ctx.Config.FRP.BindPort = listen(t)
	env.ctx.LookupEnv = envMap(map[string]string{"DOMAIN": "example.com", "TOKEN": "abc123"})
	systemdStartsOnEnable(env.runner)
	return env
}

func TestScenario_FRPFreshInstall(t *testing.T) {
	t.Parallel()
	env := newFRPRun(t)
	st := env.ctx.State

	require.NoError(t, RunPhases(env.ctx, Phases()))
	assert.Equal(t, StageReported, env.ctx.Stage())

	client := readFile(t, st.Path(render.FRPClientConfig))
	assert.Contains(t, client, `serverAddr = "203.0.113.5"`)
	assert.Contains(t, client, `customDomains = ["*.example.com"]`)
	assert.Contains(t, client, `auth.token = "abc123"`)

	server := readFile(t, st.Path(render.FRPServerConfig))
	assert.Contains(t, server, `subdomainHost = "example.com"`)

	assert.FileExists(t, render.SystemdUnitPath(env.ctx.Config))
	assert.FileExists(t, st.Path(KeysDir, DashboardPasswordFile))

	assert.True(t, env.runner.Called("systemctl enable --now frps"))
	assert.Equal(t, service.OutcomeStarted, env.ctx.Results.Service.Outcome)

	n := len(env.ctx.Results.Dependencies)
	progress := env.observer.eventsOf(EventProgress)
	require.Len(t, progress, n)
	assert.Equal(t, "dependencies", progress[n-1].Phase)
	assert.Equal(t, fmt.Sprintf("%d/%d", n, n), progress[n-1].Message)

	entries, err := report.ReadConnectionInfo(st.InstallDir)
	require.NoError(t, err)
	assert.Contains(t, entries, report.Entry{Key: "FRP_TOKEN", Value: "abc123"})
	assert.FileExists(t, st.Path(report.SecretFile))

	assert.Equal(t, "detected via test", env.ctx.Results.Origins[params.FieldPublicIP])
	assert.Equal(t, "env", env.ctx.Results.Origins[params.FieldDomain])
	assert.Contains(t, env.out.String(), "vpsgate: frp gateway for example.com")
}

func TestScenario_FRPRerunIsIdempotent(t *testing.T) {
	t.Parallel()
	env := newFRPRun(t)
	require.NoError(t, RunPhases(env.ctx, Phases()))
	require.NoError(t, env.ctx.Close())
	before := snapshotTree(t, env.ctx.State.InstallDir)

	again := &Context{}
	*again = *env.ctx
	again.State = newState(env.ctx.Config)
	again.Results = &Results{}
	again.stage = StageFresh
	again.LookupEnv = envMap(map[string]string{"TOKEN": "abc123"})
	t.Cleanup(func() { _ = again.Close() })

	require.NoError(t, RunPhases(again, Phases()))
	assert.Equal(t, service.OutcomeUnchanged, again.Results.Service.Outcome)
	assert.Empty(t, again.Results.Files.Written)
	assert.Equal(t, "state", again.Results.Origins[params.FieldDomain])
	assert.Equal(t, before, snapshotTree(t, env.ctx.State.InstallDir))
}

func TestScenario_DeclinedUpdateWritesNothing(t *testing.T) {
	t.Parallel()
	env := newFRPRun(t)
	st := env.ctx.State

	require.NoError(t, os.MkdirAll(st.InstallDir, 0o755))
	for _, bin := range []string{render.FRPServerBinary, render.FRPClientBinary} {
		require.NoError(t, os.WriteFile(st.Path(bin), []byte("#!/bin/sh\n"), 0o755))
	}
	require.NoError(t, os.WriteFile(st.EnvPath(), state.FormatEnv(map[string]string{
		state.KeyVariant: "frp", state.KeyDomain: "old.example.com", state.KeyPublicIP: "198.51.100.1", state.KeyToken: "old",
	}), 0o600))
	before := snapshotTree(t, st.InstallDir)

	prompter := &prompt.Scripted{Confirms: map[string]bool{"Update existing installation?": false}}
	env.ctx.Prompter = prompter

	require.NoError(t, RunPhases(env.ctx, Phases()))
	assert.True(t, env.ctx.Results.Declined)
	assert.Equal(t, StageDependenciesReady, env.ctx.Stage())
	assert.Equal(t, []string{"Update existing installation?"}, prompter.Asked())
	assert.Equal(t, before, snapshotTree(t, st.InstallDir))
	assert.Empty(t, env.fetcher.urls)
	assert.False(t, env.runner.Called("systemctl"))
}

func TestScenario_DependencyFailureWritesNoConfig(t *testing.T) {
	t.Parallel()
	env := newFRPRun(t)
	env.fetcher.bodies = nil
	st := env.ctx.State

	err := RunPhases(env.ctx, Phases())

	require.Error(t, err)
	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, KindDependency, provErr.Kind)
	assert.Equal(t, "dependencies", provErr.Phase)
	assert.Contains(t, err.Error(), "connection refused")

	for _, name := range []string{state.EnvFileName, render.FRPServerConfig, render.FRPClientConfig, report.ConnectionInfoFile} {
		assert.NoFileExists(t, st.Path(name))
	}
	assert.NoFileExists(t, render.SystemdUnitPath(env.ctx.Config))
}

func TestScenario_MissingTokenFailsBeforeWriting(t *testing.T) {
	t.Parallel()
	env := newFRPRun(t)
	env.ctx.LookupEnv = envMap(map[string]string{"DOMAIN": "example.com"})

	err := RunPhases(env.ctx, Phases())

	require.ErrorIs(t, err, params.ErrMissingRequiredParameter)
	kind, _ := KindOf(err)
	assert.Equal(t, KindPrecondition, kind)
	assert.NoFileExists(t, env.ctx.State.EnvPath())
	assert.NoFileExists(t, env.ctx.State.Path(KeysDir, DashboardPasswordFile))
}

func TestScenario_NonInteractiveWithoutInputsInstallsNothing(t *testing.T) {
	t.Parallel()
	env := newFRPRun(t)
	env.ctx.LookupEnv = envMap(nil)

	err := RunPhases(env.ctx, Phases())

	var missing *params.MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []params.Field{params.FieldDomain, params.FieldToken}, missing.Fields)

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, KindPrecondition, provErr.Kind)
	assert.Equal(t, "preflight", provErr.Phase)
	assert.Equal(t, StageFresh, env.ctx.Stage())

	assert.Empty(t, env.fetcher.urls)
	assert.NoFileExists(t, env.ctx.State.Path(render.FRPServerBinary))
	assert.NoDirExists(t, env.ctx.State.InstallDir)
}

func TestScenario_ServiceFailureCarriesLogTail(t *testing.T) {
	t.Parallel()
	env := newFRPRun(t)
	env.runner.On("systemctl enable --now", command.FakeResponse{ExitCode: 1, Stderr: "Job for frps.service failed"})
	env.runner.On("journalctl", command.FakeResponse{Stdout: "frps: bind: address already in use\n"})

	err := RunPhases(env.ctx, Phases())

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, KindService, provErr.Kind)
	assert.Contains(t, provErr.Diagnostics, "address already in use")
	assert.Equal(t, StageConfigReady, env.ctx.Stage())
	assert.FileExists(t, env.ctx.State.Path(render.FRPServerConfig))
}

func TestScenario_WireGuardFreshInstall(t *testing.T) {
	t.Parallel()
	env := newTestContext(t, config.VariantWireGuard)
	env.ctx.healthPort = listen(t)
	env.runner.WithPath("docker")
	composeStartsOnUp(env.runner)
	env.ctx.Options.Overrides = params.Overrides{Domain: "Example.COM."}
	st := env.ctx.State

	require.NoError(t, RunPhases(env.ctx, Phases()))

	assert.Equal(t, "example.com", st.Domain)
	privateKey := readFile(t, st.Path(KeysDir, ServerPrivateKeyFile))
	info, err := os.Stat(st.Path(KeysDir, ServerPrivateKeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	wg := readFile(t, st.Path(render.WireGuardConfigDir, render.WireGuardConfig))
	assert.Contains(t, wg, "PrivateKey = "+st.PrivateKey)
	assert.Contains(t, privateKey, st.PrivateKey)

	caddy := readFile(t, st.Path(render.Caddyfile))
	assert.Contains(t, caddy, "*.example.com")
	assert.FileExists(t, st.Path(render.ComposeFile))
	assert.FileExists(t, st.Path(render.PeerConfig))
	assert.True(t, env.runner.Called("docker compose up -d"))
	assert.Contains(t, env.ctx.Results.Warnings[len(env.ctx.Results.Warnings)-1], "placeholder")
}

func TestScenario_WireGuardKeepsKeysOnRerun(t *testing.T) {
	t.Parallel()
	env := newTestContext(t, config.VariantWireGuard)
	env.ctx.healthPort = listen(t)
	env.runner.WithPath("docker")
	composeStartsOnUp(env.runner)
	env.ctx.LookupEnv = envMap(map[string]string{"DOMAIN": "example.com"})

	require.NoError(t, RunPhases(env.ctx, Phases()))
	require.NoError(t, env.ctx.Close())
	firstKey := env.ctx.State.PrivateKey

	prompter := &prompt.Scripted{Confirms: map[string]bool{
		"Update existing installation?": true,
		"Regenerate WireGuard keys?":    false,
	}}
	again := &Context{}
	*again = *env.ctx
	again.State = newState(env.ctx.Config)
	again.Results = &Results{}
	again.stage = StageFresh
	again.Prompter = prompter
	again.LookupEnv = envMap(nil)
	t.Cleanup(func() { _ = again.Close() })

	require.NoError(t, RunPhases(again, Phases()))
	assert.Equal(t, firstKey, again.State.PrivateKey)
	assert.False(t, again.Results.KeysCreated)
	assert.Contains(t, prompter.Asked(), "Regenerate WireGuard keys?")

	require.NoError(t, again.Close())
	again.Options.RegenerateKeys = true
	third := &Context{}
	*third = *again
	third.State = newState(env.ctx.Config)
	third.Results = &Results{}
	third.stage = StageFresh
	t.Cleanup(func() { _ = third.Close() })
	require.NoError(t, RunPhases(third, Phases()))
	assert.NotEqual(t, firstKey, third.State.PrivateKey)
	assert.NotEmpty(t, third.Results.Files.BackupDir)
}
