package provisioning

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vpsgate/internal/config"
)

// mockPhase implements the Phase interface for testing.
type mockPhase struct {
	name  string
	stage Stage
	run   func(ctx *Context) error
}

func (m *mockPhase) Name() string { return m.name }
func (m *mockPhase) Stage() Stage { return m.stage }
func (m *mockPhase) Provision(ctx *Context) error {
	if m.run == nil {
		return nil
	}
	return m.run(ctx)
}

func phase(name string, stage Stage, run func(ctx *Context) error) Phase {
	return &mockPhase{name: name, stage: stage, run: run}
}

func TestRunPhases_Success(t *testing.T) {
	t.Parallel()
	env := newTestContext(t, config.VariantFRP)
	var executed []string
	record := func(name string) func(*Context) error {
		return func(ctx *Context) error {
			executed = append(executed, name)
			ctx.Note(name + " done")
			return nil
		}
	}

	err := RunPhases(env.ctx, []Phase{
		phase("a", StageFresh, record("a")),
		phase("b", StageDependenciesReady, record("b")),
		phase("c", StageDependenciesReady, record("c")),
		phase("d", StageConfigReady, record("d")),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, executed)
	assert.Equal(t, StageConfigReady, env.ctx.Stage())
	require.Len(t, env.ctx.Results.Steps, 4)
	assert.Equal(t, "b done", env.ctx.Results.Steps[1].Detail)
	assert.Len(t, env.observer.eventsOf(EventPhaseCompleted), 4)
}

func TestRunPhases_StopsOnError(t *testing.T) {
	t.Parallel()
	env := newTestContext(t, config.VariantFRP)
	var executed []string

	err := RunPhases(env.ctx, []Phase{
		phase("a", StageFresh, func(*Context) error { executed = append(executed, "a"); return nil }),
		phase("b", StageDependenciesReady, func(*Context) error {
			executed = append(executed, "b")
			return newError(KindDependency, errors.New("download failed"))
		}),
		phase("c", StageDependenciesReady, func(*Context) error { executed = append(executed, "c"); return nil }),
	})

	require.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, executed)

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, KindDependency, provErr.Kind)
	assert.Equal(t, "b", provErr.Phase)
	assert.Equal(t, StageFresh, env.ctx.Stage())
	assert.Len(t, env.observer.eventsOf(EventPhaseFailed), 1)
	assert.True(t, env.ctx.Results.Steps[1].Failed)
}

func TestRunPhases_UnclassifiedErrorsArePreconditions(t *testing.T) {
	t.Parallel()
	env := newTestContext(t, config.VariantFRP)

	err := RunPhases(env.ctx, []Phase{
		phase("a", StageFresh, func(*Context) error { return errors.New("boom") }),
	})

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindPrecondition, kind)
	assert.EqualError(t, err, "a phase: precondition error: boom")
}

func TestRunPhases_Declined(t *testing.T) {
	t.Parallel()
	env := newTestContext(t, config.VariantFRP)
	ranAfter := false

	err := RunPhases(env.ctx, []Phase{
		phase("a", StageFresh, nil),
		phase("b", StageDependenciesReady, func(*Context) error { return ErrDeclined }),
		phase("c", StageDependenciesReady, func(*Context) error { ranAfter = true; return nil }),
	})

	require.NoError(t, err)
	assert.False(t, ranAfter)
	assert.True(t, env.ctx.Results.Declined)
	assert.Equal(t, StageFresh, env.ctx.Stage())
}

func TestRunPhases_RefusesToSkipStages(t *testing.T) {
	t.Parallel()
	env := newTestContext(t, config.VariantFRP)
	ran := false

	err := RunPhases(env.ctx, []Phase{
		phase("a", StageFresh, nil),
		phase("b", StageConfigReady, func(*Context) error { ran = true; return nil }),
	})

	require.ErrorIs(t, err, ErrStageOrder)
	assert.False(t, ran)
}

func TestPhases_WalkEveryStage(t *testing.T) {
	t.Parallel()
	stage := StageFresh
	var names []string
	for _, p := range Phases() {
		next, err := stage.Advance(p.Stage())
		require.NoError(t, err, p.Name())
		stage = next
		names = append(names, p.Name())
	}
	assert.Equal(t, StageReported, stage)
	assert.Equal(t, []string{
		"preflight", "dependencies", "state", "parameters", "keys",
		"render", "firewall", "service", "report",
	}, names)
}
