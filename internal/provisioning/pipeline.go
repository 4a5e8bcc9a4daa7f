package provisioning

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imamik/vpsgate/internal/report"
)

// Phases returns the full provisioning sequence.
func Phases() []Phase {
	return []Phase{
		NewPreflightPhase(),
		NewDependenciesPhase(),
		NewStatePhase(),
		NewParametersPhase(),
		NewKeysPhase(),
		NewRenderPhase(),
		NewFirewallPhase(),
		NewServicePhase(),
		NewReportPhase(),
	}
}

// RunPhases executes phases sequentially and stops at the first failure.
// A phase returning ErrDeclined ends the run without an error.
func RunPhases(ctx *Context, phases []Phase) error {
	start := time.Now()
	ctx.Observer.Printf("Starting provisioning with %d phases...", len(phases))

	for i, phase := range phases {
		next, err := ctx.stage.Advance(phase.Stage())
		if err != nil {
			return fmt.Errorf("%s phase: %w", phase.Name(), err)
		}

		ctx.current = phase.Name()
		ctx.notes = nil
		observer := ctx.Observer
		ctx.Observer = observer.WithFields(map[string]string{"step": fmt.Sprintf("%d/%d", i+1, len(phases))})
		LogPhaseStart(ctx.Observer, phase.Name())

		phaseStart := time.Now()
		err = phase.Provision(ctx)
		duration := time.Since(phaseStart)
		ctx.Metrics.ObservePhase(phase.Name(), duration, err)

		if errors.Is(err, ErrDeclined) {
			ctx.Results.Declined = true
			ctx.Observer.Printf("[%s] %v, nothing changed", phase.Name(), err)
			ctx.Observer = observer
			return nil
		}
		if err != nil {
			LogPhaseFailed(ctx.Observer, phase.Name(), err)
			ctx.Observer = observer
			ctx.Results.Steps = append(ctx.Results.Steps, report.Step{Name: phase.Name(), Detail: "failed", Failed: true})
			return classify(phase.Name(), err)
		}

		LogPhaseComplete(ctx.Observer, phase.Name(), duration)
		ctx.Observer = observer
		ctx.stage = next
		ctx.Results.Steps = append(ctx.Results.Steps, report.Step{Name: phase.Name(), Detail: strings.Join(ctx.notes, ", ")})
	}

	ctx.Observer.Printf("Provisioning completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}

// classify makes sure every failure leaving the pipeline is an *Error
// naming its phase.
func classify(phase string, err error) error {
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: KindPrecondition, Phase: phase, Err: err}
	}
	if e.Phase == "" {
		e.Phase = phase
	}
	return err
}
