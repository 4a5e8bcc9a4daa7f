package provisioning

import (
	"errors"
	"fmt"
)

// Stage is how far a run got.
type Stage int

// Stages in the order a run walks through them.
const (
	StageFresh Stage = iota
	StageDependenciesReady
	StageConfigReady
	StageServiceRunning
	StageReported
)

var stageNames = [...]string{
	StageFresh:             "Fresh",
	StageDependenciesReady: "DependenciesReady",
	StageConfigReady:       "ConfigReady",
	StageServiceRunning:    "ServiceRunning",
	StageReported:          "Reported",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// ErrStageOrder is returned when a phase would skip or revisit a stage.
var ErrStageOrder = errors.New("invalid stage transition")

// Advance returns next if the run may move there from s. A run may stay
// in its stage or move exactly one stage forward.
func (s Stage) Advance(next Stage) (Stage, error) {
	if next != s && next != s+1 {
		return s, fmt.Errorf("%w: %s -> %s", ErrStageOrder, s, next)
	}
	return next, nil
}
