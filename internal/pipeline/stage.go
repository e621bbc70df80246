package pipeline

import "fmt"

// Stage is one step of a run, in execution order.
type Stage int

const (
	StageLoad Stage = iota
	StageImpute
	StageFilter
	StageEnrich
	StageEncode
	StageAggregate
	StagePersist
)

var stageNames = [...]string{
	StageLoad:      "load",
	StageImpute:    "impute",
	StageFilter:    "filter_outliers",
	StageEnrich:    "derive_features",
	StageEncode:    "encode_category",
	StageAggregate: "aggregate",
	StagePersist:   "persist",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Target is the state a run reaches when s succeeds.
func (s Stage) Target() State { return State(s + 1) }

// State is how far a run progressed. It only moves forward, one stage at a
// time; a failed stage leaves it unchanged.
type State int

const (
	StateInitial State = iota
	StateLoaded
	StateImputed
	StateFiltered
	StateEnriched
	StateEncoded
	StateAggregated
	StatePersisted
)

var stateNames = [...]string{
	StateInitial:    "initial",
	StateLoaded:     "loaded",
	StateImputed:    "imputed",
	StateFiltered:   "filtered",
	StateEnriched:   "enriched",
	StateEncoded:    "encoded",
	StateAggregated: "aggregated",
	StatePersisted:  "persisted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// StageError reports the stage at which a run halted.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }
