package mutation

import (
	"time"

	"github.com/rs/zerolog"
)

// Phase is one step of a mutating request.
type Phase string

const (
	PhaseValidating             Phase = "validating"
	PhaseAuthorizing            Phase = "authorizing"
	PhaseMutatingPrimary        Phase = "mutating-primary"
	PhaseMutatingDependents     Phase = "mutating-dependents"
	PhasePersistingNotification Phase = "persisting-notification"
	PhaseResponding             Phase = "responding"
)

// Outcome is the terminal state of a request.
type Outcome string

const (
	OutcomeOK               Outcome = "ok"
	OutcomeValidationFailed Outcome = "validation-failed"
	OutcomeUnauthorized     Outcome = "unauthorized"
	OutcomeNotFound         Outcome = "not-found"
	OutcomeDependencyFailed Outcome = "dependency-failed"
	OutcomeFailed           Outcome = "failed"
)

// PhaseTiming records how long one phase took and whether it failed.
type PhaseTiming struct {
	Phase    Phase
	Duration time.Duration
	Err      string
}

// Trace collects the phase timings of one request for logging after the response.
type Trace struct {
	Op       string
	Phases   []PhaseTiming
	Outcome  Outcome
	Warnings []string
	started  time.Time
	total    time.Duration
}

// NewTrace starts a trace for op.
func NewTrace(op string) *Trace {
	return &Trace{Op: op, started: time.Now()}
}

// Begin starts timing phase. The returned func ends it.
func (t *Trace) Begin(phase Phase) func(err error) {
	start := time.Now()
	return func(err error) {
		pt := PhaseTiming{Phase: phase, Duration: time.Since(start)}
		if err != nil {
			pt.Err = err.Error()
		}
		t.Phases = append(t.Phases, pt)
		observePhase(t.Op, phase, pt.Duration)
	}
}

func (t *Trace) finish(outcome Outcome) {
	t.Outcome = outcome
	t.total = time.Since(t.started)
}

// Total is the time from NewTrace until the outcome was decided.
func (t *Trace) Total() time.Duration {
	return t.total
}

// Has reports whether phase was entered.
func (t *Trace) Has(phase Phase) bool {
	for _, p := range t.Phases {
		if p.Phase == phase {
			return true
		}
	}
	return false
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (t *Trace) MarshalZerologObject(e *zerolog.Event) {
	e.Str("op", t.Op).Str("outcome", string(t.Outcome)).Dur("total", t.total)
	phases := zerolog.Dict()
	for _, p := range t.Phases {
		phases.Dur(string(p.Phase), p.Duration)
	}
	e.Dict("phases", phases)
	if len(t.Warnings) > 0 {
		e.Strs("warnings", t.Warnings)
	}
}
