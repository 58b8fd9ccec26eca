// engine.go
//
// A CRM data service built on the jam-build data service stack
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-crm.
// jam-build-crm is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-crm is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-crm.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package mutation

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/localnerve/jam-build-crm/internal/notify"
	"github.com/localnerve/jam-build-crm/internal/types"
)

var phaseSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "crm",
	Subsystem: "mutation",
	Name:      "phase_seconds",
	Help:      "Duration of each mutation phase.",
	Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
}, []string{"op", "phase"})

// Step is one dependent write. A BestEffort step logs its failure and lets the request
// continue; any other failing step ends the request with a DependencyError.
type Step[T any] struct {
	Name       string
	BestEffort bool
	Run        func(ctx context.Context, result T) error
}

// Op describes one mutating request. Every func is optional except Primary.
//
// Validate collects every message at once. Load reads the documents Authorize needs and
// runs in the authorizing phase, so nothing is written before both pass. Primary is the
// single authoritative write. Dependents run in order after it and are never rolled back.
// Notify builds the activity entries for a successful result.
type Op[T any] struct {
	Name       string
	Validate   func() []string
	Load       func(ctx context.Context) error
	Authorize  func(ctx context.Context) error
	Primary    func(ctx context.Context) (T, error)
	Dependents []Step[T]
	Notify     func(result T) []notify.Entry
}

// Engine runs Ops against a notification sink.
type Engine struct {
	sink notify.Sink
	log  zerolog.Logger
}

// NewEngine creates an engine. A nil sink disables notifications.
func NewEngine(sink notify.Sink, log zerolog.Logger) *Engine {
	return &Engine{sink: sink, log: log.With().Str("component", "mutation").Logger()}
}

// Run executes op phase by phase. The returned trace is complete for every outcome.
func Run[T any](ctx context.Context, e *Engine, op Op[T]) (T, *Trace, error) {
	var zero T
	trace := NewTrace(op.Name)

	if op.Validate != nil {
		done := trace.Begin(PhaseValidating)
		msgs := op.Validate()
		if len(msgs) > 0 {
			err := types.ValidationError(msgs...)
			done(err)
			trace.finish(OutcomeValidationFailed)
			return zero, trace, err
		}
		done(nil)
	}

	if op.Load != nil || op.Authorize != nil {
		done := trace.Begin(PhaseAuthorizing)
		err := callOptional(ctx, op.Load)
		if err == nil {
			err = callOptional(ctx, op.Authorize)
		}
		done(err)
		if err != nil {
			trace.finish(rejectOutcome(err))
			return zero, trace, err
		}
	}

	done := trace.Begin(PhaseMutatingPrimary)
	result, err := op.Primary(ctx)
	done(err)
	if err != nil {
		trace.finish(rejectOutcome(err))
		return zero, trace, err
	}

	if len(op.Dependents) > 0 {
		done := trace.Begin(PhaseMutatingDependents)
		for _, step := range op.Dependents {
			if err := step.Run(ctx, result); err != nil {
				if step.BestEffort {
					e.log.Warn().Err(err).Str("op", op.Name).Str("step", step.Name).Msg("best effort dependent step failed")
					trace.Warnings = append(trace.Warnings, step.Name)
					continue
				}
				derr := types.DependencyError(step.Name, err)
				done(derr)
				trace.finish(OutcomeDependencyFailed)
				e.log.Error().Err(err).Str("op", op.Name).Str("step", step.Name).Msg("dependent write failed after primary write")
				return zero, trace, derr
			}
		}
		done(nil)
	}

	if op.Notify != nil && e.sink != nil {
		done := trace.Begin(PhasePersistingNotification)
		var failed error
		for _, entry := range op.Notify(result) {
			if _, err := e.sink.Append(ctx, entry); err != nil {
				failed = err
				e.log.Warn().Err(err).Str("op", op.Name).Str("ref", entry.Ref.String()).Msg("notification not persisted")
			}
		}
		done(failed)
		if failed != nil {
			trace.Warnings = append(trace.Warnings, string(PhasePersistingNotification))
		}
	}

	trace.finish(OutcomeOK)
	return result, trace, nil
}

func callOptional(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func rejectOutcome(err error) Outcome {
	switch {
	case types.IsKind(err, types.KindValidation):
		return OutcomeValidationFailed
	case types.IsKind(err, types.KindAuthentication), types.IsKind(err, types.KindAuthorization):
		return OutcomeUnauthorized
	case types.IsKind(err, types.KindNotFound):
		return OutcomeNotFound
	}
	return OutcomeFailed
}

func observePhase(op string, phase Phase, d time.Duration) {
	phaseSeconds.WithLabelValues(op, string(phase)).Observe(d.Seconds())
}
