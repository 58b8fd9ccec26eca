package mutation

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localnerve/jam-build-crm/internal/notify"
	"github.com/localnerve/jam-build-crm/internal/types"
)

type recordingSink struct {
	entries []notify.Entry
	err     error
}

func (s *recordingSink) Append(_ context.Context, e notify.Entry) (types.ObjectID, error) {
	if s.err != nil {
		return "", s.err
	}
	s.entries = append(s.entries, e)
	return types.NewObjectID(), nil
}

func created(id types.ObjectID) []notify.Entry {
	return []notify.Entry{{Details: "New lead created", Type: notify.TypeCreate, Ref: notify.LeadRef(id), CreatedBy: id}}
}

func TestRunPhaseOrder(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngine(sink, zerolog.Nop())
	var calls []string
	id := types.NewObjectID()

	out, trace, err := Run(context.Background(), engine, Op[types.ObjectID]{
		Name:      "lead.create",
		Validate:  func() []string { calls = append(calls, "validate"); return nil },
		Load:      func(context.Context) error { calls = append(calls, "load"); return nil },
		Authorize: func(context.Context) error { calls = append(calls, "authorize"); return nil },
		Primary: func(context.Context) (types.ObjectID, error) {
			calls = append(calls, "primary")
			return id, nil
		},
		Dependents: []Step[types.ObjectID]{{Name: "link", Run: func(context.Context, types.ObjectID) error {
			calls = append(calls, "link")
			return nil
		}}},
		Notify: created,
	})
	require.NoError(t, err)
	assert.Equal(t, id, out)
	assert.Equal(t, []string{"validate", "load", "authorize", "primary", "link"}, calls)
	assert.Len(t, sink.entries, 1)
	assert.Equal(t, OutcomeOK, trace.Outcome)

	var phases []Phase
	for _, p := range trace.Phases {
		phases = append(phases, p.Phase)
	}
	assert.Equal(t, []Phase{PhaseValidating, PhaseAuthorizing, PhaseMutatingPrimary, PhaseMutatingDependents, PhasePersistingNotification}, phases)
}

func TestRunValidationBatchesAndStops(t *testing.T) {
	loaded := false
	_, trace, err := Run(context.Background(), NewEngine(nil, zerolog.Nop()), Op[int]{
		Name:     "lead.create",
		Validate: func() []string { return []string{"Email is required", "Country is required"} },
		Load:     func(context.Context) error { loaded = true; return nil },
		Primary:  func(context.Context) (int, error) { t.Fatal("primary must not run"); return 0, nil },
	})
	var ce *types.CustomError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusBadRequest, ce.Code)
	assert.Equal(t, "Email is required, Country is required", ce.Message)
	assert.Equal(t, []string{"Email is required", "Country is required"}, ce.Messages)
	assert.False(t, loaded)
	assert.Equal(t, OutcomeValidationFailed, trace.Outcome)
}

func TestRunAuthorizationBeforeMutation(t *testing.T) {
	_, trace, err := Run(context.Background(), NewEngine(nil, zerolog.Nop()), Op[int]{
		Name:      "client.edit",
		Load:      func(context.Context) error { return nil },
		Authorize: func(context.Context) error { return types.AuthorizationError("not yours") },
		Primary:   func(context.Context) (int, error) { t.Fatal("primary must not run"); return 0, nil },
	})
	assert.True(t, types.IsKind(err, types.KindAuthorization))
	assert.Equal(t, OutcomeUnauthorized, trace.Outcome)
	assert.False(t, trace.Has(PhaseMutatingPrimary))
}

func TestRunLoadNotFound(t *testing.T) {
	_, trace, err := Run(context.Background(), NewEngine(nil, zerolog.Nop()), Op[int]{
		Name:    "client.edit",
		Load:    func(context.Context) error { return types.NotFoundError("Client not found") },
		Primary: func(context.Context) (int, error) { return 1, nil },
	})
	assert.True(t, types.IsKind(err, types.KindNotFound))
	assert.Equal(t, OutcomeNotFound, trace.Outcome)
}

func TestRunDependentFailureIsDependencyError(t *testing.T) {
	sink := &recordingSink{}
	primaryDone := false
	_, trace, err := Run(context.Background(), NewEngine(sink, zerolog.Nop()), Op[int]{
		Name:    "lead.create",
		Primary: func(context.Context) (int, error) { primaryDone = true; return 1, nil },
		Dependents: []Step[int]{
			{Name: "link service", Run: func(context.Context, int) error { return errors.New("service gone") }},
			{Name: "never", Run: func(context.Context, int) error { t.Fatal("later step must not run"); return nil }},
		},
		Notify: func(int) []notify.Entry { return created(types.NewObjectID()) },
	})
	var ce *types.CustomError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, types.KindDependency, ce.Type)
	assert.Equal(t, http.StatusInternalServerError, ce.Code)
	assert.Contains(t, ce.Message, "link service")
	assert.True(t, primaryDone)
	assert.Empty(t, sink.entries)
	assert.Equal(t, OutcomeDependencyFailed, trace.Outcome)
}

func TestRunBestEffortStepContinues(t *testing.T) {
	ran := false
	_, trace, err := Run(context.Background(), NewEngine(nil, zerolog.Nop()), Op[int]{
		Name:    "client.delete",
		Primary: func(context.Context) (int, error) { return 1, nil },
		Dependents: []Step[int]{
			{Name: "remove files", BestEffort: true, Run: func(context.Context, int) error { return errors.New("bucket down") }},
			{Name: "unlink service", Run: func(context.Context, int) error { ran = true; return nil }},
		},
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"remove files"}, trace.Warnings)
}

func TestRunNotificationFailureSwallowed(t *testing.T) {
	var buf bytes.Buffer
	sink := &recordingSink{err: errors.New("notifications table locked")}
	out, trace, err := Run(context.Background(), NewEngine(sink, zerolog.New(&buf)), Op[int]{
		Name:    "lead.delete.many",
		Primary: func(context.Context) (int, error) { return 3, nil },
		Notify:  func(int) []notify.Entry { return created(types.NewObjectID()) },
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out)
	assert.Equal(t, OutcomeOK, trace.Outcome)
	assert.Contains(t, trace.Warnings, string(PhasePersistingNotification))
	assert.Contains(t, buf.String(), "notification not persisted")
}

func TestTraceMarshal(t *testing.T) {
	var buf bytes.Buffer
	trace := NewTrace("faq.create")
	trace.Begin(PhaseValidating)(nil)
	trace.finish(OutcomeOK)
	logger := zerolog.New(&buf)
	logger.Info().Object("trace", trace).Msg("done")
	assert.Contains(t, buf.String(), `"op":"faq.create"`)
	assert.Contains(t, buf.String(), `"validating"`)
}

func TestSchemaCollectsAllMessages(t *testing.T) {
	msgs := NewSchema().
		Field("fullname", "Jo", Length(4, 100)).
		Field("email", "", Required("Email is required"), Email()).
		Field("country", "", Required("")).
		Field("leadSource", "Myspace", OneOf("Google", "Other")).
		Field("service", "xyz", ObjectID()).
		Check(false, "Custom failure").
		Validate()
	assert.Equal(t, []string{
		"Minimum characters required for fullname is 4",
		"Email is required",
		"Country is required",
		"Myspace is not supported",
		"Service is invalid",
		"Custom failure",
	}, msgs)

	assert.Empty(t, NewSchema().
		Field("email", " jane@x.com ", Required(""), Email()).
		Field("service", "", ObjectID()).
		Validate())
	assert.NotEmpty(t, NewSchema().Field("email", "nope", Email()).Validate())
}
