package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/hints"

	"github.com/localnerve/jam-build-crm/internal/types"
)

const (
	minDetails = 5
	maxDetails = 200
)

var (
	appended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crm",
		Subsystem: "notifications",
		Name:      "appended_total",
		Help:      "Notifications written by the sink.",
	})
	swept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crm",
		Subsystem: "notifications",
		Name:      "swept_total",
		Help:      "Notifications deleted by retention sweeps.",
	})
)

// Entry is the input of one append.
type Entry struct {
	Details   string
	Type      Type
	Ref       Ref
	CreatedBy types.ObjectID
}

// Validate returns every problem with e at once.
func (e Entry) Validate() []string {
	var msgs []string
	n := utf8.RuneCountInString(strings.TrimSpace(e.Details))
	switch {
	case n == 0:
		msgs = append(msgs, "Details is required")
	case n < minDetails:
		msgs = append(msgs, fmt.Sprintf("Minimum characters required for notification details is %d", minDetails))
	case n > maxDetails:
		msgs = append(msgs, fmt.Sprintf("Maximum characters required for notification details is %d", maxDetails))
	}
	if !e.Type.Valid() {
		msgs = append(msgs, fmt.Sprintf("%s is not supported", string(e.Type)))
	}
	if !e.Ref.Domain().Valid() {
		msgs = append(msgs, "Related model is required")
	}
	if e.CreatedBy.IsZero() {
		msgs = append(msgs, "Created by is required")
	}
	return msgs
}

// Sink appends notifications.
type Sink interface {
	Append(ctx context.Context, e Entry) (types.ObjectID, error)
}

// GormSink stores notifications with GORM and applies the retention policy on append.
type GormSink struct {
	db     *gorm.DB
	policy RetentionPolicy
	log    zerolog.Logger
	now    func() time.Time
}

// NewGormSink creates a sink over db.
func NewGormSink(db *gorm.DB, policy RetentionPolicy, log zerolog.Logger) *GormSink {
	return &GormSink{
		db:     db,
		policy: policy,
		log:    log.With().Str("component", "notify").Logger(),
		now:    time.Now,
	}
}

// WithClock replaces the time source used for cutoffs.
func (s *GormSink) WithClock(now func() time.Time) *GormSink {
	s.now = now
	return s
}

// Policy returns the retention policy in force.
func (s *GormSink) Policy() RetentionPolicy {
	return s.policy
}

// Append counts the table, sweeps when the ceiling is reached, then inserts e.
// The sweep and the insert are separate statements; a failed insert after a sweep
// keeps the sweep.
func (s *GormSink) Append(ctx context.Context, e Entry) (types.ObjectID, error) {
	if msgs := e.Validate(); len(msgs) > 0 {
		return "", types.ValidationError(msgs...)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Notification{}).Count(&count).Error; err != nil {
		return "", err
	}
	if s.policy.ShouldSweep(count) {
		if _, err := s.sweep(ctx); err != nil {
			return "", err
		}
	}

	n := &Notification{
		Details:        strings.TrimSpace(e.Details),
		Type:           e.Type,
		RelatedModel:   e.Ref.Domain(),
		RelatedModelID: e.Ref.ID().Ptr(),
		CreatedBy:      e.CreatedBy,
	}
	n.CreatedAt = s.now()
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return "", err
	}
	appended.Inc()
	return n.ID, nil
}

// Sweep deletes every notification older than the retention window, regardless of count.
func (s *GormSink) Sweep(ctx context.Context) (int64, error) {
	return s.sweep(ctx)
}

func (s *GormSink) sweep(ctx context.Context) (int64, error) {
	cutoff := s.policy.Cutoff(s.now())
	res := s.db.WithContext(ctx).
		Clauses(hints.CommentBefore("delete", "notification retention sweep")).
		Where("created_at < ?", cutoff).
		Delete(&Notification{})
	if res.Error != nil {
		return 0, res.Error
	}
	swept.Add(float64(res.RowsAffected))
	s.log.Info().Int64("deleted", res.RowsAffected).Time("cutoff", cutoff).Msg("notification retention sweep")
	return res.RowsAffected, nil
}
