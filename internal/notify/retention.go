package notify

import "time"

// RetentionPolicy decides when an append sweeps old notifications. Once the table holds
// Ceiling rows, the next append deletes every row created before now minus Window.
type RetentionPolicy struct {
	Ceiling int64
	Window  time.Duration
}

// ShouldSweep reports whether an append seeing count existing rows must sweep first.
func (p RetentionPolicy) ShouldSweep(count int64) bool {
	return p.Ceiling > 0 && count >= p.Ceiling
}

// Cutoff is the creation time rows must not precede to survive a sweep.
func (p RetentionPolicy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.Window)
}
