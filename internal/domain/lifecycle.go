package domain

import "time"

// Status is the derived temporal availability of a quiz. It is recomputed
// on every read and never persisted.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
)

// StatusAt derives the quiz status at the given instant.
//
// An unpublished quiz is always a draft, whatever its schedule says.
// For published quizzes a future start wins over a past end; writes that
// would produce such a schedule are rejected upstream, so this order only
// matters for records that predate that check.
func StatusAt(q Quiz, now time.Time) Status {
	if !q.Published {
		return StatusDraft
	}
	if q.StartAt != nil && q.StartAt.After(now) {
		return StatusScheduled
	}
	if q.EndAt != nil && q.EndAt.Before(now) {
		return StatusEnded
	}
	return StatusActive
}
