package domain

import "time"

// Status is the lifecycle state of a scheduled job
type Status string

// Job status constants
const (
	StatusPending    Status = "pending"
	StatusPublishing Status = "publishing"
	StatusPosted     Status = "posted"
	StatusCreating   Status = "creating"
	StatusCreated    Status = "created"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Job kinds, used in outcome events and logs
const (
	KindCast = "cast"
	KindCoin = "coin"
)

// DueTolerance is how far in the past a due time may be and still be accepted.
// It absorbs clock and network skew between client and server.
const DueTolerance = 1000 * time.Millisecond

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPosted, StatusCreated, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPublishing, StatusPosted, StatusCreating, StatusCreated, StatusFailed, StatusCanceled:
		return true
	}
	return false
}
