package entity

import "time"

type EventKind string

const (
	KindNotify EventKind = "notify"
	KindDelete EventKind = "delete"
)

type EventState string

const (
	StatePending   EventState = "pending"
	StateFired     EventState = "fired"
	StateSkipped   EventState = "skipped"
	StateCancelled EventState = "cancelled"
)

// Terminal reports whether no further transition is allowed from this state.
func (s EventState) Terminal() bool {
	return s == StateFired || s == StateSkipped || s == StateCancelled
}

// Candidate is a tentative event produced by the expander, before filtering.
type Candidate struct {
	FireAt  time.Time
	Content string
	Kind    EventKind
	// DeleteAt, when set on a notify, schedules a transport-level delete of the
	// delivered message once its id is known.
	DeleteAt *time.Time
}

// Event is a persisted job.
type Event struct {
	ID            string     `json:"id"`
	ShiftID       string     `json:"shift_id,omitempty"`
	FireAt        time.Time  `json:"fire_at"`
	Content       string     `json:"content"`
	Kind          EventKind  `json:"kind"`
	TargetRef     string     `json:"target_ref,omitempty"`
	State         EventState `json:"state"`
	DeleteAt      *time.Time `json:"delete_at,omitempty"`
	MessageID     string     `json:"message_id,omitempty"`
	DeliveryError string     `json:"delivery_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
