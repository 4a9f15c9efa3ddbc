package entity

import "time"

// Shift is one worker's shift declaration. It is immutable once submitted.
type Shift struct {
	ID             string   `json:"id,omitempty" yaml:"-"`
	ShiftType      string   `json:"shiftType" yaml:"shiftType" validate:"required,oneof=morning afternoon"`
	ShiftOrder     string   `json:"shiftOrder" yaml:"shiftOrder" validate:"required,oneof=1 2 3"`
	TaskType       string   `json:"taskType" yaml:"taskType" validate:"required,oneof=recycling cleaning none"`
	MorningTimes   []string `json:"morningTimes,omitempty" yaml:"morningTimes" validate:"required_if=ShiftType morning,dive,numeric"`
	ShiftTimeRange string   `json:"shiftTimeRange,omitempty" yaml:"shiftTimeRange" validate:"omitempty,oneof=13-16 14-16"`

	// Proportional slot variant. All four must be present for it to apply.
	ShiftStart *int `json:"shiftStart,omitempty" yaml:"shiftStart"`
	ShiftEnd   *int `json:"shiftEnd,omitempty" yaml:"shiftEnd"`
	NumPeople  *int `json:"numPeople,omitempty" yaml:"numPeople"`
	MyOrder    *int `json:"myOrder,omitempty" yaml:"myOrder"`

	SubmittedAt time.Time `json:"submittedAt,omitempty" yaml:"-"`
}

// HasProportionalSlot reports whether every proportional slot field is set.
func (s *Shift) HasProportionalSlot() bool {
	return s.ShiftStart != nil && s.ShiftEnd != nil && s.NumPeople != nil && s.MyOrder != nil
}

// HasAnyProportionalField reports whether at least one proportional slot field is set.
func (s *Shift) HasAnyProportionalField() bool {
	return s.ShiftStart != nil || s.ShiftEnd != nil || s.NumPeople != nil || s.MyOrder != nil
}

// SubmitResult is what a submission reports back synchronously.
type SubmitResult struct {
	ShiftID       string   `json:"shift_id"`
	Scheduled     int      `json:"scheduled"`
	Dropped       int      `json:"dropped"`
	SlotScheduled bool     `json:"slot_scheduled"`
	SkippedReason string   `json:"skipped_reason,omitempty"`
	Events        []*Event `json:"events"`
}

// Status is the read projection behind /status.
type Status struct {
	Shift         *Shift         `json:"shift,omitempty"`
	Pending       int            `json:"pending"`
	Counts        map[string]int `json:"counts"`
	LastDelivered *Event         `json:"last_delivered,omitempty"`
	NextEvent     *Event         `json:"next_event,omitempty"`
}
