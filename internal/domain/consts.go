package domain

// Shift types
const (
	ShiftMorning   = "morning"
	ShiftAfternoon = "afternoon"
)

// Task types
const (
	TaskRecycling = "recycling"
	TaskCleaning  = "cleaning"
	TaskNone      = "none"
)

// NoExtraDutyOrder is the ordinal that never gets a recycling/cleaning alarm.
const NoExtraDutyOrder = "3"

// AlarmLeadMinutes is how long before a hand-off boundary the alarm fires.
const AlarmLeadMinutes = 6

// SlotLeadMinutes is the lead used by the fine-grained slot windows.
const SlotLeadMinutes = 1

// RetractedPrefix marks a retraction notification.
const RetractedPrefix = "[RETRACTED] "

// ClockTime is an hour/minute on the shift day. DayOffset moves it to the next (1) or previous (-1) day.
type ClockTime struct {
	Hour      int
	Minute    int
	DayOffset int
}

// HourPair is a (start, end) hour pair of a hand-off rotation.
type HourPair struct {
	Start int
	End   int
}

// MinuteWindow is a [Start, End) window in minutes from midnight.
type MinuteWindow struct {
	Start int
	End   int
}

// HandoffTable maps an afternoon shift order to its two hand-off hours.
var HandoffTable = map[string][2]HourPair{
	"1": {{Start: 16, End: 17}, {Start: 19, End: 20}},
	"2": {{Start: 17, End: 18}, {Start: 20, End: 21}},
	"3": {{Start: 18, End: 19}, {Start: 21, End: 22}},
}

// Time range discriminators for the pre-shift slot windows
const (
	TimeRange1316 = "13-16"
	TimeRange1416 = "14-16"
)

// SlotWindows maps a shiftTimeRange discriminator to its three pre-shift windows, indexed by order-1.
var SlotWindows = map[string][3]MinuteWindow{
	TimeRange1316: {
		{Start: 13 * 60, End: 14 * 60},
		{Start: 14 * 60, End: 15 * 60},
		{Start: 15 * 60, End: 16 * 60},
	},
	TimeRange1416: {
		{Start: 14 * 60, End: 14*60 + 40},
		{Start: 14*60 + 40, End: 15*60 + 20},
		{Start: 15*60 + 20, End: 16 * 60},
	},
}

// TaskAlarmTimes is when the extra duty reminder fires.
var TaskAlarmTimes = map[string]ClockTime{
	TaskRecycling: {Hour: 20, Minute: 0},
	TaskCleaning:  {Hour: 20, Minute: 30},
}

// LeaveTimes is the end-of-shift reminder per shift type.
var LeaveTimes = map[string]ClockTime{
	ShiftMorning:   {Hour: 15, Minute: 0},
	ShiftAfternoon: {Hour: 22, Minute: 0},
}

// RetractionDeadlines is when the acknowledgment gets retracted (or deleted) per shift type.
var RetractionDeadlines = map[string]ClockTime{
	ShiftMorning:   {Hour: 15, Minute: 30},
	ShiftAfternoon: {Hour: 0, Minute: 55, DayOffset: 1},
}

// ValidOrders lists the accepted shift orders.
var ValidOrders = []string{"1", "2", "3"}

// TaskNames maps task types to a display label
var TaskNames = map[string]string{
	TaskRecycling: "Recycling",
	TaskCleaning:  "Cleaning",
	TaskNone:      "None",
}
