package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/domain"
	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
)

// ExpandOptions tunes how a shift is expanded.
type ExpandOptions struct {
	// NativeDelete is true when the transport can delete a sent message. The
	// acknowledgment then gets a follow-up delete instead of a retraction notice.
	NativeDelete bool

	// Location is the wall-clock zone of the shift. Defaults to now's location.
	Location *time.Location
}

// Plan is the expansion of one shift declaration.
type Plan struct {
	Candidates    []entity.Candidate
	SlotScheduled bool
	SkippedReason string
}

// Expand turns a shift declaration into candidate events. It has no side
// effects and returns the same plan for the same (shift, now, opts).
func Expand(shift *entity.Shift, now time.Time, opts ExpandOptions) *Plan {
	loc := opts.Location
	if loc == nil {
		loc = now.Location()
	}
	day := now.In(loc)

	plan := &Plan{}
	add := func(at time.Time, content string) {
		plan.Candidates = append(plan.Candidates, entity.Candidate{
			FireAt:  at,
			Content: content,
			Kind:    entity.KindNotify,
		})
	}

	ack := formatAcknowledgment(shift)
	deadline, hasDeadline := domain.RetractionDeadlines[shift.ShiftType]
	ackCandidate := entity.Candidate{FireAt: day.Truncate(time.Minute), Content: ack, Kind: entity.KindNotify}
	if hasDeadline && opts.NativeDelete {
		deleteAt := clockAt(day, deadline)
		ackCandidate.DeleteAt = &deleteAt
	}
	plan.Candidates = append(plan.Candidates, ackCandidate)

	switch shift.ShiftType {
	case domain.ShiftMorning:
		for _, mark := range shift.MorningTimes {
			h, err := strconv.Atoi(strings.TrimSpace(mark))
			if err != nil || h < 0 || h > 23 {
				continue
			}
			add(at(day, h-1, 60-domain.AlarmLeadMinutes), fmt.Sprintf("⏰ Your %02d:00 slot starts in %d minutes", h, domain.AlarmLeadMinutes))
			add(at(day, h, 60-domain.AlarmLeadMinutes), fmt.Sprintf("⏰ Your %02d:00 slot ends in %d minutes", h, domain.AlarmLeadMinutes))
		}

	case domain.ShiftAfternoon:
		if pairs, ok := domain.HandoffTable[shift.ShiftOrder]; ok {
			for _, p := range pairs {
				add(at(day, p.Start-1, 60-domain.AlarmLeadMinutes), fmt.Sprintf("🔁 Hand-off at %02d:00, your turn starts", p.Start))
				add(at(day, p.End-1, 60-domain.AlarmLeadMinutes), fmt.Sprintf("🔁 Hand-off at %02d:00, your turn ends", p.End))
			}
		}
		slotCandidates, reason := expandSlot(shift, day)
		plan.Candidates = append(plan.Candidates, slotCandidates...)
		plan.SlotScheduled = len(slotCandidates) > 0
		plan.SkippedReason = reason
	}

	if shift.ShiftOrder != domain.NoExtraDutyOrder {
		if t, ok := domain.TaskAlarmTimes[shift.TaskType]; ok {
			add(clockAt(day, t), fmt.Sprintf("%s %s duty at %02d:%02d", taskIcon(shift.TaskType), domain.TaskNames[shift.TaskType], t.Hour, t.Minute))
		}
	}

	if t, ok := domain.LeaveTimes[shift.ShiftType]; ok {
		add(clockAt(day, t), fmt.Sprintf("🏁 Shift over at %02d:%02d, time to leave", t.Hour, t.Minute))
	}

	if hasDeadline && !opts.NativeDelete {
		add(clockAt(day, deadline), domain.RetractedPrefix+ack)
	}

	return plan
}

// expandSlot returns the pre-shift slot alarms of an afternoon shift, or the
// reason no slot was scheduled.
func expandSlot(shift *entity.Shift, day time.Time) ([]entity.Candidate, string) {
	if shift.HasProportionalSlot() {
		start, end, err := proportionalWindow(*shift.ShiftStart, *shift.ShiftEnd, *shift.NumPeople, *shift.MyOrder, day)
		if err != nil {
			return nil, err.Error()
		}
		lead := time.Duration(domain.AlarmLeadMinutes) * time.Minute
		span := fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
		return []entity.Candidate{
			{FireAt: start.Add(-lead).Truncate(time.Minute), Content: fmt.Sprintf("🕐 Your slot %s starts in %d minutes", span, domain.AlarmLeadMinutes), Kind: entity.KindNotify},
			{FireAt: end.Add(-lead).Truncate(time.Minute), Content: fmt.Sprintf("🕐 Your slot %s ends in %d minutes", span, domain.AlarmLeadMinutes), Kind: entity.KindNotify},
		}, ""
	}
	if shift.HasAnyProportionalField() {
		return nil, "proportional slot fields incomplete: shiftStart, shiftEnd, numPeople and myOrder are all required"
	}
	if shift.ShiftTimeRange == "" {
		return nil, "no shift time range given"
	}

	windows, ok := domain.SlotWindows[shift.ShiftTimeRange]
	if !ok {
		return nil, fmt.Sprintf("unknown shift time range %q", shift.ShiftTimeRange)
	}
	idx, err := strconv.Atoi(shift.ShiftOrder)
	if err != nil || idx < 1 || idx > len(windows) {
		return nil, fmt.Sprintf("no slot for shift order %q", shift.ShiftOrder)
	}
	w := windows[idx-1]
	span := fmt.Sprintf("%s-%s", formatMinutes(w.Start), formatMinutes(w.End))
	return []entity.Candidate{
		{FireAt: at(day, 0, w.Start-domain.SlotLeadMinutes), Content: fmt.Sprintf("🕐 Pre-shift slot %s starts in %d minute", span, domain.SlotLeadMinutes), Kind: entity.KindNotify},
		{FireAt: at(day, 0, w.End-domain.SlotLeadMinutes), Content: fmt.Sprintf("🕐 Pre-shift slot %s ends in %d minute", span, domain.SlotLeadMinutes), Kind: entity.KindNotify},
	}, ""
}

// proportionalWindow divides [shiftStart, shiftEnd) hours evenly between
// numPeople and returns the window of the myOrder-th person.
func proportionalWindow(shiftStart, shiftEnd, numPeople, myOrder int, day time.Time) (time.Time, time.Time, error) {
	switch {
	case shiftStart < 0 || shiftEnd > 24:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid proportional slot: hours must be within 0-24")
	case shiftStart >= shiftEnd:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid proportional slot: shiftStart must be before shiftEnd")
	case numPeople <= 0:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid proportional slot: numPeople must be positive")
	case myOrder <= 0 || myOrder > numPeople:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid proportional slot: myOrder must be between 1 and numPeople")
	}

	// Offsets are wall-clock seconds from midnight, so a DST change inside
	// the shift does not shift the window.
	span := (shiftEnd - shiftStart) * 3600
	startSec := shiftStart*3600 + span*(myOrder-1)/numPeople
	endSec := shiftStart*3600 + span*myOrder/numPeople
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, startSec, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, endSec, 0, day.Location())
	return start, end, nil
}

// at builds a wall-clock time on day's date. Out of range hours or minutes
// roll over into the neighbouring day.
func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func clockAt(day time.Time, t domain.ClockTime) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+t.DayOffset, t.Hour, t.Minute, 0, 0, day.Location())
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func taskIcon(taskType string) string {
	switch taskType {
	case domain.TaskRecycling:
		return "♻️"
	case domain.TaskCleaning:
		return "🧹"
	default:
		return "📌"
	}
}

func formatAcknowledgment(shift *entity.Shift) string {
	var b strings.Builder
	b.WriteString("✅ Shift registered\n")
	b.WriteString(fmt.Sprintf("Type: %s\n", shift.ShiftType))
	b.WriteString(fmt.Sprintf("Order: %s\n", shift.ShiftOrder))

	task := domain.TaskNames[shift.TaskType]
	if task == "" {
		task = shift.TaskType
	}
	b.WriteString(fmt.Sprintf("Task: %s", task))

	if len(shift.MorningTimes) > 0 {
		b.WriteString(fmt.Sprintf("\nMorning times: %s", strings.Join(shift.MorningTimes, ", ")))
	}
	if shift.ShiftTimeRange != "" {
		b.WriteString(fmt.Sprintf("\nTime range: %s", shift.ShiftTimeRange))
	}
	if shift.HasProportionalSlot() {
		b.WriteString(fmt.Sprintf("\nPre-shift pool: %d/%d (%02d:00-%02d:00)", *shift.MyOrder, *shift.NumPeople, *shift.ShiftStart, *shift.ShiftEnd))
	}
	return b.String()
}
