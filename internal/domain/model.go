package domain

import (
	"errors"
	"fmt"
	"time"
)

// Validation failures are rejected before any state change.
var (
	ErrRequiredAttendanceRange = errors.New("required attendance must be between 0 and 100")
	ErrSubjectNameRequired     = errors.New("subject name required")
	ErrInvalidDayOfWeek        = errors.New("day of week must be 0 (Sunday) through 6 (Saturday)")
	ErrInvalidDuration         = errors.New("duration hours must be between 1 and 4")
	ErrInvalidTimeRange        = errors.New("slot end time must be after start time")
	ErrSlotOverlap             = errors.New("lecture slots on the same day must not overlap")
	ErrInvalidStatus           = errors.New("invalid attendance status")
	ErrReasonRequired          = errors.New("duty leave reason required")
)

// DefaultRequiredAttendance is applied when a subject does not set its own
// threshold.
const DefaultRequiredAttendance = 75.0

// Status is the recorded outcome for one class on one date.
type Status string

const (
	StatusPresent   Status = "present"
	StatusAbsent    Status = "absent"
	StatusDutyLeave Status = "duty-leave"
)

// IsValid reports whether the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusDutyLeave:
		return true
	default:
		return false
	}
}

// CountsAsAttended reports whether the status counts toward attendance.
// Approved duty leave counts; a plain absence does not.
func (s Status) CountsAsAttended() bool {
	return s == StatusPresent || s == StatusDutyLeave
}

// Subject is a tracked course with a required attendance threshold.
// InitialHoursHeld/InitialHoursAttended are legacy carry-over counts from
// before per-slot tracking; they offset every derived statistic.
type Subject struct {
	ID                    ID        `json:"id"`
	Name                  string    `json:"name"`
	RequiredAttendance    float64   `json:"required_attendance"`
	InitialHoursHeld      int       `json:"initial_hours_held"`
	InitialHoursAttended  int       `json:"initial_hours_attended"`
	StartMonth            string    `json:"start_month,omitempty"` // "YYYY-MM"
	EndMonth              string    `json:"end_month,omitempty"`   // "YYYY-MM"
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Validate checks subject invariants.
func (s Subject) Validate() error {
	if s.Name == "" {
		return ErrSubjectNameRequired
	}
	if s.RequiredAttendance < 0 || s.RequiredAttendance > 100 {
		return ErrRequiredAttendanceRange
	}
	return nil
}

// ExpiredAt reports whether the subject's validity ended before the given
// year-month. Lexicographic comparison is safe for the fixed "YYYY-MM" form.
func (s Subject) ExpiredAt(currentMonth string) bool {
	return s.EndMonth != "" && s.EndMonth < currentMonth
}

// LectureSlot is a recurring weekly time window belonging to a subject.
type LectureSlot struct {
	ID            ID     `json:"id"`
	SubjectID     ID     `json:"subject_id"`
	DayOfWeek     int    `json:"day_of_week"` // 0=Sunday .. 6=Saturday
	StartTime     string `json:"start_time"`  // "HH:mm"
	EndTime       string `json:"end_time"`    // "HH:mm"
	DurationHours int    `json:"duration_hours"`
}

// Validate checks slot invariants.
func (l LectureSlot) Validate() error {
	if l.DayOfWeek < 0 || l.DayOfWeek > 6 {
		return ErrInvalidDayOfWeek
	}
	if l.DurationHours < 1 || l.DurationHours > 4 {
		return ErrInvalidDuration
	}
	if _, err := parseClock(l.StartTime); err != nil {
		return fmt.Errorf("start time: %w", err)
	}
	if _, err := parseClock(l.EndTime); err != nil {
		return fmt.Errorf("end time: %w", err)
	}
	start, _ := parseClock(l.StartTime)
	end, _ := parseClock(l.EndTime)
	if end <= start {
		return ErrInvalidTimeRange
	}
	return nil
}

// Overlaps reports whether two slots on the same day share any time.
// Half-open intervals: back-to-back slots do not overlap.
func (l LectureSlot) Overlaps(other LectureSlot) bool {
	if l.DayOfWeek != other.DayOfWeek {
		return false
	}
	aStart, _ := parseClock(l.StartTime)
	aEnd, _ := parseClock(l.EndTime)
	bStart, _ := parseClock(other.StartTime)
	bEnd, _ := parseClock(other.EndTime)
	return aStart < bEnd && bStart < aEnd
}

// ValidateSlotSet validates every slot and rejects same-day overlaps within
// one subject's weekly schedule.
func ValidateSlotSet(slots []LectureSlot) error {
	for i, s := range slots {
		if err := s.Validate(); err != nil {
			return err
		}
		for j := 0; j < i; j++ {
			if s.Overlaps(slots[j]) {
				return ErrSlotOverlap
			}
		}
	}
	return nil
}

// parseClock converts "HH:mm" to minutes since midnight.
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// AttendanceRecord is the outcome for one subject (and optionally one slot)
// on one date. The (subject, date) or (slot, date) pair is an upsert key,
// not an append log.
type AttendanceRecord struct {
	ID            ID        `json:"id"`
	SubjectID     ID        `json:"subject_id"`
	LectureSlotID ID        `json:"lecture_slot_id,omitempty"` // zero for legacy per-day records
	Date          string    `json:"date"`                      // "YYYY-MM-DD"
	Status        Status    `json:"status"`
	HoursLogged   int       `json:"hours_logged"`
	DutyRequested bool      `json:"duty_requested"`
	DutyApproved  bool      `json:"duty_approved"`
	DutyReason    string    `json:"duty_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks record invariants, including the duty-leave coupling:
// a duty-leave status is only legal once approved.
func (r AttendanceRecord) Validate() error {
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	if r.Status == StatusDutyLeave && !r.DutyApproved {
		return errors.New("duty-leave status requires approval")
	}
	return nil
}

// SameOccurrence reports whether two records describe the same class
// occurrence: same subject and date, and same slot when both carry one.
func (r AttendanceRecord) SameOccurrence(other AttendanceRecord) bool {
	if r.SubjectID.String() != other.SubjectID.String() || r.Date != other.Date {
		return false
	}
	if r.LectureSlotID.IsZero() || other.LectureSlotID.IsZero() {
		return r.LectureSlotID.IsZero() == other.LectureSlotID.IsZero()
	}
	return r.LectureSlotID.String() == other.LectureSlotID.String()
}

// CurrentMonth returns the "YYYY-MM" string for the given time.
func CurrentMonth(t time.Time) string {
	return t.Format("2006-01")
}
