// Package calc derives attendance statistics and advice from records.
// Everything here is pure: callers aggregate, calc never mutates.
package calc

import (
	"errors"
	"fmt"
	"math"

	"classtrack/internal/domain"
)

// ErrThresholdRange rejects advice thresholds outside the percentage range.
var ErrThresholdRange = errors.New("threshold must be between 0 and 100")

// SubjectAttendanceData is the per-subject derived view. Recomputed on every
// query, never persisted.
type SubjectAttendanceData struct {
	SubjectID                    domain.ID
	SubjectName                  string
	ClassesHeld                  int
	ClassesAttended              int
	PhysicalClassesAttended      int
	AttendancePercentage         float64
	PhysicalAttendancePercentage float64
	RequiredAttendance           float64
	IsAtRisk                     bool
}

// AttendanceStats aggregates per-subject quantities across all subjects.
// Summing the per-subject counts (rather than re-deriving from a flat record
// count) keeps each subject's legacy initial offsets correct.
type AttendanceStats struct {
	TotalClassesHeld     int
	TotalClassesAttended int
	OverallPercentage    float64
	SubjectsAtRisk       int
	Subjects             []SubjectAttendanceData
}

// ForSubject computes the derived view for one subject over its records.
// Records for other subjects are ignored, so callers may pass the full list.
func ForSubject(subject domain.Subject, records []domain.AttendanceRecord) SubjectAttendanceData {
	held := subject.InitialHoursHeld
	attended := subject.InitialHoursAttended
	physical := subject.InitialHoursAttended

	for _, r := range records {
		if r.SubjectID.String() != subject.ID.String() {
			continue
		}
		held++
		if r.Status.CountsAsAttended() {
			attended++
		}
		if r.Status == domain.StatusPresent {
			physical++
		}
	}

	data := SubjectAttendanceData{
		SubjectID:               subject.ID,
		SubjectName:             subject.Name,
		ClassesHeld:             held,
		ClassesAttended:         attended,
		PhysicalClassesAttended: physical,
		RequiredAttendance:      subject.RequiredAttendance,
	}
	data.AttendancePercentage = percentage(attended, held)
	data.PhysicalAttendancePercentage = percentage(physical, held)
	data.IsAtRisk = data.AttendancePercentage < subject.RequiredAttendance
	return data
}

// Overall aggregates stats across all subjects.
func Overall(subjects []domain.Subject, records []domain.AttendanceRecord) AttendanceStats {
	stats := AttendanceStats{}
	for _, s := range subjects {
		data := ForSubject(s, records)
		stats.TotalClassesHeld += data.ClassesHeld
		stats.TotalClassesAttended += data.ClassesAttended
		if data.IsAtRisk {
			stats.SubjectsAtRisk++
		}
		stats.Subjects = append(stats.Subjects, data)
	}
	stats.OverallPercentage = percentage(stats.TotalClassesAttended, stats.TotalClassesHeld)
	return stats
}

func percentage(attended, held int) float64 {
	if held <= 0 {
		return 0
	}
	return float64(attended) / float64(held) * 100
}

// Advice recommends how many upcoming classes can be skipped, or must be
// attended, relative to the threshold. ClassesPerWeek only shapes the
// message, never the arithmetic.
type Advice struct {
	CurrentPercentage float64
	IsAboveThreshold  bool
	ClassesToSkip     int
	ClassesToAttend   int
	Message           string
}

// Advise computes skip/attend counts for the given attendance position.
func Advise(attended, totalHeld int, threshold float64, classesPerWeek int) (Advice, error) {
	if threshold < 0 || threshold > 100 {
		return Advice{}, ErrThresholdRange
	}

	adv := Advice{CurrentPercentage: percentage(attended, totalHeld)}

	if totalHeld == 0 {
		// 0% meets only a zero threshold; the flag follows the same
		// comparison as the populated case.
		adv.IsAboveThreshold = adv.CurrentPercentage >= threshold
		adv.Message = "No classes recorded yet - nothing to advise."
		return adv, nil
	}

	adv.IsAboveThreshold = adv.CurrentPercentage >= threshold

	switch {
	case adv.IsAboveThreshold && threshold > 0:
		// Largest n with attended/(totalHeld+n) still >= threshold.
		adv.ClassesToSkip = int(math.Floor(float64(attended)*100/threshold - float64(totalHeld)))
		if adv.ClassesToSkip < 0 {
			adv.ClassesToSkip = 0
		}
		adv.Message = skipMessage(adv.ClassesToSkip, classesPerWeek)
	case adv.IsAboveThreshold:
		// Threshold 0: any position satisfies it indefinitely.
		adv.Message = "Your target is 0% - attendance is always on track."
	case threshold >= 100:
		// Already short of a 100% target: no streak can recover a miss
		// that is already in the denominator.
		adv.Message = "A 100% target can no longer be reached - a missed class is already on record."
	default:
		// Smallest n with (attended+n)/(totalHeld+n) >= threshold.
		frac := threshold / 100
		need := math.Ceil((frac*float64(totalHeld) - float64(attended)) / (1 - frac))
		adv.ClassesToAttend = int(need)
		if adv.ClassesToAttend < 0 {
			adv.ClassesToAttend = 0
		}
		adv.Message = attendMessage(adv.ClassesToAttend, classesPerWeek)
	}

	return adv, nil
}

func skipMessage(n, perWeek int) string {
	if n == 0 {
		return "You are on the line - attend the next class to stay above target."
	}
	if perWeek > 0 && n >= perWeek {
		return fmt.Sprintf("You can skip %d more classes (about %d week(s) worth) and stay above target.", n, n/perWeek)
	}
	return fmt.Sprintf("You can skip %d more class(es) and stay above target.", n)
}

func attendMessage(n, perWeek int) string {
	if n == 0 {
		return "You are at target - keep attending."
	}
	if perWeek > 0 && n >= perWeek {
		return fmt.Sprintf("Attend the next %d classes (about %d week(s) worth) to reach target.", n, n/perWeek)
	}
	return fmt.Sprintf("Attend the next %d class(es) to reach target.", n)
}
