// Package duty implements the duty-leave approval workflow on a single
// attendance record. Requests start from an absence, can be approved into a
// duty leave that counts toward attendance, and can be cancelled back to a
// plain absence at either stage.
package duty

import (
	"errors"
	"strings"
	"time"

	"classtrack/internal/domain"
)

var (
	ErrNotAbsent     = errors.New("duty leave can only be requested for an absence")
	ErrNoPendingDuty = errors.New("no pending duty request to approve")
	ErrNoDutyRequest = errors.New("no duty request to cancel")
)

// State is the workflow position derived from a record's fields.
type State string

const (
	StatePresent      State = "present"
	StateAbsent       State = "absent"
	StatePendingDuty  State = "pending-duty"
	StateApprovedDuty State = "approved-duty"
)

// StateOf derives the workflow state from the record's status and duty flags.
func StateOf(r domain.AttendanceRecord) State {
	switch {
	case r.Status == domain.StatusPresent:
		return StatePresent
	case r.Status == domain.StatusDutyLeave && r.DutyApproved:
		return StateApprovedDuty
	case r.Status == domain.StatusAbsent && r.DutyRequested:
		return StatePendingDuty
	default:
		return StateAbsent
	}
}

// Request moves an absence to pending duty. The reason is required and is
// kept on the record so approval and any later re-request carry it forward.
func Request(r *domain.AttendanceRecord, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.ErrReasonRequired
	}
	if StateOf(*r) != StateAbsent {
		return ErrNotAbsent
	}
	r.DutyRequested = true
	r.DutyApproved = false
	r.DutyReason = reason
	r.UpdatedAt = now
	return nil
}

// Approve moves a pending request to approved duty leave, carrying the
// stored reason forward.
func Approve(r *domain.AttendanceRecord, now time.Time) error {
	if StateOf(*r) != StatePendingDuty {
		return ErrNoPendingDuty
	}
	r.Status = domain.StatusDutyLeave
	r.DutyApproved = true
	r.UpdatedAt = now
	return nil
}

// Cancel reverts a pending or approved duty request to a plain absence,
// clearing all duty fields.
func Cancel(r *domain.AttendanceRecord, now time.Time) error {
	state := StateOf(*r)
	if state != StatePendingDuty && state != StateApprovedDuty {
		return ErrNoDutyRequest
	}
	r.Status = domain.StatusAbsent
	r.DutyRequested = false
	r.DutyApproved = false
	r.DutyReason = ""
	r.UpdatedAt = now
	return nil
}

// Mark sets the record to the given plain status (present or absent). Moving
// to present clears duty flags; moving to absent leaves any pending request
// in place.
func Mark(r *domain.AttendanceRecord, status domain.Status, now time.Time) error {
	if status != domain.StatusPresent && status != domain.StatusAbsent {
		return domain.ErrInvalidStatus
	}
	r.Status = status
	if status == domain.StatusPresent {
		r.DutyRequested = false
		r.DutyApproved = false
		r.DutyReason = ""
	} else {
		r.DutyApproved = false
	}
	r.UpdatedAt = now
	return nil
}
