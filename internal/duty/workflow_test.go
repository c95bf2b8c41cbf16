package duty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/domain"
)

func absentRecord() domain.AttendanceRecord {
	return domain.AttendanceRecord{
		ID:        domain.RemoteID("r1"),
		SubjectID: domain.RemoteID("s1"),
		Date:      "2026-02-10",
		Status:    domain.StatusAbsent,
	}
}

func TestRequestApproveCancelRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	rec := absentRecord()

	require.NoError(t, Request(&rec, "medical camp", now))
	assert.Equal(t, StatePendingDuty, StateOf(rec))
	assert.Equal(t, "medical camp", rec.DutyReason)

	require.NoError(t, Approve(&rec, now))
	assert.Equal(t, StateApprovedDuty, StateOf(rec))
	assert.Equal(t, domain.StatusDutyLeave, rec.Status)
	assert.Equal(t, "medical camp", rec.DutyReason) // reason carried forward
	assert.NoError(t, rec.Validate())

	require.NoError(t, Cancel(&rec, now))
	assert.Equal(t, StateAbsent, StateOf(rec))
	assert.Equal(t, domain.StatusAbsent, rec.Status)
	assert.False(t, rec.DutyRequested)
	assert.False(t, rec.DutyApproved)
	assert.Empty(t, rec.DutyReason)
}

func TestRequestRequiresReason(t *testing.T) {
	rec := absentRecord()
	err := Request(&rec, "   ", time.Now())
	assert.ErrorIs(t, err, domain.ErrReasonRequired)
	assert.Equal(t, StateAbsent, StateOf(rec))
}

func TestRequestOnlyFromAbsent(t *testing.T) {
	rec := absentRecord()
	rec.Status = domain.StatusPresent
	assert.ErrorIs(t, Request(&rec, "event", time.Now()), ErrNotAbsent)

	rec = absentRecord()
	require.NoError(t, Request(&rec, "event", time.Now()))
	assert.ErrorIs(t, Request(&rec, "again", time.Now()), ErrNotAbsent)
}

func TestApproveRequiresPending(t *testing.T) {
	rec := absentRecord()
	assert.ErrorIs(t, Approve(&rec, time.Now()), ErrNoPendingDuty)
}

func TestCancelRequiresRequest(t *testing.T) {
	rec := absentRecord()
	assert.ErrorIs(t, Cancel(&rec, time.Now()), ErrNoDutyRequest)
}

func TestCancelFromPending(t *testing.T) {
	now := time.Now()
	rec := absentRecord()
	require.NoError(t, Request(&rec, "sports meet", now))
	require.NoError(t, Cancel(&rec, now))
	assert.Equal(t, StateAbsent, StateOf(rec))

	// A fresh request after cancel works again.
	require.NoError(t, Request(&rec, "sports meet", now))
	assert.Equal(t, StatePendingDuty, StateOf(rec))
	assert.Equal(t, "sports meet", rec.DutyReason)
}

func TestMarkPresentClearsDutyFlags(t *testing.T) {
	now := time.Now()
	rec := absentRecord()
	require.NoError(t, Request(&rec, "event", now))
	require.NoError(t, Approve(&rec, now))

	require.NoError(t, Mark(&rec, domain.StatusPresent, now))
	assert.Equal(t, StatePresent, StateOf(rec))
	assert.False(t, rec.DutyRequested)
	assert.False(t, rec.DutyApproved)
	assert.Empty(t, rec.DutyReason)
}

func TestMarkAbsentKeepsPendingRequest(t *testing.T) {
	now := time.Now()
	rec := absentRecord()
	require.NoError(t, Request(&rec, "event", now))

	require.NoError(t, Mark(&rec, domain.StatusAbsent, now))
	assert.Equal(t, StatePendingDuty, StateOf(rec))
	assert.Equal(t, "event", rec.DutyReason)
}

func TestMarkRejectsDutyLeaveStatus(t *testing.T) {
	rec := absentRecord()
	assert.ErrorIs(t, Mark(&rec, domain.StatusDutyLeave, time.Now()), domain.ErrInvalidStatus)
}
