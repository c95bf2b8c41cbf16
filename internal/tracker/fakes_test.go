package tracker

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"

	"classtrack/internal/domain"
)

// fakeSession is a toggleable Session.
type fakeSession struct {
	auth  bool
	ready bool
}

func (f *fakeSession) Authenticated() bool { return f.auth }
func (f *fakeSession) Ready() bool         { return f.ready }

var errRemoteDown = errors.New("remote down")

// fakeRemote simulates the authoritative store in memory. Failure toggles
// let tests break individual operations.
type fakeRemote struct {
	mu       stdsync.Mutex
	subjects []domain.Subject
	slots    []domain.LectureSlot
	records  []domain.AttendanceRecord
	nextID   int

	failSubjectList   bool
	failSubjectCreate bool
	failSlotList      bool
	failRecordList    bool

	deletedSubjects []string
	subjectListHits int
}

func (f *fakeRemote) gateway() Gateway {
	return Gateway{
		Subjects: &fakeSubjects{f},
		Slots:    &fakeSlots{f},
		Records:  &fakeRecords{f},
	}
}

func (f *fakeRemote) assign(prefix string) domain.ID {
	f.nextID++
	return domain.RemoteID(fmt.Sprintf("%s-%d", prefix, f.nextID))
}

type fakeSubjects struct{ r *fakeRemote }

func (g *fakeSubjects) List(context.Context) ([]domain.Subject, error) {
	g.r.mu.Lock()
	defer g.r.mu.Unlock()
	g.r.subjectListHits++
	if g.r.failSubjectList {
		return nil, errRemoteDown
	}
	return append([]domain.Subject(nil), g.r.subjects...), nil
}

func (g *fakeSubjects) Create(_ context.Context, subject domain.Subject) (*domain.Subject, error) {
	g.r.mu.Lock()
	defer g.r.mu.Unlock()
	if g.r.failSubjectCreate {
		return nil, errRemoteDown
	}
	subject.ID = g.r.assign("srv-sub")
	g.r.subjects = append(g.r.subjects, subject)
	return &subject, nil
}

func (g *fakeSubjects) Update(_ context.Context, subject domain.Subject) error {
	g.r.mu.Lock()
	defer g.r.mu.Unlock()
	for i := range g.r.subjects {
		if g.r.subjects[i].ID.String() == subject.ID.String() {
			g.r.subjects[i] = subject
			return nil
		}
	}
	return errors.New("subject not on server")
}

func (g *fakeSubjects) Delete(_ context.Context, id domain.ID) error {
	g.r.mu.Lock()
	defer g.r.mu.Unlock()
	g.r.deletedSubjects = append(g.r.deletedSubjects, id.String())
	kept := g.r.subjects[:0:0]
	for _, sub := range g.r.subjects {
		if sub.ID.String() != id.String() {
			kept = append(kept, sub)
		}
	}
	g.r.subjects = kept
	return nil
}

type fakeSlots struct{ r *fakeRemote }

func (g *fakeSlots) ListOwned(context.Context) ([]domain.LectureSlot, error) {
	g.r.mu.Lock()
	defer g.r.mu.Unlock()
	if g.r.failSlotList {
		return nil, errRemoteDown
	}
	return append([]domain.LectureSlot(nil), g.r.slots...), nil
}

func (g *fakeSlots) CreateMany(_ context.Context, slots []domain.LectureSlot) ([]domain.LectureSlot, error) {
	g.r.mu.Lock()
	defer g.r.mu.Unlock()
	out := make([]domain.LectureSlot, len(slots))
	for i, slot := range slots {
		slot.ID = g.r.assign("srv-slot")
		g.r.slots = append(g.r.slots, slot)
		out[i] = slot
	}
	return out, nil
}

func (g *fakeSlots) Update(_ context.Context, slot domain.LectureSlot) error {
	g.r.mu.Lock()
	defer g.r.mu.Unlock()
	for i := range g.r.slots {
		if g.r.slots[i].ID.String() == slot.ID.String() {
			g.r.slots[i] = slot
			return nil
		}
	}
	return errors.New("slot not on server")
}

func (g *fakeSlots) Delete(_ context.Context, id domain.ID) error {
	g.r.mu.Lock()
	defer g.r.mu.Unlock()
	kept := g.r.slots[:0:0]
	for _, slot := range g.r.slots {
		if slot.ID.String() != id.String() {
			kept = append(kept, slot)
		}
	}
	g.r.slots = kept
	return nil
}

type fakeRecords struct{ r *fakeRemote }

func (g *fakeRecords) ListForSubjects(_ context.Context, subjectIDs []domain.ID) ([]domain.AttendanceRecord, error) {
	g.r.mu.Lock()
	defer g.r.mu.Unlock()
	if g.r.failRecordList {
		return nil, errRemoteDown
	}
	wanted := make(map[string]bool, len(subjectIDs))
	for _, id := range subjectIDs {
		wanted[id.String()] = true
	}
	var out []domain.AttendanceRecord
	for _, rec := range g.r.records {
		if wanted[rec.SubjectID.String()] {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (g *fakeRecords) Upsert(_ context.Context, record domain.AttendanceRecord) (*domain.AttendanceRecord, error) {
	g.r.mu.Lock()
	defer g.r.mu.Unlock()
	if record.ID.IsZero() || record.ID.IsLocal() {
		record.ID = g.r.assign("srv-rec")
	}
	for i := range g.r.records {
		if g.r.records[i].SubjectID.String() == record.SubjectID.String() && g.r.records[i].Date == record.Date {
			record.ID = g.r.records[i].ID
			g.r.records[i] = record
			return &record, nil
		}
	}
	g.r.records = append(g.r.records, record)
	return &record, nil
}

func (g *fakeRecords) MarkDutyLeave(ctx context.Context, subjectID domain.ID, date, reason string, approved bool) (*domain.AttendanceRecord, error) {
	g.r.mu.Lock()
	for i := range g.r.records {
		if g.r.records[i].SubjectID.String() == subjectID.String() && g.r.records[i].Date == date {
			rec := g.r.records[i]
			rec.DutyRequested = true
			rec.DutyApproved = approved
			rec.DutyReason = reason
			if approved {
				rec.Status = domain.StatusDutyLeave
			} else {
				rec.Status = domain.StatusAbsent
			}
			g.r.records[i] = rec
			g.r.mu.Unlock()
			return &rec, nil
		}
	}
	g.r.mu.Unlock()
	rec := domain.AttendanceRecord{
		SubjectID:     subjectID,
		Date:          date,
		Status:        domain.StatusAbsent,
		HoursLogged:   1,
		DutyRequested: true,
		DutyApproved:  approved,
		DutyReason:    reason,
	}
	if approved {
		rec.Status = domain.StatusDutyLeave
	}
	out, err := g.Upsert(ctx, rec)
	return out, err
}

func (g *fakeRecords) CancelDutyLeave(_ context.Context, subjectID domain.ID, date string) (*domain.AttendanceRecord, error) {
	g.r.mu.Lock()
	defer g.r.mu.Unlock()
	for i := range g.r.records {
		if g.r.records[i].SubjectID.String() == subjectID.String() && g.r.records[i].Date == date {
			rec := g.r.records[i]
			rec.Status = domain.StatusAbsent
			rec.DutyRequested = false
			rec.DutyApproved = false
			rec.DutyReason = ""
			g.r.records[i] = rec
			return &rec, nil
		}
	}
	return nil, errors.New("record not on server")
}

func (g *fakeRecords) Update(_ context.Context, record domain.AttendanceRecord) error {
	g.r.mu.Lock()
	defer g.r.mu.Unlock()
	for i := range g.r.records {
		if g.r.records[i].ID.String() == record.ID.String() {
			g.r.records[i] = record
			return nil
		}
	}
	return errors.New("record not on server")
}
