// Package tracker owns the in-memory attendance state and keeps it
// consistent between the local snapshot cache and the remote authoritative
// store. In guest mode every write stays local under locally generated ids;
// once authenticated, writes are server-first and syncs are remote-wins.
package tracker

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/sirupsen/logrus"

	"classtrack/internal/cache"
	"classtrack/internal/calc"
	"classtrack/internal/domain"
	"classtrack/internal/duty"
	"classtrack/internal/logger"
	"classtrack/internal/metrics"
	"classtrack/internal/retry"
)

// Session is the slice of authentication state the store depends on.
// auth.Session satisfies it.
type Session interface {
	Authenticated() bool
	Ready() bool
}

// DefaultLoginPoll bounds the wait for the session to settle after login.
var DefaultLoginPoll = retry.Policy{Attempts: 10, Interval: 200 * time.Millisecond}

// Options configures a Store.
type Options struct {
	Cache     cache.Store
	Gateway   Gateway
	Session   Session
	LoginPoll retry.Policy
	Log       *logrus.Entry
	Now       func() time.Time
}

// Store is the sync orchestrator. All mutation methods run their remote
// call (if any) to completion before touching memory; callers must not
// issue overlapping writes to the same entity.
type Store struct {
	mu       stdsync.RWMutex
	subjects []domain.Subject
	slots    []domain.LectureSlot
	records  []domain.AttendanceRecord
	loading  bool
	syncing  bool

	cache     cache.Store
	gw        Gateway
	session   Session
	loginPoll retry.Policy
	log       *logrus.Entry
	now       func() time.Time

	subMu       stdsync.Mutex
	subscribers map[int]chan struct{}
	nextSubID   int
}

// New creates a store. Cache, Gateway and Session are required; the rest
// default sensibly.
func New(opts Options) *Store {
	if opts.Log == nil {
		opts.Log = logger.WithComponent("tracker")
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.LoginPoll.Attempts == 0 {
		opts.LoginPoll = DefaultLoginPoll
	}
	return &Store{
		cache:       opts.Cache,
		gw:          opts.Gateway,
		session:     opts.Session,
		loginPoll:   opts.LoginPoll,
		log:         opts.Log,
		now:         opts.Now,
		subscribers: make(map[int]chan struct{}),
	}
}

// Subscribe registers for state-changed signals. The returned cancel func
// must be called to unsubscribe. Signals are coalesced: a slow consumer
// sees at least one signal after any burst of changes.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan struct{}, 1)
	s.subscribers[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *Store) notify() {
	s.subMu.Lock()
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.subMu.Unlock()
}

// Subjects returns a snapshot copy of the subjects collection.
func (s *Store) Subjects() []domain.Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Subject(nil), s.subjects...)
}

// Slots returns a snapshot copy of the lecture slots collection.
func (s *Store) Slots() []domain.LectureSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.LectureSlot(nil), s.slots...)
}

// Records returns a snapshot copy of the attendance records collection.
func (s *Store) Records() []domain.AttendanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AttendanceRecord(nil), s.records...)
}

// Loading reports whether the initial cache load is still in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Syncing reports whether a full sync is in flight.
func (s *Store) Syncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncing
}

// Load restores all collections from the local cache (fast path, may be
// empty) and, when authenticated, follows with a full sync. Consumers may
// paint stale cached data while the sync is in flight.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	var (
		subjects []domain.Subject
		slots    []domain.LectureSlot
		records  []domain.AttendanceRecord
	)
	s.cacheLoad(ctx, cache.CollectionSubjects, &subjects)
	s.cacheLoad(ctx, cache.CollectionSlots, &slots)
	s.cacheLoad(ctx, cache.CollectionRecords, &records)

	s.mu.Lock()
	s.subjects = subjects
	s.slots = slots
	s.records = records
	s.loading = false
	s.mu.Unlock()
	metrics.SubjectsTracked.Set(float64(len(subjects)))
	s.notify()

	if !s.session.Authenticated() {
		return nil
	}
	return s.SyncWithRemote(ctx)
}

// SyncWithRemote runs a full remote-wins sync: subjects, then lecture
// slots, then attendance records scoped to the fetched subjects, then the
// expiry sweep. The sequence is deliberately not transactional - each step
// applies and persists on its own, a failed fetch is logged and skipped,
// and later steps still run.
func (s *Store) SyncWithRemote(ctx context.Context) error {
	if !s.session.Authenticated() {
		return nil
	}

	s.mu.Lock()
	s.syncing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
		s.notify()
	}()

	outcome := "ok"

	if subjects, err := s.gw.Subjects.List(ctx); err != nil {
		s.log.WithError(err).Warn("sync: subject fetch failed, keeping local subjects")
		metrics.RemoteFailures.WithLabelValues("subjects.list").Inc()
		outcome = "partial"
	} else {
		s.mu.Lock()
		s.subjects = subjects
		s.mu.Unlock()
		metrics.SubjectsTracked.Set(float64(len(subjects)))
		s.persist(ctx, cache.CollectionSubjects)
	}

	if slots, err := s.gw.Slots.ListOwned(ctx); err != nil {
		s.log.WithError(err).Warn("sync: slot fetch failed, keeping local slots")
		metrics.RemoteFailures.WithLabelValues("slots.list").Inc()
		outcome = "partial"
	} else {
		s.mu.Lock()
		s.slots = slots
		s.mu.Unlock()
		s.persist(ctx, cache.CollectionSlots)
	}

	s.mu.RLock()
	subjectIDs := make([]domain.ID, 0, len(s.subjects))
	for _, sub := range s.subjects {
		subjectIDs = append(subjectIDs, sub.ID)
	}
	s.mu.RUnlock()

	if len(subjectIDs) > 0 {
		if records, err := s.gw.Records.ListForSubjects(ctx, subjectIDs); err != nil {
			s.log.WithError(err).Warn("sync: record fetch failed, keeping local records")
			metrics.RemoteFailures.WithLabelValues("records.list").Inc()
			outcome = "partial"
		} else {
			s.mu.Lock()
			s.records = records
			s.mu.Unlock()
			s.persist(ctx, cache.CollectionRecords)
		}
	}

	s.cleanupExpiredSubjects(ctx)
	metrics.SyncRuns.WithLabelValues(outcome).Inc()
	return nil
}

// OnUserLogin clears all guest state, waits for the session to report
// ready, then runs a full sync. Guest data must never survive a login. A
// timed-out wait skips the sync and leaves the collections empty until the
// next explicit sync; it is not an error.
func (s *Store) OnUserLogin(ctx context.Context) error {
	s.mu.Lock()
	s.subjects = nil
	s.slots = nil
	s.records = nil
	s.mu.Unlock()
	metrics.SubjectsTracked.Set(0)

	for _, collection := range []string{cache.CollectionSubjects, cache.CollectionSlots, cache.CollectionRecords} {
		if err := s.cache.Clear(ctx, collection); err != nil {
			s.log.WithError(err).Warn("cache clear failed")
			metrics.CacheFailures.Inc()
		}
	}
	s.notify()

	switch retry.WaitReady(ctx, s.loginPoll, s.session.Ready) {
	case retry.Ready:
		return s.SyncWithRemote(ctx)
	case retry.Cancelled:
		s.log.Info("login sync abandoned: caller torn down")
		return nil
	default:
		s.log.Warn("login sync skipped: session never became ready")
		metrics.SyncRuns.WithLabelValues("skipped").Inc()
		return nil
	}
}

// AddSubject creates a subject. Authenticated mode is server-first: the
// remote create runs before any local change and its server-assigned id is
// adopted. Guest mode assigns a local id directly.
func (s *Store) AddSubject(ctx context.Context, subject domain.Subject) (domain.Subject, error) {
	if subject.RequiredAttendance == 0 {
		subject.RequiredAttendance = domain.DefaultRequiredAttendance
	}
	if err := subject.Validate(); err != nil {
		return domain.Subject{}, err
	}
	now := s.now()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	if s.session.Authenticated() {
		created, err := s.gw.Subjects.Create(ctx, subject)
		if err != nil {
			metrics.RemoteFailures.WithLabelValues("subjects.create").Inc()
			return domain.Subject{}, remoteErr("subject create", err)
		}
		if created == nil {
			metrics.RemoteFailures.WithLabelValues("subjects.create").Inc()
			return domain.Subject{}, remoteErr("subject create", nil)
		}
		subject = *created
	} else {
		subject.ID = domain.NewLocalID()
	}

	s.mu.Lock()
	s.subjects = append(s.subjects, subject)
	count := len(s.subjects)
	s.mu.Unlock()
	metrics.SubjectsTracked.Set(float64(count))
	s.persist(ctx, cache.CollectionSubjects)
	s.notify()
	return subject, nil
}

// AddSubjectWithSlots creates a subject together with its weekly schedule.
// When the remote subject create succeeds but the slot create fails, the
// subject is still adopted (it exists on the server) and the slot failure
// propagates.
func (s *Store) AddSubjectWithSlots(ctx context.Context, subject domain.Subject, slots []domain.LectureSlot) (domain.Subject, []domain.LectureSlot, error) {
	if err := domain.ValidateSlotSet(slots); err != nil {
		return domain.Subject{}, nil, err
	}

	created, err := s.AddSubject(ctx, subject)
	if err != nil {
		return domain.Subject{}, nil, err
	}

	for i := range slots {
		slots[i].SubjectID = created.ID
		if slots[i].DurationHours == 0 {
			slots[i].DurationHours = 1
		}
	}

	adopted, err := s.createSlots(ctx, slots)
	if err != nil {
		return created, nil, err
	}

	s.mu.Lock()
	s.slots = append(s.slots, adopted...)
	s.mu.Unlock()
	s.persist(ctx, cache.CollectionSlots)
	s.notify()
	return created, adopted, nil
}

// UpdateSubject updates a subject in place, server-first when authenticated.
func (s *Store) UpdateSubject(ctx context.Context, subject domain.Subject) error {
	if err := subject.Validate(); err != nil {
		return err
	}
	if s.indexOfSubject(subject.ID) < 0 {
		return ErrSubjectNotFound
	}
	subject.UpdatedAt = s.now()

	if s.session.Authenticated() {
		if err := s.gw.Subjects.Update(ctx, subject); err != nil {
			metrics.RemoteFailures.WithLabelValues("subjects.update").Inc()
			return remoteErr("subject update", err)
		}
	}

	s.mu.Lock()
	for i := range s.subjects {
		if s.subjects[i].ID.String() == subject.ID.String() {
			s.subjects[i] = subject
			break
		}
	}
	s.mu.Unlock()
	s.persist(ctx, cache.CollectionSubjects)
	s.notify()
	return nil
}

// DeleteSubject removes a subject and cascades to its lecture slots and
// attendance records. Server-first when authenticated.
func (s *Store) DeleteSubject(ctx context.Context, id domain.ID) error {
	if s.indexOfSubject(id) < 0 {
		return ErrSubjectNotFound
	}

	if s.session.Authenticated() {
		if err := s.gw.Subjects.Delete(ctx, id); err != nil {
			metrics.RemoteFailures.WithLabelValues("subjects.delete").Inc()
			return remoteErr("subject delete", err)
		}
	}

	s.removeSubjectLocally(id)
	s.persist(ctx, cache.CollectionSubjects)
	s.persist(ctx, cache.CollectionSlots)
	s.persist(ctx, cache.CollectionRecords)
	s.notify()
	return nil
}

// UpdateLectureSlots reconciles a subject's full weekly schedule against
// the slots currently held for it: unknown ids are created, matching ids
// updated in place, and held slots missing from the new set deleted.
// Surviving ids keep historical records linked via LectureSlotID.
func (s *Store) UpdateLectureSlots(ctx context.Context, subjectID domain.ID, newSlots []domain.LectureSlot) ([]domain.LectureSlot, error) {
	if s.indexOfSubject(subjectID) < 0 {
		return nil, ErrSubjectNotFound
	}
	if err := domain.ValidateSlotSet(newSlots); err != nil {
		return nil, err
	}
	for i := range newSlots {
		newSlots[i].SubjectID = subjectID
		if newSlots[i].DurationHours == 0 {
			newSlots[i].DurationHours = 1
		}
	}

	s.mu.RLock()
	var current []domain.LectureSlot
	for _, slot := range s.slots {
		if slot.SubjectID.String() == subjectID.String() {
			current = append(current, slot)
		}
	}
	s.mu.RUnlock()

	plan := Reconcile(current, newSlots, func(sl domain.LectureSlot) string { return sl.ID.String() })

	if s.session.Authenticated() {
		for _, slot := range plan.ToDelete {
			if err := s.gw.Slots.Delete(ctx, slot.ID); err != nil {
				metrics.RemoteFailures.WithLabelValues("slots.delete").Inc()
				return nil, remoteErr("slot delete", err)
			}
		}
		for _, slot := range plan.ToUpdate {
			if err := s.gw.Slots.Update(ctx, slot); err != nil {
				metrics.RemoteFailures.WithLabelValues("slots.update").Inc()
				return nil, remoteErr("slot update", err)
			}
		}
	}
	created, err := s.createSlots(ctx, plan.ToCreate)
	if err != nil {
		return nil, err
	}

	final := append(append([]domain.LectureSlot(nil), plan.ToUpdate...), created...)

	s.mu.Lock()
	kept := s.slots[:0:0]
	for _, slot := range s.slots {
		if slot.SubjectID.String() != subjectID.String() {
			kept = append(kept, slot)
		}
	}
	s.slots = append(kept, final...)
	s.mu.Unlock()
	s.persist(ctx, cache.CollectionSlots)
	s.notify()
	return final, nil
}

// createSlots performs the remote (or local-id) half of slot creation.
func (s *Store) createSlots(ctx context.Context, slots []domain.LectureSlot) ([]domain.LectureSlot, error) {
	if len(slots) == 0 {
		return nil, nil
	}
	if s.session.Authenticated() {
		created, err := s.gw.Slots.CreateMany(ctx, slots)
		if err != nil {
			metrics.RemoteFailures.WithLabelValues("slots.create").Inc()
			return nil, remoteErr("slot create", err)
		}
		if len(created) == 0 {
			metrics.RemoteFailures.WithLabelValues("slots.create").Inc()
			return nil, remoteErr("slot create", nil)
		}
		return created, nil
	}
	out := make([]domain.LectureSlot, len(slots))
	for i, slot := range slots {
		slot.ID = domain.NewLocalSlotID()
		out[i] = slot
	}
	return out, nil
}

// MarkParams names one class occurrence and the status to record for it.
type MarkParams struct {
	SubjectID     domain.ID
	LectureSlotID domain.ID
	Date          string
	Status        domain.Status
	HoursLogged   int
}

// MarkAttendance upserts the record for a subject+date (or slot+date).
// Moving to present clears any duty flags; marking an occurrence twice
// updates the existing record rather than appending.
func (s *Store) MarkAttendance(ctx context.Context, p MarkParams) (domain.AttendanceRecord, error) {
	if s.indexOfSubject(p.SubjectID) < 0 {
		return domain.AttendanceRecord{}, ErrSubjectNotFound
	}
	now := s.now()

	rec, found := s.findRecord(p.SubjectID, p.Date, p.LectureSlotID)
	if !found {
		rec = domain.AttendanceRecord{
			SubjectID:     p.SubjectID,
			LectureSlotID: p.LectureSlotID,
			Date:          p.Date,
			Status:        domain.StatusAbsent,
			HoursLogged:   p.HoursLogged,
			CreatedAt:     now,
		}
		if rec.HoursLogged == 0 {
			rec.HoursLogged = s.slotDuration(p.LectureSlotID)
		}
	}
	if err := duty.Mark(&rec, p.Status, now); err != nil {
		return domain.AttendanceRecord{}, err
	}

	if s.session.Authenticated() {
		saved, err := s.gw.Records.Upsert(ctx, rec)
		if err != nil {
			metrics.RemoteFailures.WithLabelValues("records.upsert").Inc()
			return domain.AttendanceRecord{}, remoteErr("attendance upsert", err)
		}
		if saved == nil {
			metrics.RemoteFailures.WithLabelValues("records.upsert").Inc()
			return domain.AttendanceRecord{}, remoteErr("attendance upsert", nil)
		}
		rec = *saved
	} else if rec.ID.IsZero() {
		rec.ID = domain.NewLocalID()
	}

	s.upsertRecordLocally(rec)
	s.persist(ctx, cache.CollectionRecords)
	s.notify()
	return rec, nil
}

// RequestDutyLeave moves an absence for subject+date to a pending duty
// request carrying the given reason.
func (s *Store) RequestDutyLeave(ctx context.Context, subjectID domain.ID, date, reason string) (domain.AttendanceRecord, error) {
	rec, found := s.findRecordForDay(subjectID, date)
	if !found {
		return domain.AttendanceRecord{}, ErrRecordNotFound
	}
	if err := duty.Request(&rec, reason, s.now()); err != nil {
		return domain.AttendanceRecord{}, err
	}
	return s.applyDutyChange(ctx, rec, func(ctx context.Context) (*domain.AttendanceRecord, error) {
		return s.gw.Records.MarkDutyLeave(ctx, subjectID, date, rec.DutyReason, false)
	}, "duty request")
}

// ApproveDutyLeave approves a pending duty request, reclassifying the
// absence as duty leave that counts toward attendance.
func (s *Store) ApproveDutyLeave(ctx context.Context, subjectID domain.ID, date string) (domain.AttendanceRecord, error) {
	rec, found := s.findRecordForDay(subjectID, date)
	if !found {
		return domain.AttendanceRecord{}, ErrRecordNotFound
	}
	if err := duty.Approve(&rec, s.now()); err != nil {
		return domain.AttendanceRecord{}, err
	}
	return s.applyDutyChange(ctx, rec, func(ctx context.Context) (*domain.AttendanceRecord, error) {
		return s.gw.Records.MarkDutyLeave(ctx, subjectID, date, rec.DutyReason, true)
	}, "duty approve")
}

// CancelDutyRequest reverts a pending or approved duty request to a plain
// absence.
func (s *Store) CancelDutyRequest(ctx context.Context, subjectID domain.ID, date string) (domain.AttendanceRecord, error) {
	rec, found := s.findRecordForDay(subjectID, date)
	if !found {
		return domain.AttendanceRecord{}, ErrRecordNotFound
	}
	if err := duty.Cancel(&rec, s.now()); err != nil {
		return domain.AttendanceRecord{}, err
	}
	return s.applyDutyChange(ctx, rec, func(ctx context.Context) (*domain.AttendanceRecord, error) {
		return s.gw.Records.CancelDutyLeave(ctx, subjectID, date)
	}, "duty cancel")
}

// applyDutyChange runs the server-first remote call for a duty transition,
// then commits the already-transitioned record locally.
func (s *Store) applyDutyChange(ctx context.Context, rec domain.AttendanceRecord, call func(context.Context) (*domain.AttendanceRecord, error), op string) (domain.AttendanceRecord, error) {
	if s.session.Authenticated() {
		saved, err := call(ctx)
		if err != nil {
			metrics.RemoteFailures.WithLabelValues("records.duty").Inc()
			return domain.AttendanceRecord{}, remoteErr(op, err)
		}
		if saved == nil {
			metrics.RemoteFailures.WithLabelValues("records.duty").Inc()
			return domain.AttendanceRecord{}, remoteErr(op, nil)
		}
		rec = *saved
	}
	s.upsertRecordLocally(rec)
	s.persist(ctx, cache.CollectionRecords)
	s.notify()
	return rec, nil
}

// SubjectData computes the derived attendance view for one subject.
func (s *Store) SubjectData(subjectID domain.ID) (calc.SubjectAttendanceData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subjects {
		if sub.ID.String() == subjectID.String() {
			return calc.ForSubject(sub, s.records), nil
		}
	}
	return calc.SubjectAttendanceData{}, ErrSubjectNotFound
}

// Stats computes aggregate stats across all subjects.
func (s *Store) Stats() calc.AttendanceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return calc.Overall(s.subjects, s.records)
}

// AdviceFor computes skip/attend advice for a subject against its own
// required-attendance threshold.
func (s *Store) AdviceFor(subjectID domain.ID, classesPerWeek int) (calc.Advice, error) {
	s.mu.RLock()
	var subject *domain.Subject
	for i := range s.subjects {
		if s.subjects[i].ID.String() == subjectID.String() {
			subject = &s.subjects[i]
			break
		}
	}
	if subject == nil {
		s.mu.RUnlock()
		return calc.Advice{}, ErrSubjectNotFound
	}
	data := calc.ForSubject(*subject, s.records)
	threshold := subject.RequiredAttendance
	s.mu.RUnlock()
	return calc.Advise(data.ClassesAttended, data.ClassesHeld, threshold, classesPerWeek)
}

// cleanupExpiredSubjects removes subjects whose endMonth precedes the
// current month, along with their slots and records, issuing remote
// deletes when authenticated. Runs after every full sync.
func (s *Store) cleanupExpiredSubjects(ctx context.Context) {
	currentMonth := domain.CurrentMonth(s.now())

	s.mu.RLock()
	var expired []domain.Subject
	for _, sub := range s.subjects {
		if sub.ExpiredAt(currentMonth) {
			expired = append(expired, sub)
		}
	}
	s.mu.RUnlock()
	if len(expired) == 0 {
		return
	}

	for _, sub := range expired {
		if s.session.Authenticated() {
			if err := s.gw.Subjects.Delete(ctx, sub.ID); err != nil {
				s.log.WithError(err).WithField("subject", sub.Name).Warn("expiry cleanup: remote delete failed")
				metrics.RemoteFailures.WithLabelValues("subjects.delete").Inc()
			}
		}
		s.removeSubjectLocally(sub.ID)
		s.log.WithFields(logrus.Fields{"subject": sub.Name, "end_month": sub.EndMonth}).Info("removed expired subject")
	}
	s.persist(ctx, cache.CollectionSubjects)
	s.persist(ctx, cache.CollectionSlots)
	s.persist(ctx, cache.CollectionRecords)
	s.notify()
}

func (s *Store) indexOfSubject(id domain.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.subjects {
		if s.subjects[i].ID.String() == id.String() {
			return i
		}
	}
	return -1
}

func (s *Store) slotDuration(slotID domain.ID) int {
	if slotID.IsZero() {
		return 1
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, slot := range s.slots {
		if slot.ID.String() == slotID.String() {
			return slot.DurationHours
		}
	}
	return 1
}

// findRecord resolves an exact occurrence: a day-level probe (zero slot id)
// matches only day-level records, so marking a day never retargets a
// slot-scoped record on the same date.
func (s *Store) findRecord(subjectID domain.ID, date string, slotID domain.ID) (domain.AttendanceRecord, bool) {
	probe := domain.AttendanceRecord{SubjectID: subjectID, Date: date, LectureSlotID: slotID}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.SameOccurrence(probe) {
			return rec, true
		}
	}
	return domain.AttendanceRecord{}, false
}

// findRecordForDay resolves by subject+date alone. Only the duty operations
// use it: their remote contract addresses records that way, slot-scoped or
// not.
func (s *Store) findRecordForDay(subjectID domain.ID, date string) (domain.AttendanceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.SubjectID.String() == subjectID.String() && rec.Date == date {
			return rec, true
		}
	}
	return domain.AttendanceRecord{}, false
}

func (s *Store) upsertRecordLocally(rec domain.AttendanceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID.String() == rec.ID.String() || s.records[i].SameOccurrence(rec) {
			s.records[i] = rec
			return
		}
	}
	s.records = append(s.records, rec)
}

func (s *Store) removeSubjectLocally(id domain.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subjects := s.subjects[:0:0]
	for _, sub := range s.subjects {
		if sub.ID.String() != id.String() {
			subjects = append(subjects, sub)
		}
	}
	s.subjects = subjects

	slots := s.slots[:0:0]
	for _, slot := range s.slots {
		if slot.SubjectID.String() != id.String() {
			slots = append(slots, slot)
		}
	}
	s.slots = slots

	records := s.records[:0:0]
	for _, rec := range s.records {
		if rec.SubjectID.String() != id.String() {
			records = append(records, rec)
		}
	}
	s.records = records
	metrics.SubjectsTracked.Set(float64(len(s.subjects)))
}

// persist writes one collection snapshot to the local cache. Cache failures
// are logged and swallowed: memory stays authoritative for the session.
func (s *Store) persist(ctx context.Context, collection string) {
	var err error
	switch collection {
	case cache.CollectionSubjects:
		err = s.cache.Save(ctx, collection, s.Subjects())
	case cache.CollectionSlots:
		err = s.cache.Save(ctx, collection, s.Slots())
	case cache.CollectionRecords:
		err = s.cache.Save(ctx, collection, s.Records())
	}
	if err != nil {
		s.log.WithError(err).Warn("cache save failed")
		metrics.CacheFailures.Inc()
	}
}

func (s *Store) cacheLoad(ctx context.Context, collection string, dest any) {
	if err := s.cache.Load(ctx, collection, dest); err != nil {
		s.log.WithError(err).Warn("cache load failed, starting empty")
		metrics.CacheFailures.Inc()
	}
}
