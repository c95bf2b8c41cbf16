package tracker

import (
	"context"

	"classtrack/internal/domain"
)

// SubjectGateway is the remote store's subject contract.
type SubjectGateway interface {
	List(ctx context.Context) ([]domain.Subject, error)
	Create(ctx context.Context, subject domain.Subject) (*domain.Subject, error)
	Update(ctx context.Context, subject domain.Subject) error
	Delete(ctx context.Context, id domain.ID) error
}

// SlotGateway is the remote store's lecture slot contract.
type SlotGateway interface {
	ListOwned(ctx context.Context) ([]domain.LectureSlot, error)
	CreateMany(ctx context.Context, slots []domain.LectureSlot) ([]domain.LectureSlot, error)
	Update(ctx context.Context, slot domain.LectureSlot) error
	Delete(ctx context.Context, id domain.ID) error
}

// RecordGateway is the remote store's attendance record contract. A nil
// record from any create/upsert/mark call is a hard failure signal in
// authenticated mode.
type RecordGateway interface {
	ListForSubjects(ctx context.Context, subjectIDs []domain.ID) ([]domain.AttendanceRecord, error)
	Upsert(ctx context.Context, record domain.AttendanceRecord) (*domain.AttendanceRecord, error)
	MarkDutyLeave(ctx context.Context, subjectID domain.ID, date, reason string, approved bool) (*domain.AttendanceRecord, error)
	CancelDutyLeave(ctx context.Context, subjectID domain.ID, date string) (*domain.AttendanceRecord, error)
	Update(ctx context.Context, record domain.AttendanceRecord) error
}

// Gateway bundles the three remote services the orchestrator talks to.
type Gateway struct {
	Subjects SubjectGateway
	Slots    SlotGateway
	Records  RecordGateway
}
