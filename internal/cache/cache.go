// Package cache is the local snapshot store: one serialized blob per
// collection, replaced wholesale on every save. It exists for instant
// startup and offline operation; while the process is alive the in-memory
// state is authoritative and cache failures are never fatal.
package cache

import "context"

// Collection keys. Each maps to one independently stored blob.
const (
	CollectionSubjects = "subjects"
	CollectionSlots    = "lecture_slots"
	CollectionRecords  = "attendance_records"
)

// Store persists whole-collection snapshots. Load fills dest (a pointer to a
// slice) and leaves it empty when nothing is stored; Save replaces the
// collection; Clear removes it.
type Store interface {
	Load(ctx context.Context, collection string, dest any) error
	Save(ctx context.Context, collection string, items any) error
	Clear(ctx context.Context, collection string) error
}
