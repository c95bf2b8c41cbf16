package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/domain"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	subjects := []domain.Subject{
		{ID: domain.RemoteID("s1"), Name: "Networks", RequiredAttendance: 75},
		{ID: domain.ParseID("local_abc"), Name: "Compilers", RequiredAttendance: 80},
	}
	require.NoError(t, store.Save(ctx, CollectionSubjects, subjects))

	var loaded []domain.Subject
	require.NoError(t, store.Load(ctx, CollectionSubjects, &loaded))
	require.Len(t, loaded, 2)
	assert.Equal(t, "Networks", loaded[0].Name)
	assert.False(t, loaded[0].ID.IsLocal())
	assert.True(t, loaded[1].ID.IsLocal()) // locality survives serialization
}

func TestMemoryLoadMissingLeavesEmpty(t *testing.T) {
	var loaded []domain.Subject
	require.NoError(t, NewMemory().Load(context.Background(), CollectionSubjects, &loaded))
	assert.Empty(t, loaded)
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Save(ctx, CollectionRecords, []domain.AttendanceRecord{{ID: domain.RemoteID("r1")}}))
	require.NoError(t, store.Clear(ctx, CollectionRecords))

	var loaded []domain.AttendanceRecord
	require.NoError(t, store.Load(ctx, CollectionRecords, &loaded))
	assert.Empty(t, loaded)
}

func TestMemorySaveReplacesWholeCollection(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Save(ctx, CollectionSlots, []domain.LectureSlot{{ID: domain.RemoteID("a")}, {ID: domain.RemoteID("b")}}))
	require.NoError(t, store.Save(ctx, CollectionSlots, []domain.LectureSlot{{ID: domain.RemoteID("c")}}))

	var loaded []domain.LectureSlot
	require.NoError(t, store.Load(ctx, CollectionSlots, &loaded))
	require.Len(t, loaded, 1)
	assert.Equal(t, "c", loaded[0].ID.String())
}
