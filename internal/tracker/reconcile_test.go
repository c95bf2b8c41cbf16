package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type item struct {
	id  string
	val string
}

func TestReconcileMixedPlan(t *testing.T) {
	existing := []item{{"a", "A"}, {"b", "B"}, {"c", "C"}}
	incoming := []item{{"b", "B'"}, {"", "D"}}

	plan := Reconcile(existing, incoming, func(i item) string { return i.id })

	assert.Equal(t, []item{{"", "D"}}, plan.ToCreate)
	assert.Equal(t, []item{{"b", "B'"}}, plan.ToUpdate)
	assert.Equal(t, []item{{"a", "A"}, {"c", "C"}}, plan.ToDelete)
}

func TestReconcileAllNew(t *testing.T) {
	plan := Reconcile(nil, []item{{"x", "X"}}, func(i item) string { return i.id })
	assert.Len(t, plan.ToCreate, 1)
	assert.Empty(t, plan.ToUpdate)
	assert.Empty(t, plan.ToDelete)
}

func TestReconcileAllRemoved(t *testing.T) {
	plan := Reconcile([]item{{"x", "X"}}, nil, func(i item) string { return i.id })
	assert.Empty(t, plan.ToCreate)
	assert.Empty(t, plan.ToUpdate)
	assert.Len(t, plan.ToDelete, 1)
}

func TestReconcileIdentical(t *testing.T) {
	existing := []item{{"a", "A"}}
	plan := Reconcile(existing, existing, func(i item) string { return i.id })
	assert.Empty(t, plan.ToCreate)
	assert.Equal(t, existing, plan.ToUpdate)
	assert.Empty(t, plan.ToDelete)
}
