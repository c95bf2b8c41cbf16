package tracker

// Plan is the result of diffing an incoming owned collection against the
// currently held one, keyed by id. Editing a subject's weekly schedule runs
// through this so surviving ids keep their attendance-record linkage instead
// of being dropped and re-created.
type Plan[T any] struct {
	ToCreate []T // incoming items whose key matches nothing held
	ToUpdate []T // incoming items whose key matches a held item
	ToDelete []T // held items absent from the incoming set
}

// Reconcile computes the create/update/delete plan for replacing existing
// with incoming, matching items by key.
func Reconcile[T any, K comparable](existing, incoming []T, key func(T) K) Plan[T] {
	held := make(map[K]bool, len(existing))
	for _, item := range existing {
		held[key(item)] = true
	}
	wanted := make(map[K]bool, len(incoming))
	for _, item := range incoming {
		wanted[key(item)] = true
	}

	var plan Plan[T]
	for _, item := range incoming {
		if held[key(item)] {
			plan.ToUpdate = append(plan.ToUpdate, item)
		} else {
			plan.ToCreate = append(plan.ToCreate, item)
		}
	}
	for _, item := range existing {
		if !wanted[key(item)] {
			plan.ToDelete = append(plan.ToDelete, item)
		}
	}
	return plan
}
