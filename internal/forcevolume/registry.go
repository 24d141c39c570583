package forcevolume

import "sort"

// PointRegistry is the single source of truth for which grid points are
// excluded from analysis. It stores CanonicalIds. Display positions are
// translated through the OrientationMap on the way in, so the set stays
// valid across orientation changes. All operations are idempotent and
// deduplicate their input.
type PointRegistry struct {
	size     int
	inactive map[int]struct{}
}

// NewPointRegistry returns a registry for a grid of size points with every
// point active.
func NewPointRegistry(size int) *PointRegistry {
	return &PointRegistry{
		size:     size,
		inactive: make(map[int]struct{}),
	}
}

// Size returns the number of grid points the registry covers.
func (r *PointRegistry) Size() int { return r.size }

// Deactivate marks the points at the given display positions inactive.
func (r *PointRegistry) Deactivate(positions []int, m *OrientationMap) error {
	ids, err := r.translate(positions, m)
	if err != nil {
		return err
	}
	return r.DeactivateCanonical(ids...)
}

// Activate marks the points at the given display positions active again.
func (r *PointRegistry) Activate(positions []int, m *OrientationMap) error {
	ids, err := r.translate(positions, m)
	if err != nil {
		return err
	}
	return r.ActivateCanonical(ids...)
}

// Toggle flips the state of the point at the given display position and
// reports whether it is active afterwards.
func (r *PointRegistry) Toggle(position int, m *OrientationMap) (bool, error) {
	id, err := m.ToCanonical(position)
	if err != nil {
		return false, err
	}
	if _, ok := r.inactive[id]; ok {
		delete(r.inactive, id)
		return true, nil
	}
	r.inactive[id] = struct{}{}
	return false, nil
}

// DeactivateCanonical marks the given CanonicalIds inactive. An id outside
// the grid fails the whole call without changing any state.
func (r *PointRegistry) DeactivateCanonical(ids ...int) error {
	if err := r.check(ids); err != nil {
		return err
	}
	for _, id := range ids {
		r.inactive[id] = struct{}{}
	}
	return nil
}

// ActivateCanonical marks the given CanonicalIds active. An id outside the
// grid fails the whole call without changing any state.
func (r *PointRegistry) ActivateCanonical(ids ...int) error {
	if err := r.check(ids); err != nil {
		return err
	}
	for _, id := range ids {
		delete(r.inactive, id)
	}
	return nil
}

// IsActive reports whether the point with the given CanonicalId takes part
// in the analysis. Ids outside the grid report false.
func (r *PointRegistry) IsActive(canonical int) bool {
	if canonical < 0 || canonical >= r.size {
		return false
	}
	_, inactive := r.inactive[canonical]
	return !inactive
}

// AllInactive reports whether no point is left for the analysis.
func (r *PointRegistry) AllInactive() bool {
	return len(r.inactive) == r.size
}

// ActiveCount returns the number of points taking part in the analysis.
func (r *PointRegistry) ActiveCount() int {
	return r.size - len(r.inactive)
}

// InactiveCount returns the number of excluded points.
func (r *PointRegistry) InactiveCount() int {
	return len(r.inactive)
}

// InactiveIDs returns the excluded CanonicalIds in ascending order.
func (r *PointRegistry) InactiveIDs() []int {
	ids := make([]int, 0, len(r.inactive))
	for id := range r.inactive {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ResetAll marks every point active again.
func (r *PointRegistry) ResetAll() {
	r.inactive = make(map[int]struct{})
}

// Restore replaces the inactive set wholesale. Used when replaying a saved
// session.
func (r *PointRegistry) Restore(ids []int) error {
	if err := r.check(ids); err != nil {
		return err
	}
	r.inactive = make(map[int]struct{}, len(ids))
	for _, id := range ids {
		r.inactive[id] = struct{}{}
	}
	return nil
}

func (r *PointRegistry) translate(positions []int, m *OrientationMap) ([]int, error) {
	ids := make([]int, 0, len(positions))
	for _, pos := range positions {
		id, err := m.ToCanonical(pos)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *PointRegistry) check(ids []int) error {
	for _, id := range ids {
		if id < 0 || id >= r.size {
			return &UnknownPointError{Index: id, Count: r.size}
		}
	}
	return nil
}
