// internal/matching/models.go

package matching

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no relationship matches a lookup.
	ErrNotFound = errors.New("relationship not found")
	// ErrVersionConflict is returned when an optimistic update lost the
	// race against a concurrent evaluation of the same relationship.
	ErrVersionConflict = errors.New("relationship version conflict")
)

// Relationship records one user pair's mutual-evaluation progress. Profiles
// are referenced by id only; loading them is the caller's explicit step.
// At most one relationship exists per unordered pair.
type Relationship struct {
	ID            int64     `db:"id"`
	Profile1ID    int64     `db:"profile_1"`
	Profile2ID    int64     `db:"profile_2"`
	Profile1State SideState `db:"profile1_state"`
	Profile2State SideState `db:"profile2_state"`
	Status        Status    `db:"status"`
	Version       int64     `db:"version"`
}

// SideOf returns the given profile's recorded evaluation.
func (r *Relationship) SideOf(profileID int64) (SideState, error) {
	switch profileID {
	case r.Profile1ID:
		return r.Profile1State, nil
	case r.Profile2ID:
		return r.Profile2State, nil
	}
	return "", fmt.Errorf("profile %d is not part of relationship %d", profileID, r.ID)
}

// SetSideOf records the given profile's evaluation.
func (r *Relationship) SetSideOf(profileID int64, state SideState) error {
	switch profileID {
	case r.Profile1ID:
		r.Profile1State = state
		return nil
	case r.Profile2ID:
		r.Profile2State = state
		return nil
	}
	return fmt.Errorf("profile %d is not part of relationship %d", profileID, r.ID)
}

// CounterpartID returns the other profile's id.
func (r *Relationship) CounterpartID(profileID int64) (int64, error) {
	switch profileID {
	case r.Profile1ID:
		return r.Profile2ID, nil
	case r.Profile2ID:
		return r.Profile1ID, nil
	}
	return 0, fmt.Errorf("profile %d is not part of relationship %d", profileID, r.ID)
}
