// internal/matching/selector.go
// Candidate selection: at most one unresolved open candidate at a time,
// exclusion of decided pairs, age-band query with bounded widening, and
// geodesic ranking of the remaining pool.

package matching

import (
	"context"
	"fmt"

	"github.com/carpediem-app/carpediem-backend/internal/apperr"
	"github.com/carpediem-app/carpediem-backend/internal/geo"
	"github.com/carpediem-app/carpediem-backend/internal/profile"
)

// Selector computes the next candidate for a user.
type Selector struct {
	relationships Repository
	profiles      profile.Repository
	ageDiff       int
	maxWidenings  int
}

// NewSelector creates a candidate selector. ageDiff is both the initial age
// band half-width and the widening increment; maxWidenings bounds how often
// an empty pool widens the band before giving up.
func NewSelector(relationships Repository, profiles profile.Repository, ageDiff, maxWidenings int) *Selector {
	return &Selector{
		relationships: relationships,
		profiles:      profiles,
		ageDiff:       ageDiff,
		maxWidenings:  maxWidenings,
	}
}

// SelectCandidate picks the next candidate for a user with a filled profile.
// If the user already has an open relationship they have not rejected, that
// counterpart is returned again; otherwise the eligible pool is queried and
// the geodesically closest candidate wins. Creates the pair's relationship
// when none exists yet (the call's only side effect).
func (s *Selector) SelectCandidate(ctx context.Context, user *profile.Profile) (*profile.Profile, error) {
	rels, err := s.relationships.GetAllForProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	excluded := []int64{user.ID}
	for _, rel := range rels {
		counterpartID, err := rel.CounterpartID(user.ID)
		if err != nil {
			return nil, err
		}
		ownState, err := rel.SideOf(user.ID)
		if err != nil {
			return nil, err
		}

		if rel.Status != StatusWait || ownState == SidePass {
			excluded = append(excluded, counterpartID)
			continue
		}

		// An open candidate the user has not rejected yet: show it again
		// instead of offering a new one.
		return s.profiles.GetByID(ctx, counterpartID)
	}

	candidate, err := s.findClosest(ctx, user, excluded)
	if err != nil {
		return nil, err
	}

	if err := s.ensureRelationship(ctx, user.ID, candidate.ID); err != nil {
		return nil, err
	}
	return candidate, nil
}

func (s *Selector) findClosest(ctx context.Context, user *profile.Profile, excluded []int64) (*profile.Profile, error) {
	query := &profile.CandidateQuery{ExcludeIDs: excluded}

	if user.PreferredGender == profile.GenderAny {
		// Drop candidates whose own preference categorically rejects the
		// user's gender.
		if user.Gender == profile.GenderFemale {
			query.ExcludePreferred = profile.GenderMale
		} else {
			query.ExcludePreferred = profile.GenderFemale
		}
	} else {
		query.Gender = user.PreferredGender
		query.ExcludePreferred = user.PreferredGender
	}

	for widening := 0; widening <= s.maxWidenings; widening++ {
		band := s.ageDiff * (widening + 1)
		query.AgeMin = user.Age - band
		query.AgeMax = user.Age + band

		candidates, err := s.profiles.FindCandidates(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			continue
		}

		candidateSelectionWidenings.Observe(float64(widening))
		return closestTo(user, candidates), nil
	}

	return nil, apperr.New(apperr.KindNoCandidates, "No suitable candidates found")
}

// closestTo ranks candidates by geodesic distance from the user.
func closestTo(user *profile.Profile, candidates []*profile.Profile) *profile.Profile {
	best := candidates[0]
	bestDistance := geo.Distance(user.Coordinates(), best.Coordinates())
	for _, c := range candidates[1:] {
		if d := geo.Distance(user.Coordinates(), c.Coordinates()); d < bestDistance {
			best = c
			bestDistance = d
		}
	}
	return best
}

// ensureRelationship creates the pair's relationship unless it already
// exists. Never creates a second document for the same unordered pair.
func (s *Selector) ensureRelationship(ctx context.Context, userID, candidateID int64) error {
	_, err := s.relationships.GetForPair(ctx, userID, candidateID)
	if err == nil {
		return nil
	}
	if err != ErrNotFound {
		return err
	}

	rel := &Relationship{
		Profile1ID:    userID,
		Profile2ID:    candidateID,
		Profile1State: SideWait,
		Profile2State: SideWait,
		Status:        StatusWait,
	}
	if err := s.relationships.Create(ctx, rel); err != nil {
		return fmt.Errorf("failed to create relationship for pair (%d,%d): %w", userID, candidateID, err)
	}
	return nil
}
