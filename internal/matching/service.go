// internal/matching/service.go

package matching

import (
	"context"

	"github.com/carpediem-app/carpediem-backend/internal/apperr"
	"github.com/carpediem-app/carpediem-backend/internal/profile"
)

// evaluateRetries bounds how often a lost optimistic update is retried
// before the conflict is surfaced.
const evaluateRetries = 3

// EvaluationResult reports the outcome of one side's evaluation.
type EvaluationResult struct {
	Status      Status
	OtherState  SideState // counterpart state at evaluation time
	Counterpart *profile.Profile
}

type Service interface {
	SelectCandidate(ctx context.Context, user *profile.Profile) (*profile.Profile, error)
	Evaluate(ctx context.Context, user *profile.Profile, targetID int64, decision SideState) (*EvaluationResult, error)
	// OnProfileEdited applies the relationship side effects of a profile
	// edit: pending pairs are invalidated, established counterpart ids are
	// returned so the caller can notify them.
	OnProfileEdited(ctx context.Context, user *profile.Profile) ([]int64, error)
}

type service struct {
	repo     Repository
	profiles profile.Repository
	selector *Selector
}

func NewService(repo Repository, profiles profile.Repository, selector *Selector) Service {
	return &service{
		repo:     repo,
		profiles: profiles,
		selector: selector,
	}
}

func (s *service) SelectCandidate(ctx context.Context, user *profile.Profile) (*profile.Profile, error) {
	candidate, err := s.selector.SelectCandidate(ctx, user)
	if err != nil {
		return nil, err
	}
	candidateSelectionsTotal.Inc()
	return candidate, nil
}

// Evaluate records one side's like/pass decision and derives the joint
// status. The read-transition-write cycle runs under an optimistic version
// check so concurrent evaluations of the same relationship by both sides
// cannot break the exactly-once-per-side guarantee.
func (s *service) Evaluate(ctx context.Context, user *profile.Profile, targetID int64, decision SideState) (*EvaluationResult, error) {
	if decision != SideLike && decision != SidePass {
		return nil, apperr.New(apperr.KindInvalidRequestData, "Decision must be 'like' or 'pass'")
	}

	var lastErr error
	for attempt := 0; attempt < evaluateRetries; attempt++ {
		rel, err := s.repo.GetForPair(ctx, user.ID, targetID)
		if err == ErrNotFound {
			return nil, apperr.New(apperr.KindInvalidProfile, "No relationship with this profile")
		}
		if err != nil {
			return nil, err
		}

		if rel.Status != StatusWait {
			return nil, apperr.New(apperr.KindRelationshipsAreDefined, "Relationship already decided")
		}

		ownState, err := rel.SideOf(user.ID)
		if err != nil {
			return nil, err
		}
		if ownState != SideWait {
			return nil, apperr.New(apperr.KindChoiceAreMade, "Choice already made")
		}

		otherState, err := rel.SideOf(targetID)
		if err != nil {
			return nil, err
		}

		rel.Status = Transition(decision, otherState)
		if err := rel.SetSideOf(user.ID, decision); err != nil {
			return nil, err
		}

		err = s.repo.UpdateEvaluation(ctx, rel)
		if err == ErrVersionConflict {
			// The counterpart evaluated concurrently; re-read and re-apply
			// the guards against the fresh state.
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}

		evaluationsTotal.WithLabelValues(string(decision)).Inc()
		if rel.Status == StatusEstablished {
			matchesEstablishedTotal.Inc()
		}

		counterpart, err := s.profiles.GetByID(ctx, targetID)
		if err != nil {
			return nil, err
		}
		return &EvaluationResult{
			Status:      rel.Status,
			OtherState:  otherState,
			Counterpart: counterpart,
		}, nil
	}

	return nil, lastErr
}

func (s *service) OnProfileEdited(ctx context.Context, user *profile.Profile) ([]int64, error) {
	rels, err := s.repo.GetAllForProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	var established []int64
	for _, rel := range rels {
		counterpartID, err := rel.CounterpartID(user.ID)
		if err != nil {
			return nil, err
		}

		switch rel.Status {
		case StatusEstablished:
			established = append(established, counterpartID)
		case StatusWait:
			// An edit invalidates an unresolved pending match; the next
			// selection starts fresh.
			if err := s.repo.Delete(ctx, rel.ID); err != nil {
				return nil, err
			}
		}
	}
	return established, nil
}
