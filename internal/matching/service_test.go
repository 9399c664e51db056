package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpediem-app/carpediem-backend/internal/apperr"
)

func newTestService(t *testing.T) (Service, *fakeRelationshipRepo, *fakeProfileRepo) {
	t.Helper()

	alice := testProfile(1, "Alice", 25, "female", "male", 55.75, 37.62)
	bob := testProfile(2, "Bob", 26, "male", "female", 59.94, 30.31)

	rels := newFakeRelationshipRepo()
	profiles := newFakeProfileRepo(alice, bob)
	svc := NewService(rels, profiles, NewSelector(rels, profiles, 5, 10))
	return svc, rels, profiles
}

func openPair(t *testing.T, rels *fakeRelationshipRepo, a, b int64) *Relationship {
	t.Helper()
	rel := &Relationship{
		Profile1ID:    a,
		Profile2ID:    b,
		Profile1State: SideWait,
		Profile2State: SideWait,
		Status:        StatusWait,
	}
	require.NoError(t, rels.Create(context.Background(), rel))
	return rel
}

func TestEvaluateFirstLikeKeepsPairOpen(t *testing.T) {
	svc, rels, profiles := newTestService(t)
	openPair(t, rels, 1, 2)

	alice, _ := profiles.GetByID(context.Background(), 1)
	result, err := svc.Evaluate(context.Background(), alice, 2, SideLike)
	require.NoError(t, err)

	assert.Equal(t, StatusWait, result.Status)
	assert.Equal(t, SideWait, result.OtherState)
	assert.Equal(t, int64(2), result.Counterpart.ID)
}

func TestEvaluateMutualLikeEstablishes(t *testing.T) {
	svc, rels, profiles := newTestService(t)
	openPair(t, rels, 1, 2)

	alice, _ := profiles.GetByID(context.Background(), 1)
	bob, _ := profiles.GetByID(context.Background(), 2)

	_, err := svc.Evaluate(context.Background(), alice, 2, SideLike)
	require.NoError(t, err)

	result, err := svc.Evaluate(context.Background(), bob, 1, SideLike)
	require.NoError(t, err)

	assert.Equal(t, StatusEstablished, result.Status)
	assert.Equal(t, SideLike, result.OtherState)
	assert.Equal(t, int64(1), result.Counterpart.ID)
}

func TestEvaluatePassRefuses(t *testing.T) {
	svc, rels, profiles := newTestService(t)
	openPair(t, rels, 1, 2)

	alice, _ := profiles.GetByID(context.Background(), 1)
	bob, _ := profiles.GetByID(context.Background(), 2)

	_, err := svc.Evaluate(context.Background(), alice, 2, SideLike)
	require.NoError(t, err)

	result, err := svc.Evaluate(context.Background(), bob, 1, SidePass)
	require.NoError(t, err)
	assert.Equal(t, StatusRefused, result.Status)
}

func TestEvaluateRejectsSecondChoice(t *testing.T) {
	svc, rels, profiles := newTestService(t)
	rel := openPair(t, rels, 1, 2)
	rel.Profile1State = SideLike
	rels.rels[rel.ID] = rel

	alice, _ := profiles.GetByID(context.Background(), 1)
	_, err := svc.Evaluate(context.Background(), alice, 2, SidePass)
	require.Error(t, err)

	recognized, ok := apperr.Recognized(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindChoiceAreMade, recognized.Kind)
	assert.Equal(t, "Choice already made", recognized.Message)
}

func TestEvaluateRejectsDecidedRelationship(t *testing.T) {
	svc, rels, profiles := newTestService(t)
	rel := openPair(t, rels, 1, 2)
	rel.Profile1State = SideLike
	rel.Profile2State = SideLike
	rel.Status = StatusEstablished
	rels.rels[rel.ID] = rel

	alice, _ := profiles.GetByID(context.Background(), 1)
	_, err := svc.Evaluate(context.Background(), alice, 2, SideLike)
	require.Error(t, err)

	recognized, ok := apperr.Recognized(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindRelationshipsAreDefined, recognized.Kind)
	assert.Equal(t, "Relationship already decided", recognized.Message)
}

func TestEvaluateWithoutRelationship(t *testing.T) {
	svc, _, profiles := newTestService(t)

	alice, _ := profiles.GetByID(context.Background(), 1)
	_, err := svc.Evaluate(context.Background(), alice, 2, SideLike)
	require.Error(t, err)

	recognized, ok := apperr.Recognized(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalidProfile, recognized.Kind)
	assert.Equal(t, "No relationship with this profile", recognized.Message)
}

func TestEvaluateRejectsInvalidDecision(t *testing.T) {
	svc, rels, profiles := newTestService(t)
	openPair(t, rels, 1, 2)

	alice, _ := profiles.GetByID(context.Background(), 1)
	_, err := svc.Evaluate(context.Background(), alice, 2, SideWait)
	require.Error(t, err)

	recognized, ok := apperr.Recognized(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalidRequestData, recognized.Kind)
}

func TestOnProfileEdited(t *testing.T) {
	svc, rels, profiles := newTestService(t)

	carl := testProfile(3, "Carl", 24, "male", "female", 48.85, 2.35)
	require.NoError(t, profiles.Update(context.Background(), carl))

	established := openPair(t, rels, 1, 2)
	established.Profile1State = SideLike
	established.Profile2State = SideLike
	established.Status = StatusEstablished
	rels.rels[established.ID] = established

	openPair(t, rels, 1, 3)

	alice, _ := profiles.GetByID(context.Background(), 1)
	counterparts, err := svc.OnProfileEdited(context.Background(), alice)
	require.NoError(t, err)

	// The established counterpart gets notified.
	assert.Equal(t, []int64{2}, counterparts)

	// The undecided pair is invalidated.
	_, err = rels.GetForPair(context.Background(), 1, 3)
	assert.Equal(t, ErrNotFound, err)
}
