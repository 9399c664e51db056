package profile

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpediem-app/carpediem-backend/internal/apperr"
	"github.com/carpediem-app/carpediem-backend/internal/geo"
)

func testLimits() Limits {
	return Limits{
		NameMaxLen:        50,
		DescriptionMaxLen: 500,
		MinUserAge:        18,
		PasswordLength:    8,
		BCryptCost:        4, // cheapest cost, tests only
	}
}

func validInput() *EditInput {
	return &EditInput{
		Name:            "Alice",
		Age:             25,
		Gender:          GenderFemale,
		PreferredGender: GenderMale,
		Description:     "Hi there",
		Locality:        geo.Locality{Name: "Moscow"},
	}
}

func TestValidateEditInput(t *testing.T) {
	svc := &service{limits: testLimits()}

	tests := []struct {
		name    string
		mutate  func(*EditInput)
		comment string
	}{
		{
			"empty name",
			func(in *EditInput) { in.Name = "" },
			"Name must be alphabetical and contain <50 symbols",
		},
		{
			"non-alphabetic name",
			func(in *EditInput) { in.Name = "Alice42" },
			"Name must be alphabetical and contain <50 symbols",
		},
		{
			"overlong name",
			func(in *EditInput) { in.Name = strings.Repeat("a", 51) },
			"Name must be alphabetical and contain <50 symbols",
		},
		{
			"underage",
			func(in *EditInput) { in.Age = 17 },
			"Only 18 age can use service",
		},
		{
			"unknown gender",
			func(in *EditInput) { in.Gender = "other" },
			"Gender must be inscribed correctly",
		},
		{
			"unknown preferred gender",
			func(in *EditInput) { in.PreferredGender = "everyone" },
			"Preferred gender must be inscribed correctly",
		},
		{
			"overlong description",
			func(in *EditInput) { in.Description = strings.Repeat("a", 500) },
			"Description must be utf-8 encoded and contain <500 symbols",
		},
		{
			"missing locality",
			func(in *EditInput) { in.Locality = geo.Locality{} },
			"Locality is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)

			err := svc.validate(input)
			require.Error(t, err)

			recognized, ok := apperr.Recognized(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindInvalidRequestData, recognized.Kind)
			assert.Equal(t, tt.comment, recognized.Message)
		})
	}
}

// Length limits count characters, not bytes: a 50-character Cyrillic name
// is 100 bytes and must still pass.
func TestValidateCountsCharactersNotBytes(t *testing.T) {
	svc := &service{limits: testLimits()}

	cyrillic := validInput()
	cyrillic.Name = strings.Repeat("ж", 50)
	cyrillic.Description = strings.Repeat("ж", 499)
	assert.NoError(t, svc.validate(cyrillic))

	tooLong := validInput()
	tooLong.Name = strings.Repeat("ж", 51)
	err := svc.validate(tooLong)
	require.Error(t, err)
	recognized, ok := apperr.Recognized(err)
	require.True(t, ok)
	assert.Equal(t, "Name must be alphabetical and contain <50 symbols", recognized.Message)

	tooChatty := validInput()
	tooChatty.Description = strings.Repeat("ж", 500)
	err = svc.validate(tooChatty)
	require.Error(t, err)
	recognized, ok = apperr.Recognized(err)
	require.True(t, ok)
	assert.Equal(t, "Description must be utf-8 encoded and contain <500 symbols", recognized.Message)
}

func TestValidateAcceptsGoodInput(t *testing.T) {
	svc := &service{limits: testLimits()}

	assert.NoError(t, svc.validate(validInput()))

	coords := validInput()
	coords.Locality = geo.Locality{Point: &geo.Point{Lat: 55.75, Lon: 37.62}}
	coords.PreferredGender = GenderAny
	assert.NoError(t, svc.validate(coords))
}

// fakeRepo backs the credential flow tests.
type fakeRepo struct {
	byMobile map[int64]*Profile
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byMobile: make(map[int64]*Profile)}
}

func (f *fakeRepo) GetByID(ctx context.Context, id int64) (*Profile, error) {
	for _, p := range f.byMobile {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) GetByMobile(ctx context.Context, mobile int64) (*Profile, error) {
	p, ok := f.byMobile[mobile]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) Create(ctx context.Context, p *Profile) error {
	f.nextID++
	p.ID = f.nextID
	f.byMobile[p.Mobile] = p
	return nil
}

func (f *fakeRepo) Update(ctx context.Context, p *Profile) error {
	f.byMobile[p.Mobile] = p
	return nil
}

func (f *fakeRepo) FindCandidates(ctx context.Context, q *CandidateQuery) ([]*Profile, error) {
	return nil, nil
}

func TestRegisterThenAuthenticate(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, testLimits())
	ctx := context.Background()

	user, password, err := svc.RegisterOrResetPassword(ctx, 79001234567)
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.Len(t, password, 8)

	authed, err := svc.Authenticate(ctx, 79001234567, password)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, testLimits())
	ctx := context.Background()

	_, password, err := svc.RegisterOrResetPassword(ctx, 79001234567)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, 79001234567, password+"x")
	require.Error(t, err)

	recognized, ok := apperr.Recognized(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindIncorrectPassword, recognized.Kind)
	assert.Equal(t, "Invalid user or password", recognized.Message)
}

func TestAuthenticateUnknownMobile(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, testLimits())

	_, err := svc.Authenticate(context.Background(), 79000000000, "whatever")
	require.Error(t, err)

	recognized, ok := apperr.Recognized(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid user or password", recognized.Message)
}

func TestResetPasswordInvalidatesOldOne(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, testLimits())
	ctx := context.Background()

	user, oldPassword, err := svc.RegisterOrResetPassword(ctx, 79001234567)
	require.NoError(t, err)

	again, newPassword, err := svc.RegisterOrResetPassword(ctx, 79001234567)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, err = svc.Authenticate(ctx, 79001234567, newPassword)
	assert.NoError(t, err)

	if oldPassword != newPassword {
		_, err = svc.Authenticate(ctx, 79001234567, oldPassword)
		assert.Error(t, err)
	}
}

func TestIsFilled(t *testing.T) {
	p := &Profile{}
	assert.False(t, p.IsFilled())

	p.Name = "Alice"
	assert.False(t, p.IsFilled())

	p.Photo = "photo.jpg"
	assert.True(t, p.IsFilled())
}
