// internal/profile/service.go

package profile

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/carpediem-app/carpediem-backend/internal/apperr"
	"github.com/carpediem-app/carpediem-backend/internal/geo"
	"github.com/carpediem-app/carpediem-backend/internal/upload"
)

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Limits are the profile field constraints enforced on edit.
type Limits struct {
	NameMaxLen        int
	DescriptionMaxLen int
	MinUserAge        int
	PasswordLength    int
	BCryptCost        int
}

// EditInput carries the validated profile-edit fields.
type EditInput struct {
	Name            string
	Age             int
	Gender          string
	PreferredGender string
	Description     string
	Locality        geo.Locality
	PhotoRef        string
}

type Service interface {
	GetByID(ctx context.Context, id int64) (*Profile, error)
	Authenticate(ctx context.Context, mobile int64, password string) (*Profile, error)
	RegisterOrResetPassword(ctx context.Context, mobile int64) (*Profile, string, error)
	Edit(ctx context.Context, user *Profile, input *EditInput) error
}

type service struct {
	repo    Repository
	geo     *geo.Client
	uploads *upload.Manager
	limits  Limits
}

func NewService(repo Repository, geoClient *geo.Client, uploads *upload.Manager, limits Limits) Service {
	return &service{
		repo:    repo,
		geo:     geoClient,
		uploads: uploads,
		limits:  limits,
	}
}

func (s *service) GetByID(ctx context.Context, id int64) (*Profile, error) {
	return s.repo.GetByID(ctx, id)
}

// Authenticate verifies a mobile/password pair against the stored credential
// hash. Unknown mobiles and wrong passwords are indistinguishable to callers.
func (s *service) Authenticate(ctx context.Context, mobile int64, password string) (*Profile, error) {
	user, err := s.repo.GetByMobile(ctx, mobile)
	if err == ErrNotFound {
		return nil, apperr.New(apperr.KindIncorrectPassword, "Invalid user or password")
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.New(apperr.KindIncorrectPassword, "Invalid user or password")
	}
	return user, nil
}

// RegisterOrResetPassword creates the profile for a confirmed mobile number
// if it does not exist yet, generates a fresh password either way, and
// returns it in the clear for one-time delivery to the client.
func (s *service) RegisterOrResetPassword(ctx context.Context, mobile int64) (*Profile, string, error) {
	password, err := generatePassword(s.limits.PasswordLength)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.limits.BCryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.GetByMobile(ctx, mobile)
	if err == ErrNotFound {
		user = &Profile{Mobile: mobile, PasswordHash: string(hash)}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, "", err
		}
		return user, password, nil
	}
	if err != nil {
		return nil, "", err
	}

	user.PasswordHash = string(hash)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, "", err
	}
	return user, password, nil
}

// Edit validates the input, resolves the locality and persists the profile.
// Relationship side effects of an edit belong to the matching service.
func (s *service) Edit(ctx context.Context, user *Profile, input *EditInput) error {
	if err := s.validate(input); err != nil {
		return err
	}

	location, err := s.geo.Resolve(ctx, input.Locality)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidRequestData, "Locality could not be resolved", err)
	}

	if input.PhotoRef != "" {
		if err := s.uploads.CompressImage(ctx, input.PhotoRef); err != nil {
			// The original upload is still usable; keep it uncompressed.
			log.Printf("failed to compress photo %s: %v", input.PhotoRef, err)
		}
		user.Photo = input.PhotoRef
	}

	user.Name = input.Name
	user.Age = input.Age
	user.Gender = input.Gender
	user.PreferredGender = input.PreferredGender
	user.Description = input.Description
	user.Lat = location.Coordinates.Lat
	user.Lon = location.Coordinates.Lon
	user.City = location.City
	user.State = location.State
	user.Country = location.Country

	return s.repo.Update(ctx, user)
}

func (s *service) validate(input *EditInput) error {
	if !isAlpha(input.Name) || utf8.RuneCountInString(input.Name) > s.limits.NameMaxLen {
		return apperr.New(apperr.KindInvalidRequestData,
			fmt.Sprintf("Name must be alphabetical and contain <%d symbols", s.limits.NameMaxLen))
	}

	if input.Age < s.limits.MinUserAge {
		return apperr.New(apperr.KindInvalidRequestData, "Only 18 age can use service")
	}

	if input.Gender != GenderMale && input.Gender != GenderFemale {
		return apperr.New(apperr.KindInvalidRequestData, "Gender must be inscribed correctly")
	}

	switch input.PreferredGender {
	case GenderMale, GenderFemale, GenderAny:
	default:
		return apperr.New(apperr.KindInvalidRequestData, "Preferred gender must be inscribed correctly")
	}

	// Limits are in characters, not bytes.
	if !utf8.ValidString(input.Description) || utf8.RuneCountInString(input.Description) >= s.limits.DescriptionMaxLen {
		return apperr.New(apperr.KindInvalidRequestData,
			fmt.Sprintf("Description must be utf-8 encoded and contain <%d symbols", s.limits.DescriptionMaxLen))
	}

	if input.Locality.Name == "" && input.Locality.Point == nil {
		return apperr.New(apperr.KindInvalidRequestData, "Locality is required")
	}

	return nil
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// generatePassword builds a random alphanumeric password.
func generatePassword(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}
