// internal/profile/models.go

package profile

import (
	"errors"
	"time"

	"github.com/carpediem-app/carpediem-backend/internal/geo"
)

// ErrNotFound is returned when no profile matches a lookup.
var ErrNotFound = errors.New("profile not found")

// Gender values. A profile's own gender is male or female; the preferred
// gender additionally allows "any".
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderAny    = "any"
)

// Profile is a registered user's matchable identity and attributes.
// Name and Photo are empty until the user fills their profile.
type Profile struct {
	ID              int64     `db:"id" json:"id"`
	Registered      time.Time `db:"registered" json:"registered"`
	Name            string    `db:"name" json:"name"`
	Age             int       `db:"age" json:"age"`
	Gender          string    `db:"gender" json:"gender"`
	PreferredGender string    `db:"preferred_gender" json:"preferred_gender"`
	Description     string    `db:"description" json:"description"`
	Lat             float64   `db:"lat" json:"lat"`
	Lon             float64   `db:"lon" json:"lon"`
	City            string    `db:"city" json:"city"`
	State           string    `db:"state" json:"state"`
	Country         string    `db:"country" json:"country"`
	Photo           string    `db:"photo" json:"photo"`
	Mobile          int64     `db:"mobile" json:"-"`
	PasswordHash    string    `db:"password_hash" json:"-"`
}

// IsFilled reports whether the profile can take part in matching.
// A profile is filled iff it has both a photo and a name.
func (p *Profile) IsFilled() bool {
	return p.Photo != "" && p.Name != ""
}

// Coordinates returns the profile's geo point.
func (p *Profile) Coordinates() geo.Point {
	return geo.Point{Lat: p.Lat, Lon: p.Lon}
}

// PublicView is the subset of profile fields shown to other users.
type PublicView struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Age             int    `json:"age"`
	Gender          string `json:"gender"`
	PreferredGender string `json:"preferred_gender"`
	Description     string `json:"description"`
	City            string `json:"city"`
	Photo           string `json:"photo"`
}

// Public returns the profile's public view.
func (p *Profile) Public() PublicView {
	return PublicView{
		ID:              p.ID,
		Name:            p.Name,
		Age:             p.Age,
		Gender:          p.Gender,
		PreferredGender: p.PreferredGender,
		Description:     p.Description,
		City:            p.City,
		Photo:           p.Photo,
	}
}
