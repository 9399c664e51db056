// internal/api/requests.go
// Typed request shapes for every API method. The dispatcher decodes the
// call body into these and validates them before the handler runs.

package api

import (
	"encoding/json"
	"errors"

	"github.com/carpediem-app/carpediem-backend/internal/geo"
)

type PingRequest struct {
	Text string `json:"text"`
}

type LoginRequest struct {
	Mobile   int64  `json:"mobile" validate:"required,gt=0"`
	Password string `json:"password"`
}

type SmsCodeConfirmationRequest struct {
	Code int64 `json:"code" validate:"required,gt=0"`
}

type EditProfileRequest struct {
	Name            string   `json:"name" validate:"required"`
	Age             int      `json:"age" validate:"required"`
	Gender          string   `json:"gender" validate:"required"`
	PreferredGender string   `json:"preferred_gender" validate:"required"`
	Description     string   `json:"description"`
	Locality        Locality `json:"locality"`
	Photo           string   `json:"photo"`
}

type EvaluateProfileRequest struct {
	ProfileID int64  `json:"profile_id" validate:"required,gt=0"`
	Decision  string `json:"decision" validate:"required,oneof=like pass"`
}

// Locality accepts either a place name or a [lat, lon] pair.
type Locality struct {
	geo.Locality
}

func (l *Locality) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		l.Name = name
		return nil
	}

	var coords [2]float64
	if err := json.Unmarshal(data, &coords); err == nil {
		l.Point = &geo.Point{Lat: coords[0], Lon: coords[1]}
		return nil
	}

	return errors.New("locality must be a place name or a [lat, lon] pair")
}

// IsZero reports whether no locality was supplied.
func (l *Locality) IsZero() bool {
	return l.Name == "" && l.Point == nil
}
