// internal/api/responses.go

package api

import (
	"github.com/carpediem-app/carpediem-backend/internal/profile"
)

// ServerResponse is the base reply envelope every method returns. The
// comment key is always serialized, empty or not.
type ServerResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// OK builds a success envelope.
func OK(comment string) ServerResponse {
	return ServerResponse{Status: "OK", Comment: comment}
}

// NewUserRegistered is the reply to a confirmed SMS code: the caller's
// account exists now and this is its generated password.
type NewUserRegistered struct {
	ServerResponse
	NewPassword string `json:"new_password"`
}

// SelectedProfile carries the chosen candidate's public fields.
type SelectedProfile struct {
	ServerResponse
	profile.PublicView
}
