// internal/api/notifications.go
// Payload kinds pushed over the realtime channel. The delivery layer tags
// each payload with its kind and the sender id.

package api

import (
	"github.com/carpediem-app/carpediem-backend/internal/profile"
)

const (
	KindProfileEdited    = "ProfileEdited"
	KindLikeNotification = "LikeNotification"
	KindMutualSympathy   = "MutualSympathy"
)

// ProfileEditedNotification tells an established counterpart that this
// profile changed, carrying its fresh public fields.
type ProfileEditedNotification struct {
	profile.PublicView
}

// LikeNotification has no body; the sender id identifies who liked.
type LikeNotification struct{}

// MutualSympathyNotification reveals the counterpart's phone number once
// both sides liked each other.
type MutualSympathyNotification struct {
	MobilePhone int64 `json:"mobile_phone"`
}
