// internal/api/handlers.go
// Method handlers. Each one maps a typed request onto the domain services
// and shapes the reply envelope; notification fan-out happens here so the
// domain services stay free of delivery concerns.

package api

import (
	"context"
	"log"
	"net/http"

	"github.com/carpediem-app/carpediem-backend/internal/apperr"
	"github.com/carpediem-app/carpediem-backend/internal/dispatch"
	"github.com/carpediem-app/carpediem-backend/internal/matching"
	"github.com/carpediem-app/carpediem-backend/internal/profile"
	"github.com/carpediem-app/carpediem-backend/internal/realtime"
	"github.com/carpediem-app/carpediem-backend/internal/session"
	"github.com/carpediem-app/carpediem-backend/internal/sms"
)

type Handlers struct {
	sessions *session.Manager
	profiles profile.Service
	matches  matching.Service
	sms      sms.Service
	notifier *realtime.Notifier
}

func NewHandlers(sessions *session.Manager, profiles profile.Service, matches matching.Service, smsService sms.Service, notifier *realtime.Notifier) *Handlers {
	return &Handlers{
		sessions: sessions,
		profiles: profiles,
		matches:  matches,
		sms:      smsService,
		notifier: notifier,
	}
}

// Register wires every method into the dispatch registry.
func (h *Handlers) Register(registry *dispatch.Registry) {
	registry.Register("Ping", dispatch.Spec{
		NewRequest: func() interface{} { return &PingRequest{} },
		Handle:     h.ping,
	})
	registry.Register("Login", dispatch.Spec{
		NewRequest: func() interface{} { return &LoginRequest{} },
		Handle:     h.login,
	})
	registry.Register("SmsCodeConfirmation", dispatch.Spec{
		NewRequest: func() interface{} { return &SmsCodeConfirmationRequest{} },
		Handle:     h.smsCodeConfirmation,
	})
	registry.Register("EditProfile", dispatch.Spec{
		NewRequest:   func() interface{} { return &EditProfileRequest{} },
		Handle:       h.editProfile,
		RequiresAuth: true,
	})
	registry.Register("SelectProfile", dispatch.Spec{
		NewRequest:            func() interface{} { return nil },
		Handle:                h.selectProfile,
		RequiresAuth:          true,
		RequiresFilledProfile: true,
	})
	registry.Register("EvaluateProfile", dispatch.Spec{
		NewRequest:            func() interface{} { return &EvaluateProfileRequest{} },
		Handle:                h.evaluateProfile,
		RequiresAuth:          true,
		RequiresFilledProfile: true,
	})
}

// AuthenticateWS authenticates a websocket upgrade with the session cookie
// and the filled-profile policy.
func (h *Handlers) AuthenticateWS(r *http.Request) (int64, error) {
	userID, err := h.sessions.Resolve(r)
	if err != nil {
		return 0, err
	}
	user, err := h.profiles.GetByID(r.Context(), userID)
	if err != nil {
		return 0, apperr.New(apperr.KindInvalidToken, "Invalid token")
	}
	if !user.IsFilled() {
		return 0, apperr.New(apperr.KindFilledProfileOnly, "This method can use only filled profiles")
	}
	return userID, nil
}

func (h *Handlers) ping(ctx context.Context, call *dispatch.Call) (*dispatch.Result, error) {
	req := call.Request.(*PingRequest)
	return &dispatch.Result{Body: OK(req.Text)}, nil
}

// login starts either the password flow or, when no password is supplied,
// the SMS confirmation flow.
func (h *Handlers) login(ctx context.Context, call *dispatch.Call) (*dispatch.Result, error) {
	req := call.Request.(*LoginRequest)

	if req.Password == "" {
		if err := h.sms.SendConfirmationCode(ctx, req.Mobile); err != nil {
			return nil, err
		}
		return &dispatch.Result{Body: OK("SMS-confirmation sent")}, nil
	}

	user, err := h.profiles.Authenticate(ctx, req.Mobile, req.Password)
	if err != nil {
		return nil, err
	}

	token, err := h.sessions.Create(user.ID)
	if err != nil {
		return nil, err
	}
	return &dispatch.Result{Body: OK(""), SessionToken: token}, nil
}

// smsCodeConfirmation trades a valid code for an account (created on first
// use) with a freshly generated password, and starts a session.
func (h *Handlers) smsCodeConfirmation(ctx context.Context, call *dispatch.Call) (*dispatch.Result, error) {
	req := call.Request.(*SmsCodeConfirmationRequest)

	mobile, err := h.sms.PopMobile(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if mobile == 0 {
		return nil, apperr.New(apperr.KindInvalidSmsCode, "SMS-confirmation code is not valid")
	}

	user, newPassword, err := h.profiles.RegisterOrResetPassword(ctx, mobile)
	if err != nil {
		return nil, err
	}

	token, err := h.sessions.Create(user.ID)
	if err != nil {
		return nil, err
	}
	return &dispatch.Result{
		Body: NewUserRegistered{
			ServerResponse: OK(""),
			NewPassword:    newPassword,
		},
		SessionToken: token,
	}, nil
}

func (h *Handlers) editProfile(ctx context.Context, call *dispatch.Call) (*dispatch.Result, error) {
	req := call.Request.(*EditProfileRequest)

	input := &profile.EditInput{
		Name:            req.Name,
		Age:             req.Age,
		Gender:          req.Gender,
		PreferredGender: req.PreferredGender,
		Description:     req.Description,
		Locality:        req.Locality.Locality,
		PhotoRef:        req.Photo,
	}
	if err := h.profiles.Edit(ctx, call.Profile, input); err != nil {
		return nil, err
	}

	counterparts, err := h.matches.OnProfileEdited(ctx, call.Profile)
	if err != nil {
		return nil, err
	}

	// Best effort: an undeliverable edit notice must not fail the edit.
	payload := ProfileEditedNotification{PublicView: call.Profile.Public()}
	for _, counterpartID := range counterparts {
		if err := h.notifier.Deliver(ctx, counterpartID, KindProfileEdited, payload, call.UserID); err != nil {
			log.Printf("failed to notify %d about profile edit: %v", counterpartID, err)
		}
	}

	return &dispatch.Result{Body: OK("")}, nil
}

func (h *Handlers) selectProfile(ctx context.Context, call *dispatch.Call) (*dispatch.Result, error) {
	candidate, err := h.matches.SelectCandidate(ctx, call.Profile)
	if err != nil {
		return nil, err
	}
	return &dispatch.Result{
		Body: SelectedProfile{
			ServerResponse: OK(""),
			PublicView:     candidate.Public(),
		},
	}, nil
}

func (h *Handlers) evaluateProfile(ctx context.Context, call *dispatch.Call) (*dispatch.Result, error) {
	req := call.Request.(*EvaluateProfileRequest)

	result, err := h.matches.Evaluate(ctx, call.Profile, req.ProfileID, matching.SideState(req.Decision))
	if err != nil {
		return nil, err
	}

	switch {
	case result.Status == matching.StatusEstablished:
		// Both liked: reveal the phone numbers to each other.
		toCounterpart := MutualSympathyNotification{MobilePhone: call.Profile.Mobile}
		if err := h.notifier.Deliver(ctx, result.Counterpart.ID, KindMutualSympathy, toCounterpart, call.UserID); err != nil {
			log.Printf("failed to notify %d about mutual sympathy: %v", result.Counterpart.ID, err)
		}
		toActor := MutualSympathyNotification{MobilePhone: result.Counterpart.Mobile}
		if err := h.notifier.Deliver(ctx, call.UserID, KindMutualSympathy, toActor, result.Counterpart.ID); err != nil {
			log.Printf("failed to notify %d about mutual sympathy: %v", call.UserID, err)
		}

	case req.Decision == "like" && result.OtherState == matching.SideWait:
		if err := h.notifier.Deliver(ctx, result.Counterpart.ID, KindLikeNotification, LikeNotification{}, call.UserID); err != nil {
			log.Printf("failed to notify %d about like: %v", result.Counterpart.ID, err)
		}
	}

	return &dispatch.Result{Body: OK("")}, nil
}
