// internal/session/session.go
// Cookie-borne sessions. The token is a signed JWT carrying the user id, the
// Go analog of a self-contained encrypted session cookie: resolving a session
// needs no server-side store.

package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/carpediem-app/carpediem-backend/internal/apperr"
)

// Claims carries the authenticated user id inside the session token.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Manager creates, resolves and persists session tokens.
type Manager struct {
	secret     []byte
	cookieName string
	expiry     time.Duration
	secure     bool
}

// NewManager creates a session manager.
func NewManager(secret, cookieName string, expiry time.Duration, secure bool) *Manager {
	return &Manager{
		secret:     []byte(secret),
		cookieName: cookieName,
		expiry:     expiry,
		secure:     secure,
	}
}

// Create issues a new session token for the given user.
func (m *Manager) Create(userID int64) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Resolve extracts the authenticated user id from the request's session
// cookie. A missing cookie, a bad signature, an expired token or a token
// without a user id all yield an InvalidToken error.
func (m *Manager) Resolve(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return 0, apperr.New(apperr.KindInvalidToken, "Invalid token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid || claims.UserID == 0 {
		return 0, apperr.New(apperr.KindInvalidToken, "Invalid token")
	}

	return claims.UserID, nil
}

// Attach persists the session token on the outgoing response as a cookie.
func (m *Manager) Attach(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(m.expiry),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
