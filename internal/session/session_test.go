package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpediem-app/carpediem-backend/internal/apperr"
)

const testCookie = "TEST_SESSION"

func requestWithToken(cookieName, token string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api", nil)
	r.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	return r
}

func TestCreateAndResolve(t *testing.T) {
	m := NewManager("secret", testCookie, time.Hour, false)

	token, err := m.Create(42)
	require.NoError(t, err)

	userID, err := m.Resolve(requestWithToken(testCookie, token))
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestResolveMissingCookie(t *testing.T) {
	m := NewManager("secret", testCookie, time.Hour, false)

	_, err := m.Resolve(httptest.NewRequest(http.MethodPost, "/api", nil))
	require.Error(t, err)

	recognized, ok := apperr.Recognized(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalidToken, recognized.Kind)
	assert.Equal(t, "Invalid token", recognized.Message)
}

func TestResolveTamperedToken(t *testing.T) {
	m := NewManager("secret", testCookie, time.Hour, false)
	other := NewManager("other-secret", testCookie, time.Hour, false)

	token, err := other.Create(42)
	require.NoError(t, err)

	_, err = m.Resolve(requestWithToken(testCookie, token))
	require.Error(t, err)

	recognized, ok := apperr.Recognized(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalidToken, recognized.Kind)
}

func TestResolveExpiredToken(t *testing.T) {
	m := NewManager("secret", testCookie, -time.Minute, false)

	token, err := m.Create(42)
	require.NoError(t, err)

	_, err = m.Resolve(requestWithToken(testCookie, token))
	require.Error(t, err)
}

func TestAttachSetsCookie(t *testing.T) {
	m := NewManager("secret", testCookie, time.Hour, false)

	token, err := m.Create(42)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	m.Attach(w, token)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookie, cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}
