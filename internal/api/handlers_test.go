package api

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpediem-app/carpediem-backend/internal/apperr"
	"github.com/carpediem-app/carpediem-backend/internal/dispatch"
	"github.com/carpediem-app/carpediem-backend/internal/geo"
	"github.com/carpediem-app/carpediem-backend/internal/matching"
	"github.com/carpediem-app/carpediem-backend/internal/profile"
	"github.com/carpediem-app/carpediem-backend/internal/realtime"
	"github.com/carpediem-app/carpediem-backend/internal/session"
)

type fakeProfileService struct {
	users      map[int64]*profile.Profile
	lastEdit   *profile.EditInput
	authErr    error
	registered *profile.Profile
}

func (f *fakeProfileService) GetByID(ctx context.Context, id int64) (*profile.Profile, error) {
	p, ok := f.users[id]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileService) Authenticate(ctx context.Context, mobile int64, password string) (*profile.Profile, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	for _, p := range f.users {
		if p.Mobile == mobile {
			return p, nil
		}
	}
	return nil, apperr.New(apperr.KindIncorrectPassword, "Invalid user or password")
}

func (f *fakeProfileService) RegisterOrResetPassword(ctx context.Context, mobile int64) (*profile.Profile, string, error) {
	if f.registered == nil {
		f.registered = &profile.Profile{ID: 99, Mobile: mobile}
		f.users[f.registered.ID] = f.registered
	}
	return f.registered, "generated-pass", nil
}

func (f *fakeProfileService) Edit(ctx context.Context, user *profile.Profile, input *profile.EditInput) error {
	f.lastEdit = input
	user.Name = input.Name
	return nil
}

type fakeMatchingService struct {
	candidate      *profile.Profile
	selectErr      error
	evaluateResult *matching.EvaluationResult
	evaluateErr    error
	editedCounters []int64
}

func (f *fakeMatchingService) SelectCandidate(ctx context.Context, user *profile.Profile) (*profile.Profile, error) {
	return f.candidate, f.selectErr
}

func (f *fakeMatchingService) Evaluate(ctx context.Context, user *profile.Profile, targetID int64, decision matching.SideState) (*matching.EvaluationResult, error) {
	return f.evaluateResult, f.evaluateErr
}

func (f *fakeMatchingService) OnProfileEdited(ctx context.Context, user *profile.Profile) ([]int64, error) {
	return f.editedCounters, nil
}

type fakeSmsService struct {
	sentTo  []int64
	byCode  map[int64]int64
	sendErr error
}

func (f *fakeSmsService) SendConfirmationCode(ctx context.Context, mobile int64) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentTo = append(f.sentTo, mobile)
	return nil
}

func (f *fakeSmsService) PopMobile(ctx context.Context, code int64) (int64, error) {
	mobile := f.byCode[code]
	delete(f.byCode, code)
	return mobile, nil
}

// fakePendingRepo collects persisted notifications; with no live
// connections every delivery lands here.
type fakePendingRepo struct {
	messages []*realtime.PendingMessage
	nextID   int64
}

func (f *fakePendingRepo) Save(ctx context.Context, msg *realtime.PendingMessage) error {
	f.nextID++
	msg.ID = f.nextID
	msg.CreatedAt = time.Unix(f.nextID, 0)
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakePendingRepo) TakeAll(ctx context.Context, recipientID int64) ([]*realtime.PendingMessage, error) {
	return nil, nil
}

type handlerEnv struct {
	handlers *Handlers
	profiles *fakeProfileService
	matches  *fakeMatchingService
	sms      *fakeSmsService
	pending  *fakePendingRepo
}

func newHandlerEnv() *handlerEnv {
	alice := &profile.Profile{ID: 1, Name: "Alice", Photo: "a.jpg", Mobile: 79001111111}
	bob := &profile.Profile{ID: 2, Name: "Bob", Photo: "b.jpg", Mobile: 79002222222}

	profiles := &fakeProfileService{users: map[int64]*profile.Profile{1: alice, 2: bob}}
	matches := &fakeMatchingService{}
	smsSvc := &fakeSmsService{byCode: map[int64]int64{}}
	pending := &fakePendingRepo{}

	sessions := session.NewManager("test-secret", "TEST_SESSION", time.Hour, false)
	notifier := realtime.NewNotifier(realtime.NewHub(), pending)

	return &handlerEnv{
		handlers: NewHandlers(sessions, profiles, matches, smsSvc, notifier),
		profiles: profiles,
		matches:  matches,
		sms:      smsSvc,
		pending:  pending,
	}
}

func (e *handlerEnv) callOf(userID int64, req interface{}) *dispatch.Call {
	call := &dispatch.Call{Request: req, UserID: userID}
	if userID != 0 {
		call.Profile = e.profiles.users[userID]
	}
	return call
}

func TestPingEchoesText(t *testing.T) {
	env := newHandlerEnv()

	result, err := env.handlers.ping(context.Background(), env.callOf(0, &PingRequest{Text: "hello"}))
	require.NoError(t, err)
	assert.Equal(t, OK("hello"), result.Body)
}

func TestLoginWithoutPasswordSendsSms(t *testing.T) {
	env := newHandlerEnv()

	result, err := env.handlers.login(context.Background(),
		env.callOf(0, &LoginRequest{Mobile: 79005555555}))
	require.NoError(t, err)

	assert.Equal(t, OK("SMS-confirmation sent"), result.Body)
	assert.Empty(t, result.SessionToken)
	assert.Equal(t, []int64{79005555555}, env.sms.sentTo)
}

func TestLoginWithPasswordStartsSession(t *testing.T) {
	env := newHandlerEnv()

	result, err := env.handlers.login(context.Background(),
		env.callOf(0, &LoginRequest{Mobile: 79001111111, Password: "secret"}))
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionToken)
}

func TestLoginWithWrongPassword(t *testing.T) {
	env := newHandlerEnv()
	env.profiles.authErr = apperr.New(apperr.KindIncorrectPassword, "Invalid user or password")

	_, err := env.handlers.login(context.Background(),
		env.callOf(0, &LoginRequest{Mobile: 79001111111, Password: "wrong"}))
	require.Error(t, err)

	recognized, ok := apperr.Recognized(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid user or password", recognized.Message)
}

func TestSmsCodeConfirmation(t *testing.T) {
	env := newHandlerEnv()
	env.sms.byCode[123456] = 79005555555

	result, err := env.handlers.smsCodeConfirmation(context.Background(),
		env.callOf(0, &SmsCodeConfirmationRequest{Code: 123456}))
	require.NoError(t, err)

	body, ok := result.Body.(NewUserRegistered)
	require.True(t, ok)
	assert.Equal(t, "OK", body.Status)
	assert.Equal(t, "generated-pass", body.NewPassword)
	assert.NotEmpty(t, result.SessionToken)

	// The code is consumed; replaying it must fail.
	_, err = env.handlers.smsCodeConfirmation(context.Background(),
		env.callOf(0, &SmsCodeConfirmationRequest{Code: 123456}))
	require.Error(t, err)

	recognized, ok := apperr.Recognized(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalidSmsCode, recognized.Kind)
	assert.Equal(t, "SMS-confirmation code is not valid", recognized.Message)
}

func TestEditProfileNotifiesEstablishedCounterparts(t *testing.T) {
	env := newHandlerEnv()
	env.matches.editedCounters = []int64{2}

	req := &EditProfileRequest{
		Name:            "Alice",
		Age:             25,
		Gender:          "female",
		PreferredGender: "male",
		Locality:        Locality{Locality: geo.Locality{Name: "Moscow"}},
	}
	result, err := env.handlers.editProfile(context.Background(), env.callOf(1, req))
	require.NoError(t, err)
	assert.Equal(t, OK(""), result.Body)

	require.NotNil(t, env.profiles.lastEdit)
	assert.Equal(t, "Moscow", env.profiles.lastEdit.Locality.Name)

	// Nobody is connected, so the notice lands in the durable store.
	require.Len(t, env.pending.messages, 1)
	msg := env.pending.messages[0]
	assert.Equal(t, int64(2), msg.RecipientID)
	assert.Equal(t, int64(1), msg.SenderID)
	assert.Equal(t, KindProfileEdited, msg.Kind)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "Alice", payload["name"])
}

func TestSelectProfileReturnsPublicView(t *testing.T) {
	env := newHandlerEnv()
	env.matches.candidate = env.profiles.users[2]

	result, err := env.handlers.selectProfile(context.Background(), env.callOf(1, nil))
	require.NoError(t, err)

	body, ok := result.Body.(SelectedProfile)
	require.True(t, ok)
	assert.Equal(t, "OK", body.Status)
	assert.Equal(t, int64(2), body.ID)
	assert.Equal(t, "Bob", body.Name)

	// The phone number never leaks through the public view.
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "79002222222")
}

func TestSelectProfileNoCandidates(t *testing.T) {
	env := newHandlerEnv()
	env.matches.selectErr = apperr.New(apperr.KindNoCandidates, "No suitable candidates found")

	_, err := env.handlers.selectProfile(context.Background(), env.callOf(1, nil))
	require.Error(t, err)

	recognized, ok := apperr.Recognized(err)
	require.True(t, ok)
	assert.Equal(t, "No suitable candidates found", recognized.Message)
}

func TestEvaluateLikeNotifiesCounterpart(t *testing.T) {
	env := newHandlerEnv()
	env.matches.evaluateResult = &matching.EvaluationResult{
		Status:      matching.StatusWait,
		OtherState:  matching.SideWait,
		Counterpart: env.profiles.users[2],
	}

	req := &EvaluateProfileRequest{ProfileID: 2, Decision: "like"}
	result, err := env.handlers.evaluateProfile(context.Background(), env.callOf(1, req))
	require.NoError(t, err)
	assert.Equal(t, OK(""), result.Body)

	require.Len(t, env.pending.messages, 1)
	msg := env.pending.messages[0]
	assert.Equal(t, int64(2), msg.RecipientID)
	assert.Equal(t, int64(1), msg.SenderID)
	assert.Equal(t, KindLikeNotification, msg.Kind)
}

func TestEvaluatePassStaysSilent(t *testing.T) {
	env := newHandlerEnv()
	env.matches.evaluateResult = &matching.EvaluationResult{
		Status:      matching.StatusWait,
		OtherState:  matching.SideWait,
		Counterpart: env.profiles.users[2],
	}

	req := &EvaluateProfileRequest{ProfileID: 2, Decision: "pass"}
	_, err := env.handlers.evaluateProfile(context.Background(), env.callOf(1, req))
	require.NoError(t, err)
	assert.Empty(t, env.pending.messages)
}

func TestEvaluateMutualSympathyRevealsPhones(t *testing.T) {
	env := newHandlerEnv()
	env.matches.evaluateResult = &matching.EvaluationResult{
		Status:      matching.StatusEstablished,
		OtherState:  matching.SideLike,
		Counterpart: env.profiles.users[2],
	}

	req := &EvaluateProfileRequest{ProfileID: 2, Decision: "like"}
	_, err := env.handlers.evaluateProfile(context.Background(), env.callOf(1, req))
	require.NoError(t, err)

	require.Len(t, env.pending.messages, 2)
	sort.Slice(env.pending.messages, func(i, j int) bool {
		return env.pending.messages[i].RecipientID < env.pending.messages[j].RecipientID
	})

	toActor := env.pending.messages[0]
	assert.Equal(t, int64(1), toActor.RecipientID)
	assert.Equal(t, KindMutualSympathy, toActor.Kind)
	assert.JSONEq(t, `{"mobile_phone":79002222222}`, string(toActor.Payload))

	toCounterpart := env.pending.messages[1]
	assert.Equal(t, int64(2), toCounterpart.RecipientID)
	assert.JSONEq(t, `{"mobile_phone":79001111111}`, string(toCounterpart.Payload))
}

// The comment key is part of the envelope even when empty.
func TestServerResponseAlwaysSerializesComment(t *testing.T) {
	encoded, err := json.Marshal(OK(""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"OK","comment":""}`, string(encoded))
}

func TestLocalityDecoding(t *testing.T) {
	t.Run("name", func(t *testing.T) {
		var l Locality
		require.NoError(t, json.Unmarshal([]byte(`"Moscow"`), &l))
		assert.Equal(t, "Moscow", l.Name)
		assert.Nil(t, l.Point)
	})

	t.Run("coordinates", func(t *testing.T) {
		var l Locality
		require.NoError(t, json.Unmarshal([]byte(`[55.75, 37.62]`), &l))
		require.NotNil(t, l.Point)
		assert.Equal(t, geo.Point{Lat: 55.75, Lon: 37.62}, *l.Point)
	})

	t.Run("garbage", func(t *testing.T) {
		var l Locality
		assert.Error(t, json.Unmarshal([]byte(`{"city": true}`), &l))
	})
}

// Registration sanity: every public method name resolves.
func TestRegisterExposesAllMethods(t *testing.T) {
	env := newHandlerEnv()

	registry := dispatch.NewRegistry()
	env.handlers.Register(registry)

	for _, name := range []string{"Ping", "Login", "SmsCodeConfirmation", "EditProfile", "SelectProfile", "EvaluateProfile"} {
		_, ok := registry.Lookup(name)
		assert.True(t, ok, "method %s not registered", name)
	}
}
