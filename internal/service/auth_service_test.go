package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainbox/internal/service"
)

const registrationCode = "open-sesame"

// manualClock only moves when advance is called.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newAuth(t *testing.T, code string) (*service.AuthService, *manualClock) {
	t.Helper()
	clock := &manualClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	auth := service.NewAuthService(newStore(t), clock.Now, service.AuthOptions{
		RegistrationCode: code,
		VerificationTTL:  10 * time.Minute,
		SessionTTL:       time.Hour,
	})
	return auth, clock
}

var alice = service.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "correct-horse"}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	auth, _ := newAuth(t, registrationCode)
	ctx := context.Background()

	token, err := auth.VerifyCode(ctx, "", registrationCode)
	require.NoError(t, err)
	assert.NotEmpty(token)

	user, err := auth.Register(ctx, token, alice)
	require.NoError(t, err)
	assert.Equal("alice", user.Username)
	assert.NotEqual(alice.Password, user.PasswordHash)

	// the verification was spent
	_, err = auth.Register(ctx, token, service.RegisterInput{Username: "eve", Email: "eve@example.com", Password: "12345678"})
	assert.Equal(service.KindForbidden, service.KindOf(err))

	session, actor, err := auth.Login(ctx, token, "alice@example.com", alice.Password)
	require.NoError(t, err)
	assert.NotEqual(token, session)
	assert.Equal(user.ID, actor.UserID)

	got, err := auth.Authenticate(ctx, session)
	require.NoError(t, err)
	assert.Equal(actor, got)

	checked, err := auth.CheckAuth(ctx, session)
	require.NoError(t, err)
	require.NotNil(t, checked)
	assert.Equal("alice", checked.Username)

	require.NoError(t, auth.Logout(ctx, session))
	_, err = auth.Authenticate(ctx, session)
	assert.Equal(service.KindUnauthorized, service.KindOf(err))

	checked, err = auth.CheckAuth(ctx, session)
	require.NoError(t, err)
	assert.Nil(checked)
}

func TestRegisterRequiresVerification(t *testing.T) {
	t.Parallel()

	auth, _ := newAuth(t, registrationCode)
	_, err := auth.Register(context.Background(), "", alice)
	assert.Equal(t, service.KindForbidden, service.KindOf(err))
}

func TestVerifyCodeErrors(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	ctx := context.Background()

	auth, _ := newAuth(t, registrationCode)
	_, err := auth.VerifyCode(ctx, "", "  ")
	assert.Equal(service.KindValidation, service.KindOf(err))

	token, err := auth.VerifyCode(ctx, "", registrationCode)
	require.NoError(t, err)
	token, err = auth.VerifyCode(ctx, token, "wrong")
	assert.Equal(service.KindForbidden, service.KindOf(err))
	assert.Equal("Invalid verification code. Please try again.", service.MessageOf(err))

	// a failed attempt revokes the earlier success
	_, err = auth.Register(ctx, token, alice)
	assert.Equal(service.KindForbidden, service.KindOf(err))

	disabled, _ := newAuth(t, "")
	_, err = disabled.VerifyCode(ctx, "", "anything")
	assert.Equal(service.KindForbidden, service.KindOf(err))
	assert.Equal("Registration is disabled.", service.MessageOf(err))
}

func TestVerificationExpires(t *testing.T) {
	t.Parallel()

	auth, clock := newAuth(t, registrationCode)
	ctx := context.Background()

	token, err := auth.VerifyCode(ctx, "", registrationCode)
	require.NoError(t, err)
	clock.advance(11 * time.Minute)

	_, err = auth.Register(ctx, token, alice)
	assert.Equal(t, service.KindForbidden, service.KindOf(err))
	assert.Contains(t, service.MessageOf(err), "expired")
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	auth, _ := newAuth(t, registrationCode)
	ctx := context.Background()

	cases := []struct {
		name string
		in   service.RegisterInput
		kind service.ErrorKind
	}{
		{"missing fields", service.RegisterInput{Username: "bob"}, service.KindValidation},
		{"bad email", service.RegisterInput{Username: "bob", Email: "bob@", Password: "12345678"}, service.KindValidation},
		{"short password", service.RegisterInput{Username: "bob", Email: "bob@example.com", Password: "123"}, service.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := auth.VerifyCode(ctx, "", registrationCode)
			require.NoError(t, err)
			_, err = auth.Register(ctx, token, tc.in)
			assert.Equal(t, tc.kind, service.KindOf(err))
		})
	}

	token, err := auth.VerifyCode(ctx, "", registrationCode)
	require.NoError(t, err)
	_, err = auth.Register(ctx, token, alice)
	require.NoError(t, err)

	token, err = auth.VerifyCode(ctx, "", registrationCode)
	require.NoError(t, err)
	_, err = auth.Register(ctx, token, service.RegisterInput{Username: "alice", Email: "other@example.com", Password: "12345678"})
	assert.Equal(t, service.KindConflict, service.KindOf(err))
}

func TestLoginFailures(t *testing.T) {
	t.Parallel()

	auth, _ := newAuth(t, registrationCode)
	ctx := context.Background()
	token, err := auth.VerifyCode(ctx, "", registrationCode)
	require.NoError(t, err)
	_, err = auth.Register(ctx, token, alice)
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, "", "alice", "wrong-password")
	assert.Equal(t, service.KindUnauthorized, service.KindOf(err))
	_, _, err = auth.Login(ctx, "", "nobody", "whatever")
	assert.Equal(t, service.KindUnauthorized, service.KindOf(err))
	_, _, err = auth.Login(ctx, "", "", "")
	assert.Equal(t, service.KindValidation, service.KindOf(err))
}

func TestSessionsExpire(t *testing.T) {
	t.Parallel()

	auth, clock := newAuth(t, registrationCode)
	ctx := context.Background()
	token, err := auth.VerifyCode(ctx, "", registrationCode)
	require.NoError(t, err)
	_, err = auth.Register(ctx, token, alice)
	require.NoError(t, err)

	session, _, err := auth.Login(ctx, "", "alice", alice.Password)
	require.NoError(t, err)
	clock.advance(2 * time.Hour)

	_, err = auth.Authenticate(ctx, session)
	assert.Equal(t, service.KindUnauthorized, service.KindOf(err))
}

func TestTelegramLink(t *testing.T) {
	t.Parallel()

	auth, _ := newAuth(t, registrationCode)
	ctx := context.Background()
	token, err := auth.VerifyCode(ctx, "", registrationCode)
	require.NoError(t, err)
	user, err := auth.Register(ctx, token, alice)
	require.NoError(t, err)

	_, err = auth.ActorForTelegram(ctx, 4242)
	assert.Equal(t, service.KindUnauthorized, service.KindOf(err))

	_, err = auth.LinkTelegram(ctx, 4242, "alice", "nope-nope")
	assert.Equal(t, service.KindUnauthorized, service.KindOf(err))

	actor, err := auth.LinkTelegram(ctx, 4242, "alice", alice.Password)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.UserID)

	linked, err := auth.ActorForTelegram(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, actor, linked)

	byName, err := auth.ActorForUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, actor, byName)
}
