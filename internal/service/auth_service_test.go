package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/cardlink/internal/domain"
	"github.com/diagnosis/cardlink/internal/platform/hash"
	"github.com/diagnosis/cardlink/internal/platform/ratelimit"
	"github.com/diagnosis/cardlink/internal/platform/session"
	"github.com/diagnosis/cardlink/internal/service"
	"github.com/diagnosis/cardlink/pkg/auth"
	"github.com/diagnosis/cardlink/pkg/config"
	"github.com/diagnosis/cardlink/pkg/events"
)

const testSecret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          testSecret,
			SessionTTL:         24 * time.Hour,
			ResetTokenTTL:      10 * time.Minute,
			VerifyTokenTTL:     100 * 365 * 24 * time.Hour,
			MaxLoginAttempts:   5,
			LockoutDuration:    15 * time.Minute,
			LoginMaxRequests:   100,
			LoginWindow:        time.Hour,
			RecoverMaxRequests: 3,
			RecoverWindow:      time.Hour,
		},
		Frontend: config.FrontendConfig{BaseURL: "http://localhost:5173"},
	}
}

type authFixture struct {
	svc      service.AuthService
	accounts *mockAccountRepo
	sessions *session.Registry
	mailer   *mockMailer
	cfg      *config.Config
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	cfg := testConfig()
	profiles := newMockProfileRepo()
	accounts := newMockAccountRepo(profiles)
	sessions := session.NewRegistry(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	loginLimiter := ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.Auth.LoginMaxRequests,
		Window:      cfg.Auth.LoginWindow,
		MaxFailures: cfg.Auth.MaxLoginAttempts,
		Lockout:     cfg.Auth.LockoutDuration,
	})
	recoverLimiter := ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.Auth.RecoverMaxRequests,
		Window:      cfg.Auth.RecoverWindow,
		MaxFailures: cfg.Auth.MaxLoginAttempts,
		Lockout:     cfg.Auth.LockoutDuration,
	})
	m := &mockMailer{}
	svc := service.NewAuthService(accounts, sessions, loginLimiter, recoverLimiter, m, events.NopPublisher{}, cfg)
	return &authFixture{svc: svc, accounts: accounts, sessions: sessions, mailer: m, cfg: cfg}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := hash.Hash(password)
	require.NoError(t, err)
	return h
}

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "P@ssw0rd1"), true)

	resp, err := f.svc.Login(context.Background(), &domain.LoginRequest{Email: "A@x.com", Password: "P@ssw0rd1"}, "test-agent")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, acc.ID, resp.User.ID)
	assert.True(t, f.sessions.Validate(resp.AccessToken))
}

func TestLoginFailureMessageIsIdentical(t *testing.T) {
	f := newAuthFixture(t)
	f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "P@ssw0rd1"), true)

	_, errWrongPassword := f.svc.Login(context.Background(), &domain.LoginRequest{Email: "a@x.com", Password: "Wr0ng!pass"}, "")
	_, errUnknownEmail := f.svc.Login(context.Background(), &domain.LoginRequest{Email: "nobody@x.com", Password: "Wr0ng!pass"}, "")

	require.Error(t, errWrongPassword)
	require.Error(t, errUnknownEmail)
	assert.Equal(t, errWrongPassword.Error(), errUnknownEmail.Error())
	assert.ErrorIs(t, errWrongPassword, domain.ErrInvalidCredentials)
}

func TestLoginUnsetPasswordRejected(t *testing.T) {
	f := newAuthFixture(t)
	f.accounts.add("a@x.com", domain.RoleUser, "", false)

	_, err := f.svc.Login(context.Background(), &domain.LoginRequest{Email: "a@x.com", Password: "P@ssw0rd1"}, "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginLockoutAfterMaxFailures(t *testing.T) {
	f := newAuthFixture(t)
	f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "P@ssw0rd1"), true)

	for i := 0; i < 5; i++ {
		_, err := f.svc.Login(context.Background(), &domain.LoginRequest{Email: "a@x.com", Password: "Wr0ng!pass"}, "")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	// Correct password no longer helps while locked.
	_, err := f.svc.Login(context.Background(), &domain.LoginRequest{Email: "a@x.com", Password: "P@ssw0rd1"}, "")
	var locked *domain.LockedError
	require.ErrorAs(t, err, &locked)
	assert.Greater(t, locked.Remaining, 0)
}

func TestLoginSuccessResetsFailureCount(t *testing.T) {
	f := newAuthFixture(t)
	f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "P@ssw0rd1"), true)

	for i := 0; i < 4; i++ {
		_, _ = f.svc.Login(context.Background(), &domain.LoginRequest{Email: "a@x.com", Password: "Wr0ng!pass"}, "")
	}
	_, err := f.svc.Login(context.Background(), &domain.LoginRequest{Email: "a@x.com", Password: "P@ssw0rd1"}, "")
	require.NoError(t, err)

	// Counter was reset: four more failures still don't lock.
	for i := 0; i < 4; i++ {
		_, err = f.svc.Login(context.Background(), &domain.LoginRequest{Email: "a@x.com", Password: "Wr0ng!pass"}, "")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
}

func TestForgotPasswordIdenticalForUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "P@ssw0rd1"), true)

	known, err := f.svc.ForgotPassword(context.Background(), &domain.RecoverRequest{Email: "a@x.com"})
	require.NoError(t, err)
	unknown, err := f.svc.ForgotPassword(context.Background(), &domain.RecoverRequest{Email: "nobody@x.com"})
	require.NoError(t, err)

	assert.Equal(t, 600, known.ExpiresIn)
	assert.Equal(t, known, unknown)
	// Mail goes out only for the real account.
	assert.Equal(t, []string{"a@x.com"}, f.mailer.resets)
}

func TestForgotPasswordRateLimited(t *testing.T) {
	f := newAuthFixture(t)

	for i := 0; i < 3; i++ {
		_, err := f.svc.ForgotPassword(context.Background(), &domain.RecoverRequest{Email: "a@x.com"})
		require.NoError(t, err)
	}
	_, err := f.svc.ForgotPassword(context.Background(), &domain.RecoverRequest{Email: "a@x.com"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestForgotPasswordStoresToken(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "P@ssw0rd1"), true)

	_, err := f.svc.ForgotPassword(context.Background(), &domain.RecoverRequest{Email: "a@x.com"})
	require.NoError(t, err)

	require.NotNil(t, acc.ResetToken)
	claims, err := auth.Parse(*acc.ResetToken, testSecret)
	require.NoError(t, err)
	assert.True(t, claims.Reset)
	assert.Equal(t, acc.ID, claims.Sub)
	assert.Contains(t, f.mailer.lastURL, *acc.ResetToken)
}

func resetToken(t *testing.T, f *authFixture, acc *domain.Account) string {
	t.Helper()
	_, err := f.svc.ForgotPassword(context.Background(), &domain.RecoverRequest{Email: acc.Email})
	require.NoError(t, err)
	require.NotNil(t, acc.ResetToken)
	return *acc.ResetToken
}

func TestResetPasswordSuccess(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "Old!pass1"), true)
	token := resetToken(t, f, acc)

	err := f.svc.ResetPassword(context.Background(), &domain.VerifyRequest{
		Token:           token,
		NewPassword:     "N3w!passw",
		ConfirmPassword: "N3w!passw",
	})
	require.NoError(t, err)

	assert.True(t, hash.Verify("N3w!passw", acc.PasswordHash))
	assert.Nil(t, acc.ResetToken)
}

func TestResetPasswordRejectedOnReuse(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "Old!pass1"), true)
	token := resetToken(t, f, acc)

	req := &domain.VerifyRequest{Token: token, NewPassword: "N3w!passw", ConfirmPassword: "N3w!passw"}
	require.NoError(t, f.svc.ResetPassword(context.Background(), req))

	err := f.svc.ResetPassword(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrStaleResetToken)
}

func TestResetPasswordSupersededTokenRejected(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "Old!pass1"), true)

	first := resetToken(t, f, acc)
	second := resetToken(t, f, acc)
	require.NotEqual(t, first, second)

	err := f.svc.ResetPassword(context.Background(), &domain.VerifyRequest{
		Token:           first,
		NewPassword:     "N3w!passw",
		ConfirmPassword: "N3w!passw",
	})
	assert.ErrorIs(t, err, domain.ErrStaleResetToken)
}

func TestResetPasswordInvalidatesSessions(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "Old!pass1"), true)

	login, err := f.svc.Login(context.Background(), &domain.LoginRequest{Email: "a@x.com", Password: "Old!pass1"}, "")
	require.NoError(t, err)
	require.True(t, f.sessions.Validate(login.AccessToken))

	token := resetToken(t, f, acc)
	require.NoError(t, f.svc.ResetPassword(context.Background(), &domain.VerifyRequest{
		Token:           token,
		NewPassword:     "N3w!passw",
		ConfirmPassword: "N3w!passw",
	}))

	assert.False(t, f.sessions.Validate(login.AccessToken))
}

func TestResetPasswordMismatch(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.ResetPassword(context.Background(), &domain.VerifyRequest{
		Token:           "whatever",
		NewPassword:     "N3w!passw",
		ConfirmPassword: "Different1!",
	})
	assert.True(t, domain.IsValidation(err))
}

func TestResetPasswordTooLong(t *testing.T) {
	f := newAuthFixture(t)
	long := "Aa1!" + strings.Repeat("x", 128)

	err := f.svc.ResetPassword(context.Background(), &domain.VerifyRequest{
		Token:           "whatever",
		NewPassword:     long,
		ConfirmPassword: long,
	})
	assert.True(t, domain.IsValidation(err))
}

func TestResetPasswordWrongTokenType(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "Old!pass1"), true)

	// A session token verifies but carries no reset marker.
	token, err := auth.New(acc.ID, acc.Email, acc.Role, false, testSecret, time.Hour)
	require.NoError(t, err)

	err = f.svc.ResetPassword(context.Background(), &domain.VerifyRequest{
		Token:           token,
		NewPassword:     "N3w!passw",
		ConfirmPassword: "N3w!passw",
	})
	assert.ErrorIs(t, err, domain.ErrWrongTokenType)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "Old!pass1"), true)

	token, err := auth.New(acc.ID, acc.Email, acc.Role, true, testSecret, -time.Minute)
	require.NoError(t, err)

	err = f.svc.ResetPassword(context.Background(), &domain.VerifyRequest{
		Token:           token,
		NewPassword:     "N3w!passw",
		ConfirmPassword: "N3w!passw",
	})
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestResetPasswordGarbageToken(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.ResetPassword(context.Background(), &domain.VerifyRequest{
		Token:           "garbage",
		NewPassword:     "N3w!passw",
		ConfirmPassword: "N3w!passw",
	})
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestLogoutInvalidatesPresentedToken(t *testing.T) {
	f := newAuthFixture(t)
	f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "P@ssw0rd1"), true)

	login, err := f.svc.Login(context.Background(), &domain.LoginRequest{Email: "a@x.com", Password: "P@ssw0rd1"}, "")
	require.NoError(t, err)

	f.svc.Logout(context.Background(), login.AccessToken)
	assert.False(t, f.sessions.Validate(login.AccessToken))
}

func TestActiveSessions(t *testing.T) {
	f := newAuthFixture(t)
	acc := f.accounts.add("a@x.com", domain.RoleUser, mustHash(t, "P@ssw0rd1"), true)

	_, err := f.svc.Login(context.Background(), &domain.LoginRequest{Email: "a@x.com", Password: "P@ssw0rd1"}, "laptop")
	require.NoError(t, err)
	_, err = f.svc.Login(context.Background(), &domain.LoginRequest{Email: "a@x.com", Password: "P@ssw0rd1"}, "phone")
	require.NoError(t, err)

	assert.Len(t, f.svc.ActiveSessions(context.Background(), acc.ID), 2)
}
