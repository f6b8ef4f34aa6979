package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/diagnosis/cardlink/internal/domain"
	"github.com/diagnosis/cardlink/internal/platform/hash"
	"github.com/diagnosis/cardlink/internal/platform/mailer"
	"github.com/diagnosis/cardlink/internal/platform/ratelimit"
	"github.com/diagnosis/cardlink/internal/platform/session"
	"github.com/diagnosis/cardlink/internal/repo/postgres"
	"github.com/diagnosis/cardlink/pkg/auth"
	"github.com/diagnosis/cardlink/pkg/config"
	"github.com/diagnosis/cardlink/pkg/events"
	"github.com/diagnosis/cardlink/pkg/logger"
)

type AuthService interface {
	Login(ctx context.Context, req *domain.LoginRequest, device string) (*domain.LoginResponse, error)
	ForgotPassword(ctx context.Context, req *domain.RecoverRequest) (*domain.RecoverResponse, error)
	ResetPassword(ctx context.Context, req *domain.VerifyRequest) error
	Logout(ctx context.Context, token string)
	ActiveSessions(ctx context.Context, accountID string) []*session.Session
}

type authService struct {
	accounts       postgres.AccountRepository
	sessions       *session.Registry
	loginLimiter   *ratelimit.Limiter
	recoverLimiter *ratelimit.Limiter
	mailer         mailer.Service
	eventBus       events.Publisher
	config         *config.Config
}

func NewAuthService(
	accounts postgres.AccountRepository,
	sessions *session.Registry,
	loginLimiter *ratelimit.Limiter,
	recoverLimiter *ratelimit.Limiter,
	mail mailer.Service,
	eventBus events.Publisher,
	cfg *config.Config,
) AuthService {
	return &authService{
		accounts:       accounts,
		sessions:       sessions,
		loginLimiter:   loginLimiter,
		recoverLimiter: recoverLimiter,
		mailer:         mail,
		eventBus:       eventBus,
		config:         cfg,
	}
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest, device string) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if locked, remaining := s.loginLimiter.CheckLock(req.Email); locked {
		return nil, &domain.LockedError{Remaining: int(math.Ceil(remaining.Minutes()))}
	}

	if !s.loginLimiter.Allow(req.Email) {
		return nil, domain.ErrRateLimited
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	// Identical failure for unknown email, unset password, and wrong
	// password, so responses don't reveal which accounts exist. Every
	// failure feeds the lockout counter.
	if account == nil || account.PasswordHash == "" || !hash.Verify(req.Password, account.PasswordHash) {
		s.loginLimiter.RecordFailure(req.Email)
		return nil, domain.ErrInvalidCredentials
	}

	s.loginLimiter.Reset(req.Email)

	sess, err := s.sessions.Create(account.ID, account.Email, account.Role, device)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken: sess.Token,
		ExpiresIn:   int64(s.config.Auth.SessionTTL.Seconds()),
		User:        account.ToInfo(),
	}, nil
}

func (s *authService) ForgotPassword(ctx context.Context, req *domain.RecoverRequest) (*domain.RecoverResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !s.recoverLimiter.Allow(req.Email) {
		return nil, domain.ErrRateLimited
	}

	resp := &domain.RecoverResponse{ExpiresIn: int(s.config.Auth.ResetTokenTTL.Seconds())}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		// Same envelope whether or not the account exists.
		return resp, nil
	}

	token, err := auth.New(account.ID, account.Email, account.Role, true, s.config.Auth.JWTSecret, s.config.Auth.ResetTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create reset token: %w", err)
	}

	expires := time.Now().Add(s.config.Auth.ResetTokenTTL)
	if err := s.accounts.SetResetToken(ctx, account.ID, token, expires); err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.config.Frontend.BaseURL, token)
	if err := s.mailer.SendPasswordResetEmail(account.Email, resetURL); err != nil {
		logger.ErrorContext(ctx, "Failed to send password reset email", "error", err, "account_id", account.ID)
		// Response stays identical; retrying is the user's recourse.
	}

	return resp, nil
}

func (s *authService) ResetPassword(ctx context.Context, req *domain.VerifyRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	claims, err := auth.Parse(req.Token, s.config.Auth.JWTSecret)
	if err != nil {
		if errors.Is(err, auth.ErrExpired) {
			return domain.ErrTokenExpired
		}
		return domain.ErrTokenInvalid
	}

	if !claims.Reset {
		return domain.ErrWrongTokenType
	}

	account, err := s.accounts.FindByID(ctx, claims.Sub)
	if err != nil {
		return fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return domain.ErrNotFound
	}

	// The stored column must match the presented token: an older token
	// whose signature still verifies is rejected once superseded or used.
	if account.ResetToken == nil || *account.ResetToken != req.Token {
		return domain.ErrStaleResetToken
	}
	if account.ResetTokenExpires != nil && time.Now().After(*account.ResetTokenExpires) {
		return domain.ErrTokenExpired
	}

	passwordHash, err := hash.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.accounts.SetPassword(ctx, account.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}

	s.loginLimiter.Reset(account.Email)
	s.recoverLimiter.Reset(account.Email)
	// Force re-authentication everywhere.
	s.sessions.InvalidateOwner(account.ID)

	if err := s.eventBus.Publish(ctx, events.PasswordReset, events.PasswordResetEvent{
		AccountID: account.ID,
		ResetAt:   time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish password reset event", "error", err)
	}

	return nil
}

func (s *authService) Logout(ctx context.Context, token string) {
	s.sessions.Invalidate(token)
}

func (s *authService) ActiveSessions(ctx context.Context, accountID string) []*session.Session {
	return s.sessions.ActiveFor(accountID)
}
