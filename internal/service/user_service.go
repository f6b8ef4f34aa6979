package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/cardlink/internal/domain"
	"github.com/diagnosis/cardlink/internal/platform/mailer"
	"github.com/diagnosis/cardlink/internal/platform/session"
	"github.com/diagnosis/cardlink/internal/repo/postgres"
	"github.com/diagnosis/cardlink/pkg/auth"
	"github.com/diagnosis/cardlink/pkg/config"
	"github.com/diagnosis/cardlink/pkg/events"
	"github.com/diagnosis/cardlink/pkg/logger"
)

// AvatarStorage is the object-storage contract the user service depends on.
type AvatarStorage interface {
	UploadURL(ctx context.Context, profileID string) (key, url string, err error)
}

type UserService interface {
	CreateUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.CreateUserRequest, error)
	ListAccounts(ctx context.Context) ([]domain.AccountSummary, error)
	FindProfile(ctx context.Context, id string) (*domain.Profile, error)
	FindPublicProfileBySlug(ctx context.Context, slug string) (*domain.Profile, error)
	EditProfile(ctx context.Context, req *domain.EditProfileRequest, actor *auth.Claims) (*domain.Profile, error)
	DeleteUser(ctx context.Context, req *domain.DeleteUserRequest, actor *auth.Claims) error
	CheckSlugAvailability(ctx context.Context, slug, excludeProfileID string) (*domain.SlugAvailability, error)
	AvatarUploadURL(ctx context.Context, actor *auth.Claims) (*domain.AvatarUpload, error)
}

type userService struct {
	accounts postgres.AccountRepository
	profiles postgres.ProfileRepository
	sessions *session.Registry
	mailer   mailer.Service
	avatars  AvatarStorage
	eventBus events.Publisher
	config   *config.Config
}

func NewUserService(
	accounts postgres.AccountRepository,
	profiles postgres.ProfileRepository,
	sessions *session.Registry,
	mail mailer.Service,
	avatars AvatarStorage,
	eventBus events.Publisher,
	cfg *config.Config,
) UserService {
	return &userService{
		accounts: accounts,
		profiles: profiles,
		sessions: sessions,
		mailer:   mail,
		avatars:  avatars,
		eventBus: eventBus,
		config:   cfg,
	}
}

// CreateUser provisions an account with an empty password plus its empty
// profile, then emails a long-lived setup link. Mail failure is logged but
// never rolls the account back: setup can still be completed via support.
func (s *userService) CreateUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.CreateUserRequest, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	account, _, err := s.accounts.CreateWithProfile(ctx, req.Email, req.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	token, err := auth.New(account.ID, account.Email, account.Role, true, s.config.Auth.JWTSecret, s.config.Auth.VerifyTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create verification token: %w", err)
	}
	expires := time.Now().Add(s.config.Auth.VerifyTokenTTL)
	if err := s.accounts.SetResetToken(ctx, account.ID, token, expires); err != nil {
		return nil, fmt.Errorf("failed to store verification token: %w", err)
	}

	setupURL := fmt.Sprintf("%s/verify?token=%s", s.config.Frontend.BaseURL, token)
	if err := s.mailer.SendVerificationEmail(account.Email, setupURL); err != nil {
		logger.ErrorContext(ctx, "Failed to send verification email", "error", err, "account_id", account.ID)
	}

	if err := s.eventBus.Publish(ctx, events.AccountCreated, events.AccountCreatedEvent{
		AccountID: account.ID,
		Email:     account.Email,
		CreatedAt: account.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish account created event", "error", err)
	}

	return &domain.CreateUserRequest{Email: account.Email}, nil
}

func (s *userService) ListAccounts(ctx context.Context) ([]domain.AccountSummary, error) {
	summaries, err := s.accounts.ListSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return summaries, nil
}

// FindProfile accepts either an account id or a profile id. Anything that is
// not a uuid cannot match a row, so it is rejected before hitting the
// database rather than failing the bind of the uuid column.
func (s *userService) FindProfile(ctx context.Context, id string) (*domain.Profile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	profile, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile != nil {
		return profile, nil
	}

	profile, err = s.profiles.FindByAccountID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by account: %w", err)
	}
	if profile == nil {
		return nil, domain.ErrNotFound
	}
	return profile, nil
}

// FindPublicProfileBySlug exposes a profile only once its owning account is
// configured.
func (s *userService) FindPublicProfileBySlug(ctx context.Context, slug string) (*domain.Profile, error) {
	profile, err := s.profiles.FindBySlug(ctx, domain.NormalizeSlug(slug))
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, domain.ErrNotFound
	}

	account, err := s.accounts.FindByID(ctx, profile.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil || !account.IsConfigured {
		return nil, domain.ErrNotConfigured
	}

	return profile, nil
}

func (s *userService) EditProfile(ctx context.Context, req *domain.EditProfileRequest, actor *auth.Claims) (*domain.Profile, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}

	// Only the profile owner or an admin may edit.
	if actor.Sub != account.ID && actor.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}

	profile, err := s.profiles.FindByAccountID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, domain.ErrNotFound
	}

	merged := *profile
	req.ProfilePatch.Apply(&merged)

	// First configuration requires every public-display field. Recomputed
	// from the merged state, not just the patch.
	if !account.IsConfigured && !merged.IsComplete() {
		return nil, domain.Validationf("name, surname, area code, phone, and slug are required to configure a profile")
	}

	if merged.Slug != "" && merged.Slug != profile.Slug {
		taken, err := s.profiles.SlugTaken(ctx, merged.Slug, profile.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check slug: %w", err)
		}
		if taken {
			return nil, domain.ErrSlugTaken
		}
	}

	updated, err := s.profiles.Update(ctx, &merged)
	if err != nil {
		return nil, err
	}

	if !account.IsConfigured && updated.IsComplete() {
		if err := s.accounts.MarkConfigured(ctx, account.ID); err != nil {
			return nil, fmt.Errorf("failed to mark account configured: %w", err)
		}
	}

	if err := s.eventBus.Publish(ctx, events.ProfileUpdated, events.ProfileUpdatedEvent{
		ProfileID: updated.ID,
		Slug:      updated.Slug,
		UpdatedAt: updated.UpdatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish profile updated event", "error", err)
	}

	return updated, nil
}

func (s *userService) DeleteUser(ctx context.Context, req *domain.DeleteUserRequest, actor *auth.Claims) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return domain.ErrNotFound
	}

	if actor.Sub != account.ID && actor.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}

	if account.Role == domain.RoleAdmin {
		admins, err := s.accounts.CountAdmins(ctx)
		if err != nil {
			return fmt.Errorf("failed to count admins: %w", err)
		}
		if admins <= 1 {
			return domain.ErrLastAdmin
		}
	}

	if err := s.accounts.DeleteWithProfile(ctx, account.ID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	s.sessions.InvalidateOwner(account.ID)

	if err := s.eventBus.Publish(ctx, events.AccountDeleted, events.AccountDeletedEvent{
		AccountID: account.ID,
		Email:     account.Email,
		DeletedAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish account deleted event", "error", err)
	}

	return nil
}

func (s *userService) CheckSlugAvailability(ctx context.Context, slug, excludeProfileID string) (*domain.SlugAvailability, error) {
	slug = domain.NormalizeSlug(slug)
	if err := domain.ValidateSlug(slug); err != nil {
		return nil, err
	}
	if excludeProfileID != "" {
		if _, err := uuid.Parse(excludeProfileID); err != nil {
			return nil, domain.Validationf("invalid exclude id")
		}
	}

	taken, err := s.profiles.SlugTaken(ctx, slug, excludeProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	return &domain.SlugAvailability{Available: !taken}, nil
}

func (s *userService) AvatarUploadURL(ctx context.Context, actor *auth.Claims) (*domain.AvatarUpload, error) {
	profile, err := s.profiles.FindByAccountID(ctx, actor.Sub)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, domain.ErrNotFound
	}

	key, url, err := s.avatars.UploadURL(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to presign avatar upload: %w", err)
	}
	return &domain.AvatarUpload{Key: key, UploadURL: url}, nil
}
