package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/cardlink/internal/domain"
)

type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
	FindByAccountID(ctx context.Context, accountID string) (*domain.Profile, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Profile, error)
	SlugTaken(ctx context.Context, slug, excludeProfileID string) (bool, error)
	Update(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

const profileCols = `id, account_id, email, name, surname, area_code, phone, website,
	show_whatsapp, show_website, show_vcard, slug, avatar_key, created_at, updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var slug *string
	err := row.Scan(
		&p.ID, &p.AccountID, &p.Email, &p.Name, &p.Surname, &p.AreaCode, &p.Phone, &p.Website,
		&p.ShowWhatsApp, &p.ShowWebsite, &p.ShowVCard, &slug, &p.AvatarKey, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if slug != nil {
		p.Slug = *slug
	}
	return &p, nil
}

func (r *profileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProfile(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *profileRepository) FindByAccountID(ctx context.Context, accountID string) (*domain.Profile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles WHERE account_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProfile(r.pool.QueryRow(ctx, q, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *profileRepository) FindBySlug(ctx context.Context, slug string) (*domain.Profile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles WHERE slug = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProfile(r.pool.QueryRow(ctx, q, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// SlugTaken reports whether another profile currently holds the slug. The
// exclusion id is validated as a uuid by the caller; NULLIF keeps the cast
// safe for the empty string since OR does not short-circuit in SQL.
func (r *profileRepository) SlugTaken(ctx context.Context, slug, excludeProfileID string) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM profiles
		WHERE slug = $1 AND (NULLIF($2, '') IS NULL OR id != NULLIF($2, '')::uuid)
	)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var taken bool
	err := r.pool.QueryRow(ctx, q, slug, excludeProfileID).Scan(&taken)
	return taken, err
}

// Update persists the merged profile state. Concurrent duplicate-slug
// submissions race here; the losing request gets ErrConflict from the
// unique index.
func (r *profileRepository) Update(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	const q = `
		UPDATE profiles
		SET
			name = $2,
			surname = $3,
			area_code = $4,
			phone = $5,
			website = $6,
			show_whatsapp = $7,
			show_website = $8,
			show_vcard = $9,
			slug = NULLIF($10, ''),
			avatar_key = $11,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + profileCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	updated, err := scanProfile(r.pool.QueryRow(ctx, q,
		p.ID, p.Name, p.Surname, p.AreaCode, p.Phone, p.Website,
		p.ShowWhatsApp, p.ShowWebsite, p.ShowVCard, p.Slug, p.AvatarKey,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return updated, nil
}
