package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/cardlink/internal/domain"
)

type AccountRepository interface {
	CreateWithProfile(ctx context.Context, email, role string) (*domain.Account, *domain.Profile, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	ListSummaries(ctx context.Context) ([]domain.AccountSummary, error)
	SetPassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	MarkConfigured(ctx context.Context, id string) error
	CountAdmins(ctx context.Context) (int, error)
	// DeleteWithProfile removes the account and its profile atomically.
	// Implementations must refuse to remove the last remaining admin with
	// ErrLastAdmin.
	DeleteWithProfile(ctx context.Context, id string) error
}

type accountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountCols = `id, email, password_hash, role, is_configured, reset_token, reset_token_expires, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var hash *string
	err := row.Scan(
		&a.ID, &a.Email, &hash, &a.Role, &a.IsConfigured,
		&a.ResetToken, &a.ResetTokenExpires, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if hash != nil {
		a.PasswordHash = *hash
	}
	return &a, nil
}

// isUniqueViolation reports whether err is a Postgres duplicate-key error.
// The unique indexes are the authoritative guard for email and slug; the
// service-level checks only exist for better error messages.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateWithProfile inserts the account and its empty profile atomically.
func (r *accountRepository) CreateWithProfile(ctx context.Context, email, role string) (*domain.Account, *domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	const insertAccount = `
		INSERT INTO accounts (email, role)
		VALUES ($1, $2)
		RETURNING ` + accountCols

	account, err := scanAccount(tx.QueryRow(ctx, insertAccount, email, role))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, domain.ErrAlreadyExists
		}
		return nil, nil, err
	}

	const insertProfile = `
		INSERT INTO profiles (account_id, email)
		VALUES ($1, $2)
		RETURNING ` + profileCols

	profile, err := scanProfile(tx.QueryRow(ctx, insertProfile, account.ID, email))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, domain.ErrAlreadyExists
		}
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return account, profile, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE lower(email) = lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAccount(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAccount(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *accountRepository) ListSummaries(ctx context.Context) ([]domain.AccountSummary, error) {
	const q = `
		SELECT id, email, role, is_configured, created_at
		FROM accounts
		ORDER BY created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AccountSummary
	for rows.Next() {
		var s domain.AccountSummary
		if err := rows.Scan(&s.ID, &s.Email, &s.Role, &s.IsConfigured, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SetPassword stores the new hash and clears the reset-token columns, making
// a consumed reset token unusable.
func (r *accountRepository) SetPassword(ctx context.Context, id, passwordHash string) error {
	const q = `
		UPDATE accounts
		SET password_hash = $2, reset_token = NULL, reset_token_expires = NULL, updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, passwordHash)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetResetToken overwrites any previously issued token, superseding it.
func (r *accountRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	const q = `
		UPDATE accounts
		SET reset_token = $2, reset_token_expires = $3, updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, token, expires)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkConfigured flips is_configured to true. It never flips it back.
func (r *accountRepository) MarkConfigured(ctx context.Context, id string) error {
	const q = `UPDATE accounts SET is_configured = true, updated_at = now() WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepository) CountAdmins(ctx context.Context) (int, error) {
	const q = `SELECT count(*) FROM accounts WHERE role = 'admin'`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx, q).Scan(&n)
	return n, err
}

// DeleteWithProfile removes the profile and the account in one transaction.
// When the target is an admin, the admin rows are locked and recounted
// inside the transaction, so two concurrent deletions of the final two
// admins serialize and the loser gets ErrLastAdmin. The service-level count
// check only exists for a friendlier pre-flight error.
func (r *accountRepository) DeleteWithProfile(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var role string
	err = tx.QueryRow(ctx, `SELECT role FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}

	if role == domain.RoleAdmin {
		rows, err := tx.Query(ctx, `SELECT id FROM accounts WHERE role = 'admin' FOR UPDATE`)
		if err != nil {
			return err
		}
		admins := 0
		for rows.Next() {
			admins++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if admins <= 1 {
			return domain.ErrLastAdmin
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM profiles WHERE account_id = $1`, id); err != nil {
		return err
	}

	result, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit(ctx)
}
