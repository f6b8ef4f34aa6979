package service_test

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/cardlink/internal/domain"
)

// ---------- Mocks ----------

type mockAccountRepo struct {
	accounts map[string]*domain.Account // by id
	profiles *mockProfileRepo
	findErr  error
}

func newMockAccountRepo(profiles *mockProfileRepo) *mockAccountRepo {
	return &mockAccountRepo{
		accounts: make(map[string]*domain.Account),
		profiles: profiles,
	}
}

func (m *mockAccountRepo) add(email, role, passwordHash string, configured bool) *domain.Account {
	a := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsConfigured: configured,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.accounts[a.ID] = a
	if m.profiles != nil {
		m.profiles.add(a.ID, email)
	}
	return a
}

func (m *mockAccountRepo) CreateWithProfile(_ context.Context, email, role string) (*domain.Account, *domain.Profile, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			return nil, nil, domain.ErrAlreadyExists
		}
	}
	a := m.add(email, role, "", false)
	var p *domain.Profile
	if m.profiles != nil {
		p = m.profiles.byAccount[a.ID]
	}
	return a, p, nil
}

func (m *mockAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return nil, nil
}

func (m *mockAccountRepo) ListSummaries(_ context.Context) ([]domain.AccountSummary, error) {
	var out []domain.AccountSummary
	for _, a := range m.accounts {
		out = append(out, *a.ToSummary())
	}
	return out, nil
}

func (m *mockAccountRepo) SetPassword(_ context.Context, id, passwordHash string) error {
	a, ok := m.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.PasswordHash = passwordHash
	a.ResetToken = nil
	a.ResetTokenExpires = nil
	return nil
}

func (m *mockAccountRepo) SetResetToken(_ context.Context, id, token string, expires time.Time) error {
	a, ok := m.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.ResetToken = &token
	a.ResetTokenExpires = &expires
	return nil
}

func (m *mockAccountRepo) MarkConfigured(_ context.Context, id string) error {
	a, ok := m.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.IsConfigured = true
	return nil
}

func (m *mockAccountRepo) CountAdmins(_ context.Context) (int, error) {
	n := 0
	for _, a := range m.accounts {
		if a.Role == domain.RoleAdmin {
			n++
		}
	}
	return n, nil
}

func (m *mockAccountRepo) DeleteWithProfile(_ context.Context, id string) error {
	a, ok := m.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if a.Role == domain.RoleAdmin {
		admins := 0
		for _, other := range m.accounts {
			if other.Role == domain.RoleAdmin {
				admins++
			}
		}
		if admins <= 1 {
			return domain.ErrLastAdmin
		}
	}
	delete(m.accounts, id)
	if m.profiles != nil {
		m.profiles.remove(id)
	}
	return nil
}

type mockProfileRepo struct {
	byAccount map[string]*domain.Profile // account id -> profile
	updateErr error
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{byAccount: make(map[string]*domain.Profile)}
}

func (m *mockProfileRepo) add(accountID, email string) *domain.Profile {
	p := &domain.Profile{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Email:     email,
		ShowVCard: true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.byAccount[accountID] = p
	return p
}

func (m *mockProfileRepo) remove(accountID string) {
	delete(m.byAccount, accountID)
}

func (m *mockProfileRepo) FindByID(_ context.Context, id string) (*domain.Profile, error) {
	for _, p := range m.byAccount {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockProfileRepo) FindByAccountID(_ context.Context, accountID string) (*domain.Profile, error) {
	if p, ok := m.byAccount[accountID]; ok {
		return p, nil
	}
	return nil, nil
}

func (m *mockProfileRepo) FindBySlug(_ context.Context, slug string) (*domain.Profile, error) {
	for _, p := range m.byAccount {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockProfileRepo) SlugTaken(_ context.Context, slug, excludeProfileID string) (bool, error) {
	for _, p := range m.byAccount {
		if p.Slug == slug && p.ID != excludeProfileID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProfileRepo) Update(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	stored, ok := m.byAccount[p.AccountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	*stored = *p
	stored.UpdatedAt = time.Now()
	return stored, nil
}

type mockMailer struct {
	verifications []string // recipient emails
	resets        []string
	lastURL       string
	sendErr       error
}

func (m *mockMailer) SendVerificationEmail(toEmail, setupURL string) error {
	m.verifications = append(m.verifications, toEmail)
	m.lastURL = setupURL
	return m.sendErr
}

func (m *mockMailer) SendPasswordResetEmail(toEmail, resetURL string) error {
	m.resets = append(m.resets, toEmail)
	m.lastURL = resetURL
	return m.sendErr
}

type mockAvatarStorage struct {
	err error
}

func (m *mockAvatarStorage) UploadURL(_ context.Context, profileID string) (string, string, error) {
	if m.err != nil {
		return "", "", m.err
	}
	key := "avatars/" + profileID + "/key"
	return key, fmt.Sprintf("https://storage.local/%s?signed", key), nil
}
