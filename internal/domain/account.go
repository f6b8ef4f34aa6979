package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

type Account struct {
	ID                string     `json:"uuid"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Role              string     `json:"role"`
	IsConfigured      bool       `json:"is_configured"`
	ResetToken        *string    `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// AccountSummary is the admin list view: metadata only, no credentials and
// no profile join.
type AccountSummary struct {
	ID           string    `json:"uuid"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsConfigured bool      `json:"is_configured"`
	CreatedAt    time.Time `json:"created_at"`
}

type AccountInfo struct {
	ID    string `json:"uuid"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var validRoles = map[string]bool{
	RoleAdmin: true,
	RoleUser:  true,
}

func IsValidRole(role string) bool {
	return validRoles[role]
}

func (a *Account) ToInfo() *AccountInfo {
	return &AccountInfo{ID: a.ID, Email: a.Email, Role: a.Role}
}

func (a *Account) ToSummary() *AccountSummary {
	return &AccountSummary{
		ID:           a.ID,
		Email:        a.Email,
		Role:         a.Role,
		IsConfigured: a.IsConfigured,
		CreatedAt:    a.CreatedAt,
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// NormalizeEmail lower-cases and trims; emails are case-insensitive unique.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const (
	PasswordMinLength = 8
	PasswordMaxLength = 128
)

// ValidatePassword enforces the password policy: length 8-128 with at least
// one lowercase, uppercase, digit, and special character.
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLength {
		return Validationf("password must be at least %d characters", PasswordMinLength)
	}
	if len(password) > PasswordMaxLength {
		return Validationf("password must be at most %d characters", PasswordMaxLength)
	}
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return Validationf("password must contain lowercase, uppercase, digit, and special character")
	}
	return nil
}
