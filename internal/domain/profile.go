package domain

import (
	"regexp"
	"strings"
	"time"
)

type Profile struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	AreaCode     string    `json:"area_code"`
	Phone        string    `json:"phone"`
	Website      string    `json:"website"`
	ShowWhatsApp bool      `json:"show_whatsapp"`
	ShowWebsite  bool      `json:"show_website"`
	ShowVCard    bool      `json:"show_vcard"`
	Slug         string    `json:"slug"`
	AvatarKey    string    `json:"avatar_key,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	SlugMinLength = 3
	SlugMaxLength = 50
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// NormalizeSlug trims and lower-cases; slugs are stored canonically.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

func ValidateSlug(slug string) error {
	if len(slug) < SlugMinLength || len(slug) > SlugMaxLength {
		return Validationf("slug must be between %d and %d characters", SlugMinLength, SlugMaxLength)
	}
	if !slugRegex.MatchString(slug) {
		return Validationf("slug may only contain lowercase letters, digits, and hyphens")
	}
	return nil
}

// IsComplete reports whether all fields required for public display are
// present. is_configured may only become true once this holds.
func (p *Profile) IsComplete() bool {
	return p.Name != "" && p.Surname != "" && p.AreaCode != "" && p.Phone != "" && p.Slug != ""
}

// ProfilePatch carries the merge semantics of a profile edit: nil means
// "leave unchanged".
type ProfilePatch struct {
	Name         *string `json:"name,omitempty"`
	Surname      *string `json:"surname,omitempty"`
	AreaCode     *string `json:"area_code,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Website      *string `json:"website,omitempty"`
	ShowWhatsApp *bool   `json:"show_whatsapp,omitempty"`
	ShowWebsite  *bool   `json:"show_website,omitempty"`
	ShowVCard    *bool   `json:"show_vcard,omitempty"`
	Slug         *string `json:"slug,omitempty"`
	AvatarKey    *string `json:"avatar_key,omitempty"`
}

var (
	phoneRegex    = regexp.MustCompile(`^[\+]?[\d\s\-\(\)]+$`)
	areaCodeRegex = regexp.MustCompile(`^\+?\d+$`)
)

const (
	nameMaxLength    = 100
	websiteMaxLength = 200
)

func (p *ProfilePatch) Normalize() {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(p.Name)
	trim(p.Surname)
	trim(p.AreaCode)
	trim(p.Phone)
	trim(p.Website)
	trim(p.AvatarKey)
	if p.Slug != nil {
		*p.Slug = NormalizeSlug(*p.Slug)
	}
}

// Validate checks field lengths and patterns server-side, independent of any
// client validation.
func (p *ProfilePatch) Validate() error {
	if p.Name != nil && (*p.Name == "" || len(*p.Name) > nameMaxLength) {
		return Validationf("name must be between 1 and %d characters", nameMaxLength)
	}
	if p.Surname != nil && (*p.Surname == "" || len(*p.Surname) > nameMaxLength) {
		return Validationf("surname must be between 1 and %d characters", nameMaxLength)
	}
	if p.AreaCode != nil {
		if *p.AreaCode == "" || len(*p.AreaCode) > 6 || !areaCodeRegex.MatchString(*p.AreaCode) {
			return Validationf("invalid area code")
		}
	}
	if p.Phone != nil {
		if !phoneRegex.MatchString(*p.Phone) || len(*p.Phone) < 5 {
			return Validationf("invalid phone format")
		}
	}
	if p.Website != nil && len(*p.Website) > websiteMaxLength {
		return Validationf("website must be at most %d characters", websiteMaxLength)
	}
	if p.Slug != nil {
		if err := ValidateSlug(*p.Slug); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the patch into the profile.
func (p *ProfilePatch) Apply(profile *Profile) {
	if p.Name != nil {
		profile.Name = *p.Name
	}
	if p.Surname != nil {
		profile.Surname = *p.Surname
	}
	if p.AreaCode != nil {
		profile.AreaCode = *p.AreaCode
	}
	if p.Phone != nil {
		profile.Phone = *p.Phone
	}
	if p.Website != nil {
		profile.Website = *p.Website
	}
	if p.ShowWhatsApp != nil {
		profile.ShowWhatsApp = *p.ShowWhatsApp
	}
	if p.ShowWebsite != nil {
		profile.ShowWebsite = *p.ShowWebsite
	}
	if p.ShowVCard != nil {
		profile.ShowVCard = *p.ShowVCard
	}
	if p.Slug != nil {
		profile.Slug = *p.Slug
	}
	if p.AvatarKey != nil {
		profile.AvatarKey = *p.AvatarKey
	}
}
