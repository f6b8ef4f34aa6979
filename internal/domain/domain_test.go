package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diagnosis/cardlink/internal/domain"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid", "P@ssw0rd1", true},
		{"too short", "P@s1a", false},
		{"too long", "Aa1!" + strings.Repeat("x", 128), false},
		{"no uppercase", "p@ssw0rd1", false},
		{"no lowercase", "P@SSW0RD1", false},
		{"no digit", "P@ssword!", false},
		{"no special", "Passw0rd1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.ValidatePassword(tt.password)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.True(t, domain.IsValidation(err))
			}
		})
	}
}

func TestValidateSlug(t *testing.T) {
	assert.NoError(t, domain.ValidateSlug("alice"))
	assert.NoError(t, domain.ValidateSlug("alice-b-2"))
	assert.Error(t, domain.ValidateSlug("al"))
	assert.Error(t, domain.ValidateSlug(strings.Repeat("a", 51)))
	assert.Error(t, domain.ValidateSlug("Alice"))
	assert.Error(t, domain.ValidateSlug("-alice"))
	assert.Error(t, domain.ValidateSlug("alice-"))
	assert.Error(t, domain.ValidateSlug("ali_ce"))
	assert.Error(t, domain.ValidateSlug("ali--ce"))
}

func TestNormalizeSlug(t *testing.T) {
	assert.Equal(t, "alice", domain.NormalizeSlug("  Alice "))
}

func TestProfileIsComplete(t *testing.T) {
	p := &domain.Profile{
		Name:     "Alice",
		Surname:  "Smith",
		AreaCode: "+49",
		Phone:    "1234567",
		Slug:     "alice",
	}
	assert.True(t, p.IsComplete())

	p.Phone = ""
	assert.False(t, p.IsComplete())
}

func TestProfilePatchApply(t *testing.T) {
	name := "Alice"
	show := true
	p := &domain.Profile{Name: "Old", Surname: "Kept"}
	patch := &domain.ProfilePatch{Name: &name, ShowWhatsApp: &show}
	patch.Apply(p)

	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, "Kept", p.Surname)
	assert.True(t, p.ShowWhatsApp)
}

func TestEditProfileRequestNormalize(t *testing.T) {
	slug := " My-Slug "
	req := &domain.EditProfileRequest{
		Email:        " Alice@Example.COM ",
		ProfilePatch: domain.ProfilePatch{Slug: &slug},
	}
	req.Normalize()

	assert.Equal(t, "alice@example.com", req.Email)
	assert.Equal(t, "my-slug", *req.Slug)
}

func TestVerifyRequestMismatch(t *testing.T) {
	req := &domain.VerifyRequest{Token: "t", NewPassword: "P@ssw0rd1", ConfirmPassword: "other"}
	assert.Error(t, req.Validate())
}
