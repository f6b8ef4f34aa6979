package domain

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return Validationf("email is required")
	}
	if !IsValidEmail(r.Email) {
		return Validationf("invalid email format")
	}
	if r.Password == "" {
		return Validationf("password is required")
	}
	return nil
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *AccountInfo `json:"user"`
}

type RecoverRequest struct {
	Email string `json:"email"`
}

func (r *RecoverRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r *RecoverRequest) Validate() error {
	if r.Email == "" {
		return Validationf("email is required")
	}
	if !IsValidEmail(r.Email) {
		return Validationf("invalid email format")
	}
	return nil
}

type RecoverResponse struct {
	ExpiresIn int `json:"expires_in"`
}

type VerifyRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r *VerifyRequest) Validate() error {
	if r.Token == "" {
		return Validationf("token is required")
	}
	if r.NewPassword != r.ConfirmPassword {
		return Validationf("passwords do not match")
	}
	return ValidatePassword(r.NewPassword)
}

type CreateUserRequest struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

func (r *CreateUserRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	if r.Role == "" {
		r.Role = RoleUser
	}
}

func (r *CreateUserRequest) Validate() error {
	if r.Email == "" {
		return Validationf("email is required")
	}
	if !IsValidEmail(r.Email) {
		return Validationf("invalid email format")
	}
	if !IsValidRole(r.Role) {
		return Validationf("invalid role")
	}
	return nil
}

// EditProfileRequest targets a profile by its owning account's email and
// carries the field patch.
type EditProfileRequest struct {
	Email string `json:"email"`
	ProfilePatch
}

func (r *EditProfileRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.ProfilePatch.Normalize()
}

func (r *EditProfileRequest) Validate() error {
	if r.Email == "" {
		return Validationf("email is required")
	}
	return r.ProfilePatch.Validate()
}

type DeleteUserRequest struct {
	Email string `json:"email"`
}

func (r *DeleteUserRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r *DeleteUserRequest) Validate() error {
	if r.Email == "" {
		return Validationf("email is required")
	}
	return nil
}

type SlugAvailability struct {
	Available bool `json:"available"`
}

type AvatarUpload struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
}
