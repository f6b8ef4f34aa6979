package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/cardlink/internal/domain"
	"github.com/diagnosis/cardlink/internal/http/middleware"
	"github.com/diagnosis/cardlink/internal/http/response"
	"github.com/diagnosis/cardlink/internal/service"
)

type UserHandler struct {
	users service.UserService
}

func NewUserHandler(users service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.users.CreateUser(r.Context(), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.Created(w, "User created", map[string]string{"email": result.Email})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.users.ListAccounts(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.OK(w, "Accounts", accounts)
}

func (h *UserHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	profile, err := h.users.FindPublicProfileBySlug(r.Context(), slug)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.OK(w, "Profile", profile)
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	profile, err := h.users.FindProfile(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.OK(w, "Profile", profile)
}

func (h *UserHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req domain.EditProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.users.EditProfile(r.Context(), &req, middleware.Claims(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.OK(w, "Profile updated", profile)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req domain.DeleteUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.users.DeleteUser(r.Context(), &req, middleware.Claims(r)); err != nil {
		response.Error(w, r, err)
		return
	}

	response.OK(w, "User deleted", nil)
}

func (h *UserHandler) SlugAvailability(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	exclude := r.URL.Query().Get("exclude")

	result, err := h.users.CheckSlugAvailability(r.Context(), slug, exclude)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.OK(w, "Slug availability", result)
}

func (h *UserHandler) AvatarUpload(w http.ResponseWriter, r *http.Request) {
	result, err := h.users.AvatarUploadURL(r.Context(), middleware.Claims(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.OK(w, "Avatar upload URL", result)
}
