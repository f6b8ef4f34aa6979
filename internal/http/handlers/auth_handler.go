package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/diagnosis/cardlink/internal/domain"
	"github.com/diagnosis/cardlink/internal/http/middleware"
	"github.com/diagnosis/cardlink/internal/http/response"
	"github.com/diagnosis/cardlink/internal/service"
)

type AuthHandler struct {
	auth service.AuthService
}

func NewAuthHandler(auth service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), &req, r.UserAgent())
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.OK(w, "Login successful", result)
}

func (h *AuthHandler) Recover(w http.ResponseWriter, r *http.Request) {
	var req domain.RecoverRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.ForgotPassword(r.Context(), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	// Message identical whether or not the account exists.
	response.OK(w, "If the email is registered, a reset link has been sent", result)
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.ResetPassword(r.Context(), &req); err != nil {
		response.Error(w, r, err)
		return
	}

	response.OK(w, "Password updated", nil)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(r.Context(), middleware.Token(r))
	response.OK(w, "Logged out", nil)
}

func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	sessions := h.auth.ActiveSessions(r.Context(), claims.Sub)
	response.OK(w, "Active sessions", sessions)
}
