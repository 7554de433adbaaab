package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/auth"
	"github.com/tasknest/tasknest/internal/store"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// UserStore is the user persistence surface the API needs.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (store.User, error)
	UserByEmail(ctx context.Context, email string) (store.User, bool, error)
}

type authHandler struct {
	users  UserStore
	tokens *auth.JWT
	logger *slog.Logger
}

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token  string    `json:"token"`
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// POST /api/auth/signup
func (h *authHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", h.logger)
		return
	}

	email, ok := normalizeEmail(req.Email)
	if !ok {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid email address", h.logger)
		return
	}

	if req.Password != req.PasswordConfirm {
		writeError(w, http.StatusBadRequest, "validation_failed", "passwords do not match", h.logger)
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), h.logger)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("password hashing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create account", h.logger)
		return
	}

	user, err := h.users.CreateUser(r.Context(), email, hash)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email_taken", "Email already registered", h.logger)
			return
		}
		h.logger.Error("user creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create account", h.logger)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("token issue failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create account", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: token, UserID: user.ID, Email: user.Email}, h.logger)
}

// POST /api/auth/login
func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", h.logger)
		return
	}

	email, ok := normalizeEmail(req.Email)
	if !ok {
		h.rejectCredentials(w)
		return
	}

	user, found, err := h.users.UserByEmail(r.Context(), email)
	if err != nil {
		h.logger.Error("user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not log in", h.logger)
		return
	}
	// Unknown email and wrong password produce the same answer so the
	// endpoint cannot be used to probe which addresses have accounts.
	if !found || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		h.rejectCredentials(w)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("token issue failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not log in", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, UserID: user.ID, Email: user.Email}, h.logger)
}

func (h *authHandler) rejectCredentials(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "invalid_credentials", "Incorrect email or password", h.logger)
}

// decodeBody parses a JSON request body into dst, capping its size.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// normalizeEmail validates that raw is a bare RFC 5321 address and returns
// it lowercased. Display names ("Bob <bob@example.com>") are rejected.
func normalizeEmail(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}
