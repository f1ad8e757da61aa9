package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/auth"
	"github.com/mnemo-ai/mnemo/internal/log"
)

// Credential validation bounds. MaxPasswordLength matches the bcrypt
// input limit.
const (
	MaxEmailLength    = 254
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// UserService is the account access the auth endpoints need.
// *auth.UserStore satisfies it.
type UserService interface {
	Create(ctx context.Context, email, passwordHash string) (auth.User, error)
	Authenticate(ctx context.Context, email, password string) (auth.User, error)
}

// AuthHandler handles registration and login.
type AuthHandler struct {
	users  UserService
	tokens *auth.Tokens
	logger log.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users UserService, tokens *auth.Tokens, logger log.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

// RegisterRoutes registers auth routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
}

// CredentialsRequest is the request body for register and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned on successful register and login.
type TokenResponse struct {
	Token string    `json:"token"`
	User  auth.User `json:"user"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("password hashing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create account")
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, hash)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email_taken", "an account with this email already exists")
			return
		}
		h.logger.Error("user creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create account")
		return
	}

	h.issueToken(w, http.StatusCreated, user)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
			return
		}
		h.logger.Error("authentication failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not log in")
		return
	}

	h.issueToken(w, http.StatusOK, user)
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, status int, user auth.User) {
	token, err := h.tokens.Issue(auth.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		h.logger.Error("token issuance failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not issue token")
		return
	}
	writeJSON(w, status, TokenResponse{Token: token, User: user})
}

// decodeCredentials parses and validates the request body, writing the
// error response itself on failure.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return req, false
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	switch {
	case req.Email == "" || len(req.Email) > MaxEmailLength || !strings.Contains(req.Email, "@"):
		writeError(w, http.StatusBadRequest, "invalid_request", "a valid email is required")
		return req, false
	case len(req.Password) < MinPasswordLength:
		writeError(w, http.StatusBadRequest, "invalid_request", "password must be at least 8 characters")
		return req, false
	case len(req.Password) > MaxPasswordLength:
		writeError(w, http.StatusBadRequest, "invalid_request", "password must be at most 72 characters")
		return req, false
	}
	return req, true
}
