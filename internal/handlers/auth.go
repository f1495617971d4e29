package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/linklytics/apiserver/internal/auth"
	"github.com/linklytics/apiserver/internal/logger"
	"github.com/linklytics/apiserver/internal/services"
	"github.com/linklytics/apiserver/internal/store"
	"github.com/linklytics/apiserver/types"
)

// RefreshTokenCookie is the name of the cookie carrying the refresh
// token. The refresh token never travels in a response body.
const RefreshTokenCookie = "refreshToken"

// authService is the slice of AuthService the handler consumes.
type authService interface {
	Register(ctx context.Context, name, email, password string) (types.User, error)
	Login(ctx context.Context, email, password string) (services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// AuthHandler provides the registration, login, and token-refresh
// endpoints.
type AuthHandler struct {
	service    authService
	refreshTTL time.Duration
	validate   *validator.Validate
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(service authService, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		service:    service,
		refreshTTL: refreshTTL,
		validate:   validator.New(),
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, service *services.AuthService, refreshTTL time.Duration) {
	handler := NewAuthHandler(service, refreshTTL)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/refresh-token", handler.Refresh)
}

// Register creates the single account this installation admits.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid fields")
		return
	}

	if _, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password); err != nil {
		switch {
		case errors.Is(err, store.ErrUserLimitReached):
			writeError(w, http.StatusConflict, "user limit reached")
		case errors.Is(err, store.ErrEmailTaken):
			writeError(w, http.StatusConflict, "email already in use")
		default:
			writeError(w, http.StatusInternalServerError, "failed to register user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{Message: "user registered successfully"})
}

// Login verifies credentials, returns the access token in the body, and
// sets the refresh token as an HTTP-only secure cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
	})

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: pair.AccessToken})
}

// Refresh exchanges the refresh-token cookie for a new access token.
// The cookie itself is never re-issued.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "refresh token missing")
		return
	}

	accessToken, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			logger.Log.Debugw("refresh rejected", "reason", "token expired")
			writeError(w, http.StatusUnauthorized, "unauthorized")
		case errors.Is(err, auth.ErrTokenInvalid):
			logger.Log.Debugw("refresh rejected", "reason", "invalid token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
		case errors.Is(err, services.ErrUserNotFound):
			logger.Log.Debugw("refresh rejected", "reason", "subject no longer exists")
			writeError(w, http.StatusUnauthorized, "unauthorized")
		default:
			writeError(w, http.StatusInternalServerError, "failed to refresh token")
		}
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: accessToken})
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterResponse struct {
	Message string `json:"message"`
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}
