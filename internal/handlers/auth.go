package handlers

import (
	"net/http"
	"time"

	"github.com/clipshare/apiserver/internal/guard"
	"github.com/clipshare/apiserver/internal/services"
	"github.com/clipshare/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// CookieConfig controls the session cookie set on login.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler provides registration and session endpoints.
type AuthHandler struct {
	accounts *services.AccountService
	guard    *guard.Guard
	cookie   CookieConfig
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(accounts *services.AccountService, g *guard.Guard, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{accounts: accounts, guard: g, cookie: cookie}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, accounts *services.AccountService, g *guard.Guard, cookie CookieConfig) {
	handler := NewAuthHandler(accounts, g, cookie)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.Get("/session", handler.Session)
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      types.User `json:"user"`
}

type SessionResponse struct {
	User types.User `json:"user"`
}

// Register creates a new account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "failed to register user")
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "user registered successfully", ID: user.ID})
}

// Login verifies credentials, sets the session cookie and returns the token
// for bearer use.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	artifact, user, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "failed to authenticate")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    artifact.Token,
		Path:     "/",
		Expires:  artifact.ExpiresAt,
		MaxAge:   int(time.Until(artifact.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, LoginResponse{Token: artifact.Token, ExpiresAt: artifact.ExpiresAt, User: user})
}

// Logout clears the session cookie. Tokens are stateless, so a bearer copy
// stays valid until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the user behind the attached session artifact.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	token := h.guard.Token(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.accounts.CurrentUser(r.Context(), token)
	if err != nil {
		if services.KindOf(err) == services.KindInvalidCredentials {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeServiceError(w, r, err, "failed to load session")
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{User: user})
}
