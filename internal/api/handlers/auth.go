package handlers

import (
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/todo/internal/auth"
	"github.com/felixgeelhaar/todo/internal/gateway"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *auth.Service
	gateway      *gateway.Gateway
	cookieMaxAge int
	secureCookie bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, gw *gateway.Gateway, secureCookie bool, maxAge int) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		gateway:      gw,
		cookieMaxAge: maxAge,
		secureCookie: secureCookie,
	}
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"user": user})
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	h.setSessionCookie(w, result.Session.Token, h.cookieMaxAge)
	WriteJSON(w, http.StatusOK, map[string]any{"user": result.User})
}

// Logout handles user logout. It succeeds whether or not a session exists,
// but reports a failure to revoke one so the client knows it may still be live.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)

	if token := gateway.TokenFromRequest(r); token != "" {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			slog.Warn("failed to revoke session on logout", "error", err)
			WriteDomainError(w, r, err)
			return
		}
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// LogoutAll revokes every session of the current user
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	n, err := h.authService.LogoutAll(r.Context(), user.ID)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	WriteJSON(w, http.StatusOK, map[string]any{"revoked": n})
}

// Me returns the current user, or null when not logged in
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := gateway.TokenFromRequest(r)

	user, err := h.gateway.CurrentUser(r.Context(), token)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	if user == nil && token != "" {
		h.clearSessionCookie(w)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     gateway.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	h.setSessionCookie(w, "", -1)
}
