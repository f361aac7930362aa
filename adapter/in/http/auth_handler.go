package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"webmail_client/core/service/token"
	"webmail_client/infra/middleware"
	"webmail_client/pkg/apperr"
	"webmail_client/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
)

// oauthStateTTL bounds how long a login attempt's state value is honored.
const oauthStateTTL = 10 * time.Minute

// StateStore persists OAuth state values for CSRF protection. Validation
// consumes the state.
type StateStore interface {
	StoreState(ctx context.Context, state string, ttl time.Duration) error
	ValidateState(ctx context.Context, state string) error
}

// SignOutFunc tears down mailbox state at logout.
type SignOutFunc func(ctx context.Context)

// AuthHandler owns the OAuth sign-in flow and the session lifecycle.
type AuthHandler struct {
	oauth      *oauth2.Config
	tokens     *token.Manager
	stateStore StateStore
	signOut    SignOutFunc

	jwtSecret    string
	jwtExpiry    time.Duration
	cookieName   string
	secureCookie bool
}

// AuthConfig carries session-issuing settings into the handler.
type AuthConfig struct {
	JWTSecret    string
	JWTExpiry    time.Duration
	CookieName   string
	SecureCookie bool
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(oauth *oauth2.Config, tokens *token.Manager, stateStore StateStore, signOut SignOutFunc, cfg AuthConfig) *AuthHandler {
	return &AuthHandler{
		oauth:        oauth,
		tokens:       tokens,
		stateStore:   stateStore,
		signOut:      signOut,
		jwtSecret:    cfg.JWTSecret,
		jwtExpiry:    cfg.JWTExpiry,
		cookieName:   cfg.CookieName,
		secureCookie: cfg.SecureCookie,
	}
}

// Register registers auth routes. These sit outside SessionAuth: login has no
// session yet and status must answer before one exists.
func (h *AuthHandler) Register(app fiber.Router) {
	auth := app.Group("/auth")
	auth.Get("/login", h.Login)
	auth.Get("/callback", h.Callback)
	auth.Post("/logout", h.Logout)
	auth.Get("/status", h.Status)
}

func generateState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Login returns the Google consent URL for the frontend to redirect to.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	state, err := generateState()
	if err != nil {
		return InternalErrorResponse(c, err, "generate oauth state")
	}
	if err := h.stateStore.StoreState(c.Context(), state, oauthStateTTL); err != nil {
		return InternalErrorResponse(c, err, "store oauth state")
	}

	authURL := h.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	return SuccessResponse(c, fiber.Map{"auth_url": authURL, "state": state})
}

// Callback exchanges the authorization code, stores the credential pair and
// issues the browser session token.
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth consent denied: %s", errParam)
		return ErrorResponse(c, 400, apperr.CodePermissionDenied, "consent denied: "+errParam)
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		return ErrorResponse(c, 400, apperr.CodeMissingField, "missing authorization code")
	}
	if state == "" {
		return ErrorResponse(c, 400, apperr.CodeMissingField, "missing state")
	}
	if err := h.stateStore.ValidateState(c.Context(), state); err != nil {
		logger.WithError(err).Warn("oauth state validation failed")
		return ErrorResponse(c, 400, apperr.CodeValidationFailed, "invalid state")
	}

	tok, err := h.oauth.Exchange(c.Context(), code)
	if err != nil {
		logger.WithError(err).Error("oauth code exchange failed")
		return ErrorResponse(c, 502, apperr.CodeNetworkError, "token exchange failed")
	}
	h.tokens.StoreInitial(c.Context(), tok)

	session, err := middleware.IssueSessionToken(h.jwtSecret, "", h.jwtExpiry)
	if err != nil {
		return InternalErrorResponse(c, err, "issue session token")
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    session,
		Expires:  time.Now().Add(h.jwtExpiry),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: "Lax",
	})

	return SuccessResponse(c, fiber.Map{"session_token": session})
}

// Logout clears stored credentials, tears down mailbox state and expires the
// session cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.tokens.Clear(c.Context())
	if h.signOut != nil {
		h.signOut(c.Context())
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: "Lax",
	})
	return SuccessResponse(c, fiber.Map{"signed_out": true})
}

// Status reports whether a credential pair is stored, so the frontend can
// decide between the mailbox view and the sign-in screen.
func (h *AuthHandler) Status(c *fiber.Ctx) error {
	return SuccessResponse(c, fiber.Map{
		"authenticated": h.tokens.HasSession(c.Context()),
	})
}
