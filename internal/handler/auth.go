package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/halfbake/internal/auth"
	"github.com/sakif/halfbake/internal/model"
	"github.com/sakif/halfbake/internal/service"
	"github.com/sakif/halfbake/internal/validation"
)

const (
	stateCookieName = "oauth_state"
	stateCookieAge  = 10 * time.Minute
)

// AuthService is the subset of *service.AuthService the handlers call.
type AuthService interface {
	Register(ctx context.Context, req validation.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req validation.LoginRequest) (*service.AuthResult, error)
	LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*service.AuthResult, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// GitHubAuthenticator runs the OAuth code flow. *auth.GitHubProvider
// implements it.
type GitHubAuthenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// SessionConfig controls the session cookie and where GitHub sign-in
// lands afterwards.
type SessionConfig struct {
	Lifetime     time.Duration
	Secure       bool
	ClientOrigin string
}

// LoginResponse is the body of a successful login. The token is also set
// as a cookie; the body copy serves bearer clients.
type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// AuthHandler serves registration, login, logout, the current user, and
// GitHub sign-in.
//
// DEPENDENCY CHAIN:
//   - auth   AuthService          → validation, hashing, token issue
//   - github GitHubAuthenticator  → OAuth code exchange (nil when disabled)
type AuthHandler struct {
	auth    AuthService
	github  GitHubAuthenticator
	session SessionConfig
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil, in which case
// the GitHub routes are simply not mounted by the server.
func NewAuthHandler(svc AuthService, github GitHubAuthenticator, session SessionConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    svc,
		github:  github,
		session: session,
		logger:  logger,
	}
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"email": "...", "password": "...", "name": "..."}
//
// 201 with {id, email, name}. Registration does not sign the user in.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req validation.RegisterRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin verifies credentials and starts a session.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email": "...", "password": "..."}
//
// 200 with {token, user} plus the session cookie.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req validation.LoginRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, LoginResponse{Token: result.Token, User: result.User})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/auth/logout
//
// Tokens are stateless, so a copied token stays valid until it expires.
// POST rather than GET keeps browsers from prefetching it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /api/auth/me
// Auth: Required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Only reachable if the route is mounted without RequireAuth.
		WriteMessage(w, http.StatusUnauthorized, auth.MsgUnauthorized)
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), identity.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleGitHubLogin redirects the browser to GitHub's consent page.
//
// HTTP: GET /api/auth/github/login
//
// A random state value goes into a short-lived cookie and the authorize
// URL. The callback rejects any request whose two copies differ.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieAge.Seconds()),
		HttpOnly: true,
		Secure:   h.session.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes GitHub sign-in.
//
// HTTP: GET /api/auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Compare the state parameter with the state cookie
//  2. Exchange the code for the GitHub profile and verified email
//  3. Find or create the account with that email
//  4. Set the session cookie and redirect to the client
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || query.Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		WriteMessage(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		h.redirectToClient(w, r, "denied")
		return
	}

	code := query.Get("code")
	if code == "" {
		WriteMessage(w, http.StatusBadRequest, "Missing OAuth code")
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		if errors.Is(err, auth.ErrNoVerifiedEmail) {
			h.redirectToClient(w, r, "no_email")
			return
		}
		WriteMessage(w, http.StatusBadGateway, "GitHub sign-in failed")
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	h.redirectToClient(w, r, "")
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.session.Lifetime.Seconds()),
		HttpOnly: true,
		Secure:   h.session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// redirectToClient sends the browser back to the client origin, tagging
// failures with an auth query parameter.
func (h *AuthHandler) redirectToClient(w http.ResponseWriter, r *http.Request, failure string) {
	target := h.session.ClientOrigin
	if target == "" {
		target = "/"
	}
	if failure != "" {
		u, err := url.Parse(target)
		if err == nil {
			q := u.Query()
			q.Set("auth", failure)
			u.RawQuery = q.Encode()
			target = u.String()
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
