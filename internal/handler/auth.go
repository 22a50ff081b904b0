package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/service"
)

const oauthStateCookie = "oauth_state"

// AuthHandler serves the login entry points and manages the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLoginForm / HandleLogin       → email + password login
//   - HandleRegisterForm / HandleRegister → account creation
//   - HandleLogout                        → clear the session cookie
//   - HandleGitHubLogin / Callback        → optional GitHub OAuth login
//
// DEPENDENCY CHAIN:
//   - accounts *service.AuthService → verifies credentials, issues tokens
//   - github   *auth.GitHubProvider → nil when GitHub login is not configured
//   - tokens   *auth.TokenService   → only for the cookie lifetime
type AuthHandler struct {
	accounts      *service.AuthService
	github        *auth.GitHubProvider
	tokens        *auth.TokenService
	views         *Renderer
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil.
func NewAuthHandler(
	accounts *service.AuthService,
	github *auth.GitHubProvider,
	tokens *auth.TokenService,
	views *Renderer,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts:      accounts,
		github:        github,
		tokens:        tokens,
		views:         views,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleLoginForm renders the login page.
//
// HTTP: GET /login
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, http.StatusOK, pageLogin, pageData{
		Title:         "Log in",
		GitHubEnabled: h.github != nil,
	})
}

// HandleLogin checks the credentials and starts a session.
//
// HTTP: POST /login (form: email, password)
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	res, err := h.accounts.Login(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.views.Render(w, http.StatusUnauthorized, pageLogin, pageData{
				Title:         "Log in",
				Error:         publicMessage(err, http.StatusUnauthorized),
				Form:          r.PostForm,
				GitHubEnabled: h.github != nil,
			})
			return
		}
		h.logger.Error("login failed", slog.String("error", err.Error()))
		h.views.RenderError(w, nil, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.tokens, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleRegisterForm renders the sign-up page.
//
// HTTP: GET /register
func (h *AuthHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, http.StatusOK, pageRegister, pageData{Title: "Register"})
}

// HandleRegister creates a password account and logs it in.
//
// HTTP: POST /register (form: name, email, password, picture)
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	res, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Picture:  r.PostFormValue("picture"),
	})
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			h.views.Render(w, http.StatusBadRequest, pageRegister, pageData{
				Title: "Register",
				Error: publicMessage(err, http.StatusBadRequest),
				Form:  r.PostForm,
			})
			return
		}
		h.logger.Error("registration failed", slog.String("error", err.Error()))
		h.views.RenderError(w, nil, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.tokens, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /logout
//
// Logout is a state-changing operation, so it is POST: a GET would let
// browsers pre-fetch it and any page could log the user out with an <img>.
//
// Sessions are stateless (JWT), so "logout" just means deleting the
// cookie. The token stays technically valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived cookie and sent to GitHub.
// HandleGitHubCallback only proceeds when both match, which proves the
// callback was initiated by this server.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Upsert the account and issue a session token
//  4. Set the session cookie and redirect to the blog list
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// The user denied authorization on GitHub.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// --- Step 3: Upsert the account ---
	res, err := h.accounts.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// --- Step 4: Session cookie ---
	auth.SetSessionCookie(w, res.Token, h.tokens, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
