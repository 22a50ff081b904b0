package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
)

const (
	// SessionCookie holds the signed session token.
	SessionCookie = "session"
	// LoginPath is where the gate sends anonymous browsers.
	LoginPath = "/login"
)

// contextKey is unexported so only this package can read or write the
// session user in a request context.
type contextKey struct{}

// UserLookup resolves the user ID stored in a session token.
// repository.UserRepository satisfies it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// RequireSession is the session gate for browser routes.
//
// It reads the session cookie, validates the token and loads the user. If
// any of that fails the browser is redirected (303 See Other) to LoginPath
// and the wrapped handler never runs; this is not reported as an error
// status. On success the user is attached to the request context, from
// which handler.Authed hands it to the handler as an explicit argument.
//
// A store failure while loading the user is not "logged out", so it is a
// 500 rather than a redirect.
func RequireSession(tokens *TokenService, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveSession(w, r, tokens, users, logger)
			if err != nil {
				logger.Error("session gate: loading user failed", slog.String("error", err.Error()))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAPISession is the JSON flavour of the gate: 401 instead of a redirect.
func RequireAPISession(tokens *TokenService, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveSession(w, r, tokens, users, logger)
			if err != nil {
				logger.Error("api session gate: loading user failed", slog.String("error", err.Error()))
				writeJSONError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
				return
			}
			if user == nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "valid session required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the session user, or (nil, false) for anonymous
// requests.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(contextKey{}).(*model.User)
	return u, ok && u != nil
}

// SetSessionCookie stores token in an HttpOnly, SameSite=Lax cookie.
// secure should be true whenever the site is served over HTTPS.
func SetSessionCookie(w http.ResponseWriter, token string, tokens *TokenService, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// resolveSession returns (nil, nil) for an anonymous request. A non-nil
// error means the user store itself failed.
//
// A cookie that no longer resolves (bad signature, expired, deleted user)
// is cleared so the browser stops sending it.
func resolveSession(w http.ResponseWriter, r *http.Request, tokens *TokenService, users UserLookup, logger *slog.Logger) (*model.User, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, nil
	}
	userID, err := tokens.Validate(cookie.Value)
	if err != nil {
		logger.Debug("session gate: rejecting token",
			slog.String("path", r.URL.Path),
			slog.String("reason", err.Error()),
		)
		ClearSessionCookie(w)
		return nil, nil
	}
	user, err := users.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			ClearSessionCookie(w)
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func writeJSONError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}
