package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/loomline/storefront-backend/api/responses"
	pkgauth "github.com/loomline/storefront-backend/pkg/auth"
	"github.com/loomline/storefront-backend/pkg/auth/session"
	"github.com/loomline/storefront-backend/pkg/config"
	"github.com/loomline/storefront-backend/pkg/db/models"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/logger"
)

// SessionStarter issues fresh anonymous sessions.
type SessionStarter interface {
	Start(ctx context.Context) (string, *session.Record, error)
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SessionAuthParams bundles the dependencies of the session middleware.
type SessionAuthParams struct {
	Sessions session.Resolver
	Users    userLoader
	JWT      config.JWTConfig
	Cookie   config.SessionConfig
	Logger   *logger.Logger
}

// SessionAuth resolves the caller's session from the cookie or a Bearer JWT
// and seeds the request context. Requests without a session pass through
// anonymously; an explicit Bearer credential that fails to verify is a 401.
// Authenticated sessions load the user so a deactivated account is cut off
// on its next request, not at its next login.
func SessionAuth(params SessionAuthParams) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logg := params.Logger

			sessionID, explicit, err := sessionIDFromRequest(r, params.JWT, params.Cookie.CookieName)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}

			record, err := params.Sessions.Resolve(ctx, sessionID)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					if explicit {
						responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired"))
						return
					}
					// Stale cookie; treat the visitor as anonymous.
					next.ServeHTTP(w, r)
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve session"))
				return
			}

			ctx = WithSession(ctx, sessionID, record)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			if record.Authenticated() {
				user, err := params.Users.FindByID(ctx, *record.UserID)
				if err != nil {
					if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
						responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session user no longer exists"))
						return
					}
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session user"))
					return
				}
				if !user.IsActive {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "account disabled"))
					return
				}

				ctx = WithUserID(ctx, user.ID.String())
				ctx = WithRole(ctx, string(user.Role))
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"user_id":    user.ID.String(),
						"actor_role": string(user.Role),
					})
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionIDFromRequest extracts the session id. A Bearer token wins over the
// cookie and must verify; its jti claim is the session id. The bool reports
// whether the credential was explicit (Bearer) rather than ambient (cookie).
func sessionIDFromRequest(r *http.Request, jwtCfg config.JWTConfig, cookieName string) (string, bool, error) {
	if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
		token := raw
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[7:])
		}
		if token == "" {
			return "", true, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
		}
		claims, err := pkgauth.ParseAccessToken(jwtCfg, token)
		if err != nil {
			return "", true, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
		}
		if claims.ID == "" {
			return "", true, pkgerrors.New(pkgerrors.CodeUnauthorized, "token missing session id")
		}
		return claims.ID, true, nil
	}

	if cookie, err := r.Cookie(cookieName); err == nil {
		return strings.TrimSpace(cookie.Value), false, nil
	}
	return "", false, nil
}

// EnsureSession issues an anonymous session when the request carries none,
// so the first cart touch gives the browser its cookie. Must run after
// SessionAuth.
func EnsureSession(starter SessionStarter, cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SessionFromContext(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}

			sessionID, record, err := starter.Start(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start session"))
				return
			}

			SetSessionCookie(w, cfg, sessionID)

			ctx := WithSession(r.Context(), sessionID, record)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie writes the HttpOnly session cookie.
func SetSessionCookie(w http.ResponseWriter, cfg config.SessionConfig, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter, cfg config.SessionConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
