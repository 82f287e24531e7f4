package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/plixa/plixa/internal/auth"
	"github.com/plixa/plixa/internal/cache"
	"github.com/plixa/plixa/internal/metrics"
	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/repository"
)

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger     *slog.Logger
	Repository *repository.Repository
	Cache      *cache.Cache
	Tokens     *auth.TokenIssuer
	Metrics    metrics.Recorder
}

// Auth returns a middleware that authenticates API requests.
// It extracts the bearer token from the Authorization header, verifies it,
// and injects the auth context into the request.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				logAuthFailure(cfg, r, "missing_token")
				writeAuthError(w)
				return
			}

			// Check cache first
			cacheKey := cache.TokenCacheKey(token)
			authCtx, _ := cfg.Cache.GetAuthContext(r.Context(), cacheKey)

			if authCtx != nil {
				cfg.Metrics.IncAuthSuccess()
				ctx := auth.ContextWithAuth(r.Context(), authCtx)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// Cache miss - verify the token signature and claims
			subject, err := cfg.Tokens.Verify(token)
			if err != nil {
				logAuthFailure(cfg, r, "invalid_token")
				writeAuthError(w)
				return
			}

			user, err := cfg.Repository.GetUserByID(r.Context(), subject.UserID)
			if err != nil {
				logAuthFailure(cfg, r, "unknown_user")
				writeAuthError(w)
				return
			}
			if user.Disabled {
				logAuthFailure(cfg, r, "account_disabled")
				writeAuthError(w)
				return
			}

			authCtx = &model.AuthContext{
				UserID: user.ID,
				Type:   user.Type,
				Scopes: subject.Scopes,
			}

			// Cache the result
			_ = cfg.Cache.SetAuthContext(r.Context(), cacheKey, authCtx)

			cfg.Metrics.IncAuthSuccess()
			cfg.Logger.Info("authentication successful",
				slog.String("user_id", authCtx.UserID),
				slog.String("user_type", string(authCtx.Type)),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthOptional returns a middleware that authenticates the request when a
// bearer token is present but lets anonymous requests through. Routes that
// serve both signed-in and anonymous callers (such as account signup) use
// this so handlers can check for a principal without forcing one.
func AuthOptional(cfg AuthConfig) func(http.Handler) http.Handler {
	authed := Auth(cfg)
	return func(next http.Handler) http.Handler {
		withAuth := authed(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if extractBearerToken(r) == "" {
				next.ServeHTTP(w, r)
				return
			}
			withAuth.ServeHTTP(w, r)
		})
	}
}

func logAuthFailure(cfg AuthConfig, r *http.Request, reason string) {
	cfg.Metrics.IncAuthFailure(reason)
	cfg.Logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid or missing credentials"}}`))
}
