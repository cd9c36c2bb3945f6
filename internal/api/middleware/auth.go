package middleware

import (
	"context"
	"net/http"

	"codearena/internal/common"
	"codearena/internal/common/security"
	"codearena/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	userIDCtxKey   contextKey = "userID"
	userRoleCtxKey contextKey = "userRole"
)

// Authenticator requires a valid token and puts the identity (userID, role)
// into the request context for downstream handlers.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			common.RespondWithMessage(w, http.StatusUnauthorized, "authorization token required")
			return
		}

		userID, err := security.UserIDFromClaims(claims)
		if err != nil {
			common.RespondWithMessage(w, http.StatusUnauthorized, "invalid token claims: "+err.Error())
			return
		}
		role, err := security.UserRoleFromClaims(claims)
		if err != nil {
			common.RespondWithMessage(w, http.StatusUnauthorized, "invalid token claims: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), userIDCtxKey, userID)
		ctx = context.WithValue(ctx, userRoleCtxKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Identity extracts the identity from an already-verified token when one is
// present. Anonymous requests pass through untouched, so routes stay public
// while authenticated callers keep their role.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := security.UserIDFromClaims(claims)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		role, err := security.UserRoleFromClaims(claims)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userIDCtxKey, userID)
		ctx = context.WithValue(ctx, userRoleCtxKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := UserRoleFromContext(r.Context())
		if !ok || role != model.RoleAdmin {
			common.RespondWithMessage(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDCtxKey).(string)
	return userID, ok
}

func UserRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(userRoleCtxKey).(string)
	return role, ok
}
