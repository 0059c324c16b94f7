package handler

import (
	"context"
	"net/http"

	"chatyni/internal/app/user"
	"chatyni/internal/pkg/auth/jwt"
	"chatyni/internal/pkg/errs"
	"chatyni/internal/pkg/logx"
	"chatyni/internal/pkg/resp"
)

type contextKey string

const currentUserKey contextKey = "currentUser"

// RequireUser resolves the bearer token to the current user record and stores it in the
// request context. A missing header yields 401; a bad token 403; a vanished user 404.
func RequireUser(deps *AppDeps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := jwt.BearerToken(r)
			if !ok {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			u, customErr := deps.Auth.Verify(r.Context(), token)
			if customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}

			logx.TagUser(r.Context(), u.Username)

			ctx := context.WithValue(r.Context(), currentUserKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects callers without the admin role. It must run after RequireUser.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := CurrentUser(r)
		if u == nil || !u.IsAdmin() {
			username := ""
			if u != nil {
				username = u.Username
			}
			logx.Warn("Admin route rejected: caller is not an admin.", "username", username, "path", r.URL.Path)
			resp.RespondError(w, r, errs.NewError(errs.ErrAdminRequired))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CurrentUser returns the user resolved by RequireUser, or nil.
func CurrentUser(r *http.Request) *user.User {
	u, _ := r.Context().Value(currentUserKey).(*user.User)
	return u
}
