package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chatyni/internal/app/user"
	"chatyni/internal/pkg/req"
	"chatyni/internal/pkg/resp"
)

type BanInput struct {
	Reason       string   `json:"reason"`
	DurationDays *float64 `json:"durationDays"`
}

type SetPasswordInput struct {
	NewPassword string `json:"newPassword"`
}

// HandleListUsers returns every user except the calling admin.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, customErr := deps.Moderation.ListUsers(r.Context(), CurrentUser(r).Username)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		profiles := make([]user.Profile, 0, len(users))
		for _, u := range users {
			profiles = append(profiles, u.Profile())
		}

		resp.RespondSuccess(w, r, profiles)
	}
}

// HandlePromote grants the admin role to the target user.
func HandlePromote(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := chi.URLParam(r, "username")

		if customErr := deps.Moderation.Promote(r.Context(), target); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondMessage(w, r, fmt.Sprintf("User %s promoted to admin.", target))
	}
}

// HandleBan bans the target user and terminates their live session.
func HandleBan(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := chi.URLParam(r, "username")

		var input BanInput
		if customErr := req.BindOptionalJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		customErr := deps.Moderation.Ban(r.Context(), CurrentUser(r).Username, target, input.Reason, input.DurationDays)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondMessage(w, r, fmt.Sprintf("User %s banned.", target))
	}
}

// HandleUnban lifts the ban of the target user.
func HandleUnban(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := chi.URLParam(r, "username")

		if customErr := deps.Moderation.Unban(r.Context(), target); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondMessage(w, r, fmt.Sprintf("User %s unbanned.", target))
	}
}

// HandleSetPassword replaces the password of the target user.
func HandleSetPassword(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := chi.URLParam(r, "username")

		var input SetPasswordInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := deps.Moderation.SetPassword(r.Context(), target, input.NewPassword); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondMessage(w, r, fmt.Sprintf("Password for %s updated.", target))
	}
}
