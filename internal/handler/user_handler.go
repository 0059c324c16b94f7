package handler

import (
	"net/http"

	"chatyni/internal/pkg/req"
	"chatyni/internal/pkg/resp"
)

type AvatarInput struct {
	AvatarData string `json:"avatarData"`
}

type RobloxInput struct {
	RobloxUsername string `json:"robloxUsername"`
}

// HandleGetMe returns the profile of the caller.
func HandleGetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, CurrentUser(r).Profile())
	}
}

// HandleUpdateAvatar replaces the caller's avatar with an uploaded image data URL.
func HandleUpdateAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input AvatarInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		avatarURL, customErr := deps.Avatars.SetFromDataURL(r.Context(), CurrentUser(r).Username, input.AvatarData)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"avatarUrl": avatarURL})
	}
}

// HandleLinkRoblox links a Roblox account to the caller and adopts its headshot.
func HandleLinkRoblox(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input RobloxInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		avatarURL, customErr := deps.Avatars.LinkRoblox(r.Context(), CurrentUser(r).Username, input.RobloxUsername)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"avatarUrl": avatarURL})
	}
}
