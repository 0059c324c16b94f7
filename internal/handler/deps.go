package handler

import (
	"chatyni/internal/app/auth"
	"chatyni/internal/app/avatar"
	"chatyni/internal/app/chat"
	"chatyni/internal/app/moderation"
	"chatyni/internal/configs"
)

// AppDeps carries the long-lived services the HTTP layer dispatches to.
type AppDeps struct {
	Config     *configs.AppConfig
	Hub        *chat.Hub
	Auth       *auth.Service
	Moderation *moderation.Engine
	Avatars    *avatar.Service
}
