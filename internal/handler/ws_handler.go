package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"chatyni/internal/app/chat"
	"chatyni/internal/pkg/errs"
	"chatyni/internal/pkg/limiter"
	"chatyni/internal/pkg/logx"
	"chatyni/internal/pkg/resp"
)

// HandleWebSocket upgrades the connection and runs the client pumps. The connection starts
// anonymous; identity is established by the client's first auth frame.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", limiter.ClientIP(r))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(deps.Hub, deps.Auth, conn)

		go client.WritePump()

		logx.Info("WebSocket connection established, awaiting auth frame.", "ip", limiter.ClientIP(r))

		client.ReadPump()
	}
}
