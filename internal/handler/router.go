package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"chatyni/internal/pkg/limiter"
	"chatyni/internal/pkg/logx"
	"chatyni/internal/pkg/resp"
)

const (
	RegisterRate  = 0.05
	RegisterBurst = 3
	ConnectRate   = 0.2
	ConnectBurst  = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	registerLimiter := limiter.NewIPRateLimiter(rate.Limit(RegisterRate), RegisterBurst)
	loginLimiter := limiter.NewIPRateLimiter(rate.Limit(deps.Config.LoginRate), deps.Config.LoginBurst)
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":   "ok",
			"service":  "Chatyni Server",
			"sessions": deps.Hub.Count(),
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.With(registerLimiter.Middleware).Post("/register", HandleRegister(deps))
		api.With(loginLimiter.Middleware).Post("/login", HandleLogin(deps))

		api.Group(func(authed chi.Router) {
			authed.Use(RequireUser(deps))

			authed.Route("/users/me", func(me chi.Router) {
				me.Get("/", HandleGetMe())
				me.Put("/avatar", HandleUpdateAvatar(deps))
				me.Put("/roblox", HandleLinkRoblox(deps))
			})

			authed.Route("/admin/users", func(admin chi.Router) {
				admin.Use(RequireAdmin)

				admin.Get("/", HandleListUsers(deps))
				admin.Put("/{username}/promote", HandlePromote(deps))
				admin.Put("/{username}/ban", HandleBan(deps))
				admin.Put("/{username}/unban", HandleUnban(deps))
				admin.Put("/{username}/password", HandleSetPassword(deps))
			})
		})
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, connectLimiter, deps))

	return r
}
