package logx

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// anonymizeIP keeps the network part of an address: the first three octets of IPv4 and
// the first 64 bits of IPv6. Loopback is reported as 127.0.0.1.
func anonymizeIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}

	ip := net.ParseIP(addr)
	switch {
	case ip == nil:
		return "unknown_ip"
	case ip.IsLoopback():
		return "127.0.0.1"
	}

	if v4 := ip.To4(); v4 != nil {
		return net.IPv4(v4[0], v4[1], v4[2], 0).String()
	}

	masked := make(net.IP, net.IPv6len)
	copy(masked, ip.To16()[:8])
	return masked.String()
}

// TagUser adds username to the request logger carried by ctx. The request's completion
// line then names the user the request acted for. It is a no-op outside RequestLogger.
func TagUser(ctx context.Context, username string) {
	zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("username", username)
	})
}

// RequestLogger stores a per-request logger in the request context and writes one line
// when the request completes. The line carries the matched chi route pattern, the
// anonymized client address, the status, and the latency. 5xx logs at Error and 4xx at
// Warn.
func RequestLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()

			logger := Component("http",
				"request_id", middleware.GetReqID(r.Context()),
				"remote_ip", anonymizeIP(r.RemoteAddr),
				"request_method", r.Method,
				"request_uri", r.RequestURI,
			)
			r = r.WithContext(logger.WithContext(r.Context()))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// TagUser may have updated the logger stored in the context.
			reqLogger := zerolog.Ctx(r.Context())

			status := ww.Status()
			evt := reqLogger.Info()
			switch {
			case status >= http.StatusInternalServerError:
				evt = reqLogger.Error()
			case status >= http.StatusBadRequest:
				evt = reqLogger.Warn()
			}

			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					evt = evt.Str("route", pattern)
				}
			}

			evt.Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(started)).
				Msg("Request completed")
		})
	}
}
