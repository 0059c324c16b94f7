package jwt

import (
	"net/http"
	"strings"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The second return value is false when the header is missing or malformed.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}
