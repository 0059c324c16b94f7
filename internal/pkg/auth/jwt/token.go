package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// UserIdentityExpiration defines the lifetime of a user identity token.
	UserIdentityExpiration = 24 * time.Hour

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "Chatyni-Server"
)

// ErrInvalidToken is returned for every token that fails parsing, signature, or expiry checks.
var ErrInvalidToken = errors.New("invalid or expired token")

// GenerateToken creates and signs a new token for username, valid for duration from now.
func GenerateToken(username string, secretKey string, duration time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(duration)

	payload := &Payload{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expiresAt.Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    TokenIssuer,
		},
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	signed, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// ParseToken parses and validates the token string using the provided secretKey.
// Any failure is reported as ErrInvalidToken wrapping nothing else, so callers
// never leak which check failed.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil || !token.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
