package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims issued to a signed-in chat user.
// It carries nothing but the username: role, ban state, and avatar are always
// re-read from the identity store so that a token never outlives a ban decision.
type Payload struct {
	// StandardClaims embeds Exp (Expiration), Iat (Issued At), and Iss (Issuer).
	jwt.StandardClaims

	// Username is the unique key of the user record the token was issued for.
	Username string `json:"username"`
}
