/*
Package auth verifies credentials, issues bearer tokens, and resolves tokens back to users.

The service is stateless beyond the identity store: tokens are self-contained JWTs and are
never recorded server-side, so a token stays valid until it expires.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"chatyni/internal/app/user"
	"chatyni/internal/pkg/auth/jwt"
	"chatyni/internal/pkg/errs"
	"chatyni/internal/pkg/logx"
)

// BcryptCost is the work factor used for every stored password hash.
var BcryptCost = bcrypt.DefaultCost

// placeholderAvatarURL is the avatar given to newly registered users; %s is the username's first letter.
const placeholderAvatarURL = "https://via.placeholder.com/150/000000/FFFFFF/?text=%s"

// Service implements registration, login, and token verification.
type Service struct {
	users     user.Repository
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService constructs an auth Service backed by users and signing tokens with jwtSecret.
func NewService(users user.Repository, jwtSecret string) *Service {
	return &Service{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  jwt.UserIdentityExpiration,
		now:       time.Now,
		logger:    logx.Component("Auth"),
	}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	IP       string
}

// Register creates a new active member account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*user.User, *errs.CustomError) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if username == "" || email == "" || in.Password == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, errs.NewError(errs.ErrUnknown, err)
	}

	first, _ := utf8.DecodeRuneInString(username)

	newUser := &user.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleMember,
		Status:       user.StatusActive,
		AvatarURL:    fmt.Sprintf(placeholderAvatarURL, string(first)),
		IP:           in.IP,
		CreatedAt:    s.now(),
	}

	if err := s.users.Create(ctx, newUser); err != nil {
		if errors.Is(err, user.ErrUsernameTaken) || errors.Is(err, user.ErrEmailTaken) {
			s.logger.Warn().Str("username", username).Err(err).Msg("Registration conflict.")
			return nil, errs.NewError(errs.ErrUserAlreadyExists)
		}
		return nil, errs.NewError(errs.ErrUnknown, err)
	}

	s.logger.Info().Str("username", username).Msg("User registered.")
	return newUser.Clone(), nil
}

// Login checks credentials and the ban gate, and issues a token on success.
//
// A lapsed ban is not cleared in the same request that discovers it: that call moves
// the user to unbanned and reports ReactivationRequired. The next successful credential
// check finds unbanned, reactivates the account, and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *errs.CustomError) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", errs.NewError(errs.ErrInvalidParams)
	}

	found, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return "", errs.NewError(errs.ErrUnknown, err)
		}
		s.logger.Warn().Str("email", email).Msg("Login failed: unknown email.")
		return "", errs.NewError(errs.ErrInvalidCredentials)
	}

	if !CheckPassword(found.PasswordHash, password) {
		s.logger.Warn().Str("username", found.Username).Msg("Login failed: password mismatch.")
		return "", errs.NewError(errs.ErrInvalidCredentials)
	}

	var gateErr *errs.CustomError
	_, err = s.users.Update(ctx, found.Username, func(u *user.User) error {
		gateErr = s.passGate(u)
		return nil
	})
	if err != nil {
		return "", errs.NewError(errs.ErrUnknown, err)
	}
	if gateErr != nil {
		return "", gateErr
	}

	token, _, err := jwt.GenerateToken(found.Username, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", errs.NewError(errs.ErrUnknown, err)
	}

	s.logger.Info().Str("username", found.Username).Msg("User signed in.")
	return token, nil
}

// passGate applies the login-time status transitions to u and returns the error that
// stops the login, if any.
func (s *Service) passGate(u *user.User) *errs.CustomError {
	switch u.Status {
	case user.StatusBanned:
		if u.BanDetails.Expired(s.now()) {
			u.Status = user.StatusUnbanned
			s.logger.Info().Str("username", u.Username).Msg("Ban expired; reactivation required.")
			return errs.NewError(errs.ErrReactivationRequired).WithDetail("needsReactivation", true)
		}
		return errs.NewError(errs.ErrAccountBanned).WithDetail("banDetails", u.Clone().BanDetails)

	case user.StatusUnbanned:
		u.Status = user.StatusActive
		u.BanDetails = user.BanDetails{}
		s.logger.Info().Str("username", u.Username).Msg("Account reactivated.")
	}

	return nil
}

// Verify resolves a bearer token to the current user record.
func (s *Service) Verify(ctx context.Context, token string) (*user.User, *errs.CustomError) {
	payload, err := jwt.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, errs.NewError(errs.ErrInvalidToken)
	}

	u, err := s.users.GetByUsername(ctx, payload.Username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.logger.Warn().Str("username", payload.Username).Msg("Token refers to an unknown user; directory was probably reset.")
			return nil, errs.NewError(errs.ErrUnknownIdentity)
		}
		return nil, errs.NewError(errs.ErrUnknown, err)
	}

	return u, nil
}

// Bootstrap ensures an administrator account exists. It is a no-op when the username is
// already registered.
func (s *Service) Bootstrap(ctx context.Context, username, email, password string) error {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	err = s.users.Create(ctx, &user.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		Status:       user.StatusActive,
		AvatarURL:    "https://i.imgur.com/DCp3Qe0.png",
		IP:           "127.0.0.1",
		CreatedAt:    s.now(),
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin %q: %w", username, err)
	}

	s.logger.Info().Str("username", username).Msg("Bootstrap administrator created.")
	return nil
}
