/*
Package moderation implements the administrator actions on other users: promote, ban,
unban, password reset, and the user listing.

A ban is enforced in real time. The new state is committed to the identity store first,
and only then is the user's live session pushed a notice and closed through the session
registry. Admission to the registry re-checks the stored ban, so a connection racing the
ban is either refused or kicked.
*/
package moderation

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatyni/internal/app/auth"
	"chatyni/internal/app/user"
	"chatyni/internal/pkg/errs"
	"chatyni/internal/pkg/logx"
)

const (
	// DefaultBanReason is recorded when a ban is issued without a reason.
	DefaultBanReason = "No reason provided."

	// MaxBanDays caps the length of a timed ban. Longer durations are clamped to it.
	MaxBanDays = 36500
)

// Kicker terminates the live session of a user. It reports whether a session was found.
type Kicker interface {
	Kick(username, reason string) bool
}

// Engine performs moderation actions against the identity store.
type Engine struct {
	users  user.Repository
	kicker Kicker
	now    func() time.Time
	logger zerolog.Logger
}

// NewEngine constructs an Engine. kicker is usually the process-wide chat.Hub.
func NewEngine(users user.Repository, kicker Kicker) *Engine {
	return &Engine{
		users:  users,
		kicker: kicker,
		now:    time.Now,
		logger: logx.Component("Moderation"),
	}
}

// Promote grants the admin role to username.
func (e *Engine) Promote(ctx context.Context, username string) *errs.CustomError {
	_, err := e.users.Update(ctx, username, func(u *user.User) error {
		if u.IsAdmin() {
			return errs.NewError(errs.ErrAlreadyAdmin)
		}
		u.Role = user.RoleAdmin
		return nil
	})
	if customErr := e.mapUpdateError(err); customErr != nil {
		return customErr
	}

	logx.ForUser(e.logger, username).Info().Msg("User promoted to admin.")
	return nil
}

// Ban marks username as banned by actor. A nil or non-positive durationDays yields a
// permanent ban; fractional days are honored. The live session, if any, is told the
// reason and closed afterwards.
func (e *Engine) Ban(ctx context.Context, actor, username, reason string, durationDays *float64) *errs.CustomError {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultBanReason
	}

	expiresAt := banExpiry(e.now(), durationDays)

	_, err := e.users.Update(ctx, username, func(u *user.User) error {
		if u.IsAdmin() {
			return errs.NewError(errs.ErrCannotBanAdmin)
		}
		u.Status = user.StatusBanned
		u.BanDetails = user.BanDetails{
			BannedBy:  actor,
			Reason:    reason,
			ExpiresAt: expiresAt,
		}
		return nil
	})
	if customErr := e.mapUpdateError(err); customErr != nil {
		return customErr
	}

	kicked := e.kicker.Kick(username, reason)

	event := logx.ForUser(e.logger, username).Warn().
		Str("banned_by", actor).
		Str("reason", reason).
		Bool("session_terminated", kicked)
	if expiresAt != nil {
		event = event.Time("expires_at", *expiresAt)
	}
	event.Msg("User banned.")

	return nil
}

// Unban restores username to active and clears its ban details. Unbanning a user that
// is not banned succeeds and changes nothing observable.
func (e *Engine) Unban(ctx context.Context, username string) *errs.CustomError {
	_, err := e.users.Update(ctx, username, func(u *user.User) error {
		u.Status = user.StatusActive
		u.BanDetails = user.BanDetails{}
		return nil
	})
	if customErr := e.mapUpdateError(err); customErr != nil {
		return customErr
	}

	logx.ForUser(e.logger, username).Info().Msg("User unbanned.")
	return nil
}

// SetPassword replaces the password of username. Tokens issued before the change stay
// valid until they expire.
func (e *Engine) SetPassword(ctx context.Context, username, newPassword string) *errs.CustomError {
	if newPassword == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return errs.NewError(errs.ErrUnknown, err)
	}

	_, err = e.users.Update(ctx, username, func(u *user.User) error {
		u.PasswordHash = hash
		return nil
	})
	if customErr := e.mapUpdateError(err); customErr != nil {
		return customErr
	}

	logx.ForUser(e.logger, username).Info().Msg("Password reset by admin.")
	return nil
}

// ListUsers returns every user except exclude, ordered by username.
func (e *Engine) ListUsers(ctx context.Context, exclude string) ([]*user.User, *errs.CustomError) {
	all, err := e.users.List(ctx)
	if err != nil {
		return nil, errs.NewError(errs.ErrUnknown, err)
	}

	out := make([]*user.User, 0, len(all))
	for _, u := range all {
		if u.Username != exclude {
			out = append(out, u)
		}
	}

	return out, nil
}

// banExpiry returns the end of a ban lasting days from now, or nil for a permanent ban.
// days is clamped to MaxBanDays so the result never wraps into the past.
func banExpiry(now time.Time, days *float64) *time.Time {
	if days == nil || !(*days > 0) {
		return nil
	}

	d := math.Min(*days, MaxBanDays)
	t := now.Add(time.Duration(d * float64(24*time.Hour)))
	return &t
}

func (e *Engine) mapUpdateError(err error) *errs.CustomError {
	if err == nil {
		return nil
	}

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	if errors.Is(err, user.ErrNotFound) {
		return errs.NewError(errs.ErrUserNotFound)
	}

	return errs.NewError(errs.ErrUnknown, err)
}
