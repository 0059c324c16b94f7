/*
Package user contains the identity records of the chat system and the store that owns them.

A User is created at registration and never deleted. Its role and ban state are mutated
only through Repository.Update so that every transition is a single atomic step.
*/
package user

import (
	"time"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Status is the moderation state of a user.
type Status string

const (
	StatusActive Status = "active"
	StatusBanned Status = "banned"
	// StatusUnbanned marks a lapsed ban that still needs one more sign-in to clear.
	StatusUnbanned Status = "unbanned"
)

// BanDetails records who banned a user, why, and until when.
// A nil ExpiresAt on a banned user denotes a permanent ban.
type BanDetails struct {
	BannedBy  string     `json:"bannedBy"`
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Expired reports whether a timed ban has lapsed at now. Permanent bans never expire.
func (b BanDetails) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && !now.Before(*b.ExpiresAt)
}

// User is the identity record of a chat participant.
type User struct {
	Username       string
	Email          string
	PasswordHash   string
	Role           Role
	Status         Status
	BanDetails     BanDetails
	AvatarURL      string
	RobloxUsername string
	IP             string
	CreatedAt      time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsBanned reports whether the user is under a ban that has not yet lapsed at now.
func (u *User) IsBanned(now time.Time) bool {
	return u.Status == StatusBanned && !u.BanDetails.Expired(now)
}

// Clone returns a deep copy, so callers never share the store's record.
func (u *User) Clone() *User {
	out := *u
	if u.BanDetails.ExpiresAt != nil {
		expiresAt := *u.BanDetails.ExpiresAt
		out.BanDetails.ExpiresAt = &expiresAt
	}
	return &out
}

// Profile is the client-facing view of a User. It never includes the password hash.
type Profile struct {
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Role           Role       `json:"role"`
	IsAdmin        bool       `json:"isAdmin"`
	Status         Status     `json:"status"`
	BanDetails     BanDetails `json:"banDetails"`
	AvatarURL      string     `json:"avatarUrl"`
	RobloxUsername string     `json:"robloxUsername,omitempty"`
	IP             string     `json:"ip,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Profile builds the client-facing view of u.
func (u *User) Profile() Profile {
	c := u.Clone()
	return Profile{
		Username:       c.Username,
		Email:          c.Email,
		Role:           c.Role,
		IsAdmin:        c.IsAdmin(),
		Status:         c.Status,
		BanDetails:     c.BanDetails,
		AvatarURL:      c.AvatarURL,
		RobloxUsername: c.RobloxUsername,
		IP:             c.IP,
		CreatedAt:      c.CreatedAt,
	}
}
