package user

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
)

// Repository is the identity store. Implementations must be safe for concurrent use
// and must hand out copies, never the stored records themselves.
type Repository interface {
	// Create inserts u, failing with ErrUsernameTaken or ErrEmailTaken on a duplicate key.
	Create(ctx context.Context, u *User) error

	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update applies fn to the stored record as one atomic step and returns the result.
	// If fn returns an error the record is left untouched and the error is returned as is.
	Update(ctx context.Context, username string, fn func(u *User) error) (*User, error)

	// List returns every user ordered by username.
	List(ctx context.Context) ([]*User, error)
}
