// internal/domain/identity/identity.go
package identity

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user not found in identity service")

// Email is the identity service's view of a user's address.
type Email struct {
	Verified bool
	Address  string
}

// User is a member of staff known to the identity service.
type User struct {
	Username string
	Name     string
	Email    Email
}

// TokenSupplier hands out a credential for the system principal, not an end user.
type TokenSupplier interface {
	SystemToken(ctx context.Context) (string, error)
}

// Service looks up staff in the external identity provider.
type Service interface {
	GetEmail(ctx context.Context, username, token string) (Email, error)
	GetUser(ctx context.Context, username, token string) (*User, error)
}
