// Package identity abstracts the external identity provider the panel
// delegates authentication to. The panel never stores credentials; it resolves
// opaque session tokens to users and reads/writes the role claim kept in the
// provider's user metadata.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrSessionInvalid means the presented session token is unknown,
	// expired, or revoked.
	ErrSessionInvalid = errors.New("identity: session invalid")
	// ErrUserNotFound means the provider has no user with the given id.
	ErrUserNotFound = errors.New("identity: user not found")
)

// User is the provider-side account the panel acts on behalf of. Role is the
// panel role claim stored in the provider's public metadata; it may be empty
// for users that have never signed in to the panel.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Provider is the identity backend. Implementations must be safe for
// concurrent use.
type Provider interface {
	// ResolveSession exchanges an opaque session token for the user it
	// belongs to, or ErrSessionInvalid.
	ResolveSession(ctx context.Context, token string) (*User, error)
	// GetUser fetches a user by id, or ErrUserNotFound.
	GetUser(ctx context.Context, id string) (*User, error)
	// ListUsers returns every user known to the provider.
	ListUsers(ctx context.Context) ([]User, error)
	// UpdateUserRole replaces the role claim in the user's metadata.
	UpdateUserRole(ctx context.Context, id, role string) (*User, error)
}
