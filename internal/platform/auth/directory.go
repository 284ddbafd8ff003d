package auth

import (
	"context"
	"log"
)

// DirectoryClient is the boundary to the external identity provider.
// The portal only ever pushes invitations and role assignments through it;
// authentication itself stays with the provider.
type DirectoryClient interface {
	InviteUser(ctx context.Context, email, displayName string) error
	AssignRole(ctx context.Context, userID, role string) error
}

// noopDirectory logs instead of calling out. Used when no provider is
// configured (local development, tests).
type noopDirectory struct{}

func NewNoopDirectory() DirectoryClient { return noopDirectory{} }

func (noopDirectory) InviteUser(ctx context.Context, email, displayName string) error {
	log.Printf("[INFO] directory: would invite %s (%s)", email, displayName)
	return nil
}

func (noopDirectory) AssignRole(ctx context.Context, userID, role string) error {
	log.Printf("[INFO] directory: would assign role %s to %s", role, userID)
	return nil
}
