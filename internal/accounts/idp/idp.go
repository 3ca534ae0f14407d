// Package idp defines the identity-provider contract consumed by the account
// creation saga, plus the shipped implementations. The provider is the system
// that grants login capability; the saga always registers it last so a
// partially-created domain record can never authenticate.
package idp

import (
	"context"

	"github.com/google/uuid"
)

// Provider is the identity-provider adapter contract.
type Provider interface {
	// CreateAccount registers login credentials for the user.
	CreateAccount(ctx context.Context, poolID, clientID string, organizationID, userID uuid.UUID, password string) error
	// UpdatePassword replaces the user's password.
	UpdatePassword(ctx context.Context, poolID, clientID string, organizationID, userID uuid.UUID, password string) error
	// DeleteAccount removes the user's login credentials.
	DeleteAccount(ctx context.Context, poolID string, organizationID, userID uuid.UUID) error
}
