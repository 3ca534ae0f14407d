package idp

import (
	"context"
	"errors"

	"accounts_backend/internal/accounts/replica"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// LocalProvider keeps bcrypt password hashes in the replica store. It exists
// for development and single-tenant deployments without an external provider;
// the contract is identical to the HTTP provider's.
type LocalProvider struct {
	store    *replica.Store
	keyspace string
}

type localCredential struct {
	PoolID         string `json:"poolId"`
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
	PasswordHash   string `json:"passwordHash"`
}

// NewLocalProvider creates a provider storing credentials in the replica store.
func NewLocalProvider(store *replica.Store, keyspace string) *LocalProvider {
	return &LocalProvider{store: store, keyspace: keyspace}
}

func credentialKey(userID uuid.UUID) string {
	return "credentials." + userID.String()
}

// CreateAccount hashes and stores the password. Fails if credentials already
// exist for the user.
func (p *LocalProvider) CreateAccount(ctx context.Context, poolID, _ string, organizationID, userID uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return p.store.Create(ctx, localCredential{
		PoolID:         poolID,
		OrganizationID: organizationID.String(),
		UserID:         userID.String(),
		PasswordHash:   string(hash),
	}, p.keyspace, credentialKey(userID))
}

// UpdatePassword replaces the stored hash. The credentials must exist.
func (p *LocalProvider) UpdatePassword(ctx context.Context, poolID, _ string, organizationID, userID uuid.UUID, password string) error {
	var existing localCredential
	if err := p.store.Get(ctx, p.keyspace, credentialKey(userID), &existing); err != nil {
		if errors.Is(err, replica.ErrNotFound) {
			return errors.New("identity account does not exist")
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	existing.PasswordHash = string(hash)
	return p.store.Upsert(ctx, existing, p.keyspace, credentialKey(userID), true)
}

// DeleteAccount removes the stored credentials.
func (p *LocalProvider) DeleteAccount(ctx context.Context, _ string, _, userID uuid.UUID) error {
	return p.store.Delete(ctx, p.keyspace, credentialKey(userID))
}

// VerifyPassword checks a password against the stored hash. Used by the local
// sign-in path, not by the saga.
func (p *LocalProvider) VerifyPassword(ctx context.Context, userID uuid.UUID, password string) error {
	var cred localCredential
	if err := p.store.Get(ctx, p.keyspace, credentialKey(userID), &cred); err != nil {
		return err
	}
	return bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password))
}

var _ Provider = (*LocalProvider)(nil)
