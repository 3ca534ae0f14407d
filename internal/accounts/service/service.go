// Package service implements the account-management operations: the
// multi-store user/organization creation saga, the merge path for existing
// identities, and the update/delete/verification operations layered on the
// same stores.
package service

import (
	"context"
	"time"

	"accounts_backend/internal/accounts/domain"
	"accounts_backend/internal/accounts/idp"
	"accounts_backend/internal/accounts/token"
	"accounts_backend/internal/events"
	"accounts_backend/internal/templates"
	"accounts_backend/platform/config"
	"accounts_backend/platform/logger"

	"github.com/google/uuid"
)

// PrimaryStore is the consumer-driven contract for the authoritative document
// database. Single-record atomic, strongly consistent.
type PrimaryStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) (*domain.Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
	QueryByIdentity(ctx context.Context, channel domain.Channel, value string) ([]*domain.Account, error)
}

// ReplicaStore is the consumer-driven contract for the key-value projection.
type ReplicaStore interface {
	Create(ctx context.Context, record any, keyspace, key string) error
	Upsert(ctx context.Context, record any, keyspace, key string, overwrite bool) error
	Delete(ctx context.Context, keyspace, key string) error
}

// TokenService mints and revokes credential tokens.
type TokenService interface {
	Create(ctx context.Context, subject uuid.UUID, kind string, payload map[string]any) (*token.Token, error)
	Get(ctx context.Context, subject uuid.UUID, kind string) (*token.Token, error)
	Delete(ctx context.Context, subject uuid.UUID, kind string) error
	Seal(data string) (string, error)
}

// TemplateStore fetches per-solution email templates.
type TemplateStore interface {
	Fetch(ctx context.Context, solutionID, action string) (*templates.EmailTemplate, error)
}

// EmailDispatcher hands rendered verification emails to the delivery queue.
type EmailDispatcher interface {
	EnqueueVerificationEmail(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// Service implements the account operations.
type Service struct {
	primary  PrimaryStore
	replica  ReplicaStore
	keyspace string

	tokens   TokenService
	provider idp.Provider
	idpCfg   config.IdentityProviderConfig

	templates  TemplateStore
	dispatcher EmailDispatcher

	rules config.PasswordRules
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

// Options carries the service dependencies.
type Options struct {
	Primary    PrimaryStore
	Replica    ReplicaStore
	Keyspace   string
	Tokens     TokenService
	Provider   idp.Provider
	IDPConfig  config.IdentityProviderConfig
	Templates  TemplateStore
	Dispatcher EmailDispatcher
	Rules      config.PasswordRules
	Bus        events.Bus
	Log        *logger.Logger
}

// New creates the accounts service.
func New(opts Options) *Service {
	return &Service{
		primary:    opts.Primary,
		replica:    opts.Replica,
		keyspace:   opts.Keyspace,
		tokens:     opts.Tokens,
		provider:   opts.Provider,
		idpCfg:     opts.IDPConfig,
		templates:  opts.Templates,
		dispatcher: opts.Dispatcher,
		rules:      opts.Rules,
		bus:        opts.Bus,
		log:        opts.Log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

// project writes the account into the replica store under its entity-kind
// prefixed key, overwriting any previous projection.
func (s *Service) project(ctx context.Context, account *domain.Account) error {
	return s.replica.Upsert(ctx, account, s.keyspace, replicaKey(account), true)
}
