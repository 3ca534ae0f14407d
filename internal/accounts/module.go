// Package accounts provides the account-management bounded context: the
// multi-store user/organization creation saga and its surrounding operations.
package accounts

import (
	"accounts_backend/internal/accounts/handler"
	"accounts_backend/internal/accounts/idp"
	"accounts_backend/internal/accounts/replica"
	"accounts_backend/internal/accounts/repository"
	"accounts_backend/internal/accounts/service"
	"accounts_backend/internal/accounts/token"
	"accounts_backend/internal/events"
	apphttp "accounts_backend/internal/http"
	"accounts_backend/platform/config"
	"accounts_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ModuleConfig combines the config interfaces the module needs.
type ModuleConfig interface {
	config.ReplicaConfig
	config.TokenConfig
	config.IdentityProviderConfig
	config.PasswordPolicyConfig
}

// Module is the accounts bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	store   *replica.Store
}

// NewModule wires the accounts context: primary repository, replica
// projection store, token service, identity provider, and the saga service.
// Templates and dispatcher are optional; when nil, verification messages are
// minted but not delivered.
func NewModule(
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	cfg ModuleConfig,
	tmpl service.TemplateStore,
	dispatcher service.EmailDispatcher,
	bus events.Bus,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	store := replica.New(redisClient)
	keyspace := cfg.GetReplicaKeyspace()
	tokens := token.NewService(store, keyspace, cfg)

	var provider idp.Provider
	if cfg.GetIdentityProviderMode() == "http" {
		provider = idp.NewHTTPProvider(idp.HTTPConfig{
			BaseURL: cfg.GetIdentityEndpoint(),
			APIKey:  cfg.GetIdentityAPIKey(),
		})
	} else {
		provider = idp.NewLocalProvider(store, keyspace)
	}

	svc := service.New(service.Options{
		Primary:    repo,
		Replica:    store,
		Keyspace:   keyspace,
		Tokens:     tokens,
		Provider:   provider,
		IDPConfig:  cfg,
		Templates:  tmpl,
		Dispatcher: dispatcher,
		Rules:      cfg.GetPasswordRules(),
		Bus:        bus,
		Log:        log,
	})

	return &Module{
		handler: handler.New(svc),
		service: svc,
		store:   store,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "accounts"
}

// Service returns the accounts service for use by other composition-root wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Replica returns the projection store, used for readiness checks.
func (m *Module) Replica() *replica.Store {
	return m.store
}

// RegisterRoutes mounts the accounts routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
