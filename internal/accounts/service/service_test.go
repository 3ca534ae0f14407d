package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"accounts_backend/internal/accounts/domain"
	"accounts_backend/internal/accounts/repository"
	"accounts_backend/internal/accounts/token"
	"accounts_backend/platform/config"
	"accounts_backend/platform/logger"

	"github.com/google/uuid"
)

// fakePrimary is an in-memory PrimaryStore with per-step failure injection.
type fakePrimary struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.Account

	// failCreateFor makes Create fail for records with the given entity name.
	failCreateFor string
	failUpdate    bool
}

func newFakePrimary() *fakePrimary {
	return &fakePrimary{records: map[uuid.UUID]*domain.Account{}}
}

func (f *fakePrimary) Get(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return record.Clone(), nil
}

func (f *fakePrimary) Create(_ context.Context, account *domain.Account) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateFor != "" && account.EntityName == f.failCreateFor {
		return nil, fmt.Errorf("injected create failure for %s", account.EntityName)
	}
	f.records[account.ID] = account.Clone()
	return account, nil
}

func (f *fakePrimary) Update(_ context.Context, account *domain.Account) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate {
		return nil, errors.New("injected update failure")
	}
	if _, ok := f.records[account.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	f.records[account.ID] = account.Clone()
	return account, nil
}

func (f *fakePrimary) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
	return nil
}

func (f *fakePrimary) QueryByIdentity(_ context.Context, channel domain.Channel, value string) ([]*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []*domain.Account
	for _, record := range f.records {
		if !record.IsUser() || record.StateCode != domain.StateActive {
			continue
		}
		if record.IdentityValue(channel) == value {
			matches = append(matches, record.Clone())
		}
	}
	return matches, nil
}

func (f *fakePrimary) count(entityName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, record := range f.records {
		if record.EntityName == entityName {
			n++
		}
	}
	return n
}

// fakeReplica is an in-memory ReplicaStore with per-key failure injection.
type fakeReplica struct {
	mu      sync.Mutex
	entries map[string]any

	// failKeyPrefix makes writes fail for keys with the given prefix.
	failKeyPrefix string
}

func newFakeReplica() *fakeReplica {
	return &fakeReplica{entries: map[string]any{}}
}

func (f *fakeReplica) fullKey(keyspace, key string) string { return keyspace + ":" + key }

func (f *fakeReplica) Create(_ context.Context, record any, keyspace, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKeyPrefix != "" && len(key) >= len(f.failKeyPrefix) && key[:len(f.failKeyPrefix)] == f.failKeyPrefix {
		return fmt.Errorf("injected replica failure for %s", key)
	}
	full := f.fullKey(keyspace, key)
	if _, ok := f.entries[full]; ok {
		return errors.New("exists")
	}
	f.entries[full] = record
	return nil
}

func (f *fakeReplica) Upsert(_ context.Context, record any, keyspace, key string, overwrite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	full := f.fullKey(keyspace, key)
	if _, ok := f.entries[full]; ok && !overwrite {
		return nil
	}
	f.entries[full] = record
	return nil
}

func (f *fakeReplica) Delete(_ context.Context, keyspace, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, f.fullKey(keyspace, key))
	return nil
}

func (f *fakeReplica) has(keyspace, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[f.fullKey(keyspace, key)]
	return ok
}

// fakeTokens is an in-memory TokenService with failure injection.
type fakeTokens struct {
	mu     sync.Mutex
	minted map[string]*token.Token

	failCreate map[string]bool
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{minted: map[string]*token.Token{}, failCreate: map[string]bool{}}
}

func (f *fakeTokens) key(subject uuid.UUID, kind string) string {
	return kind + "." + subject.String()
}

func (f *fakeTokens) Create(_ context.Context, subject uuid.UUID, kind string, payload map[string]any) (*token.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate[kind] {
		return nil, fmt.Errorf("injected token failure for kind %s", kind)
	}
	tok := &token.Token{SubjectID: subject, Kind: kind, Value: "tok-" + uuid.NewString(), Payload: payload}
	f.minted[f.key(subject, kind)] = tok
	return tok, nil
}

func (f *fakeTokens) Get(_ context.Context, subject uuid.UUID, kind string) (*token.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minted[f.key(subject, kind)], nil
}

func (f *fakeTokens) Delete(_ context.Context, subject uuid.UUID, kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.minted, f.key(subject, kind))
	return nil
}

func (f *fakeTokens) Seal(string) (string, error) {
	return "sealed-" + uuid.NewString(), nil
}

func (f *fakeTokens) has(subject uuid.UUID, kind string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.minted[f.key(subject, kind)]
	return ok
}

// fakeProvider is an identity-provider fake recording created accounts.
type fakeProvider struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]string
	failNext  bool
	lastOrgID uuid.UUID
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[uuid.UUID]string{}}
}

func (f *fakeProvider) CreateAccount(_ context.Context, _, _ string, orgID, userID uuid.UUID, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		return errors.New("injected provider failure")
	}
	f.accounts[userID] = password
	f.lastOrgID = orgID
	return nil
}

func (f *fakeProvider) UpdatePassword(_ context.Context, _, _ string, _, userID uuid.UUID, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[userID]; !ok {
		return errors.New("no such account")
	}
	f.accounts[userID] = password
	return nil
}

func (f *fakeProvider) DeleteAccount(_ context.Context, _ string, _, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.accounts, userID)
	return nil
}

func (f *fakeProvider) has(userID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.accounts[userID]
	return ok
}

type idpTestConfig struct{}

func (idpTestConfig) GetIdentityProviderMode() string { return "local" }
func (idpTestConfig) GetIdentityPoolID() string       { return "pool-1" }
func (idpTestConfig) GetIdentityClientID() string     { return "client-1" }
func (idpTestConfig) GetIdentityEndpoint() string     { return "" }
func (idpTestConfig) GetIdentityAPIKey() string       { return "" }

const testKeyspace = "profile"

var testRules = config.PasswordRules{MinLen: 8, NeedLower: true, NeedUpper: true, NeedDigit: true, NeedSpecial: true}

type fixture struct {
	svc      *Service
	primary  *fakePrimary
	replica  *fakeReplica
	tokens   *fakeTokens
	provider *fakeProvider
}

func newFixture() *fixture {
	primary := newFakePrimary()
	rep := newFakeReplica()
	tokens := newFakeTokens()
	provider := newFakeProvider()

	svc := New(Options{
		Primary:   primary,
		Replica:   rep,
		Keyspace:  testKeyspace,
		Tokens:    tokens,
		Provider:  provider,
		IDPConfig: idpTestConfig{},
		Rules:     testRules,
		Log:       logger.New("development"),
	})
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

	return &fixture{svc: svc, primary: primary, replica: rep, tokens: tokens, provider: provider}
}

func adminCaller(orgID uuid.UUID) domain.Caller {
	return domain.Caller{
		UserID:         uuid.New(),
		OrganizationID: orgID,
		SolutionID:     "sol-1",
		Roles:          []string{domain.RoleOrgAdmin},
	}
}

func signUpInput(email string) CreateUserInput {
	return CreateUserInput{
		User:     &domain.Account{Name: "Ada Lovelace", Email: email},
		Channel:  domain.ChannelEmail,
		Password: "Str0ng!pass",
		SignUp:   true,
	}
}
