package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"accounts_backend/internal/accounts/domain"
	"accounts_backend/internal/accounts/replica"
	"accounts_backend/internal/accounts/token"
	"accounts_backend/platform/apperr"
	"accounts_backend/platform/logger"

	"github.com/google/uuid"
)

func TestCreateUserSignUpCreatesOrgAndUser(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	result, err := fx.svc.CreateUser(ctx, domain.Caller{}, signUpInput("ada@example.com"))
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if result.Merged {
		t.Fatal("expected a fresh creation, got a merge")
	}
	if result.Organization == nil {
		t.Fatal("expected a new organization")
	}
	if result.Token == nil {
		t.Fatal("expected a credential token")
	}

	user := result.User
	org := result.Organization

	if got, want := fx.primary.count(domain.EntityOrganization), 1; got != want {
		t.Errorf("organization count = %d, want %d", got, want)
	}
	if got, want := fx.primary.count(domain.EntityUser), 1; got != want {
		t.Errorf("user count = %d, want %d", got, want)
	}
	if user.OrganizationID == nil || *user.OrganizationID != org.ID {
		t.Errorf("user.OrganizationID = %v, want %v", user.OrganizationID, org.ID)
	}
	if org.OrganizationID != nil {
		t.Error("organization must be self-rooted")
	}
	if org.Name != "My Organization" {
		t.Errorf("default org name = %q", org.Name)
	}

	if !user.DisableDelete || !org.DisableDelete {
		t.Error("saga-created records must carry disableDelete")
	}
	if user.EmailVerificationCode == "" || user.MobileVerificationCode == "" {
		t.Error("verification codes must be stamped on creation")
	}
	if user.Key == "" {
		t.Error("serial key must be stamped on creation")
	}

	if !fx.replica.has(testKeyspace, replica.UserKey(user.ID)) {
		t.Error("user projection missing from replica")
	}
	if !fx.replica.has(testKeyspace, replica.OrganizationKey(org.ID)) {
		t.Error("organization projection missing from replica")
	}
	if !fx.tokens.has(user.ID, token.KindUser) {
		t.Error("credential token missing")
	}
	if !fx.provider.has(user.ID) {
		t.Error("identity-provider account missing")
	}
}

func TestCreateUserOrgReplicaFailureRollsBackOrg(t *testing.T) {
	fx := newFixture()
	fx.replica.failKeyPrefix = "organization."

	_, err := fx.svc.CreateUser(context.Background(), domain.Caller{}, signUpInput("ada@example.com"))
	if err == nil {
		t.Fatal("expected an error")
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindInternal {
		t.Fatalf("error = %v, want internal kind", err)
	}
	if appErr.Details["step"] != "organization replica" {
		t.Errorf("failed step = %v, want organization replica", appErr.Details["step"])
	}

	if got := fx.primary.count(domain.EntityOrganization); got != 0 {
		t.Errorf("organization count after rollback = %d, want 0", got)
	}
	if got := fx.primary.count(domain.EntityUser); got != 0 {
		t.Errorf("user count after rollback = %d, want 0", got)
	}
}

func TestCreateUserProviderFailureRollsBackEverything(t *testing.T) {
	fx := newFixture()
	fx.provider.failNext = true

	input := signUpInput("ada@example.com")
	_, err := fx.svc.CreateUser(context.Background(), domain.Caller{}, input)
	if err == nil {
		t.Fatal("expected an error")
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v, want *apperr.Error", err)
	}
	if appErr.Details["step"] != "identity provider" {
		t.Errorf("failed step = %v, want identity provider", appErr.Details["step"])
	}

	userID := input.User.ID
	if got := fx.primary.count(domain.EntityUser); got != 0 {
		t.Errorf("user count after rollback = %d, want 0", got)
	}
	if got := fx.primary.count(domain.EntityOrganization); got != 0 {
		t.Errorf("organization count after rollback = %d, want 0", got)
	}
	if fx.tokens.has(userID, token.KindUser) {
		t.Error("credential token must be revoked on rollback")
	}
	if fx.replica.has(testKeyspace, replica.UserKey(userID)) {
		t.Error("user projection must be removed on rollback")
	}
	if fx.provider.has(userID) {
		t.Error("no identity-provider account may exist after rollback")
	}
}

func TestCreateUserTokenFailureLeavesNoProviderAccount(t *testing.T) {
	fx := newFixture()
	fx.tokens.failCreate[token.KindUser] = true

	input := signUpInput("ada@example.com")
	_, err := fx.svc.CreateUser(context.Background(), domain.Caller{}, input)
	if err == nil {
		t.Fatal("expected an error")
	}

	if fx.provider.has(input.User.ID) {
		t.Error("identity provider must not be reached when the token step fails")
	}
	if got := fx.primary.count(domain.EntityUser); got != 0 {
		t.Errorf("user count after rollback = %d, want 0", got)
	}
}

func TestCreateUserMergesIntoSameOrg(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	first, err := fx.svc.CreateUser(ctx, domain.Caller{}, signUpInput("ada@example.com"))
	if err != nil {
		t.Fatalf("seed CreateUser: %v", err)
	}
	orgID := first.Organization.ID

	caller := adminCaller(orgID)
	incoming := CreateUserInput{
		User: &domain.Account{
			Email:      "ada@example.com",
			Name:       "Ada K. Lovelace",
			Membership: map[string]any{"team": "research"},
		},
		Organization: &domain.Account{ID: orgID, EntityName: domain.EntityOrganization},
		Channel:      domain.ChannelEmail,
		Password:     "An0ther!pass",
	}

	result, err := fx.svc.CreateUser(ctx, caller, incoming)
	if err != nil {
		t.Fatalf("merge CreateUser: %v", err)
	}

	if !result.Merged {
		t.Fatal("expected a merge")
	}
	if result.User.ID != first.User.ID {
		t.Errorf("merged into %v, want %v", result.User.ID, first.User.ID)
	}
	if result.Organization != nil || result.Token != nil {
		t.Error("merge path must not create an organization or token")
	}
	if result.User.Name != "Ada K. Lovelace" {
		t.Errorf("incoming name must win, got %q", result.User.Name)
	}
	if result.User.Membership["team"] != "research" {
		t.Error("membership must be merged one level deep")
	}

	if got := fx.primary.count(domain.EntityOrganization); got != 1 {
		t.Errorf("organization count = %d, want 1", got)
	}
	if got := fx.primary.count(domain.EntityUser); got != 1 {
		t.Errorf("user count = %d, want 1", got)
	}
}

func TestCreateUserConflictWhenIdentityInAnotherOrg(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	// The identity exists, owned by its own organization.
	if _, err := fx.svc.CreateUser(ctx, domain.Caller{}, signUpInput("ada@example.com")); err != nil {
		t.Fatalf("seed CreateUser: %v", err)
	}

	// A second, unrelated organization tries to add the same identity.
	second, err := fx.svc.CreateUser(ctx, domain.Caller{}, signUpInput("grace@example.com"))
	if err != nil {
		t.Fatalf("seed second CreateUser: %v", err)
	}
	otherOrg := second.Organization.ID

	caller := adminCaller(otherOrg)
	_, err = fx.svc.CreateUser(ctx, caller, CreateUserInput{
		User:         &domain.Account{Email: "ada@example.com"},
		Organization: &domain.Account{ID: otherOrg, EntityName: domain.EntityOrganization},
		Channel:      domain.ChannelEmail,
		Password:     "Str0ng!pass",
	})
	if err == nil {
		t.Fatal("expected a conflict")
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindConflict {
		t.Fatalf("error = %v, want conflict kind", err)
	}
}

func TestCreateUserNewOrgAllowedWhenIdentityExistsElsewhere(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	if _, err := fx.svc.CreateUser(ctx, domain.Caller{}, signUpInput("ada@example.com")); err != nil {
		t.Fatalf("seed CreateUser: %v", err)
	}

	// The same identity signing up again without a target organization gets a
	// second, independent account.
	result, err := fx.svc.CreateUser(ctx, domain.Caller{}, signUpInput("ada@example.com"))
	if err != nil {
		t.Fatalf("second CreateUser: %v", err)
	}
	if result.Merged {
		t.Fatal("a fresh organization must not merge")
	}
	if got := fx.primary.count(domain.EntityOrganization); got != 2 {
		t.Errorf("organization count = %d, want 2", got)
	}
}

// Duplicate-creation races are a documented gap: two concurrent sign-ups for
// the same identity both pass the resolver and both create, leaving two
// independent organizations for one identity.
func TestCreateUserConcurrentDuplicateSignUpsBothCreate(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = fx.svc.CreateUser(ctx, domain.Caller{}, signUpInput("ada@example.com"))
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("CreateUser %d: %v", i, err)
		}
	}
	if got := fx.primary.count(domain.EntityOrganization); got != 2 {
		t.Errorf("organization count = %d, want 2", got)
	}
	if got := fx.primary.count(domain.EntityUser); got != 2 {
		t.Errorf("user count = %d, want 2", got)
	}
}

// undoLog records compensation writes in the order they are executed.
type undoLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *undoLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

type recordingPrimary struct {
	*fakePrimary
	log *undoLog
}

func (r *recordingPrimary) Delete(ctx context.Context, id uuid.UUID) error {
	entity := "unknown"
	if record, err := r.fakePrimary.Get(ctx, id); err == nil {
		entity = record.EntityName
	}
	r.log.add("primary " + entity)
	return r.fakePrimary.Delete(ctx, id)
}

type recordingReplica struct {
	*fakeReplica
	log *undoLog
}

func (r *recordingReplica) Delete(ctx context.Context, keyspace, key string) error {
	kind, _, _ := strings.Cut(key, ".")
	r.log.add("replica " + kind)
	return r.fakeReplica.Delete(ctx, keyspace, key)
}

type recordingTokens struct {
	*fakeTokens
	log *undoLog
}

func (r *recordingTokens) Delete(ctx context.Context, subject uuid.UUID, kind string) error {
	r.log.add("token")
	return r.fakeTokens.Delete(ctx, subject, kind)
}

func TestCreateUserCompensationRunsInReverseOrder(t *testing.T) {
	log := &undoLog{}
	provider := newFakeProvider()
	provider.failNext = true

	svc := New(Options{
		Primary:   &recordingPrimary{fakePrimary: newFakePrimary(), log: log},
		Replica:   &recordingReplica{fakeReplica: newFakeReplica(), log: log},
		Keyspace:  testKeyspace,
		Tokens:    &recordingTokens{fakeTokens: newFakeTokens(), log: log},
		Provider:  provider,
		IDPConfig: idpTestConfig{},
		Rules:     testRules,
		Log:       logger.New("development"),
	})

	_, err := svc.CreateUser(context.Background(), domain.Caller{}, signUpInput("ada@example.com"))
	if err == nil {
		t.Fatal("expected an error")
	}

	want := []string{
		"token",
		"replica user",
		"primary " + domain.EntityUser,
		"replica organization",
		"primary " + domain.EntityOrganization,
	}
	if len(log.ops) != len(want) {
		t.Fatalf("compensation ops = %v, want %v", log.ops, want)
	}
	for i := range want {
		if log.ops[i] != want[i] {
			t.Fatalf("compensation ops = %v, want %v", log.ops, want)
		}
	}
}

func TestCreateUserRequiresManagerRole(t *testing.T) {
	fx := newFixture()

	caller := domain.Caller{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		Roles:          []string{"VIEWER"},
	}

	_, err := fx.svc.CreateUser(context.Background(), caller, CreateUserInput{
		User:     &domain.Account{Email: "ada@example.com"},
		Channel:  domain.ChannelEmail,
		Password: "Str0ng!pass",
	})
	if err == nil {
		t.Fatal("expected a permission error")
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindForbidden {
		t.Fatalf("error = %v, want forbidden kind", err)
	}
}

func TestCreateUserRejectsCrossOrgJoin(t *testing.T) {
	fx := newFixture()

	caller := adminCaller(uuid.New())
	otherOrg := uuid.New()

	_, err := fx.svc.CreateUser(context.Background(), caller, CreateUserInput{
		User:         &domain.Account{Email: "ada@example.com"},
		Organization: &domain.Account{ID: otherOrg, EntityName: domain.EntityOrganization},
		Channel:      domain.ChannelEmail,
		Password:     "Str0ng!pass",
	})
	if err == nil {
		t.Fatal("expected a validation error")
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
		t.Fatalf("error = %v, want validation kind", err)
	}
}
