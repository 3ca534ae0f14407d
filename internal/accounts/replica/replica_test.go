package replica

import (
	"context"
	"errors"
	"testing"

	"accounts_backend/internal/accounts/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyspace = "profile"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client)
}

func TestCreateRejectsDuplicateKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := uuid.New()
	account := &domain.Account{ID: id, EntityName: domain.EntityUser, Email: "a@x.com"}

	if err := store.Create(ctx, account, keyspace, UserKey(id)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := store.Create(ctx, account, keyspace, UserKey(id)); !errors.Is(err, ErrExists) {
		t.Fatalf("second create: want ErrExists, got %v", err)
	}
}

func TestUpsertOverwriteModes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := uuid.New()
	key := UserKey(id)
	first := &domain.Account{ID: id, EntityName: domain.EntityUser, Name: "first"}
	second := &domain.Account{ID: id, EntityName: domain.EntityUser, Name: "second"}

	if err := store.Upsert(ctx, first, keyspace, key, true); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// overwrite=false must leave the stored value untouched
	if err := store.Upsert(ctx, second, keyspace, key, false); err != nil {
		t.Fatalf("upsert no-overwrite: %v", err)
	}
	var got domain.Account
	if err := store.Get(ctx, keyspace, key, &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "first" {
		t.Fatalf("no-overwrite upsert replaced value: got %q", got.Name)
	}

	// overwrite=true replaces
	if err := store.Upsert(ctx, second, keyspace, key, true); err != nil {
		t.Fatalf("upsert overwrite: %v", err)
	}
	if err := store.Get(ctx, keyspace, key, &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "second" {
		t.Fatalf("overwrite upsert kept old value: got %q", got.Name)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := uuid.New()
	key := OrganizationKey(id)
	org := &domain.Account{ID: id, EntityName: domain.EntityOrganization}

	if err := store.Create(ctx, org, keyspace, key); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Delete(ctx, keyspace, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// deleting a key that was never written (or already removed) must not fail
	if err := store.Delete(ctx, keyspace, key); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if err := store.Get(ctx, keyspace, key, &domain.Account{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: want ErrNotFound, got %v", err)
	}
}

func TestKeyPrefixes(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	cases := []struct {
		got  string
		want string
	}{
		{UserKey(id), "user.6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{OrganizationKey(id), "organization.6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{TokenKey(id), "tokens.6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("key = %q, want %q", tc.got, tc.want)
		}
	}
}
