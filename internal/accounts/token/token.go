// Package token implements the credential token service. Tokens are signed
// JWTs bound to a subject, persisted in the replica store under
// "tokens.<subject>" so they can be looked up and revoked by id.
package token

import (
	"context"
	"errors"
	"time"

	"accounts_backend/internal/accounts/replica"
	"accounts_backend/platform/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kinds of tokens the service mints.
const (
	KindUser         = "user"
	KindVerification = "verification"
)

// Token is an opaque bearer artifact bound to a subject.
type Token struct {
	SubjectID uuid.UUID      `json:"subjectId"`
	Kind      string         `json:"kind"`
	Value     string         `json:"value"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdOn"`
	ExpiresAt time.Time      `json:"expiresOn"`
}

// Service mints, fetches and deletes credential tokens.
type Service struct {
	store    *replica.Store
	keyspace string
	secret   []byte
	ttl      time.Duration
}

func NewService(store *replica.Store, keyspace string, cfg config.TokenConfig) *Service {
	return &Service{
		store:    store,
		keyspace: keyspace,
		secret:   []byte(cfg.GetTokenSecret()),
		ttl:      cfg.GetTokenTTL(),
	}
}

// storageKey returns the replica key a token of the given kind lives under.
// User credential tokens keep the bare "tokens.<subject>" key; other kinds are
// namespaced so they never clobber the credential token.
func storageKey(subject uuid.UUID, kind string) string {
	if kind == KindUser {
		return replica.TokenKey(subject)
	}
	return "tokens." + kind + "." + subject.String()
}

type tokenClaims struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
	jwt.RegisteredClaims
}

// Create mints a new token for the subject and persists it, replacing any
// token previously stored for the same subject.
func (s *Service) Create(ctx context.Context, subject uuid.UUID, kind string, payload map[string]any) (*Token, error) {
	now := time.Now().UTC()
	expires := now.Add(s.ttl)

	claims := tokenClaims{
		Kind:    kind,
		Payload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	tok := &Token{
		SubjectID: subject,
		Kind:      kind,
		Value:     value,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: expires,
	}

	if err := s.store.Upsert(ctx, tok, s.keyspace, storageKey(subject, kind), true); err != nil {
		return nil, err
	}
	return tok, nil
}

// Get returns the stored token for the subject, or nil when none exists or
// the stored token has a different kind.
func (s *Service) Get(ctx context.Context, subject uuid.UUID, kind string) (*Token, error) {
	var tok Token
	err := s.store.Get(ctx, s.keyspace, storageKey(subject, kind), &tok)
	if errors.Is(err, replica.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if tok.Kind != kind {
		return nil, nil
	}
	return &tok, nil
}

// Delete removes the subject's stored token of the given kind. Deleting an
// absent token is not an error.
func (s *Service) Delete(ctx context.Context, subject uuid.UUID, kind string) error {
	return s.store.Delete(ctx, s.keyspace, storageKey(subject, kind))
}

// Seal signs an arbitrary payload string into a compact JWT, used for tokens
// embedded in verification emails.
func (s *Service) Seal(data string) (string, error) {
	claims := jwt.MapClaims{
		"data": data,
		"iat":  time.Now().UTC().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Open verifies a sealed token and returns the embedded payload string.
func (s *Service) Open(sealed string) (string, error) {
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(sealed, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return "", errors.New("invalid sealed token")
	}
	data, _ := claims["data"].(string)
	return data, nil
}
