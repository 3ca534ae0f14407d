// Package repository implements the primary document store for account
// records on postgres. The full record is stored as a jsonb document with the
// identity and lifecycle fields extracted into indexed columns.
package repository

import (
	"context"
	"encoding/json"
	"errors"

	"accounts_backend/internal/accounts/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

// Repository is the primary store adapter. Each operation is single-record
// atomic; there is no cross-record transaction support, which is what the
// service-level saga compensates for.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get retrieves a record by id. Returns ErrNotFound if absent.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `
		SELECT doc FROM records WHERE id = $1
	`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(doc)
}

// Create inserts a new record and returns it.
func (r *Repository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	doc, err := json.Marshal(account)
	if err != nil {
		return nil, err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO records (id, entity_name, organization_id, email, mobile, state_code, doc, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)
	`, account.ID, account.EntityName, account.OrganizationID, account.Email, account.Mobile,
		account.StateCode, doc, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Update replaces an existing record and returns it. Returns ErrNotFound if
// the record does not exist.
func (r *Repository) Update(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	doc, err := json.Marshal(account)
	if err != nil {
		return nil, err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE records
		SET entity_name = $2, organization_id = $3, email = NULLIF($4, ''), mobile = NULLIF($5, ''),
		    state_code = $6, doc = $7, updated_at = $8
		WHERE id = $1
	`, account.ID, account.EntityName, account.OrganizationID, account.Email, account.Mobile,
		account.StateCode, doc, account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return account, nil
}

// Delete physically removes a record. Only the saga's compensation path uses
// this; domain-level deletes are logical (stateCode=-1) via Update.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM records WHERE id = $1`, id)
	return err
}

// QueryByIdentity returns all active user records sharing the given identity
// value on the given channel, across all organizations.
func (r *Repository) QueryByIdentity(ctx context.Context, channel domain.Channel, value string) ([]*domain.Account, error) {
	column := "email"
	if channel == domain.ChannelMobile {
		column = "mobile"
	}

	rows, err := r.pool.Query(ctx, `
		SELECT doc FROM records
		WHERE entity_name = $1 AND state_code = 0 AND `+column+` = $2
		ORDER BY created_at
	`, domain.EntityUser, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		account, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

// Ping verifies store connectivity, used by health checks.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func decode(doc []byte) (*domain.Account, error) {
	var account domain.Account
	if err := json.Unmarshal(doc, &account); err != nil {
		return nil, err
	}
	return &account, nil
}
