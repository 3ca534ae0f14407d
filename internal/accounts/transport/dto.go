// Package transport defines the request and response shapes of the accounts
// HTTP API.
package transport

import (
	"accounts_backend/internal/accounts/domain"
	"accounts_backend/platform/apperr"

	"github.com/google/uuid"
)

// AccountPayload carries the externally writable fields of a user or
// organization record. Server-managed fields (verification codes, state,
// timestamps, serial key) are never bound from a request.
type AccountPayload struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	SolutionID     string         `json:"solutionId"`
	Name           string         `json:"name"`
	Email          string         `json:"email" validate:"omitempty,email"`
	Mobile         string         `json:"mobile"`
	StatusInfo     string         `json:"statusCodeInfo"`
	Roles          []string       `json:"roles"`
	Licenses       []string       `json:"licenses"`
	Membership     map[string]any `json:"membership"`
	Attributes     map[string]any `json:"attributes"`
}

// ToDomain converts the payload into a domain account with the given entity
// name. Malformed UUIDs are rejected rather than silently dropped.
func (p *AccountPayload) ToDomain(entityName string) (*domain.Account, error) {
	account := &domain.Account{
		EntityName: entityName,
		SolutionID: p.SolutionID,
		Name:       p.Name,
		Email:      p.Email,
		Mobile:     p.Mobile,
		StatusInfo: p.StatusInfo,
		Roles:      p.Roles,
		Licenses:   p.Licenses,
		Membership: p.Membership,
		Attributes: p.Attributes,
	}

	if p.ID != "" {
		id, err := uuid.Parse(p.ID)
		if err != nil {
			return nil, apperr.ParameterInvalid("id", "must be a UUID")
		}
		account.ID = id
	}
	if p.OrganizationID != "" {
		orgID, err := uuid.Parse(p.OrganizationID)
		if err != nil {
			return nil, apperr.ParameterInvalid("organizationId", "must be a UUID")
		}
		account.OrganizationID = &orgID
	}

	return account, nil
}

// CreateUserRequest creates a user on behalf of an authenticated caller.
type CreateUserRequest struct {
	User         AccountPayload  `json:"user" validate:"required"`
	Organization *AccountPayload `json:"organization"`
	Channel      string          `json:"channel" validate:"required,oneof=email mobile"`
	Password     string          `json:"password"`
}

// SignUpRequest is the self-service registration variant of CreateUserRequest.
type SignUpRequest struct {
	User         AccountPayload  `json:"user" validate:"required"`
	Organization *AccountPayload `json:"organization"`
	Channel      string          `json:"channel" validate:"required,oneof=email mobile"`
	Password     string          `json:"password"`
}

// UpdateUserRequest replaces the writable fields of a user record.
type UpdateUserRequest struct {
	AccountPayload
}

// UpdateOrganizationRequest replaces the writable fields of an organization.
type UpdateOrganizationRequest struct {
	AccountPayload
}

// UpdateRolesRequest replaces a user's role list.
type UpdateRolesRequest struct {
	Roles []string `json:"roles" validate:"required"`
}

// ActivateRequest verifies an account via the emailed or texted code.
type ActivateRequest struct {
	Channel string `json:"channel" validate:"required,oneof=email mobile"`
	Code    string `json:"code" validate:"required"`
	Action  string `json:"action" validate:"required"`
}

// ChangePasswordRequest sets a new password, authorized by a verification code.
type ChangePasswordRequest struct {
	Password string `json:"password" validate:"required"`
	Channel  string `json:"channel" validate:"required,oneof=email mobile"`
	Code     string `json:"code" validate:"required"`
}

// SendVerifyTokenRequest asks for a verification message to be (re)sent.
type SendVerifyTokenRequest struct {
	SolutionID string `json:"solutionId"`
	Channel    string `json:"channel" validate:"required,oneof=email mobile"`
	Action     string `json:"action" validate:"required"`
}

// SendVerifyTokenResponse returns the sealed token embedded in the message.
type SendVerifyTokenResponse struct {
	Token string `json:"token"`
}

// ActivateResponse reports whether the code matched.
type ActivateResponse struct {
	Activated bool `json:"activated"`
}

// ChangePasswordResponse reports whether the password was changed.
type ChangePasswordResponse struct {
	Changed bool `json:"changed"`
}

// UpdateRolesResponse reports whether the user existed.
type UpdateRolesResponse struct {
	Updated bool `json:"updated"`
}
