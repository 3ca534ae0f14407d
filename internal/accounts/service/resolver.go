package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"accounts_backend/internal/accounts/domain"
	"accounts_backend/internal/accounts/repository"
	"accounts_backend/platform/apperr"
	"accounts_backend/platform/phone"
	"accounts_backend/platform/validator"

	"github.com/google/uuid"
)

// UserOrg summarizes one organization membership of an identity.
type UserOrg struct {
	UserID           uuid.UUID  `json:"userId"`
	OrganizationID   *uuid.UUID `json:"organizationId"`
	StateCode        int        `json:"stateCode"`
	StatusCode       int        `json:"statusCode"`
	EmailVerifiedAt  *time.Time `json:"emailVerifiedOn,omitempty"`
	MobileVerifiedAt *time.Time `json:"mobileVerifiedOn,omitempty"`
}

// GetUserOrgs returns all organizations the identity (email or mobile) belongs
// to. When more than one is returned the caller is expected to ask the user to
// choose one.
func (s *Service) GetUserOrgs(ctx context.Context, channel domain.Channel, value string) ([]UserOrg, error) {
	const op = "accounts.GetUserOrgs"

	value = strings.TrimSpace(value)
	switch channel {
	case domain.ChannelEmail:
		if err := validator.Validate.Var(value, "required,email"); err != nil {
			return nil, apperr.ParameterInvalid("email", "malformed email address").WithOp(op)
		}
		value = strings.ToLower(value)
	case domain.ChannelMobile:
		if !phone.IsValid(value) {
			return nil, apperr.ParameterInvalid("mobile", "malformed phone number").WithOp(op)
		}
		value = phone.NormalizeE164(value)
	default:
		return nil, apperr.ParameterInvalid("channel", "must be email or mobile").WithOp(op)
	}

	matches, err := s.primary.QueryByIdentity(ctx, channel, value)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "identity lookup failed", err).WithOp(op)
	}

	out := make([]UserOrg, 0, len(matches))
	for _, m := range matches {
		out = append(out, UserOrg{
			UserID:           m.ID,
			OrganizationID:   m.OrganizationID,
			StateCode:        m.StateCode,
			StatusCode:       m.StatusCode,
			EmailVerifiedAt:  m.EmailVerifiedAt,
			MobileVerifiedAt: m.MobileVerifiedAt,
		})
	}
	return out, nil
}

// GetAccount retrieves a single account record by id.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	const op = "accounts.GetAccount"

	account, err := s.primary.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("the account does not exist").WithOp(op)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "account lookup failed", err).WithOp(op)
	}
	return account, nil
}

// resolveExisting looks up the identity in the primary store and splits the
// result: the account already inside the target organization (the merge
// candidate) and whether the identity exists anywhere else. Read-only; zero
// matches is a normal outcome.
func (s *Service) resolveExisting(ctx context.Context, channel domain.Channel, value string, targetOrgID *uuid.UUID) (inTarget *domain.Account, elsewhere bool, err error) {
	matches, err := s.primary.QueryByIdentity(ctx, channel, value)
	if err != nil {
		return nil, false, err
	}

	for _, m := range matches {
		if targetOrgID != nil && m.OrganizationID != nil && *m.OrganizationID == *targetOrgID {
			inTarget = m
		} else {
			elsewhere = true
		}
	}
	return inTarget, elsewhere, nil
}
