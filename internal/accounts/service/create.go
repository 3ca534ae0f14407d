package service

import (
	"context"

	"accounts_backend/internal/accounts/domain"
	"accounts_backend/internal/accounts/replica"
	"accounts_backend/internal/accounts/token"
	"accounts_backend/internal/events"
	"accounts_backend/platform/apperr"

	"github.com/google/uuid"
)

// CreateUserResult is the outcome of a creation attempt.
type CreateUserResult struct {
	User         *domain.Account `json:"user"`
	Organization *domain.Account `json:"organization,omitempty"`
	Token        *token.Token    `json:"token,omitempty"`
	// Merged is true when the identity already existed in the target
	// organization and the call degraded to an update-merge.
	Merged bool `json:"merged"`
}

// CreateUser runs the multi-store creation saga: validate, resolve the
// identity, then either merge into an existing account or create the
// organization (optionally), the user, the replica projections, the credential
// token, and finally the identity-provider registration — compensating in
// strict reverse order if any step fails. The identity provider is the last
// step on purpose: it is the only artifact that grants login capability, and
// creating it earlier would allow authentication into an account with no
// profile.
func (s *Service) CreateUser(ctx context.Context, caller domain.Caller, input CreateUserInput) (*CreateUserResult, error) {
	const op = "accounts.CreateUser"

	if err := s.validateCreateUser(caller, &input); err != nil {
		return nil, err
	}

	identity := input.User.IdentityValue(input.Channel)
	targetOrgID := input.targetOrganizationID()

	existing, elsewhere, err := s.resolveExisting(ctx, input.Channel, identity, targetOrgID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "identity lookup failed", err).WithOp(op)
	}

	if existing != nil {
		return s.mergeExisting(ctx, caller, input, existing)
	}
	if targetOrgID != nil && elsewhere {
		return nil, apperr.Conflict("the identity already belongs to an account in another organization").WithOp(op)
	}

	return s.createNew(ctx, caller, input, targetOrgID)
}

// createNew is the creation path of the saga. Every committed sub-step pushes
// its compensation onto the progress record immediately after it succeeds.
func (s *Service) createNew(ctx context.Context, caller domain.Caller, input CreateUserInput, targetOrgID *uuid.UUID) (*CreateUserResult, error) {
	const op = "accounts.CreateUser"

	now := s.now()
	sg := newSaga(op, s.log)

	userID := input.User.ID
	if userID == uuid.Nil {
		userID = uuid.New()
	}

	fail := func(step string, err error) (*CreateUserResult, error) {
		sg.rollback(ctx)
		return nil, apperr.Wrap(apperr.KindInternal, "create account failed", err).
			WithOp(op).
			WithDetails(map[string]any{"step": step})
	}

	// Step 1: organization, when the user is not joining an existing one. The
	// organization must exist before the user record that references it.
	var org *domain.Account
	orgID := uuid.Nil
	if targetOrgID != nil {
		orgID = *targetOrgID
	} else {
		org = input.Organization
		if org == nil {
			org = &domain.Account{}
		}
		orgID = uuid.New()
		org.ID = orgID
		org.EntityName = domain.EntityOrganization
		org.OrganizationID = nil
		if org.Name == "" {
			org.Name = "My Organization"
		}
		if org.SolutionID == "" {
			org.SolutionID = caller.SolutionID
		}
		org.StateCode = domain.StateActive
		org.StatusCode = domain.StatusDefault
		org.DisableDelete = true
		org.CreatedAt = now
		org.UpdatedAt = now
		org.CreatedBy = userID
		org.ModifiedBy = userID

		if _, err := s.primary.Create(ctx, org); err != nil {
			return fail("organization primary", err)
		}
		sg.record("organization primary", func(ctx context.Context) error {
			return s.primary.Delete(ctx, org.ID)
		})
		s.log.SagaStep(op, "organization primary", org.ID.String())

		if err := s.replica.Create(ctx, org, s.keyspace, replica.OrganizationKey(org.ID)); err != nil {
			return fail("organization replica", err)
		}
		sg.record("organization replica", func(ctx context.Context) error {
			return s.replica.Delete(ctx, s.keyspace, replica.OrganizationKey(org.ID))
		})
		s.log.SagaStep(op, "organization replica", org.ID.String())
	}

	// Step 2: stamp the user record.
	user := input.User
	user.ID = userID
	user.EntityName = domain.EntityUser
	user.OrganizationID = &orgID
	user.StateCode = domain.StateActive
	user.StatusCode = domain.StatusDefault
	user.EmailVerificationCode = domain.NewVerificationCode()
	user.MobileVerificationCode = domain.NewVerificationCode()
	user.Key = domain.NewSerialKey(now)
	user.DisableDelete = true
	user.CreatedAt = now
	user.UpdatedAt = now
	user.CreatedBy = userID
	user.ModifiedBy = userID

	// Step 3: user record in primary then replica.
	if _, err := s.primary.Create(ctx, user); err != nil {
		return fail("user primary", err)
	}
	sg.record("user primary", func(ctx context.Context) error {
		return s.primary.Delete(ctx, user.ID)
	})
	s.log.SagaStep(op, "user primary", user.ID.String())

	if err := s.replica.Create(ctx, user, s.keyspace, replica.UserKey(user.ID)); err != nil {
		return fail("user replica", err)
	}
	sg.record("user replica", func(ctx context.Context) error {
		return s.replica.Delete(ctx, s.keyspace, replica.UserKey(user.ID))
	})
	s.log.SagaStep(op, "user replica", user.ID.String())

	// Step 4: credential token bound to the final (userId, organizationId).
	tok, err := s.tokens.Create(ctx, user.ID, token.KindUser, map[string]any{
		"userId":         user.ID.String(),
		"organizationId": orgID.String(),
		"roles":          user.Roles,
		"licenses":       user.Licenses,
	})
	if err != nil {
		return fail("credential token", err)
	}
	sg.record("credential token", func(ctx context.Context) error {
		return s.tokens.Delete(ctx, user.ID, token.KindUser)
	})
	s.log.SagaStep(op, "credential token", user.ID.String())

	// Step 5: identity provider, deliberately last.
	if err := s.provider.CreateAccount(ctx, s.idpCfg.GetIdentityPoolID(), s.idpCfg.GetIdentityClientID(), orgID, user.ID, input.Password); err != nil {
		return fail("identity provider", err)
	}
	s.log.SagaStep(op, "identity provider", user.ID.String())

	if org != nil {
		s.publish(ctx, events.OrganizationCreated{
			BaseEvent:      events.NewBaseEvent(),
			OrganizationID: org.ID,
			OwnerUserID:    user.ID,
		})
	}
	s.publish(ctx, events.UserCreated{
		BaseEvent:      events.NewBaseEvent(),
		UserID:         user.ID,
		OrganizationID: orgID,
	})

	return &CreateUserResult{User: user, Organization: org, Token: tok}, nil
}

// mergeExisting is the merge path: the identity already has an account in the
// target organization, so incoming fields are merged into the existing record
// instead of being rejected as a duplicate. No organization creation, no
// credential token, no identity-provider call — the account already has those.
func (s *Service) mergeExisting(ctx context.Context, caller domain.Caller, input CreateUserInput, match *domain.Account) (*CreateUserResult, error) {
	const op = "accounts.CreateUser"

	// Re-fetch the full record; the resolver may hold a partial projection.
	full, err := s.primary.Get(ctx, match.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create account failed", err).WithOp(op)
	}

	full.Merge(input.User)
	full.UpdatedAt = s.now()
	full.ModifiedBy = caller.UserID

	if _, err := s.primary.Update(ctx, full); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create account failed", err).WithOp(op)
	}
	if err := s.project(ctx, full); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create account failed", err).WithOp(op)
	}

	var orgID uuid.UUID
	if full.OrganizationID != nil {
		orgID = *full.OrganizationID
	}
	s.publish(ctx, events.UserCreated{
		BaseEvent:      events.NewBaseEvent(),
		UserID:         full.ID,
		OrganizationID: orgID,
		Merged:         true,
	})

	return &CreateUserResult{User: full, Merged: true}, nil
}
