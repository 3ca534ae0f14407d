package service

import (
	"context"
	"errors"
	"slices"

	"accounts_backend/internal/accounts/domain"
	"accounts_backend/internal/accounts/repository"
	"accounts_backend/internal/events"
	"accounts_backend/platform/apperr"

	"github.com/google/uuid"
)

// UpdateUser applies the caller's mutation to a user record. Role and license
// changes require elevated roles; unauthorized changes to those fields are
// silently preserved from the stored record rather than rejected. The full
// resulting record is always re-projected into the replica store.
func (s *Service) UpdateUser(ctx context.Context, caller domain.Caller, incoming *domain.Account) (*domain.Account, error) {
	const op = "accounts.UpdateUser"

	if incoming == nil || incoming.ID == uuid.Nil {
		return nil, apperr.ParameterMissing("user.id").WithOp(op)
	}
	if incoming.EntityName != domain.EntityUser {
		return nil, apperr.ParameterInvalid("entityName", `must be "User"`).WithOp(op)
	}
	if !caller.HasAnyRole(domain.RoleOrgAdmin, domain.RoleUserManager) && caller.UserID != incoming.ID {
		return nil, apperr.PermissionDenied("only the user or a caller with the ORG-ADMIN or USER-MANAGER role can update this record").WithOp(op)
	}

	stored, err := s.primary.Get(ctx, incoming.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("the user does not exist").WithOp(op)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "user lookup failed", err).WithOp(op)
	}

	storedRoles := slices.Clone(stored.Roles)
	storedLicenses := slices.Clone(stored.Licenses)

	stored.Merge(incoming)
	stored.UpdatedAt = s.now()
	stored.ModifiedBy = caller.UserID

	// Role and license fields are gated independently: the generic managers
	// may change both, ROLE-MANAGER only roles, LICENSE-MANAGER only licenses.
	if !caller.HasAnyRole(domain.RoleOrgAdmin, domain.RoleUserManager, domain.RoleRoleManager) {
		stored.Roles = storedRoles
	}
	if !caller.HasAnyRole(domain.RoleOrgAdmin, domain.RoleUserManager, domain.RoleLicenseManager) {
		stored.Licenses = storedLicenses
	}

	if _, err := s.primary.Update(ctx, stored); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "user update failed", err).WithOp(op)
	}
	if err := s.project(ctx, stored); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "replica projection failed", err).WithOp(op)
	}

	return stored, nil
}

// UpdateUserRoles replaces a user's role list directly. Returns false when the
// user does not exist. The HTTP layer restricts this to admin callers.
func (s *Service) UpdateUserRoles(ctx context.Context, userID uuid.UUID, roles []string) (bool, error) {
	const op = "accounts.UpdateUserRoles"

	user, err := s.primary.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, apperr.Wrap(apperr.KindInternal, "user lookup failed", err).WithOp(op)
	}

	user.Roles = slices.Clone(roles)
	user.UpdatedAt = s.now()

	if _, err := s.primary.Update(ctx, user); err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "user update failed", err).WithOp(op)
	}
	if err := s.project(ctx, user); err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "replica projection failed", err).WithOp(op)
	}
	return true, nil
}

// UpdateOrganization applies the caller's mutation to an organization record
// and re-projects it into the replica store.
func (s *Service) UpdateOrganization(ctx context.Context, caller domain.Caller, incoming *domain.Account) (*domain.Account, error) {
	const op = "accounts.UpdateOrganization"

	if incoming == nil || incoming.ID == uuid.Nil {
		return nil, apperr.ParameterMissing("organization.id").WithOp(op)
	}
	if incoming.EntityName != domain.EntityOrganization {
		return nil, apperr.ParameterInvalid("entityName", `must be "Organization"`).WithOp(op)
	}
	if caller.OrganizationID != incoming.ID || !caller.HasRole(domain.RoleOrgAdmin) {
		return nil, apperr.PermissionDenied("only an ORG-ADMIN of the organization can update it").WithOp(op)
	}

	stored, err := s.primary.Get(ctx, incoming.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("the organization does not exist").WithOp(op)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "organization lookup failed", err).WithOp(op)
	}

	stored.Merge(incoming)
	stored.UpdatedAt = s.now()
	stored.ModifiedBy = caller.UserID

	if _, err := s.primary.Update(ctx, stored); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "organization update failed", err).WithOp(op)
	}
	if err := s.project(ctx, stored); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "replica projection failed", err).WithOp(op)
	}

	return stored, nil
}

// DeleteUser logically deletes a user: stateCode=-1 and a caller-suppliable
// negative statusCode. The record is never physically removed.
func (s *Service) DeleteUser(ctx context.Context, caller domain.Caller, id uuid.UUID, statusCode int) (*domain.Account, error) {
	const op = "accounts.DeleteUser"

	if id == uuid.Nil {
		return nil, apperr.ParameterMissing("id").WithOp(op)
	}

	user, err := s.primary.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ParameterInvalid("id", "the user does not exist").WithOp(op)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "user lookup failed", err).WithOp(op)
	}
	if user.EntityName != domain.EntityUser {
		return nil, apperr.ParameterInvalid("id", "the record is not a user").WithOp(op)
	}

	if statusCode >= 0 {
		statusCode = -1
	}

	user.StateCode = domain.StateDeleted
	user.StatusCode = statusCode
	user.UpdatedAt = s.now()
	user.ModifiedBy = caller.UserID

	if _, err := s.primary.Update(ctx, user); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "user delete failed", err).WithOp(op)
	}
	if err := s.project(ctx, user); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "replica projection failed", err).WithOp(op)
	}

	s.publish(ctx, events.UserDeleted{
		BaseEvent:  events.NewBaseEvent(),
		UserID:     user.ID,
		StatusCode: statusCode,
	})

	return user, nil
}
