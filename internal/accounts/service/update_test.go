package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"accounts_backend/internal/accounts/domain"
	"accounts_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestUpdateUserSelfCannotChangeRoles(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	user := seedUser(t, fx, "ada@example.com")

	caller := domain.Caller{UserID: user.ID, OrganizationID: *user.OrganizationID}

	updated, err := fx.svc.UpdateUser(ctx, caller, &domain.Account{
		ID:         user.ID,
		EntityName: domain.EntityUser,
		Name:       "Ada K. Lovelace",
		Roles:      []string{domain.RoleOrgAdmin},
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	if updated.Name != "Ada K. Lovelace" {
		t.Errorf("name = %q", updated.Name)
	}
	if len(updated.Roles) != 0 {
		t.Errorf("roles = %v, want unchanged (none)", updated.Roles)
	}
}

func TestUpdateUserManagerCanChangeRoles(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	user := seedUser(t, fx, "ada@example.com")

	caller := adminCaller(*user.OrganizationID)

	updated, err := fx.svc.UpdateUser(ctx, caller, &domain.Account{
		ID:         user.ID,
		EntityName: domain.EntityUser,
		Roles:      []string{"EDITOR"},
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if !reflect.DeepEqual(updated.Roles, []string{"EDITOR"}) {
		t.Errorf("roles = %v, want [EDITOR]", updated.Roles)
	}
}

func TestUpdateUserForbiddenForStranger(t *testing.T) {
	fx := newFixture()
	user := seedUser(t, fx, "ada@example.com")

	caller := domain.Caller{UserID: uuid.New(), OrganizationID: *user.OrganizationID}

	_, err := fx.svc.UpdateUser(context.Background(), caller, &domain.Account{
		ID:         user.ID,
		EntityName: domain.EntityUser,
		Name:       "Mallory",
	})
	if err == nil {
		t.Fatal("expected a permission error")
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindForbidden {
		t.Fatalf("error = %v, want forbidden kind", err)
	}
}

func TestUpdateUserRoles(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	user := seedUser(t, fx, "ada@example.com")

	updated, err := fx.svc.UpdateUserRoles(ctx, user.ID, []string{"EDITOR", "VIEWER"})
	if err != nil {
		t.Fatalf("UpdateUserRoles: %v", err)
	}
	if !updated {
		t.Fatal("expected the user to be found")
	}

	stored, err := fx.primary.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(stored.Roles, []string{"EDITOR", "VIEWER"}) {
		t.Errorf("roles = %v", stored.Roles)
	}
}

func TestUpdateUserRolesUnknownUser(t *testing.T) {
	fx := newFixture()

	updated, err := fx.svc.UpdateUserRoles(context.Background(), uuid.New(), []string{"EDITOR"})
	if err != nil {
		t.Fatalf("UpdateUserRoles: %v", err)
	}
	if updated {
		t.Error("an unknown user must report false")
	}
}

func TestUpdateOrganizationRequiresOrgAdminOfThatOrg(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	user := seedUser(t, fx, "ada@example.com")
	orgID := *user.OrganizationID

	// An admin of a different organization is rejected.
	_, err := fx.svc.UpdateOrganization(ctx, adminCaller(uuid.New()), &domain.Account{
		ID:         orgID,
		EntityName: domain.EntityOrganization,
		Name:       "Hostile Rename",
	})
	if err == nil {
		t.Fatal("expected a permission error")
	}

	updated, err := fx.svc.UpdateOrganization(ctx, adminCaller(orgID), &domain.Account{
		ID:         orgID,
		EntityName: domain.EntityOrganization,
		Name:       "Analytical Engines Ltd",
	})
	if err != nil {
		t.Fatalf("UpdateOrganization: %v", err)
	}
	if updated.Name != "Analytical Engines Ltd" {
		t.Errorf("name = %q", updated.Name)
	}
}

func TestDeleteUserIsLogical(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	user := seedUser(t, fx, "ada@example.com")

	caller := adminCaller(*user.OrganizationID)

	deleted, err := fx.svc.DeleteUser(ctx, caller, user.ID, -7)
	if err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if deleted.StateCode != domain.StateDeleted {
		t.Errorf("stateCode = %d, want %d", deleted.StateCode, domain.StateDeleted)
	}
	if deleted.StatusCode != -7 {
		t.Errorf("statusCode = %d, want -7", deleted.StatusCode)
	}

	// The record stays retrievable.
	stored, err := fx.primary.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if stored.StateCode != domain.StateDeleted {
		t.Errorf("stored stateCode = %d", stored.StateCode)
	}
}

func TestDeleteUserForcesNegativeStatus(t *testing.T) {
	fx := newFixture()
	user := seedUser(t, fx, "ada@example.com")

	deleted, err := fx.svc.DeleteUser(context.Background(), adminCaller(*user.OrganizationID), user.ID, 10)
	if err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if deleted.StatusCode >= 0 {
		t.Errorf("statusCode = %d, want negative", deleted.StatusCode)
	}
}

func TestDeleteUserRejectsOrganization(t *testing.T) {
	fx := newFixture()
	user := seedUser(t, fx, "ada@example.com")
	orgID := *user.OrganizationID

	_, err := fx.svc.DeleteUser(context.Background(), adminCaller(orgID), orgID, -1)
	if err == nil {
		t.Fatal("expected a validation error")
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
		t.Fatalf("error = %v, want validation kind", err)
	}
}

func TestDeletedUserNoLongerResolves(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	user := seedUser(t, fx, "ada@example.com")

	if _, err := fx.svc.DeleteUser(ctx, adminCaller(*user.OrganizationID), user.ID, -1); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	orgs, err := fx.svc.GetUserOrgs(ctx, domain.ChannelEmail, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserOrgs: %v", err)
	}
	if len(orgs) != 0 {
		t.Errorf("orgs = %v, want none for a deleted user", orgs)
	}
}
