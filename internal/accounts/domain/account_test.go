package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMergePreservesIdentityFields(t *testing.T) {
	orgID := uuid.New()
	existing := &Account{
		ID:             uuid.New(),
		EntityName:     EntityUser,
		OrganizationID: &orgID,
		Name:           "Ada",
		Email:          "ada@example.com",
	}
	keepID := existing.ID

	existing.Merge(&Account{
		ID:         uuid.New(),
		EntityName: EntityOrganization,
		Name:       "Ada K.",
	})

	if existing.ID != keepID {
		t.Error("merge must not change the record ID")
	}
	if existing.EntityName != EntityUser {
		t.Error("merge must not change the entity name")
	}
	if existing.OrganizationID == nil || *existing.OrganizationID != orgID {
		t.Error("merge must not change the organization")
	}
	if existing.Name != "Ada K." {
		t.Errorf("name = %q, want incoming value", existing.Name)
	}
}

func TestMergeMembershipOneLevelDeep(t *testing.T) {
	existing := &Account{
		Membership: map[string]any{"team": "research", "seat": "1A"},
	}

	existing.Merge(&Account{
		Membership: map[string]any{"team": "engineering", "badge": "42"},
	})

	if existing.Membership["team"] != "engineering" {
		t.Error("incoming membership value must win")
	}
	if existing.Membership["seat"] != "1A" {
		t.Error("untouched membership keys must survive")
	}
	if existing.Membership["badge"] != "42" {
		t.Error("new membership keys must be added")
	}
}

func TestMergeZeroValuesDoNotOverwrite(t *testing.T) {
	existing := &Account{Name: "Ada", Email: "ada@example.com"}

	existing.Merge(&Account{Mobile: "+1202555042"})

	if existing.Name != "Ada" || existing.Email != "ada@example.com" {
		t.Error("empty incoming fields must not clear stored values")
	}
	if existing.Mobile != "+1202555042" {
		t.Error("non-zero incoming fields must apply")
	}
}

func TestNewVerificationCodeShape(t *testing.T) {
	code := NewVerificationCode()
	if len(code) != 8 {
		t.Errorf("code length = %d, want 8", len(code))
	}
	if code != strings.ToUpper(code) {
		t.Errorf("code %q must be uppercase", code)
	}
}

func TestMarkVerifiedRotatesCode(t *testing.T) {
	account := &Account{EmailVerificationCode: "ABCD1234"}

	account.MarkVerified(ChannelEmail, time.Now())

	if account.EmailVerifiedAt == nil {
		t.Error("verified timestamp not set")
	}
	if account.EmailVerificationCode == "ABCD1234" {
		t.Error("code must rotate on verification")
	}
}

func TestChannelValid(t *testing.T) {
	if !ChannelEmail.Valid() || !ChannelMobile.Valid() {
		t.Error("known channels must be valid")
	}
	if Channel("fax").Valid() {
		t.Error("unknown channels must be invalid")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orgID := uuid.New()
	account := &Account{
		OrganizationID: &orgID,
		Roles:          []string{"EDITOR"},
		Membership:     map[string]any{"team": "research"},
	}

	clone := account.Clone()
	clone.Roles[0] = "VIEWER"
	clone.Membership["team"] = "ops"
	*clone.OrganizationID = uuid.New()

	if account.Roles[0] != "EDITOR" {
		t.Error("roles must be copied")
	}
	if account.Membership["team"] != "research" {
		t.Error("membership must be copied")
	}
	if *account.OrganizationID != orgID {
		t.Error("organization pointer must be copied")
	}
}
