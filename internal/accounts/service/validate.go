package service

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"accounts_backend/internal/accounts/domain"
	"accounts_backend/platform/apperr"
	"accounts_backend/platform/config"
	"accounts_backend/platform/phone"
	"accounts_backend/platform/validator"

	"github.com/google/uuid"
)

// CreateUserInput is the proposed account data for one creation attempt.
type CreateUserInput struct {
	// User carries the proposed user fields.
	User *domain.Account
	// Organization optionally carries fields for the organization. When its
	// ID is set the user joins that existing organization; when unset a new
	// organization is created.
	Organization *domain.Account
	// Channel selects which identity field (email or mobile) the account is
	// keyed on.
	Channel domain.Channel
	// Password is optional; a policy-conforming one is generated when absent.
	Password string
	// SignUp marks self-service registration, which bypasses the caller role
	// and organization-membership checks.
	SignUp bool
}

// validateCreateUser checks identity fields, password policy, membership
// consistency and caller authorization. It normalizes the input in place and
// must run before any store is touched: the saga never attempts a write it
// would have to roll back because of a validation defect.
func (s *Service) validateCreateUser(caller domain.Caller, input *CreateUserInput) error {
	const op = "accounts.CreateUser"

	if input.User == nil {
		return apperr.ParameterMissing("user").WithOp(op)
	}
	if !input.Channel.Valid() {
		return apperr.ParameterInvalid("channel", "must be email or mobile").WithOp(op)
	}

	// Verified timestamps are never accepted from the outside.
	input.User.EmailVerifiedAt = nil
	input.User.MobileVerifiedAt = nil

	input.User.Email = strings.TrimSpace(strings.ToLower(input.User.Email))
	input.User.Mobile = phone.NormalizeE164(input.User.Mobile)

	switch input.Channel {
	case domain.ChannelEmail:
		if input.User.Email == "" {
			return apperr.ParameterMissing("email").WithOp(op)
		}
		if err := validator.Validate.Var(input.User.Email, "email"); err != nil {
			return apperr.ParameterInvalid("email", "malformed email address").WithOp(op)
		}
	case domain.ChannelMobile:
		if input.User.Mobile == "" {
			return apperr.ParameterMissing("mobile").WithOp(op)
		}
		if !phone.IsValid(input.User.Mobile) {
			return apperr.ParameterInvalid("mobile", "malformed phone number").WithOp(op)
		}
	}

	targetOrgID := input.targetOrganizationID()

	if !input.SignUp {
		if caller.OrganizationID == uuid.Nil {
			return apperr.ParameterMissing("caller organizationId").WithOp(op)
		}
		if !caller.HasAnyRole(domain.RoleOrgAdmin, domain.RoleUserManager) {
			return apperr.PermissionDenied("creating a user requires the ORG-ADMIN or USER-MANAGER role").WithOp(op)
		}
	}

	// Joining an existing organization is only allowed from inside it.
	if targetOrgID != nil && !input.SignUp && caller.OrganizationID != *targetOrgID {
		return apperr.ParameterInvalid("organizationId", "the caller belongs to a different organization").WithOp(op)
	}

	if input.Password != "" {
		if err := checkPasswordRules(input.Password, s.rules); err != nil {
			return apperr.ParameterInvalid("password", err.Error()).WithOp(op)
		}
	} else {
		input.Password = generatePassword(s.now())
	}

	return nil
}

// targetOrganizationID returns the existing organization the user should join,
// or nil when a new organization is requested.
func (i *CreateUserInput) targetOrganizationID() *uuid.UUID {
	if i.Organization != nil && i.Organization.ID != uuid.Nil {
		id := i.Organization.ID
		return &id
	}
	if i.User != nil && i.User.OrganizationID != nil && *i.User.OrganizationID != uuid.Nil {
		return i.User.OrganizationID
	}
	return nil
}

func checkPasswordRules(password string, rules config.PasswordRules) error {
	if len(password) < rules.MinLen {
		return fmt.Errorf("must be at least %d characters", rules.MinLen)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if rules.NeedLower && !hasLower {
		return fmt.Errorf("must contain a lowercase letter")
	}
	if rules.NeedUpper && !hasUpper {
		return fmt.Errorf("must contain an uppercase letter")
	}
	if rules.NeedDigit && !hasDigit {
		return fmt.Errorf("must contain a digit")
	}
	if rules.NeedSpecial && !hasSpecial {
		return fmt.Errorf("must contain a special character")
	}
	return nil
}

// generatePassword produces a policy-conforming password for accounts created
// without one. The account cannot sign in until the password is reset through
// the verification flow.
func generatePassword(now time.Time) string {
	return fmt.Sprintf("Aa-%s!%d", uuid.NewString(), now.Year())
}
