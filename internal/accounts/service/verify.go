package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"accounts_backend/internal/accounts/domain"
	"accounts_backend/internal/accounts/repository"
	"accounts_backend/internal/accounts/token"
	"accounts_backend/platform/apperr"

	"github.com/google/uuid"
)

// Actions understood by the activation and invite flows.
const (
	ActionActivateWithPassword    = "activate-with-password"
	ActionActivateWithoutPassword = "activate-without-password"
)

// verifiedUser returns the user when the supplied code matches the stored
// one-time code for the channel, or nil when it does not.
func (s *Service) verifiedUser(ctx context.Context, userID uuid.UUID, channel domain.Channel, code string) (*domain.Account, error) {
	user, err := s.primary.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	stored := user.VerificationCode(channel)
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return nil, nil
	}
	return user, nil
}

// ActivateUser matches the supplied code against the stored per-channel
// verification code. On match it stamps the verified timestamp and rotates
// the code, so a code is single-use. Returns false on mismatch.
func (s *Service) ActivateUser(ctx context.Context, userID uuid.UUID, channel domain.Channel, code, action string) (bool, error) {
	const op = "accounts.ActivateUser"

	if !channel.Valid() {
		return false, apperr.ParameterInvalid("channel", "must be email or mobile").WithOp(op)
	}

	user, err := s.verifiedUser(ctx, userID, channel, code)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "verification lookup failed", err).WithOp(op)
	}
	if user == nil {
		return false, nil
	}

	user.MarkVerified(channel, s.now())
	if action == ActionActivateWithPassword || action == ActionActivateWithoutPassword {
		user.StatusCode = domain.StatusActivated
		user.StatusInfo = action
	}
	user.UpdatedAt = s.now()

	if _, err := s.primary.Update(ctx, user); err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "activation update failed", err).WithOp(op)
	}
	if err := s.project(ctx, user); err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "replica projection failed", err).WithOp(op)
	}
	return true, nil
}

// ChangeUserPassword updates the identity-provider password for a user after
// verifying the supplied per-channel code. Returns false on code mismatch.
func (s *Service) ChangeUserPassword(ctx context.Context, userID uuid.UUID, password string, channel domain.Channel, code string) (bool, error) {
	const op = "accounts.ChangeUserPassword"

	if !channel.Valid() {
		return false, apperr.ParameterInvalid("channel", "must be email or mobile").WithOp(op)
	}
	if err := checkPasswordRules(password, s.rules); err != nil {
		return false, apperr.ParameterInvalid("password", err.Error()).WithOp(op)
	}

	user, err := s.verifiedUser(ctx, userID, channel, code)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "verification lookup failed", err).WithOp(op)
	}
	if user == nil {
		return false, nil
	}

	orgID := uuid.Nil
	if user.OrganizationID != nil {
		orgID = *user.OrganizationID
	}

	if err := s.provider.UpdatePassword(ctx, s.idpCfg.GetIdentityPoolID(), s.idpCfg.GetIdentityClientID(), orgID, userID, password); err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "identity provider password update failed", err).WithOp(op)
	}
	return true, nil
}

// SendVerifyToken creates a verification token for the user, renders the
// per-solution email template, and enqueues delivery. For activation actions
// the user is stamped "invite out". Returns the sealed token embedded in the
// email, or an empty string when the user does not exist.
func (s *Service) SendVerifyToken(ctx context.Context, solutionID string, userID uuid.UUID, channel domain.Channel, action string) (string, error) {
	const op = "accounts.SendVerifyToken"

	if !channel.Valid() {
		return "", apperr.ParameterInvalid("channel", "must be email or mobile").WithOp(op)
	}

	user, err := s.primary.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", apperr.Wrap(apperr.KindInternal, "user lookup failed", err).WithOp(op)
	}

	code := user.VerificationCode(channel)
	if _, err := s.tokens.Create(ctx, userID, token.KindVerification, map[string]any{
		"action": action,
		"code":   code,
	}); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "verification token creation failed", err).WithOp(op)
	}

	sealed, err := s.tokens.Seal(strings.Join([]string{
		userID.String(), action, string(channel), user.IdentityValue(channel), uuid.NewString(),
	}, "|"))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "verification token sealing failed", err).WithOp(op)
	}

	if s.templates != nil && s.dispatcher != nil && user.Email != "" {
		tmpl, err := s.templates.Fetch(ctx, solutionID, action)
		if err != nil {
			return "", apperr.Wrap(apperr.KindInternal, "email template fetch failed", err).WithOp(op)
		}

		subject, htmlBody, textBody, err := tmpl.Render(user, sealed)
		if err != nil {
			return "", apperr.Wrap(apperr.KindInternal, "email template rendering failed", err).WithOp(op)
		}

		if err := s.dispatcher.EnqueueVerificationEmail(ctx, user.Email, subject, htmlBody, textBody); err != nil {
			return "", apperr.Wrap(apperr.KindInternal, "verification email dispatch failed", err).WithOp(op)
		}

		if action == ActionActivateWithPassword || action == ActionActivateWithoutPassword {
			user.StatusCode = domain.StatusInviteOut
			user.StatusInfo = action
			user.UpdatedAt = s.now()
			if _, err := s.primary.Update(ctx, user); err != nil {
				return "", apperr.Wrap(apperr.KindInternal, "invite status update failed", err).WithOp(op)
			}
			if err := s.project(ctx, user); err != nil {
				return "", apperr.Wrap(apperr.KindInternal, "replica projection failed", err).WithOp(op)
			}
		}
	}

	return sealed, nil
}
