// Package scheduler provides background task scheduling over asynq, used to
// take verification-email delivery out of the request path.
package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskVerificationEmail delivers a rendered verification email.
const TaskVerificationEmail = "accounts:verification_email"

// VerificationEmailPayload is the task payload for TaskVerificationEmail.
type VerificationEmailPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"htmlBody,omitempty"`
	TextBody string `json:"textBody,omitempty"`
}

// NewVerificationEmailTask builds the asynq task for a verification email.
func NewVerificationEmailTask(payload VerificationEmailPayload) (*asynq.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal verification email payload: %w", err)
	}
	return asynq.NewTask(TaskVerificationEmail, raw, asynq.MaxRetry(5)), nil
}

// ParseVerificationEmailPayload decodes the raw task payload.
func ParseVerificationEmailPayload(raw []byte) (VerificationEmailPayload, error) {
	var payload VerificationEmailPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return VerificationEmailPayload{}, fmt.Errorf("unmarshal verification email payload: %w", err)
	}
	return payload, nil
}
