package service

import (
	"context"

	"accounts_backend/internal/accounts/domain"
	"accounts_backend/internal/accounts/replica"
	"accounts_backend/platform/logger"
)

// undoAction compensates one committed saga step.
type undoAction struct {
	step string
	undo func(ctx context.Context) error
}

// saga is the request-local progress record of one creation attempt. Each
// committed step pushes its compensation immediately after the write succeeds,
// never before, so rollback is exact rather than speculative. The record is
// owned by a single call and discarded at saga end.
type saga struct {
	op        string
	committed []undoAction
	log       *logger.Logger
}

func newSaga(op string, log *logger.Logger) *saga {
	return &saga{op: op, log: log}
}

// record registers the compensation for a step that just committed.
func (s *saga) record(step string, undo func(ctx context.Context) error) {
	s.committed = append(s.committed, undoAction{step: step, undo: undo})
}

// rollback executes the compensations in strict reverse order of commitment.
// Compensation is best effort: a failing undo is logged and the remaining
// undos still run, so the original error is never masked. A rollback write
// that fails leaves an orphaned partial record behind; that is an accepted
// limitation of running without cross-store transactions.
func (s *saga) rollback(ctx context.Context) {
	// The caller may already have given up; compensation still runs.
	ctx = context.WithoutCancel(ctx)

	for i := len(s.committed) - 1; i >= 0; i-- {
		action := s.committed[i]
		if err := action.undo(ctx); err != nil {
			s.log.CompensationFailed(s.op, action.step, err)
		}
	}
	s.committed = nil
}

// replicaKey returns the entity-kind prefixed replica key for an account.
func replicaKey(account *domain.Account) string {
	if account.IsOrganization() {
		return replica.OrganizationKey(account.ID)
	}
	return replica.UserKey(account.ID)
}
