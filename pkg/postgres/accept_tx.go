package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carebridge/care-matching/pkg/core/model"
)

// acceptTx is the db.AcceptTx bound to one pgx transaction
type acceptTx struct {
	tx pgx.Tx
}

func (a *acceptTx) LockSuggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	return getSuggestion(ctx, a.tx, id, true)
}

// LockStaff holds the staff row so two accepts for the same person run one
// after the other and the second sees the first's assignment
func (a *acceptTx) LockStaff(ctx context.Context, staffID int64) (*model.Staff, error) {
	return getStaffMember(ctx, a.tx, staffID, true)
}

func (a *acceptTx) GetStaffAssignments(ctx context.Context, staffID int64, from, to time.Time) ([]model.Assignment, error) {
	return staffAssignments(ctx, a.tx, staffID, from, to)
}

func (a *acceptTx) InsertAssignment(ctx context.Context, assignment *model.Assignment) error {
	return insertAssignment(ctx, a.tx, assignment)
}

func (a *acceptTx) UpdateSuggestionOutcome(ctx context.Context, s *model.Suggestion) error {
	return updateSuggestionOutcome(ctx, a.tx, s)
}
