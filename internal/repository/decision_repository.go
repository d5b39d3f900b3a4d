package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperrors"
	"github.com/pesio-ai/be-vendor-onboarding/internal/database"
)

// DecisionRepository persists adjudications. The unique review_id index backs
// the one-decision-per-review invariant.
type DecisionRepository struct{}

// NewDecisionRepository creates a new DecisionRepository.
func NewDecisionRepository() *DecisionRepository {
	return &DecisionRepository{}
}

const decisionColumns = `id, review_id, actor, action, rationale, conditions, decided_at`

// Create inserts a decision and fills the generated id and timestamp.
func (r *DecisionRepository) Create(ctx context.Context, q database.Querier, d *Decision) error {
	query := `
		INSERT INTO decisions (review_id, actor, action, rationale, conditions)
		VALUES ($1, $2, $3::decision_action, $4, $5)
		RETURNING id, decided_at
	`

	err := q.QueryRow(ctx, query, d.ReviewID, d.Actor, d.Action, d.Rationale, d.Conditions).
		Scan(&d.ID, &d.DecidedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflictf("review %s already has a decision", d.ReviewID)
		}
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create decision")
	}
	return nil
}

// GetByReviewID returns the decision for a review, or nil when the review is
// not yet adjudicated.
func (r *DecisionRepository) GetByReviewID(ctx context.Context, q database.Querier, reviewID string) (*Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE review_id = $1`

	d := &Decision{}
	err := q.QueryRow(ctx, query, reviewID).
		Scan(&d.ID, &d.ReviewID, &d.Actor, &d.Action, &d.Rationale, &d.Conditions, &d.DecidedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get decision")
	}
	return d, nil
}
