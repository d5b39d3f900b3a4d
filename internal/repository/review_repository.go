package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperrors"
	"github.com/pesio-ai/be-vendor-onboarding/internal/database"
)

// ReviewRepository persists the one-review-per-(vendor, stage) lifecycle.
type ReviewRepository struct{}

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{}
}

const reviewColumns = `id, vendor_id, stage, review_type, status,
       form_input, ai_output, error_detail, triggered_at, completed_at`

// Create inserts a review in PENDING status. The unique (vendor_id, stage)
// index turns a duplicate stage review into a conflict.
func (r *ReviewRepository) Create(ctx context.Context, q database.Querier, rev *Review) error {
	query := `
		INSERT INTO reviews (vendor_id, stage, review_type, status)
		VALUES ($1, $2::review_stage, $3::review_type, $4::review_status)
		RETURNING id, status, triggered_at
	`

	err := q.QueryRow(ctx, query, rev.VendorID, rev.Stage, rev.ReviewType, rev.Status).
		Scan(&rev.ID, &rev.Status, &rev.TriggeredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflictf("review for stage %s already exists for vendor %s", rev.Stage, rev.VendorID)
		}
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create review")
	}
	return nil
}

// GetByID retrieves a review by its primary key.
func (r *ReviewRepository) GetByID(ctx context.Context, q database.Querier, id string) (*Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	return r.scanReview(q.QueryRow(ctx, query, id), id)
}

// GetByVendorAndStage returns the review for one stage, or nil when the stage
// has not been opened yet.
func (r *ReviewRepository) GetByVendorAndStage(ctx context.Context, q database.Querier, vendorID string, stage Stage) (*Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE vendor_id = $1 AND stage = $2::review_stage`

	rev, err := r.scanReview(q.QueryRow(ctx, query, vendorID, stage), "")
	if apperrors.Code(err) == apperrors.CodeNotFound {
		return nil, nil
	}
	return rev, err
}

// ListByVendor returns all reviews for a vendor in stage-creation order.
func (r *ReviewRepository) ListByVendor(ctx context.Context, q database.Querier, vendorID string) ([]*Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE vendor_id = $1 ORDER BY triggered_at, id`

	rows, err := q.Query(ctx, query, vendorID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list reviews")
	}
	defer rows.Close()

	var reviews []*Review
	for rows.Next() {
		rev := &Review{}
		if err := rows.Scan(
			&rev.ID, &rev.VendorID, &rev.Stage, &rev.ReviewType, &rev.Status,
			&rev.FormInput, &rev.AIOutput, &rev.ErrorDetail, &rev.TriggeredAt, &rev.CompletedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan review")
		}
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list reviews")
	}
	return reviews, nil
}

// MarkInProgress transitions PENDING/ERROR → IN_PROGRESS and clears any prior
// error detail. The WHERE guard makes concurrent triggers lose cleanly.
func (r *ReviewRepository) MarkInProgress(ctx context.Context, q database.Querier, id string) error {
	query := `
		UPDATE reviews
		SET status = 'IN_PROGRESS'::review_status, error_detail = NULL
		WHERE id = $1 AND status IN ('PENDING', 'ERROR')
		RETURNING id
	`

	var returnedID string
	err := q.QueryRow(ctx, query, id).Scan(&returnedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.Conflict("review is not in a triggerable state")
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to mark review in progress")
	}
	return nil
}

// Complete stores the outcome in the column matching its type and stamps
// completed_at. Only IN_PROGRESS (analysis) or PENDING/IN_PROGRESS (form)
// reviews can complete; the status guard re-checks under the vendor lock so a
// result commit that lost the race fails with a conflict instead of
// overwriting terminal fields.
func (r *ReviewRepository) Complete(ctx context.Context, q database.Querier, id string, outcome ReviewOutcome, completedAt time.Time) error {
	var query string
	switch outcome.Type() {
	case ReviewTypeHumanForm:
		query = `
			UPDATE reviews
			SET status = 'COMPLETE'::review_status, form_input = $2, completed_at = $3
			WHERE id = $1 AND review_type = 'HUMAN_FORM' AND status IN ('PENDING', 'IN_PROGRESS')
			RETURNING id
		`
	case ReviewTypeAIAnalysis:
		query = `
			UPDATE reviews
			SET status = 'COMPLETE'::review_status, ai_output = $2, completed_at = $3
			WHERE id = $1 AND review_type = 'AI_ANALYSIS' AND status = 'IN_PROGRESS'
			RETURNING id
		`
	default:
		return apperrors.New(apperrors.CodeInternal, "review outcome has no type")
	}

	var returnedID string
	err := q.QueryRow(ctx, query, id, outcome.Payload(), completedAt).Scan(&returnedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.Conflict("review is not in a completable state")
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to complete review")
	}
	return nil
}

// MarkError transitions IN_PROGRESS → ERROR with the failure reason.
func (r *ReviewRepository) MarkError(ctx context.Context, q database.Querier, id, detail string) error {
	query := `
		UPDATE reviews
		SET status = 'ERROR'::review_status, error_detail = $2, completed_at = $3
		WHERE id = $1 AND status = 'IN_PROGRESS'
		RETURNING id
	`

	var returnedID string
	err := q.QueryRow(ctx, query, id, detail, time.Now().UTC()).Scan(&returnedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.Conflict("review is not in progress")
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to mark review error")
	}
	return nil
}

// ── scan helper ───────────────────────────────────────────────────────────────

type reviewScanner interface {
	Scan(dest ...any) error
}

func (r *ReviewRepository) scanReview(row reviewScanner, id string) (*Review, error) {
	rev := &Review{}
	err := row.Scan(
		&rev.ID, &rev.VendorID, &rev.Stage, &rev.ReviewType, &rev.Status,
		&rev.FormInput, &rev.AIOutput, &rev.ErrorDetail, &rev.TriggeredAt, &rev.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("review", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan review")
	}
	return rev, nil
}
