package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-vendor-onboarding/internal/database"
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

// Store is the database surface the engine needs: ad-hoc reads plus the
// per-vendor unit-of-work transaction. *database.DB satisfies it.
type Store interface {
	database.Querier
	InTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// VendorRepository persists vendors.
type VendorRepository interface {
	Create(ctx context.Context, q database.Querier, v *repository.Vendor) error
	GetByID(ctx context.Context, q database.Querier, id string) (*repository.Vendor, error)
	GetForUpdate(ctx context.Context, q database.Querier, id string) (*repository.Vendor, error)
	UpdateStatus(ctx context.Context, q database.Querier, id string, status repository.VendorStatus) error
	List(ctx context.Context, q database.Querier, limit, offset int) ([]*repository.Vendor, int64, error)
}

// ReviewRepository persists reviews.
type ReviewRepository interface {
	Create(ctx context.Context, q database.Querier, rev *repository.Review) error
	GetByID(ctx context.Context, q database.Querier, id string) (*repository.Review, error)
	GetByVendorAndStage(ctx context.Context, q database.Querier, vendorID string, stage repository.Stage) (*repository.Review, error)
	ListByVendor(ctx context.Context, q database.Querier, vendorID string) ([]*repository.Review, error)
	MarkInProgress(ctx context.Context, q database.Querier, id string) error
	Complete(ctx context.Context, q database.Querier, id string, outcome repository.ReviewOutcome, completedAt time.Time) error
	MarkError(ctx context.Context, q database.Querier, id, detail string) error
}

// DecisionRepository persists adjudications.
type DecisionRepository interface {
	Create(ctx context.Context, q database.Querier, d *repository.Decision) error
	GetByReviewID(ctx context.Context, q database.Querier, reviewID string) (*repository.Decision, error)
}

// AuditRepository appends and reads the audit log.
type AuditRepository interface {
	Append(ctx context.Context, q database.Querier, entry *repository.AuditEntry) error
	ListByVendor(ctx context.Context, q database.Querier, vendorID string) ([]*repository.AuditEntry, error)
}

// DocumentRepository persists document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, q database.Querier, d *repository.Document) error
	GetByID(ctx context.Context, q database.Querier, id string) (*repository.Document, error)
	ListByVendor(ctx context.Context, q database.Querier, vendorID string) ([]*repository.Document, error)
}

// EventPublisher pushes committed workflow events to interested services.
// Implementations must be non-fatal: a publish failure never fails the
// workflow operation that produced the event.
type EventPublisher interface {
	PublishVendorEvent(ctx context.Context, eventType, vendorID, actor string, payload map[string]any)
}
