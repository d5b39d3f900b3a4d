package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperrors"
	"github.com/pesio-ai/be-vendor-onboarding/internal/database"
)

// VendorRepository persists vendors. Mutating methods take a Querier so the
// workflow engine can run them inside the per-vendor transaction.
type VendorRepository struct{}

// NewVendorRepository creates a new VendorRepository.
func NewVendorRepository() *VendorRepository {
	return &VendorRepository{}
}

const vendorColumns = `id, name, website, description, status, created_at`

// Create inserts a vendor and fills the generated id and timestamps.
func (r *VendorRepository) Create(ctx context.Context, q database.Querier, v *Vendor) error {
	query := `
		INSERT INTO vendors (name, website, description, status)
		VALUES ($1, $2, $3, $4::vendor_status)
		RETURNING id, status, created_at
	`

	err := q.QueryRow(ctx, query, v.Name, v.Website, v.Description, v.Status).
		Scan(&v.ID, &v.Status, &v.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create vendor")
	}
	return nil
}

// GetByID retrieves a vendor by its primary key.
func (r *VendorRepository) GetByID(ctx context.Context, q database.Querier, id string) (*Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1`
	return r.scanVendor(q.QueryRow(ctx, query, id), id)
}

// GetForUpdate retrieves a vendor with its row locked for the duration of the
// enclosing transaction. Every mutating workflow operation goes through this
// so state for one vendor is serialized.
func (r *VendorRepository) GetForUpdate(ctx context.Context, q database.Querier, id string) (*Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1 FOR UPDATE`
	return r.scanVendor(q.QueryRow(ctx, query, id), id)
}

// UpdateStatus sets the vendor status.
func (r *VendorRepository) UpdateStatus(ctx context.Context, q database.Querier, id string, status VendorStatus) error {
	query := `
		UPDATE vendors
		SET status = $2::vendor_status
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := q.QueryRow(ctx, query, id, status).Scan(&returnedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("vendor", id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to update vendor status")
	}
	return nil
}

// List returns vendors by creation order plus the total count.
func (r *VendorRepository) List(ctx context.Context, q database.Querier, limit, offset int) ([]*Vendor, int64, error) {
	query := `
		SELECT ` + vendorColumns + `
		FROM vendors
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`

	rows, err := q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list vendors")
	}
	defer rows.Close()

	var vendors []*Vendor
	for rows.Next() {
		v := &Vendor{}
		if err := rows.Scan(&v.ID, &v.Name, &v.Website, &v.Description, &v.Status, &v.CreatedAt); err != nil {
			return nil, 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan vendor")
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list vendors")
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to count vendors")
	}

	return vendors, total, nil
}

// ── scan helper ───────────────────────────────────────────────────────────────

type vendorScanner interface {
	Scan(dest ...any) error
}

func (r *VendorRepository) scanVendor(row vendorScanner, id string) (*Vendor, error) {
	v := &Vendor{}
	err := row.Scan(&v.ID, &v.Name, &v.Website, &v.Description, &v.Status, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("vendor", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan vendor")
	}
	return v, nil
}
