package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperrors"
	"github.com/pesio-ai/be-vendor-onboarding/internal/database"
)

// DocumentRepository persists document metadata. Content extraction and
// storage live in the document collaborators, not here.
type DocumentRepository struct{}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{}
}

// Create registers a document for a vendor and stage.
func (r *DocumentRepository) Create(ctx context.Context, q database.Querier, d *Document) error {
	query := `
		INSERT INTO documents (vendor_id, stage, doc_type, filename)
		VALUES ($1, $2::review_stage, $3, $4)
		RETURNING id, uploaded_at
	`

	err := q.QueryRow(ctx, query, d.VendorID, d.Stage, d.DocType, d.Filename).
		Scan(&d.ID, &d.UploadedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create document")
	}
	return nil
}

// GetByID retrieves a document by its primary key.
func (r *DocumentRepository) GetByID(ctx context.Context, q database.Querier, id string) (*Document, error) {
	query := `
		SELECT id, vendor_id, stage, doc_type, filename, uploaded_at
		FROM documents
		WHERE id = $1
	`

	d := &Document{}
	err := q.QueryRow(ctx, query, id).
		Scan(&d.ID, &d.VendorID, &d.Stage, &d.DocType, &d.Filename, &d.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("document", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan document")
	}
	return d, nil
}

// ListByVendor returns all documents registered for a vendor.
func (r *DocumentRepository) ListByVendor(ctx context.Context, q database.Querier, vendorID string) ([]*Document, error) {
	query := `
		SELECT id, vendor_id, stage, doc_type, filename, uploaded_at
		FROM documents
		WHERE vendor_id = $1
		ORDER BY uploaded_at, id
	`

	rows, err := q.Query(ctx, query, vendorID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list documents")
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d := &Document{}
		if err := rows.Scan(&d.ID, &d.VendorID, &d.Stage, &d.DocType, &d.Filename, &d.UploadedAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan document")
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list documents")
	}
	return docs, nil
}
