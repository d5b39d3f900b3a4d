package repository

import (
	"context"
	"encoding/json"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperrors"
	"github.com/pesio-ai/be-vendor-onboarding/internal/database"
)

// AuditRepository appends and reads the immutable per-vendor audit log. The
// table carries a delete-prevention trigger, so Append is the only mutation.
type AuditRepository struct{}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Append inserts one audit entry. Callers run it inside the same transaction
// as the state mutation it records; a failure here aborts the whole unit of
// work so a status change without its entry is never observable.
func (r *AuditRepository) Append(ctx context.Context, q database.Querier, entry *AuditEntry) error {
	var payloadJSON []byte
	if entry.Payload != nil {
		var err error
		payloadJSON, err = json.Marshal(entry.Payload)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to marshal audit payload")
		}
	}

	query := `
		INSERT INTO audit_logs (vendor_id, event_type, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, timestamp
	`

	err := q.QueryRow(ctx, query, entry.VendorID, entry.EventType, entry.Actor, payloadJSON).
		Scan(&entry.ID, &entry.Timestamp)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to append audit entry")
	}
	return nil
}

// ListByVendor returns the vendor's audit trail newest-first, insertion id
// breaking timestamp ties.
func (r *AuditRepository) ListByVendor(ctx context.Context, q database.Querier, vendorID string) ([]*AuditEntry, error) {
	query := `
		SELECT id, vendor_id, event_type, actor, payload, timestamp
		FROM audit_logs
		WHERE vendor_id = $1
		ORDER BY timestamp DESC, seq DESC
	`

	rows, err := q.Query(ctx, query, vendorID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list audit log")
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		entry := &AuditEntry{}
		var payloadJSON []byte
		if err := rows.Scan(&entry.ID, &entry.VendorID, &entry.EventType, &entry.Actor, &payloadJSON, &entry.Timestamp); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan audit entry")
		}
		if payloadJSON != nil {
			if err := json.Unmarshal(payloadJSON, &entry.Payload); err != nil {
				return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to unmarshal audit payload")
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list audit log")
	}
	return entries, nil
}
