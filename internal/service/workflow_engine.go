package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-vendor-onboarding/internal/analyzer"
	"github.com/pesio-ai/be-vendor-onboarding/internal/apperrors"
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

// Audit event types. Every state-affecting operation writes exactly one entry
// per status mutation, in the same transaction as the mutation itself.
const (
	EventVendorCreated          = "VENDOR_CREATED"
	EventIntakeStarted          = "INTAKE_STARTED"
	EventFormSubmitted          = "FORM_SUBMITTED"
	EventUseCaseApproved        = "USE_CASE_APPROVED"
	EventLegalReviewCreated     = "LEGAL_REVIEW_CREATED"
	EventAnalysisTriggered      = "ANALYSIS_TRIGGERED"
	EventAnalysisCompleted      = "ANALYSIS_COMPLETED"
	EventAnalysisFailed         = "ANALYSIS_FAILED"
	EventDecisionRecorded       = "DECISION_RECORDED"
	EventNDAGateOpened          = "NDA_GATE_OPENED"
	EventNDAConfirmed           = "NDA_CONFIRMED"
	EventFinancialReviewStarted = "FINANCIAL_REVIEW_STARTED"
	EventVendorOnboarded        = "VENDOR_ONBOARDED"
	EventVendorRejected         = "VENDOR_REJECTED"
)

// systemActor is recorded on transitions not attributable to a named human.
const systemActor = "system"

// WorkflowEngine owns the vendor status state machine: it creates and
// transitions reviews, applies decisions, and appends the audit trail. All
// per-vendor mutations run inside a transaction holding the vendor row lock;
// the analyzer call is the one operation that runs outside it.
type WorkflowEngine struct {
	db        Store
	vendors   VendorRepository
	reviews   ReviewRepository
	decisions DecisionRepository
	audits    AuditRepository
	documents DocumentRepository
	gateway   analyzer.Gateway
	events    EventPublisher
	log       zerolog.Logger
}

// NewWorkflowEngine creates a new WorkflowEngine. events may be nil when
// notifications are disabled.
func NewWorkflowEngine(
	db Store,
	vendors VendorRepository,
	reviews ReviewRepository,
	decisions DecisionRepository,
	audits AuditRepository,
	documents DocumentRepository,
	gateway analyzer.Gateway,
	events EventPublisher,
	log zerolog.Logger,
) *WorkflowEngine {
	return &WorkflowEngine{
		db:        db,
		vendors:   vendors,
		reviews:   reviews,
		decisions: decisions,
		audits:    audits,
		documents: documents,
		gateway:   gateway,
		events:    events,
		log:       log.With().Str("component", "workflow_engine").Logger(),
	}
}

// reviewStatus maps a stage to the vendor status while that stage is under
// review.
func reviewStatus(stage repository.Stage) repository.VendorStatus {
	switch stage {
	case repository.StageUseCase:
		return repository.StatusUseCaseReview
	case repository.StageLegal:
		return repository.StatusLegalReview
	case repository.StageSecurity:
		return repository.StatusSecurityReview
	default:
		return repository.StatusFinancialReview
	}
}

// approvedStatus maps a stage to the vendor status after its approval.
func approvedStatus(stage repository.Stage) repository.VendorStatus {
	switch stage {
	case repository.StageUseCase:
		return repository.StatusUseCaseApproved
	case repository.StageLegal:
		return repository.StatusLegalApproved
	case repository.StageSecurity:
		return repository.StatusSecurityApproved
	default:
		return repository.StatusFinancialApproved
	}
}

// pendingEvent is a notification buffered until the transaction commits.
type pendingEvent struct {
	eventType string
	vendorID  string
	actor     string
	payload   map[string]any
}

func (e *WorkflowEngine) publish(ctx context.Context, events []pendingEvent) {
	if e.events == nil {
		return
	}
	for _, ev := range events {
		e.events.PublishVendorEvent(ctx, ev.eventType, ev.vendorID, ev.actor, ev.payload)
	}
}

// ── Stage 1: intake ──────────────────────────────────────────────────────────

// CreateVendorRequest creates a vendor and opens its use case review.
type CreateVendorRequest struct {
	Name        string  `json:"name"`
	Website     *string `json:"website,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateVendor creates the vendor in INTAKE, immediately opens the USE_CASE
// review, and advances to USE_CASE_REVIEW.
func (e *WorkflowEngine) CreateVendor(ctx context.Context, req *CreateVendorRequest) (*repository.Vendor, *repository.Review, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, nil, apperrors.Validation("name", "required")
	}

	vendor := &repository.Vendor{
		Name:        strings.TrimSpace(req.Name),
		Website:     req.Website,
		Description: req.Description,
		Status:      repository.StatusIntake,
	}
	review := &repository.Review{
		Stage:      repository.StageUseCase,
		ReviewType: repository.ReviewTypeHumanForm,
		Status:     repository.ReviewStatusPending,
	}

	var events []pendingEvent
	err := e.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if err := e.vendors.Create(ctx, tx, vendor); err != nil {
			return err
		}
		if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
			VendorID:  vendor.ID,
			EventType: EventVendorCreated,
			Actor:     systemActor,
			Payload:   map[string]any{"name": vendor.Name},
		}); err != nil {
			return err
		}

		review.VendorID = vendor.ID
		if err := e.reviews.Create(ctx, tx, review); err != nil {
			return err
		}
		if err := e.vendors.UpdateStatus(ctx, tx, vendor.ID, repository.StatusUseCaseReview); err != nil {
			return err
		}
		vendor.Status = repository.StatusUseCaseReview

		if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
			VendorID:  vendor.ID,
			EventType: EventIntakeStarted,
			Actor:     systemActor,
			Payload:   map[string]any{"review_id": review.ID},
		}); err != nil {
			return err
		}

		events = append(events,
			pendingEvent{EventVendorCreated, vendor.ID, systemActor, map[string]any{"name": vendor.Name}},
			pendingEvent{EventIntakeStarted, vendor.ID, systemActor, map[string]any{"review_id": review.ID}},
		)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.publish(ctx, events)

	e.log.Info().
		Str("vendor_id", vendor.ID).
		Str("review_id", review.ID).
		Msg("Vendor created, use case review opened")

	return vendor, review, nil
}

// ── Human forms (stages 1 and 4) ─────────────────────────────────────────────

// SubmitForm validates and stores a human form on a HUMAN_FORM review, marking
// it COMPLETE. The use case stage auto-adjudicates: PROCEED advances the
// vendor and opens the legal review, DO_NOT_PROCEED rejects the vendor. The
// financial stage waits for an explicit decision.
func (e *WorkflowEngine) SubmitForm(ctx context.Context, reviewID string, raw json.RawMessage) (*repository.Review, error) {
	var review *repository.Review
	var events []pendingEvent

	err := e.db.InTransaction(ctx, func(tx pgx.Tx) error {
		rev, vendor, err := e.lockReview(ctx, tx, reviewID)
		if err != nil {
			return err
		}

		if rev.ReviewType != repository.ReviewTypeHumanForm {
			return apperrors.Conflict("review does not accept form submissions")
		}
		if rev.Status == repository.ReviewStatusComplete {
			return apperrors.Conflict("review is already complete")
		}
		if rev.Status != repository.ReviewStatusPending && rev.Status != repository.ReviewStatusInProgress {
			return apperrors.Conflictf("review is in status %s", rev.Status)
		}

		validator, ok := ValidatorForStage(rev.Stage)
		if !ok {
			return apperrors.Conflictf("stage %s does not accept form submissions", rev.Stage)
		}
		result, err := validator.Validate(raw)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := e.reviews.Complete(ctx, tx, rev.ID, repository.FormOutcome(result.Normalized), now); err != nil {
			return err
		}
		if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
			VendorID:  vendor.ID,
			EventType: EventFormSubmitted,
			Actor:     result.ReviewerName,
			Payload:   map[string]any{"review_id": rev.ID, "stage": rev.Stage, "recommendation": result.Recommendation},
		}); err != nil {
			return err
		}
		events = append(events, pendingEvent{EventFormSubmitted, vendor.ID, result.ReviewerName,
			map[string]any{"review_id": rev.ID, "stage": string(rev.Stage)}})

		if rev.Stage == repository.StageUseCase {
			if result.Recommendation == RecommendProceed {
				if err := e.approveUseCase(ctx, tx, vendor, rev, result, &events); err != nil {
					return err
				}
			} else {
				if err := e.rejectInTx(ctx, tx, vendor, result.ReviewerName, result.Notes, rev.Stage, &events); err != nil {
					return err
				}
			}
		}

		review, err = e.reviews.GetByID(ctx, tx, rev.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, events)

	e.log.Info().
		Str("review_id", review.ID).
		Str("vendor_id", review.VendorID).
		Str("stage", string(review.Stage)).
		Msg("Form submitted")

	return review, nil
}

// approveUseCase records the auto-approval the PROCEED recommendation implies
// and opens the legal review.
func (e *WorkflowEngine) approveUseCase(ctx context.Context, tx pgx.Tx, vendor *repository.Vendor, rev *repository.Review, result *FormResult, events *[]pendingEvent) error {
	if vendor.Status != repository.StatusUseCaseReview {
		return apperrors.Conflictf("vendor is in status %s, expected %s", vendor.Status, repository.StatusUseCaseReview)
	}

	if err := e.vendors.UpdateStatus(ctx, tx, vendor.ID, repository.StatusUseCaseApproved); err != nil {
		return err
	}
	if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
		VendorID:  vendor.ID,
		EventType: EventUseCaseApproved,
		Actor:     result.ReviewerName,
		Payload:   map[string]any{"review_id": rev.ID},
	}); err != nil {
		return err
	}

	legalReview := &repository.Review{
		VendorID:   vendor.ID,
		Stage:      repository.StageLegal,
		ReviewType: repository.ReviewTypeAIAnalysis,
		Status:     repository.ReviewStatusPending,
	}
	if err := e.reviews.Create(ctx, tx, legalReview); err != nil {
		return err
	}
	if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
		VendorID:  vendor.ID,
		EventType: EventLegalReviewCreated,
		Actor:     systemActor,
		Payload:   map[string]any{"review_id": legalReview.ID},
	}); err != nil {
		return err
	}

	*events = append(*events,
		pendingEvent{EventUseCaseApproved, vendor.ID, result.ReviewerName, map[string]any{"review_id": rev.ID}},
		pendingEvent{EventLegalReviewCreated, vendor.ID, systemActor, map[string]any{"review_id": legalReview.ID}},
	)
	return nil
}

// ── AI analysis (stages 2 and 3) ─────────────────────────────────────────────

// TriggerReview runs the stage analyzer for an AI_ANALYSIS review. The review
// is marked IN_PROGRESS under the vendor lock, the analyzer runs with the lock
// released, and the terminal result commits under a fresh lock that re-checks
// the review is still IN_PROGRESS. A failed analysis leaves the review in
// ERROR and the vendor untouched; the call itself still succeeds so the
// caller can inspect the review and retrigger.
func (e *WorkflowEngine) TriggerReview(ctx context.Context, reviewID, documentID string) (*repository.Review, error) {
	var rev *repository.Review
	var doc *repository.Document
	var events []pendingEvent

	err := e.db.InTransaction(ctx, func(tx pgx.Tx) error {
		var vendor *repository.Vendor
		var err error
		rev, vendor, err = e.lockReview(ctx, tx, reviewID)
		if err != nil {
			return err
		}

		if rev.ReviewType != repository.ReviewTypeAIAnalysis {
			return apperrors.Conflict("review is not an AI analysis review")
		}
		switch rev.Status {
		case repository.ReviewStatusPending, repository.ReviewStatusError:
		case repository.ReviewStatusInProgress:
			return apperrors.Conflict("analysis is already in progress")
		default:
			return apperrors.Conflict("review is already complete")
		}

		doc, err = e.documents.GetByID(ctx, tx, documentID)
		if err != nil {
			return err
		}
		if doc.VendorID != rev.VendorID {
			return apperrors.Validation("document_id", "document belongs to another vendor")
		}

		// Stage gating against the persisted status under lock.
		switch rev.Stage {
		case repository.StageLegal:
			switch vendor.Status {
			case repository.StatusUseCaseApproved:
				if err := e.vendors.UpdateStatus(ctx, tx, vendor.ID, repository.StatusLegalReview); err != nil {
					return err
				}
			case repository.StatusLegalReview:
			default:
				return apperrors.Conflictf("legal review requires status %s or %s, current: %s",
					repository.StatusUseCaseApproved, repository.StatusLegalReview, vendor.Status)
			}
		case repository.StageSecurity:
			if vendor.Status != repository.StatusSecurityReview {
				return apperrors.Conflictf("security review requires status %s (NDA must be confirmed), current: %s",
					repository.StatusSecurityReview, vendor.Status)
			}
		default:
			return apperrors.Conflictf("stage %s has no analyzer", rev.Stage)
		}

		if err := e.reviews.MarkInProgress(ctx, tx, rev.ID); err != nil {
			return err
		}
		if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
			VendorID:  rev.VendorID,
			EventType: EventAnalysisTriggered,
			Actor:     systemActor,
			Payload:   map[string]any{"review_id": rev.ID, "document_id": documentID, "stage": rev.Stage},
		}); err != nil {
			return err
		}
		events = append(events, pendingEvent{EventAnalysisTriggered, rev.VendorID, systemActor,
			map[string]any{"review_id": rev.ID, "stage": string(rev.Stage)}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, events)
	events = events[:0]

	// Long-latency call, deliberately outside the vendor lock.
	result, analysisErr := e.gateway.Analyze(ctx, rev.Stage, doc)

	err = e.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := e.vendors.GetForUpdate(ctx, tx, rev.VendorID); err != nil {
			return err
		}

		if analysisErr != nil {
			reason := apperrors.Message(analysisErr)
			if err := e.reviews.MarkError(ctx, tx, rev.ID, reason); err != nil {
				return err
			}
			if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
				VendorID:  rev.VendorID,
				EventType: EventAnalysisFailed,
				Actor:     systemActor,
				Payload:   map[string]any{"review_id": rev.ID, "stage": rev.Stage, "error": reason},
			}); err != nil {
				return err
			}
			events = append(events, pendingEvent{EventAnalysisFailed, rev.VendorID, systemActor,
				map[string]any{"review_id": rev.ID, "error": reason}})
			return nil
		}

		payload, err := result.MarshalOutcome()
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to serialize analysis result")
		}
		if err := e.reviews.Complete(ctx, tx, rev.ID, repository.AnalysisOutcome(payload), time.Now().UTC()); err != nil {
			return err
		}
		if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
			VendorID:  rev.VendorID,
			EventType: EventAnalysisCompleted,
			Actor:     systemActor,
			Payload:   map[string]any{"review_id": rev.ID, "stage": rev.Stage, "result": result.Summary()},
		}); err != nil {
			return err
		}
		events = append(events, pendingEvent{EventAnalysisCompleted, rev.VendorID, systemActor,
			map[string]any{"review_id": rev.ID, "stage": string(rev.Stage)}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, events)

	refreshed, err := e.reviews.GetByID(ctx, e.db, rev.ID)
	if err != nil {
		return nil, err
	}

	if analysisErr != nil {
		e.log.Error().
			Err(analysisErr).
			Str("review_id", rev.ID).
			Str("stage", string(rev.Stage)).
			Msg("Analysis failed")
	} else {
		e.log.Info().
			Str("review_id", rev.ID).
			Str("stage", string(rev.Stage)).
			Msg("Analysis completed")
	}
	return refreshed, nil
}

// ── Decisions ────────────────────────────────────────────────────────────────

// RecordDecisionRequest adjudicates a completed review.
type RecordDecisionRequest struct {
	Actor      string                    `json:"actor"`
	Action     repository.DecisionAction `json:"action"`
	Rationale  string                    `json:"rationale"`
	Conditions []string                  `json:"conditions,omitempty"`
}

// RecordDecision records the adjudication for a completed, undecided review
// and applies stage advancement: approval moves the vendor to the stage's
// approved status (legal approval additionally opens the NDA gate), rejection
// terminates the workflow.
func (e *WorkflowEngine) RecordDecision(ctx context.Context, reviewID string, req *RecordDecisionRequest) (*repository.Decision, error) {
	if strings.TrimSpace(req.Actor) == "" {
		return nil, apperrors.Validation("actor", "required")
	}
	if strings.TrimSpace(req.Rationale) == "" {
		return nil, apperrors.Validation("rationale", "required")
	}
	switch req.Action {
	case repository.ActionApprove, repository.ActionReject:
		if len(req.Conditions) > 0 {
			return nil, apperrors.Validation("conditions", "only allowed for APPROVE_WITH_CONDITIONS")
		}
	case repository.ActionApproveWithConditions:
		if len(req.Conditions) == 0 {
			return nil, apperrors.Validation("conditions", "required for APPROVE_WITH_CONDITIONS")
		}
	default:
		return nil, apperrors.Validation("action", "must be APPROVE, REJECT or APPROVE_WITH_CONDITIONS")
	}

	decision := &repository.Decision{
		ReviewID:   reviewID,
		Actor:      req.Actor,
		Action:     req.Action,
		Rationale:  req.Rationale,
		Conditions: req.Conditions,
	}
	var events []pendingEvent

	err := e.db.InTransaction(ctx, func(tx pgx.Tx) error {
		rev, vendor, err := e.lockReview(ctx, tx, reviewID)
		if err != nil {
			return err
		}

		if rev.Status != repository.ReviewStatusComplete {
			return apperrors.Conflict("review must be COMPLETE before a decision can be recorded")
		}
		existing, err := e.decisions.GetByReviewID(ctx, tx, rev.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.Conflict("review is already adjudicated")
		}
		if vendor.Status != reviewStatus(rev.Stage) {
			return apperrors.Conflictf("vendor is in status %s, stage %s cannot be adjudicated", vendor.Status, rev.Stage)
		}

		if err := e.decisions.Create(ctx, tx, decision); err != nil {
			return err
		}
		if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
			VendorID:  vendor.ID,
			EventType: EventDecisionRecorded,
			Actor:     req.Actor,
			Payload: map[string]any{
				"review_id":  rev.ID,
				"stage":      rev.Stage,
				"action":     req.Action,
				"conditions": req.Conditions,
			},
		}); err != nil {
			return err
		}
		events = append(events, pendingEvent{EventDecisionRecorded, vendor.ID, req.Actor,
			map[string]any{"review_id": rev.ID, "action": string(req.Action)}})

		if req.Action == repository.ActionReject {
			return e.rejectInTx(ctx, tx, vendor, req.Actor, req.Rationale, rev.Stage, &events)
		}

		if err := e.vendors.UpdateStatus(ctx, tx, vendor.ID, approvedStatus(rev.Stage)); err != nil {
			return err
		}
		if rev.Stage == repository.StageLegal {
			// The NDA gate opens synchronously with legal approval.
			if err := e.vendors.UpdateStatus(ctx, tx, vendor.ID, repository.StatusNDAPending); err != nil {
				return err
			}
			if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
				VendorID:  vendor.ID,
				EventType: EventNDAGateOpened,
				Actor:     systemActor,
				Payload:   map[string]any{"review_id": rev.ID},
			}); err != nil {
				return err
			}
			events = append(events, pendingEvent{EventNDAGateOpened, vendor.ID, systemActor,
				map[string]any{"review_id": rev.ID}})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, events)

	e.log.Info().
		Str("review_id", reviewID).
		Str("action", string(req.Action)).
		Str("actor", req.Actor).
		Msg("Decision recorded")

	return decision, nil
}

// ── Gates and disposition ────────────────────────────────────────────────────

// ConfirmNDA confirms NDA execution, advancing NDA_PENDING → SECURITY_REVIEW
// and opening the security review.
func (e *WorkflowEngine) ConfirmNDA(ctx context.Context, vendorID string) (*repository.Vendor, error) {
	var vendor *repository.Vendor
	var events []pendingEvent

	err := e.db.InTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		vendor, err = e.vendors.GetForUpdate(ctx, tx, vendorID)
		if err != nil {
			return err
		}
		if vendor.Status != repository.StatusNDAPending {
			return apperrors.Conflictf("NDA confirmation requires status %s, current: %s",
				repository.StatusNDAPending, vendor.Status)
		}

		if err := e.vendors.UpdateStatus(ctx, tx, vendor.ID, repository.StatusSecurityReview); err != nil {
			return err
		}
		vendor.Status = repository.StatusSecurityReview

		securityReview := &repository.Review{
			VendorID:   vendor.ID,
			Stage:      repository.StageSecurity,
			ReviewType: repository.ReviewTypeAIAnalysis,
			Status:     repository.ReviewStatusPending,
		}
		if err := e.reviews.Create(ctx, tx, securityReview); err != nil {
			return err
		}

		if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
			VendorID:  vendor.ID,
			EventType: EventNDAConfirmed,
			Actor:     systemActor,
			Payload:   map[string]any{"review_id": securityReview.ID},
		}); err != nil {
			return err
		}
		events = append(events, pendingEvent{EventNDAConfirmed, vendor.ID, systemActor,
			map[string]any{"review_id": securityReview.ID}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, events)

	e.log.Info().Str("vendor_id", vendorID).Msg("NDA confirmed, security review opened")
	return vendor, nil
}

// StartFinancialReview opens the financial review for a vendor whose security
// stage is approved.
func (e *WorkflowEngine) StartFinancialReview(ctx context.Context, vendorID string) (*repository.Vendor, *repository.Review, error) {
	var vendor *repository.Vendor
	review := &repository.Review{
		Stage:      repository.StageFinancial,
		ReviewType: repository.ReviewTypeHumanForm,
		Status:     repository.ReviewStatusPending,
	}
	var events []pendingEvent

	err := e.db.InTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		vendor, err = e.vendors.GetForUpdate(ctx, tx, vendorID)
		if err != nil {
			return err
		}
		if vendor.Status != repository.StatusSecurityApproved {
			return apperrors.Conflictf("financial review requires status %s, current: %s",
				repository.StatusSecurityApproved, vendor.Status)
		}
		existing, err := e.reviews.GetByVendorAndStage(ctx, tx, vendor.ID, repository.StageFinancial)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.Conflict("financial review already exists")
		}

		review.VendorID = vendor.ID
		if err := e.reviews.Create(ctx, tx, review); err != nil {
			return err
		}
		if err := e.vendors.UpdateStatus(ctx, tx, vendor.ID, repository.StatusFinancialReview); err != nil {
			return err
		}
		vendor.Status = repository.StatusFinancialReview

		if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
			VendorID:  vendor.ID,
			EventType: EventFinancialReviewStarted,
			Actor:     systemActor,
			Payload:   map[string]any{"review_id": review.ID},
		}); err != nil {
			return err
		}
		events = append(events, pendingEvent{EventFinancialReviewStarted, vendor.ID, systemActor,
			map[string]any{"review_id": review.ID}})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.publish(ctx, events)

	e.log.Info().Str("vendor_id", vendorID).Str("review_id", review.ID).Msg("Financial review opened")
	return vendor, review, nil
}

// CompleteOnboarding finalizes a vendor whose four stages are all approved.
// Terminal: no mutating operation is valid afterwards.
func (e *WorkflowEngine) CompleteOnboarding(ctx context.Context, vendorID string) (*repository.Vendor, error) {
	var vendor *repository.Vendor
	var events []pendingEvent

	err := e.db.InTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		vendor, err = e.vendors.GetForUpdate(ctx, tx, vendorID)
		if err != nil {
			return err
		}
		if vendor.Status != repository.StatusFinancialApproved {
			return apperrors.Conflictf("onboarding completion requires status %s, current: %s",
				repository.StatusFinancialApproved, vendor.Status)
		}

		if err := e.vendors.UpdateStatus(ctx, tx, vendor.ID, repository.StatusOnboarded); err != nil {
			return err
		}
		vendor.Status = repository.StatusOnboarded

		if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
			VendorID:  vendor.ID,
			EventType: EventVendorOnboarded,
			Actor:     systemActor,
			Payload:   map[string]any{"vendor_id": vendor.ID},
		}); err != nil {
			return err
		}
		events = append(events, pendingEvent{EventVendorOnboarded, vendor.ID, systemActor, nil})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, events)

	e.log.Info().Str("vendor_id", vendorID).Msg("Vendor onboarded")
	return vendor, nil
}

// RejectVendor rejects a vendor from any non-terminal state.
func (e *WorkflowEngine) RejectVendor(ctx context.Context, vendorID, actor, rationale string) (*repository.Vendor, error) {
	if strings.TrimSpace(rationale) == "" {
		return nil, apperrors.Validation("rationale", "required")
	}
	if actor == "" {
		actor = systemActor
	}

	var vendor *repository.Vendor
	var events []pendingEvent

	err := e.db.InTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		vendor, err = e.vendors.GetForUpdate(ctx, tx, vendorID)
		if err != nil {
			return err
		}
		if vendor.Status.IsTerminal() {
			return apperrors.Conflictf("vendor is already %s", vendor.Status)
		}
		return e.rejectInTx(ctx, tx, vendor, actor, rationale, "", &events)
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, events)

	e.log.Info().
		Str("vendor_id", vendorID).
		Str("actor", actor).
		Msg("Vendor rejected")
	return vendor, nil
}

// rejectInTx performs the shared rejection transition inside the caller's
// transaction. stage is the stage the rejection originated from, if any.
func (e *WorkflowEngine) rejectInTx(ctx context.Context, tx pgx.Tx, vendor *repository.Vendor, actor, rationale string, stage repository.Stage, events *[]pendingEvent) error {
	if err := e.vendors.UpdateStatus(ctx, tx, vendor.ID, repository.StatusRejected); err != nil {
		return err
	}
	vendor.Status = repository.StatusRejected

	payload := map[string]any{"rationale": rationale}
	if stage != "" {
		payload["stage"] = stage
	}
	if err := e.audits.Append(ctx, tx, &repository.AuditEntry{
		VendorID:  vendor.ID,
		EventType: EventVendorRejected,
		Actor:     actor,
		Payload:   payload,
	}); err != nil {
		return err
	}
	*events = append(*events, pendingEvent{EventVendorRejected, vendor.ID, actor,
		map[string]any{"rationale": rationale}})
	return nil
}

// lockReview resolves a review, acquires the vendor lock, and re-reads the
// review under it so every guard sees current persisted state.
func (e *WorkflowEngine) lockReview(ctx context.Context, tx pgx.Tx, reviewID string) (*repository.Review, *repository.Vendor, error) {
	rev, err := e.reviews.GetByID(ctx, tx, reviewID)
	if err != nil {
		return nil, nil, err
	}
	vendor, err := e.vendors.GetForUpdate(ctx, tx, rev.VendorID)
	if err != nil {
		return nil, nil, err
	}
	rev, err = e.reviews.GetByID(ctx, tx, reviewID)
	if err != nil {
		return nil, nil, err
	}
	return rev, vendor, nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

// GetVendor retrieves a vendor by id.
func (e *WorkflowEngine) GetVendor(ctx context.Context, id string) (*repository.Vendor, error) {
	return e.vendors.GetByID(ctx, e.db, id)
}

// ListVendors lists vendors newest-first.
func (e *WorkflowEngine) ListVendors(ctx context.Context, limit, offset int) ([]*repository.Vendor, int64, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return e.vendors.List(ctx, e.db, limit, offset)
}

// GetReview retrieves a review by id.
func (e *WorkflowEngine) GetReview(ctx context.Context, id string) (*repository.Review, error) {
	return e.reviews.GetByID(ctx, e.db, id)
}

// ListReviews lists all reviews for a vendor.
func (e *WorkflowEngine) ListReviews(ctx context.Context, vendorID string) ([]*repository.Review, error) {
	if _, err := e.vendors.GetByID(ctx, e.db, vendorID); err != nil {
		return nil, err
	}
	return e.reviews.ListByVendor(ctx, e.db, vendorID)
}

// ListDecisions returns the decisions recorded against a review: zero or one.
func (e *WorkflowEngine) ListDecisions(ctx context.Context, reviewID string) ([]*repository.Decision, error) {
	if _, err := e.reviews.GetByID(ctx, e.db, reviewID); err != nil {
		return nil, err
	}
	d, err := e.decisions.GetByReviewID(ctx, e.db, reviewID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return []*repository.Decision{}, nil
	}
	return []*repository.Decision{d}, nil
}

// ListAuditLog returns the vendor's audit trail newest-first.
func (e *WorkflowEngine) ListAuditLog(ctx context.Context, vendorID string) ([]*repository.AuditEntry, error) {
	if _, err := e.vendors.GetByID(ctx, e.db, vendorID); err != nil {
		return nil, err
	}
	return e.audits.ListByVendor(ctx, e.db, vendorID)
}

// RegisterDocumentRequest registers collaborator-owned document metadata.
type RegisterDocumentRequest struct {
	Stage    repository.Stage `json:"stage"`
	DocType  string           `json:"doc_type"`
	Filename string           `json:"filename"`
}

// RegisterDocument records a document for a vendor and stage so a review can
// reference it.
func (e *WorkflowEngine) RegisterDocument(ctx context.Context, vendorID string, req *RegisterDocumentRequest) (*repository.Document, error) {
	switch req.Stage {
	case repository.StageUseCase, repository.StageLegal, repository.StageSecurity, repository.StageFinancial:
	default:
		return nil, apperrors.Validation("stage", "unknown stage")
	}
	if req.DocType == "" {
		return nil, apperrors.Validation("doc_type", "required")
	}
	if req.Filename == "" {
		return nil, apperrors.Validation("filename", "required")
	}
	if _, err := e.vendors.GetByID(ctx, e.db, vendorID); err != nil {
		return nil, err
	}

	doc := &repository.Document{
		VendorID: vendorID,
		Stage:    req.Stage,
		DocType:  req.DocType,
		Filename: req.Filename,
	}
	if err := e.documents.Create(ctx, e.db, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments lists the documents registered for a vendor.
func (e *WorkflowEngine) ListDocuments(ctx context.Context, vendorID string) ([]*repository.Document, error) {
	if _, err := e.vendors.GetByID(ctx, e.db, vendorID); err != nil {
		return nil, err
	}
	return e.documents.ListByVendor(ctx, e.db, vendorID)
}
