package repository

import (
	"encoding/json"
	"time"
)

// ── Enumerations ─────────────────────────────────────────────────────────────

// VendorStatus is the vendor's position in the onboarding pipeline.
type VendorStatus string

const (
	StatusIntake            VendorStatus = "INTAKE"
	StatusUseCaseReview     VendorStatus = "USE_CASE_REVIEW"
	StatusUseCaseApproved   VendorStatus = "USE_CASE_APPROVED"
	StatusLegalReview       VendorStatus = "LEGAL_REVIEW"
	StatusLegalApproved     VendorStatus = "LEGAL_APPROVED"
	StatusNDAPending        VendorStatus = "NDA_PENDING"
	StatusSecurityReview    VendorStatus = "SECURITY_REVIEW"
	StatusSecurityApproved  VendorStatus = "SECURITY_APPROVED"
	StatusFinancialReview   VendorStatus = "FINANCIAL_REVIEW"
	StatusFinancialApproved VendorStatus = "FINANCIAL_APPROVED"
	StatusOnboarded         VendorStatus = "ONBOARDED"
	StatusRejected          VendorStatus = "REJECTED"
)

// IsTerminal reports whether no further mutating operation is valid.
func (s VendorStatus) IsTerminal() bool {
	return s == StatusOnboarded || s == StatusRejected
}

// Stage is one of the four due-diligence phases.
type Stage string

const (
	StageUseCase   Stage = "USE_CASE"
	StageLegal     Stage = "LEGAL"
	StageSecurity  Stage = "SECURITY"
	StageFinancial Stage = "FINANCIAL"
)

// ReviewType distinguishes AI-produced from human-submitted reviews. Fixed at
// review creation.
type ReviewType string

const (
	ReviewTypeAIAnalysis ReviewType = "AI_ANALYSIS"
	ReviewTypeHumanForm  ReviewType = "HUMAN_FORM"
)

// ReviewStatus is the review lifecycle state.
type ReviewStatus string

const (
	ReviewStatusPending    ReviewStatus = "PENDING"
	ReviewStatusInProgress ReviewStatus = "IN_PROGRESS"
	ReviewStatusComplete   ReviewStatus = "COMPLETE"
	ReviewStatusError      ReviewStatus = "ERROR"
)

// DecisionAction is the adjudication recorded against a completed review.
type DecisionAction string

const (
	ActionApprove               DecisionAction = "APPROVE"
	ActionReject                DecisionAction = "REJECT"
	ActionApproveWithConditions DecisionAction = "APPROVE_WITH_CONDITIONS"
)

// ── Entities ─────────────────────────────────────────────────────────────────

// Vendor is one third-party vendor moving through onboarding. Status is the
// only broadly mutable field after creation; vendors are never deleted.
type Vendor struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Website     *string      `json:"website,omitempty"`
	Description *string      `json:"description,omitempty"`
	Status      VendorStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Review is the unit of work for one stage of one vendor. At most one review
// exists per (vendor, stage); FormInput and AIOutput are mutually exclusive,
// keyed by ReviewType.
type Review struct {
	ID          string          `json:"id"`
	VendorID    string          `json:"vendor_id"`
	Stage       Stage           `json:"stage"`
	ReviewType  ReviewType      `json:"review_type"`
	Status      ReviewStatus    `json:"status"`
	FormInput   json.RawMessage `json:"form_input,omitempty"`
	AIOutput    json.RawMessage `json:"ai_output,omitempty"`
	ErrorDetail *string         `json:"error_detail,omitempty"`
	TriggeredAt time.Time       `json:"triggered_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// ReviewOutcome is the tagged completion payload for a review. Constructing
// one through FormOutcome or AnalysisOutcome is the only way to complete a
// review, so a review can never end up with both (or neither) populated.
type ReviewOutcome struct {
	reviewType ReviewType
	payload    json.RawMessage
}

// FormOutcome wraps a validated human form submission.
func FormOutcome(form json.RawMessage) ReviewOutcome {
	return ReviewOutcome{reviewType: ReviewTypeHumanForm, payload: form}
}

// AnalysisOutcome wraps a structured analyzer result.
func AnalysisOutcome(result json.RawMessage) ReviewOutcome {
	return ReviewOutcome{reviewType: ReviewTypeAIAnalysis, payload: result}
}

// Type returns the review type the outcome is valid for.
func (o ReviewOutcome) Type() ReviewType { return o.reviewType }

// Payload returns the raw outcome document.
func (o ReviewOutcome) Payload() json.RawMessage { return o.payload }

// Decision is the human adjudication closing out a completed review. At most
// one decision exists per review.
type Decision struct {
	ID         string         `json:"id"`
	ReviewID   string         `json:"review_id"`
	Actor      string         `json:"actor"`
	Action     DecisionAction `json:"action"`
	Rationale  string         `json:"rationale"`
	Conditions []string       `json:"conditions,omitempty"`
	DecidedAt  time.Time      `json:"decided_at"`
}

// AuditEntry is one immutable record of a workflow event.
type AuditEntry struct {
	ID        string         `json:"id"`
	VendorID  string         `json:"vendor_id"`
	EventType string         `json:"event_type"`
	Actor     string         `json:"actor"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Document is collaborator-owned content metadata; the engine only passes its
// identity to the analyzer gateway.
type Document struct {
	ID         string    `json:"id"`
	VendorID   string    `json:"vendor_id"`
	Stage      Stage     `json:"stage"`
	DocType    string    `json:"doc_type"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
}
