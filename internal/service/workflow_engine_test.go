package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-vendor-onboarding/internal/analyzer"
	"github.com/pesio-ai/be-vendor-onboarding/internal/apperrors"
	"github.com/pesio-ai/be-vendor-onboarding/internal/database"
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

// ── In-memory fakes ──────────────────────────────────────────────────────────

// memStore backs all fake repositories with shared maps so transactional
// reads observe prior writes within the same test.
type memStore struct {
	vendors   map[string]*repository.Vendor
	reviews   map[string]*repository.Review
	decisions map[string]*repository.Decision // keyed by review id
	audits    []*repository.AuditEntry
	documents map[string]*repository.Document
	seq       int
}

func newMemStore() *memStore {
	return &memStore{
		vendors:   make(map[string]*repository.Vendor),
		reviews:   make(map[string]*repository.Review),
		decisions: make(map[string]*repository.Decision),
		documents: make(map[string]*repository.Document),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

func (s *memStore) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (s *memStore) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (s *memStore) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (s *memStore) InTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type memVendorRepo struct{ s *memStore }

func (r *memVendorRepo) Create(ctx context.Context, q database.Querier, v *repository.Vendor) error {
	v.ID = r.s.nextID("vnd")
	v.CreatedAt = time.Now().UTC()
	cp := *v
	r.s.vendors[v.ID] = &cp
	return nil
}

func (r *memVendorRepo) GetByID(ctx context.Context, q database.Querier, id string) (*repository.Vendor, error) {
	v, ok := r.s.vendors[id]
	if !ok {
		return nil, apperrors.NotFound("vendor", id)
	}
	cp := *v
	return &cp, nil
}

func (r *memVendorRepo) GetForUpdate(ctx context.Context, q database.Querier, id string) (*repository.Vendor, error) {
	return r.GetByID(ctx, q, id)
}

func (r *memVendorRepo) UpdateStatus(ctx context.Context, q database.Querier, id string, status repository.VendorStatus) error {
	v, ok := r.s.vendors[id]
	if !ok {
		return apperrors.NotFound("vendor", id)
	}
	v.Status = status
	return nil
}

func (r *memVendorRepo) List(ctx context.Context, q database.Querier, limit, offset int) ([]*repository.Vendor, int64, error) {
	out := make([]*repository.Vendor, 0, len(r.s.vendors))
	for _, v := range r.s.vendors {
		cp := *v
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

type memReviewRepo struct{ s *memStore }

func (r *memReviewRepo) Create(ctx context.Context, q database.Querier, rev *repository.Review) error {
	for _, existing := range r.s.reviews {
		if existing.VendorID == rev.VendorID && existing.Stage == rev.Stage {
			return apperrors.Conflictf("review for stage %s already exists", rev.Stage)
		}
	}
	rev.ID = r.s.nextID("rev")
	rev.TriggeredAt = time.Now().UTC()
	cp := *rev
	r.s.reviews[rev.ID] = &cp
	return nil
}

func (r *memReviewRepo) GetByID(ctx context.Context, q database.Querier, id string) (*repository.Review, error) {
	rev, ok := r.s.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	cp := *rev
	return &cp, nil
}

func (r *memReviewRepo) GetByVendorAndStage(ctx context.Context, q database.Querier, vendorID string, stage repository.Stage) (*repository.Review, error) {
	for _, rev := range r.s.reviews {
		if rev.VendorID == vendorID && rev.Stage == stage {
			cp := *rev
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memReviewRepo) ListByVendor(ctx context.Context, q database.Querier, vendorID string) ([]*repository.Review, error) {
	var out []*repository.Review
	for _, rev := range r.s.reviews {
		if rev.VendorID == vendorID {
			cp := *rev
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memReviewRepo) MarkInProgress(ctx context.Context, q database.Querier, id string) error {
	rev, ok := r.s.reviews[id]
	if !ok {
		return apperrors.NotFound("review", id)
	}
	if rev.Status != repository.ReviewStatusPending && rev.Status != repository.ReviewStatusError {
		return apperrors.Conflict("review is not in a triggerable state")
	}
	rev.Status = repository.ReviewStatusInProgress
	rev.ErrorDetail = nil
	return nil
}

func (r *memReviewRepo) Complete(ctx context.Context, q database.Querier, id string, outcome repository.ReviewOutcome, completedAt time.Time) error {
	rev, ok := r.s.reviews[id]
	if !ok {
		return apperrors.NotFound("review", id)
	}
	switch outcome.Type() {
	case repository.ReviewTypeHumanForm:
		if rev.Status != repository.ReviewStatusPending && rev.Status != repository.ReviewStatusInProgress {
			return apperrors.Conflict("review is not in a completable state")
		}
		rev.FormInput = outcome.Payload()
	case repository.ReviewTypeAIAnalysis:
		if rev.Status != repository.ReviewStatusInProgress {
			return apperrors.Conflict("review is not in a completable state")
		}
		rev.AIOutput = outcome.Payload()
	}
	rev.Status = repository.ReviewStatusComplete
	rev.CompletedAt = &completedAt
	rev.ErrorDetail = nil
	return nil
}

func (r *memReviewRepo) MarkError(ctx context.Context, q database.Querier, id, detail string) error {
	rev, ok := r.s.reviews[id]
	if !ok {
		return apperrors.NotFound("review", id)
	}
	if rev.Status != repository.ReviewStatusInProgress {
		return apperrors.Conflict("review is not in progress")
	}
	rev.Status = repository.ReviewStatusError
	rev.ErrorDetail = &detail
	return nil
}

type memDecisionRepo struct{ s *memStore }

func (r *memDecisionRepo) Create(ctx context.Context, q database.Querier, d *repository.Decision) error {
	if _, exists := r.s.decisions[d.ReviewID]; exists {
		return apperrors.Conflictf("review %s already has a decision", d.ReviewID)
	}
	d.ID = r.s.nextID("dec")
	d.DecidedAt = time.Now().UTC()
	cp := *d
	r.s.decisions[d.ReviewID] = &cp
	return nil
}

func (r *memDecisionRepo) GetByReviewID(ctx context.Context, q database.Querier, reviewID string) (*repository.Decision, error) {
	d, ok := r.s.decisions[reviewID]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

type memAuditRepo struct{ s *memStore }

func (r *memAuditRepo) Append(ctx context.Context, q database.Querier, entry *repository.AuditEntry) error {
	entry.ID = r.s.nextID("aud")
	entry.Timestamp = time.Now().UTC()
	cp := *entry
	r.s.audits = append(r.s.audits, &cp)
	return nil
}

func (r *memAuditRepo) ListByVendor(ctx context.Context, q database.Querier, vendorID string) ([]*repository.AuditEntry, error) {
	var out []*repository.AuditEntry
	for i := len(r.s.audits) - 1; i >= 0; i-- {
		if r.s.audits[i].VendorID == vendorID {
			cp := *r.s.audits[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memDocumentRepo struct{ s *memStore }

func (r *memDocumentRepo) Create(ctx context.Context, q database.Querier, d *repository.Document) error {
	d.ID = r.s.nextID("doc")
	d.UploadedAt = time.Now().UTC()
	cp := *d
	r.s.documents[d.ID] = &cp
	return nil
}

func (r *memDocumentRepo) GetByID(ctx context.Context, q database.Querier, id string) (*repository.Document, error) {
	d, ok := r.s.documents[id]
	if !ok {
		return nil, apperrors.NotFound("document", id)
	}
	cp := *d
	return &cp, nil
}

func (r *memDocumentRepo) ListByVendor(ctx context.Context, q database.Querier, vendorID string) ([]*repository.Document, error) {
	var out []*repository.Document
	for _, d := range r.s.documents {
		if d.VendorID == vendorID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeGateway returns a canned result or error and records calls.
type fakeGateway struct {
	result *analyzer.Result
	err    error
	calls  int
}

func (g *fakeGateway) Analyze(ctx context.Context, stage repository.Stage, doc *repository.Document) (*analyzer.Result, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if g.result != nil {
		return g.result, nil
	}
	switch stage {
	case repository.StageLegal:
		return &analyzer.Result{
			Stage: repository.StageLegal,
			Legal: &analyzer.LegalResult{
				Findings: []analyzer.LegalFinding{
					{Requirement: "DPA in place", Status: analyzer.FindingMet, Evidence: "section 4"},
				},
				OverallCompliance: "COMPLIANT",
				Summary:           "no gaps found",
			},
		}, nil
	default:
		return &analyzer.Result{
			Stage: repository.StageSecurity,
			Security: &analyzer.SecurityResult{
				RiskScore: 2.5,
				Findings: []analyzer.SecurityFinding{
					{Domain: "access control", RiskLevel: analyzer.RiskLow, Detail: "SSO enforced"},
				},
				Recommendation: "acceptable risk",
			},
		}, nil
	}
}

// fakeEvents records published event types in order.
type fakeEvents struct {
	published []string
}

func (f *fakeEvents) PublishVendorEvent(ctx context.Context, eventType, vendorID, actor string, payload map[string]any) {
	f.published = append(f.published, eventType)
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	store   *memStore
	gateway *fakeGateway
	events  *fakeEvents
	engine  *WorkflowEngine
}

func newFixture() *fixture {
	store := newMemStore()
	gateway := &fakeGateway{}
	events := &fakeEvents{}
	engine := NewWorkflowEngine(
		store,
		&memVendorRepo{store},
		&memReviewRepo{store},
		&memDecisionRepo{store},
		&memAuditRepo{store},
		&memDocumentRepo{store},
		gateway,
		events,
		zerolog.Nop(),
	)
	return &fixture{store: store, gateway: gateway, events: events, engine: engine}
}

func (f *fixture) seedVendor(status repository.VendorStatus) *repository.Vendor {
	v := &repository.Vendor{
		ID:        f.store.nextID("vnd"),
		Name:      "Acme Corp",
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	f.store.vendors[v.ID] = v
	return v
}

func (f *fixture) seedReview(vendorID string, stage repository.Stage, rt repository.ReviewType, status repository.ReviewStatus) *repository.Review {
	rev := &repository.Review{
		ID:          f.store.nextID("rev"),
		VendorID:    vendorID,
		Stage:       stage,
		ReviewType:  rt,
		Status:      status,
		TriggeredAt: time.Now().UTC(),
	}
	f.store.reviews[rev.ID] = rev
	return rev
}

func (f *fixture) seedDocument(vendorID string, stage repository.Stage) *repository.Document {
	d := &repository.Document{
		ID:         f.store.nextID("doc"),
		VendorID:   vendorID,
		Stage:      stage,
		DocType:    "dpa",
		Filename:   "dpa.pdf",
		UploadedAt: time.Now().UTC(),
	}
	f.store.documents[d.ID] = d
	return d
}

func (f *fixture) reviewByStage(vendorID string, stage repository.Stage) *repository.Review {
	for _, r := range f.store.reviews {
		if r.VendorID == vendorID && r.Stage == stage {
			return r
		}
	}
	return nil
}

func (f *fixture) auditTypes(vendorID string) []string {
	var out []string
	for _, e := range f.store.audits {
		if e.VendorID == vendorID {
			out = append(out, e.EventType)
		}
	}
	return out
}

func useCaseForm(recommendation string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"use_case_description": "CRM data enrichment",
		"business_justification": "replaces a manual weekly export",
		"estimated_users": 40,
		"reviewer_name": "dana",
		"recommendation": %q
	}`, recommendation))
}

func financialForm(recommendation string, conditions ...string) json.RawMessage {
	form := map[string]any{
		"financial_documents_reviewed":   []string{"balance_sheet_2025.pdf"},
		"concentration_risk_flag":        false,
		"financial_stability_assessment": StabilityStable,
		"reviewer_name":                  "miri",
		"recommendation":                 recommendation,
	}
	if len(conditions) > 0 {
		form["conditions"] = conditions
	}
	raw, _ := json.Marshal(form)
	return raw
}

// ── Intake ───────────────────────────────────────────────────────────────────

func TestCreateVendor(t *testing.T) {
	f := newFixture()

	vendor, review, err := f.engine.CreateVendor(context.Background(), &CreateVendorRequest{Name: "Acme Corp"})
	require.NoError(t, err)

	assert.Equal(t, repository.StatusUseCaseReview, vendor.Status)
	assert.Equal(t, repository.StageUseCase, review.Stage)
	assert.Equal(t, repository.ReviewTypeHumanForm, review.ReviewType)
	assert.Equal(t, repository.ReviewStatusPending, review.Status)
	assert.Equal(t, vendor.ID, review.VendorID)

	assert.Equal(t, []string{EventVendorCreated, EventIntakeStarted}, f.auditTypes(vendor.ID))
	assert.Equal(t, []string{EventVendorCreated, EventIntakeStarted}, f.events.published)
}

func TestCreateVendorBlankName(t *testing.T) {
	f := newFixture()

	_, _, err := f.engine.CreateVendor(context.Background(), &CreateVendorRequest{Name: "   "})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))
	assert.Empty(t, f.store.vendors)
}

// ── Use case form ────────────────────────────────────────────────────────────

func TestSubmitUseCaseFormProceed(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusUseCaseReview)
	rev := f.seedReview(vendor.ID, repository.StageUseCase, repository.ReviewTypeHumanForm, repository.ReviewStatusPending)

	got, err := f.engine.SubmitForm(context.Background(), rev.ID, useCaseForm(RecommendProceed))
	require.NoError(t, err)

	assert.Equal(t, repository.ReviewStatusComplete, got.Status)
	assert.NotEmpty(t, got.FormInput)
	assert.Empty(t, got.AIOutput)
	assert.NotNil(t, got.CompletedAt)

	assert.Equal(t, repository.StatusUseCaseApproved, f.store.vendors[vendor.ID].Status)

	legal, err := f.engine.ListReviews(context.Background(), vendor.ID)
	require.NoError(t, err)
	require.Len(t, legal, 2)

	var legalReview *repository.Review
	for _, r := range legal {
		if r.Stage == repository.StageLegal {
			legalReview = r
		}
	}
	require.NotNil(t, legalReview)
	assert.Equal(t, repository.ReviewTypeAIAnalysis, legalReview.ReviewType)
	assert.Equal(t, repository.ReviewStatusPending, legalReview.Status)

	assert.Equal(t, []string{EventFormSubmitted, EventUseCaseApproved, EventLegalReviewCreated}, f.auditTypes(vendor.ID))
}

func TestSubmitUseCaseFormDoNotProceed(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusUseCaseReview)
	rev := f.seedReview(vendor.ID, repository.StageUseCase, repository.ReviewTypeHumanForm, repository.ReviewStatusPending)

	got, err := f.engine.SubmitForm(context.Background(), rev.ID, useCaseForm(RecommendDoNotProceed))
	require.NoError(t, err)

	assert.Equal(t, repository.ReviewStatusComplete, got.Status)
	assert.Equal(t, repository.StatusRejected, f.store.vendors[vendor.ID].Status)
	assert.Contains(t, f.auditTypes(vendor.ID), EventVendorRejected)

	// No legal review is opened for a rejected vendor.
	reviews, _ := f.engine.ListReviews(context.Background(), vendor.ID)
	assert.Len(t, reviews, 1)
}

func TestSubmitFormSchemaViolation(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusUseCaseReview)
	rev := f.seedReview(vendor.ID, repository.StageUseCase, repository.ReviewTypeHumanForm, repository.ReviewStatusPending)

	_, err := f.engine.SubmitForm(context.Background(), rev.ID, json.RawMessage(`{"reviewer_name":"dana"}`))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))

	// Nothing was persisted.
	assert.Equal(t, repository.ReviewStatusPending, f.store.reviews[rev.ID].Status)
	assert.Equal(t, repository.StatusUseCaseReview, f.store.vendors[vendor.ID].Status)
	assert.Empty(t, f.auditTypes(vendor.ID))
}

func TestSubmitFormTwice(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusUseCaseReview)
	rev := f.seedReview(vendor.ID, repository.StageUseCase, repository.ReviewTypeHumanForm, repository.ReviewStatusPending)

	_, err := f.engine.SubmitForm(context.Background(), rev.ID, useCaseForm(RecommendProceed))
	require.NoError(t, err)

	_, err = f.engine.SubmitForm(context.Background(), rev.ID, useCaseForm(RecommendDoNotProceed))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))

	// First submission is preserved.
	var stored UseCaseForm
	require.NoError(t, json.Unmarshal(f.store.reviews[rev.ID].FormInput, &stored))
	assert.Equal(t, RecommendProceed, stored.Recommendation)
}

func TestSubmitFormOnAnalysisReview(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusLegalReview)
	rev := f.seedReview(vendor.ID, repository.StageLegal, repository.ReviewTypeAIAnalysis, repository.ReviewStatusPending)

	_, err := f.engine.SubmitForm(context.Background(), rev.ID, useCaseForm(RecommendProceed))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
}

func TestSubmitFormUnknownReview(t *testing.T) {
	f := newFixture()

	_, err := f.engine.SubmitForm(context.Background(), "rev-missing", useCaseForm(RecommendProceed))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.Code(err))
}

// ── Analysis trigger ─────────────────────────────────────────────────────────

func TestTriggerLegalReview(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusUseCaseApproved)
	rev := f.seedReview(vendor.ID, repository.StageLegal, repository.ReviewTypeAIAnalysis, repository.ReviewStatusPending)
	doc := f.seedDocument(vendor.ID, repository.StageLegal)

	got, err := f.engine.TriggerReview(context.Background(), rev.ID, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, repository.ReviewStatusComplete, got.Status)
	assert.NotEmpty(t, got.AIOutput)
	assert.Empty(t, got.FormInput)
	assert.Equal(t, 1, f.gateway.calls)

	// Triggering advanced the vendor into the legal stage.
	assert.Equal(t, repository.StatusLegalReview, f.store.vendors[vendor.ID].Status)
	assert.Equal(t, []string{EventAnalysisTriggered, EventAnalysisCompleted}, f.auditTypes(vendor.ID))
}

func TestTriggerReviewAnalyzerFailure(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusUseCaseApproved)
	rev := f.seedReview(vendor.ID, repository.StageLegal, repository.ReviewTypeAIAnalysis, repository.ReviewStatusPending)
	doc := f.seedDocument(vendor.ID, repository.StageLegal)

	f.gateway.err = apperrors.New(apperrors.CodeAnalysis, "analyzer request failed")

	got, err := f.engine.TriggerReview(context.Background(), rev.ID, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, repository.ReviewStatusError, got.Status)
	require.NotNil(t, got.ErrorDetail)
	assert.Equal(t, "analyzer request failed", *got.ErrorDetail)
	assert.Contains(t, f.auditTypes(vendor.ID), EventAnalysisFailed)

	// A failed analysis is retriggerable; success clears the error.
	f.gateway.err = nil
	got, err = f.engine.TriggerReview(context.Background(), rev.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.ReviewStatusComplete, got.Status)
	assert.Nil(t, got.ErrorDetail)
}

func TestTriggerReviewWhileInProgress(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusLegalReview)
	rev := f.seedReview(vendor.ID, repository.StageLegal, repository.ReviewTypeAIAnalysis, repository.ReviewStatusInProgress)
	doc := f.seedDocument(vendor.ID, repository.StageLegal)

	_, err := f.engine.TriggerReview(context.Background(), rev.ID, doc.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
	assert.Zero(t, f.gateway.calls)
}

func TestTriggerSecurityReviewBeforeNDA(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusNDAPending)
	rev := f.seedReview(vendor.ID, repository.StageSecurity, repository.ReviewTypeAIAnalysis, repository.ReviewStatusPending)
	doc := f.seedDocument(vendor.ID, repository.StageSecurity)

	_, err := f.engine.TriggerReview(context.Background(), rev.ID, doc.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
	assert.Zero(t, f.gateway.calls)
}

func TestTriggerReviewForeignDocument(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusUseCaseApproved)
	other := f.seedVendor(repository.StatusUseCaseApproved)
	rev := f.seedReview(vendor.ID, repository.StageLegal, repository.ReviewTypeAIAnalysis, repository.ReviewStatusPending)
	doc := f.seedDocument(other.ID, repository.StageLegal)

	_, err := f.engine.TriggerReview(context.Background(), rev.ID, doc.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))
}

func TestTriggerHumanFormReview(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusUseCaseReview)
	rev := f.seedReview(vendor.ID, repository.StageUseCase, repository.ReviewTypeHumanForm, repository.ReviewStatusPending)
	doc := f.seedDocument(vendor.ID, repository.StageUseCase)

	_, err := f.engine.TriggerReview(context.Background(), rev.ID, doc.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
}

// ── Decisions ────────────────────────────────────────────────────────────────

func TestRecordDecisionLegalApprove(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusLegalReview)
	rev := f.seedReview(vendor.ID, repository.StageLegal, repository.ReviewTypeAIAnalysis, repository.ReviewStatusComplete)

	decision, err := f.engine.RecordDecision(context.Background(), rev.ID, &RecordDecisionRequest{
		Actor:     "lena",
		Action:    repository.ActionApprove,
		Rationale: "all requirements met",
	})
	require.NoError(t, err)

	assert.Equal(t, repository.ActionApprove, decision.Action)
	assert.Equal(t, rev.ID, decision.ReviewID)

	// Legal approval opens the NDA gate in the same unit of work.
	assert.Equal(t, repository.StatusNDAPending, f.store.vendors[vendor.ID].Status)
	assert.Equal(t, []string{EventDecisionRecorded, EventNDAGateOpened}, f.auditTypes(vendor.ID))
}

func TestRecordDecisionSecurityApprove(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusSecurityReview)
	rev := f.seedReview(vendor.ID, repository.StageSecurity, repository.ReviewTypeAIAnalysis, repository.ReviewStatusComplete)

	_, err := f.engine.RecordDecision(context.Background(), rev.ID, &RecordDecisionRequest{
		Actor:     "omar",
		Action:    repository.ActionApproveWithConditions,
		Rationale: "acceptable with remediation",
		Conditions: []string{
			"complete SOC 2 within 6 months",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, repository.StatusSecurityApproved, f.store.vendors[vendor.ID].Status)
	assert.Equal(t, []string{EventDecisionRecorded}, f.auditTypes(vendor.ID))
}

func TestRecordDecisionReject(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusLegalReview)
	rev := f.seedReview(vendor.ID, repository.StageLegal, repository.ReviewTypeAIAnalysis, repository.ReviewStatusComplete)

	_, err := f.engine.RecordDecision(context.Background(), rev.ID, &RecordDecisionRequest{
		Actor:     "lena",
		Action:    repository.ActionReject,
		Rationale: "missing data processing agreement",
	})
	require.NoError(t, err)

	assert.Equal(t, repository.StatusRejected, f.store.vendors[vendor.ID].Status)
	assert.Equal(t, []string{EventDecisionRecorded, EventVendorRejected}, f.auditTypes(vendor.ID))
}

func TestRecordDecisionValidation(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusLegalReview)
	rev := f.seedReview(vendor.ID, repository.StageLegal, repository.ReviewTypeAIAnalysis, repository.ReviewStatusComplete)

	cases := []struct {
		name string
		req  *RecordDecisionRequest
	}{
		{"missing rationale", &RecordDecisionRequest{Actor: "lena", Action: repository.ActionApprove}},
		{"missing actor", &RecordDecisionRequest{Action: repository.ActionApprove, Rationale: "ok"}},
		{"unknown action", &RecordDecisionRequest{Actor: "lena", Action: "MAYBE", Rationale: "ok"}},
		{"conditions without conditional approve", &RecordDecisionRequest{
			Actor: "lena", Action: repository.ActionApprove, Rationale: "ok", Conditions: []string{"x"},
		}},
		{"conditional approve without conditions", &RecordDecisionRequest{
			Actor: "lena", Action: repository.ActionApproveWithConditions, Rationale: "ok",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.RecordDecision(context.Background(), rev.ID, tc.req)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))
		})
	}
	assert.Empty(t, f.store.decisions)
}

func TestRecordDecisionTwice(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusLegalReview)
	rev := f.seedReview(vendor.ID, repository.StageLegal, repository.ReviewTypeAIAnalysis, repository.ReviewStatusComplete)

	_, err := f.engine.RecordDecision(context.Background(), rev.ID, &RecordDecisionRequest{
		Actor: "lena", Action: repository.ActionApprove, Rationale: "fine",
	})
	require.NoError(t, err)

	_, err = f.engine.RecordDecision(context.Background(), rev.ID, &RecordDecisionRequest{
		Actor: "omar", Action: repository.ActionReject, Rationale: "second thoughts",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))

	// First decision stands.
	assert.Equal(t, "lena", f.store.decisions[rev.ID].Actor)
	assert.Equal(t, repository.StatusNDAPending, f.store.vendors[vendor.ID].Status)
}

func TestRecordDecisionOnIncompleteReview(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusLegalReview)
	rev := f.seedReview(vendor.ID, repository.StageLegal, repository.ReviewTypeAIAnalysis, repository.ReviewStatusInProgress)

	_, err := f.engine.RecordDecision(context.Background(), rev.ID, &RecordDecisionRequest{
		Actor: "lena", Action: repository.ActionApprove, Rationale: "fine",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
	assert.Equal(t, repository.StatusLegalReview, f.store.vendors[vendor.ID].Status)
}

func TestRecordDecisionStageMismatch(t *testing.T) {
	f := newFixture()
	// Vendor already advanced past the legal stage.
	vendor := f.seedVendor(repository.StatusSecurityReview)
	rev := f.seedReview(vendor.ID, repository.StageLegal, repository.ReviewTypeAIAnalysis, repository.ReviewStatusComplete)

	_, err := f.engine.RecordDecision(context.Background(), rev.ID, &RecordDecisionRequest{
		Actor: "lena", Action: repository.ActionApprove, Rationale: "fine",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
}

// ── Gates and disposition ────────────────────────────────────────────────────

func TestConfirmNDA(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusNDAPending)

	got, err := f.engine.ConfirmNDA(context.Background(), vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusSecurityReview, got.Status)

	security, err := f.engine.ListReviews(context.Background(), vendor.ID)
	require.NoError(t, err)
	require.Len(t, security, 1)
	assert.Equal(t, repository.StageSecurity, security[0].Stage)
	assert.Equal(t, repository.ReviewTypeAIAnalysis, security[0].ReviewType)

	assert.Equal(t, []string{EventNDAConfirmed}, f.auditTypes(vendor.ID))
}

func TestConfirmNDAWrongState(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusLegalReview)

	_, err := f.engine.ConfirmNDA(context.Background(), vendor.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
}

func TestStartFinancialReview(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusSecurityApproved)

	got, review, err := f.engine.StartFinancialReview(context.Background(), vendor.ID)
	require.NoError(t, err)

	assert.Equal(t, repository.StatusFinancialReview, got.Status)
	assert.Equal(t, repository.StageFinancial, review.Stage)
	assert.Equal(t, repository.ReviewTypeHumanForm, review.ReviewType)

	// Second start conflicts: one review per stage.
	_, _, err = f.engine.StartFinancialReview(context.Background(), vendor.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
}

func TestStartFinancialReviewWrongState(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusSecurityReview)

	_, _, err := f.engine.StartFinancialReview(context.Background(), vendor.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
}

func TestSubmitFinancialFormWaitsForDecision(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusFinancialReview)
	rev := f.seedReview(vendor.ID, repository.StageFinancial, repository.ReviewTypeHumanForm, repository.ReviewStatusPending)

	got, err := f.engine.SubmitForm(context.Background(), rev.ID, financialForm(RecommendAcceptable))
	require.NoError(t, err)

	assert.Equal(t, repository.ReviewStatusComplete, got.Status)
	// The financial stage never auto-advances; the vendor waits for an
	// explicit decision.
	assert.Equal(t, repository.StatusFinancialReview, f.store.vendors[vendor.ID].Status)
	assert.Equal(t, []string{EventFormSubmitted}, f.auditTypes(vendor.ID))
}

func TestCompleteOnboarding(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusFinancialApproved)

	got, err := f.engine.CompleteOnboarding(context.Background(), vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusOnboarded, got.Status)
	assert.Equal(t, []string{EventVendorOnboarded}, f.auditTypes(vendor.ID))

	// Terminal state: nothing mutates an onboarded vendor.
	_, err = f.engine.RejectVendor(context.Background(), vendor.ID, "lena", "late concern")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
}

func TestCompleteOnboardingWrongState(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusFinancialReview)

	_, err := f.engine.CompleteOnboarding(context.Background(), vendor.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
}

func TestRejectVendor(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusSecurityReview)

	got, err := f.engine.RejectVendor(context.Background(), vendor.ID, "omar", "unacceptable security posture")
	require.NoError(t, err)
	assert.Equal(t, repository.StatusRejected, got.Status)
	assert.Equal(t, []string{EventVendorRejected}, f.auditTypes(vendor.ID))

	// Rejection is terminal too.
	_, err = f.engine.RejectVendor(context.Background(), vendor.ID, "omar", "again")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
}

func TestRejectVendorRequiresRationale(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusSecurityReview)

	_, err := f.engine.RejectVendor(context.Background(), vendor.ID, "omar", "  ")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))
	assert.Equal(t, repository.StatusSecurityReview, f.store.vendors[vendor.ID].Status)
}

// ── Documents ────────────────────────────────────────────────────────────────

func TestRegisterDocument(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusUseCaseReview)

	doc, err := f.engine.RegisterDocument(context.Background(), vendor.ID, &RegisterDocumentRequest{
		Stage:    repository.StageLegal,
		DocType:  "dpa",
		Filename: "dpa.pdf",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)

	docs, err := f.engine.ListDocuments(context.Background(), vendor.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestRegisterDocumentValidation(t *testing.T) {
	f := newFixture()
	vendor := f.seedVendor(repository.StatusUseCaseReview)

	_, err := f.engine.RegisterDocument(context.Background(), vendor.ID, &RegisterDocumentRequest{
		Stage: "PROCUREMENT", DocType: "dpa", Filename: "dpa.pdf",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))

	_, err = f.engine.RegisterDocument(context.Background(), "vnd-missing", &RegisterDocumentRequest{
		Stage: repository.StageLegal, DocType: "dpa", Filename: "dpa.pdf",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.Code(err))
}

// ── Full pipeline ────────────────────────────────────────────────────────────

func TestFullOnboardingPipeline(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	vendor, ucReview, err := f.engine.CreateVendor(ctx, &CreateVendorRequest{Name: "Acme Corp"})
	require.NoError(t, err)

	// Stage 1: use case.
	_, err = f.engine.SubmitForm(ctx, ucReview.ID, useCaseForm(RecommendProceed))
	require.NoError(t, err)
	assert.Equal(t, repository.StatusUseCaseApproved, f.store.vendors[vendor.ID].Status)

	// Stage 2: legal analysis plus decision.
	legalReview := f.reviewByStage(vendor.ID, repository.StageLegal)
	require.NotNil(t, legalReview)

	legalDoc, err := f.engine.RegisterDocument(ctx, vendor.ID, &RegisterDocumentRequest{
		Stage: repository.StageLegal, DocType: "dpa", Filename: "dpa.pdf",
	})
	require.NoError(t, err)

	_, err = f.engine.TriggerReview(ctx, legalReview.ID, legalDoc.ID)
	require.NoError(t, err)

	_, err = f.engine.RecordDecision(ctx, legalReview.ID, &RecordDecisionRequest{
		Actor: "lena", Action: repository.ActionApprove, Rationale: "compliant",
	})
	require.NoError(t, err)
	assert.Equal(t, repository.StatusNDAPending, f.store.vendors[vendor.ID].Status)

	// NDA gate, then stage 3: security analysis plus decision.
	_, err = f.engine.ConfirmNDA(ctx, vendor.ID)
	require.NoError(t, err)

	securityReview := f.reviewByStage(vendor.ID, repository.StageSecurity)
	require.NotNil(t, securityReview)

	securityDoc, err := f.engine.RegisterDocument(ctx, vendor.ID, &RegisterDocumentRequest{
		Stage: repository.StageSecurity, DocType: "soc2", Filename: "soc2.pdf",
	})
	require.NoError(t, err)

	_, err = f.engine.TriggerReview(ctx, securityReview.ID, securityDoc.ID)
	require.NoError(t, err)

	_, err = f.engine.RecordDecision(ctx, securityReview.ID, &RecordDecisionRequest{
		Actor: "omar", Action: repository.ActionApprove, Rationale: "low risk",
	})
	require.NoError(t, err)
	assert.Equal(t, repository.StatusSecurityApproved, f.store.vendors[vendor.ID].Status)

	// Stage 4: financial form plus decision, then final disposition.
	_, finReview, err := f.engine.StartFinancialReview(ctx, vendor.ID)
	require.NoError(t, err)

	_, err = f.engine.SubmitForm(ctx, finReview.ID, financialForm(RecommendAcceptable))
	require.NoError(t, err)

	_, err = f.engine.RecordDecision(ctx, finReview.ID, &RecordDecisionRequest{
		Actor: "miri", Action: repository.ActionApprove, Rationale: "stable financials",
	})
	require.NoError(t, err)
	assert.Equal(t, repository.StatusFinancialApproved, f.store.vendors[vendor.ID].Status)

	_, err = f.engine.CompleteOnboarding(ctx, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusOnboarded, f.store.vendors[vendor.ID].Status)

	assert.Equal(t, []string{
		EventVendorCreated,
		EventIntakeStarted,
		EventFormSubmitted,
		EventUseCaseApproved,
		EventLegalReviewCreated,
		EventAnalysisTriggered,
		EventAnalysisCompleted,
		EventDecisionRecorded,
		EventNDAGateOpened,
		EventNDAConfirmed,
		EventAnalysisTriggered,
		EventAnalysisCompleted,
		EventDecisionRecorded,
		EventFinancialReviewStarted,
		EventFormSubmitted,
		EventDecisionRecorded,
		EventVendorOnboarded,
	}, f.auditTypes(vendor.ID))
}
