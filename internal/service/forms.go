package service

import (
	"encoding/json"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperrors"
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

// Use case recommendations.
const (
	RecommendProceed      = "PROCEED"
	RecommendDoNotProceed = "DO_NOT_PROCEED"
)

// Financial recommendations and stability assessments.
const (
	RecommendAcceptable           = "ACCEPTABLE"
	RecommendAcceptableConditions = "ACCEPTABLE_WITH_CONDITIONS"
	RecommendUnacceptable         = "UNACCEPTABLE"

	StabilityStable   = "STABLE"
	StabilityConcern  = "CONCERN"
	StabilityHighRisk = "HIGH_RISK"
)

// FormResult is a validated form plus the fields the engine acts on.
type FormResult struct {
	Normalized     json.RawMessage
	ReviewerName   string
	Recommendation string
	Conditions     []string
	Notes          string
}

// FormValidator validates one stage's form payload. One implementation per
// human-form stage keeps form-shape knowledge out of the transition logic.
type FormValidator interface {
	Validate(raw json.RawMessage) (*FormResult, error)
}

// ValidatorForStage returns the validator for a human-form stage, or false
// when the stage takes no form.
func ValidatorForStage(stage repository.Stage) (FormValidator, bool) {
	switch stage {
	case repository.StageUseCase:
		return useCaseFormValidator{}, true
	case repository.StageFinancial:
		return financialFormValidator{}, true
	default:
		return nil, false
	}
}

// UseCaseForm is the Stage 1 human review form.
type UseCaseForm struct {
	UseCaseDescription     string   `json:"use_case_description"`
	BusinessJustification  string   `json:"business_justification"`
	DataTypesInvolved      []string `json:"data_types_involved"`
	EstimatedUsers         *int     `json:"estimated_users"`
	AlternativesConsidered string   `json:"alternatives_considered"`
	ReviewerName           string   `json:"reviewer_name"`
	Recommendation         string   `json:"recommendation"`
	Notes                  string   `json:"notes,omitempty"`
}

type useCaseFormValidator struct{}

func (useCaseFormValidator) Validate(raw json.RawMessage) (*FormResult, error) {
	var form UseCaseForm
	if err := json.Unmarshal(raw, &form); err != nil {
		return nil, apperrors.Validation("form", "malformed use case form")
	}

	if form.UseCaseDescription == "" {
		return nil, apperrors.Validation("use_case_description", "required")
	}
	if form.BusinessJustification == "" {
		return nil, apperrors.Validation("business_justification", "required")
	}
	if form.EstimatedUsers == nil {
		return nil, apperrors.Validation("estimated_users", "required")
	}
	if *form.EstimatedUsers < 0 {
		return nil, apperrors.Validation("estimated_users", "must be >= 0")
	}
	if form.ReviewerName == "" {
		return nil, apperrors.Validation("reviewer_name", "required")
	}
	switch form.Recommendation {
	case RecommendProceed, RecommendDoNotProceed:
	default:
		return nil, apperrors.Validation("recommendation", "must be PROCEED or DO_NOT_PROCEED")
	}

	normalized, err := json.Marshal(form)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to normalize use case form")
	}

	return &FormResult{
		Normalized:     normalized,
		ReviewerName:   form.ReviewerName,
		Recommendation: form.Recommendation,
		Notes:          form.Notes,
	}, nil
}

// FinancialForm is the Stage 4 human review form.
type FinancialForm struct {
	VendorAnnualRevenue          string   `json:"vendor_annual_revenue,omitempty"`
	YearsInOperation             *int     `json:"years_in_operation,omitempty"`
	FinancialDocumentsReviewed   []string `json:"financial_documents_reviewed"`
	ConcentrationRiskFlag        *bool    `json:"concentration_risk_flag"`
	FinancialStabilityAssessment string   `json:"financial_stability_assessment"`
	ContractValue                string   `json:"contract_value,omitempty"`
	ReviewerName                 string   `json:"reviewer_name"`
	Recommendation               string   `json:"recommendation"`
	Conditions                   []string `json:"conditions,omitempty"`
	Notes                        string   `json:"notes,omitempty"`
}

type financialFormValidator struct{}

func (financialFormValidator) Validate(raw json.RawMessage) (*FormResult, error) {
	var form FinancialForm
	if err := json.Unmarshal(raw, &form); err != nil {
		return nil, apperrors.Validation("form", "malformed financial form")
	}

	if len(form.FinancialDocumentsReviewed) == 0 {
		return nil, apperrors.Validation("financial_documents_reviewed", "required")
	}
	if form.ConcentrationRiskFlag == nil {
		return nil, apperrors.Validation("concentration_risk_flag", "required")
	}
	switch form.FinancialStabilityAssessment {
	case StabilityStable, StabilityConcern, StabilityHighRisk:
	default:
		return nil, apperrors.Validation("financial_stability_assessment", "must be STABLE, CONCERN or HIGH_RISK")
	}
	if form.ReviewerName == "" {
		return nil, apperrors.Validation("reviewer_name", "required")
	}
	switch form.Recommendation {
	case RecommendAcceptable, RecommendAcceptableConditions, RecommendUnacceptable:
	default:
		return nil, apperrors.Validation("recommendation", "must be ACCEPTABLE, ACCEPTABLE_WITH_CONDITIONS or UNACCEPTABLE")
	}
	if form.Recommendation == RecommendAcceptableConditions && len(form.Conditions) == 0 {
		return nil, apperrors.Validation("conditions", "required for ACCEPTABLE_WITH_CONDITIONS")
	}
	if form.Recommendation != RecommendAcceptableConditions && len(form.Conditions) > 0 {
		return nil, apperrors.Validation("conditions", "only allowed for ACCEPTABLE_WITH_CONDITIONS")
	}

	normalized, err := json.Marshal(form)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to normalize financial form")
	}

	return &FormResult{
		Normalized:     normalized,
		ReviewerName:   form.ReviewerName,
		Recommendation: form.Recommendation,
		Conditions:     form.Conditions,
		Notes:          form.Notes,
	}, nil
}
