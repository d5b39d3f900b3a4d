// Package analyzer defines the stage analyzer gateway: the boundary to the
// AI analysis collaborators for the LEGAL and SECURITY stages. The workflow
// engine only sees a structured result or a failure; provider-specific causes
// never cross this boundary.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

// Gateway produces a structured analysis result for one stage, or fails.
type Gateway interface {
	Analyze(ctx context.Context, stage repository.Stage, doc *repository.Document) (*Result, error)
}

// Finding statuses for legal analysis.
const (
	FindingMet     = "MET"
	FindingNotMet  = "NOT_MET"
	FindingPartial = "PARTIAL"
)

// Risk levels for security analysis.
const (
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
)

// LegalFinding is one requirement assessment in a legal analysis.
type LegalFinding struct {
	Requirement string `json:"requirement"`
	Status      string `json:"status"` // MET | NOT_MET | PARTIAL
	Evidence    string `json:"evidence"`
	Gap         string `json:"gap,omitempty"`
}

// LegalResult is the structured output of the legal/regulatory analyzer.
type LegalResult struct {
	Findings          []LegalFinding `json:"findings"`
	OverallCompliance string         `json:"overall_compliance"`
	Summary           string         `json:"summary"`
}

// SecurityFinding is one per-domain assessment in a security analysis.
type SecurityFinding struct {
	Domain    string `json:"domain"`
	RiskLevel string `json:"risk_level"` // LOW | MEDIUM | HIGH | CRITICAL
	Detail    string `json:"detail"`
}

// SecurityResult is the structured output of the security risk analyzer.
type SecurityResult struct {
	RiskScore      float64           `json:"risk_score"`
	Findings       []SecurityFinding `json:"findings"`
	CriticalGaps   []string          `json:"critical_gaps"`
	Recommendation string            `json:"recommendation"`
}

// Result is the stage-tagged analysis result. Exactly one of Legal/Security
// is populated, matching Stage.
type Result struct {
	Stage    repository.Stage `json:"stage"`
	Legal    *LegalResult     `json:"legal,omitempty"`
	Security *SecurityResult  `json:"security,omitempty"`
}

// Validate checks the result matches its stage and carries a well-formed
// payload. A malformed result is indistinguishable from any other gateway
// failure to the engine.
func (r *Result) Validate() error {
	switch r.Stage {
	case repository.StageLegal:
		if r.Legal == nil || r.Security != nil {
			return fmt.Errorf("legal result has wrong payload")
		}
		if len(r.Legal.Findings) == 0 {
			return fmt.Errorf("legal result has no findings")
		}
		for _, f := range r.Legal.Findings {
			switch f.Status {
			case FindingMet, FindingNotMet, FindingPartial:
			default:
				return fmt.Errorf("unknown finding status %q", f.Status)
			}
		}
		if r.Legal.OverallCompliance == "" {
			return fmt.Errorf("legal result missing overall_compliance")
		}
	case repository.StageSecurity:
		if r.Security == nil || r.Legal != nil {
			return fmt.Errorf("security result has wrong payload")
		}
		if len(r.Security.Findings) == 0 {
			return fmt.Errorf("security result has no findings")
		}
		for _, f := range r.Security.Findings {
			switch f.RiskLevel {
			case RiskLow, RiskMedium, RiskHigh, RiskCritical:
			default:
				return fmt.Errorf("unknown risk level %q", f.RiskLevel)
			}
		}
		if r.Security.Recommendation == "" {
			return fmt.Errorf("security result missing recommendation")
		}
	default:
		return fmt.Errorf("stage %s has no analyzer", r.Stage)
	}
	return nil
}

// Summary returns the one-line summary recorded in the audit log.
func (r *Result) Summary() map[string]any {
	switch {
	case r.Legal != nil:
		return map[string]any{
			"overall_compliance": r.Legal.OverallCompliance,
			"findings":           len(r.Legal.Findings),
		}
	case r.Security != nil:
		return map[string]any{
			"risk_score":     r.Security.RiskScore,
			"critical_gaps":  len(r.Security.CriticalGaps),
			"recommendation": r.Security.Recommendation,
		}
	default:
		return nil
	}
}

// MarshalOutcome serializes the result for storage on the review.
func (r *Result) MarshalOutcome() (json.RawMessage, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis result: %w", err)
	}
	return data, nil
}
