package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperrors"
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

// Client calls the stage analysis service over HTTP. The service owns prompt
// construction and retrieval; this client only carries the document reference
// and maps every failure mode onto a single analysis error.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates an analyzer client. timeout bounds the whole analysis
// call; there is no engine-side timeout on top of it.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "analyzer").Logger(),
	}
}

// analyzeRequest is the JSON request to the analysis service.
type analyzeRequest struct {
	Stage      repository.Stage `json:"stage"`
	VendorID   string           `json:"vendor_id"`
	DocumentID string           `json:"document_id"`
	DocType    string           `json:"doc_type"`
	Filename   string           `json:"filename"`
}

// Analyze implements Gateway.
func (c *Client) Analyze(ctx context.Context, stage repository.Stage, doc *repository.Document) (*Result, error) {
	reqBody, err := json.Marshal(analyzeRequest{
		Stage:      stage,
		VendorID:   doc.VendorID,
		DocumentID: doc.ID,
		DocType:    doc.DocType,
		Filename:   doc.Filename,
	})
	if err != nil {
		return nil, apperrors.Analysis(err, "failed to marshal analyze request")
	}

	url := c.baseURL + "/api/v1/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, apperrors.Analysis(err, "failed to build analyze request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Analysis(err, "analyzer request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperrors.Analysis(
			fmt.Errorf("analyzer returned status %d: %s", resp.StatusCode, body),
			"analyzer request failed")
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.Analysis(err, "failed to decode analyzer response")
	}
	if result.Stage == "" {
		result.Stage = stage
	}
	if result.Stage != stage {
		return nil, apperrors.Analysis(
			fmt.Errorf("analyzer returned result for stage %s, wanted %s", result.Stage, stage),
			"malformed analyzer response")
	}
	if err := result.Validate(); err != nil {
		return nil, apperrors.Analysis(err, "malformed analyzer response")
	}

	c.log.Debug().
		Str("stage", string(stage)).
		Str("document_id", doc.ID).
		Dur("duration", time.Since(start)).
		Msg("Analysis completed")

	return &result, nil
}
