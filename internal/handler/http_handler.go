package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperrors"
	"github.com/pesio-ai/be-vendor-onboarding/internal/service"
)

// HTTPHandler exposes the workflow engine over REST.
type HTTPHandler struct {
	engine *service.WorkflowEngine
	log    zerolog.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(engine *service.WorkflowEngine, log zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{engine: engine, log: log}
}

// Routes mounts all vendor onboarding routes under the given router.
func (h *HTTPHandler) Routes(r chi.Router) {
	r.Route("/vendors", func(r chi.Router) {
		r.Post("/", h.CreateVendor)
		r.Get("/", h.ListVendors)
		r.Route("/{vendorID}", func(r chi.Router) {
			r.Get("/", h.GetVendor)
			r.Post("/confirm-nda", h.ConfirmNDA)
			r.Post("/start-financial-review", h.StartFinancialReview)
			r.Post("/complete-onboarding", h.CompleteOnboarding)
			r.Post("/reject", h.RejectVendor)
			r.Get("/reviews", h.ListReviews)
			r.Get("/audit-logs", h.ListAuditLog)
			r.Post("/documents", h.RegisterDocument)
			r.Get("/documents", h.ListDocuments)
		})
	})
	r.Route("/reviews/{reviewID}", func(r chi.Router) {
		r.Get("/", h.GetReview)
		r.Post("/submit-form", h.SubmitForm)
		r.Post("/trigger", h.TriggerReview)
		r.Post("/decisions", h.RecordDecision)
		r.Get("/decisions", h.ListDecisions)
	})
}

func (h *HTTPHandler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			h.log.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("request failed")
	}
	h.respond(w, status, map[string]any{
		"error": map[string]any{
			"code":    apperrors.Code(err),
			"message": apperrors.Message(err),
		},
	})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respond(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"code":    apperrors.CodeValidation,
				"message": "invalid request body",
			},
		})
		return false
	}
	return true
}

// CreateVendor handles POST /vendors.
func (h *HTTPHandler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var req service.CreateVendorRequest
	if !h.decode(w, r, &req) {
		return
	}

	vendor, review, err := h.engine.CreateVendor(r.Context(), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, map[string]any{
		"vendor": vendor,
		"review": review,
	})
}

// GetVendor handles GET /vendors/{vendorID}.
func (h *HTTPHandler) GetVendor(w http.ResponseWriter, r *http.Request) {
	vendor, err := h.engine.GetVendor(r.Context(), chi.URLParam(r, "vendorID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, vendor)
}

// ListVendors handles GET /vendors.
func (h *HTTPHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	vendors, total, err := h.engine.ListVendors(r.Context(), limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{
		"vendors": vendors,
		"total":   total,
	})
}

// ConfirmNDA handles POST /vendors/{vendorID}/confirm-nda.
func (h *HTTPHandler) ConfirmNDA(w http.ResponseWriter, r *http.Request) {
	vendor, err := h.engine.ConfirmNDA(r.Context(), chi.URLParam(r, "vendorID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, vendor)
}

// StartFinancialReview handles POST /vendors/{vendorID}/start-financial-review.
func (h *HTTPHandler) StartFinancialReview(w http.ResponseWriter, r *http.Request) {
	vendor, review, err := h.engine.StartFinancialReview(r.Context(), chi.URLParam(r, "vendorID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{
		"vendor": vendor,
		"review": review,
	})
}

// CompleteOnboarding handles POST /vendors/{vendorID}/complete-onboarding.
func (h *HTTPHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	vendor, err := h.engine.CompleteOnboarding(r.Context(), chi.URLParam(r, "vendorID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, vendor)
}

// RejectVendor handles POST /vendors/{vendorID}/reject.
func (h *HTTPHandler) RejectVendor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Actor     string `json:"actor"`
		Rationale string `json:"rationale"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	vendor, err := h.engine.RejectVendor(r.Context(), chi.URLParam(r, "vendorID"), req.Actor, req.Rationale)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, vendor)
}

// ListReviews handles GET /vendors/{vendorID}/reviews.
func (h *HTTPHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.engine.ListReviews(r.Context(), chi.URLParam(r, "vendorID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"reviews": reviews})
}

// GetReview handles GET /reviews/{reviewID}.
func (h *HTTPHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.engine.GetReview(r.Context(), chi.URLParam(r, "reviewID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, review)
}

// SubmitForm handles POST /reviews/{reviewID}/submit-form. The body is the
// raw stage form, validated per stage by the engine.
func (h *HTTPHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !h.decode(w, r, &raw) {
		return
	}

	review, err := h.engine.SubmitForm(r.Context(), chi.URLParam(r, "reviewID"), raw)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, review)
}

// TriggerReview handles POST /reviews/{reviewID}/trigger.
func (h *HTTPHandler) TriggerReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentID string `json:"document_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.DocumentID == "" {
		h.respondError(w, apperrors.Validation("document_id", "required"))
		return
	}

	review, err := h.engine.TriggerReview(r.Context(), chi.URLParam(r, "reviewID"), req.DocumentID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, review)
}

// RecordDecision handles POST /reviews/{reviewID}/decisions.
func (h *HTTPHandler) RecordDecision(w http.ResponseWriter, r *http.Request) {
	var req service.RecordDecisionRequest
	if !h.decode(w, r, &req) {
		return
	}

	decision, err := h.engine.RecordDecision(r.Context(), chi.URLParam(r, "reviewID"), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, decision)
}

// ListDecisions handles GET /reviews/{reviewID}/decisions.
func (h *HTTPHandler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	decisions, err := h.engine.ListDecisions(r.Context(), chi.URLParam(r, "reviewID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"decisions": decisions})
}

// ListAuditLog handles GET /vendors/{vendorID}/audit-logs.
func (h *HTTPHandler) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.ListAuditLog(r.Context(), chi.URLParam(r, "vendorID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"audit_logs": entries})
}

// RegisterDocument handles POST /vendors/{vendorID}/documents.
func (h *HTTPHandler) RegisterDocument(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterDocumentRequest
	if !h.decode(w, r, &req) {
		return
	}

	doc, err := h.engine.RegisterDocument(r.Context(), chi.URLParam(r, "vendorID"), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, doc)
}

// ListDocuments handles GET /vendors/{vendorID}/documents.
func (h *HTTPHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.engine.ListDocuments(r.Context(), chi.URLParam(r, "vendorID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"documents": docs})
}

// Health handles GET /health.
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
