package handler

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperrors"
	"github.com/pesio-ai/be-vendor-onboarding/internal/service"
)

// GRPCHandler implements the VendorOnboardingService gRPC interface for
// service-to-service callers.
type GRPCHandler struct {
	engine *service.WorkflowEngine
	logger zerolog.Logger
}

// NewGRPCHandler creates a new gRPC handler.
func NewGRPCHandler(engine *service.WorkflowEngine, logger zerolog.Logger) *GRPCHandler {
	return &GRPCHandler{
		engine: engine,
		logger: logger.With().Str("handler", "grpc").Logger(),
	}
}

// grpcError maps domain error codes onto gRPC status codes.
func grpcError(err error) error {
	var code codes.Code
	switch apperrors.Code(err) {
	case apperrors.CodeValidation:
		code = codes.InvalidArgument
	case apperrors.CodeNotFound:
		code = codes.NotFound
	case apperrors.CodeConflict:
		code = codes.FailedPrecondition
	case apperrors.CodeAnalysis:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, apperrors.Message(err))
}

// CreateVendor creates a vendor and opens its use case review.
func (h *GRPCHandler) CreateVendor(ctx context.Context, req *CreateVendorGRPCRequest) (*CreateVendorGRPCResponse, error) {
	h.logger.Info().Str("name", req.Name).Msg("gRPC CreateVendor called")

	vendor, review, err := h.engine.CreateVendor(ctx, &service.CreateVendorRequest{
		Name:        req.Name,
		Website:     req.Website,
		Description: req.Description,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &CreateVendorGRPCResponse{Vendor: vendor, Review: review}, nil
}

// GetVendor retrieves a vendor by id.
func (h *GRPCHandler) GetVendor(ctx context.Context, req *GetVendorGRPCRequest) (*GetVendorGRPCResponse, error) {
	vendor, err := h.engine.GetVendor(ctx, req.VendorID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &GetVendorGRPCResponse{Vendor: vendor}, nil
}

// ListVendors lists vendors newest-first.
func (h *GRPCHandler) ListVendors(ctx context.Context, req *ListVendorsGRPCRequest) (*ListVendorsGRPCResponse, error) {
	vendors, total, err := h.engine.ListVendors(ctx, req.Limit, req.Offset)
	if err != nil {
		return nil, grpcError(err)
	}
	return &ListVendorsGRPCResponse{Vendors: vendors, Total: total}, nil
}

// ConfirmNda confirms NDA execution for a vendor.
func (h *GRPCHandler) ConfirmNda(ctx context.Context, req *ConfirmNdaGRPCRequest) (*ConfirmNdaGRPCResponse, error) {
	h.logger.Info().Str("vendor_id", req.VendorID).Msg("gRPC ConfirmNda called")

	vendor, err := h.engine.ConfirmNDA(ctx, req.VendorID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &ConfirmNdaGRPCResponse{Vendor: vendor}, nil
}

// CompleteOnboarding finalizes a fully approved vendor.
func (h *GRPCHandler) CompleteOnboarding(ctx context.Context, req *CompleteOnboardingGRPCRequest) (*CompleteOnboardingGRPCResponse, error) {
	h.logger.Info().Str("vendor_id", req.VendorID).Msg("gRPC CompleteOnboarding called")

	vendor, err := h.engine.CompleteOnboarding(ctx, req.VendorID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &CompleteOnboardingGRPCResponse{Vendor: vendor}, nil
}

// RejectVendor rejects a vendor from any non-terminal state.
func (h *GRPCHandler) RejectVendor(ctx context.Context, req *RejectVendorGRPCRequest) (*RejectVendorGRPCResponse, error) {
	h.logger.Info().Str("vendor_id", req.VendorID).Msg("gRPC RejectVendor called")

	vendor, err := h.engine.RejectVendor(ctx, req.VendorID, req.Actor, req.Rationale)
	if err != nil {
		return nil, grpcError(err)
	}
	return &RejectVendorGRPCResponse{Vendor: vendor}, nil
}
