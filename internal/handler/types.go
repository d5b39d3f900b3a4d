package handler

import (
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

// gRPC message types for VendorOnboardingService. The JSON codec carries
// these until the proto definitions land in be-lib-proto.

type CreateVendorGRPCRequest struct {
	Name        string  `json:"name"`
	Website     *string `json:"website,omitempty"`
	Description *string `json:"description,omitempty"`
}

type CreateVendorGRPCResponse struct {
	Vendor *repository.Vendor `json:"vendor"`
	Review *repository.Review `json:"review"`
}

type GetVendorGRPCRequest struct {
	VendorID string `json:"vendor_id"`
}

type GetVendorGRPCResponse struct {
	Vendor *repository.Vendor `json:"vendor"`
}

type ListVendorsGRPCRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

type ListVendorsGRPCResponse struct {
	Vendors []*repository.Vendor `json:"vendors"`
	Total   int64                `json:"total"`
}

type ConfirmNdaGRPCRequest struct {
	VendorID string `json:"vendor_id"`
}

type ConfirmNdaGRPCResponse struct {
	Vendor *repository.Vendor `json:"vendor"`
}

type CompleteOnboardingGRPCRequest struct {
	VendorID string `json:"vendor_id"`
}

type CompleteOnboardingGRPCResponse struct {
	Vendor *repository.Vendor `json:"vendor"`
}

type RejectVendorGRPCRequest struct {
	VendorID  string `json:"vendor_id"`
	Actor     string `json:"actor,omitempty"`
	Rationale string `json:"rationale"`
}

type RejectVendorGRPCResponse struct {
	Vendor *repository.Vendor `json:"vendor"`
}
