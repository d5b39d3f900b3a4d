package handler

// The VendorOnboardingService descriptor is maintained by hand until the
// proto definitions land in be-lib-proto; the JSON codec stands in for
// generated marshaling.

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(JSONCodec{})
}

// JSONCodec is a JSON-based gRPC codec.
type JSONCodec struct{}

func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) Name() string { return "json" }

// VendorOnboardingServiceServer is the server interface of the gRPC
// VendorOnboardingService.
type VendorOnboardingServiceServer interface {
	CreateVendor(ctx context.Context, req *CreateVendorGRPCRequest) (*CreateVendorGRPCResponse, error)
	GetVendor(ctx context.Context, req *GetVendorGRPCRequest) (*GetVendorGRPCResponse, error)
	ListVendors(ctx context.Context, req *ListVendorsGRPCRequest) (*ListVendorsGRPCResponse, error)
	ConfirmNda(ctx context.Context, req *ConfirmNdaGRPCRequest) (*ConfirmNdaGRPCResponse, error)
	CompleteOnboarding(ctx context.Context, req *CompleteOnboardingGRPCRequest) (*CompleteOnboardingGRPCResponse, error)
	RejectVendor(ctx context.Context, req *RejectVendorGRPCRequest) (*RejectVendorGRPCResponse, error)
}

// RegisterVendorOnboardingServiceServer registers the handler with a gRPC server.
func RegisterVendorOnboardingServiceServer(s *grpc.Server, srv VendorOnboardingServiceServer) {
	s.RegisterService(&_VendorOnboardingService_serviceDesc, srv)
}

var _VendorOnboardingService_serviceDesc = grpc.ServiceDesc{
	ServiceName: "pesio.vendors.v1.VendorOnboardingService",
	HandlerType: (*VendorOnboardingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateVendor",
			Handler:    _VendorOnboardingService_CreateVendor_Handler,
		},
		{
			MethodName: "GetVendor",
			Handler:    _VendorOnboardingService_GetVendor_Handler,
		},
		{
			MethodName: "ListVendors",
			Handler:    _VendorOnboardingService_ListVendors_Handler,
		},
		{
			MethodName: "ConfirmNda",
			Handler:    _VendorOnboardingService_ConfirmNda_Handler,
		},
		{
			MethodName: "CompleteOnboarding",
			Handler:    _VendorOnboardingService_CompleteOnboarding_Handler,
		},
		{
			MethodName: "RejectVendor",
			Handler:    _VendorOnboardingService_RejectVendor_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "v1/vendor_onboarding.proto",
}

func _VendorOnboardingService_CreateVendor_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(CreateVendorGRPCRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VendorOnboardingServiceServer).CreateVendor(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/pesio.vendors.v1.VendorOnboardingService/CreateVendor",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VendorOnboardingServiceServer).CreateVendor(ctx, req.(*CreateVendorGRPCRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _VendorOnboardingService_GetVendor_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetVendorGRPCRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VendorOnboardingServiceServer).GetVendor(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/pesio.vendors.v1.VendorOnboardingService/GetVendor",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VendorOnboardingServiceServer).GetVendor(ctx, req.(*GetVendorGRPCRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _VendorOnboardingService_ListVendors_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ListVendorsGRPCRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VendorOnboardingServiceServer).ListVendors(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/pesio.vendors.v1.VendorOnboardingService/ListVendors",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VendorOnboardingServiceServer).ListVendors(ctx, req.(*ListVendorsGRPCRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _VendorOnboardingService_ConfirmNda_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ConfirmNdaGRPCRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VendorOnboardingServiceServer).ConfirmNda(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/pesio.vendors.v1.VendorOnboardingService/ConfirmNda",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VendorOnboardingServiceServer).ConfirmNda(ctx, req.(*ConfirmNdaGRPCRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _VendorOnboardingService_CompleteOnboarding_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(CompleteOnboardingGRPCRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VendorOnboardingServiceServer).CompleteOnboarding(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/pesio.vendors.v1.VendorOnboardingService/CompleteOnboarding",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VendorOnboardingServiceServer).CompleteOnboarding(ctx, req.(*CompleteOnboardingGRPCRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _VendorOnboardingService_RejectVendor_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(RejectVendorGRPCRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VendorOnboardingServiceServer).RejectVendor(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/pesio.vendors.v1.VendorOnboardingService/RejectVendor",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VendorOnboardingServiceServer).RejectVendor(ctx, req.(*RejectVendorGRPCRequest))
	}
	return interceptor(ctx, req, info, handler)
}
