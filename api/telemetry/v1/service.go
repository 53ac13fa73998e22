package telemetryv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName                                          = "runtelemetry.telemetry.v1.TelemetryService"
	TelemetryService_ReportTelemetry_FullMethodName      = "/" + ServiceName + "/ReportTelemetry"
	TelemetryService_BatchReportTelemetry_FullMethodName = "/" + ServiceName + "/BatchReportTelemetry"
)

// TelemetryServiceServer is the server API for TelemetryService.
type TelemetryServiceServer interface {
	// ReportTelemetry ingests one run's telemetry report.
	ReportTelemetry(context.Context, *ReportTelemetryRequest) (*ReportTelemetryResponse, error)
	// BatchReportTelemetry ingests several reports; each gets its own result.
	BatchReportTelemetry(context.Context, *BatchReportTelemetryRequest) (*BatchReportTelemetryResponse, error)
}

// UnimplementedTelemetryServiceServer can be embedded to have forward compatible implementations.
type UnimplementedTelemetryServiceServer struct{}

func (UnimplementedTelemetryServiceServer) ReportTelemetry(context.Context, *ReportTelemetryRequest) (*ReportTelemetryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ReportTelemetry not implemented")
}

func (UnimplementedTelemetryServiceServer) BatchReportTelemetry(context.Context, *BatchReportTelemetryRequest) (*BatchReportTelemetryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method BatchReportTelemetry not implemented")
}

// RegisterTelemetryServiceServer registers srv on s. The server must be created with
// grpc.ForceServerCodec(Codec{}).
func RegisterTelemetryServiceServer(s grpc.ServiceRegistrar, srv TelemetryServiceServer) {
	s.RegisterService(&TelemetryService_ServiceDesc, srv)
}

func reportTelemetryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ReportTelemetryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServiceServer).ReportTelemetry(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TelemetryService_ReportTelemetry_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TelemetryServiceServer).ReportTelemetry(ctx, req.(*ReportTelemetryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func batchReportTelemetryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(BatchReportTelemetryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServiceServer).BatchReportTelemetry(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TelemetryService_BatchReportTelemetry_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TelemetryServiceServer).BatchReportTelemetry(ctx, req.(*BatchReportTelemetryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// TelemetryService_ServiceDesc is the grpc.ServiceDesc for TelemetryService.
var TelemetryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TelemetryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ReportTelemetry", Handler: reportTelemetryHandler},
		{MethodName: "BatchReportTelemetry", Handler: batchReportTelemetryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "telemetry/v1/telemetry.proto",
}

// TelemetryServiceClient is the client API for TelemetryService.
type TelemetryServiceClient interface {
	ReportTelemetry(ctx context.Context, in *ReportTelemetryRequest, opts ...grpc.CallOption) (*ReportTelemetryResponse, error)
	BatchReportTelemetry(ctx context.Context, in *BatchReportTelemetryRequest, opts ...grpc.CallOption) (*BatchReportTelemetryResponse, error)
}

type telemetryServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTelemetryServiceClient returns a client whose calls always use Codec.
func NewTelemetryServiceClient(cc grpc.ClientConnInterface) TelemetryServiceClient {
	return &telemetryServiceClient{cc: cc}
}

func (c *telemetryServiceClient) ReportTelemetry(ctx context.Context, in *ReportTelemetryRequest, opts ...grpc.CallOption) (*ReportTelemetryResponse, error) {
	out := new(ReportTelemetryResponse)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := c.cc.Invoke(ctx, TelemetryService_ReportTelemetry_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *telemetryServiceClient) BatchReportTelemetry(ctx context.Context, in *BatchReportTelemetryRequest, opts ...grpc.CallOption) (*BatchReportTelemetryResponse, error) {
	out := new(BatchReportTelemetryResponse)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := c.cc.Invoke(ctx, TelemetryService_BatchReportTelemetry_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
