package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the AssetFlow service
const ServiceName = "assetflow.v1.AssetFlowService"

// AssetFlowServiceServer is the server API of the AssetFlow service.
// Requests and responses are generic protobuf Structs.
type AssetFlowServiceServer interface {
	ListAssets(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDashboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSeries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddHistoryEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CorrectQuantity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReconcileAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdatePrices(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRetirementPlan(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type methodFunc func(AssetFlowServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call methodFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AssetFlowServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(AssetFlowServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the AssetFlow service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AssetFlowServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ListAssets", AssetFlowServiceServer.ListAssets),
		unaryHandler("GetDashboard", AssetFlowServiceServer.GetDashboard),
		unaryHandler("GetSeries", AssetFlowServiceServer.GetSeries),
		unaryHandler("AddHistoryEntry", AssetFlowServiceServer.AddHistoryEntry),
		unaryHandler("CorrectQuantity", AssetFlowServiceServer.CorrectQuantity),
		unaryHandler("ReconcileAccount", AssetFlowServiceServer.ReconcileAccount),
		unaryHandler("UpdatePrices", AssetFlowServiceServer.UpdatePrices),
		unaryHandler("GetRetirementPlan", AssetFlowServiceServer.GetRetirementPlan),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "assetflow/v1/assetflow.proto",
}

// RegisterAssetFlowServiceServer registers srv on s
func RegisterAssetFlowServiceServer(s grpc.ServiceRegistrar, srv AssetFlowServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the AssetFlow service over a client connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a new Client
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req and returns the decoded response
func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
