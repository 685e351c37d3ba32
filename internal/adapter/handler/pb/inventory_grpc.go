// Package pb describes the inventory gRPC service. Messages are protobuf
// well-known types, so the service needs no generated message code.
package pb

import (
	"context"
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "inventory.v1.InventoryService"

const (
	FieldProduct  = "product"
	FieldQuantity = "quantity"
	FieldOrderID  = "order_id"
	FieldMaxLevel = "max_level"
)

// InventoryServiceServer is the server API for the inventory service.
type InventoryServiceServer interface {
	AddInventory(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	DeductInventory(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	// FulfillOrder returns the fulfillment ID.
	FulfillOrder(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	GetAvailableInventory(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error)
	SetMaxInventoryLevel(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// UnimplementedInventoryServiceServer can be embedded to have forward
// compatible implementations.
type UnimplementedInventoryServiceServer struct{}

func (UnimplementedInventoryServiceServer) AddInventory(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method AddInventory not implemented")
}

func (UnimplementedInventoryServiceServer) DeductInventory(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method DeductInventory not implemented")
}

func (UnimplementedInventoryServiceServer) FulfillOrder(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method FulfillOrder not implemented")
}

func (UnimplementedInventoryServiceServer) GetAvailableInventory(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAvailableInventory not implemented")
}

func (UnimplementedInventoryServiceServer) SetMaxInventoryLevel(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SetMaxInventoryLevel not implemented")
}

func RegisterInventoryServiceServer(s grpc.ServiceRegistrar, srv InventoryServiceServer) {
	s.RegisterService(&InventoryService_ServiceDesc, srv)
}

func unaryHandler[Req, Resp any](method string, call func(InventoryServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InventoryServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InventoryServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var InventoryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InventoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddInventory", Handler: unaryHandler("AddInventory", InventoryServiceServer.AddInventory)},
		{MethodName: "DeductInventory", Handler: unaryHandler("DeductInventory", InventoryServiceServer.DeductInventory)},
		{MethodName: "FulfillOrder", Handler: unaryHandler("FulfillOrder", InventoryServiceServer.FulfillOrder)},
		{MethodName: "GetAvailableInventory", Handler: unaryHandler("GetAvailableInventory", InventoryServiceServer.GetAvailableInventory)},
		{MethodName: "SetMaxInventoryLevel", Handler: unaryHandler("SetMaxInventoryLevel", InventoryServiceServer.SetMaxInventoryLevel)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory/v1/inventory.proto",
}

// InventoryServiceClient is a typed client over a gRPC connection.
type InventoryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryServiceClient(cc grpc.ClientConnInterface) *InventoryServiceClient {
	return &InventoryServiceClient{cc: cc}
}

func (c *InventoryServiceClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *InventoryServiceClient) AddInventory(ctx context.Context, product string, quantity int64, opts ...grpc.CallOption) error {
	in, err := structpb.NewStruct(map[string]any{FieldProduct: product, FieldQuantity: quantity})
	if err != nil {
		return err
	}
	return c.invoke(ctx, "AddInventory", in, new(emptypb.Empty), opts...)
}

func (c *InventoryServiceClient) DeductInventory(ctx context.Context, product string, quantity int64, opts ...grpc.CallOption) error {
	in, err := structpb.NewStruct(map[string]any{FieldProduct: product, FieldQuantity: quantity})
	if err != nil {
		return err
	}
	return c.invoke(ctx, "DeductInventory", in, new(emptypb.Empty), opts...)
}

func (c *InventoryServiceClient) FulfillOrder(ctx context.Context, orderID, product string, quantity int64, opts ...grpc.CallOption) (string, error) {
	in, err := structpb.NewStruct(map[string]any{FieldProduct: product, FieldQuantity: quantity, FieldOrderID: orderID})
	if err != nil {
		return "", err
	}
	out := new(wrapperspb.StringValue)
	if err := c.invoke(ctx, "FulfillOrder", in, out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *InventoryServiceClient) GetAvailableInventory(ctx context.Context, product string, opts ...grpc.CallOption) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.invoke(ctx, "GetAvailableInventory", wrapperspb.String(product), out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *InventoryServiceClient) SetMaxInventoryLevel(ctx context.Context, product string, maxLevel int64, opts ...grpc.CallOption) error {
	in, err := structpb.NewStruct(map[string]any{FieldProduct: product, FieldMaxLevel: maxLevel})
	if err != nil {
		return err
	}
	return c.invoke(ctx, "SetMaxInventoryLevel", in, new(emptypb.Empty), opts...)
}

var errNotInteger = errors.New("must be an integer")

// StringField reads an optional string field.
func StringField(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", nil
	}
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%s must be a string", name)
	}
	return str.StringValue, nil
}

// IntField reads a required integral number field.
func IntField(s *structpb.Struct, name string) (int64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s %w", name, errNotInteger)
	}
	n := num.NumberValue
	if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
		return 0, fmt.Errorf("%s %w", name, errNotInteger)
	}
	return int64(n), nil
}
