package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/rl1809/inventory-ledger/internal/adapter/handler/pb"
	"github.com/rl1809/inventory-ledger/internal/core/service"
)

type GRPCHandler struct {
	pb.UnimplementedInventoryServiceServer
	ledger       *service.Ledger
	orderService *service.OrderService
	logger       *zap.Logger
}

func NewGRPCHandler(ledger *service.Ledger, orderService *service.OrderService, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{ledger: ledger, orderService: orderService, logger: logger}
}

func (h *GRPCHandler) AddInventory(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	product, quantity, err := stockRequest(req, pb.FieldQuantity)
	if err != nil {
		return nil, err
	}

	if err := h.ledger.Add(product, quantity); err != nil {
		return nil, h.mapError(err)
	}
	return &emptypb.Empty{}, nil
}

func (h *GRPCHandler) DeductInventory(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	product, quantity, err := stockRequest(req, pb.FieldQuantity)
	if err != nil {
		return nil, err
	}
	if h.ledger.GetAvailable(product) < quantity {
		return nil, status.Error(codes.FailedPrecondition, "insufficient inventory")
	}

	if err := h.ledger.Deduct(product, quantity); err != nil {
		return nil, h.mapError(err)
	}
	return &emptypb.Empty{}, nil
}

func (h *GRPCHandler) FulfillOrder(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	product, quantity, err := stockRequest(req, pb.FieldQuantity)
	if err != nil {
		return nil, err
	}
	orderID, err := pb.StringField(req, pb.FieldOrderID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if h.ledger.GetAvailable(product) < quantity {
		return nil, status.Error(codes.FailedPrecondition, "insufficient inventory")
	}

	f, err := h.orderService.Fulfill(ctx, orderID, product, quantity)
	if err != nil {
		return nil, h.mapError(err)
	}
	return wrapperspb.String(f.ID), nil
}

func (h *GRPCHandler) GetAvailableInventory(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	return wrapperspb.Int64(h.ledger.GetAvailable(req.GetValue())), nil
}

func (h *GRPCHandler) SetMaxInventoryLevel(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	product, maxLevel, err := stockRequest(req, pb.FieldMaxLevel)
	if err != nil {
		return nil, err
	}

	if err := h.ledger.SetMaxLevel(product, maxLevel); err != nil {
		return nil, h.mapError(err)
	}
	return &emptypb.Empty{}, nil
}

// stockRequest reads the product and a positive integer field from req.
func stockRequest(req *structpb.Struct, field string) (string, int64, error) {
	product, err := pb.StringField(req, pb.FieldProduct)
	if err != nil {
		return "", 0, status.Error(codes.InvalidArgument, err.Error())
	}
	if product == "" {
		return "", 0, status.Error(codes.InvalidArgument, "product is required")
	}
	n, err := pb.IntField(req, field)
	if err != nil {
		return "", 0, status.Error(codes.InvalidArgument, err.Error())
	}
	if n <= 0 {
		return "", 0, status.Errorf(codes.InvalidArgument, "%s must be greater than 0", field)
	}
	return product, n, nil
}

func (h *GRPCHandler) mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidTransaction):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrInsufficientInventory):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, "duplicate request")
	case errors.Is(err, service.ErrDispatchBacklog):
		return status.Error(codes.Unavailable, err.Error())
	}
	h.logger.Error("inventory request failed", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}
