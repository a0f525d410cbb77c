package handler

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/apartment-sales/internal/contextkeys"
	"github.com/rl1809/apartment-sales/internal/core/domain"
	"github.com/rl1809/apartment-sales/internal/core/service"
	"github.com/rl1809/apartment-sales/internal/port"
)

const inventoryServiceName = "apartmentsales.v1.Inventory"

type ReserveRequest struct {
	RequestID    string `json:"request_id"`
	ClientID     string `json:"client_id"`
	ApartmentID  string `json:"apartment_id"`
	ExpiresHours int    `json:"expires_hours"`
}

type ReserveResponse struct {
	ReservationID string `json:"reservation_id"`
}

type CancelReservationRequest struct {
	RequestID     string `json:"request_id"`
	ReservationID string `json:"reservation_id"`
}

type CancelReservationResponse struct{}

type ConfirmSaleRequest struct {
	RequestID     string `json:"request_id"`
	ClientID      string `json:"client_id"`
	ApartmentID   string `json:"apartment_id"`
	ReservationID string `json:"reservation_id,omitempty"`
	DownPayment   string `json:"down_payment"`
	TotalPrice    string `json:"total_price"`
}

type ConfirmSaleResponse struct {
	SaleID string `json:"sale_id"`
}

type InventoryServer interface {
	Reserve(ctx context.Context, req *ReserveRequest) (*ReserveResponse, error)
	CancelReservation(ctx context.Context, req *CancelReservationRequest) (*CancelReservationResponse, error)
	ConfirmSale(ctx context.Context, req *ConfirmSaleRequest) (*ConfirmSaleResponse, error)
}

type GRPCHandler struct {
	inventory *service.InventoryService
}

func NewGRPCHandler(inventory *service.InventoryService) *GRPCHandler {
	return &GRPCHandler{inventory: inventory}
}

func (h *GRPCHandler) Reserve(ctx context.Context, req *ReserveRequest) (*ReserveResponse, error) {
	clientID, err := parseID("client_id", req.ClientID)
	if err != nil {
		return nil, err
	}
	apartmentID, err := parseID("apartment_id", req.ApartmentID)
	if err != nil {
		return nil, err
	}
	if err := h.inventory.ClaimRequest(ctx, req.RequestID); err != nil {
		return nil, grpcError(ctx, err)
	}

	id, err := h.inventory.CreateReservation(ctx, clientID, apartmentID, req.ExpiresHours)
	if err != nil {
		return nil, grpcError(ctx, err)
	}
	return &ReserveResponse{ReservationID: id.String()}, nil
}

func (h *GRPCHandler) CancelReservation(ctx context.Context, req *CancelReservationRequest) (*CancelReservationResponse, error) {
	reservationID, err := parseID("reservation_id", req.ReservationID)
	if err != nil {
		return nil, err
	}
	if err := h.inventory.ClaimRequest(ctx, req.RequestID); err != nil {
		return nil, grpcError(ctx, err)
	}

	if err := h.inventory.CancelReservation(ctx, reservationID); err != nil {
		return nil, grpcError(ctx, err)
	}
	return &CancelReservationResponse{}, nil
}

func (h *GRPCHandler) ConfirmSale(ctx context.Context, req *ConfirmSaleRequest) (*ConfirmSaleResponse, error) {
	clientID, err := parseID("client_id", req.ClientID)
	if err != nil {
		return nil, err
	}
	apartmentID, err := parseID("apartment_id", req.ApartmentID)
	if err != nil {
		return nil, err
	}
	var reservationID *uuid.UUID
	if req.ReservationID != "" {
		id, err := parseID("reservation_id", req.ReservationID)
		if err != nil {
			return nil, err
		}
		reservationID = &id
	}
	downPayment, err := parseAmount("down_payment", req.DownPayment)
	if err != nil {
		return nil, err
	}
	totalPrice, err := parseAmount("total_price", req.TotalPrice)
	if err != nil {
		return nil, err
	}
	if err := h.inventory.ClaimRequest(ctx, req.RequestID); err != nil {
		return nil, grpcError(ctx, err)
	}

	id, err := h.inventory.ConfirmSale(ctx, domain.SaleRequest{
		ClientID:      clientID,
		ApartmentID:   apartmentID,
		ReservationID: reservationID,
		DownPayment:   downPayment,
		TotalPrice:    totalPrice,
	})
	if err != nil {
		return nil, grpcError(ctx, err)
	}
	return &ConfirmSaleResponse{SaleID: id.String()}, nil
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s", field)
	}
	return id, nil
}

func parseAmount(field, value string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s", field)
	}
	return amount, nil
}

func grpcError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		contextkeys.LoggerFromContext(ctx).Error("grpc request failed", err, nil)
		return status.Error(codes.Internal, "internal error")
	}
}

// UnaryServerInterceptor attaches the trace id from x-trace-id metadata and a
// request logger to the handler context.
func UnaryServerInterceptor(logger port.LoggerPort) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		var traceID string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get("x-trace-id"); len(values) > 0 {
				traceID = values[0]
			}
		}
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.New().String()
		}

		reqLogger := logger.WithFields(port.Fields{"trace_id": traceID})
		ctx = contextkeys.ContextWithTraceID(ctx, traceID)
		ctx = contextkeys.ContextWithLogger(ctx, reqLogger)

		resp, err := handler(ctx, req)
		reqLogger.Info("grpc request finished", port.Fields{
			"grpc_method": info.FullMethod,
			"grpc_code":   status.Code(err).String(),
		})
		return resp, err
	}
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&inventoryServiceDesc, srv)
}

var inventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: inventoryServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reserve", Handler: reserveHandler},
		{MethodName: "CancelReservation", Handler: cancelReservationHandler},
		{MethodName: "ConfirmSale", Handler: confirmSaleHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func reserveHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReserveRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).Reserve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + inventoryServiceName + "/Reserve"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InventoryServer).Reserve(ctx, req.(*ReserveRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func cancelReservationHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CancelReservationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).CancelReservation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + inventoryServiceName + "/CancelReservation"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InventoryServer).CancelReservation(ctx, req.(*CancelReservationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func confirmSaleHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ConfirmSaleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).ConfirmSale(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + inventoryServiceName + "/ConfirmSale"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InventoryServer).ConfirmSale(ctx, req.(*ConfirmSaleRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// InventoryClient calls the Inventory service over the JSON codec.
type InventoryClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryClient(cc grpc.ClientConnInterface) *InventoryClient {
	return &InventoryClient{cc: cc}
}

func (c *InventoryClient) invoke(ctx context.Context, method string, in, out interface{}, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+inventoryServiceName+"/"+method, in, out, opts...)
}

func (c *InventoryClient) Reserve(ctx context.Context, in *ReserveRequest, opts ...grpc.CallOption) (*ReserveResponse, error) {
	out := new(ReserveResponse)
	if err := c.invoke(ctx, "Reserve", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InventoryClient) CancelReservation(ctx context.Context, in *CancelReservationRequest, opts ...grpc.CallOption) (*CancelReservationResponse, error) {
	out := new(CancelReservationResponse)
	if err := c.invoke(ctx, "CancelReservation", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InventoryClient) ConfirmSale(ctx context.Context, in *ConfirmSaleRequest, opts ...grpc.CallOption) (*ConfirmSaleResponse, error) {
	out := new(ConfirmSaleResponse)
	if err := c.invoke(ctx, "ConfirmSale", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
