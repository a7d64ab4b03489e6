package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// GetOrderStatusMethod is the full gRPC method name of the status lookup.
const GetOrderStatusMethod = "/orders.OrdersService/GetOrderStatus"

// Order represents an order from the orders service.
type Order struct {
	ID        string
	Status    string
	UpdatedAt time.Time
}

// Canceled reports whether the orders service no longer expects delivery.
func (o Order) Canceled() bool {
	switch strings.ToLower(strings.TrimSpace(o.Status)) {
	case "canceled", "cancelled", "deleted":
		return true
	default:
		return false
	}
}

// GRPCGateway is an orders gateway backed by gRPC. Messages travel as
// structpb.Struct so that no generated client is needed.
type GRPCGateway struct {
	conn grpc.ClientConnInterface
}

// NewGRPCGateway creates an orders gateway backed by gRPC.
func NewGRPCGateway(conn grpc.ClientConnInterface) *GRPCGateway {
	if conn == nil {
		return nil
	}
	return &GRPCGateway{conn: conn}
}

func mapOrder(s *structpb.Struct) Order {
	fields := s.GetFields()
	var updatedAt time.Time
	if raw := fields["updated_at"].GetStringValue(); raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			updatedAt = ts.UTC()
		}
	}
	return Order{
		ID:        fields["id"].GetStringValue(),
		Status:    fields["status"].GetStringValue(),
		UpdatedAt: updatedAt,
	}
}

// GetByID fetches the current status of an order. A missing order yields
// (nil, nil).
func (g *GRPCGateway) GetByID(ctx context.Context, id string) (*Order, error) {
	req, err := structpb.NewStruct(map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("order gateway: build request: %w", err)
	}
	resp := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, GetOrderStatusMethod, req, resp); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("order gateway: GetOrderStatus: %w", err)
	}
	o := resp.GetFields()["order"].GetStructValue()
	if o == nil {
		return nil, nil
	}
	ord := mapOrder(o)
	return &ord, nil
}
