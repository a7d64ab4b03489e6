package order_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	ordersgw "service-fulfillment/internal/gateway/orders"
)

type stubConn struct {
	invokeFn func(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

func (s stubConn) Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error {
	if s.invokeFn == nil {
		panic("Invoke not expected")
	}
	return s.invokeFn(ctx, method, args, reply, opts...)
}

func (s stubConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	panic("NewStream not expected")
}

func reply(t *testing.T, dst any, fields map[string]any) {
	t.Helper()
	src, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	out, ok := dst.(*structpb.Struct)
	require.True(t, ok)
	out.Fields = src.Fields
}

func TestNewGRPCGateway_NilConn_ReturnsNil(t *testing.T) {
	gw := ordersgw.NewGRPCGateway(nil)
	require.Nil(t, gw)
}

func TestGRPCGateway_GetByID_ErrorWrapped(t *testing.T) {
	wantErr := errors.New("boom")

	conn := stubConn{
		invokeFn: func(_ context.Context, method string, args, _ any, _ ...grpc.CallOption) error {
			require.Equal(t, ordersgw.GetOrderStatusMethod, method)
			req, ok := args.(*structpb.Struct)
			require.True(t, ok)
			require.Equal(t, "order-1", req.GetFields()["id"].GetStringValue())
			return wantErr
		},
	}
	gw := ordersgw.NewGRPCGateway(conn)
	require.NotNil(t, gw)

	ord, err := gw.GetByID(context.Background(), "order-1")
	require.Nil(t, ord)
	require.ErrorIs(t, err, wantErr)
	require.True(t, strings.Contains(err.Error(), "order gateway: GetOrderStatus"))
}

func TestGRPCGateway_GetByID_NotFound_ReturnsNil(t *testing.T) {
	conn := stubConn{
		invokeFn: func(context.Context, string, any, any, ...grpc.CallOption) error {
			return status.Error(codes.NotFound, "no such order")
		},
	}
	gw := ordersgw.NewGRPCGateway(conn)

	ord, err := gw.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.Nil(t, ord)
}

func TestGRPCGateway_GetByID_NoOrder_ReturnsNil(t *testing.T) {
	conn := stubConn{
		invokeFn: func(_ context.Context, _ string, _, out any, _ ...grpc.CallOption) error {
			reply(t, out, map[string]any{})
			return nil
		},
	}
	gw := ordersgw.NewGRPCGateway(conn)

	ord, err := gw.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.Nil(t, ord)
}

func TestGRPCGateway_GetByID_MapsFields(t *testing.T) {
	wantTime := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	conn := stubConn{
		invokeFn: func(_ context.Context, _ string, _, out any, _ ...grpc.CallOption) error {
			reply(t, out, map[string]any{
				"order": map[string]any{
					"id":         "order-1",
					"status":     "CANCELED",
					"updated_at": wantTime.Format(time.RFC3339Nano),
				},
			})
			return nil
		},
	}
	gw := ordersgw.NewGRPCGateway(conn)

	ord, err := gw.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.NotNil(t, ord)

	require.Equal(t, "order-1", ord.ID)
	require.Equal(t, "CANCELED", ord.Status)
	require.True(t, ord.UpdatedAt.Equal(wantTime))
	require.True(t, ord.Canceled())
}

func TestGRPCGateway_GetByID_BadTimestamp_MapsZeroTime(t *testing.T) {
	conn := stubConn{
		invokeFn: func(_ context.Context, _ string, _, out any, _ ...grpc.CallOption) error {
			reply(t, out, map[string]any{
				"order": map[string]any{"id": "order-1", "status": "created", "updated_at": "yesterday"},
			})
			return nil
		},
	}
	gw := ordersgw.NewGRPCGateway(conn)

	ord, err := gw.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.NotNil(t, ord)
	require.True(t, ord.UpdatedAt.IsZero())
	require.False(t, ord.Canceled())
}
