package app

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"service-fulfillment/internal/config"
	ordersgw "service-fulfillment/internal/gateway/orders"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/service/fulfillment"
)

// ordersConnCloser closes the gRPC connection to the orders service.
type ordersConnCloser func() error

type ordersGatewayIn struct {
	dig.In

	Config  *config.Config
	Logger  logx.Logger
	Retries prometheus.Counter `name:"gateway_retries_total" optional:"true"`
}

type ordersGatewayOut struct {
	dig.Out

	Source fulfillment.OrderStatusSource
	Closer ordersConnCloser
}

var newOrdersConn = func(host string) (*grpc.ClientConn, error) {
	return grpc.NewClient(host, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func newOrdersGateway(in ordersGatewayIn) (ordersGatewayOut, error) {
	gc := in.Config.OrdersGateway
	if strings.TrimSpace(gc.Host) == "" {
		in.Logger.Warn("orders service host not configured, order status checks disabled")
		return ordersGatewayOut{Closer: func() error { return nil }}, nil
	}
	conn, err := newOrdersConn(gc.Host)
	if err != nil {
		return ordersGatewayOut{}, fmt.Errorf("dial orders service %s: %w", gc.Host, err)
	}
	gw := ordersgw.NewRetryingGateway(ordersgw.NewGRPCGateway(conn), in.Logger, in.Retries, ordersgw.RetryConfig{
		MaxAttempts: gc.MaxAttempts,
		BaseDelay:   gc.BaseDelay,
		MaxDelay:    gc.MaxDelay,
	})
	return ordersGatewayOut{Source: gw, Closer: conn.Close}, nil
}

func registerOrdersGateway(container *dig.Container) error {
	return provideAll(container, newOrdersGateway)
}
