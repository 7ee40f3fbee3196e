//go:build protogen

package directions

import (
	"context"
	"time"

	"github.com/shutterdesk/shutterdesk/libs/grpcx"
	routingv1 "github.com/shutterdesk/shutterdesk/protos/gen/routing/v1"
)

// Route is a driving-time estimate from the photographer's previous
// stop to the shoot address.
type Route struct {
	DrivingMinutes  int
	DistanceMeters  int
	EstimateQuality string
}

type Provider interface {
	EstimateRoute(ctx context.Context, fromAddress, toAddress string) (Route, error)
}

type grpcProvider struct {
	client routingv1.RoutingServiceClient
}

func NewProvider(addr string) (Provider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: routingv1.NewRoutingServiceClient(conn)}, nil
}

func (p *grpcProvider) EstimateRoute(ctx context.Context, fromAddress, toAddress string) (Route, error) {
	resp, err := p.client.EstimateRoute(ctx, &routingv1.EstimateRouteRequest{
		FromAddress: fromAddress,
		ToAddress:   toAddress,
	})
	if err != nil {
		return Route{}, err
	}
	return Route{
		DrivingMinutes:  int(resp.GetDrivingMinutes()),
		DistanceMeters:  int(resp.GetDistanceMeters()),
		EstimateQuality: resp.GetEstimateQuality(),
	}, nil
}
