//go:build !protogen

package directions

import "context"

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

func NewProvider(_ string) (Provider, error) {
	return nil, nil
}
