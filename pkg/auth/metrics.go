package auth

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IdentityResolutions counts bearer token resolutions.
	// Labels:
	//   - strategy: "jwks", "secret", "remote"
	//   - outcome: "success", "invalid", "error"
	IdentityResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocean_identity_resolutions_total",
			Help: "Total number of bearer token resolutions",
		},
		[]string{"strategy", "outcome"},
	)

	// IdentityResolutionDuration measures token resolution latency.
	IdentityResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocean_identity_resolution_duration_seconds",
			Help:    "Duration of bearer token resolution in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"strategy"},
	)
)

func isInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}
