package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Mewnot-jar/ocean-observer/pkg/config"
)

// IdentityProvider resolves a bearer token to the user it belongs to.
// Implementations return an error wrapping ErrInvalidToken when the token
// does not resolve to a live identity.
type IdentityProvider interface {
	ResolveUser(ctx context.Context, token string) (*User, error)
}

// NewIdentityProvider builds the provider selected by cfg.Strategy and wraps
// it with metrics.
func NewIdentityProvider(ctx context.Context, cfg *config.AuthConfig, logger *zap.Logger) (IdentityProvider, error) {
	var provider IdentityProvider

	switch cfg.Strategy {
	case config.StrategyJWKS:
		client, err := NewJWKSClient(ctx, &JWKSConfig{
			EnableVerification: cfg.EnableVerification,
			JWKSEndpoints:      cfg.JWKSEndpoints,
			Audience:           cfg.Audience,
		})
		if err != nil {
			return nil, err
		}
		provider = client
	case config.StrategySecret:
		verifier, err := NewSecretVerifier(cfg.JWTSecret, cfg.Audience, cfg.EnableVerification)
		if err != nil {
			return nil, err
		}
		provider = verifier
	case config.StrategyRemote:
		provider = NewUserClient(cfg.UserEndpoint, cfg.APIKey, cfg.Timeout(), logger)
	default:
		return nil, fmt.Errorf("unknown auth strategy %q", cfg.Strategy)
	}

	if !cfg.EnableVerification && cfg.Strategy != config.StrategyRemote {
		logger.Warn("JWT signature verification is disabled", zap.String("strategy", cfg.Strategy))
	}

	return Instrument(provider, cfg.Strategy), nil
}

// instrumentedProvider records resolution outcomes and latency.
type instrumentedProvider struct {
	next     IdentityProvider
	strategy string
}

// Instrument wraps a provider with Prometheus metrics.
func Instrument(next IdentityProvider, strategy string) IdentityProvider {
	return &instrumentedProvider{next: next, strategy: strategy}
}

func (p *instrumentedProvider) ResolveUser(ctx context.Context, token string) (*User, error) {
	start := time.Now()
	user, err := p.next.ResolveUser(ctx, token)
	IdentityResolutionDuration.WithLabelValues(p.strategy).Observe(time.Since(start).Seconds())
	IdentityResolutions.WithLabelValues(p.strategy, outcome(err)).Inc()
	return user, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case isInvalidToken(err):
		return "invalid"
	default:
		return "error"
	}
}
