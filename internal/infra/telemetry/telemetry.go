package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arklim/social-platform-membership/internal/infra/config"
)

// Provider represents a telemetry provider handle.
type Provider struct {
	authAttempts   *prometheus.CounterVec
	securityEvents *prometheus.CounterVec
	lockouts       prometheus.Counter
}

// Attach configures telemetry exporters and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	authAttempts := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "membership",
		Name:      "authentication_attempts_total",
		Help:      "Total number of authentication attempts by tenant and result",
	}, []string{"tenant", "result"})

	securityEvents := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "membership",
		Name:      "security_events_total",
		Help:      "Total number of recorded security events by kind",
	}, []string{"kind"})

	lockouts := promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "membership",
		Name:      "account_lockouts_total",
		Help:      "Total number of accounts locked out",
	})

	return &Provider{
		authAttempts:   authAttempts,
		securityEvents: securityEvents,
		lockouts:       lockouts,
	}, nil
}

// ObserveAuthAttempt increments the authentication attempt counter.
func (p *Provider) ObserveAuthAttempt(tenant, result string) {
	if p == nil {
		return
	}
	p.authAttempts.WithLabelValues(tenant, result).Inc()
}

// ObserveSecurityEvent increments the security event counter.
func (p *Provider) ObserveSecurityEvent(kind string) {
	if p == nil {
		return
	}
	p.securityEvents.WithLabelValues(kind).Inc()
}

// ObserveLockout increments the account lockout counter.
func (p *Provider) ObserveLockout() {
	if p == nil {
		return
	}
	p.lockouts.Inc()
}
