package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// EntitlementMetrics records resolver decisions and ledger compensations.
type EntitlementMetrics struct {
	grants     *prometheus.CounterVec
	denials    *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	refunds    prometheus.Counter
}

// NewEntitlementMetrics registers the entitlement metrics on the provided
// registerer.
func NewEntitlementMetrics(reg prometheus.Registerer) *EntitlementMetrics {
	if reg == nil {
		return &EntitlementMetrics{}
	}
	grants := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlement_grants_total",
		Help: "Granted content requests by entitlement path.",
	}, []string{"reason"})
	denials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlement_denials_total",
		Help: "Denied content requests by error code.",
	}, []string{"code"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "content_deliveries_total",
		Help: "Transport delivery attempts by outcome.",
	}, []string{"outcome"})
	refunds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_refunds_total",
		Help: "Compensating credits issued after failed deliveries.",
	})
	reg.MustRegister(grants, denials, deliveries, refunds)
	return &EntitlementMetrics{
		grants:     grants,
		denials:    denials,
		deliveries: deliveries,
		refunds:    refunds,
	}
}

// IncGrant counts a granted request for the given entitlement path.
func (m *EntitlementMetrics) IncGrant(reason string) {
	if m == nil || m.grants == nil {
		return
	}
	m.grants.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncDenial counts a denied request for the given error code.
func (m *EntitlementMetrics) IncDenial(code string) {
	if m == nil || m.denials == nil {
		return
	}
	m.denials.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncDelivery counts one transport delivery attempt outcome.
func (m *EntitlementMetrics) IncDelivery(outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncRefund counts one compensating credit.
func (m *EntitlementMetrics) IncRefund() {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
