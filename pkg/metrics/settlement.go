package metrics

import "github.com/prometheus/client_golang/prometheus"

// SettlementMetrics counts payment reconciliation outcomes.
type SettlementMetrics struct {
	paymentsApplied *prometheus.CounterVec
	ordersPaid      prometheus.Counter
	ordersExpired   prometheus.Counter
	overpayments    prometheus.Counter
}

// NewSettlementMetrics registers settlement counters on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	paymentsApplied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_payments_applied_total",
		Help: "Payment confirmations applied, labelled by source.",
	}, []string{"source"})
	ordersPaid := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_orders_paid_total",
		Help: "Orders that reached fully paid.",
	})
	ordersExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_orders_expired_total",
		Help: "Orders expired by the payment window sweep.",
	})
	overpayments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_overpayments_rejected_total",
		Help: "Payment confirmations rejected for exceeding an allocation or order remainder.",
	})
	reg.MustRegister(paymentsApplied, ordersPaid, ordersExpired, overpayments)
	return &SettlementMetrics{
		paymentsApplied: paymentsApplied,
		ordersPaid:      ordersPaid,
		ordersExpired:   ordersExpired,
		overpayments:    overpayments,
	}
}

// IncPaymentApplied counts one applied confirmation from the given source.
func (m *SettlementMetrics) IncPaymentApplied(source string) {
	if m == nil || m.paymentsApplied == nil {
		return
	}
	m.paymentsApplied.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncOrderPaid counts an order reaching fully paid.
func (m *SettlementMetrics) IncOrderPaid() {
	if m == nil || m.ordersPaid == nil {
		return
	}
	m.ordersPaid.Inc()
}

// IncOrderExpired counts an order expired by the sweep.
func (m *SettlementMetrics) IncOrderExpired() {
	if m == nil || m.ordersExpired == nil {
		return
	}
	m.ordersExpired.Inc()
}

// IncOverpaymentRejected counts a rejected overpayment.
func (m *SettlementMetrics) IncOverpaymentRejected() {
	if m == nil || m.overpayments == nil {
		return
	}
	m.overpayments.Inc()
}
