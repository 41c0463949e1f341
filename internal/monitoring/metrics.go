package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Total booking operations by outcome",
		},
		[]string{"operation", "status"},
	)

	paymentOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_operations_total",
			Help: "Total payment operations by outcome",
		},
		[]string{"operation", "status"},
	)

	ticketSearches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_searches_total",
			Help: "Total catalog search requests",
		},
	)

	stockRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_rejections_total",
			Help: "Payments refused by the guarded stock decrement",
		},
	)

	advertiseLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advertise_limit_hits_total",
			Help: "Advertise requests refused by the cap",
		},
	)

	paymentAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payment_amount",
			Help:    "Recorded payment amounts",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

// Monitor is the process-wide metrics sink shared by the services.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) TrackBooking(operation, status string) {
	bookingOperations.WithLabelValues(operation, status).Inc()
}

func (m *Monitor) TrackPayment(operation, status string) {
	paymentOperations.WithLabelValues(operation, status).Inc()
}

func (m *Monitor) TrackSearch() {
	ticketSearches.Inc()
}

func (m *Monitor) TrackStockRejection() {
	stockRejections.Inc()
}

func (m *Monitor) TrackAdvertiseLimit() {
	advertiseLimitHits.Inc()
}

func (m *Monitor) TrackPaymentAmount(amount float64) {
	paymentAmount.Observe(amount)
}
