package session

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/OCharnyshevich/amr-mesh/internal/mesh"
)

// Metrics are the Prometheus collectors of one session.
type Metrics struct {
	Operations *prometheus.CounterVec   // op, result
	Duration   *prometheus.HistogramVec // op
	Callbacks  *prometheus.CounterVec   // callback
	Blocks     prometheus.Gauge

	reg prometheus.Registerer
}

// NewMetrics builds the session collectors and registers them with reg. A
// nil reg leaves them unregistered. Registration conflicts are returned,
// never panicked on; anything registered before the conflict is removed.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amrmesh_operations_total",
			Help: "Mesh operations by result",
		}, []string{"op", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "amrmesh_operation_duration_seconds",
			Help:    "Mesh operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}, []string{"op"}),
		Callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amrmesh_callbacks_total",
			Help: "Block lifecycle callbacks invoked",
		}, []string{"callback"}),
		Blocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "amrmesh_blocks",
			Help: "Blocks currently in the mesh",
		}),
	}
	if reg == nil {
		return m, nil
	}
	collectors := m.collectors()
	for n, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, done := range collectors[:n] {
				reg.Unregister(done)
			}
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	m.reg = reg
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Operations, m.Duration, m.Callbacks, m.Blocks}
}

// Unregister removes the collectors from the registerer they were added to.
func (m *Metrics) Unregister() {
	if m.reg == nil {
		return
	}
	for _, c := range m.collectors() {
		m.reg.Unregister(c)
	}
	m.reg = nil
}

// observe records the outcome of op.
func (m *Metrics) observe(op string, err error) {
	m.Operations.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, mesh.ErrBlockNotFound):
		return "not_found"
	case errors.Is(err, mesh.ErrOutsideDomain):
		return "outside_domain"
	case errors.Is(err, mesh.ErrAtMaxLevel):
		return "max_level"
	case errors.Is(err, mesh.ErrAtBaseLevel):
		return "base_level"
	case errors.Is(err, mesh.ErrNeighborTooFine):
		return "neighbor_too_fine"
	case errors.Is(err, mesh.ErrIncompleteSiblings):
		return "incomplete_siblings"
	case errors.Is(err, mesh.ErrInvalidHandle):
		return "invalid_handle"
	default:
		return "error"
	}
}
