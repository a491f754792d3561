package rpcschema

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// contractMetrics counts contract checks. A nil *contractMetrics is a valid
// no-op.
type contractMetrics struct {
	checks  *prometheus.CounterVec
	methods prometheus.Gauge
}

func newContractMetrics(reg prometheus.Registerer) *contractMetrics {
	checks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rpcschema",
			Subsystem: "contract",
			Name:      "checks_total",
			Help:      "Params and reply validations by method, kind and result.",
		},
		[]string{"method", "kind", "result"},
	)
	methods := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rpcschema",
			Subsystem: "registry",
			Name:      "methods",
			Help:      "Registered method contracts.",
		},
	)
	return &contractMetrics{
		checks:  registerOrReuse(reg, checks).(*prometheus.CounterVec),
		methods: registerOrReuse(reg, methods).(prometheus.Gauge),
	}
}

// registerOrReuse lets several registries report through one Registerer.
func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

func (m *contractMetrics) observe(method string, kind ContractKind, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "invalid"
	}
	m.checks.WithLabelValues(method, string(kind), result).Inc()
}

func (m *contractMetrics) setMethods(n int) {
	if m == nil {
		return
	}
	m.methods.Set(float64(n))
}
