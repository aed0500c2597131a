package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics содержит метрики операций корзины и движения стока.
// Нулевой указатель безопасен: все методы при nil ничего не делают,
// так что тесты могут не заводить registry.
type CartMetrics struct {
	operations  *prometheus.CounterVec
	opDuration  *prometheus.HistogramVec
	conflicts   prometheus.Counter
	stockMoved  *prometheus.CounterVec
	activeCarts prometheus.Gauge
}

// NewCartMetrics регистрирует метрики в default registry.
func NewCartMetrics() *CartMetrics {
	return newCartMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCartMetricsWithRegisterer(registerer prometheus.Registerer) *CartMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CartMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "minimarket_cart_operations_total",
			Help: "Total number of cart operations grouped by operation and result",
		}, []string{"op", "result"}),
		opDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "minimarket_cart_operation_seconds",
			Help:    "Duration of cart operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"op"}),
		conflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "minimarket_cart_conflict_retries_total",
			Help: "Total number of cart transaction conflicts that triggered a retry",
		}),
		stockMoved: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "minimarket_stock_units_moved_total",
			Help: "Units of stock moved between available and reserved, by direction",
		}, []string{"direction"}),
		activeCarts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "minimarket_active_carts",
			Help: "Number of pending orders currently acting as carts",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOperation фиксирует результат и длительность операции корзины.
func (m *CartMetrics) RecordOperation(op string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.opDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordConflictRetry фиксирует конфликт транзакций, ушедший на повтор.
func (m *CartMetrics) RecordConflictRetry() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

// RecordStockReserved фиксирует списание стока под открытый заказ.
func (m *CartMetrics) RecordStockReserved(units int) {
	if m == nil || units <= 0 {
		return
	}
	m.stockMoved.WithLabelValues("reserved").Add(float64(units))
}

// RecordStockReturned фиксирует возврат стока товару.
func (m *CartMetrics) RecordStockReturned(units int) {
	if m == nil || units <= 0 {
		return
	}
	m.stockMoved.WithLabelValues("returned").Add(float64(units))
}

// CartOpened/CartClosed двигают gauge активных корзин.
func (m *CartMetrics) CartOpened() {
	if m == nil {
		return
	}
	m.activeCarts.Inc()
}

func (m *CartMetrics) CartClosed() {
	if m == nil {
		return
	}
	m.activeCarts.Dec()
}
