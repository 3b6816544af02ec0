// Package metrics exports pod lifecycle metrics to Prometheus.
package metrics

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/pods"
)

// Collector is a lifecycle processor that counts pod creations and
// destructions. Add it with pods.WithProcessors and hand SuppressedErrorHandler
// to pods.WithSuppressedErrorHandler to count suppressed errors as well.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	PodsCreated      *prometheus.CounterVec
	PodsDestroyed    *prometheus.CounterVec
	PodsLive         prometheus.Gauge
	CreationDuration prometheus.Histogram
	SuppressedErrors *prometheus.CounterVec

	started map[string]time.Time
	live    map[string]int
	mu      sync.Mutex
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	podsCreated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pods_created_total",
			Help:      "Total number of pods that finished initialization",
		},
		[]string{"pod"},
	)

	podsDestroyed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pods_destroyed_total",
			Help:      "Total number of pods destroyed",
		},
		[]string{"pod"},
	)

	podsLive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pods_live",
			Help:      "Number of created singletons not destroyed yet",
		},
	)

	creationDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pod_creation_duration_seconds",
			Help:      "Time from instantiation to the end of initialization",
			Buckets:   prometheus.DefBuckets,
		},
	)

	suppressed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suppressed_errors_total",
			Help:      "Total number of suppressed errors by code",
		},
		[]string{"code"},
	)

	registry.MustRegister(
		podsCreated,
		podsDestroyed,
		podsLive,
		creationDuration,
		suppressed,
	)

	return &Collector{
		registry:         registry,
		PodsCreated:      podsCreated,
		PodsDestroyed:    podsDestroyed,
		PodsLive:         podsLive,
		CreationDuration: creationDuration,
		SuppressedErrors: suppressed,
		started:          make(map[string]time.Time),
		live:             make(map[string]int),
	}
}

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// SuppressedErrorHandler returns a handler counting suppressed errors by code.
func (c *Collector) SuppressedErrorHandler() func(error) {
	return func(err error) {
		code := pods.ErrorCode(err)
		if code == "" {
			code = "unknown"
		}

		c.SuppressedErrors.WithLabelValues(code).Inc()
	}
}

// BeforeInstantiation starts the creation timer for name.
func (c *Collector) BeforeInstantiation(_ context.Context, _ reflect.Type, name string) (any, error) {
	c.mu.Lock()
	c.started[name] = time.Now()
	c.mu.Unlock()

	return nil, nil
}

// AfterInstantiation never skips population.
func (c *Collector) AfterInstantiation(context.Context, any, string) (bool, error) {
	return true, nil
}

// ProcessProperties passes the property values through.
func (c *Collector) ProcessProperties(_ context.Context, pv pods.PropertyValues, _ any, _ string) (pods.PropertyValues, error) {
	return pv, nil
}

// BeforeInitialization keeps the pod.
func (c *Collector) BeforeInitialization(_ context.Context, pod any, _ string) (any, error) {
	return pod, nil
}

// AfterInitialization records a finished creation. Only singletons count
// towards the live gauge; other scopes are never destroyed by the registry.
func (c *Collector) AfterInitialization(ctx context.Context, pod any, name string) (any, error) {
	singleton := pods.CreationScope(ctx) == pods.ScopeSingleton

	c.mu.Lock()
	start, ok := c.started[name]
	delete(c.started, name)
	if singleton {
		c.live[name]++
	}
	c.mu.Unlock()

	if ok {
		c.CreationDuration.Observe(time.Since(start).Seconds())
	}

	c.PodsCreated.WithLabelValues(name).Inc()

	if singleton {
		c.PodsLive.Inc()
	}

	return pod, nil
}

// BeforeDestruction records a destroyed pod. Pods registered as ready
// instances were never counted as created and do not lower the live gauge.
func (c *Collector) BeforeDestruction(_ context.Context, _ any, name string) error {
	c.PodsDestroyed.WithLabelValues(name).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live[name] > 0 {
		c.live[name]--
		c.PodsLive.Dec()
	}

	return nil
}

// AfterDestruction implements pods.DestructionAwareProcessor.
func (c *Collector) AfterDestruction(context.Context, any, string) error {
	return nil
}

// RequiresDestruction reports true: every pod is counted.
func (c *Collector) RequiresDestruction(any) bool {
	return true
}

var (
	_ pods.InitializationProcessor     = (*Collector)(nil)
	_ pods.InstantiationAwareProcessor = (*Collector)(nil)
	_ pods.DestructionAwareProcessor   = (*Collector)(nil)
)
