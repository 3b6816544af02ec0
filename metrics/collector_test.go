package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xraph/pods"
)

type service struct {
	closeErr error
}

func (s *service) Destroy(context.Context) error { return s.closeErr }

func newRegistry(t *testing.T, c *Collector) *pods.SingletonRegistry {
	t.Helper()

	r, err := pods.New(
		pods.WithLogger(zaptest.NewLogger(t)),
		pods.WithProcessors(c),
		pods.WithSuppressedErrorHandler(c.SuppressedErrorHandler()),
	)
	require.NoError(t, err)

	return r
}

func create(t *testing.T, r *pods.SingletonRegistry, name string, closeErr error) {
	t.Helper()

	_, err := r.GetOrCreate(context.Background(), &pods.PodDescriptor{Name: name},
		func(context.Context, *pods.SingletonRegistry) (pods.PodInstance, error) {
			return pods.Of(&service{closeErr: closeErr}), nil
		})
	require.NoError(t, err)
}

func TestCollector_CountsLifecycle(t *testing.T) {
	c := NewCollector("test")
	r := newRegistry(t, c)
	ctx := context.Background()

	create(t, r, "db", nil)
	create(t, r, "cache", nil)

	// Cached requests are not creations.
	create(t, r, "db", nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.PodsCreated.WithLabelValues("db")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.PodsCreated.WithLabelValues("cache")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.PodsLive))
	assert.Equal(t, 1, testutil.CollectAndCount(c.CreationDuration))

	require.NoError(t, r.DestroySingleton(ctx, "cache"))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.PodsDestroyed.WithLabelValues("cache")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.PodsLive))

	require.NoError(t, r.DestroySingletons(ctx))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.PodsLive))
}

func TestCollector_ReadyInstancesDoNotLowerLiveGauge(t *testing.T) {
	c := NewCollector("test")
	r := newRegistry(t, c)

	require.NoError(t, r.RegisterSingleton("config", pods.Of(&service{})))
	require.NoError(t, r.DestroySingletons(context.Background()))

	assert.Equal(t, float64(1), testutil.ToFloat64(c.PodsDestroyed.WithLabelValues("config")))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.PodsLive))
}

func TestCollector_PrototypesAreNotLive(t *testing.T) {
	c := NewCollector("test")
	r := newRegistry(t, c)
	desc := &pods.PodDescriptor{Name: "request", Scope: pods.ScopePrototype}

	for i := 0; i < 2; i++ {
		_, err := r.GetOrCreate(context.Background(), desc,
			func(context.Context, *pods.SingletonRegistry) (pods.PodInstance, error) {
				return pods.Of(&service{}), nil
			})
		require.NoError(t, err)
	}

	create(t, r, "db", nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.PodsCreated.WithLabelValues("request")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.PodsLive))

	require.NoError(t, r.DestroySingletons(context.Background()))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.PodsLive))
}

func TestCollector_SuppressedErrors(t *testing.T) {
	c := NewCollector("test")
	r := newRegistry(t, c)

	create(t, r, "db", errors.New("connection reset"))

	err := r.DestroySingletons(context.Background())
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.SuppressedErrors.WithLabelValues(pods.CodeDestructionFailure)))

	c.SuppressedErrorHandler()(errors.New("plain"))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.SuppressedErrors.WithLabelValues("unknown")))
}

func TestCollector_Registry(t *testing.T) {
	c := NewCollector("pods")
	create(t, newRegistry(t, c), "db", nil)

	families, err := c.Registry().Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}

	assert.Contains(t, names, "pods_pods_created_total")
	assert.Contains(t, names, "pods_pods_live")
	assert.Contains(t, names, "pods_pod_creation_duration_seconds")
}
