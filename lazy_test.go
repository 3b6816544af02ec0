package pods

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazy_RetriesUntilResolved(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	lazy := NewLazy[*mockPod](r, "db")

	_, err := lazy.Get(ctx)
	require.Error(t, err)
	assert.True(t, IsLookup(err))
	assert.False(t, lazy.IsResolved())

	var calls atomic.Int32
	require.NoError(t, r.RegisterSingletonFactory("db", podFactory("db", &calls)))

	first, err := lazy.Get(ctx)
	require.NoError(t, err)
	assert.True(t, lazy.IsResolved())
	assert.Equal(t, "db", lazy.Name())

	second := lazy.MustGet(ctx)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLazy_MustGetPanics(t *testing.T) {
	r := newTestRegistry(t)
	lazy := NewLazy[*mockPod](r, "missing")

	assert.Panics(t, func() { lazy.MustGet(context.Background()) })
}

func TestOptionalLazy(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	missing := NewOptionalLazy[*mockPod](r, "cache")
	v, err := missing.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.False(t, missing.IsFound())
	assert.Equal(t, "cache", missing.Name())

	pod := &mockPod{name: "cache"}
	require.NoError(t, r.RegisterSingleton("cache", Of(pod)))

	v, err = missing.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, pod, v)
	assert.True(t, missing.IsFound())
}

func TestOptionalLazy_PropagatesFailures(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, r.RegisterSingletonFactory("broken", func(context.Context, *SingletonRegistry) (PodInstance, error) {
		return PodInstance{}, boom
	}))

	_, err := NewOptionalLazy[*mockPod](r, "broken").Get(ctx)
	require.Error(t, err)
	assert.True(t, IsCreationFailure(err))

	// A missing dependency of an existing pod is not "optional".
	require.NoError(t, r.RegisterSingletonFactory("wrapper", func(ctx context.Context, r *SingletonRegistry) (PodInstance, error) {
		if _, err := r.GetSingleton(ctx, "absent", nil); err != nil {
			return PodInstance{}, err
		}

		return Of(&mockPod{}), nil
	}))

	_, err = NewOptionalLazy[*mockPod](r, "wrapper").Get(ctx)
	require.Error(t, err)
	assert.True(t, IsLookup(err))
	assert.Equal(t, "wrapper", PodName(err))
}

func TestProvider_CreatesEveryTime(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	log := &eventLog{}

	provider := NewProvider[*lifecyclePod](r, PodDescriptor{Name: "worker", Scope: ScopeSingleton},
		func(context.Context, *SingletonRegistry) (PodInstance, error) {
			return Of(&lifecyclePod{log: log}), nil
		})

	first, err := provider.Provide(ctx)
	require.NoError(t, err)

	second := provider.MustProvide(ctx)
	assert.NotSame(t, first, second)
	assert.Equal(t, "worker", provider.Name())
	assert.Equal(t, []string{"initialize", "initialize"}, log.all())
	assert.False(t, r.ContainsSingleton("worker"))
}

func TestProvider_TypeMismatch(t *testing.T) {
	r := newTestRegistry(t)

	provider := NewProvider[*lifecyclePod](r, PodDescriptor{Name: "worker"},
		func(context.Context, *SingletonRegistry) (PodInstance, error) {
			return Of(&mockPod{}), nil
		})

	_, err := provider.Provide(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeTypeMismatch, ErrorCode(err))
	assert.Panics(t, func() { provider.MustProvide(context.Background()) })
}
