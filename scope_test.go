package pods

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleScope_GetCreatesOnce(t *testing.T) {
	s := NewSimpleScope()
	ctx := context.Background()

	var calls atomic.Int32
	factory := func(context.Context) (any, error) {
		calls.Add(1)
		return &mockPod{name: "request"}, nil
	}

	first, err := s.Get(ctx, "request", factory)
	require.NoError(t, err)

	second, err := s.Get(ctx, "request", factory)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSimpleScope_GetErrors(t *testing.T) {
	s := NewSimpleScope()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing", nil)
	assert.True(t, IsLookup(err))

	boom := errors.New("boom")
	_, err = s.Get(ctx, "failing", func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	// A failed factory binds nothing.
	_, ok := s.Remove(ctx, "failing")
	assert.False(t, ok)
}

func TestSimpleScope_RemoveSkipsCallback(t *testing.T) {
	s := NewSimpleScope()
	ctx := context.Background()

	_, err := s.Get(ctx, "session", func(context.Context) (any, error) { return "value", nil })
	require.NoError(t, err)

	ran := false
	s.RegisterDestructionCallback("session", func() { ran = true })

	v, ok := s.Remove(ctx, "session")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	require.NoError(t, s.End())
	assert.False(t, ran)
}

func TestSimpleScope_EndReverseOrder(t *testing.T) {
	s := NewSimpleScope()
	ctx := context.Background()
	log := &eventLog{}

	for _, name := range []string{"first", "second", "third"} {
		_, err := s.Get(ctx, name, func(context.Context) (any, error) { return name, nil })
		require.NoError(t, err)

		s.RegisterDestructionCallback(name, func() { log.add(name) })
	}

	s.RegisterDestructionCallback("never-created", func() { log.add("never-created") })

	require.NoError(t, s.End())
	assert.Equal(t, []string{"third", "second", "first", "never-created"}, log.all())

	assert.ErrorIs(t, s.End(), ErrScopeEnded)

	_, err := s.Get(ctx, "first", func(context.Context) (any, error) { return "again", nil })
	assert.ErrorIs(t, err, ErrScopeEnded)
}

func TestSimpleScope_EndCollectsPanics(t *testing.T) {
	s := NewSimpleScope()
	ctx := context.Background()

	_, err := s.Get(ctx, "fragile", func(context.Context) (any, error) { return "v", nil })
	require.NoError(t, err)

	s.RegisterDestructionCallback("fragile", func() { panic("boom") })

	err = s.End()
	require.Error(t, err)
	assert.Equal(t, CodeDestructionFailure, ErrorCode(err))
	assert.Equal(t, "fragile", PodName(err))
}

func TestSimpleScope_ContextualObjects(t *testing.T) {
	s := NewSimpleScope()
	other := NewSimpleScope()

	assert.NotEmpty(t, s.ConversationID())
	assert.NotEqual(t, s.ConversationID(), other.ConversationID())

	id, ok := s.ResolveContextualObject("conversationId")
	require.True(t, ok)
	assert.Equal(t, s.ConversationID(), id)

	_, ok = s.ResolveContextualObject("request")
	assert.False(t, ok)

	s.SetContextualObject("request", "GET /health")
	v, ok := s.ResolveContextualObject("request")
	require.True(t, ok)
	assert.Equal(t, "GET /health", v)
}

func TestSingletonScope_Adapter(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	scope := r.SingletonScope()

	v, err := scope.Get(ctx, "cache", func(context.Context) (any, error) {
		return &mockPod{name: "cache"}, nil
	})
	require.NoError(t, err)

	cached, err := r.GetSingleton(ctx, "cache", nil)
	require.NoError(t, err)
	assert.Same(t, v, cached)

	ran := false
	scope.RegisterDestructionCallback("cache", func() { ran = true })

	removed, ok := scope.Remove(ctx, "cache")
	require.True(t, ok)
	assert.Same(t, v, removed)
	assert.True(t, ran)
	assert.Equal(t, StateDestroyed, r.State("cache"))

	_, ok = scope.ResolveContextualObject("conversationId")
	assert.False(t, ok)
	assert.Empty(t, scope.ConversationID())

	same, ok := r.Scope(ScopeSingleton)
	require.True(t, ok)
	assert.Equal(t, scope, same)
}
