package pods

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupQueryRegistry(t *testing.T) *SingletonRegistry {
	t.Helper()

	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.RegisterSingleton("db", Of(&mockPod{name: "db"})))
	require.NoError(t, r.RegisterSingleton("name", Of("pods")))
	require.NoError(t, r.RegisterDisposablePod("db", DisposableFunc(func(context.Context) error { return nil })))

	_, err := r.GetOrCreate(ctx, &PodDescriptor{Name: "repo", DependsOn: []string{"db"}},
		func(context.Context, *SingletonRegistry) (PodInstance, error) {
			return Of(&lifecyclePod{log: &eventLog{}}), nil
		})
	require.NoError(t, err)

	return r
}

func TestQuery(t *testing.T) {
	r := setupQueryRegistry(t)

	cached := StateCached
	all := Query(r, PodQuery{State: &cached})
	require.Len(t, all, 3)
	assert.Equal(t, "db", all[0].Name)
	assert.Equal(t, "name", all[1].Name)
	assert.Equal(t, "repo", all[2].Name)

	destroyed := StateDestroyed
	assert.Empty(t, Query(r, PodQuery{State: &destroyed}))

	notDisposable := false
	plain := Query(r, PodQuery{Disposable: &notDisposable})
	require.Len(t, plain, 1)
	assert.Equal(t, "name", plain[0].Name)

	dependents := Query(r, PodQuery{DependsOn: "db"})
	require.Len(t, dependents, 1)
	assert.Equal(t, "repo", dependents[0].Name)
}

func TestFindByType(t *testing.T) {
	r := setupQueryRegistry(t)

	results := FindByType(r, "*pods.mockPod")
	require.Len(t, results, 1)
	assert.Equal(t, "db", results[0].Name)

	assert.Len(t, FindByType(r, "string"), 1)
	assert.Empty(t, FindByType(r, "int"))
}

func TestFindDisposable(t *testing.T) {
	r := setupQueryRegistry(t)

	results := FindDisposable(r)
	require.Len(t, results, 2)
	assert.Equal(t, "db", results[0].Name)
	assert.Equal(t, "repo", results[1].Name)
	assert.True(t, results[1].Disposable)
}
