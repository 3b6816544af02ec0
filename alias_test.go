package pods

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasRegistry_RegisterAndResolve(t *testing.T) {
	a := NewAliasRegistry(true)

	require.NoError(t, a.RegisterAlias("dataSource", "db"))
	require.NoError(t, a.RegisterAlias("db", "primaryDb"))

	assert.True(t, a.IsAlias("db"))
	assert.False(t, a.IsAlias("dataSource"))
	assert.True(t, a.HasAlias("dataSource", "primaryDb"))
	assert.Equal(t, "dataSource", a.CanonicalName("primaryDb"))
	assert.Equal(t, "unrelated", a.CanonicalName("unrelated"))
	assert.Equal(t, []string{"db", "primaryDb"}, a.Aliases("dataSource"))

	// Same pair again is a no-op.
	require.NoError(t, a.RegisterAlias("dataSource", "db"))
	assert.Equal(t, []string{"db", "primaryDb"}, a.Aliases("dataSource"))
}

func TestAliasRegistry_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		alias  string
		check  func(error) bool
	}{
		{"empty target", "", "x", func(err error) bool { return errors.Is(err, ErrConfiguration) }},
		{"empty alias", "x", "", func(err error) bool { return errors.Is(err, ErrConfiguration) }},
		{"direct cycle", "b", "a", IsCircularCreation},
		{"indirect cycle", "c", "a", IsCircularCreation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAliasRegistry(true)
			require.NoError(t, a.RegisterAlias("a", "b"))
			require.NoError(t, a.RegisterAlias("b", "c"))

			err := a.RegisterAlias(tt.target, tt.alias)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestAliasRegistry_CycleMessageNamesBothEnds(t *testing.T) {
	a := NewAliasRegistry(true)
	require.NoError(t, a.RegisterAlias("a", "b"))

	err := a.RegisterAlias("b", "a")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "'a'"))
	assert.True(t, strings.Contains(err.Error(), "'b'"))
}

func TestAliasRegistry_Overriding(t *testing.T) {
	allow := NewAliasRegistry(true)
	require.NoError(t, allow.RegisterAlias("first", "name"))
	require.NoError(t, allow.RegisterAlias("second", "name"))
	assert.Equal(t, "second", allow.CanonicalName("name"))

	deny := NewAliasRegistry(false)
	require.NoError(t, deny.RegisterAlias("first", "name"))

	err := deny.RegisterAlias("second", "name")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Equal(t, "first", deny.CanonicalName("name"))
}

func TestAliasRegistry_SelfAliasRemovesEntry(t *testing.T) {
	a := NewAliasRegistry(true)
	require.NoError(t, a.RegisterAlias("other", "name"))

	require.NoError(t, a.RegisterAlias("name", "name"))
	assert.False(t, a.IsAlias("name"))
	assert.Equal(t, "name", a.CanonicalName("name"))
}

func TestAliasRegistry_RemoveAlias(t *testing.T) {
	a := NewAliasRegistry(true)
	require.NoError(t, a.RegisterAlias("db", "database"))

	require.NoError(t, a.RemoveAlias("database"))
	assert.False(t, a.IsAlias("database"))

	err := a.RemoveAlias("database")
	require.Error(t, err)
	assert.True(t, IsLookup(err))
}

func TestAliasRegistry_ResolveAliases(t *testing.T) {
	a := NewAliasRegistry(true)
	require.NoError(t, a.RegisterAlias("${db}", "${db}-alias"))
	require.NoError(t, a.RegisterAlias("cache", "${drop}"))
	require.NoError(t, a.RegisterAlias("queue", "${same}"))

	values := map[string]string{
		"${db}":       "postgres",
		"${db}-alias": "pg",
		"${drop}":     "",
		"${same}":     "queue",
	}

	require.NoError(t, a.ResolveAliases(func(s string) string {
		if v, ok := values[s]; ok {
			return v
		}

		return s
	}))

	assert.Equal(t, "postgres", a.CanonicalName("pg"))
	assert.False(t, a.IsAlias("${db}-alias"))
	assert.False(t, a.IsAlias("${drop}"))
	assert.False(t, a.IsAlias("${same}"))
	assert.False(t, a.IsAlias("queue"))
}

func TestAliasRegistry_ResolveAliasesConflict(t *testing.T) {
	a := NewAliasRegistry(true)
	require.NoError(t, a.RegisterAlias("one", "alias"))
	require.NoError(t, a.RegisterAlias("two", "${alias}"))

	err := a.ResolveAliases(func(s string) string {
		if s == "${alias}" {
			return "alias"
		}

		return s
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	assert.True(t, errors.Is(a.ResolveAliases(nil), ErrConfiguration))
}

func TestAliasRegistry_ResolveAliasesDuplicateDropped(t *testing.T) {
	a := NewAliasRegistry(true)
	require.NoError(t, a.RegisterAlias("db", "alias"))
	require.NoError(t, a.RegisterAlias("db", "${alias}"))

	require.NoError(t, a.ResolveAliases(func(s string) string {
		if s == "${alias}" {
			return "alias"
		}

		return s
	}))

	assert.Equal(t, []string{"alias"}, a.Aliases("db"))
}

func TestAliasRegistry_ResolveAliasesRejectsCycles(t *testing.T) {
	tests := []struct {
		name    string
		setup   [][2]string
		rewrite map[string]string
		lookup  string
		want    string
	}{
		{
			name:    "target rewritten into own chain",
			setup:   [][2]string{{"t", "a"}, {"a", "b"}},
			rewrite: map[string]string{"t": "b"},
			lookup:  "b",
			want:    "t",
		},
		{
			name:    "alias rewritten onto target of its target",
			setup:   [][2]string{{"x", "y"}, {"y", "${p}"}},
			rewrite: map[string]string{"${p}": "x"},
			lookup:  "${p}",
			want:    "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAliasRegistry(true)
			for _, pair := range tt.setup {
				require.NoError(t, a.RegisterAlias(pair[0], pair[1]))
			}

			err := a.ResolveAliases(func(s string) string {
				if v, ok := tt.rewrite[s]; ok {
					return v
				}

				return s
			})
			require.Error(t, err)
			assert.True(t, IsCircularCreation(err), "unexpected error: %v", err)

			// The graph is left acyclic, so resolution terminates.
			assert.Equal(t, tt.want, a.CanonicalName(tt.lookup))
		})
	}
}

func TestAliasRegistry_ResolveAliasesRewritesTarget(t *testing.T) {
	a := NewAliasRegistry(true)
	require.NoError(t, a.RegisterAlias("${db}", "primary"))
	require.NoError(t, a.RegisterAlias("db", "replica"))

	require.NoError(t, a.ResolveAliases(func(s string) string {
		if s == "${db}" {
			return "db"
		}

		return s
	}))

	assert.Equal(t, "db", a.CanonicalName("primary"))
	assert.Equal(t, []string{"primary", "replica"}, a.Aliases("db"))
}
