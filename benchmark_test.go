package pods

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkGetSingleton_Cached(b *testing.B) {
	r, _ := New()
	ctx := context.Background()
	_ = r.RegisterSingleton("db", Of(&mockPod{name: "db"}))

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = r.GetSingleton(ctx, "db", nil)
	}
}

func BenchmarkGetSingleton_CachedParallel(b *testing.B) {
	r, _ := New()
	_ = r.RegisterSingleton("db", Of(&mockPod{name: "db"}))

	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			_, _ = r.GetSingleton(ctx, "db", nil)
		}
	})
}

func BenchmarkGet_Typed(b *testing.B) {
	r, _ := New()
	ctx := context.Background()
	_ = r.RegisterSingleton("db", Of(&mockPod{name: "db"}))

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = Get[*mockPod](ctx, r, "db")
	}
}

func BenchmarkGetSingleton_Create(b *testing.B) {
	ctx := context.Background()
	factory := podFactory("svc", nil)

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		r, _ := New()
		b.StartTimer()

		_, _ = r.GetSingleton(ctx, "svc", factory)
	}
}

func BenchmarkGetOrCreate_Prototype(b *testing.B) {
	r, _ := New()
	ctx := context.Background()
	desc := &PodDescriptor{Name: "worker", Scope: ScopePrototype}
	factory := podFactory("worker", nil)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = r.GetOrCreate(ctx, desc, factory)
	}
}

func BenchmarkDestroySingletons(b *testing.B) {
	ctx := context.Background()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		r, _ := New()
		for j := 0; j < 50; j++ {
			name := fmt.Sprintf("pod-%d", j)
			_ = r.RegisterSingleton(name, Of(&mockPod{name: name}))
			_ = r.RegisterDisposablePod(name, DisposableFunc(func(context.Context) error { return nil }))
			if j > 0 {
				r.RegisterDependentPod(fmt.Sprintf("pod-%d", j-1), name)
			}
		}
		b.StartTimer()

		_ = r.DestroySingletons(ctx)
	}
}
