package pods

import (
	"context"
	"sync"

	"github.com/xraph/go-utils/di"
	"go.uber.org/multierr"
)

// podDisposer destroys one fully created pod: its Destroyer/Disposable
// contracts and declared destroy methods, exactly once.
type podDisposer struct {
	name    string
	pod     any
	desc    *PodDescriptor
	invoker *LifecycleInvoker
	once    sync.Once
}

func newPodDisposer(name string, pod any, desc *PodDescriptor, invoker *LifecycleInvoker) *podDisposer {
	return &podDisposer{
		name:    name,
		pod:     pod,
		desc:    desc,
		invoker: invoker,
	}
}

// Destroy implements DisposablePod.
func (d *podDisposer) Destroy(ctx context.Context) error {
	var err error

	d.once.Do(func() {
		err = d.invoker.InvokeDestroyMethods(ctx, d.name, d.pod, d.desc)
	})

	return err
}

// needsDestruction reports whether pod has anything to run on teardown.
func needsDestruction(pod any, desc *PodDescriptor, pipeline *Pipeline) bool {
	switch pod.(type) {
	case Destroyer, di.Disposable:
		return true
	}

	if desc != nil && len(desc.DestroyMethods) > 0 {
		return true
	}

	return pipeline != nil && pipeline.RequiresDestruction(pod)
}

// compositeDisposable runs several disposables in registration order.
type compositeDisposable []DisposablePod

// Destroy implements DisposablePod.
func (c compositeDisposable) Destroy(ctx context.Context) error {
	var err error

	for _, d := range c {
		err = multierr.Append(err, d.Destroy(ctx))
	}

	return err
}
