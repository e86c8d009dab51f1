package refresh_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"onrampprovider/internal/catalog"
	"onrampprovider/internal/refresh"
)

type fakeBuilder struct {
	name   string
	err    error
	builds atomic.Int64
	store  *catalog.Store
}

func newFakeBuilder(name string, err error) *fakeBuilder {
	return &fakeBuilder{name: name, err: err, store: catalog.NewStore()}
}

func (b *fakeBuilder) Name() string { return b.name }

func (b *fakeBuilder) BuildCatalog(context.Context) error {
	b.builds.Add(1)
	return b.err
}

func (b *fakeBuilder) Catalog() *catalog.Catalog { return b.store.Current() }

func TestRunOnce_BuildsEveryProvider(t *testing.T) {
	t.Parallel()

	a := newFakeBuilder("a", nil)
	b := newFakeBuilder("b", fmt.Errorf("upstream down"))

	s := refresh.New([]refresh.Builder{a, b}, time.Minute, time.Second, zap.NewNop().Sugar())
	s.RunOnce(context.Background())

	// A failing build never blocks the other provider's rebuild.
	require.Equal(t, int64(1), a.builds.Load())
	require.Equal(t, int64(1), b.builds.Load())
}

func TestStart_BuildsImmediatelyThenOnTicks(t *testing.T) {
	t.Parallel()

	b := newFakeBuilder("a", nil)
	s := refresh.New([]refresh.Builder{b}, 10*time.Millisecond, time.Second, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return b.builds.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}
