package kvfs

import (
	"context"
	"time"

	"github.com/Strob0t/secretsdir/internal/resilience"
)

type guarded struct {
	src Source
	b   *resilience.Breaker
}

// Guard routes every call to src through b.
func Guard(src Source, b *resilience.Breaker) Source {
	return &guarded{src: src, b: b}
}

// WithBreaker returns a copy of f whose lookups go through b.
func (f *FS) WithBreaker(b *resilience.Breaker) *FS {
	return &FS{ctx: f.ctx, name: f.name, src: Guard(f.src, b)}
}

func (g *guarded) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := g.b.Execute(func() error {
		var err error
		keys, err = g.src.Keys(ctx)
		return err
	})
	return keys, err
}

func (g *guarded) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	var (
		value   []byte
		modTime time.Time
	)
	err := g.b.Execute(func() error {
		var err error
		value, modTime, err = g.src.Get(ctx, key)
		return err
	})
	return value, modTime, err
}
