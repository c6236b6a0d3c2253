// Package natskv serves secrets from a NATS JetStream KeyValue bucket,
// exposed as a read-only directory through kvfs.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/secretsdir/internal/adapter/kvfs"
)

// store is the subset of jetstream.KeyValue used by Bucket.
type store interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	ListKeys(ctx context.Context, opts ...jetstream.WatchOpt) (jetstream.KeyLister, error)
}

type openFunc func(ctx context.Context) (store, error)

// Bucket is a kvfs.Source over one KV bucket. The bucket is looked up on
// every call, so a bucket created later is picked up and a deleted one
// reports fs.ErrNotExist.
type Bucket struct {
	name string
	open openFunc
}

// NewBucket returns a Bucket named name in js.
func NewBucket(js jetstream.JetStream, name string) *Bucket {
	return &Bucket{name: name, open: func(ctx context.Context) (store, error) {
		return js.KeyValue(ctx, name)
	}}
}

// New returns a secrets directory over the bucket called name.
func New(ctx context.Context, js jetstream.JetStream, name string) *kvfs.FS {
	return kvfs.New(ctx, "nats kv "+name, NewBucket(js, name))
}

// Dial connects to NATS at url and returns a secrets directory over bucket
// together with a function closing the connection.
func Dial(ctx context.Context, url, bucket string) (*kvfs.FS, func(), error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream init: %w", err)
	}

	return New(ctx, js, bucket), nc.Close, nil
}

// Keys implements kvfs.Source.
func (b *Bucket) Keys(ctx context.Context) ([]string, error) {
	kv, err := b.open(ctx)
	if err != nil {
		return nil, mapErr(err)
	}

	lister, err := kv.ListKeys(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}
	return keys, nil
}

// Get implements kvfs.Source.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	kv, err := b.open(ctx)
	if err != nil {
		return nil, time.Time{}, mapErr(err)
	}

	entry, err := kv.Get(ctx, key)
	if err != nil {
		return nil, time.Time{}, mapErr(err)
	}
	return entry.Value(), entry.Created(), nil
}

// mapErr keeps the jetstream error but makes it match fs.ErrNotExist.
func mapErr(err error) error {
	if errors.Is(err, jetstream.ErrBucketNotFound) || errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("%w: %w", fs.ErrNotExist, err)
	}
	return err
}
