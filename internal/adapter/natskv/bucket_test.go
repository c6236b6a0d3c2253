package natskv

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/secretsdir/internal/adapter/kvfs"
	"github.com/Strob0t/secretsdir/internal/secrets"
)

type fakeEntry struct {
	key   string
	value []byte
}

func (e fakeEntry) Bucket() string                  { return "SECRETS" }
func (e fakeEntry) Key() string                     { return e.key }
func (e fakeEntry) Value() []byte                   { return e.value }
func (e fakeEntry) Revision() uint64                { return 1 }
func (e fakeEntry) Created() time.Time              { return time.Unix(1700000000, 0) }
func (e fakeEntry) Delta() uint64                   { return 0 }
func (e fakeEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }

type fakeLister struct {
	ch chan string
}

func (l fakeLister) Keys() <-chan string { return l.ch }
func (l fakeLister) Stop() error         { return nil }

type fakeStore map[string]string

func (s fakeStore) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	v, ok := s[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{key: key, value: []byte(v)}, nil
}

func (s fakeStore) ListKeys(context.Context, ...jetstream.WatchOpt) (jetstream.KeyLister, error) {
	ch := make(chan string, len(s))
	for k := range s {
		ch <- k
	}
	close(ch)
	return fakeLister{ch: ch}, nil
}

func fakeBucket(s fakeStore) *kvfs.FS {
	b := &Bucket{name: "SECRETS", open: func(context.Context) (store, error) {
		return s, nil
	}}
	return kvfs.New(context.Background(), "nats kv SECRETS", b)
}

func missingBucket() *kvfs.FS {
	b := &Bucket{name: "SECRETS", open: func(context.Context) (store, error) {
		return nil, jetstream.ErrBucketNotFound
	}}
	return kvfs.New(context.Background(), "nats kv SECRETS", b)
}

func TestBucket_Keys(t *testing.T) {
	entries, err := fs.ReadDir(fakeBucket(fakeStore{"b": "2", "a": "1"}), ".")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 || entries[0].Name() != "a" || entries[1].Name() != "b" {
		t.Errorf("expected [a b], got %v", entries)
	}
}

func TestBucket_Missing(t *testing.T) {
	_, err := fs.ReadDir(missingBucket(), ".")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		t.Fatalf("expected jetstream error to be kept, got %v", err)
	}
}

func TestBucket_GetMissingKey(t *testing.T) {
	_, err := fs.ReadFile(fakeBucket(fakeStore{}), "absent")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestBucket_AsSecretsSource(t *testing.T) {
	fsys := fakeBucket(fakeStore{
		"db__host": "localhost",
		"db__port": "5432",
		"team/x":   "skipped",
	})

	p, err := secrets.New(secrets.Source{FS: fsys})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := p.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := map[string]string{"db:host": "localhost", "db:port": "5432"}
	if diff := cmp.Diff(want, data.Map()); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestBucket_MissingAsSecretsSource(t *testing.T) {
	p, err := secrets.New(secrets.Source{FS: missingBucket()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Load(); !errors.Is(err, secrets.ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}

	p, _ = secrets.New(secrets.Source{FS: missingBucket(), Optional: true})
	data, err := p.Load()
	if err != nil || data.Len() != 0 {
		t.Fatalf("expected empty optional load, got %d entries, err %v", data.Len(), err)
	}
}

func TestDial_Live(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	fsys, closeFn, err := Dial(context.Background(), url, "SECRETSDIR_TEST_ABSENT")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer closeFn()

	if _, err := fs.ReadDir(fsys, "."); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected absent bucket to report fs.ErrNotExist, got %v", err)
	}
}
