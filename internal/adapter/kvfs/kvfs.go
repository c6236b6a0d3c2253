// Package kvfs presents a flat key/value collection as a read-only fs.FS so
// it can stand in for a secrets directory. Each key is a file in the root;
// keys containing "/" show up as a directory named after their first
// segment and are not readable through the root.
package kvfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"sort"
	"strings"
	"time"
)

// Source is a key/value collection. Both methods return an error wrapping
// fs.ErrNotExist when the collection itself is absent; Get also does so
// for an absent key.
type Source interface {
	Keys(ctx context.Context) ([]string, error)
	Get(ctx context.Context, key string) (value []byte, modTime time.Time, err error)
}

// FS implements fs.FS, fs.ReadDirFS and fs.ReadFileFS over a Source.
type FS struct {
	ctx  context.Context
	name string
	src  Source
}

// New returns an FS over src. name identifies the collection in errors.
// ctx bounds every lookup made through the FS.
func New(ctx context.Context, name string, src Source) *FS {
	return &FS{ctx: ctx, name: name, src: src}
}

// WithContext returns a copy of f whose lookups are bound to ctx.
func (f *FS) WithContext(ctx context.Context) fs.FS {
	return &FS{ctx: ctx, name: f.name, src: f.src}
}

// Name returns the collection name.
func (f *FS) Name() string { return f.name }

// String implements fmt.Stringer.
func (f *FS) String() string { return f.name }

// Open implements fs.FS.
func (f *FS) Open(name string) (fs.File, error) {
	if name == "." {
		entries, err := f.ReadDir(name)
		if err != nil {
			return nil, err
		}
		return &dir{info: dirInfo("."), entries: entries}, nil
	}

	data, info, err := f.get("open", name)
	if err != nil {
		return nil, err
	}
	return &file{info: info, r: bytes.NewReader(data)}, nil
}

// ReadDir implements fs.ReadDirFS. Only the root can be listed.
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name != "." {
		if !fs.ValidPath(name) {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
		}
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}

	keys, err := f.src.Keys(f.ctx)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: f.name, Err: err}
	}

	// A flat key is a file even when nested keys share its first segment.
	isFile := make(map[string]bool, len(keys))
	for _, key := range keys {
		name, nested := key, false
		if i := strings.IndexByte(key, '/'); i >= 0 {
			name, nested = key[:i], true
		}
		if name == "" {
			continue
		}
		isFile[name] = isFile[name] || !nested
	}

	entries := make([]fs.DirEntry, 0, len(isFile))
	for name, file := range isFile {
		if file {
			entries = append(entries, fs.FileInfoToDirEntry(fileInfo{name: name}))
		} else {
			entries = append(entries, fs.FileInfoToDirEntry(dirInfo(name)))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// ReadFile implements fs.ReadFileFS.
func (f *FS) ReadFile(name string) ([]byte, error) {
	data, _, err := f.get("read", name)
	return data, err
}

func (f *FS) get(op, name string) ([]byte, fileInfo, error) {
	if !fs.ValidPath(name) || name == "." || strings.Contains(name, "/") {
		return nil, fileInfo{}, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}

	data, modTime, err := f.src.Get(f.ctx, name)
	if err != nil {
		return nil, fileInfo{}, &fs.PathError{Op: op, Path: name, Err: err}
	}
	return data, fileInfo{name: name, size: int64(len(data)), modTime: modTime}, nil
}

type fileInfo struct {
	name    string
	size    int64
	modTime time.Time
	dir     bool
}

func dirInfo(name string) fileInfo { return fileInfo{name: name, dir: true} }

func (i fileInfo) Name() string       { return i.name }
func (i fileInfo) Size() int64        { return i.size }
func (i fileInfo) ModTime() time.Time { return i.modTime }
func (i fileInfo) IsDir() bool        { return i.dir }
func (i fileInfo) Sys() any           { return nil }

func (i fileInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

type file struct {
	info fileInfo
	r    *bytes.Reader
}

func (f *file) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *file) Read(b []byte) (int, error) { return f.r.Read(b) }
func (f *file) Close() error               { return nil }

type dir struct {
	info    fileInfo
	entries []fs.DirEntry
	offset  int
}

func (d *dir) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *dir) Close() error               { return nil }

func (d *dir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.info.name, Err: errors.New("is a directory")}
}

// ReadDir implements fs.ReadDirFile.
func (d *dir) ReadDir(n int) ([]fs.DirEntry, error) {
	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	d.offset += n
	return rest[:n], nil
}
