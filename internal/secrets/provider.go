// Package secrets loads configuration entries from a directory holding one
// file per secret, the layout container orchestrators use when mounting
// secrets into a container (e.g. /run/secrets).
//
// A file named "db__host" containing "localhost" becomes the entry
// "db:host" = "localhost".
package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Source configures a Provider. It is copied by New and never mutated.
type Source struct {
	// Dir is the secrets directory on the local filesystem. It is only
	// consulted when FS is nil.
	Dir string
	// Optional makes an absent directory yield an empty result instead of
	// ErrDirectoryNotFound.
	Optional bool
	// WordSeparator is replaced by Delimiter in file names. Empty selects
	// DefaultWordSeparator.
	WordSeparator string
	// Delimiter is the key-path delimiter. Empty selects KeyDelimiter.
	Delimiter string
	// Ignore excludes entries by file name.
	Ignore IgnoreFunc
	// FS replaces the physical directory, e.g. for tests or a virtual
	// directory backed by a KV bucket or a database table.
	FS fs.FS
}

// ContextFS is a directory whose lookups can be bound to a context, such
// as one backed by a remote store.
type ContextFS interface {
	fs.FS
	WithContext(ctx context.Context) fs.FS
}

// Provider reads a secrets directory into Data.
type Provider struct {
	src Source
	// nil while an optional Dir is absent; Load retries it on every call.
	fsys fs.FS
}

// New resolves the directory described by src. A required Dir that does
// not exist fails with ErrDirectoryNotFound.
func New(src Source) (*Provider, error) {
	if src.WordSeparator == "" {
		src.WordSeparator = DefaultWordSeparator
	}
	if src.Delimiter == "" {
		src.Delimiter = KeyDelimiter
	}

	p := &Provider{src: src, fsys: src.FS}
	if p.fsys != nil {
		return p, nil
	}

	fsys, err := openDir(src.Dir)
	switch {
	case err == nil:
		p.fsys = fsys
	case errors.Is(err, ErrDirectoryNotFound) && src.Optional:
	default:
		return nil, err
	}
	return p, nil
}

// Dir returns the configured directory path.
func (p *Provider) Dir() string { return p.src.Dir }

// Optional reports whether an absent directory is tolerated.
func (p *Provider) Optional() bool { return p.src.Optional }

// Loader returns p.LoadContext as a Loader for use with a Vault.
func (p *Provider) Loader() Loader { return p.LoadContext }

// Load reads every regular entry of the directory root and returns a fresh
// snapshot. Nothing is returned on error: a failed read or a duplicate key
// aborts the whole load.
func (p *Provider) Load() (Data, error) {
	return p.load(p.fsys)
}

// LoadContext is Load with the lookups of a ContextFS bound to ctx.
func (p *Provider) LoadContext(ctx context.Context) (Data, error) {
	fsys := p.fsys
	if cfs, ok := fsys.(ContextFS); ok {
		fsys = cfs.WithContext(ctx)
	}
	return p.load(fsys)
}

func (p *Provider) load(fsys fs.FS) (Data, error) {
	if fsys == nil {
		var err error
		if fsys, err = openDir(p.src.Dir); err != nil {
			if errors.Is(err, ErrDirectoryNotFound) && p.src.Optional {
				return newData(), nil
			}
			return Data{}, err
		}
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if p.src.Optional {
				return newData(), nil
			}
			return Data{}, fmt.Errorf("%w: %s", ErrDirectoryNotFound, p.location())
		}
		return Data{}, fmt.Errorf("list %s: %w", p.location(), err)
	}

	data := newData()
	for _, e := range entries {
		name := e.Name()

		dir, err := isDir(fsys, e)
		if err != nil {
			return Data{}, fmt.Errorf("stat secret %s in %s: %w", name, p.location(), err)
		}
		if dir {
			continue
		}
		if p.src.Ignore != nil && p.src.Ignore(name) {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return Data{}, fmt.Errorf("read secret %s in %s: %w", name, p.location(), err)
		}

		key := Normalize(name, p.src.WordSeparator, p.src.Delimiter)
		if err := data.add(key, string(content)); err != nil {
			return Data{}, fmt.Errorf("load %s: %w", p.location(), err)
		}
	}
	return data, nil
}

func (p *Provider) location() string {
	if p.src.Dir != "" {
		return p.src.Dir
	}
	if s, ok := p.fsys.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", p.fsys)
}

func openDir(dir string) (fs.FS, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, dir)
	}
	return os.DirFS(dir), nil
}

// isDir follows symlinks, so the "..data" link of a Kubernetes secret
// volume counts as a directory while the per-key links count as files.
func isDir(fsys fs.FS, e fs.DirEntry) (bool, error) {
	if e.IsDir() {
		return true, nil
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false, nil
	}
	info, err := fs.Stat(fsys, e.Name())
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
