package secrets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Loader produces a fresh snapshot of secrets.
type Loader func(ctx context.Context) (Data, error)

// minRedactLen is the shortest value RedactString will mask. Shorter values
// match too much ordinary text.
const minRedactLen = 4

// Vault holds the latest secrets snapshot and supports atomic reloading.
type Vault struct {
	mu     sync.RWMutex
	data   Data
	loader Loader
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(ctx context.Context, loader Loader) (*Vault, error) {
	data, err := loader(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{
		data:   data,
		loader: loader,
	}, nil
}

// Lookup returns the secret for key and whether it is loaded. Keys match
// case-insensitively.
func (v *Vault) Lookup(key string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.data.Get(key)
}

// Keys returns the loaded keys in sorted order.
func (v *Vault) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.data.Keys()
}

// Len returns the number of loaded secrets.
func (v *Vault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.data.Len()
}

// Reload calls the loader and swaps in the new snapshot atomically.
// If the loader returns an error, the previous snapshot is preserved.
func (v *Vault) Reload(ctx context.Context) error {
	data, err := v.loader(ctx)
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.data = data
	v.mu.Unlock()
	return nil
}

// Redacted returns a masked form of the secret for key: the first two
// characters followed by "****", or just "****" for values of up to four
// characters. Missing keys return "".
func (v *Vault) Redacted(key string) string {
	val, ok := v.Lookup(key)
	if !ok {
		return ""
	}
	return mask(val)
}

// RedactString replaces every occurrence of a loaded secret value in s with
// its masked form. Values shorter than four characters are left alone.
func (v *Vault) RedactString(s string) string {
	v.mu.RLock()
	values := make([]string, 0, v.data.Len())
	for _, e := range v.data.entries {
		if len(e.value) >= minRedactLen {
			values = append(values, e.value)
		}
	}
	v.mu.RUnlock()

	// Longest first so a value containing another is masked whole.
	sort.Slice(values, func(i, j int) bool { return len(values[i]) > len(values[j]) })
	for _, val := range values {
		s = strings.ReplaceAll(s, val, mask(val))
	}
	return s
}

func mask(val string) string {
	if len(val) <= minRedactLen {
		return "****"
	}
	return val[:2] + "****"
}
