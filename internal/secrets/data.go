package secrets

import (
	"fmt"
	"sort"
)

// Data is a snapshot of loaded secrets. Keys compare case-insensitively
// (ASCII); the casing of the first insertion is kept for Keys and Map.
// The zero value is an empty snapshot.
type Data struct {
	entries map[string]entry
}

type entry struct {
	key   string
	value string
}

func newData() Data {
	return Data{entries: make(map[string]entry)}
}

// add inserts key. It never overwrites: a key that folds to an existing one
// returns ErrDuplicateKey.
func (d Data) add(key, value string) error {
	folded := foldKey(key)
	if prev, ok := d.entries[folded]; ok {
		return fmt.Errorf("%w: %q collides with %q", ErrDuplicateKey, key, prev.key)
	}
	d.entries[folded] = entry{key: key, value: value}
	return nil
}

// Get returns the value stored under key, ignoring ASCII case.
func (d Data) Get(key string) (string, bool) {
	e, ok := d.entries[foldKey(key)]
	return e.value, ok
}

// Len returns the number of entries.
func (d Data) Len() int {
	return len(d.entries)
}

// Keys returns all keys in sorted order.
func (d Data) Keys() []string {
	keys := make([]string, 0, len(d.entries))
	for _, e := range d.entries {
		keys = append(keys, e.key)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the entries as a plain map.
func (d Data) Map() map[string]string {
	m := make(map[string]string, len(d.entries))
	for _, e := range d.entries {
		m[e.key] = e.value
	}
	return m
}

// foldKey lowercases ASCII letters only.
func foldKey(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

// FromMap builds a snapshot from m. Keys of m that differ only by ASCII
// case fail with ErrDuplicateKey.
func FromMap(m map[string]string) (Data, error) {
	d := newData()
	for k, v := range m {
		if err := d.add(k, v); err != nil {
			return Data{}, err
		}
	}
	return d, nil
}
