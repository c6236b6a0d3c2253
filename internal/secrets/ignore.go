package secrets

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFunc reports whether the file called name is left out of a load.
type IgnoreFunc func(name string) bool

// IgnoreNames ignores files whose name equals one of names exactly.
func IgnoreNames(names ...string) IgnoreFunc {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[name]
		return ok
	}
}

// IgnorePatterns ignores files whose name matches any of the glob patterns.
func IgnorePatterns(patterns ...string) (IgnoreFunc, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid ignore pattern %q", p)
		}
	}
	return func(name string) bool {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, name); ok {
				return true
			}
		}
		return false
	}, nil
}

// IgnoreHidden ignores dot-prefixed names.
func IgnoreHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// AnyIgnore ignores a file when any of preds does. Nil preds are skipped.
func AnyIgnore(preds ...IgnoreFunc) IgnoreFunc {
	return func(name string) bool {
		for _, pred := range preds {
			if pred != nil && pred(name) {
				return true
			}
		}
		return false
	}
}
