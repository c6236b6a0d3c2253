package secrets

import "strings"

// KeyDelimiter separates sections of a hierarchical configuration key,
// e.g. "db:host".
const KeyDelimiter = ":"

// DefaultWordSeparator stands in for KeyDelimiter inside file names.
const DefaultWordSeparator = "__"

// Normalize turns a file name into a configuration key by replacing every
// occurrence of sep with delim. Names without sep, and an empty sep, leave
// the name unchanged.
func Normalize(name, sep, delim string) string {
	if sep == "" || !strings.Contains(name, sep) {
		return name
	}
	return strings.ReplaceAll(name, sep, delim)
}
