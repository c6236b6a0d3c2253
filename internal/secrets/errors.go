package secrets

import "errors"

// ErrDirectoryNotFound indicates the secrets directory is absent and the
// source is not optional.
var ErrDirectoryNotFound = errors.New("secrets directory not found")

// ErrDuplicateKey indicates two entries normalized to the same key.
var ErrDuplicateKey = errors.New("duplicate secret key")
