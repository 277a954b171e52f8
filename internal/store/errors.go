package store

import "errors"

// Sentinel errors returned by the store layer. Callers match them with
// [errors.Is].
var (
	// ErrMergeIntegrity is returned when a foreign-key check after a merge
	// pass finds a dangling reference. The merged store must be discarded
	// wholesale; nothing in it can be trusted.
	ErrMergeIntegrity = errors.New("foreign key integrity violation after merge")
)
