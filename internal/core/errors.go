package core

import "errors"

var (
	// ErrValidation indicates a value has the wrong type or shape for a
	// field. It is detected before any store write.
	ErrValidation = errors.New("validation failed")

	// ErrUnindexedField indicates a filter was requested on a field that
	// carries no index. It is detected when the filter is added, not when
	// the collection is executed.
	ErrUnindexedField = errors.New("field is not indexed")

	// ErrUniqueness indicates a write would duplicate a value on a uniquely
	// constrained field. The write is aborted.
	ErrUniqueness = errors.New("uniqueness violation")

	// ErrStoreUnavailable indicates the store could not be reached. It is
	// surfaced to the caller and never retried by this layer.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound indicates the requested instance does not exist.
	ErrNotFound = errors.New("instance not found")

	// ErrReadOnly indicates an attempt to register a model after the
	// registry was frozen.
	ErrReadOnly = errors.New("registry is read-only")
)
