package module

import (
	"errors"
	"fmt"
)

// ErrBadMetadata is the sentinel wrapped by BadMetadataError.
var ErrBadMetadata = errors.New("bad module metadata")

// BadMetadataError reports a module whose metadata cannot be resolved against.
type BadMetadataError struct {
	Module string
	Reason string
}

func (e *BadMetadataError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("bad metadata: %s", e.Reason)
	}
	return fmt.Sprintf("bad metadata for %s: %s", e.Module, e.Reason)
}

func (e *BadMetadataError) Unwrap() error {
	return ErrBadMetadata
}
