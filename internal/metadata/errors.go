package metadata

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no provider has a record for the ISBN.
var ErrNotFound = errors.New("book not found in any provider")

// ProviderError represents a network or parse failure from a lookup
// provider. Lookups are not retried automatically.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s lookup failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err is a ProviderError (even when wrapped).
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
