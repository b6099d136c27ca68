package analyses

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyText    = errors.New("original response text is required")
	ErrNoProviders  = errors.New("at least one model is required")
	ErrNotProcessed = errors.New("analysis not in a processable state")
)

// ErrUnknownProvider rejects a model id outside the enumerated provider set.
type ErrUnknownProvider struct {
	Provider string
}

func (e ErrUnknownProvider) Error() string {
	return fmt.Sprintf("unknown model %q", e.Provider)
}
