package avatar

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-vrm/engine/loader"
)

// ErrTransactionSuperseded resolves a transaction that a newer Load replaced. It is never published as an event.
var ErrTransactionSuperseded = errors.New("avatar: load superseded by a newer load")

// LoadError is the terminal error of a failed transaction.
type LoadError struct {
	// Reason is a short category: "format", "decode", "upload" or "install".
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("avatar load failed (%s): %v", e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// newLoadError classifies a decode failure.
func newLoadError(err error) *LoadError {
	var formatErr *loader.FormatError
	var decodeErr *loader.DecodeError
	switch {
	case errors.As(err, &formatErr):
		return &LoadError{Reason: "format", Err: err}
	case errors.As(err, &decodeErr):
		return &LoadError{Reason: "decode", Err: err}
	}
	return &LoadError{Reason: "install", Err: err}
}
