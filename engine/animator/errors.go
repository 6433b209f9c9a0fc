package animator

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTarget is returned when a clip is played while no avatar is attached.
	ErrNoTarget = errors.New("no avatar attached")
	// ErrNothingBound is returned when none of a clip's channels match the attached avatar.
	ErrNothingBound = errors.New("clip has no channel that matches the avatar")
	// ErrInvalidClipName is returned for clip names that cannot be mapped to a resource path.
	ErrInvalidClipName = errors.New("invalid clip name")
)

// ClipFetchError reports that a clip resource could not be retrieved.
type ClipFetchError struct {
	Clip string
	Path string
	Err  error
}

func (e *ClipFetchError) Error() string {
	return fmt.Sprintf("failed to fetch clip %q from %s: %v", e.Clip, e.Path, e.Err)
}

func (e *ClipFetchError) Unwrap() error {
	return e.Err
}

// ClipDecodeError reports that a clip resource was retrieved but could not be decoded.
type ClipDecodeError struct {
	Clip string
	Err  error
}

func (e *ClipDecodeError) Error() string {
	return fmt.Sprintf("failed to decode clip %q: %v", e.Clip, e.Err)
}

func (e *ClipDecodeError) Unwrap() error {
	return e.Err
}
