package loader

import "fmt"

// FormatError reports that the input is not a recognizable avatar container: bad magic,
// unsupported glTF version, or no avatar extension.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "unsupported avatar format: " + e.Reason
}

// DecodeError reports that a recognized container could not be decoded.
// Stage names the decode step that failed (for example "accessor", "material", "vrm").
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("avatar decode failed at %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func formatErrorf(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

func decodeErrorf(stage, format string, args ...any) error {
	return &DecodeError{Stage: stage, Err: fmt.Errorf(format, args...)}
}
