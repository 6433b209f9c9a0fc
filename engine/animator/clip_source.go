package animator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultClipExtension is appended to clip names when resolving a resource path.
const DefaultClipExtension = ".vrma"

// ClipSource maps a clip name to a resource and retrieves it.
type ClipSource interface {
	// Resolve returns the resource path for a clip name, for error reporting.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - string: the resource path or URL
	Resolve(name string) string

	// Fetch retrieves the clip bytes.
	//
	// Parameters:
	//   - ctx: cancels the fetch
	//   - name: the clip name
	//
	// Returns:
	//   - []byte: the clip file contents
	//   - error: error if the resource is missing or unreadable
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// validClipName rejects names that would escape the clip directory or base URL.
func validClipName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidClipName, name)
	}
	return nil
}

// FileClipSource reads clips from <Dir>/<name><Ext>.
type FileClipSource struct {
	Dir string
	Ext string
}

var _ ClipSource = &FileClipSource{}

// NewFileClipSource creates a FileClipSource. An empty ext selects DefaultClipExtension.
//
// Parameters:
//   - dir: the directory holding clip files
//   - ext: the file extension, including the dot
//
// Returns:
//   - *FileClipSource: the clip source
func NewFileClipSource(dir, ext string) *FileClipSource {
	if ext == "" {
		ext = DefaultClipExtension
	}
	return &FileClipSource{Dir: dir, Ext: ext}
}

func (s *FileClipSource) Resolve(name string) string {
	return filepath.Join(s.Dir, name+s.Ext)
}

func (s *FileClipSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validClipName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.Resolve(name))
}

// HTTPClipSource fetches clips from <BaseURL>/<name><Ext>, retrying transient failures with
// exponential backoff. A 4xx response is not retried.
type HTTPClipSource struct {
	BaseURL  string
	Ext      string
	Client   *http.Client
	MaxTries uint
	// InitialInterval is the first retry delay.
	InitialInterval time.Duration
}

var _ ClipSource = &HTTPClipSource{}

// NewHTTPClipSource creates an HTTPClipSource with a 10 second client timeout and 4 attempts.
//
// Parameters:
//   - baseURL: the URL prefix clips are served under
//   - ext: the file extension, including the dot; empty selects DefaultClipExtension
//
// Returns:
//   - *HTTPClipSource: the clip source
func NewHTTPClipSource(baseURL, ext string) *HTTPClipSource {
	if ext == "" {
		ext = DefaultClipExtension
	}
	return &HTTPClipSource{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		Ext:             ext,
		Client:          &http.Client{Timeout: 10 * time.Second},
		MaxTries:        4,
		InitialInterval: 200 * time.Millisecond,
	}
}

func (s *HTTPClipSource) Resolve(name string) string {
	return s.BaseURL + "/" + name + s.Ext
}

// errStatus is a non-2xx HTTP response.
type errStatus struct {
	code int
}

func (e *errStatus) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.code, http.StatusText(e.code))
}

func (s *HTTPClipSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validClipName(name); err != nil {
		return nil, err
	}
	url := s.Resolve(name)

	expo := backoff.NewExponentialBackOff()
	if s.InitialInterval > 0 {
		expo.InitialInterval = s.InitialInterval
	}

	return backoff.Retry(ctx, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := s.Client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(&errStatus{code: resp.StatusCode})
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &errStatus{code: resp.StatusCode}
		}
		return io.ReadAll(resp.Body)
	},
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(max(s.MaxTries, 1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Printf("[Animator] fetch %s failed (%v), retrying in %s", url, err, next)
		}),
	)
}

// IsNotFound reports whether a fetch error means the clip does not exist.
//
// Parameters:
//   - err: the error returned by Fetch
//
// Returns:
//   - bool: true for a missing file or a 404 response
func IsNotFound(err error) bool {
	var status *errStatus
	if errors.As(err, &status) {
		return status.code == http.StatusNotFound
	}
	return errors.Is(err, os.ErrNotExist)
}
