package animator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClipSource(t *testing.T) {
	var failures atomic.Int32
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Path {
		case "/clips/flaky.vrma":
			if failures.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("clip"))
		case "/clips/ok.vrma":
			_, _ = w.Write([]byte("clip"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPClipSource(srv.URL+"/clips/", "")
	src.InitialInterval = time.Millisecond

	tests := []struct {
		name         string
		clip         string
		wantRequests int32
		wantNotFound bool
		wantErr      bool
	}{
		{name: "ok", clip: "ok", wantRequests: 1},
		{name: "retries transient failures", clip: "flaky", wantRequests: 3},
		{name: "404 is permanent", clip: "wave", wantRequests: 1, wantErr: true, wantNotFound: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests.Store(0)
			data, err := src.Fetch(context.Background(), tt.clip)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(data) != "clip" {
				t.Errorf("data = %q", data)
			}
			if IsNotFound(err) != tt.wantNotFound {
				t.Errorf("IsNotFound = %v", IsNotFound(err))
			}
			if got := requests.Load(); got != tt.wantRequests {
				t.Errorf("requests = %d, want %d", got, tt.wantRequests)
			}
		})
	}

	if got := src.Resolve("wave"); got != srv.URL+"/clips/wave.vrma" {
		t.Errorf("Resolve = %q", got)
	}
}

func TestFileClipSource(t *testing.T) {
	src := NewFileClipSource(t.TempDir(), ".glb")
	if _, err := src.Fetch(context.Background(), "missing"); !IsNotFound(err) {
		t.Errorf("missing clip: err = %v, want not found", err)
	}
	if _, err := src.Fetch(context.Background(), "../etc/passwd"); !errors.Is(err, ErrInvalidClipName) {
		t.Errorf("escaping name: err = %v, want ErrInvalidClipName", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Fetch(ctx, "any"); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: err = %v", err)
	}
}
