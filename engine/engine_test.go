package engine

import (
	"sync"
	"testing"
	"time"
)

// runHeadless starts Run without a window and returns a func that quits and waits for it.
func runHeadless(t *testing.T, e Engine) func() {
	t.Helper()
	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()
	return func() {
		e.Quit()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("Run did not return after Quit")
		}
	}
}

func TestFrameCallbacksRunInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	frames := make(chan struct{}, 64)
	record := func(name string) func(float32) {
		return func(float32) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	e := NewEngine(WithTickRate(500), WithFrameCallback(record("manager")))
	e.AddFrameCallback(record("controller"))
	e.AddFrameCallback(record("instance"))
	e.AddFrameCallback(func(float32) {
		select {
		case frames <- struct{}{}:
		default:
		}
	})
	stop := runHeadless(t, e)
	select {
	case <-frames:
	case <-time.After(5 * time.Second):
		t.Fatalf("no frame ran")
	}
	stop()

	mu.Lock()
	defer mu.Unlock()
	if len(order) < 3 {
		t.Fatalf("order = %v, want at least one full frame", order)
	}
	want := []string{"manager", "controller", "instance"}
	for i, name := range order[:3] {
		if name != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, name, want[i])
		}
	}
}

func TestPostRunsBeforeCallbacks(t *testing.T) {
	e := NewEngine(WithTickRate(500))
	got := make(chan string, 4)
	posted := false
	e.AddFrameCallback(func(float32) {
		if posted {
			select {
			case got <- "callback":
			default:
			}
		}
	})
	e.Post(func() {
		posted = true
		got <- "posted"
	})
	stop := runHeadless(t, e)
	defer stop()

	for _, want := range []string{"posted", "callback"} {
		select {
		case name := <-got:
			if name != want {
				t.Fatalf("got %q, want %q", name, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestPanickingCallbackDoesNotStopFrame(t *testing.T) {
	e := NewEngine(WithTickRate(500))
	reached := make(chan struct{}, 1)
	e.AddFrameCallback(func(float32) { panic("boom") })
	e.AddFrameCallback(func(float32) {
		select {
		case reached <- struct{}{}:
		default:
		}
	})
	e.Post(func() { panic("posted boom") })
	stop := runHeadless(t, e)
	defer stop()

	select {
	case <-reached:
	case <-time.After(5 * time.Second):
		t.Fatalf("callback after a panicking one never ran")
	}
}

func TestQuitIsIdempotent(t *testing.T) {
	e := NewEngine()
	stop := runHeadless(t, e)
	e.Quit()
	stop()
	select {
	case <-e.Done():
	default:
		t.Fatalf("Done() not closed after Quit")
	}
}

func TestTickRate(t *testing.T) {
	tests := []struct {
		name string
		fps  float64
		want time.Duration
	}{
		{"default", 0, time.Second / 60},
		{"negative", -5, time.Second / 60},
		{"custom", 120, time.Second / 120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(WithTickRate(tt.fps)).(*engine)
			if e.tickRate != tt.want {
				t.Errorf("WithTickRate(%v) = %v, want %v", tt.fps, e.tickRate, tt.want)
			}
			e.SetTickRate(tt.fps)
			if e.tickRate != tt.want {
				t.Errorf("SetTickRate(%v) = %v, want %v", tt.fps, e.tickRate, tt.want)
			}
		})
	}
}
