package telemetry

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-vrm/config"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.Config{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupEnabled(t *testing.T) {
	cfg := config.Config{
		OTelEnabled:     true,
		OTelServiceName: "oxy-vrm-test",
		// Non-routable, nothing is exported because no span is recorded.
		OTelEndpoint: "http://192.0.2.1:4318",
	}
	shutdown, err := Setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
