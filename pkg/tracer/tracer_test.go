package tracer

import (
	"context"
	"strings"
	"testing"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "notegen-api"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSampler(t *testing.T) {
	cases := map[float64]string{
		1:   "AlwaysOnSampler",
		0:   "AlwaysOffSampler",
		0.5: "TraceIDRatioBased{0.5}",
	}
	for rate, want := range cases {
		if got := sampler(rate).Description(); !strings.Contains(got, want) {
			t.Fatalf("rate %v: description %q does not mention %q", rate, got, want)
		}
	}
}

func TestServiceAttributes(t *testing.T) {
	attrs := serviceAttributes(Config{ServiceName: "api", Version: "v1", Environment: "production"})
	if len(attrs) != 3 {
		t.Fatalf("attrs = %v", attrs)
	}
	if len(serviceAttributes(Config{ServiceName: "api"})) != 1 {
		t.Fatalf("empty version/environment must be omitted")
	}
}
