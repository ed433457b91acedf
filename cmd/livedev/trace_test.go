package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupTracing(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var out bytes.Buffer
	shutdown, err := setupTracing(&out)
	if err != nil {
		t.Fatalf("setupTracing: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "build.run")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	for _, want := range []string{`"Name": "build.run"`, `"livedev"`} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("exported spans missing %s:\n%s", want, out.String())
		}
	}
}
