package reload

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestHubBroadcastSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	hub := NewHub(HubOptions{TracerProvider: tp})
	hub.Connect(&fakeClient{id: "a"})
	hub.Connect(&fakeClient{id: "b"})

	hub.Broadcast(context.Background(), Failure{Message: "SyntaxError"})
	hub.Broadcast(context.Background(), Update{Path: "/src/app.js"})

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}

	want := []map[attribute.Key]attribute.Value{
		{"reload.type": attribute.StringValue(TypeError), "reload.seq": attribute.Int64Value(1), "reload.clients": attribute.IntValue(2)},
		{"reload.type": attribute.StringValue(TypeUpdate), "reload.seq": attribute.Int64Value(2), "reload.clients": attribute.IntValue(2)},
	}
	for i, span := range spans {
		if span.Name() != "reload.broadcast" {
			t.Errorf("span %d name = %q", i, span.Name())
		}
		got := make(map[attribute.Key]attribute.Value)
		for _, kv := range span.Attributes() {
			got[kv.Key] = kv.Value
		}
		for key, value := range want[i] {
			if got[key] != value {
				t.Errorf("span %d %s = %v, want %v", i, key, got[key].Emit(), value.Emit())
			}
		}
	}
}
