package engine

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/talon-sec/talon/llm"
)

func TestRunEmitsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	scripted := &scriptedProvider{responses: []*llm.Response{
		callResp(llm.ToolCall{ID: "c1", Name: "echo", Arguments: `{"text":"hi"}`}),
		textResp("done"),
	}}
	r, err := New(scripted, newRegistry(t, testAgent(t, "red_teamer", echoTool(t))),
		WithTracer(provider.Tracer("talon/engine")))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Run(context.Background(), "red_teamer", nil, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var interactions, dispatches int
	for _, span := range recorder.Ended() {
		switch span.Name() {
		case "engine.interaction":
			interactions++
		case "engine.dispatch":
			dispatches++
		}
	}
	if interactions != 2 {
		t.Errorf("interaction spans = %d, want 2", interactions)
	}
	if dispatches != 1 {
		t.Errorf("dispatch spans = %d, want 1", dispatches)
	}
}
