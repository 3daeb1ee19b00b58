package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName = "resume-pdf-export"
	tracerName  = "resume-pdf-export/internal/usecase"
)

// TracerProvider owns the process-wide tracer provider when tracing is on.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// NewStdoutTracerProvider installs a provider that prints finished spans to
// stdout. Without it spans go to the global no-op provider.
func NewStdoutTracerProvider() (*TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	return &TracerProvider{provider: provider}, nil
}

func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.provider.Shutdown(ctx)
}

func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span named after an export stage.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

var (
	AttrTaskID    = attribute.Key("pdfexport.task_id")
	AttrRequestID = attribute.Key("pdfexport.request_id")
	AttrErrorKind = attribute.Key("pdfexport.error_kind")
)
