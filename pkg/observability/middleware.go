package observability

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware creates a Gin middleware for automatic tracing
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceDBOperation starts a client span for a repository call. Callers end the span.
func TraceDBOperation(ctx context.Context, obs ObservabilityIface, table, operation string) (context.Context, trace.Span) {
	if obs == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return obs.StartSpan(ctx, fmt.Sprintf("db.%s.%s", table, operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrDBOperation.String(operation),
			AttrDBTable.String(table),
		),
	)
}
