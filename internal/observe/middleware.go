package observe

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// CorrelationHeader carries the request's trace ID back to the client.
const CorrelationHeader = "X-Correlation-ID"

// captureWriter records the status code and body size written downstream.
type captureWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (c *captureWriter) WriteHeader(code int) {
	if !c.wroteHeader {
		c.status, c.wroteHeader = code, true
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.wroteHeader = true
	n, err := c.ResponseWriter.Write(p)
	c.bytes += n
	return n, err
}

// Unwrap exposes the underlying writer to [http.ResponseController].
func (c *captureWriter) Unwrap() http.ResponseWriter { return c.ResponseWriter }

// Middleware instruments every request. It continues an incoming W3C trace
// (or starts one), echoes the trace ID in [CorrelationHeader], records
// [Metrics.HTTPRequestDuration] and logs one line per completed request.
//
// Spans and duration samples are keyed by the matched ServeMux pattern when
// there is one, so path parameters do not explode label cardinality.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := StartSpan(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			cid := CorrelationID(ctx)
			if cid != "" {
				w.Header().Set(CorrelationHeader, cid)
			}
			prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			r = r.WithContext(ctx)
			next.ServeHTTP(cw, r)

			// ServeMux sets Pattern on the request it was handed.
			route := r.Pattern
			if route != "" {
				span.SetName(route)
				span.SetAttributes(semconv.HTTPRoute(route))
			} else {
				route = r.URL.Path
			}
			span.SetAttributes(
				semconv.HTTPResponseStatusCode(cw.status),
				semconv.HTTPResponseBodySize(cw.bytes),
			)

			elapsed := time.Since(start)
			m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(),
				metric.WithAttributes(
					attribute.String("method", r.Method),
					attribute.String("path", route),
					attribute.Int("status", cw.status),
				),
			)

			level := slog.LevelInfo
			if cw.status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			slog.LogAttrs(ctx, level, "request completed",
				slog.String("trace_id", cid),
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", cw.status),
				slog.Int("bytes", cw.bytes),
				slog.Duration("duration", elapsed),
			)
		})
	}
}
