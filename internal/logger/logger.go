package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/socialchef/scribe"

// New creates a new slog.Logger based on the environment.
// For "production", it returns a JSON handler.
// For other environments, it returns a text handler with debug level.
func New(env string) *slog.Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter is New with an explicit destination for the local handler.
func NewWithWriter(env string, w io.Writer) *slog.Logger {
	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(w, nil)
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	return slog.New(&otelHandler{handler: handler})
}

// WithRequest returns a logger carrying the request correlation fields used
// across the bot and the worker.
func WithRequest(ctx context.Context, requestID string, userID int64) *slog.Logger {
	l := slog.Default().With(
		slog.String("request_id", requestID),
		slog.Int64("user_id", userID),
	)
	if attr := WithTraceContext(ctx); attr.Key != "" {
		l = l.With(attr)
	}
	return l
}

// WithTraceContext returns a slog.Attr containing trace_id and span_id if available in the context.
func WithTraceContext(ctx context.Context) slog.Attr {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return slog.Attr{}
	}
	sc := span.SpanContext()
	return slog.Group("trace",
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}

// otelHandler writes every record locally and mirrors it to the global OTel
// logger provider. Attributes bound with With/WithGroup travel with it so the
// exported record carries request_id and user_id too.
type otelHandler struct {
	handler slog.Handler
	attrs   []log.KeyValue
	prefix  string
}

func (h *otelHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.handler.Enabled(ctx, l)
}

func (h *otelHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.handler.Handle(ctx, r); err != nil {
		return err
	}

	provider := global.GetLoggerProvider()
	if provider == nil {
		return nil
	}

	var otelRecord log.Record
	otelRecord.SetTimestamp(r.Time)
	otelRecord.SetBody(log.StringValue(r.Message))
	otelRecord.SetSeverity(severity(r.Level))
	otelRecord.SetSeverityText(r.Level.String())
	otelRecord.AddAttributes(h.recordAttributes(r)...)

	provider.Logger(instrumentationName).Emit(ctx, otelRecord)
	return nil
}

// recordAttributes returns the bound attributes followed by the record's own.
func (h *otelHandler) recordAttributes(r slog.Record) []log.KeyValue {
	kvs := make([]log.KeyValue, 0, len(h.attrs)+r.NumAttrs())
	kvs = append(kvs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		if kv, ok := toOTelKeyValue(h.prefix, a); ok {
			kvs = append(kvs, kv)
		}
		return true
	})
	return kvs
}

func (h *otelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := append([]log.KeyValue(nil), h.attrs...)
	for _, a := range attrs {
		if kv, ok := toOTelKeyValue(h.prefix, a); ok {
			bound = append(bound, kv)
		}
	}
	return &otelHandler{handler: h.handler.WithAttrs(attrs), attrs: bound, prefix: h.prefix}
}

func (h *otelHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &otelHandler{handler: h.handler.WithGroup(name), attrs: h.attrs, prefix: h.prefix + name + "."}
}

func severity(l slog.Level) log.Severity {
	switch {
	case l >= slog.LevelError:
		return log.SeverityError
	case l >= slog.LevelWarn:
		return log.SeverityWarn
	case l >= slog.LevelInfo:
		return log.SeverityInfo
	default:
		return log.SeverityDebug
	}
}

// toOTelKeyValue drops empty attributes the way slog handlers do.
func toOTelKeyValue(prefix string, a slog.Attr) (log.KeyValue, bool) {
	if a.Equal(slog.Attr{}) {
		return log.KeyValue{}, false
	}
	return log.KeyValue{Key: prefix + a.Key, Value: toOTelValue(a.Value)}, true
}

func toOTelValue(v slog.Value) log.Value {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return log.StringValue(v.String())
	case slog.KindInt64:
		return log.Int64Value(v.Int64())
	case slog.KindUint64:
		return log.Int64Value(int64(v.Uint64()))
	case slog.KindBool:
		return log.BoolValue(v.Bool())
	case slog.KindFloat64:
		return log.Float64Value(v.Float64())
	case slog.KindDuration:
		return log.StringValue(v.Duration().String())
	case slog.KindTime:
		return log.StringValue(v.Time().Format(time.RFC3339Nano))
	case slog.KindGroup:
		group := v.Group()
		kvs := make([]log.KeyValue, 0, len(group))
		for _, a := range group {
			if kv, ok := toOTelKeyValue("", a); ok {
				kvs = append(kvs, kv)
			}
		}
		return log.MapValue(kvs...)
	default:
		return log.StringValue(v.String())
	}
}
