package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTransport is the base transport used by the instrumented client.
var DefaultTransport = http.DefaultTransport

type contextKey string

const providerKey contextKey = "httpclient.provider"

// WithProvider adds a provider name to the context for tracing.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, providerKey, provider)
}

func providerFrom(req *http.Request, fixed string) string {
	if provider, ok := req.Context().Value(providerKey).(string); ok && provider != "" {
		return provider
	}
	return fixed
}

// providerTransport is a RoundTripper that adds provider attributes to the current span.
// fixed is used when the request context carries no provider, which is the
// case for SDKs that build requests without the caller's context.
type providerTransport struct {
	base  http.RoundTripper
	fixed string
}

func (t *providerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	span := trace.SpanFromContext(req.Context())
	if provider := providerFrom(req, t.fixed); provider != "" {
		span.SetAttributes(attribute.String("provider", provider))
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP status %d", resp.StatusCode))
	}
	return resp, nil
}

func newOtelTransport(base http.RoundTripper, fixed string) http.RoundTripper {
	return otelhttp.NewTransport(&providerTransport{base: base, fixed: fixed},
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			if provider := providerFrom(r, fixed); provider != "" {
				return fmt.Sprintf("%s: %s %s", provider, r.Method, r.URL.Path)
			}
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
	)
}

// NewProviderClient returns an instrumented client whose spans are tagged with
// provider. A zero timeout leaves deadlines to the request context.
func NewProviderClient(provider string, timeout time.Duration) *http.Client {
	return WrapClient(&http.Client{Timeout: timeout}, provider)
}

// WrapClient wraps an existing http.Client's transport with OpenTelemetry
// instrumentation. An empty provider leaves naming to WithProvider.
func WrapClient(client *http.Client, provider string) *http.Client {
	if client.Transport == nil {
		client.Transport = DefaultTransport
	}
	client.Transport = newOtelTransport(client.Transport, provider)
	return client
}
