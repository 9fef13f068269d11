package sentry

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
)

// HTTPMiddleware binds a per-request hub to the context, reports panics as
// 500s and server errors written by handlers as events.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}
		hub.Scope().SetRequest(r)
		hub.Scope().SetTag("http.method", r.Method)
		hub.Scope().SetTag("http.path", r.URL.Path)

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		ctx := sentry.SetHubOnContext(r.Context(), hub)

		defer func() {
			if rec := recover(); rec != nil {
				hub.Recover(rec)
				if !wrapped.wroteHeader {
					http.Error(wrapped, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
				return
			}
			if wrapped.statusCode >= http.StatusInternalServerError {
				hub.CaptureMessage(fmt.Sprintf("%s %s returned %d", r.Method, r.URL.Path, wrapped.statusCode))
			}
		}()

		next.ServeHTTP(wrapped, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.statusCode = statusCode
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
