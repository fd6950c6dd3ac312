package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/resumatch/internal/telemetry"
)

// Sentry runs each request in its own hub and transaction. Once chi has routed the
// request, the transaction is named after the route pattern rather than the raw path,
// so per-resume URLs share one transaction name and carry the file as a
// resume_filename tag instead. Handlers add their own tags through telemetry.Tag.
func Sentry(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}
		ctx := sentry.SetHubOnContext(r.Context(), hub)

		options := []sentry.SpanOption{sentry.WithTransactionSource(sentry.SourceRoute)}
		if trace := r.Header.Get(sentry.SentryTraceHeader); trace != "" {
			options = append(options, sentry.ContinueFromHeaders(trace, r.Header.Get(sentry.SentryBaggageHeader)))
		}

		ctx, transaction := telemetry.StartTransaction(ctx, r.Method+" "+r.URL.Path, "http.server", options...)
		defer transaction.End()
		r = r.WithContext(ctx)

		hub.Scope().SetRequest(r)
		telemetry.Tag(ctx, "request_id", GetRequestID(ctx))

		defer func() {
			if err := recover(); err != nil {
				transaction.SetStatus(sentry.SpanStatusInternalError)
				hub.RecoverWithContext(ctx, err)
				panic(err)
			}
		}()

		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		name := r.Method + " " + r.URL.Path
		if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
			name = r.Method + " " + rctx.RoutePattern()
			transaction.SetName(name)
		}
		telemetry.Tag(ctx, "resume_filename", routeResume(r))

		status := rec.statusOrOK()
		transaction.SetStatus(httpStatusToSpanStatus(status))
		transaction.SetData("http.response.status_code", status)

		if status >= 500 {
			hub.CaptureMessage(fmt.Sprintf("%s: HTTP %d", name, status))
		}
	})
}

// httpStatusToSpanStatus converts HTTP status code to Sentry span status.
func httpStatusToSpanStatus(status int) sentry.SpanStatus {
	switch {
	case status >= 200 && status < 300:
		return sentry.SpanStatusOK
	case status == 400:
		return sentry.SpanStatusInvalidArgument
	case status == 401:
		return sentry.SpanStatusUnauthenticated
	case status == 403:
		return sentry.SpanStatusPermissionDenied
	case status == 404:
		return sentry.SpanStatusNotFound
	case status == 409:
		return sentry.SpanStatusAlreadyExists
	case status == 429:
		return sentry.SpanStatusResourceExhausted
	case status == 499:
		return sentry.SpanStatusCanceled
	case status >= 400 && status < 500:
		return sentry.SpanStatusInvalidArgument
	case status == 500:
		return sentry.SpanStatusInternalError
	case status == 501:
		return sentry.SpanStatusUnimplemented
	case status == 503:
		return sentry.SpanStatusUnavailable
	case status == 504:
		return sentry.SpanStatusDeadlineExceeded
	case status >= 500:
		return sentry.SpanStatusInternalError
	default:
		return sentry.SpanStatusUnknown
	}
}
