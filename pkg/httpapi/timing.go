package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultSlowThreshold is the duration above which a request is logged as slow.
const DefaultSlowThreshold = 200 * time.Millisecond

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

const maxLoggedQuery = 100

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// instrument wraps a route with request IDs, panic recovery and timing.
// The elapsed time is recorded on every exit path, including panics.
func (h *Handler) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := h.now()

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				h.logger.Error().
					Str("request_id", requestID).
					Str("route", route).
					Interface("panic", p).
					Msg("Handler panicked")
				if !rec.wroteHeader {
					h.errorJSON(rec, "internal server error", http.StatusInternalServerError)
				} else {
					rec.status = http.StatusInternalServerError
				}
			}
			h.observe(r, route, requestID, rec.status, h.now().Sub(start))
		}()

		next(rec, r)
	}
}

func (h *Handler) observe(r *http.Request, route, requestID string, status int, elapsed time.Duration) {
	httpRequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())

	if !strings.HasPrefix(r.URL.Path, "/api/") {
		return
	}

	slow := elapsed > h.slowThreshold
	var event *zerolog.Event
	if slow {
		httpSlowRequestsTotal.WithLabelValues(route).Inc()
		event = h.logger.Warn().Dur("threshold", h.slowThreshold)
	} else {
		event = h.logger.Debug()
	}
	if !event.Enabled() {
		return
	}

	msg := "Request completed"
	if slow {
		msg = "Slow request"
	}
	event.
		Str("request_id", requestID).
		Str("method", r.Method).
		Str("path", loggedPath(r)).
		Str("route", route).
		Int("status", status).
		Dur("duration", elapsed).
		Msg(msg)
}

// loggedPath returns the path with the query string cut to a bounded length.
func loggedPath(r *http.Request) string {
	query := r.URL.RawQuery
	if query == "" {
		return r.URL.Path
	}
	if len(query) > maxLoggedQuery {
		query = query[:maxLoggedQuery] + "..."
	}
	return r.URL.Path + "?" + query
}
