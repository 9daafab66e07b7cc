package logging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions. A run started
// by a request reuses the ID as its run ID.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags each request with an ID and logs one line when
// it finishes. Event streams log when the client disconnects.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		r = r.WithContext(WithRequestID(r.Context(), requestID))
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		log := New("http")
		level, msg := slog.LevelInfo, "request completed"
		switch {
		case rec.status >= 500:
			level, msg = slog.LevelError, "request failed"
		case rec.status >= 400:
			level, msg = slog.LevelWarn, "request rejected"
		case rec.streaming:
			level, msg = slog.LevelDebug, "stream closed"
		}
		log.Log(r.Context(), level, msg,
			"requestID", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"durationMs", time.Since(start).Milliseconds(),
		)
	})
}

// statusRecorder remembers what the handler sent
type statusRecorder struct {
	http.ResponseWriter
	status    int
	bytes     int
	streaming bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Flush implements http.Flusher; only event streams flush
func (rw *statusRecorder) Flush() {
	rw.streaming = true
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
