package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader is echoed on every response
const RequestIDHeader = "X-Request-ID"

// RequestLogger stores the request ID and a request-scoped logger in the
// context and logs one line per completed request.
type RequestLogger struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewRequestLogger creates a new RequestLogger
func NewRequestLogger(logger *zap.Logger) *RequestLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestLogger{logger: logger, now: time.Now}
}

// Handler is the chi-compatible middleware function
func (m *RequestLogger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := m.now()

		// prefer the ID assigned by chi's RequestID middleware
		requestID := chimw.GetReqID(r.Context())
		if requestID == "" {
			requestID = r.Header.Get(RequestIDHeader)
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}

		reqLogger := m.logger.With(zap.String("request_id", requestID))
		ctx := WithRequestID(r.Context(), requestID)
		ctx = WithLogger(ctx, reqLogger)

		w.Header().Set(RequestIDHeader, requestID)
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", m.now().Sub(start)),
			zap.String("remote_addr", r.RemoteAddr),
		}

		switch {
		case status >= http.StatusInternalServerError:
			reqLogger.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			reqLogger.Warn("request completed", fields...)
		default:
			reqLogger.Info("request completed", fields...)
		}
	})
}
