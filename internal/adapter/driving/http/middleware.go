package httphandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the embedded writer.
func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// Unwrap exposes the embedded writer to http.ResponseController.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// HTTPObserver records finished requests.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// Spawner runs work outside the request lifecycle.
type Spawner interface {
	Go(name string, fn func(ctx context.Context) error) bool
}

// Option configures ApplyMiddleware.
type Option func(*middlewareConfig)

type middlewareConfig struct {
	observer HTTPObserver
	panics   driven.PanicNotifier
	spawner  Spawner
}

// WithObserver records every request on obs.
func WithObserver(obs HTTPObserver) Option {
	return func(c *middlewareConfig) { c.observer = obs }
}

// WithPanicNotifier reports recovered panics to n from a background task.
func WithPanicNotifier(n driven.PanicNotifier, spawner Spawner) Option {
	return func(c *middlewareConfig) {
		c.panics = n
		c.spawner = spawner
	}
}

// ApplyMiddleware wraps the mux with request id, logging, metrics and recovery
// middleware.
func ApplyMiddleware(mux http.Handler, logger *slog.Logger, opts ...Option) http.Handler {
	var cfg middlewareConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, cfg.panics, cfg.spawner, mux)
	if cfg.observer != nil {
		wrapped = metricsMiddleware(cfg.observer, wrapped)
	}
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

type requestIDKey struct{}

// RequestIDFrom returns the id assigned to the request, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware keeps a well-formed incoming id and generates one otherwise.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// loggingMiddleware logs each HTTP request with method, path, status, and duration.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", RequestIDFrom(r.Context()),
		)
	})
}

// metricsMiddleware must wrap the mux without copying the request so the
// matched pattern is visible after serving.
func metricsMiddleware(obs HTTPObserver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		obs.ObserveHTTP(r.Method, r.Pattern, sw.status, time.Since(start))
	})
}

// recoveryMiddleware recovers from panics in HTTP handlers, logs the error,
// reports it and returns a 500 response.
func recoveryMiddleware(logger *slog.Logger, notifier driven.PanicNotifier, spawner Spawner, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(v)
			}

			stack := string(debug.Stack())
			logger.Error("panic recovered",
				"panic", v,
				"path", r.URL.Path,
				"request_id", RequestIDFrom(r.Context()),
			)

			if notifier != nil && spawner != nil {
				report := driven.PanicReport{
					RemoteAddr: r.RemoteAddr,
					Method:     r.Method,
					URL:        r.URL.String(),
					Value:      fmt.Sprint(v),
					Stack:      stack,
				}
				spawner.Go("report panic", func(ctx context.Context) error {
					return notifier.NotifyPanic(ctx, report)
				})
			}

			writeError(w, http.StatusInternalServerError, "internal server error")
		}()

		next.ServeHTTP(w, r)
	})
}
