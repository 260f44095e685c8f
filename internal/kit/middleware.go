package kit

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// CORS adds permissive CORS headers. Both services sit behind trusted
// frontends; the permissive policy matches the embedded-webview origin model.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// RequestLog logs every request with method, path, status, and duration.
func RequestLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: 200}

			next.ServeHTTP(rec, r)

			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.statusCode,
				"duration", time.Since(start),
			)
		})
	}
}

// LatencyInjection adds configurable latency to every request. The twin uses
// it to rehearse slow-network behavior; zero latency is a no-op.
func LatencyInjection(cfg *Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Latency > 0 {
				// 80-120% jitter around the configured latency.
				jitter := 0.8 + rand.Float64()*0.4
				time.Sleep(time.Duration(float64(cfg.Latency) * jitter))
			}
			next.ServeHTTP(w, r)
		})
	}
}
