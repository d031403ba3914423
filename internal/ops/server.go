package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/movielex/movielex-backend/pkg/logger"
)

// Pinger is the connectivity probe a dependency exposes to the health
// endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandlerParams configure the ops HTTP surface.
type HandlerParams struct {
	Logger   *logger.Logger
	DB       Pinger
	Redis    Pinger
	Registry *prometheus.Registry
	Env      string
}

// NewHandler returns the handler serving /healthz and /metrics. It is the
// only HTTP surface the engine exposes; everything user-facing rides the
// chat transport.
func NewHandler(params HandlerParams) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(10 * time.Second))

	r.Get("/healthz", healthzHandler(params))
	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthzHandler(params HandlerParams) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		response := healthResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK

		for name, pinger := range map[string]Pinger{"db": params.DB, "redis": params.Redis} {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				response.Status = "degraded"
				response.Checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			response.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		if params.Env != "" {
			w.Header().Set("X-MovieLex-Env", params.Env)
		}
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(response); err != nil && params.Logger != nil {
			params.Logger.Error(ctx, "write health response", err)
		}
	}
}

// Serve runs the ops server until the context is canceled.
func Serve(ctx context.Context, addr string, handler http.Handler, logg *logger.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	if logg != nil {
		logg.Info(logg.WithField(ctx, "addr", addr), "ops server listening")
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
