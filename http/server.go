package http

import (
	"context"
	"net/http"
	"time"

	"inviqa/mail-relay/config"
	"inviqa/mail-relay/log"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = time.Second * 10

// Dependencies are the collaborators the HTTP API is served from.
type Dependencies struct {
	Coordinator coordinator
	Keys        keyFinder
	DB          Pinger
	NrApp       *newrelic.Application
}

func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withTransaction(deps.NrApp))

	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/healthz", NewHealthzHandler(cfg.GetDependencySystemAddresses(), deps.DB))

	h := &requestsHandler{
		coordinator: deps.Coordinator,
		defaultFrom: cfg.MailDefaultFrom,
	}
	r.Route("/requests", func(r chi.Router) {
		r.Use(requireKey(deps.Keys))
		r.Post("/", h.send)
		r.Get("/{reqID}", h.status)
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, cfg *config.Config, deps Dependencies) {
	srv := &http.Server{
		Addr:              cfg.GetListenAddr(),
		Handler:           NewRouter(cfg, deps),
		ReadHeaderTimeout: time.Second * 5,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Logger.WithError(err).Error("error shutting down the HTTP server")
		}
	}()

	log.Logger.WithField("addr", srv.Addr).Info("starting HTTP server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Logger.Fatalf("failed to start HTTP server: %s", err)
	}
}
