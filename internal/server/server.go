// Package server is the HTTP front end. Handlers translate verbs into
// coordinator calls; no retraining logic lives here.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/mlserve/retrain-engine/internal/coordinator"
)

// #region server

// Server exposes the retraining engine over HTTP.
type Server struct {
	coord *coordinator.Coordinator
	log   *logrus.Entry
}

// New wraps a coordinator.
func New(coord *coordinator.Coordinator) *Server {
	return &Server{
		coord: coord,
		log:   logrus.WithField("component", "http"),
	}
}

// Router builds the chi router with the engine's endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/retrain/status", s.handleStatus)
	r.Get("/retrain/attempts", s.handleAttempts)
	r.Post("/retrain/trigger", s.handleTrigger)
	r.Post("/retrain/config", s.handleConfig)

	return r
}

// Serve runs the HTTP server until ctx is canceled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		return err
	}
}

// #endregion server

// #region json-helpers

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// #endregion json-helpers
