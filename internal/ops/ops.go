// Package ops exposes a small local HTTP surface for health checks, metrics
// and state inspection. Disabled unless a listen address is configured.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leighmacdonald/slottrack/internal/tracker"
)

var ErrServe = errors.New("ops server failed")

// SnapshotSource provides the current state for the /state endpoint.
type SnapshotSource interface {
	BuildSnapshot() tracker.Snapshot
}

func NewServer(listenAddress string, source SnapshotSource) *Server {
	router := mux.NewRouter()
	srv := &Server{
		source: source,
		http: &http.Server{
			Addr:              listenAddress,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	router.HandleFunc("/healthz", srv.onHealth).Methods(http.MethodGet)
	router.HandleFunc("/state", srv.onState).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return srv
}

type Server struct {
	source SnapshotSource
	http   *http.Server
}

// Start serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.http.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown ops server", slog.String("error", err.Error()))
		}
	}()

	slog.Info("Ops server listening", slog.String("address", s.http.Addr))

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(err, ErrServe)
	}

	return nil
}

func (s *Server) onHealth(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write([]byte("ok"))
}

func (s *Server) onState(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(writer).Encode(s.source.BuildSnapshot()); err != nil {
		slog.Error("Failed to encode state", slog.String("error", err.Error()))
	}
}
