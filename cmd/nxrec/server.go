package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arloliu/go-nxrec/logger"
	"github.com/arloliu/go-nxrec/metrics"
	"github.com/arloliu/go-nxrec/recorder"
)

// statusServer exposes /metrics and /runs while the recorder runs.
type statusServer struct {
	srv    *http.Server
	logger logger.Logger
}

type runsResponse struct {
	Exported uint64            `json:"exported"`
	Failed   uint64            `json:"failed"`
	Skipped  uint64            `json:"skipped"`
	Runs     []recorder.Record `json:"runs"`
}

func newStatusServer(addr string, reg *prometheus.Registry, history *recorder.History, m *metrics.Metrics, l logger.Logger) *statusServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/runs", runsHandler(history, m))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &statusServer{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: l,
	}
}

func runsHandler(history *recorder.History, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if uid := r.URL.Query().Get("uid"); uid != "" {
			rec, ok := history.Get(uid)
			if !ok {
				http.Error(w, "run not found", http.StatusNotFound)
				return
			}
			writeJSON(w, rec)

			return
		}

		writeJSON(w, runsResponse{
			Exported: m.Runs.Exported.Load(),
			Failed:   m.Runs.Failed.Load(),
			Skipped:  m.Runs.Skipped.Load(),
			Runs:     history.Records(),
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *statusServer) Start() {
	go func() {
		s.logger.Info("status endpoints listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", "error", err)
		}
	}()
}

func (s *statusServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("status server shutdown", "error", err)
	}
}
