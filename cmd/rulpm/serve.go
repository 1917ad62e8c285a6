package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	rulpm "github.com/lucianolorenti/rul-pm"
	"github.com/lucianolorenti/rul-pm/internal/adapters/csvio"
)

func serveCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := configFlag(fs)
	addr := fs.String("addr", "", "Listen address (metrics.addr when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	defer e.logger.Sync()
	if *addr == "" {
		*addr = e.cfg.Metrics.Addr
	}

	ctx, stop := signalContext()
	defer stop()

	ds, err := e.open(ctx)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newAPI(ds, e.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("api_listening", zap.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newAPI exposes the dataset read-only next to the Prometheus endpoint.
func newAPI(ds *rulpm.Dataset, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /lives", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, ds.Lives())
	})

	mux.HandleFunc("GET /lives/{index}", func(w http.ResponseWriter, r *http.Request) {
		i, err := strconv.Atoi(r.PathValue("index"))
		if err != nil {
			http.Error(w, "index must be an integer", http.StatusBadRequest)
			return
		}
		f, err := ds.TimeSeries(i)
		switch {
		case errors.Is(err, rulpm.ErrIndexOutOfRange):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			logger.Error("life_load_failed", zap.Int("index", i), zap.Error(err))
			http.Error(w, "failed to load life", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		if err := csvio.WriteFrame(w, f); err != nil {
			logger.Error("life_write_failed", zap.Int("index", i), zap.Error(err))
		}
	})

	mux.HandleFunc("GET /durations", func(w http.ResponseWriter, r *http.Request) {
		bins := 15
		if v := r.URL.Query().Get("bins"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "bins must be a positive integer", http.StatusBadRequest)
				return
			}
			bins = n
		}
		values, err := ds.Durations()
		if err != nil {
			logger.Error("durations_failed", zap.Error(err))
			http.Error(w, "failed to compute durations", http.StatusInternalServerError)
			return
		}
		rep, err := buildDurationReport(values, bins, r.URL.Query().Get("weibull") == "true")
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, logger, rep)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response_encode_failed", zap.Error(err))
	}
}
