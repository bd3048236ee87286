// Package http serves the observation log to the dashboard.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Lzetgo0/SIC7/internal/observation"
)

// Health reports the broker connection state. *mymqtt.Client implements it.
type Health interface {
	IsConnected() bool
}

type observationsQuery struct {
	Limit int `schema:"limit"`
}

type api struct {
	log          logr.Logger
	observations *observation.Log
	health       Health
	decoder      *schema.Decoder
}

// NewRouter returns the read-only query API over the observation log. health and
// gatherer may be nil.
func NewRouter(log logr.Logger, l *observation.Log, health Health, gatherer prometheus.Gatherer) http.Handler {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	a := &api{
		log:          log,
		observations: l,
		health:       health,
		decoder:      decoder,
	}

	r := mux.NewRouter()
	r.HandleFunc("/observations", a.listObservations).Methods(http.MethodGet)
	r.HandleFunc("/observations/latest", a.latestObservation).Methods(http.MethodGet)
	r.HandleFunc("/health", a.healthCheck).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// the dashboard is served from another origin
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log}),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(cors(r))
}

func (a *api) listObservations(w http.ResponseWriter, r *http.Request) {
	var q observationsQuery
	if err := a.decoder.Decode(&q, r.URL.Query()); err != nil || q.Limit < 0 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}

	var out []observation.Observation
	if q.Limit > 0 {
		out = a.observations.Tail(q.Limit)
	} else {
		out = a.observations.Snapshot()
	}

	w.Header().Set("X-Observations-Total", strconv.FormatUint(a.observations.Total(), 10))
	a.writeJSON(w, http.StatusOK, out)
}

func (a *api) latestObservation(w http.ResponseWriter, r *http.Request) {
	o, ok := a.observations.Last()
	if !ok {
		http.Error(w, "no observation yet", http.StatusNotFound)
		return
	}
	a.writeJSON(w, http.StatusOK, o)
}

func (a *api) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if a.health == nil || !a.health.IsConnected() {
		status = "mqtt_disconnected"
		code = http.StatusServiceUnavailable
	}
	a.writeJSON(w, code, map[string]any{
		"status":       status,
		"observations": a.observations.Len(),
	})
}

func (a *api) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error(err, "Failed to write response")
	}
}

type recoveryLogger struct {
	log logr.Logger
}

func (l recoveryLogger) Println(args ...interface{}) {
	l.log.Error(errors.New(fmt.Sprint(args...)), "panic recovered")
}

// Start serves handler on addr until ctx is done.
func Start(ctx context.Context, log logr.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// bind first so that a busy port fails start-up
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", addr, err)
	}

	go func() {
		log.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "HTTP server failed")
		} else {
			log.Info("HTTP server stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return nil
}
