package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/edgewatch/tolerance-monitor/pkg/common"
	"github.com/edgewatch/tolerance-monitor/pkg/monitor"
	"github.com/edgewatch/tolerance-monitor/pkg/notify"
	"github.com/edgewatch/tolerance-monitor/pkg/source"
)

// AdminServer exposes the monitor's registry over HTTP so external callers
// can register, remove and query signals at runtime. Signals registered this
// way read their values from the redis source.
type AdminServer struct {
	server      *http.Server
	port        int
	corsOrigins []string

	mon      *monitor.Monitor
	redis    *source.Redis
	notifier notify.Notifier
}

// registerRequest is the JSON body of POST /api/v1/signals.
type registerRequest struct {
	ID               string  `json:"id"`
	Target           float64 `json:"target"`
	WarningThreshold float64 `json:"warning_threshold"`
	FaultThreshold   float64 `json:"fault_threshold"`
	ArmDelayMs       int     `json:"arm_delay_ms"`
	ConfirmWindowMs  int     `json:"confirm_window_ms"`
	SourceKey        string  `json:"source_key,omitempty"`
}

// NewAdminServer creates the admin API server. redisSrc may be nil when the
// redis source is disabled; registration requests are then rejected.
func NewAdminServer(port int, corsOrigins []string, mon *monitor.Monitor, redisSrc *source.Redis, notifier notify.Notifier) *AdminServer {
	return &AdminServer{
		port:        port,
		corsOrigins: corsOrigins,
		mon:         mon,
		redis:       redisSrc,
		notifier:    notifier,
	}
}

// Setup builds the router and the underlying HTTP server.
func (s *AdminServer) Setup() error {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/signals", s.registerSignal).Methods("POST")
	api.HandleFunc("/signals/{id}", s.getSignal).Methods("GET")
	api.HandleFunc("/signals/{id}", s.removeSignal).Methods("DELETE")
	api.HandleFunc("/status", s.getStatus).Methods("GET")
	router.HandleFunc("/healthz", s.getHealth).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         3600,
	})

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: c.Handler(router),
	}

	return nil
}

// Start begins serving the admin API.
func (s *AdminServer) Start(ctx context.Context) error {
	go func() {
		logrus.Infof("admin server listening on port %d", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("admin server failed: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the admin server.
func (s *AdminServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down admin server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	logrus.Info("admin server stopped")
	return nil
}

func (s *AdminServer) registerSignal(w http.ResponseWriter, r *http.Request) {
	scope := common.NewScope(r.Context(), "admin.RegisterSignal")
	defer scope.Finish()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		scope.TraceError(err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	scope.TraceTag("signal_id", req.ID)

	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "signal id is required")
		return
	}
	if s.redis == nil {
		writeError(w, http.StatusBadRequest, "no redis value source configured, cannot register signals at runtime")
		return
	}

	cfg := monitor.SignalConfig{
		Target:           req.Target,
		WarningThreshold: req.WarningThreshold,
		FaultThreshold:   req.FaultThreshold,
		ArmDelay:         time.Duration(req.ArmDelayMs) * time.Millisecond,
		ConfirmWindow:    time.Duration(req.ConfirmWindowMs) * time.Millisecond,
		Value:            s.redis.ValueFunc(req.SourceKey),
		OnWarning:        notify.Bind(s.notifier, monitor.StateWarning),
		OnFault:          notify.Bind(s.notifier, monitor.StateFault),
	}

	if err := s.mon.Register(req.ID, cfg); err != nil {
		scope.TraceError(err)
		switch {
		case errors.Is(err, monitor.ErrAlreadyRegistered):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	scope.Log.Infof("signal %s registered via admin API", req.ID)
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":    req.ID,
		"state": s.mon.State(req.ID).String(),
	})
}

func (s *AdminServer) getSignal(w http.ResponseWriter, r *http.Request) {
	scope := common.NewScope(r.Context(), "admin.GetSignal")
	defer scope.Finish()

	id := mux.Vars(r)["id"]
	scope.TraceTag("signal_id", id)

	// Unregistered ids deliberately report NORMAL, matching the core.
	writeJSON(w, http.StatusOK, map[string]string{
		"id":    id,
		"state": s.mon.State(id).String(),
	})
}

func (s *AdminServer) removeSignal(w http.ResponseWriter, r *http.Request) {
	scope := common.NewScope(r.Context(), "admin.RemoveSignal")
	defer scope.Finish()

	id := mux.Vars(r)["id"]
	scope.TraceTag("signal_id", id)

	s.mon.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *AdminServer) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"running": s.mon.Running(),
		"signals": s.mon.Count(),
	})
}

func (s *AdminServer) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
