// Package fuel exposes the tracker over HTTP.
package fuel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/fuelbuddy/core/events"
	corefuel "github.com/kilianp07/fuelbuddy/core/fuel"
	"github.com/kilianp07/fuelbuddy/core/logger"
	"github.com/kilianp07/fuelbuddy/core/ride"
	"github.com/kilianp07/fuelbuddy/core/snapshot"
	"github.com/kilianp07/fuelbuddy/core/tracker"
)

// maxRecentRides caps the limit query parameter.
const maxRecentRides = 1000

// Reader is the read side of the tracker.
type Reader interface {
	Status() tracker.Status
	Settings() corefuel.Settings
	RecentRides(n int) []ride.Record
	FillUps() []corefuel.FillUp
	Snapshot() (snapshot.Snapshot, bool)
	CalibratePump(fuelAdded, distance float64) (tracker.Calibration, error)
	CalibrateReserve(distance, reserve float64) (tracker.Calibration, error)
	CalibrateAverage() (tracker.Calibration, error)
}

// Writer funnels mutations into the single writer.
type Writer interface {
	Enqueue(ctx context.Context, req events.CommandRequest) error
	UpdateSettings(ctx context.Context, s corefuel.Settings) error
	ApplyEconomy(ctx context.Context, economy, tank float64) error
}

// Server represents the API server
type Server struct {
	reader Reader
	writer Writer
	log    logger.Logger
	router *mux.Router
}

// NewServer creates a new API server
func NewServer(r Reader, w Writer, log logger.Logger) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}
	s := &Server{reader: r, writer: w, log: log, router: mux.NewRouter()}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/rides", s.handleRides).Methods(http.MethodGet)
	api.HandleFunc("/fillups", s.handleFillUps).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handlePutSettings).Methods(http.MethodPut)
	api.HandleFunc("/commands/{command}", s.handleCommand).Methods(http.MethodPost)
	api.HandleFunc("/calibration/pump", s.handlePump).Methods(http.MethodPost)
	api.HandleFunc("/calibration/reserve", s.handleReserve).Methods(http.MethodPost)
	api.HandleFunc("/calibration/average", s.handleAverage).Methods(http.MethodPost)
	api.Use(jsonMiddleware)

	s.router.Use(s.loggingMiddleware)
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debugf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.reader.Status())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.reader.Snapshot()
	if !ok {
		respondError(w, http.StatusNotFound, "no snapshot published yet")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRides(w http.ResponseWriter, r *http.Request) {
	limit := tracker.DefaultRecentRides
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentRides)
	}
	rides := s.reader.RecentRides(limit)
	if rides == nil {
		rides = []ride.Record{}
	}
	respondJSON(w, http.StatusOK, rides)
}

type fillUpsResponse struct {
	FillUps        []corefuel.FillUp `json:"fill_ups"`
	AverageEconomy *float64          `json:"average_economy,omitempty"`
}

func (s *Server) handleFillUps(w http.ResponseWriter, _ *http.Request) {
	resp := fillUpsResponse{FillUps: s.reader.FillUps()}
	if resp.FillUps == nil {
		resp.FillUps = []corefuel.FillUp{}
	}
	if c, err := s.reader.CalibrateAverage(); err == nil {
		resp.AverageEconomy = &c.FuelEconomy
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.reader.Settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var in corefuel.Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.writer.UpdateSettings(r.Context(), in); err != nil {
		s.respondWriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, in)
}

type commandBody struct {
	FuelAdded float64 `json:"fuel_added"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := events.ParseCommand(mux.Vars(r)["command"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body commandBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	req := events.CommandRequest{Command: cmd, FuelAdded: body.FuelAdded, Source: "http"}
	if err := s.writer.Enqueue(r.Context(), req); err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, req)
}

type pumpBody struct {
	FuelAdded  float64 `json:"fuel_added"`
	Distance   float64 `json:"distance"`
	Apply      bool    `json:"apply"`
	UpdateTank bool    `json:"update_tank"`
}

func (s *Server) handlePump(w http.ResponseWriter, r *http.Request) {
	var in pumpBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	c, err := s.reader.CalibratePump(in.FuelAdded, in.Distance)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Apply {
		tank := 0.0
		if in.UpdateTank {
			tank = c.SuggestedTank
		}
		if err := s.writer.ApplyEconomy(r.Context(), c.FuelEconomy, tank); err != nil {
			s.respondWriteError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, c)
}

type reserveBody struct {
	Distance float64  `json:"distance"`
	Reserve  *float64 `json:"reserve"`
	Apply    bool     `json:"apply"`
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	var in reserveBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	reserve := corefuel.DefaultReserveCapacity
	if in.Reserve != nil {
		reserve = *in.Reserve
	}
	c, err := s.reader.CalibrateReserve(in.Distance, reserve)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Apply {
		if err := s.writer.ApplyEconomy(r.Context(), c.FuelEconomy, 0); err != nil {
			s.respondWriteError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, c)
}

type averageBody struct {
	Apply bool `json:"apply"`
}

func (s *Server) handleAverage(w http.ResponseWriter, r *http.Request) {
	var in averageBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	c, err := s.reader.CalibrateAverage()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Apply {
		if err := s.writer.ApplyEconomy(r.Context(), c.FuelEconomy, 0); err != nil {
			s.respondWriteError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) respondWriteError(w http.ResponseWriter, err error) {
	if errors.Is(err, corefuel.ErrInvalidSettings) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Errorf("write failed: %v", err)
	respondError(w, http.StatusServiceUnavailable, err.Error())
}
