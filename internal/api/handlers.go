package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/nerrad567/skylink-core/internal/monitor"
	"github.com/nerrad567/skylink-core/internal/shotstore"
)

// healthCheckTimeout bounds each dependency probe in /health.
const healthCheckTimeout = 3 * time.Second

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Device  string            `json:"device"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ModeRequest is the body of PUT /mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// ModeResponse reports the mode in effect after a request.
type ModeResponse struct {
	Mode    monitor.ShotMode `json:"mode"`
	Applied bool             `json:"applied"`
}

// HandednessRequest is the body of PUT /handedness.
type HandednessRequest struct {
	Handedness string `json:"handedness"`
}

// HandednessResponse reports the handedness in effect after a request.
type HandednessResponse struct {
	Handedness monitor.Handedness `json:"handedness"`
	Applied    bool               `json:"applied"`
}

// ReadyResponse is the body of POST /ready.
type ReadyResponse struct {
	Armed bool `json:"armed"`
}

// ClassificationsResponse is the body of GET /diagnostics/classifications.
type ClassificationsResponse struct {
	Classifications []shotstore.ClassificationEntry `json:"classifications"`
	Count           int                             `json:"count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Version: s.version, Device: "disconnected"}
	if s.monitor.Status().Connected {
		resp.Device = "connected"
	}

	if len(s.healthChecks) > 0 {
		names := make([]string, 0, len(s.healthChecks))
		for name := range s.healthChecks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp.Checks = make(map[string]string, len(names))
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := s.healthChecks[name](ctx)
			cancel()
			if err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Status())
}

func (s *Server) handleGetMode(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ModeResponse{Mode: s.monitor.ShotMode(), Applied: true})
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	target, err := monitor.ParseShotMode(req.Mode)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	got := s.monitor.SetShotMode(r.Context(), target)
	writeJSON(w, http.StatusOK, ModeResponse{Mode: got, Applied: got == target})
}

func (s *Server) handleGetHandedness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HandednessResponse{Handedness: s.monitor.Handedness(), Applied: true})
}

func (s *Server) handleSetHandedness(w http.ResponseWriter, r *http.Request) {
	var req HandednessRequest
	if !decodeBody(w, r, &req) {
		return
	}
	target, err := monitor.ParseHandedness(req.Handedness)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	got := s.monitor.SetHandedness(r.Context(), target)
	writeJSON(w, http.StatusOK, HandednessResponse{Handedness: got, Applied: got == target})
}

func (s *Server) handleToggleHandedness(w http.ResponseWriter, r *http.Request) {
	before := s.monitor.Handedness()
	got := s.monitor.ToggleHandedness(r.Context())
	writeJSON(w, http.StatusOK, HandednessResponse{Handedness: got, Applied: got != before})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ReadyResponse{Armed: s.monitor.ReadyForNextShot(r.Context())})
}

func (s *Server) handleGetLastShot(w http.ResponseWriter, _ *http.Request) {
	shot, ok := s.monitor.LastShot()
	if !ok {
		writeNotFound(w, monitor.ErrNoLastShot.Error())
		return
	}
	writeJSON(w, http.StatusOK, shot)
}

func (s *Server) handleReplayLastShot(w http.ResponseWriter, _ *http.Request) {
	if err := s.monitor.ReplayLastShot(); err != nil {
		if errors.Is(err, monitor.ErrNoLastShot) {
			writeNotFound(w, err.Error())
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleLinkDisconnect(w http.ResponseWriter, r *http.Request) {
	s.linkAction(w, func() error { return s.monitor.RefreshConnection(r.Context(), true) })
}

func (s *Server) handleLinkRefresh(w http.ResponseWriter, r *http.Request) {
	s.linkAction(w, func() error { return s.monitor.RefreshConnection(r.Context(), false) })
}

func (s *Server) handleLinkReset(w http.ResponseWriter, r *http.Request) {
	s.linkAction(w, func() error { return s.monitor.SoftNetworkReset(r.Context()) })
}

func (s *Server) linkAction(w http.ResponseWriter, fn func() error) {
	if err := fn(); err != nil {
		writeDeviceError(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListClassifications(w http.ResponseWriter, r *http.Request) {
	if s.classifications == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "classification log not configured")
		return
	}

	limit := shotstore.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.classifications.ListClassifications(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing classifications failed", "error", err)
		writeInternalError(w, "failed to list classifications")
		return
	}
	if entries == nil {
		entries = []shotstore.ClassificationEntry{}
	}
	writeJSON(w, http.StatusOK, ClassificationsResponse{Classifications: entries, Count: len(entries)})
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
