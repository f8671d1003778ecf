package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Swind/go-task-profiler/core"
	"github.com/Swind/go-task-profiler/profile"
	"github.com/Swind/go-task-profiler/render"
)

type sessionResponse struct {
	ID           string    `json:"id"`
	Strategy     string    `json:"strategy"`
	TaskCount    int       `json:"task_count"`
	TaskDuration string    `json:"task_duration"`
	StartedAt    time.Time `json:"started_at"`
}

type stateResponse struct {
	State    string          `json:"state"`
	Sessions int64           `json:"sessions"`
	Pending  int             `json:"pending"`
	Pool     *core.PoolStats `json:"pool,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) startSession(strategy profile.Strategy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := s.ctrl.Start(strategy)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, sessionResponse{
			ID:           info.ID,
			Strategy:     info.Strategy.String(),
			TaskCount:    info.TaskCount,
			TaskDuration: info.TaskDuration.String(),
			StartedAt:    info.StartedAt,
		})
	}
}

func (s *Server) cancelSession(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"state": s.ctrl.State().String()})
}

func (s *Server) latestSession(w http.ResponseWriter, r *http.Request) {
	result, ok := s.ctrl.LatestResult()
	if !ok {
		writeError(w, http.StatusNotFound, "no completed session")
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		writeJSON(w, http.StatusOK, result)
	case "timeline":
		width := s.width
		if v := r.URL.Query().Get("width"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "width must be a positive integer")
				return
			}
			width = n
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(render.Timeline(result, render.TimelineOptions{Width: width, Plain: true})))
	default:
		serializer, err := render.SerializerFor(format)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		body, err := serializer.Serialize(result)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", contentType(serializer.Name()))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.ctrl.History(limit))
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	stats := s.ctrl.Stats()
	resp := stateResponse{
		State:    s.ctrl.State().String(),
		Sessions: s.ctrl.SessionCount(),
		Pending:  stats.Pending,
	}
	if p, ok := s.ctrl.Pool().(interface{ Stats() core.PoolStats }); ok {
		ps := p.Stats()
		resp.Pool = &ps
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps controller errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, profile.ErrSessionRunning):
		return http.StatusConflict
	case errors.Is(err, profile.ErrControllerClosed),
		errors.Is(err, profile.ErrPoolNotRunning),
		errors.Is(err, profile.ErrSchedulerClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, profile.ErrInvalidRun):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func contentType(format string) string {
	switch format {
	case "yaml":
		return "application/yaml"
	case "toml":
		return "application/toml"
	default:
		return "application/json"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
