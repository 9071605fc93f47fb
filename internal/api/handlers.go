package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rot226/lorasim/internal/models"
	"github.com/rot226/lorasim/internal/storage"
	"github.com/rot226/lorasim/pkg/crypto"
)

// ========== Auth handlers ==========

// HandleLogin issues the single operator bearer token after checking
// the submitted password against the configured bcrypt hash.
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if s.config.JWT.OperatorPasswordHash == "" || !crypto.VerifyPassword(req.Password, s.config.JWT.OperatorPasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.auth.IssueOperatorToken()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"expires_in":   int(s.config.JWT.TokenTTL.Seconds()),
		"token_type":   "Bearer",
	})
}

// ========== Run handlers ==========

// HandleListRuns lists simulation runs newest first.
func (s *RESTServer) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	runs, total, err := s.store.ListRuns(ctx, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"total": total,
	})
}

// HandleCreateRun registers a pending run from a submitted config
// snapshot. It only stores the row: nothing in this module reads
// pending runs, and cmd/simrunner creates and drives its own runs.
func (s *RESTServer) HandleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed   int64            `json:"seed"`
		Config models.Variables `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	run := &models.SimulationRun{
		Seed:   req.Seed,
		Status: models.RunStatusPending,
		Config: req.Config,
	}

	if err := s.store.CreateRun(r.Context(), run); err != nil {
		if err == storage.ErrDuplicateKey {
			s.respondError(w, http.StatusConflict, "run already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, run)
}

// HandleGetRun fetches a run's current status and cumulative metrics.
func (s *RESTServer) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, run)
}

// HandleGetRunMetrics returns just the metrics fields of a run, the
// shape a dashboard polls for a progress readout.
func (s *RESTServer) HandleGetRunMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":               run.Status,
		"packetsSent":          run.PacketsSent,
		"packetsDelivered":     run.PacketsDelivered,
		"packetsLostCollision": run.PacketsLostCollision,
		"packetsLostNoSignal":  run.PacketsLostNoSignal,
		"pdr":                  run.PDR,
		"energyJ":              run.EnergyJ,
		"avgDelayS":            run.AvgDelayS,
	})
}

// HandleListRunEvents returns a page of a run's event log.
func (s *RESTServer) HandleListRunEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 100
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	events, total, err := s.store.ListEventRecords(ctx, id, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
	})
}

// HandleStopRun sets a run's stored status to STOPPED. It does not
// halt a simulation in progress: cmd/simrunner does not read the run
// status while it runs.
func (s *RESTServer) HandleStopRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	run.Status = models.RunStatusStopped
	if err := s.store.UpdateRun(ctx, run); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, run)
}

// ========== Helper methods ==========

// HandleHealth health check
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// HandleRoot root handler
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
		"health":  "/api/v1/health",
	})
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with error
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}
