package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/datasync"
)

// FlushResponse is the body of POST /sync/flush.
type FlushResponse struct {
	Pushed int             `json:"pushed"`
	Status datasync.Status `json:"status"`
}

// GetSyncStatus handles GET /sync/status.
func (s *Server) GetSyncStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sync.Status())
}

// FlushSync handles POST /sync/flush. It drains the queue synchronously.
// 503 means the manager is offline, 409 that another drain is running and
// 502 that the remote endpoint rejected a batch (it stays queued).
func (s *Server) FlushSync(w http.ResponseWriter, r *http.Request) {
	pushed, err := s.sync.Flush(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, FlushResponse{Pushed: pushed, Status: s.sync.Status()})
	case errors.Is(err, datasync.ErrOffline):
		writeError(w, http.StatusServiceUnavailable, "offline", "sync is offline")
	case errors.Is(err, datasync.ErrFlushInProgress):
		writeError(w, http.StatusConflict, "flush_in_progress", "a flush is already running")
	default:
		s.logger.Warn("manual flush failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "sync_failed", "remote sync failed; operations stay queued")
	}
}

// SetOnline handles POST /sync/online. Going online triggers a background drain.
func (s *Server) SetOnline(w http.ResponseWriter, _ *http.Request) {
	s.sync.SetOnline(true)
	writeJSON(w, http.StatusOK, s.sync.Status())
}

// SetOffline handles POST /sync/offline.
func (s *Server) SetOffline(w http.ResponseWriter, _ *http.Request) {
	s.sync.SetOnline(false)
	writeJSON(w, http.StatusOK, s.sync.Status())
}

// ResumeSync handles POST /sync/resume, the foreground signal. The drain runs
// in the background so the response is 202.
func (s *Server) ResumeSync(w http.ResponseWriter, _ *http.Request) {
	s.sync.Resume()
	writeJSON(w, http.StatusAccepted, s.sync.Status())
}
