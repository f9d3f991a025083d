package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/config"
	"github.com/MimeLyc/startrad-companion/internal/persistence"
	"github.com/MimeLyc/startrad-companion/internal/sources"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

// GET|PUT /api/poller/config
func (s *Server) handlePollerConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.deps.Settings.Get())
	case http.MethodPut:
		var next config.PollerSettings
		if !decodeJSON(w, r, &next) {
			return
		}
		if err := next.Validate(); err != nil {
			writeAppError(w, apperror.Wrap(err, apperror.KindInvalid, "invalid poller settings"))
			return
		}
		saved, err := s.deps.Settings.Update(next)
		if err != nil {
			writeAppError(w, apperror.Wrap(err, apperror.KindIO, "failed to save poller settings"))
			return
		}
		// an enabled config starts the loop; a running loop picks up the
		// new interval on its next iteration and exits once disabled
		if saved.Enabled && !s.deps.Poller.Status().Running {
			if err := s.deps.Poller.Start(s.base); err != nil {
				log.Warn("[HTTP] Failed to start poller after config change: %v", err)
			}
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET /api/poller/status
func (s *Server) handlePollerStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Poller.Status())
}

// POST /api/poller/start
func (s *Server) handlePollerStart(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.deps.Poller.Start(s.base); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Poller.Status())
}

// POST /api/poller/stop
func (s *Server) handlePollerStop(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.deps.Poller.Stop(); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Poller.Status())
}

// POST /api/poller/check runs one pass synchronously.
func (s *Server) handlePollerCheck(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	updated, err := s.deps.Poller.CheckNow(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

// GET /api/history?channel=&limit=
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if s.deps.History == nil {
		unavailable(w, "history")
		return
	}

	filter := persistence.HistoryFilter{Channel: r.URL.Query().Get("channel")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	records, err := s.deps.History.List(r.Context(), filter)
	if err != nil {
		writeAppError(w, apperror.Wrap(err, apperror.KindIO, "failed to list history"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// GET /api/cache
func (s *Server) handleCacheList(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	entries, err := s.deps.Cache.List()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// GET /api/cache/info
func (s *Server) handleCacheInfo(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	info, err := s.deps.Cache.Info()
	if err != nil {
		writeAppError(w, err)
		return
	}
	resp := map[string]any{"info": info}
	if s.deps.Prefetch != nil {
		resp["prefetch"] = s.deps.Prefetch.Status(time.Now())
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/cache/clear
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	removed, err := s.deps.Cache.Clear()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// POST /api/cache/prefetch[?force=true]
func (s *Server) handleCachePrefetch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.deps.Prefetch == nil {
		unavailable(w, "prefetch")
		return
	}
	added, err := s.deps.Prefetch.RunOnce(r.Context(), r.URL.Query().Get("force") == "true")
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added})
}

// GET|DELETE /api/cache/{channel}/{source}
func (s *Server) handleCacheEntry(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/cache/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, http.StatusNotFound, "expected /api/cache/{channel}/{source}")
		return
	}
	channel, source := parts[0], sources.ID(parts[1])

	switch r.Method {
	case http.MethodGet:
		content, err := s.deps.Cache.Get(channel, source)
		if err != nil {
			writeAppError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(content))
	case http.MethodDelete:
		if err := s.deps.Cache.Delete(channel, source); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
