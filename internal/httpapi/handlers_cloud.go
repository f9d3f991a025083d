package httpapi

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/MimeLyc/startrad-companion/internal/cloud"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

func bearer(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := cloud.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return "", false
	}
	return token, true
}

// GET|POST|DELETE /api/cloud/backups
func (s *Server) handleCloudBackups(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cloud == nil {
		unavailable(w, "cloud sync")
		return
	}
	token, ok := bearer(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		objects, err := s.deps.Cloud.ListBackups(r.Context(), token)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"backups": objects,
			"count":   len(objects),
		})
	case http.MethodPost:
		var req channelRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}
		zipPath, err := s.deps.Profiles.Create(req.channel())
		if err != nil {
			writeAppError(w, err)
			return
		}
		defer func() {
			if err := os.Remove(zipPath); err != nil {
				log.Warn("[Cloud] Failed to remove temporary archive %s: %v", zipPath, err)
			}
		}()
		key, err := s.deps.Cloud.UploadBackup(r.Context(), token, req.channel(), zipPath)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"key": key})
	case http.MethodDelete:
		key := r.URL.Query().Get("key")
		if key == "" {
			writeError(w, http.StatusBadRequest, "key is required")
			return
		}
		if err := s.deps.Cloud.DeleteBackup(r.Context(), token, key); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET /api/cloud/backups/download?key=
func (s *Server) handleCloudDownload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if s.deps.Cloud == nil {
		unavailable(w, "cloud sync")
		return
	}
	token, ok := bearer(w, r)
	if !ok {
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	localPath, err := s.deps.Cloud.DownloadBackup(r.Context(), token, key, s.deps.DownloadDir)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": localPath})
}

// GET|PUT|DELETE /api/cloud/preferences
func (s *Server) handleCloudPreferences(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cloud == nil {
		unavailable(w, "cloud sync")
		return
	}
	token, ok := bearer(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		prefs, err := s.deps.Cloud.LoadPreferences(r.Context(), token)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"preferences": prefs})
	case http.MethodPut:
		var prefs json.RawMessage
		if !decodeJSON(w, r, &prefs) {
			return
		}
		if err := s.deps.Cloud.SavePreferences(r.Context(), token, prefs); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"saved": true})
	case http.MethodDelete:
		if err := s.deps.Cloud.DeletePreferences(r.Context(), token); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// POST /api/oauth/start opens the loopback callback listener. The outcome
// arrives on /api/events.
func (s *Server) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.deps.OAuth == nil {
		unavailable(w, "oauth")
		return
	}
	flow, err := s.deps.OAuth.Start(s.base)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flow)
}

// GET /api/update/check
func (s *Server) handleUpdateCheck(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if s.deps.Updater == nil {
		unavailable(w, "updates")
		return
	}
	release, err := s.deps.Updater.Check(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, release)
}

// POST /api/update/download
func (s *Server) handleUpdateDownload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.deps.Updater == nil {
		unavailable(w, "updates")
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	saved, err := s.deps.Updater.Download(r.Context(), req.URL)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": saved})
}
