package httpapi

import (
	"net/http"

	"github.com/MimeLyc/startrad-companion/internal/backup"
)

type channelRequest struct {
	Version string `json:"version"`
}

func (c channelRequest) channel() string {
	if c.Version == "" {
		return backup.DefaultChannel
	}
	return c.Version
}

// GET|POST|DELETE /api/backups/characters
func (s *Server) handleCharacterBackups(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		dir, err := s.deps.Characters.Dir()
		if err != nil {
			writeAppError(w, err)
			return
		}
		entries, err := s.deps.Characters.List()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"dir":     dir,
			"backups": entries,
			"count":   len(entries),
		})
	case http.MethodPost:
		var req channelRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}
		entry, err := s.deps.Characters.Create(req.channel())
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	case http.MethodDelete:
		target := r.URL.Query().Get("path")
		if target == "" {
			writeError(w, http.StatusBadRequest, "path is required")
			return
		}
		if err := s.deps.Characters.Delete(target); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// PUT /api/backups/characters/dir
func (s *Server) handleCharacterBackupDir(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPut) {
		return
	}
	var req struct {
		Dir string `json:"dir"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Dir == "" {
		writeError(w, http.StatusBadRequest, "dir is required")
		return
	}
	dir, err := s.deps.Characters.SetDir(req.Dir)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dir": dir})
}

// POST /api/backups/characters/restore
func (s *Server) handleCharacterRestore(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Path string `json:"path"`
		channelRequest
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if err := s.deps.Characters.Restore(req.Path, req.channel()); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": true})
}

// POST /api/backups/user zips the profile of a channel locally.
func (s *Server) handleUserBackup(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req channelRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	zipPath, err := s.deps.Profiles.Create(req.channel())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"path": zipPath})
}

// POST /api/backups/user/restore
func (s *Server) handleUserRestore(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Path string `json:"path"`
		channelRequest
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if err := s.deps.Profiles.Restore(req.Path, req.channel()); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": true})
}
