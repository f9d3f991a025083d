package httpapi

import (
	"net/http"
	"strings"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/config"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

// GET /api/sources
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	doc, err := s.deps.Catalog.Translations(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc)
}

// GET /api/sources/setting/{type}
func (s *Server) handleSourceSetting(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	settingType := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sources/setting/"), "/")
	if settingType == "" {
		writeError(w, http.StatusBadRequest, "setting type is required")
		return
	}
	doc, err := s.deps.Catalog.BySetting(r.Context(), settingType)
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc)
}

// GET /api/sources/last-updated?url=
func (s *Server) handleLastUpdated(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	date, err := s.deps.LastUpdated.Resolve(r.Context(), rawURL)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": rawURL, "last_updated": date})
}

// GET|PUT /api/selection
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sel, err := s.deps.Selection.Load()
		if err != nil {
			writeAppError(w, apperror.Wrap(err, apperror.KindIO, "failed to load selection"))
			return
		}
		writeJSON(w, http.StatusOK, sel)
	case http.MethodPut:
		var sel config.Selection
		if !decodeJSON(w, r, &sel) {
			return
		}
		if err := s.deps.Selection.Save(sel); err != nil {
			writeAppError(w, apperror.Wrap(err, apperror.KindIO, "failed to save selection"))
			return
		}
		writeJSON(w, http.StatusOK, sel)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET|PUT /api/theme
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		theme, err := config.LoadTheme(s.deps.ThemePath)
		if err != nil {
			log.Warn("[HTTP] Failed to read theme, using default: %v", err)
		}
		writeJSON(w, http.StatusOK, theme)
	case http.MethodPut:
		var theme config.Theme
		if !decodeJSON(w, r, &theme) {
			return
		}
		if err := theme.Validate(); err != nil {
			writeAppError(w, apperror.Wrap(err, apperror.KindInvalid, "invalid theme"))
			return
		}
		if err := config.SaveTheme(s.deps.ThemePath, theme); err != nil {
			writeAppError(w, apperror.Wrap(err, apperror.KindIO, "failed to save theme"))
			return
		}
		writeJSON(w, http.StatusOK, theme)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET /api/changelog?owner=&repo=
func (s *Server) handleChangelog(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	owner := r.URL.Query().Get("owner")
	repo := r.URL.Query().Get("repo")
	if owner == "" && repo == "" {
		owner, repo = s.deps.ChangelogOwner, s.deps.ChangelogRepo
	}
	if owner == "" || repo == "" {
		writeError(w, http.StatusBadRequest, "owner and repo are required")
		return
	}
	commits, err := s.deps.Changelog.Latest(r.Context(), owner, repo)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"commits": commits})
}
