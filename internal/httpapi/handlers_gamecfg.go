package httpapi

import (
	"net/http"

	"github.com/MimeLyc/startrad-companion/internal/backup"
	"github.com/MimeLyc/startrad-companion/internal/gamecfg"
)

func queryChannel(r *http.Request) string {
	if v := r.URL.Query().Get("version"); v != "" {
		return v
	}
	return backup.DefaultChannel
}

// GET|PUT /api/graphics/renderer
func (s *Server) handleGraphicsRenderer(w http.ResponseWriter, r *http.Request) {
	if s.deps.Graphics == nil {
		unavailable(w, "graphics settings")
		return
	}
	switch r.Method {
	case http.MethodGet:
		renderer, err := s.deps.Graphics.Renderer(queryChannel(r))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"renderer": renderer})
	case http.MethodPut:
		var req struct {
			Renderer *int `json:"renderer"`
			channelRequest
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Renderer == nil {
			writeError(w, http.StatusBadRequest, "renderer is required")
			return
		}
		if err := s.deps.Graphics.SetRenderer(req.channel(), *req.Renderer); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"renderer": *req.Renderer})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET|PUT /api/graphics/resolution
func (s *Server) handleGraphicsResolution(w http.ResponseWriter, r *http.Request) {
	if s.deps.Graphics == nil {
		unavailable(w, "graphics settings")
		return
	}
	switch r.Method {
	case http.MethodGet:
		res, err := s.deps.Graphics.Resolution(queryChannel(r))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	case http.MethodPut:
		var req struct {
			gamecfg.Resolution
			channelRequest
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := s.deps.Graphics.SetResolution(req.channel(), req.Resolution); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req.Resolution)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET|PUT /api/graphics/advanced
func (s *Server) handleGraphicsAdvanced(w http.ResponseWriter, r *http.Request) {
	if s.deps.Graphics == nil {
		unavailable(w, "graphics settings")
		return
	}
	switch r.Method {
	case http.MethodGet:
		settings, err := s.deps.Graphics.Advanced(queryChannel(r))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req struct {
			Settings gamecfg.Advanced `json:"settings"`
			channelRequest
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := s.deps.Graphics.SetAdvanced(req.channel(), req.Settings); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req.Settings)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET /api/graphics/presets
func (s *Server) handleGraphicsPresets(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": gamecfg.Presets()})
}

// POST /api/graphics/presets/apply
func (s *Server) handleGraphicsPresetApply(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.deps.Graphics == nil {
		unavailable(w, "graphics settings")
		return
	}
	var req struct {
		Name string `json:"name"`
		channelRequest
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	settings, err := s.deps.Graphics.ApplyPreset(req.channel(), req.Name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": req.Name, "settings": settings})
}

// GET|POST|DELETE /api/bindings
func (s *Server) handleBindings(w http.ResponseWriter, r *http.Request) {
	if s.deps.Bindings == nil {
		unavailable(w, "bindings")
		return
	}
	switch r.Method {
	case http.MethodGet:
		files, err := s.deps.Bindings.List(queryChannel(r))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bindings": files, "count": len(files)})
	case http.MethodPost:
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
		imported, err := s.deps.Bindings.Import(req.channel(), req.Path)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, imported)
	case http.MethodDelete:
		target := r.URL.Query().Get("path")
		if target == "" {
			writeError(w, http.StatusBadRequest, "path is required")
			return
		}
		if err := s.deps.Bindings.Delete(queryChannel(r), target); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET|DELETE /api/characters/local
func (s *Server) handleLocalCharacters(w http.ResponseWriter, r *http.Request) {
	if s.deps.LocalCharacters == nil {
		unavailable(w, "local characters")
		return
	}
	switch r.Method {
	case http.MethodGet:
		chars, err := s.deps.LocalCharacters.List(r.URL.Query().Get("version"))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"characters": chars, "count": len(chars)})
	case http.MethodDelete:
		target := r.URL.Query().Get("path")
		if target == "" {
			writeError(w, http.StatusBadRequest, "path is required")
			return
		}
		if err := s.deps.LocalCharacters.Delete(target); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// POST /api/characters/local/duplicate
func (s *Server) handleLocalCharacterDuplicate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.deps.LocalCharacters == nil {
		unavailable(w, "local characters")
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	written, err := s.deps.LocalCharacters.Duplicate(req.Path)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"copies": written})
}

// POST /api/characters/local/download
func (s *Server) handleLocalCharacterDownload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.deps.LocalCharacters == nil {
		unavailable(w, "local characters")
		return
	}
	var req struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	char, err := s.deps.LocalCharacters.Download(r.Context(), req.URL, req.Title)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, char)
}

// GET|DELETE /api/shader-cache
func (s *Server) handleShaderCache(w http.ResponseWriter, r *http.Request) {
	if s.deps.ShaderCache == nil {
		unavailable(w, "shader cache")
		return
	}
	switch r.Method {
	case http.MethodGet:
		folders, err := s.deps.ShaderCache.Folders()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
	case http.MethodDelete:
		target := r.URL.Query().Get("path")
		if target == "" {
			writeError(w, http.StatusBadRequest, "path is required")
			return
		}
		if err := s.deps.ShaderCache.Delete(target); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// POST /api/shader-cache/clear
func (s *Server) handleShaderCacheClear(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.deps.ShaderCache == nil {
		unavailable(w, "shader cache")
		return
	}
	removed, err := s.deps.ShaderCache.Clear()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// GET /api/playtime
func (s *Server) handlePlaytime(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if s.deps.Playtime == nil {
		unavailable(w, "playtime")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Playtime.Playtime())
}

// GET|PUT /api/autostart
func (s *Server) handleAutostart(w http.ResponseWriter, r *http.Request) {
	if s.deps.Autostart == nil {
		unavailable(w, "autostart")
		return
	}
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req struct {
			Enabled *bool `json:"enabled"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		toggle := s.deps.Autostart.Disable
		if *req.Enabled {
			toggle = s.deps.Autostart.Enable
		}
		if err := toggle(); err != nil {
			writeAppError(w, err)
			return
		}
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	enabled, err := s.deps.Autostart.Enabled()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": enabled})
}
