package httpapi

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/gamepath"
	"github.com/MimeLyc/startrad-companion/internal/persistence"
	"github.com/MimeLyc/startrad-companion/internal/sources"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

type versionView struct {
	Channel    string `json:"channel"`
	Path       string `json:"path"`
	Link       string `json:"link,omitempty"`
	Translated bool   `json:"translated"`
	UpToDate   *bool  `json:"up_to_date,omitempty"`
}

// GET /api/versions[?check=true]
func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	lang := s.deps.Settings.Get().Language
	sel, err := s.deps.Selection.Load()
	if err != nil {
		log.Warn("[HTTP] Failed to load selection: %v", err)
	}
	check := r.URL.Query().Get("check") == "true"

	installs := s.deps.Locator.Discover()
	views := make([]versionView, 0, len(installs))
	for channel, inst := range installs {
		v := versionView{
			Channel:    channel,
			Path:       inst.Path,
			Link:       sel[channel].URL(),
			Translated: s.deps.Synchronizer.IsTranslated(inst.Path, lang),
		}
		if check && v.Translated && v.Link != "" {
			ok := s.deps.Synchronizer.IsUpToDate(r.Context(), inst.Path, v.Link, lang)
			v.UpToDate = &ok
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Channel < views[j].Channel })

	writeJSON(w, http.StatusOK, map[string]any{
		"versions": views,
		"count":    len(views),
	})
}

// GET /api/launcher
func (s *Server) handleLauncher(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Locator.FindLauncher())
}

// POST /api/launcher/launch
func (s *Server) handleLaunchLauncher(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.deps.Locator.LaunchLauncher(); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"launched": true})
}

// GET /api/translations/status?path=&lang=&link=
func (s *Server) handleTranslationStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	installPath := q.Get("path")
	if installPath == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	lang := q.Get("lang")
	if lang == "" {
		lang = s.deps.Settings.Get().Language
	}
	link := q.Get("link")

	translated := s.deps.Synchronizer.IsTranslated(installPath, lang)
	upToDate := false
	if translated && link != "" {
		upToDate = s.deps.Synchronizer.IsUpToDate(r.Context(), installPath, link, lang)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":       installPath,
		"language":   lang,
		"translated": translated,
		"up_to_date": upToDate,
	})
}

type translationRequest struct {
	Path    string     `json:"path"`
	Lang    string     `json:"lang"`
	Link    string     `json:"link"`
	Channel string     `json:"channel"`
	Source  sources.ID `json:"source"`
}

// POST /api/translations/{init,update,uninstall,branding,install-from-cache}
func (s *Server) handleTranslationAction(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	action := strings.TrimPrefix(r.URL.Path, "/api/translations/")

	var req translationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if req.Lang == "" {
		req.Lang = s.deps.Settings.Get().Language
	}

	var err error
	result := map[string]any{"path": req.Path, "action": action}
	switch action {
	case "init":
		if req.Link == "" {
			writeError(w, http.StatusBadRequest, "link is required")
			return
		}
		err = s.deps.Synchronizer.Init(r.Context(), req.Path, req.Lang, req.Link)
	case "update":
		if req.Link == "" {
			writeError(w, http.StatusBadRequest, "link is required")
			return
		}
		err = s.manualUpdate(r, req)
	case "uninstall":
		err = s.deps.Synchronizer.Uninstall(req.Path)
	case "branding":
		var changed bool
		changed, err = s.deps.Synchronizer.ApplyBrandingToLocalFile(req.Path, req.Lang)
		result["changed"] = changed
	case "install-from-cache":
		if req.Channel == "" || req.Source == "" {
			writeError(w, http.StatusBadRequest, "channel and source are required")
			return
		}
		err = s.deps.Synchronizer.InstallFromCache(req.Path, req.Lang, req.Channel, req.Source)
	default:
		writeError(w, http.StatusNotFound, "unknown translation action: "+action)
		return
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	result["ok"] = true
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) manualUpdate(r *http.Request, req translationRequest) error {
	started := time.Now()
	err := s.deps.Synchronizer.Update(r.Context(), req.Path, req.Lang, req.Link)
	if s.deps.History == nil {
		return err
	}

	channel := req.Channel
	if channel == "" {
		channel = gamepath.ChannelOf(req.Path)
	}
	rec := persistence.SyncRecord{
		Channel:   channel,
		SourceURL: req.Link,
		Trigger:   persistence.TriggerManual,
		Outcome:   persistence.OutcomeUpdated,
		Duration:  time.Since(started),
		CreatedAt: time.Now(),
	}
	if err != nil {
		rec.Outcome = persistence.OutcomeFailed
		rec.Error = err.Error()
	}
	if _, herr := s.deps.History.Record(r.Context(), rec); herr != nil {
		log.Warn("[HTTP] Failed to record manual update: %v", herr)
	}
	return err
}

// GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	lang := s.deps.Settings.Get().Language
	installs := s.deps.Locator.Discover()
	translated := make(map[string]bool, len(installs))
	count := 0
	for channel, inst := range installs {
		ok := s.deps.Synchronizer.IsTranslated(inst.Path, lang)
		translated[channel] = ok
		if ok {
			count++
		}
	}

	resp := map[string]any{
		"installations":          len(installs),
		"translated":             translated,
		"installed_translations": count,
		"character_backups":      s.deps.Characters.Count(),
	}
	if info, err := s.deps.Cache.Info(); err == nil {
		resp["cache"] = info
	} else {
		log.Warn("[HTTP] Failed to read cache info: %v", err)
	}
	if s.deps.History != nil {
		totals, err := s.deps.History.Totals(r.Context())
		if err != nil {
			writeAppError(w, apperror.Wrap(err, apperror.KindIO, "failed to read history totals"))
			return
		}
		resp["updates"] = totals
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/app/minimized
func (s *Server) handleMinimized(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"minimized": s.deps.Minimized})
}
