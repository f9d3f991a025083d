package gamecfg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/file"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

const (
	RendererDX11   = 0
	RendererVulkan = 1

	DefaultWidth  = 1920
	DefaultHeight = 1080

	rendererKey       = "r.graphicsrenderer"
	graphicsJSONDir   = "GraphicsSettings"
	graphicsJSONName  = "GraphicsSettings.json"
	graphicsJSONGroup = "GraphicsSettings"
)

type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Advanced holds the optional user.cfg tuning values. Shadows and
// VolumetricClouds only live in attributes.xml and GraphicsSettings.json,
// so reading user.cfg leaves them nil.
type Advanced struct {
	VSync            *int `json:"r_vsync"`
	MotionBlur       *int `json:"r_motionblur"`
	MaxFPS           *int `json:"sys_maxfps"`
	MaxIdleFPS       *int `json:"sys_maxidlefps"`
	DisplayInfo      *int `json:"r_displayinfo"`
	SSDO             *int `json:"r_ssdo"`
	SSR              *int `json:"r_ssr"`
	SSReflHalfRes    *int `json:"r_ssreflhalfres"`
	TSR              *int `json:"r_tsr"`
	Shadows          *int `json:"e_shadows"`
	VolumetricClouds *int `json:"r_volumetric_clouds"`
}

type cfgField struct {
	key     string
	written string
	ref     func(*Advanced) **int
}

// cfgFields are the user.cfg keys Advanced manages, in write order.
var cfgFields = []cfgField{
	{"r_vsync", "r_VSync", func(a *Advanced) **int { return &a.VSync }},
	{"r_motionblur", "r_MotionBlur", func(a *Advanced) **int { return &a.MotionBlur }},
	{"sys_maxfps", "sys_maxFps", func(a *Advanced) **int { return &a.MaxFPS }},
	{"sys_maxidlefps", "sys_maxIdleFps", func(a *Advanced) **int { return &a.MaxIdleFPS }},
	{"r_displayinfo", "r_DisplayInfo", func(a *Advanced) **int { return &a.DisplayInfo }},
	{"r_ssdo", "r_ssdo", func(a *Advanced) **int { return &a.SSDO }},
	{"r_ssreflections", "r_SSReflections", func(a *Advanced) **int { return &a.SSR }},
	{"r_ssreflhalfres", "r_SSReflHalfRes", func(a *Advanced) **int { return &a.SSReflHalfRes }},
	{"r_tsr", "r_TSR", func(a *Advanced) **int { return &a.TSR }},
}

// Keys the game no longer reads from user.cfg; writing Advanced drops them.
var deprecatedKeys = []string{
	"r_ssr", "r_displayframegraph", "r_dof", "r_depthoffield", "r_filmgrain",
	"r_sharpening", "r_gamma", "r_texturesstreampoolsize", "sys_budget_videomem",
	"r_chromatic_aberration", "r_chromaticaberration",
	"e_shadows", "r_fog", "r_fogshadows", "r_volumetricclouds",
	"r_texturestreamingquality", "r_upscalingtechnique",
	"r_bloom", "r_opticsbloom", "r_lensflares", "r_vignetting", "r_colorgrading",
	"r_tessellation", "r_texanisotropicfiltering", "r_texmaxanisotropy", "r_texminanisotropy",
	"e_viewdistratio", "e_viewdistratiodetail", "e_lodratio",
	"r_shadowscastsunlight", "r_shadowspoolsize", "r_antialiasingmode",
	"e_lodmergelodmin", "e_lodmergelodfaceareatargetsize", "e_lodmergelodratio",
}

type Preset struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Settings    Advanced `json:"settings"`
}

// Presets returns the built-in graphics presets.
func Presets() []Preset {
	preset := func(name, desc string, v ...int) Preset {
		p := make([]*int, len(v))
		for i := range v {
			p[i] = &v[i]
		}
		return Preset{Name: name, Description: desc, Settings: Advanced{
			VSync: p[0], MotionBlur: p[1], MaxFPS: p[2], MaxIdleFPS: p[3], DisplayInfo: p[4],
			SSDO: p[5], SSR: p[6], SSReflHalfRes: p[7], TSR: p[8], Shadows: p[9], VolumetricClouds: p[10],
		}}
	}
	return []Preset{
		preset("Performance", "Maximum FPS, effets visuels minimaux", 0, 0, 0, 30, 0, 0, 0, 1, 1, 1, 0),
		preset("Equilibre", "Bon compromis entre qualite et performance", 0, 0, 0, 60, 0, 1, 1, 1, 1, 2, 1),
		preset("Qualite", "Qualite visuelle maximale", 1, 1, 0, 60, 0, 2, 2, 0, 1, 3, 1),
		preset("Cinematique", "Pour les captures video et screenshots", 1, 2, 60, 30, 0, 2, 2, 0, 1, 3, 1),
	}
}

// Graphics edits per-channel user.cfg, the default profile's
// attributes.xml and the GraphicsSettings.json files under dataDir.
type Graphics struct {
	locator Locator
	dataDir string
}

func NewGraphics(locator Locator, dataDir string) *Graphics {
	return &Graphics{locator: locator, dataDir: dataDir}
}

func (g *Graphics) userCfg(channel string) (string, error) {
	root, err := installPath(g.locator, channel)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, userCfgName), nil
}

// Renderer returns r.graphicsRenderer, DX11 when unset.
func (g *Graphics) Renderer(channel string) (int, error) {
	path, err := g.userCfg(channel)
	if err != nil {
		return 0, err
	}
	lines, err := readUserCfg(path)
	if err != nil {
		return 0, err
	}
	if v := lines.intValue(rendererKey); v != nil && *v >= 0 {
		return *v, nil
	}
	return RendererDX11, nil
}

// SetRenderer records the renderer in the GraphicsSettings.json files and
// moves the user.cfg line to the end of the file.
func (g *Graphics) SetRenderer(channel string, renderer int) error {
	if renderer != RendererDX11 && renderer != RendererVulkan {
		return apperror.Newf(apperror.KindInvalid, "unknown renderer %d", renderer)
	}
	path, err := g.userCfg(channel)
	if err != nil {
		return err
	}
	lines, err := readUserCfg(path)
	if err != nil {
		return err
	}
	lines = append(lines.without(rendererKey), rendererLine(renderer))
	if err := lines.write(path); err != nil {
		return err
	}

	patched := g.patchGraphicsJSON(map[string]any{"GraphicsRenderer": renderer}, false)
	if patched == 0 {
		log.Warn("[Graphics] No %s under %s, renderer only saved in user.cfg", graphicsJSONName, g.dataDir)
	}
	log.Info("[Graphics] %s renderer set to %d", channel, renderer)
	return nil
}

func rendererLine(renderer int) string {
	return "r.graphicsRenderer = " + strconv.Itoa(renderer)
}

func (g *Graphics) Resolution(channel string) (Resolution, error) {
	path, err := g.userCfg(channel)
	if err != nil {
		return Resolution{}, err
	}
	lines, err := readUserCfg(path)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Width: DefaultWidth, Height: DefaultHeight}
	if v := lines.intValue("r_width"); v != nil && *v > 0 {
		res.Width = *v
	}
	if v := lines.intValue("r_height"); v != nil && *v > 0 {
		res.Height = *v
	}
	return res, nil
}

// SetResolution writes Con_Restricted and the size after the last content
// line. An existing renderer line stays last.
func (g *Graphics) SetResolution(channel string, res Resolution) error {
	if res.Width <= 0 || res.Height <= 0 {
		return apperror.Newf(apperror.KindInvalid, "invalid resolution %dx%d", res.Width, res.Height)
	}
	path, err := g.userCfg(channel)
	if err != nil {
		return err
	}
	lines, err := readUserCfg(path)
	if err != nil {
		return err
	}
	renderer, hasRenderer := lines.line(rendererKey)
	lines = lines.without("con_restricted", "r_width", "r_height", rendererKey)

	at := lines.lastContent()
	block := cfgLines{
		"Con_Restricted = 0",
		"",
		fmt.Sprintf("r_width = %d", res.Width),
		fmt.Sprintf("r_height = %d", res.Height),
	}
	lines = slices.Insert(lines, at, block...)
	if hasRenderer {
		lines = append(lines, renderer)
	}
	return lines.write(path)
}

func (g *Graphics) Advanced(channel string) (Advanced, error) {
	path, err := g.userCfg(channel)
	if err != nil {
		return Advanced{}, err
	}
	lines, err := readUserCfg(path)
	if err != nil {
		return Advanced{}, err
	}
	var out Advanced
	for _, f := range cfgFields {
		*f.ref(&out) = lines.intValue(f.key)
	}
	return out, nil
}

// SetAdvanced rewrites the managed user.cfg keys, then mirrors the values
// into attributes.xml and every GraphicsSettings.json.
func (g *Graphics) SetAdvanced(channel string, settings Advanced) error {
	root, err := installPath(g.locator, channel)
	if err != nil {
		return err
	}
	path := filepath.Join(root, userCfgName)
	lines, err := readUserCfg(path)
	if err != nil {
		return err
	}

	drop := append([]string{}, deprecatedKeys...)
	for _, f := range cfgFields {
		drop = append(drop, f.key)
	}
	lines = lines.without(drop...).capBlankLines(2)

	var added cfgLines
	for _, f := range cfgFields {
		if v := *f.ref(&settings); v != nil {
			added = append(added, fmt.Sprintf("%s = %d", f.written, *v))
		}
	}
	if len(added) > 0 {
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
			lines = append(lines, "")
		}
		lines = append(lines, added...)
	}
	if err := lines.write(path); err != nil {
		return err
	}

	if err := updateAttributes(filepath.Join(profileDir(root), "Profiles", "default", "attributes.xml"), settings); err != nil {
		return err
	}

	values := map[string]any{}
	for key, v := range map[string]*int{
		"VSync":            settings.VSync,
		"MotionBlur":       settings.MotionBlur,
		"VolumetricClouds": settings.VolumetricClouds,
		"Shadows":          settings.Shadows,
		"SSDO":             settings.SSDO,
		"SSR":              settings.SSR,
		"MaxFPS":           settings.MaxFPS,
		"DisplayInfo":      settings.DisplayInfo,
	} {
		if v != nil {
			values[key] = *v
		}
	}
	if len(values) > 0 {
		g.patchGraphicsJSON(values, true)
	}
	log.Info("[Graphics] %s advanced settings saved (%d user.cfg keys)", channel, len(added))
	return nil
}

// ApplyPreset writes the named preset and returns its settings.
func (g *Graphics) ApplyPreset(channel, name string) (Advanced, error) {
	for _, p := range Presets() {
		if !strings.EqualFold(p.Name, name) {
			continue
		}
		if err := g.SetAdvanced(channel, p.Settings); err != nil {
			return Advanced{}, err
		}
		return p.Settings, nil
	}
	return Advanced{}, apperror.Newf(apperror.KindNotFound, "preset %q not found", name)
}

// updateAttributes rewrites the SysSpec attributes driven by settings.
// A missing attributes.xml is left alone.
func updateAttributes(path string, settings Advanced) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperror.Wrap(err, apperror.KindIO, "failed to read attributes.xml").WithContext("path", path)
	}
	xml := string(data)
	if v := settings.VolumetricClouds; v != nil {
		xml = setXMLAttr(xml, "SysSpec_PlanetVolumetricClouds", levelOf(*v))
	}
	if v := settings.Shadows; v != nil {
		xml = setXMLAttr(xml, "SysSpec_ShadowMaps", *v)
	}
	if v := settings.SSDO; v != nil {
		xml = setXMLAttr(xml, "SysSpec_Shading", levelOf(*v))
	}
	if err := file.WriteAtomic(path, []byte(xml), 0o644); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to write attributes.xml").WithContext("path", path)
	}
	return nil
}

// levelOf maps an on/off value to the SysSpec level the game uses.
func levelOf(v int) int {
	if v > 0 {
		return 4
	}
	return 1
}

// setXMLAttr replaces the first <Attr name="name" value="..."/> element.
func setXMLAttr(xml, name string, value int) string {
	re := regexp.MustCompile(`<Attr name="` + regexp.QuoteMeta(name) + `" value="[^"]*"/>`)
	loc := re.FindStringIndex(xml)
	if loc == nil {
		return xml
	}
	return xml[:loc[0]] + fmt.Sprintf(`<Attr name="%s" value="%d"/>`, name, value) + xml[loc[1]:]
}

// patchGraphicsJSON merges values into the GraphicsSettings group of the
// GraphicsSettings.json of every folder under dataDir. With create set,
// folders without the file get one. It returns the number of files written.
func (g *Graphics) patchGraphicsJSON(values map[string]any, create bool) int {
	entries, err := os.ReadDir(g.dataDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("[Graphics] Cannot list %s: %v", g.dataDir, err)
		}
		return 0
	}
	patch, err := json.Marshal(map[string]any{graphicsJSONGroup: values})
	if err != nil {
		log.Warn("[Graphics] Cannot encode settings: %v", err)
		return 0
	}

	written := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(g.dataDir, e.Name(), graphicsJSONDir, graphicsJSONName)
		if !create && !file.Exists(path) {
			continue
		}
		if err := mergeJSONFile(path, patch); err != nil {
			log.Warn("[Graphics] Cannot update %s: %v", path, err)
			continue
		}
		written++
	}
	return written
}

// mergeJSONFile applies an RFC 7386 merge patch to path. Missing or
// unreadable documents are replaced.
func mergeJSONFile(path string, patch []byte) error {
	doc, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	doc = file.StripBOM(doc)
	if !json.Valid(doc) || bytes.TrimSpace(doc)[0] != '{' {
		doc = []byte("{}")
	}
	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, merged, "", "  "); err != nil {
		return err
	}
	return file.WriteAtomic(path, out.Bytes(), 0o644)
}
