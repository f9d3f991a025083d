package gamecfg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/gamepath"
)

type fakeLocator gamepath.Installations

func (f fakeLocator) Discover() gamepath.Installations {
	return gamepath.Installations(f)
}

func newInstall(t *testing.T, channels ...string) (fakeLocator, map[string]string) {
	t.Helper()
	root := t.TempDir()
	loc := fakeLocator{}
	paths := map[string]string{}
	for _, ch := range channels {
		p := filepath.Join(root, "StarCitizen", ch)
		require.NoError(t, os.MkdirAll(p, 0o755))
		loc[ch] = gamepath.Installation{Channel: ch, Path: p}
		paths[ch] = p
	}
	return loc, paths
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func intp(v int) *int { return &v }

func TestGraphics_RendererDefaultsAndSet(t *testing.T) {
	loc, paths := newInstall(t, "LIVE")
	dataDir := t.TempDir()
	jsonPath := filepath.Join(dataDir, "sc-alpha-4.1", graphicsJSONDir, graphicsJSONName)
	writeFile(t, jsonPath, `{"GraphicsSettings":{"GraphicsRenderer":0,"Quality":3},"Other":true}`)

	g := NewGraphics(loc, dataDir)
	r, err := g.Renderer("LIVE")
	require.NoError(t, err)
	assert.Equal(t, RendererDX11, r)

	cfgPath := filepath.Join(paths["LIVE"], userCfgName)
	writeFile(t, cfgPath, "r.graphicsRenderer = 0\r\nsys_spec = 3\r\n")
	require.NoError(t, g.SetRenderer("LIVE", RendererVulkan))

	assert.Equal(t, "sys_spec = 3\nr.graphicsRenderer = 1", readFile(t, cfgPath))
	r, err = g.Renderer("LIVE")
	require.NoError(t, err)
	assert.Equal(t, RendererVulkan, r)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(readFile(t, jsonPath)), &doc))
	assert.Equal(t, map[string]any{"GraphicsRenderer": float64(1), "Quality": float64(3)}, doc["GraphicsSettings"])
	assert.Equal(t, true, doc["Other"])
}

func TestGraphics_Errors(t *testing.T) {
	loc, _ := newInstall(t, "LIVE")
	g := NewGraphics(loc, t.TempDir())

	assert.True(t, apperror.IsKind(g.SetRenderer("LIVE", 7), apperror.KindInvalid))
	assert.True(t, apperror.IsKind(g.SetResolution("LIVE", Resolution{Width: 0, Height: 1080}), apperror.KindInvalid))

	_, err := g.Renderer("PTU")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	_, err = g.ApplyPreset("LIVE", "Ultra")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestGraphics_Resolution(t *testing.T) {
	loc, paths := newInstall(t, "LIVE")
	g := NewGraphics(loc, t.TempDir())

	res, err := g.Resolution("LIVE")
	require.NoError(t, err)
	assert.Equal(t, Resolution{Width: DefaultWidth, Height: DefaultHeight}, res)

	cfgPath := filepath.Join(paths["LIVE"], userCfgName)
	writeFile(t, cfgPath, strings.Join([]string{
		"r.graphicsRenderer = 1",
		"r_width = 800",
		"g_language = french_(france)",
		"",
		"",
	}, "\n"))

	require.NoError(t, g.SetResolution("LIVE", Resolution{Width: 2560, Height: 1440}))
	assert.Equal(t, strings.Join([]string{
		"g_language = french_(france)",
		"Con_Restricted = 0",
		"",
		"r_width = 2560",
		"r_height = 1440",
		"",
		"r.graphicsRenderer = 1",
	}, "\n"), readFile(t, cfgPath))

	res, err = g.Resolution("LIVE")
	require.NoError(t, err)
	assert.Equal(t, Resolution{Width: 2560, Height: 1440}, res)
}

func TestGraphics_AdvancedRoundTrip(t *testing.T) {
	loc, paths := newInstall(t, "LIVE")
	g := NewGraphics(loc, t.TempDir())

	cfgPath := filepath.Join(paths["LIVE"], userCfgName)
	writeFile(t, cfgPath, strings.Join([]string{
		"-- r_vsync = 9",
		"g_language = french_(france)",
		"R_VSYNC = 1",
		"r_DOF = 0",
		"e_shadows = 2",
		"",
		"",
		"",
		"r_SSReflections = 2",
	}, "\n"))

	got, err := g.Advanced("LIVE")
	require.NoError(t, err)
	assert.Equal(t, intp(1), got.VSync)
	assert.Equal(t, intp(2), got.SSR)
	assert.Nil(t, got.MaxFPS)
	assert.Nil(t, got.Shadows)

	require.NoError(t, g.SetAdvanced("LIVE", Advanced{VSync: intp(0), MaxFPS: intp(144), SSR: intp(1)}))
	assert.Equal(t, strings.Join([]string{
		"-- r_vsync = 9",
		"g_language = french_(france)",
		"",
		"",
		"r_VSync = 0",
		"sys_maxFps = 144",
		"r_SSReflections = 1",
	}, "\n"), readFile(t, cfgPath))
}

func TestGraphics_ApplyPresetUpdatesProfileAndJSON(t *testing.T) {
	loc, paths := newInstall(t, "PTU")
	dataDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "sc-alpha-4.2"), 0o755))

	attrs := filepath.Join(profileDir(paths["PTU"]), "Profiles", "default", "attributes.xml")
	writeFile(t, attrs, `<Attributes>
 <Attr name="SysSpec_Shading" value="2"/>
 <Attr name="SysSpec_ShadowMaps" value="4"/>
 <Attr name="SysSpec_PlanetVolumetricClouds" value="4"/>
</Attributes>`)

	g := NewGraphics(loc, dataDir)
	settings, err := g.ApplyPreset("PTU", "performance")
	require.NoError(t, err)
	assert.Equal(t, intp(30), settings.MaxIdleFPS)

	xml := readFile(t, attrs)
	assert.Contains(t, xml, `<Attr name="SysSpec_Shading" value="1"/>`)
	assert.Contains(t, xml, `<Attr name="SysSpec_ShadowMaps" value="1"/>`)
	assert.Contains(t, xml, `<Attr name="SysSpec_PlanetVolumetricClouds" value="1"/>`)

	var doc struct {
		GraphicsSettings map[string]int `json:"GraphicsSettings"`
	}
	jsonPath := filepath.Join(dataDir, "sc-alpha-4.2", graphicsJSONDir, graphicsJSONName)
	require.NoError(t, json.Unmarshal([]byte(readFile(t, jsonPath)), &doc))
	assert.Equal(t, map[string]int{
		"VSync": 0, "MotionBlur": 0, "VolumetricClouds": 0, "Shadows": 1,
		"SSDO": 0, "SSR": 0, "MaxFPS": 0, "DisplayInfo": 0,
	}, doc.GraphicsSettings)

	cfg := readFile(t, filepath.Join(paths["PTU"], userCfgName))
	assert.Contains(t, cfg, "sys_maxIdleFps = 30")
	assert.NotContains(t, cfg, "e_shadows")
}

func TestPresets(t *testing.T) {
	presets := Presets()
	require.Len(t, presets, 4)
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
		assert.NotNil(t, p.Settings.VolumetricClouds, p.Name)
	}
	assert.Equal(t, []string{"Performance", "Equilibre", "Qualite", "Cinematique"}, names)
	assert.Equal(t, intp(60), presets[3].Settings.MaxFPS)

	// presets are independent values
	*presets[0].Settings.VSync = 5
	assert.Equal(t, intp(0), Presets()[0].Settings.VSync)
}

func TestSetXMLAttr_FirstMatchOnly(t *testing.T) {
	in := `<Attr name="A" value="1"/><Attr name="A" value="2"/><Attr name="B" value="x"/>`
	assert.Equal(t, `<Attr name="A" value="9"/><Attr name="A" value="2"/><Attr name="B" value="x"/>`, setXMLAttr(in, "A", 9))
	assert.Equal(t, in, setXMLAttr(in, "C", 1))
}
