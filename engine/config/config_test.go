package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/deskvrm/engine/assetstore"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	// --- Act ---
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))

	// --- Assert ---
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Blocks(t *testing.T) {
	// --- Arrange ---
	src := []byte(`
window {
  width         = 320
  head_tracking = false
}

render {
  backend     = "software"
  frame_limit = 30
  profiling   = true
}

animator {
  arm_rest_angle = pi / 2.6
  blink          = false
  blink_duration = 0.2
  clips_dir      = "clips"
}

store {
  kind = "sqlite"
  path = "models.db"
}

telemetry {
  endpoint = "http://localhost:4318"
}
`)

	// --- Act ---
	cfg, err := Parse(src, "deskvrm.hcl")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Window.Width)
	assert.Equal(t, 500, cfg.Window.Height, "unset attributes keep defaults")
	assert.False(t, cfg.Window.HeadTracking)
	assert.True(t, cfg.Window.Drag)
	assert.Equal(t, "software", cfg.Render.Backend)
	assert.InDelta(t, 30.0, cfg.Render.FrameLimit, 1e-9)
	assert.True(t, cfg.Render.Profiling)
	assert.InDelta(t, math.Pi/2.6, float64(cfg.Animator.ArmRestAngle), 1e-6)
	assert.False(t, cfg.Animator.Settings.Blink)
	assert.True(t, cfg.Animator.Settings.Breathing)
	assert.InDelta(t, 0.2, float64(cfg.Animator.Settings.BlinkDuration), 1e-6)
	assert.Equal(t, "clips", cfg.Animator.ClipsDir)
	assert.Equal(t, assetstore.KindSQLite, cfg.Store.Kind)
	assert.Equal(t, "models.db", cfg.Store.Path)
	assert.Equal(t, "http://localhost:4318", cfg.Telemetry.Endpoint)
	assert.Equal(t, "deskvrm", cfg.Telemetry.ServiceName)
}

func TestParse_EnvOverridesFile(t *testing.T) {
	// --- Arrange ---
	t.Setenv("DESKVRM_STORE_KIND", "http")
	t.Setenv("DESKVRM_STORE_ADDR", "127.0.0.1:9000")
	t.Setenv("DESKVRM_STORE_DIR", "/tmp/models")
	t.Setenv("DESKVRM_OTEL_ENDPOINT", "http://collector:4318")
	t.Setenv("DESKVRM_VERBOSE", "true")
	src := []byte(`store {
  kind = "sqlite"
}
`)

	// --- Act ---
	cfg, err := Parse(src, "deskvrm.hcl")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, assetstore.KindHTTP, cfg.Store.Kind)
	assert.Equal(t, "127.0.0.1:9000", cfg.Store.Addr)
	assert.Equal(t, "/tmp/models", cfg.Store.Dir)
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.Endpoint)
	assert.True(t, cfg.Render.Verbose)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "syntax", src: `window {`},
		{name: "unknown attribute", src: "window {\n  colour = \"red\"\n}\n"},
		{name: "unknown variable", src: "animator {\n  arm_rest_angle = tau / 4\n}\n"},
		{name: "unknown store kind", src: "store {\n  kind = \"s3\"\n}\n"},
		{name: "unknown backend", src: "render {\n  backend = \"vulkan\"\n}\n"},
		{name: "inverted blink range", src: "animator {\n  blink_interval_min = 5\n  blink_interval_max = 1\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "deskvrm.hcl")
			assert.Error(t, err)
		})
	}
}

func TestParse_MalformedEnv(t *testing.T) {
	t.Setenv("DESKVRM_VERBOSE", "sometimes")

	_, err := Parse(nil, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoad_ReadsFile(t *testing.T) {
	// --- Arrange ---
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("window {\n  title = \"buddy\"\n}\n"), 0o644))

	// --- Act ---
	cfg, err := Load(path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "buddy", cfg.Window.Title)
}

func TestConfig_ComponentOptions(t *testing.T) {
	cfg := Default()
	cfg.Animator.LoopClips = false

	assert.False(t, cfg.PlayOptions().Loop)
	assert.Len(t, cfg.LoaderOptions(), 2)
	assert.Len(t, cfg.AnimatorOptions(), 1)
	assert.Equal(t, assetstore.Options{Kind: "file", Dir: "vrm", Path: "deskvrm.db", Addr: "127.0.0.1:8108"}, cfg.StoreOptions())
}
