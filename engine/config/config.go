// Package config loads deskvrm settings from an HCL file and the environment.
//
// A missing file yields the defaults. Expressions in the file may reference pi, for example
//
//	animator {
//	  arm_rest_angle = pi / 2.6
//	}
//
// Environment variables are applied last and win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	"github.com/Carmen-Shannon/deskvrm/engine/animator"
	"github.com/Carmen-Shannon/deskvrm/engine/assetstore"
	"github.com/Carmen-Shannon/deskvrm/engine/loader"
	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// DefaultFile is the configuration file name looked up by the CLI.
const DefaultFile = "deskvrm.hcl"

// Config is the resolved configuration.
type Config struct {
	Window    WindowConfig
	Render    RenderConfig
	Animator  AnimatorConfig
	Store     StoreConfig
	Telemetry TelemetryConfig
}

// WindowConfig configures the desktop window.
type WindowConfig struct {
	Title        string
	Width        int
	Height       int
	Drag         bool
	HeadTracking bool
}

// RenderConfig configures the renderer and the frame loop.
type RenderConfig struct {
	Backend    string
	BaseHeight float64
	FrameLimit float64
	Profiling  bool
	Verbose    bool `env:"DESKVRM_VERBOSE"`
}

// AnimatorConfig configures the procedural animator, clip playback and the loader baseline.
type AnimatorConfig struct {
	Settings       animator.Settings
	ArmRestAngle   float32
	MaxTextureSize int
	ClipsDir       string
	LoopClips      bool
}

// StoreConfig selects and configures the model store.
type StoreConfig struct {
	Kind  string `env:"DESKVRM_STORE_KIND"`
	Dir   string `env:"DESKVRM_STORE_DIR"`
	Path  string `env:"DESKVRM_STORE_PATH"`
	Addr  string `env:"DESKVRM_STORE_ADDR"`
	Model string `env:"DESKVRM_MODEL"`
}

// TelemetryConfig configures trace export. An empty endpoint disables tracing.
type TelemetryConfig struct {
	Endpoint    string `env:"DESKVRM_OTEL_ENDPOINT"`
	ServiceName string
}

// Default returns the built-in configuration.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:        "deskvrm",
			Width:        300,
			Height:       500,
			Drag:         true,
			HeadTracking: true,
		},
		Render: RenderConfig{
			Backend:    "wgpu",
			BaseHeight: 500,
		},
		Animator: AnimatorConfig{
			Settings:       animator.DefaultSettings(),
			ArmRestAngle:   loader.DefaultArmRestAngle,
			MaxTextureSize: loader.DefaultMaxTextureSize,
			LoopClips:      true,
		},
		Store: StoreConfig{
			Kind: assetstore.KindFile,
			Dir:  "vrm",
			Path: "deskvrm.db",
			Addr: assetstore.DefaultAddr,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "deskvrm",
		},
	}
}

// fileConfig mirrors the HCL layout. Every attribute is optional and only overrides the defaults when set.
type fileConfig struct {
	Window    *windowBlock    `hcl:"window,block"`
	Render    *renderBlock    `hcl:"render,block"`
	Animator  *animatorBlock  `hcl:"animator,block"`
	Store     *storeBlock     `hcl:"store,block"`
	Telemetry *telemetryBlock `hcl:"telemetry,block"`
}

type windowBlock struct {
	Title        *string `hcl:"title,optional"`
	Width        *int    `hcl:"width,optional"`
	Height       *int    `hcl:"height,optional"`
	Drag         *bool   `hcl:"drag,optional"`
	HeadTracking *bool   `hcl:"head_tracking,optional"`
}

type renderBlock struct {
	Backend    *string  `hcl:"backend,optional"`
	BaseHeight *float64 `hcl:"base_height,optional"`
	FrameLimit *float64 `hcl:"frame_limit,optional"`
	Profiling  *bool    `hcl:"profiling,optional"`
	Verbose    *bool    `hcl:"verbose,optional"`
}

type animatorBlock struct {
	Blink            *bool    `hcl:"blink,optional"`
	Breathing        *bool    `hcl:"breathing,optional"`
	IdleMotion       *bool    `hcl:"idle_motion,optional"`
	SpringBone       *bool    `hcl:"spring_bone,optional"`
	BlinkIntervalMin *float64 `hcl:"blink_interval_min,optional"`
	BlinkIntervalMax *float64 `hcl:"blink_interval_max,optional"`
	BlinkDuration    *float64 `hcl:"blink_duration,optional"`
	BreathSpeed      *float64 `hcl:"breath_speed,optional"`
	BreathIntensity  *float64 `hcl:"breath_intensity,optional"`
	IdleSpeed        *float64 `hcl:"idle_speed,optional"`
	IdleIntensity    *float64 `hcl:"idle_intensity,optional"`
	ArmRestAngle     *float64 `hcl:"arm_rest_angle,optional"`
	MaxTextureSize   *int     `hcl:"max_texture_size,optional"`
	ClipsDir         *string  `hcl:"clips_dir,optional"`
	LoopClips        *bool    `hcl:"loop_clips,optional"`
}

type storeBlock struct {
	Kind  *string `hcl:"kind,optional"`
	Dir   *string `hcl:"dir,optional"`
	Path  *string `hcl:"path,optional"`
	Addr  *string `hcl:"addr,optional"`
	Model *string `hcl:"model,optional"`
}

type telemetryBlock struct {
	Endpoint    *string `hcl:"endpoint,optional"`
	ServiceName *string `hcl:"service_name,optional"`
}

// evalContext exposes the variables file expressions may reference.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"pi": cty.NumberFloatVal(math.Pi),
		},
	}
}

// Load reads the configuration file at path, then applies environment overrides.
// An empty path or a missing file yields the defaults.
//
// Parameters:
//   - path: the HCL file
//
// Returns:
//   - Config: the resolved configuration
//   - error: error if the file cannot be read, parsed or validated, or an override is malformed
func Load(path string) (Config, error) {
	var src []byte
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			src = data
		}
	}
	return Parse(src, path)
}

// Parse decodes HCL source over the defaults, then applies environment overrides.
//
// Parameters:
//   - src: the HCL source, may be empty
//   - filename: the name used in diagnostics
//
// Returns:
//   - Config: the resolved configuration
//   - error: error if the source cannot be decoded or validated
func Parse(src []byte, filename string) (Config, error) {
	cfg := Default()

	if len(src) > 0 {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCL(src, filename)
		if diags.HasErrors() {
			return Config{}, fmt.Errorf("failed to parse HCL file: %w", diags)
		}

		var parsed fileConfig
		diags = gohcl.DecodeBody(file.Body, evalContext(), &parsed)
		if diags.HasErrors() {
			return Config{}, fmt.Errorf("failed to decode HCL file: %w", diags)
		}
		parsed.apply(&cfg)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings no component can run with.
func (c Config) Validate() error {
	switch c.Store.Kind {
	case assetstore.KindFile, assetstore.KindSQLite, assetstore.KindHTTP:
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	switch c.Render.Backend {
	case "wgpu", "software":
	default:
		return fmt.Errorf("unknown render backend %q", c.Render.Backend)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	s := c.Animator.Settings
	if s.BlinkIntervalMin > s.BlinkIntervalMax {
		return fmt.Errorf("blink_interval_min %.2f exceeds blink_interval_max %.2f", s.BlinkIntervalMin, s.BlinkIntervalMax)
	}
	return nil
}

// StoreOptions returns the model store selection.
func (c Config) StoreOptions() assetstore.Options {
	return assetstore.Options{
		Kind: c.Store.Kind,
		Dir:  c.Store.Dir,
		Path: c.Store.Path,
		Addr: c.Store.Addr,
	}
}

// PlayOptions returns the options hotkey playback uses.
func (c Config) PlayOptions() animator.PlayOptions {
	opts := animator.DefaultPlayOptions()
	opts.Loop = c.Animator.LoopClips
	return opts
}

// LoaderOptions returns the loader options the configuration implies.
func (c Config) LoaderOptions() []loader.LoaderBuilderOption {
	return []loader.LoaderBuilderOption{
		loader.WithArmRestAngle(c.Animator.ArmRestAngle),
		loader.WithMaxTextureSize(c.Animator.MaxTextureSize),
	}
}

// AnimatorOptions returns the animator options the configuration implies.
func (c Config) AnimatorOptions() []animator.AnimatorBuilderOption {
	return []animator.AnimatorBuilderOption{animator.WithSettings(c.Animator.Settings)}
}

func (f *fileConfig) apply(cfg *Config) {
	if w := f.Window; w != nil {
		setString(&cfg.Window.Title, w.Title)
		setInt(&cfg.Window.Width, w.Width)
		setInt(&cfg.Window.Height, w.Height)
		setBool(&cfg.Window.Drag, w.Drag)
		setBool(&cfg.Window.HeadTracking, w.HeadTracking)
	}
	if r := f.Render; r != nil {
		setString(&cfg.Render.Backend, r.Backend)
		setFloat64(&cfg.Render.BaseHeight, r.BaseHeight)
		setFloat64(&cfg.Render.FrameLimit, r.FrameLimit)
		setBool(&cfg.Render.Profiling, r.Profiling)
		setBool(&cfg.Render.Verbose, r.Verbose)
	}
	if a := f.Animator; a != nil {
		s := &cfg.Animator.Settings
		setBool(&s.Blink, a.Blink)
		setBool(&s.Breathing, a.Breathing)
		setBool(&s.IdleMotion, a.IdleMotion)
		setBool(&s.SpringBone, a.SpringBone)
		setFloat32(&s.BlinkIntervalMin, a.BlinkIntervalMin)
		setFloat32(&s.BlinkIntervalMax, a.BlinkIntervalMax)
		setFloat32(&s.BlinkDuration, a.BlinkDuration)
		setFloat32(&s.BreathSpeed, a.BreathSpeed)
		setFloat32(&s.BreathIntensity, a.BreathIntensity)
		setFloat32(&s.IdleSpeed, a.IdleSpeed)
		setFloat32(&s.IdleIntensity, a.IdleIntensity)
		setFloat32(&cfg.Animator.ArmRestAngle, a.ArmRestAngle)
		setInt(&cfg.Animator.MaxTextureSize, a.MaxTextureSize)
		setString(&cfg.Animator.ClipsDir, a.ClipsDir)
		setBool(&cfg.Animator.LoopClips, a.LoopClips)
	}
	if s := f.Store; s != nil {
		setString(&cfg.Store.Kind, s.Kind)
		setString(&cfg.Store.Dir, s.Dir)
		setString(&cfg.Store.Path, s.Path)
		setString(&cfg.Store.Addr, s.Addr)
		setString(&cfg.Store.Model, s.Model)
	}
	if t := f.Telemetry; t != nil {
		setString(&cfg.Telemetry.Endpoint, t.Endpoint)
		setString(&cfg.Telemetry.ServiceName, t.ServiceName)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setFloat64(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setFloat32(dst *float32, v *float64) {
	if v != nil {
		*dst = float32(*v)
	}
}
