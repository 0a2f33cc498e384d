// Package config loads the canvas service configuration.
//
// Precedence: defaults, then the YAML file, then CANVAS_* environment
// variables.
//
//	cfg, err := config.NewLoader().WithConfigPath("canvas.yaml").Load()
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/factory"
	"github.com/meikuraledutech/canvas/geometry"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" env:"SERVER"`
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`
	Log      LogConfig      `yaml:"log" env:"LOG"`
	Canvas   CanvasConfig   `yaml:"canvas" env:"CANVAS"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" validate:"gte=0"`
	BodyLimit       int           `yaml:"body_limit" env:"BODY_LIMIT" validate:"gte=0"`
}

// DatabaseConfig points at the Postgres store. An empty URL keeps canvases
// in memory only.
type DatabaseConfig struct {
	URL      string `yaml:"url" env:"URL" validate:"omitempty,url"`
	MaxConns int32  `yaml:"max_conns" env:"MAX_CONNS" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" validate:"oneof=json console"`
}

// CanvasConfig tunes layout and rendering of every session.
type CanvasConfig struct {
	ViewportWidth   float64       `yaml:"viewport_width" env:"VIEWPORT_WIDTH" validate:"gt=0"`
	ViewportHeight  float64       `yaml:"viewport_height" env:"VIEWPORT_HEIGHT" validate:"gt=0"`
	NodeWidth       float64       `yaml:"node_width" env:"NODE_WIDTH" validate:"gt=0"`
	NodeHeight      float64       `yaml:"node_height" env:"NODE_HEIGHT" validate:"gt=0"`
	HorizontalGap   float64       `yaml:"horizontal_gap" env:"HORIZONTAL_GAP" validate:"gte=0"`
	VerticalSpacing float64       `yaml:"vertical_spacing" env:"VERTICAL_SPACING" validate:"gte=0"`
	FitMargin       float64       `yaml:"fit_margin" env:"FIT_MARGIN" validate:"gte=0"`
	FitDuration     time.Duration `yaml:"fit_duration" env:"FIT_DURATION" validate:"gte=0"`
	FitPadding      float64       `yaml:"fit_padding" env:"FIT_PADDING" validate:"gte=0,lte=1"`
	EdgeOffset      float64       `yaml:"edge_offset" env:"EDGE_OFFSET" validate:"gte=0"`
	SourceSplit     float64       `yaml:"source_split" env:"SOURCE_SPLIT" validate:"gt=0,lt=1"`
	TargetSplit     float64       `yaml:"target_split" env:"TARGET_SPLIT" validate:"gt=0,lt=1"`
	AuthCurvature   float64       `yaml:"auth_curvature" env:"AUTH_CURVATURE" validate:"gte=0"`
	NotificationTTL time.Duration `yaml:"notification_ttl" env:"NOTIFICATION_TTL" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	f := factory.DefaultOptions()
	g := geometry.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			BodyLimit:       1 << 20,
		},
		Database: DatabaseConfig{MaxConns: 10},
		Log:      LogConfig{Level: "info", Format: "json"},
		Canvas: CanvasConfig{
			ViewportWidth:   1280,
			ViewportHeight:  800,
			NodeWidth:       f.DefaultSize.Width,
			NodeHeight:      f.DefaultSize.Height,
			HorizontalGap:   f.HorizontalGap,
			VerticalSpacing: f.VerticalSpacing,
			FitMargin:       f.FitMargin,
			FitDuration:     f.FitDuration,
			FitPadding:      f.FitPadding,
			EdgeOffset:      g.Offset,
			SourceSplit:     g.SourceSplit,
			TargetSplit:     g.TargetSplit,
			AuthCurvature:   geometry.DefaultCurvature,
			NotificationTTL: 4 * time.Second,
		},
	}
}

// Viewport is the default on-screen canvas size.
func (c CanvasConfig) Viewport() canvas.Size {
	return canvas.Size{Width: c.ViewportWidth, Height: c.ViewportHeight}
}

// Factory converts the layout settings to factory options.
func (c CanvasConfig) Factory() factory.Options {
	return factory.Options{
		DefaultSize:     canvas.Size{Width: c.NodeWidth, Height: c.NodeHeight},
		HorizontalGap:   c.HorizontalGap,
		VerticalSpacing: c.VerticalSpacing,
		FitMargin:       c.FitMargin,
		FitDuration:     c.FitDuration,
		FitPadding:      c.FitPadding,
	}
}

// Geometry converts the edge settings to geometry options.
func (c CanvasConfig) Geometry() geometry.Options {
	return geometry.Options{Offset: c.EdgeOffset, SourceSplit: c.SourceSplit, TargetSplit: c.TargetSplit}
}

var validate = validator.New()

// Validate checks every field constraint and the cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Canvas.SourceSplit >= c.Canvas.TargetSplit {
		return fmt.Errorf("config: canvas.source_split (%v) must be below canvas.target_split (%v)",
			c.Canvas.SourceSplit, c.Canvas.TargetSplit)
	}
	return nil
}

// ── Loader ───────────────────────────────────────────────────────────

// Loader builds a Config.
type Loader struct {
	path      string
	envPrefix string
	lookup    func(string) (string, bool)
}

func NewLoader() *Loader {
	return &Loader{envPrefix: "CANVAS", lookup: os.LookupEnv}
}

// WithConfigPath sets the YAML file. A missing file is not an error.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.path = path
	return l
}

func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithLookup replaces the environment source.
func (l *Loader) WithLookup(fn func(string) (string, bool)) *Loader {
	l.lookup = fn
	return l
}

// Load resolves and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	if l.path != "" {
		if err := l.loadFile(cfg); err != nil {
			return nil, err
		}
	}
	if err := l.loadEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFile(cfg *Config) error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", l.path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", l.path, err)
	}
	return nil
}

func (l *Loader) loadEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag
		field := v.Field(i)
		if field.Kind() == reflect.Struct {
			if err := l.loadEnv(field, key); err != nil {
				return err
			}
			continue
		}
		raw, ok := l.lookup(key)
		if !ok || raw == "" {
			continue
		}
		if err := setField(field, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
	}
	return nil
}

func setField(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}
