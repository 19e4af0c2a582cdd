package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/mandelscope/internal/export"
	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
)

const (
	DefaultResolution   = 800
	DefaultExportScale  = 2
	DefaultExportIters  = 4096
	DefaultPresetDir    = "presets"
	DefaultDataDir      = ".mandelscope"
	DefaultLogLevel     = "info"
	DefaultSchemeName   = "hue"
	DefaultPreviewWidth = 80
)

type Config struct {
	View       fractal.View `yaml:"view"`
	Scheme     SchemeConfig `yaml:"scheme"`
	Workers    int          `yaml:"workers"`
	Resolution int          `yaml:"resolution"`
	Export     ExportConfig `yaml:"export"`
	PresetDir  string       `yaml:"preset_dir"`
	DataDir    string       `yaml:"data_dir"`
	LogLevel   string       `yaml:"log_level"`
}

type ExportConfig struct {
	Scale      int    `yaml:"scale"`
	Iterations int    `yaml:"iterations"`
	Format     string `yaml:"format"`
}

// SchemeConfig is the YAML form of a palette.Scheme. Kind is either a
// scheme kind or a named palette; colors are #rrggbb strings and, when
// present, override the palette's own.
type SchemeConfig struct {
	Kind      string       `yaml:"kind"`
	Start     string       `yaml:"start,omitempty"`
	End       string       `yaml:"end,omitempty"`
	Stops     []StopConfig `yaml:"stops,omitempty"`
	BandWidth int          `yaml:"band_width,omitempty"`
	Repeat    int          `yaml:"repeat,omitempty"`
}

type StopConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

func DefaultConfig() *Config {
	return &Config{
		View:       fractal.DefaultView(),
		Scheme:     SchemeConfig{Kind: DefaultSchemeName},
		Workers:    runtime.NumCPU(),
		Resolution: DefaultResolution,
		Export: ExportConfig{
			Scale:      DefaultExportScale,
			Iterations: DefaultExportIters,
			Format:     string(export.PNG),
		},
		PresetDir: DefaultPresetDir,
		DataDir:   DefaultDataDir,
		LogLevel:  DefaultLogLevel,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.View.Validate(); err != nil {
		return err
	}
	if _, err := c.Scheme.Scheme(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fractal.InvalidParameter("workers", c.Workers)
	}
	if c.Resolution < 1 {
		return fractal.InvalidParameter("resolution", c.Resolution)
	}
	if c.Export.Scale < 1 {
		return fractal.InvalidParameter("export.scale", c.Export.Scale)
	}
	if c.Export.Iterations < 1 {
		return fractal.InvalidParameter("export.iterations", c.Export.Iterations)
	}
	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Scheme builds the palette.Scheme described by sc.
func (sc SchemeConfig) Scheme() (palette.Scheme, error) {
	name := sc.Kind
	if name == "" {
		name = DefaultSchemeName
	}
	base, err := palette.ByName(strings.ToLower(name))
	if err != nil {
		return palette.Scheme{}, err
	}

	switch base.Kind() {
	case palette.Lerp, palette.FlipFlop:
		if sc.Start == "" && sc.End == "" {
			return base, nil
		}
		a, b := base.Colors()
		if sc.Start != "" {
			if a, err = palette.ParseRGB(sc.Start); err != nil {
				return palette.Scheme{}, err
			}
		}
		if sc.End != "" {
			if b, err = palette.ParseRGB(sc.End); err != nil {
				return palette.Scheme{}, err
			}
		}
		if base.Kind() == palette.Lerp {
			return palette.NewLerp(a, b), nil
		}
		return palette.NewFlipFlop(a, b), nil

	case palette.Triangle:
		if len(sc.Stops) == 0 && sc.BandWidth == 0 && sc.Repeat == 0 {
			return base, nil
		}
		stops := base.Stops()
		if len(sc.Stops) > 0 {
			stops = make([]palette.Pair, len(sc.Stops))
			for i, st := range sc.Stops {
				start, err := palette.ParseRGB(st.Start)
				if err != nil {
					return palette.Scheme{}, err
				}
				end, err := palette.ParseRGB(st.End)
				if err != nil {
					return palette.Scheme{}, err
				}
				stops[i] = palette.Pair{Start: start, End: end}
			}
		}
		band, repeat := base.BandWidth(), base.Repeat()
		if sc.BandWidth != 0 {
			band = sc.BandWidth
		}
		if sc.Repeat != 0 {
			repeat = sc.Repeat
		}
		return palette.NewTriangle(stops, band, repeat)
	}
	return base, nil
}

// FromScheme is the inverse of SchemeConfig.Scheme.
func FromScheme(s palette.Scheme) SchemeConfig {
	sc := SchemeConfig{Kind: s.Kind().String()}
	switch s.Kind() {
	case palette.Lerp, palette.FlipFlop:
		a, b := s.Colors()
		sc.Start, sc.End = a.String(), b.String()
	case palette.Triangle:
		for _, p := range s.Stops() {
			sc.Stops = append(sc.Stops, StopConfig{Start: p.Start.String(), End: p.End.String()})
		}
		sc.BandWidth = s.BandWidth()
		sc.Repeat = s.Repeat()
	}
	return sc
}

// ParseLevel maps a log level name onto slog.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return l, nil
}

// ExportFormat returns the configured image format.
func (c *Config) ExportFormat() export.Format {
	f, err := export.ParseFormat(c.Export.Format)
	if err != nil {
		return export.PNG
	}
	return f
}
