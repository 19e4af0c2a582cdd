package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/san-kum/mandelscope/internal/config"
	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
	"github.com/san-kum/mandelscope/internal/preset"
	"github.com/san-kum/mandelscope/internal/raster"
	"github.com/san-kum/mandelscope/internal/session"
	"github.com/san-kum/mandelscope/internal/viz"
)

var (
	configFile string
	dataDir    string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger

	// view flags, shared by every rendering command
	centerX    float64
	centerY    float64
	zoom       float64
	iterations int
	julia      bool
	juliaX     float64
	juliaY     float64
	schemeName string
	viewName   string
	presetPath string
	resolution int
	workers    int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "mandelscope",
		Short:        "mandelbrot and julia set explorer",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		// no subcommand opens the explorer
		RunE: runExplore,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	addViewFlags(rootCmd.Flags())
	rootCmd.Flags().StringVar(&theme, "theme", "", "explorer color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	rootCmd.AddCommand(
		renderCmd(),
		previewCmd(),
		statsCmd(),
		benchCmd(),
		presetsCmd(),
		presetCmd(),
		galleryCmd(),
		serveCmd(),
		exploreCmd(),
		configCmd(),
	)
	return rootCmd
}

// setup loads the config file and applies the global flags on top of it.
func setup(cmd *cobra.Command) error {
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = c
	} else {
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("data") || configFile == "" {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	raster.SetLogger(logger)
	return nil
}

func addViewFlags(f *pflag.FlagSet) {
	f.Float64Var(&centerX, "cx", fractal.DefaultCenterX, "real part of the view center")
	f.Float64Var(&centerY, "cy", fractal.DefaultCenterY, "imaginary part of the view center")
	f.Float64Var(&zoom, "zoom", fractal.DefaultZoom, "zoom level (half-width is 2*exp(-zoom))")
	f.IntVar(&iterations, "iter", fractal.DefaultMaxIterations, "iteration cap")
	f.BoolVar(&julia, "julia", false, "render the julia set of the seed")
	f.Float64Var(&juliaX, "jx", 0, "real part of the julia seed")
	f.Float64Var(&juliaY, "jy", 0, "imaginary part of the julia seed")
	f.StringVar(&schemeName, "scheme", config.DefaultSchemeName, "color scheme ("+strings.Join(palette.Names(), ", ")+")")
	f.StringVar(&viewName, "view", "", "start from a built-in view")
	f.StringVar(&presetPath, "preset", "", "start from a .mandel preset file")
	f.IntVar(&resolution, "res", config.DefaultResolution, "image width and height in pixels")
	f.IntVar(&workers, "workers", 0, "render workers (default from config)")
}

// resolveView builds the view and scheme for a command: config first, then
// a preset file or built-in view, then any view flag that was set.
func resolveView(flags *pflag.FlagSet) (fractal.View, palette.Scheme, error) {
	v := cfg.View
	sc, err := cfg.Scheme.Scheme()
	if err != nil {
		return v, sc, err
	}

	if presetPath != "" {
		if v, sc, err = preset.LoadFile(presetPath); err != nil {
			return v, sc, err
		}
	}
	if viewName != "" {
		named, ok := config.GetPreset(viewName)
		if !ok {
			return v, sc, fmt.Errorf("unknown view: %s", viewName)
		}
		v = named
	}

	if flags.Changed("cx") {
		v.CenterX = centerX
	}
	if flags.Changed("cy") {
		v.CenterY = centerY
	}
	if flags.Changed("zoom") {
		v.Zoom = zoom
	}
	if flags.Changed("iter") {
		v.MaxIterations = iterations
	}
	if flags.Changed("julia") {
		v.Julia = julia
	}
	if flags.Changed("jx") {
		v.JuliaX = juliaX
	}
	if flags.Changed("jy") {
		v.JuliaY = juliaY
	}
	if flags.Changed("scheme") {
		if sc, err = palette.ByName(schemeName); err != nil {
			return v, sc, err
		}
	}

	return v, sc, v.Validate()
}

func renderSettings(flags *pflag.FlagSet) (res, n int) {
	res, n = cfg.Resolution, cfg.Workers
	if flags.Changed("res") {
		res = resolution
	}
	if flags.Changed("workers") {
		n = workers
	}
	return res, n
}

// newSession resolves the view flags into a session.
func newSession(cmd *cobra.Command) (*session.Session, error) {
	v, sc, err := resolveView(cmd.Flags())
	if err != nil {
		return nil, err
	}
	res, n := renderSettings(cmd.Flags())
	if res < 1 {
		return nil, fractal.InvalidParameter("res", res)
	}
	if n < 1 {
		return nil, fractal.InvalidParameter("workers", n)
	}
	return session.New(
		session.WithView(v),
		session.WithScheme(sc),
		session.WithResolution(res),
		session.WithWorkers(n),
		session.WithLogger(logger),
	), nil
}
