package main

import (
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/san-kum/mandelscope/internal/config"
	"github.com/san-kum/mandelscope/internal/raster"
	"github.com/san-kum/mandelscope/internal/server"
	"github.com/san-kum/mandelscope/internal/tui"
	"github.com/san-kum/mandelscope/internal/viz"
)

var (
	addr    string
	maxRes  int
	origins []string
	theme   string
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve renders over http and websocket",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().IntVar(&maxRes, "max-res", server.DefaultMaxResolution, "largest resolution a request may ask for")
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "extra origins allowed to open the websocket")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(
		server.WithLogger(logger),
		server.WithWorkers(cfg.Workers),
		server.WithMaxResolution(maxRes),
		server.WithOriginPatterns(origins...),
	)
	return srv.ListenAndServe(ctx, addr)
}

func exploreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "interactive explorer (the default)",
		Args:  cobra.NoArgs,
		RunE:  runExplore,
	}
	addViewFlags(cmd.Flags())
	cmd.Flags().StringVar(&theme, "theme", "", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
	return cmd
}

// runExplore takes over the terminal, so logs go to a file in the data dir.
func runExplore(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "explore.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer logFile.Close()

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger = slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level}))
	raster.SetLogger(logger)

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	return tui.Run(s, tui.Options{
		PresetDir:        cfg.PresetDir,
		ImageDir:         imageDir(),
		ImageFormat:      cfg.ExportFormat(),
		ExportScale:      cfg.Export.Scale,
		ExportIterations: cfg.Export.Iterations,
		Theme:            theme,
	})
}
