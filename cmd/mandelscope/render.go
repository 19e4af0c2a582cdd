package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/mandelscope/internal/bench"
	"github.com/san-kum/mandelscope/internal/export"
	"github.com/san-kum/mandelscope/internal/raster"
	"github.com/san-kum/mandelscope/internal/viz"
)

var (
	output     string
	hires      bool
	mono       bool
	width      int
	maxWorkers int
	sizes      []int
	runs       int
)

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "render a view to an image file",
		Args:  cobra.NoArgs,
		RunE:  runRender,
	}
	addViewFlags(cmd.Flags())
	cmd.Flags().StringVarP(&output, "out", "o", "", "output file (default render_<timestamp> in the config format)")
	cmd.Flags().BoolVar(&hires, "hires", false, "export at the configured scale and iteration cap")
	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	path := output
	if path == "" {
		path = export.TimestampedName("render", cfg.ExportFormat().Ext(), time.Now())
	}

	if hires {
		if err := s.SaveImage(path, cfg.Export.Scale, cfg.Export.Iterations); err != nil {
			return err
		}
	} else {
		buf, err := s.Render(0)
		if err != nil {
			return err
		}
		if err := export.Save(path, buf); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%v)\n",
		viz.Label.Render("saved"), viz.Value.Render(path), s.LastRender().Round(time.Millisecond))
	return nil
}

func previewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "draw a view in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runPreview,
	}
	addViewFlags(cmd.Flags())
	cmd.Flags().IntVar(&width, "width", 80, "preview width in terminal columns")
	cmd.Flags().BoolVar(&mono, "mono", false, "braille outline of the set instead of colors")
	return cmd
}

func runPreview(cmd *cobra.Command, args []string) error {
	if width < 2 {
		return fmt.Errorf("preview width must be at least 2")
	}
	v, sc, err := resolveView(cmd.Flags())
	if err != nil {
		return err
	}

	if mono {
		fmt.Fprintln(cmd.OutOrStdout(), viz.Outline(v, width, width/2).String())
		return nil
	}

	_, n := renderSettings(cmd.Flags())
	buf, err := raster.Render(v, sc, width, n)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), viz.Preview(buf))
	return nil
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "escape-count histogram of a view",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
	addViewFlags(cmd.Flags())
	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	v, _, err := resolveView(cmd.Flags())
	if err != nil {
		return err
	}
	res, n := renderSettings(cmd.Flags())

	start := time.Now()
	h, err := raster.ComputeHistogram(v, res, n)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "center\t%g%+gi\n", v.CenterX, v.CenterY)
	fmt.Fprintf(w, "zoom\t%g\n", v.Zoom)
	fmt.Fprintf(w, "iterations\t%d\n", v.MaxIterations)
	fmt.Fprintf(w, "pixels\t%d\n", h.Total)
	fmt.Fprintf(w, "bounded\t%d\n", h.Bounded)
	fmt.Fprintf(w, "escaped\t%.2f%%\n", 100*h.EscapedFraction())
	fmt.Fprintf(w, "max escape count\t%d\n", h.Max())
	fmt.Fprintf(w, "time\t%v\n", elapsed.Round(time.Millisecond))
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, viz.Separator(70))
	fmt.Fprintln(out, viz.HistogramPlot(h, 70, 12))
	return nil
}

func benchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "time the renderer across worker counts",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	addViewFlags(cmd.Flags())
	cmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "largest worker count (default from config)")
	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{128, 256, 512}, "resolutions to time")
	cmd.Flags().IntVar(&runs, "runs", 3, "runs per point, fastest is kept")
	return cmd
}

func runBench(cmd *cobra.Command, args []string) error {
	v, sc, err := resolveView(cmd.Flags())
	if err != nil {
		return err
	}
	top := maxWorkers
	if top < 1 {
		top = cfg.Workers
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, viz.Title.Render(fmt.Sprintf("benchmarking %s, %d iterations", sc, v.MaxIterations)))
	fmt.Fprintln(out)

	results, err := bench.New(bench.Config{
		View:        v,
		Scheme:      sc,
		Resolutions: sizes,
		Workers:     bench.WorkerCounts(top),
		Runs:        runs,
	}).Run(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RES\tWORKERS\tTIME\tMPIX/SEC\tSPEEDUP")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%v\t%.2f\t%.2fx\n",
			r.Resolution, r.Workers, r.Elapsed.Round(time.Microsecond), r.PixelsPerSecond()/1e6, r.Speedup)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	best := bench.Best(results)
	for _, res := range sizes {
		var series []float64
		for _, r := range results {
			if r.Resolution == res {
				series = append(series, r.PixelsPerSecond())
			}
		}
		fmt.Fprintf(out, "%5d  %s  best: %d workers\n", res, viz.Sparkline(series, len(series)), best[res].Workers)
	}
	return nil
}

// imageDir is where the explorer and gallery put rendered images.
func imageDir() string {
	return filepath.Join(cfg.DataDir, "images")
}
