// Package session holds the state of one interactive exploration: the view,
// the color scheme and the worker count, plus the operations a frontend
// needs to render, navigate and persist it.
//
// # Thread Safety
//
// A Session is safe for concurrent use. Each render snapshots the state
// under a lock before any worker starts, so a render never sees a half
// applied change. While a render is in flight every mutator returns
// fractal.ErrBusy and leaves the state untouched.
package session

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/mandelscope/internal/export"
	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
	"github.com/san-kum/mandelscope/internal/preset"
	"github.com/san-kum/mandelscope/internal/raster"
)

const (
	DefaultResolution = 800

	// High resolution exports double the resolution and raise the cap.
	DefaultExportScale      = 2
	DefaultExportIterations = 4096

	// Each zoom step also moves the iteration cap by this much.
	IterationsPerZoomStep = 10
)

type Session struct {
	mu         sync.Mutex
	view       fractal.View
	scheme     palette.Scheme
	workers    int
	resolution int
	last       time.Duration

	inflight atomic.Int32
	logger   *slog.Logger
}

type Option func(*Session)

func WithView(v fractal.View) Option {
	return func(s *Session) { s.view = v }
}

func WithScheme(sc palette.Scheme) Option {
	return func(s *Session) { s.scheme = sc }
}

func WithWorkers(n int) Option {
	return func(s *Session) { s.workers = n }
}

func WithResolution(r int) Option {
	return func(s *Session) { s.resolution = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New returns a session on the default view, colored with Hue, using one
// worker per CPU.
func New(opts ...Option) *Session {
	s := &Session{
		view:       fractal.DefaultView(),
		scheme:     palette.NewHue(),
		workers:    runtime.NumCPU(),
		resolution: DefaultResolution,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.workers < 1 {
		s.workers = 1
	}
	if s.resolution < 1 {
		s.resolution = DefaultResolution
	}
	return s
}

type snapshot struct {
	view       fractal.View
	scheme     palette.Scheme
	workers    int
	resolution int
}

// begin copies the state and marks a render in flight. The caller must call
// the returned func when the render is done.
func (s *Session) begin() (snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight.Add(1)
	snap := snapshot{view: s.view, scheme: s.scheme, workers: s.workers, resolution: s.resolution}
	return snap, func() { s.inflight.Add(-1) }
}

// mutate applies fn to the state unless a render is running.
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight.Load() > 0 {
		return fractal.ErrBusy
	}
	return fn()
}

// Busy reports whether a render is running.
func (s *Session) Busy() bool {
	return s.inflight.Load() > 0
}

// Render draws the current state at resolution×resolution pixels. A
// resolution of 0 uses the session resolution.
func (s *Session) Render(resolution int) (*raster.Buffer, error) {
	snap, done := s.begin()
	defer done()
	if resolution == 0 {
		resolution = snap.resolution
	}
	return s.render(snap.view, snap.scheme, resolution, snap.workers)
}

// RenderHighRes renders the current state at scale times the session
// resolution with the iteration cap replaced by iterations. Zero values
// select DefaultExportScale and DefaultExportIterations.
func (s *Session) RenderHighRes(scale, iterations int) (*raster.Buffer, error) {
	snap, done := s.begin()
	defer done()

	if scale == 0 {
		scale = DefaultExportScale
	}
	if iterations == 0 {
		iterations = DefaultExportIterations
	}
	if scale < 1 {
		return nil, fractal.InvalidParameter("scale", scale)
	}
	v := snap.view
	v.MaxIterations = iterations
	return s.render(v, snap.scheme, snap.resolution*scale, snap.workers)
}

func (s *Session) render(v fractal.View, sc palette.Scheme, resolution, workers int) (*raster.Buffer, error) {
	start := time.Now()
	buf, err := raster.Render(v, sc, resolution, workers)
	if err != nil {
		s.logger.Error("render failed", "resolution", resolution, "err", err)
		return nil, err
	}
	elapsed := time.Since(start)

	s.mu.Lock()
	s.last = elapsed
	s.mu.Unlock()

	s.logger.Debug("rendered",
		"resolution", resolution,
		"iterations", v.MaxIterations,
		"scheme", sc.Kind().String(),
		"elapsed", elapsed)
	return buf, nil
}

// SaveImage renders at high resolution and writes the image to path. The
// format follows the file extension.
func (s *Session) SaveImage(path string, scale, iterations int) error {
	buf, err := s.RenderHighRes(scale, iterations)
	if err != nil {
		return err
	}
	if err := export.Save(path, buf); err != nil {
		return err
	}
	s.logger.Info("image saved", "path", path, "width", buf.Width)
	return nil
}

// ExportPreset writes the current view and scheme to path.
func (s *Session) ExportPreset(path string) error {
	v, sc := s.State()
	if err := preset.SaveFile(path, v, sc); err != nil {
		return fmt.Errorf("export preset: %w", err)
	}
	s.logger.Info("preset exported", "path", path)
	return nil
}

// ImportPreset replaces the view and scheme with the contents of path. On
// any error the session keeps its previous state.
func (s *Session) ImportPreset(path string) error {
	if s.Busy() {
		return fractal.ErrBusy
	}
	v, sc, err := preset.LoadFile(path)
	if err != nil {
		return fmt.Errorf("import preset: %w", err)
	}
	err = s.mutate(func() error {
		s.view, s.scheme = v, sc
		return nil
	})
	if err == nil {
		s.logger.Info("preset imported", "path", path, "scheme", sc.Kind().String())
	}
	return err
}

// State returns a copy of the view and scheme.
func (s *Session) State() (fractal.View, palette.Scheme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view, s.scheme
}

func (s *Session) View() fractal.View {
	v, _ := s.State()
	return v
}

func (s *Session) Scheme() palette.Scheme {
	_, sc := s.State()
	return sc
}

func (s *Session) Workers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workers
}

func (s *Session) Resolution() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolution
}

// LastRender is how long the most recent successful render took.
func (s *Session) LastRender() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) SetView(v fractal.View) error {
	if err := v.Validate(); err != nil {
		return err
	}
	return s.mutate(func() error {
		s.view = v
		return nil
	})
}

func (s *Session) SetScheme(sc palette.Scheme) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	return s.mutate(func() error {
		s.scheme = sc
		return nil
	})
}

func (s *Session) SetWorkers(n int) error {
	if n < 1 {
		return fractal.InvalidParameter("workers", n)
	}
	return s.mutate(func() error {
		s.workers = n
		return nil
	})
}

func (s *Session) SetResolution(r int) error {
	if r < 1 {
		return fractal.InvalidParameter("resolution", r)
	}
	return s.mutate(func() error {
		s.resolution = r
		return nil
	})
}

// ZoomAt recenters on pixel (px, py) of a resolution-wide image and zooms
// in by steps (out when negative). The iteration cap follows the zoom,
// IterationsPerZoomStep per step, and never drops below one.
func (s *Session) ZoomAt(px, py float64, resolution, steps int) error {
	if resolution < 1 {
		return fractal.InvalidParameter("resolution", resolution)
	}
	return s.mutate(func() error {
		v := s.view.Recentered(px, py, resolution)
		v.Zoom += float64(steps)
		v.MaxIterations = clampIterations(int64(v.MaxIterations) + int64(IterationsPerZoomStep*steps))
		s.view = v
		return nil
	})
}

// Zoom changes the zoom around the current center.
func (s *Session) Zoom(steps float64) error {
	return s.mutate(func() error {
		s.view.Zoom += steps
		return nil
	})
}

// Pan shifts the view by fractions of its half-width.
func (s *Session) Pan(fx, fy float64) error {
	return s.mutate(func() error {
		s.view = s.view.Panned(fx, fy)
		return nil
	})
}

// Recenter moves pixel (px, py) to the center without zooming.
func (s *Session) Recenter(px, py float64, resolution int) error {
	if resolution < 1 {
		return fractal.InvalidParameter("resolution", resolution)
	}
	return s.mutate(func() error {
		s.view = s.view.Recentered(px, py, resolution)
		return nil
	})
}

// AddIterations moves the iteration cap by delta, keeping it at least one.
func (s *Session) AddIterations(delta int) error {
	return s.mutate(func() error {
		s.view.MaxIterations = clampIterations(int64(s.view.MaxIterations) + int64(delta))
		return nil
	})
}

// PickSeed sets the Julia constant to the plane point under pixel (px, py).
// It does not switch to Julia mode.
func (s *Session) PickSeed(px, py float64, resolution int) error {
	if resolution < 1 {
		return fractal.InvalidParameter("resolution", resolution)
	}
	return s.mutate(func() error {
		s.view.JuliaX, s.view.JuliaY = fractal.ToComplex(px, py, resolution, s.view)
		return nil
	})
}

func (s *Session) ToggleJulia() error {
	return s.mutate(func() error {
		s.view.Julia = !s.view.Julia
		return nil
	})
}

// CycleScheme switches to the default scheme of the next kind.
func (s *Session) CycleScheme() error {
	return s.mutate(func() error {
		s.scheme = palette.Next(s.scheme)
		return nil
	})
}

// Randomize re-rolls the colors of the current scheme.
func (s *Session) Randomize(rng *rand.Rand) error {
	return s.mutate(func() error {
		s.scheme = palette.Randomize(s.scheme, rng)
		return nil
	})
}

// Reset returns to the default center, zoom and iteration cap. The Julia
// flag, the seed and the scheme are kept.
func (s *Session) Reset() error {
	return s.mutate(func() error {
		s.view.CenterX = fractal.DefaultCenterX
		s.view.CenterY = fractal.DefaultCenterY
		s.view.Zoom = fractal.DefaultZoom
		s.view.MaxIterations = fractal.DefaultMaxIterations
		return nil
	})
}

func clampIterations(n int64) int {
	if n < 1 {
		return 1
	}
	if n > fractal.MaxIterationsLimit {
		return fractal.MaxIterationsLimit
	}
	return int(n)
}
