package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/png"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
	"github.com/san-kum/mandelscope/internal/raster"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewDefaults(t *testing.T) {
	s := New(quiet())
	v, sc := s.State()
	if v != fractal.DefaultView() {
		t.Errorf("view = %+v", v)
	}
	if sc.Kind() != palette.Hue {
		t.Errorf("scheme = %s", sc)
	}
	if s.Resolution() != DefaultResolution {
		t.Errorf("resolution = %d", s.Resolution())
	}
	if s.Workers() < 1 {
		t.Errorf("workers = %d", s.Workers())
	}

	s = New(quiet(), WithWorkers(-3), WithResolution(0))
	if s.Workers() != 1 || s.Resolution() != DefaultResolution {
		t.Errorf("bad options not corrected: workers %d resolution %d", s.Workers(), s.Resolution())
	}
}

func TestRenderUsesSessionState(t *testing.T) {
	v := fractal.View{CenterX: -0.75, CenterY: 0.1, Zoom: 2, MaxIterations: 150}
	sc := palette.Rainbow()
	s := New(quiet(), WithView(v), WithScheme(sc), WithWorkers(3), WithResolution(40))

	got, err := s.Render(0)
	if err != nil {
		t.Fatal(err)
	}
	want, err := raster.Render(v, sc, 40, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Pix, want.Pix) {
		t.Error("session render differs from direct render")
	}
	if s.LastRender() <= 0 {
		t.Error("expected render time to be recorded")
	}

	small, err := s.Render(10)
	if err != nil {
		t.Fatal(err)
	}
	if small.Width != 10 {
		t.Errorf("width = %d", small.Width)
	}
}

func TestRenderHighRes(t *testing.T) {
	v := fractal.View{CenterX: -0.5, MaxIterations: 20}
	s := New(quiet(), WithView(v), WithResolution(12))

	buf, err := s.RenderHighRes(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Width != 24 || buf.Height != 24 {
		t.Errorf("size = %dx%d, want 24x24", buf.Width, buf.Height)
	}

	hi := v
	hi.MaxIterations = DefaultExportIterations
	want, _ := raster.Render(hi, palette.NewHue(), 24, 1)
	if !bytes.Equal(buf.Pix, want.Pix) {
		t.Error("high resolution render should use the export iteration cap")
	}
	if s.View().MaxIterations != 20 {
		t.Error("high resolution render changed the session view")
	}

	if _, err := s.RenderHighRes(-1, 0); !errors.Is(err, fractal.ErrInvalidParameter) {
		t.Errorf("negative scale: got %v", err)
	}
}

func TestZoomAt(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		steps     int
		wantZoom  float64
		wantIters int
	}{
		{"left click", 256, 1, 1, 266},
		{"right click", 256, -1, -1, 246},
		{"two steps", 100, 2, 2, 120},
		{"iterations floor", 5, -1, -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := fractal.DefaultView()
			v.MaxIterations = tt.start
			s := New(quiet(), WithView(v))

			if err := s.ZoomAt(400, 400, 800, tt.steps); err != nil {
				t.Fatal(err)
			}
			got := s.View()
			if got.Zoom != tt.wantZoom || got.MaxIterations != tt.wantIters {
				t.Errorf("zoom %v iterations %d, want %v %d", got.Zoom, got.MaxIterations, tt.wantZoom, tt.wantIters)
			}
			if got.CenterX != -0.5 || got.CenterY != 0 {
				t.Errorf("center moved to (%v, %v)", got.CenterX, got.CenterY)
			}
		})
	}
}

func TestZoomAtRecentersBeforeZooming(t *testing.T) {
	s := New(quiet())
	if err := s.ZoomAt(600, 200, 800, 1); err != nil {
		t.Fatal(err)
	}
	v := s.View()
	if math.Abs(v.CenterX-0.5) > 1e-12 || math.Abs(v.CenterY+1) > 1e-12 {
		t.Errorf("center = (%v, %v), want (0.5, -1)", v.CenterX, v.CenterY)
	}
}

func TestRecenterAndPickSeed(t *testing.T) {
	s := New(quiet())
	if err := s.PickSeed(0, 800, 800); err != nil {
		t.Fatal(err)
	}
	v := s.View()
	if v.JuliaX != -2.5 || v.JuliaY != 2 {
		t.Errorf("seed = (%v, %v)", v.JuliaX, v.JuliaY)
	}
	if v.Julia {
		t.Error("picking a seed should not switch to julia mode")
	}

	if err := s.Recenter(0, 0, 800); err != nil {
		t.Fatal(err)
	}
	v = s.View()
	if v.CenterX != -2.5 || v.CenterY != -2 || v.Zoom != 0 {
		t.Errorf("recentered view %+v", v)
	}

	if err := s.Recenter(0, 0, 0); !errors.Is(err, fractal.ErrInvalidParameter) {
		t.Errorf("zero resolution: got %v", err)
	}
}

func TestResetKeepsJuliaAndScheme(t *testing.T) {
	v := fractal.View{CenterX: 0.3, CenterY: 0.2, Zoom: 5, MaxIterations: 900, Julia: true, JuliaX: -0.4, JuliaY: 0.6}
	s := New(quiet(), WithView(v), WithScheme(palette.Rainbow()))

	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	got := s.View()
	want := fractal.DefaultView()
	want.Julia, want.JuliaX, want.JuliaY = true, -0.4, 0.6
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if s.Scheme().Kind() != palette.Triangle {
		t.Error("reset changed the scheme")
	}
}

func TestMutatorsAreRejectedWhileRendering(t *testing.T) {
	dir := t.TempDir()
	s := New(quiet())
	path := filepath.Join(dir, "p.mandel")
	if err := s.ExportPreset(path); err != nil {
		t.Fatal(err)
	}

	before, beforeScheme := s.State()
	_, done := s.begin()
	if !s.Busy() {
		t.Fatal("expected busy session")
	}

	rng := rand.New(rand.NewPCG(1, 2))
	mutators := map[string]func() error{
		"SetView":     func() error { return s.SetView(fractal.DefaultView()) },
		"SetScheme":   func() error { return s.SetScheme(palette.Rainbow()) },
		"SetWorkers":  func() error { return s.SetWorkers(2) },
		"ZoomAt":      func() error { return s.ZoomAt(1, 1, 10, 1) },
		"Recenter":    func() error { return s.Recenter(1, 1, 10) },
		"PickSeed":    func() error { return s.PickSeed(1, 1, 10) },
		"ToggleJulia": s.ToggleJulia,
		"Randomize":   func() error { return s.Randomize(rng) },
		"Reset":       s.Reset,
		"CycleScheme": s.CycleScheme,
		"Pan":         func() error { return s.Pan(0.1, 0) },
		"Import":      func() error { return s.ImportPreset(path) },
	}
	for name, fn := range mutators {
		if err := fn(); !errors.Is(err, fractal.ErrBusy) {
			t.Errorf("%s: expected ErrBusy, got %v", name, err)
		}
	}

	done()
	after, afterScheme := s.State()
	if after != before || !afterScheme.Equal(beforeScheme) {
		t.Error("state changed while busy")
	}
	if err := s.ToggleJulia(); err != nil {
		t.Errorf("after render: %v", err)
	}
}

func TestPresetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets", "spot.mandel")

	v := fractal.View{CenterX: -1.25, CenterY: 0.02, Zoom: 6.5, MaxIterations: 700, Julia: true, JuliaX: 0.285, JuliaY: 0.01}
	src := New(quiet(), WithView(v), WithScheme(palette.Default(palette.Lerp)))
	if err := src.ExportPreset(path); err != nil {
		t.Fatal(err)
	}

	dst := New(quiet())
	if err := dst.ImportPreset(path); err != nil {
		t.Fatal(err)
	}
	gotView, gotScheme := dst.State()
	if gotView != v {
		t.Errorf("view = %+v", gotView)
	}
	if !gotScheme.Equal(palette.Default(palette.Lerp)) {
		t.Errorf("scheme = %s", gotScheme)
	}
}

func TestImportFailureKeepsState(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.mandel")
	if err := os.WriteFile(bad, []byte("MANDAL not a preset"), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(quiet(), WithScheme(palette.Rainbow()))
	before := s.View()

	if err := s.ImportPreset(bad); !errors.Is(err, fractal.ErrFormat) {
		t.Errorf("corrupt file: got %v", err)
	}
	if err := s.ImportPreset(filepath.Join(dir, "missing.mandel")); !errors.Is(err, fractal.ErrIO) {
		t.Errorf("missing file: got %v", err)
	}
	if s.View() != before || s.Scheme().Kind() != palette.Triangle {
		t.Error("failed import changed the session")
	}
}

func TestImportRejectsNonFiniteSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inf.mandel")

	v := fractal.View{CenterX: 0, CenterY: 0, Zoom: 1, MaxIterations: 100, Julia: true, JuliaX: -0.8, JuliaY: 0.156}
	if err := New(quiet(), WithView(v)).ExportPreset(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	binary.LittleEndian.PutUint64(data[len(data)-16:], math.Float64bits(math.Inf(1)))
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	s := New(quiet())
	before := s.View()
	if err := s.ImportPreset(path); !errors.Is(err, fractal.ErrFormat) {
		t.Fatalf("import: got %v, want ErrFormat", err)
	}
	if s.View() != before {
		t.Errorf("view changed to %+v", s.View())
	}
	if _, err := s.Render(8); err != nil {
		t.Errorf("render after rejected import: %v", err)
	}
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	s := New(quiet(), WithResolution(8))

	if err := s.SaveImage(path, 3, 50); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 24 || cfg.Height != 24 {
		t.Errorf("image is %dx%d, want 24x24", cfg.Width, cfg.Height)
	}
}

func TestRandomize(t *testing.T) {
	s := New(quiet(), WithScheme(palette.Default(palette.Lerp)))
	if err := s.Randomize(rand.New(rand.NewPCG(7, 7))); err != nil {
		t.Fatal(err)
	}
	if s.Scheme().Kind() != palette.Lerp {
		t.Error("randomize changed the kind")
	}
	if s.Scheme().Equal(palette.Default(palette.Lerp)) {
		t.Error("randomize kept the default colors")
	}

	s = New(quiet())
	_ = s.Randomize(rand.New(rand.NewPCG(7, 7)))
	if !s.Scheme().Equal(palette.NewHue()) {
		t.Error("hue has nothing to randomize")
	}
}

func TestSettersValidate(t *testing.T) {
	s := New(quiet())
	bad := fractal.DefaultView()
	bad.Zoom = math.Inf(1)
	if err := s.SetView(bad); !errors.Is(err, fractal.ErrInvalidParameter) {
		t.Errorf("SetView: %v", err)
	}
	if err := s.SetWorkers(0); !errors.Is(err, fractal.ErrInvalidParameter) {
		t.Errorf("SetWorkers: %v", err)
	}
	if err := s.SetResolution(-1); !errors.Is(err, fractal.ErrInvalidParameter) {
		t.Errorf("SetResolution: %v", err)
	}
	if err := s.AddIterations(-1000); err != nil || s.View().MaxIterations != 1 {
		t.Errorf("AddIterations floor: %v, %d", err, s.View().MaxIterations)
	}
}

func TestConcurrentRenders(t *testing.T) {
	s := New(quiet(), WithResolution(24), WithWorkers(2))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Render(0); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if s.Busy() {
		t.Error("session still busy after renders finished")
	}
}
