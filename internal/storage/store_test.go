package storage

import (
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
	"github.com/san-kum/mandelscope/internal/raster"
)

func render(t *testing.T, v fractal.View, res int) image.Image {
	t.Helper()
	buf, err := raster.Render(v, palette.NewHue(), res, 2)
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	v := fractal.View{CenterX: -0.75, CenterY: 0.1, Zoom: 3.7, MaxIterations: 512, Julia: true, JuliaX: 0.3, JuliaY: -0.01}
	id, err := st.Save("seahorse", v, palette.Rainbow(), render(t, v, 200), 1500*time.Millisecond)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if id == "" {
		t.Error("expected non-empty entry id")
	}

	e, err := st.Load(id)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if e.Name != "seahorse" {
		t.Errorf("expected name 'seahorse', got '%s'", e.Name)
	}
	if e.View != v {
		t.Errorf("expected view %+v, got %+v", v, e.View)
	}
	if e.Scheme != "triangle" || e.Resolution != 200 || e.RenderMillis != 1500 {
		t.Errorf("unexpected entry %+v", e)
	}

	gotView, gotScheme, err := st.LoadPreset(id)
	if err != nil {
		t.Fatalf("load preset failed: %v", err)
	}
	if gotView != v || !gotScheme.Equal(palette.Rainbow()) {
		t.Errorf("preset mismatch: %+v %s", gotView, gotScheme)
	}

	thumb, err := st.ThumbnailPath(id)
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(thumb)
	if err != nil {
		t.Fatalf("thumbnail missing: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != ThumbnailSize || cfg.Height != ThumbnailSize {
		t.Errorf("thumbnail is %dx%d", cfg.Width, cfg.Height)
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	v := fractal.DefaultView()
	img := render(t, v, 16)
	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		id, err := st.Save(name, v, palette.NewHue(), img, 0)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
		time.Sleep(5 * time.Millisecond)
	}

	if err := os.MkdirAll(filepath.Join(st.baseDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	entries, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Name != "third" || entries[2].Name != "first" {
		t.Errorf("unexpected order: %s, %s, %s", entries[0].Name, entries[1].Name, entries[2].Name)
	}

	if err := st.Delete(ids[1]); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	entries, _ = st.List()
	if len(entries) != 2 {
		t.Errorf("expected 2 entries after delete, got %d", len(entries))
	}
	if _, err := st.Load(ids[1]); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := st.Delete(ids[1]); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestStoreRejectsBadIDs(t *testing.T) {
	st := New(t.TempDir())
	for _, id := range []string{"", "..", "../../etc", "not-a-uuid"} {
		if _, err := st.Load(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Load(%q): expected ErrNotFound, got %v", id, err)
		}
		if err := st.Delete(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Delete(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "nope"))
	entries, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty list, got %d", len(entries))
	}
}

type failingClose struct{ *os.File }

func (f failingClose) Close() error {
	_ = f.File.Close()
	return errors.New("quota exceeded")
}

func TestStoreSaveCleansUpOnMetadataFailure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	st.create = func(path string) (io.WriteCloser, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return failingClose{f}, nil
	}

	_, err := st.Save("lost", fractal.DefaultView(), palette.NewHue(), render(t, fractal.DefaultView(), 16), time.Millisecond)
	if !errors.Is(err, fractal.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}

	left, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("failed save left %d entries behind", len(left))
	}
}
