package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/mandelscope/internal/export"
	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
	"github.com/san-kum/mandelscope/internal/preset"
)

const (
	metadataFile = "metadata.json"
	presetFile   = "preset" + preset.Ext
	thumbFile    = "thumb.png"

	ThumbnailSize = 128
)

// ErrNotFound is returned for ids with no gallery entry.
var ErrNotFound = errors.New("gallery entry not found")

// Store keeps a gallery of saved renders, one directory per entry.
type Store struct {
	baseDir string
	create  func(path string) (io.WriteCloser, error)
}

func New(baseDir string) *Store {
	return &Store{
		baseDir: baseDir,
		create: func(path string) (io.WriteCloser, error) {
			return os.Create(path)
		},
	}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type Entry struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Timestamp    time.Time    `json:"timestamp"`
	View         fractal.View `json:"view"`
	Scheme       string       `json:"scheme"`
	Resolution   int          `json:"resolution"`
	RenderMillis int64        `json:"render_ms"`
}

// Save stores the view and scheme as a preset next to a thumbnail of img
// and returns the new entry id.
func (s *Store) Save(name string, v fractal.View, sc palette.Scheme, img image.Image, elapsed time.Duration) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	dir := filepath.Join(s.baseDir, id)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: %w", fractal.ErrIO, err)
	}

	if err := preset.SaveFile(filepath.Join(dir, presetFile), v, sc); err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}

	entry := Entry{
		ID:           id,
		Name:         name,
		Timestamp:    time.Now(),
		View:         v,
		Scheme:       sc.Kind().String(),
		Resolution:   img.Bounds().Dx(),
		RenderMillis: elapsed.Milliseconds(),
	}

	if err := export.Save(filepath.Join(dir, thumbFile), export.Thumbnail(img, ThumbnailSize)); err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}

	if err := s.writeMetadata(filepath.Join(dir, metadataFile), entry); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("%w: %w", fractal.ErrIO, err)
	}

	return id, nil
}

func (s *Store) writeMetadata(path string, e Entry) error {
	f, err := s.create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// List returns every readable entry, newest first. Directories without
// valid metadata are skipped.
func (s *Store) List() ([]Entry, error) {
	dirs, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("%w: %w", fractal.ErrIO, err)
	}

	entries := make([]Entry, 0)
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, d.Name(), metadataFile))
		if err != nil {
			continue
		}

		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}

		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

func (s *Store) dir(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return filepath.Join(s.baseDir, id), nil
}

func (s *Store) Load(id string) (*Entry, error) {
	dir, err := s.dir(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %w", fractal.ErrIO, err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("entry %s: %w", id, err)
	}
	return &e, nil
}

// LoadPreset decodes the preset stored with an entry.
func (s *Store) LoadPreset(id string) (fractal.View, palette.Scheme, error) {
	dir, err := s.dir(id)
	if err != nil {
		return fractal.View{}, palette.Scheme{}, err
	}
	return preset.LoadFile(filepath.Join(dir, presetFile))
}

// ThumbnailPath is where the entry's thumbnail lives.
func (s *Store) ThumbnailPath(id string) (string, error) {
	dir, err := s.dir(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, thumbFile), nil
}

func (s *Store) Delete(id string) error {
	dir, err := s.dir(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("%w: %w", fractal.ErrIO, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: %w", fractal.ErrIO, err)
	}
	return nil
}
