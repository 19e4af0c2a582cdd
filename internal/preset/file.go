package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
)

// Ext is the file extension of preset files.
const Ext = ".mandel"

// SaveFile writes v and s to path, creating parent directories.
func SaveFile(path string, v fractal.View, s palette.Scheme, opts ...Option) error {
	data, err := Encode(v, s, opts...)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %w", fractal.ErrIO, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %w", fractal.ErrIO, err)
	}
	return nil
}

// LoadFile reads and decodes the preset at path.
func LoadFile(path string) (fractal.View, palette.Scheme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fractal.View{}, palette.Scheme{}, fmt.Errorf("%w: %w", fractal.ErrIO, err)
	}
	return Decode(data)
}

// Path returns the file for preset name inside dir.
func Path(dir, name string) string {
	if !strings.HasSuffix(name, Ext) {
		name += Ext
	}
	return filepath.Join(dir, name)
}

// List returns the names of the presets in dir, without extension, sorted.
// A missing directory holds no presets.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %w", fractal.ErrIO, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Ext {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), Ext))
	}
	sort.Strings(names)
	return names, nil
}
