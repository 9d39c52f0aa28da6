package fonts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Registry holds parsed truetype fonts by family name. Go Regular and Go
// Bold are always available as fallbacks; additional families come from a
// fonts directory and can be hot-reloaded while the server runs.
//
// Only parsed *truetype.Font values are cached; every Face call mints a
// fresh face. font.Face implementations are not safe for concurrent use
// (truetype faces reuse internal glyph buffers), and renders run
// concurrently across handlers and preview sessions.
type Registry struct {
	logger *zap.Logger

	mu      sync.Mutex
	fonts   map[string]*truetype.Font
	regular *truetype.Font
	bold    *truetype.Font
}

func NewRegistry(logger *zap.Logger) (*Registry, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bundled regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bundled bold font: %w", err)
	}
	return &Registry{
		logger:  logger,
		fonts:   map[string]*truetype.Font{},
		regular: regular,
		bold:    bold,
	}, nil
}

// LoadDir parses every .ttf file in dir. The family name is the file name
// without its extension, matched case-insensitively. A file that fails to
// parse is skipped with a warning.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read fonts dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".ttf") {
			continue
		}
		r.loadFile(filepath.Join(dir, entry.Name()))
	}
	return nil
}

func (r *Registry) loadFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("read font file failed", zap.String("path", path), zap.Error(err))
		return
	}
	f, err := truetype.Parse(data)
	if err != nil {
		r.logger.Warn("parse font file failed", zap.String("path", path), zap.Error(err))
		return
	}
	family := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

	r.mu.Lock()
	r.fonts[family] = f
	r.mu.Unlock()

	r.logger.Info("loaded font", zap.String("family", family))
}

// Watch reloads font files as they are created or written under dir until
// ctx is cancelled.
func (r *Registry) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				if !strings.EqualFold(filepath.Ext(event.Name), ".ttf") {
					continue
				}
				r.loadFile(event.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("fonts watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// Face returns a new face for the family at the given size, falling back
// to Go Regular when the family is unknown. The returned face belongs to
// the caller; it must not be shared between concurrent renders.
func (r *Registry) Face(family string, size float64) font.Face {
	return r.face(family, size, false)
}

// BoldFace is like Face but prefers a bold rendition: an unknown family
// falls back to Go Bold rather than Go Regular.
func (r *Registry) BoldFace(family string, size float64) font.Face {
	return r.face(family, size, true)
}

func (r *Registry) face(family string, size float64, bold bool) font.Face {
	r.mu.Lock()
	ttf, ok := r.fonts[strings.ToLower(family)]
	r.mu.Unlock()

	if !ok {
		if bold {
			ttf = r.bold
		} else {
			ttf = r.regular
		}
	}
	return truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
}
