package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"
)

// Share cache entries are short-lived; anything older is swept lazily on
// the next write.
const defaultMaxAge = 24 * time.Hour

var validShareID = regexp.MustCompile(`^[0-9]{8}T[0-9]{6}-[0-9a-f-]{36}$`)

// ErrNotFound is returned for unknown or expired share ids.
var ErrNotFound = errors.New("share artifact not found")

// ShareStore caches exported artifacts on disk under their share id.
type ShareStore struct {
	dir    string
	maxAge time.Duration
	logger *zap.Logger
}

func NewShareStore(dir string, logger *zap.Logger) (*ShareStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create share dir: %w", err)
	}
	return &ShareStore{dir: dir, maxAge: defaultMaxAge, logger: logger}, nil
}

func (s *ShareStore) Put(id string, data []byte) error {
	if !validShareID.MatchString(id) {
		return fmt.Errorf("invalid share id %q", id)
	}
	s.sweep()
	return os.WriteFile(s.path(id), data, 0o644)
}

func (s *ShareStore) Get(id string) ([]byte, error) {
	if !validShareID.MatchString(id) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *ShareStore) path(id string) string {
	return filepath.Join(s.dir, id+".png")
}

func (s *ShareStore) sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-s.maxAge)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
				s.logger.Warn("share sweep failed", zap.String("name", entry.Name()), zap.Error(err))
			}
		}
	}
}
