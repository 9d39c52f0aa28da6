package fonts

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/math/fixed"
)

func TestFaceFallsBackToBundledFonts(t *testing.T) {
	r, err := NewRegistry(zap.NewNop())
	require.NoError(t, err)

	face := r.Face("No Such Family", 18)
	require.NotNil(t, face)
	bold := r.BoldFace("No Such Family", 18)
	require.NotNil(t, bold)
	assert.NotSame(t, face, bold, "regular and bold fall back to different fonts")
}

func TestFaceMintsFreshInstances(t *testing.T) {
	r, err := NewRegistry(zap.NewNop())
	require.NoError(t, err)

	a := r.Face("roboto", 18)
	b := r.Face("Roboto", 18)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotSame(t, a, b, "each caller gets its own face; faces are not safe to share between renders")
}

func TestFaceConcurrentUse(t *testing.T) {
	r, err := NewRegistry(zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := font.Drawer{
				Dst:  image.NewRGBA(image.Rect(0, 0, 200, 40)),
				Src:  image.NewUniform(color.Black),
				Face: r.Face("roboto", 18),
				Dot:  fixed.P(0, 24),
			}
			for j := 0; j < 20; j++ {
				d.Dot = fixed.P(0, 24)
				d.DrawString("Happy Birthday")
			}
		}()
	}
	wg.Wait()
}

func TestLoadDirRegistersFamilies(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Fancy.ttf"), goitalic.TTF, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.ttf"), []byte("not a font"), 0o644))

	r, err := NewRegistry(zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, r.LoadDir(dir))

	r.mu.Lock()
	_, ok := r.fonts["fancy"]
	_, broken := r.fonts["broken"]
	r.mu.Unlock()
	assert.True(t, ok, "parsed font is registered under its file name")
	assert.False(t, broken, "unparseable files are skipped")
}

func TestLoadDirMissing(t *testing.T) {
	r, err := NewRegistry(zap.NewNop())
	require.NoError(t, err)
	assert.Error(t, r.LoadDir(filepath.Join(t.TempDir(), "missing")))
}
