package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testImage() image.Image {
	return imaging.New(32, 24, color.NRGBA{R: 120, G: 10, B: 200, A: 255})
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(testImage())
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())
}

func TestShareUnsupportedWithoutStore(t *testing.T) {
	e := New(nil, "http://localhost:8080", zap.NewNop())

	assert.False(t, e.CanShare())
	_, err := e.Share(testImage())
	assert.ErrorIs(t, err, ErrShareUnsupported)
}

func TestShareCachesArtifact(t *testing.T) {
	store, err := NewShareStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	e := New(store, "https://cards.example.com", zap.NewNop())

	handle, err := e.Share(testImage())
	require.NoError(t, err)
	assert.Equal(t, "https://cards.example.com/api/share/"+handle.ID, handle.URL)
	assert.Equal(t, handle.URL+"/qr", handle.QRURL)

	data, err := store.Get(handle.ID)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
}

func TestShareSurvivesCacheWriteFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := NewShareStore(dir, zap.NewNop())
	require.NoError(t, err)
	// Make the directory unwritable so Put fails.
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	e := New(store, "https://cards.example.com", zap.NewNop())
	handle, err := e.Share(testImage())
	require.NoError(t, err, "a cache write failure must not block the share")
	assert.NotEmpty(t, handle.ID)
}

func TestShareQR(t *testing.T) {
	e := New(nil, "https://cards.example.com", zap.NewNop())
	data, err := e.ShareQR("20250901T120000-00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)

	_, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
}

func TestShareStoreRejectsBadIDs(t *testing.T) {
	store, err := NewShareStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	for _, id := range []string{"", "../../etc/passwd", "plain", "20250901T120000-.."} {
		_, err := store.Get(id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}
	err = store.Put("../escape", []byte("x"))
	assert.Error(t, err)
}

func TestShareStoreSweepsExpiredEntries(t *testing.T) {
	dir := t.TempDir()
	store, err := NewShareStore(dir, zap.NewNop())
	require.NoError(t, err)
	store.maxAge = time.Minute

	oldID := "20250101T000000-00000000-0000-0000-0000-000000000000"
	require.NoError(t, store.Put(oldID, []byte("old")))
	oldPath := filepath.Join(dir, oldID+".png")
	past := time.Now().Add(-2 * time.Minute)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	newID := "20250901T120000-00000000-0000-0000-0000-000000000000"
	require.NoError(t, store.Put(newID, []byte("new")))

	_, err = store.Get(oldID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(newID)
	assert.NoError(t, err)
}
