package compose

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bravetux/greetcard/internal/fonts"
)

func newTestRenderer(t *testing.T, fetch func(ctx context.Context, url string) (image.Image, error)) *Renderer {
	t.Helper()
	reg, err := fonts.NewRegistry(zap.NewNop())
	require.NoError(t, err)
	r := NewRenderer(reg, nil, zap.NewNop(), "")
	r.Fetch = fetch
	return r
}

func solidFetch(w, h int, c color.NRGBA) func(ctx context.Context, url string) (image.Image, error) {
	return func(ctx context.Context, url string) (image.Image, error) {
		return imaging.New(w, h, c), nil
	}
}

func TestRenderAtPinsWidth(t *testing.T) {
	r := newTestRenderer(t, solidFetch(400, 300, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))
	spec := validSpec()

	for _, width := range []int{320, 640, 800} {
		img, err := r.RenderAt(context.Background(), spec, width)
		require.NoError(t, err)
		assert.Equal(t, width, img.Bounds().Dx(),
			"composite width must equal the requested rendered width, not the natural 400")
	}
}

func TestRenderBackgroundKeepsAspect(t *testing.T) {
	r := newTestRenderer(t, solidFetch(400, 300, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))
	spec := validSpec()

	img, err := r.RenderAt(context.Background(), spec, 800)
	require.NoError(t, err)
	// 400x300 scaled to 800 wide is 600 tall; the band extends below it.
	assert.Greater(t, img.Bounds().Dy(), 600)

	probe := color.NRGBAModel.Convert(img.At(400, 300)).(color.NRGBA)
	assert.Equal(t, uint8(10), probe.R)
	assert.Equal(t, uint8(20), probe.G)
	assert.Equal(t, uint8(30), probe.B)
}

func TestRenderBandUsesConfiguredColor(t *testing.T) {
	r := newTestRenderer(t, solidFetch(400, 300, color.NRGBA{A: 255}))
	spec := validSpec()
	spec.BackgroundColor = "#112233"

	img, err := r.RenderAt(context.Background(), spec, 800)
	require.NoError(t, err)

	// Just inside the band's top-left corner, clear of any text or photo.
	probe := color.NRGBAModel.Convert(img.At(2, 602)).(color.NRGBA)
	assert.Equal(t, uint8(0x11), probe.R)
	assert.Equal(t, uint8(0x22), probe.G)
	assert.Equal(t, uint8(0x33), probe.B)
}

func TestRenderInvalidSpecFetchesNothing(t *testing.T) {
	var calls atomic.Int32
	r := newTestRenderer(t, func(ctx context.Context, url string) (image.Image, error) {
		calls.Add(1)
		return imaging.New(10, 10, color.NRGBA{A: 255}), nil
	})

	spec := validSpec()
	spec.BackgroundURL = ""

	_, err := r.RenderAt(context.Background(), spec, 800)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Zero(t, calls.Load(), "no fetch may happen for a rejected spec")
}

func TestRenderBackgroundFailureUsesPlaceholder(t *testing.T) {
	r := newTestRenderer(t, func(ctx context.Context, url string) (image.Image, error) {
		return nil, errors.New("connection reset")
	})

	img, err := r.RenderAt(context.Background(), validSpec(), 800)
	require.NoError(t, err, "a failed background load renders a placeholder, not an error")
	assert.Equal(t, 800, img.Bounds().Dx())
}

func TestRenderPhotoFailureKeepsSlot(t *testing.T) {
	r := newTestRenderer(t, func(ctx context.Context, url string) (image.Image, error) {
		if url == "https://cdn.example.com/photo.png" {
			return nil, errors.New("404")
		}
		return imaging.New(400, 300, color.NRGBA{A: 255}), nil
	})

	spec := validSpec()
	spec.UserPhotoURL = "https://cdn.example.com/photo.png"

	img, err := r.RenderAt(context.Background(), spec, 800)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
}

func TestRenderAtConcurrent(t *testing.T) {
	reg, err := fonts.NewRegistry(zap.NewNop())
	require.NoError(t, err)

	spec := validSpec()
	spec.Wish = "Wishing you a very Happy Birthday!"

	// Preview sessions render in the background while compose requests render
	// on handler goroutines; both draw text through the same registry.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := NewRenderer(reg, nil, zap.NewNop(), "")
			r.Fetch = solidFetch(400, 300, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
			for j := 0; j < 5; j++ {
				img, err := r.RenderAt(context.Background(), spec, 640)
				assert.NoError(t, err)
				assert.Equal(t, 640, img.Bounds().Dx())
			}
		}()
	}
	wg.Wait()
}

func TestRenderWithAllOptions(t *testing.T) {
	r := newTestRenderer(t, solidFetch(400, 300, color.NRGBA{R: 200, A: 255}))
	r.Watermark = "BRAVETUX"

	spec := validSpec()
	spec.Wish = "Wishing you a very Happy Birthday!"
	spec.Date = "12/25/2025"
	spec.UserPhotoURL = "https://cdn.example.com/photo.png"
	spec.SwapPhotoAndText = true
	spec.TextAlign = AlignCenter
	spec.PhotoAlign = AlignRight
	spec.PhotoSizePct = 200
	spec.FontSize = 24

	img, err := r.RenderAt(context.Background(), spec, 800)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
}
