package compose

import (
	"context"
	"image"
	"math"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"go.uber.org/zap"

	"github.com/bravetux/greetcard/internal/fonts"
	"github.com/bravetux/greetcard/internal/imagefetch"
)

const (
	// DefaultWidth is the rendered pixel width used when the caller does
	// not request one.
	DefaultWidth = 800

	lineSpacing = 1.2
)

// Renderer turns a validated Spec into a single composed image: the
// background at the requested rendered width, with the text/photo band
// beneath it. The band width is always the background's rendered width.
type Renderer struct {
	Fonts     *fonts.Registry
	Logger    *zap.Logger
	Watermark string

	// Fetch resolves an image reference to a decoded image. Tests swap
	// this out.
	Fetch func(ctx context.Context, url string) (image.Image, error)
}

func NewRenderer(reg *fonts.Registry, client *http.Client, logger *zap.Logger, watermark string) *Renderer {
	return &Renderer{
		Fonts:     reg,
		Logger:    logger,
		Watermark: watermark,
		Fetch: func(ctx context.Context, url string) (image.Image, error) {
			return imagefetch.Decode(ctx, client, url)
		},
	}
}

// Render composes the spec at DefaultWidth.
func (r *Renderer) Render(ctx context.Context, spec *Spec) (image.Image, error) {
	return r.RenderAt(ctx, spec, DefaultWidth)
}

// RenderAt composes the spec at the given rendered width. Validation runs
// first; nothing is fetched or drawn for an invalid spec. A background
// that fails to load is replaced by a placeholder rather than failing the
// render.
func (r *Renderer) RenderAt(ctx context.Context, spec *Spec, width int) (image.Image, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 {
		width = DefaultWidth
	}

	bg, err := r.Fetch(ctx, spec.BackgroundURL)
	if err != nil {
		r.Logger.Warn("background image failed to load, using placeholder",
			zap.String("url", spec.BackgroundURL), zap.Error(err))
		bg = r.placeholder(width)
	}
	bg = imaging.Resize(bg, width, 0, imaging.Lanczos)
	bgH := bg.Bounds().Dy()

	var photo image.Image
	hasPhoto := spec.UserPhotoURL != ""
	if hasPhoto {
		photo, err = r.Fetch(ctx, spec.UserPhotoURL)
		if err != nil {
			// Slot stays reserved; the fallback glyph takes its place.
			r.Logger.Warn("user photo failed to load",
				zap.String("url", spec.UserPhotoURL), zap.Error(err))
			photo = nil
		}
	}

	lines := r.textLines(spec, textWrapWidth(width, hasPhoto))
	textHeight := 0
	for _, ln := range lines {
		textHeight += ln.advance
	}

	band := PlanBand(spec, width, hasPhoto, textHeight)

	dc := gg.NewContext(width, bgH+band.Height)
	dc.DrawImage(bg, 0, 0)
	r.drawWatermark(dc, width, bgH)

	dc.SetHexColor(spec.BackgroundColor)
	dc.DrawRectangle(0, float64(bgH), float64(width), float64(band.Height))
	dc.Fill()

	if hasPhoto {
		r.drawPhotoSlot(dc, spec, band, photo, bgH)
	}
	r.drawTextSlot(dc, spec, band, lines, bgH)

	return dc.Image(), nil
}

// textLine is one laid-out line of the text slot with the face it is
// drawn in and the vertical space it consumes.
type textLine struct {
	text    string
	size    float64
	bold    bool
	advance int
}

func textWrapWidth(width int, hasPhoto bool) float64 {
	inner := width - 2*bandPadding
	if hasPhoto && width >= narrowWidth {
		return float64(inner / 2)
	}
	return float64(inner)
}

// textLines lays out, in order: wish text at the full configured size,
// the user name in bold at the configured size, then email, phone and
// date at 75% of it.
func (r *Renderer) textLines(spec *Spec, wrapWidth float64) []textLine {
	nameSize := float64(spec.FontSize)
	detailSize := float64(DetailFontSize(spec.FontSize))

	measure := gg.NewContext(1, 1)
	var lines []textLine
	add := func(text string, size float64, bold bool, wrap bool) {
		if text == "" {
			return
		}
		parts := []string{text}
		if wrap {
			if face := r.Fonts.Face(spec.FontFamily, size); face != nil {
				measure.SetFontFace(face)
				parts = measure.WordWrap(text, wrapWidth)
			}
		}
		advance := int(math.Ceil(size * lineSpacing))
		for _, p := range parts {
			lines = append(lines, textLine{text: p, size: size, bold: bold, advance: advance})
		}
	}

	add(spec.Wish, nameSize, false, true)
	add(spec.UserName, nameSize, true, false)
	add(spec.Email, detailSize, false, false)
	add(spec.Phone, detailSize, false, false)
	add(spec.Date, detailSize, false, false)
	return lines
}

func (r *Renderer) drawTextSlot(dc *gg.Context, spec *Spec, band BandLayout, lines []textLine, yOffset int) {
	slot := band.TextSlot

	var x, ax float64
	switch spec.TextAlign {
	case AlignCenter:
		x, ax = float64(slot.Min.X+slot.Max.X)/2, 0.5
	case AlignRight:
		x, ax = float64(slot.Max.X), 1
	default:
		x, ax = float64(slot.Min.X), 0
	}

	dc.SetHexColor(spec.FontColor)
	y := float64(yOffset + slot.Min.Y)
	for _, ln := range lines {
		if ln.bold {
			dc.SetFontFace(r.Fonts.BoldFace(spec.FontFamily, ln.size))
		} else {
			dc.SetFontFace(r.Fonts.Face(spec.FontFamily, ln.size))
		}
		baseline := y + float64(ln.advance)*0.8
		dc.DrawStringAnchored(ln.text, x, baseline, ax, 0)
		y += float64(ln.advance)
	}
}

func (r *Renderer) drawPhotoSlot(dc *gg.Context, spec *Spec, band BandLayout, photo image.Image, yOffset int) {
	slot := band.PhotoSlot
	d := band.AvatarDiameter
	radius := float64(d) / 2

	var cx float64
	switch spec.PhotoAlign {
	case AlignCenter:
		cx = float64(slot.Min.X+slot.Max.X) / 2
	case AlignRight:
		cx = float64(slot.Max.X) - radius
	default:
		cx = float64(slot.Min.X) + radius
	}
	cy := float64(yOffset) + float64(slot.Min.Y+slot.Max.Y)/2

	if photo != nil {
		avatar := imaging.Fill(photo, d, d, imaging.Center, imaging.Lanczos)
		dc.DrawCircle(cx, cy, radius)
		dc.Clip()
		dc.DrawImageAnchored(avatar, int(cx), int(cy), 0.5, 0.5)
		dc.ResetClip()
		return
	}

	// Fallback: a neutral disc with a scaled user glyph inside.
	icon := float64(band.IconSize)
	dc.SetHexColor("#e5e7eb")
	dc.DrawCircle(cx, cy, radius)
	dc.Fill()

	dc.DrawCircle(cx, cy, radius)
	dc.Clip()
	dc.SetHexColor("#9ca3af")
	dc.DrawCircle(cx, cy-icon*0.2, icon*0.25)
	dc.Fill()
	dc.DrawEllipse(cx, cy+icon*0.45, icon*0.4, icon*0.3)
	dc.Fill()
	dc.ResetClip()
}

func (r *Renderer) drawWatermark(dc *gg.Context, width, bgH int) {
	if r.Watermark == "" {
		return
	}
	cx, cy := float64(width)/2, float64(bgH)/2
	dc.Push()
	dc.RotateAbout(gg.Radians(-45), cx, cy)
	dc.SetRGBA(0.8, 0.8, 0.8, 0.3)
	dc.SetFontFace(r.Fonts.BoldFace("", float64(width)/10))
	dc.DrawStringAnchored(r.Watermark, cx, cy, 0.5, 0.5)
	dc.Pop()
}

// placeholder is drawn in place of a background that failed to load.
func (r *Renderer) placeholder(width int) image.Image {
	height := width * 3 / 4
	dc := gg.NewContext(width, height)
	dc.SetHexColor("#e5e7eb")
	dc.Clear()
	dc.SetHexColor("#6b7280")
	dc.SetFontFace(r.Fonts.Face("", float64(width)/20))
	dc.DrawStringAnchored("Image Not Found", float64(width)/2, float64(height)/2, 0.5, 0.5)
	return dc.Image()
}
