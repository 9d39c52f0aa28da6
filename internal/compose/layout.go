package compose

import (
	"image"
	"math"
)

const (
	bandPadding = 16

	// Below this band width the photo and text slots stack vertically
	// regardless of the swap flag.
	narrowWidth = 480

	baseAvatarSize = 40
	baseIconSize   = 20
)

// BandLayout is the geometry of the text/photo strip rendered beneath the
// background image. Width always equals the background's rendered pixel
// width.
type BandLayout struct {
	Width  int
	Height int

	// Stacked means the slots are laid out vertically (narrow layout).
	Stacked bool

	PhotoSlot image.Rectangle
	TextSlot  image.Rectangle

	AvatarDiameter int
	IconSize       int
}

// DetailFontSize is the size used for the email, phone, and date lines:
// 75% of the configured font size, rounded to the nearest integer pixel.
func DetailFontSize(fontSize int) int {
	return int(math.Round(float64(fontSize) * 0.75))
}

// AvatarDiameter scales the 40-unit avatar reference by the configured
// photo size percentage.
func AvatarDiameter(photoSizePct int) int {
	return int(math.Round(float64(photoSizePct) / 100 * baseAvatarSize))
}

// IconSize scales the 20-unit fallback-icon reference by the same ratio.
func IconSize(photoSizePct int) int {
	return int(math.Round(float64(photoSizePct) / 100 * baseIconSize))
}

// PlanBand computes the band geometry for a given rendered image width.
// textHeight is the measured height of the text block; hasPhoto controls
// whether a photo slot is reserved at all.
func PlanBand(spec *Spec, width int, hasPhoto bool, textHeight int) BandLayout {
	l := BandLayout{
		Width:          width,
		Stacked:        width < narrowWidth,
		AvatarDiameter: AvatarDiameter(spec.PhotoSizePct),
		IconSize:       IconSize(spec.PhotoSizePct),
	}

	inner := width - 2*bandPadding

	if !hasPhoto {
		l.Height = textHeight + 2*bandPadding
		l.TextSlot = image.Rect(bandPadding, bandPadding, bandPadding+inner, bandPadding+textHeight)
		return l
	}

	if l.Stacked {
		// Photo above text; the swap flag only reorders the wide layout.
		l.Height = l.AvatarDiameter + textHeight + 3*bandPadding
		l.PhotoSlot = image.Rect(bandPadding, bandPadding, bandPadding+inner, bandPadding+l.AvatarDiameter)
		textTop := 2*bandPadding + l.AvatarDiameter
		l.TextSlot = image.Rect(bandPadding, textTop, bandPadding+inner, textTop+textHeight)
		return l
	}

	content := textHeight
	if l.AvatarDiameter > content {
		content = l.AvatarDiameter
	}
	l.Height = content + 2*bandPadding

	half := inner / 2
	left := image.Rect(bandPadding, bandPadding, bandPadding+half, bandPadding+content)
	right := image.Rect(bandPadding+half, bandPadding, bandPadding+inner, bandPadding+content)

	if spec.SwapPhotoAndText {
		l.TextSlot, l.PhotoSlot = left, right
	} else {
		l.PhotoSlot, l.TextSlot = left, right
	}
	return l
}
