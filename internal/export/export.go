package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// SaveFilename is the deterministic download name for saved artifacts.
const SaveFilename = "generated-image.png"

// ErrShareUnsupported is returned when this deployment has no share
// store; sharing is then refused outright instead of degrading.
var ErrShareUnsupported = errors.New("sharing is not supported on this server")

// ShareHandle points at a cached export artifact.
type ShareHandle struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	QRURL     string    `json:"qr_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Exporter encodes rendered composites as PNG artifacts for the save and
// share actions.
type Exporter struct {
	Logger    *zap.Logger
	Store     *ShareStore // nil disables sharing
	PublicURL string
}

func New(store *ShareStore, publicURL string, logger *zap.Logger) *Exporter {
	return &Exporter{Logger: logger, Store: store, PublicURL: publicURL}
}

// EncodePNG rasterizes img into PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// CanShare is the capability query: callers must check it (or accept
// ErrShareUnsupported) before offering the share action.
func (e *Exporter) CanShare() bool {
	return e.Store != nil
}

// Share encodes img, caches a copy of the artifact under a time-stamped
// key, and returns the handle. The cache write is best effort: a failure
// is logged and swallowed, never blocks the share.
func (e *Exporter) Share(img image.Image) (*ShareHandle, error) {
	if !e.CanShare() {
		return nil, ErrShareUnsupported
	}

	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	id := now.Format("20060102T150405") + "-" + uuid.New().String()

	clone := make([]byte, len(data))
	copy(clone, data)
	if err := e.Store.Put(id, clone); err != nil {
		e.Logger.Warn("share cache write failed", zap.String("id", id), zap.Error(err))
	}

	return &ShareHandle{
		ID:        id,
		URL:       e.PublicURL + "/api/share/" + id,
		QRURL:     e.PublicURL + "/api/share/" + id + "/qr",
		CreatedAt: now,
	}, nil
}

// ShareQR renders a QR code PNG for the artifact's share URL.
func (e *Exporter) ShareQR(id string) ([]byte, error) {
	b, err := qrcode.Encode(e.PublicURL+"/api/share/"+id, qrcode.Medium, 400)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return b, nil
}
