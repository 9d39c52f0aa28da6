package imagefetch

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/webp" // register webp decoding
)

// maxDecodeSize caps images fetched for rendering. The proxy path does not
// apply it: proxied bytes are re-emitted verbatim.
var maxDecodeSize int64 = 20 << 20

// DefaultClient is used whenever a caller passes a nil *http.Client.
var DefaultClient = &http.Client{Timeout: 15 * time.Second}

// UpstreamError reports a non-success response from the origin server.
type UpstreamError struct {
	URL    string
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.Status)
}

// Result holds the raw bytes of a fetched resource along with the
// Content-Type the origin declared, which may be empty.
type Result struct {
	Body        []byte
	ContentType string
}

// Get fetches url and returns its bytes verbatim, however large.
func Get(ctx context.Context, client *http.Client, url string) (*Result, error) {
	return fetch(ctx, client, url, 0)
}

// fetch retrieves url. A positive limit rejects bodies larger than limit
// bytes; a truncated image must never be passed on as a successful fetch.
func fetch(ctx context.Context, client *http.Client, url string, limit int64) (*Result, error) {
	if client == nil {
		client = DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{URL: url, Status: resp.StatusCode}
	}
	var r io.Reader = resp.Body
	if limit > 0 {
		r = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, fmt.Errorf("body of %s exceeds %d bytes", url, limit)
	}
	return &Result{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}

// Decode fetches url and decodes it as an image. Bodies over the decode
// size cap are rejected.
func Decode(ctx context.Context, client *http.Client, url string) (image.Image, error) {
	res, err := fetch(ctx, client, url, maxDecodeSize)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(res.Body))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return img, nil
}
