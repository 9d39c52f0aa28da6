package listing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// HTTPIndexSource discovers images by fetching an HTTP directory-index
// page for the current month (zero-padded, e.g. "09") and collecting every
// hyperlink that points at an image file, resolved against the index
// page's own URL.
type HTTPIndexSource struct {
	IndexURL string
	Client   *http.Client
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewHTTPIndexSource(indexURL string, logger *zap.Logger) *HTTPIndexSource {
	return &HTTPIndexSource{
		IndexURL: indexURL,
		Client:   &http.Client{Timeout: 15 * time.Second},
		Logger:   logger,
		Now:      time.Now,
	}
}

func (s *HTTPIndexSource) List(ctx context.Context) ([]string, error) {
	if s.IndexURL == "" {
		return nil, fmt.Errorf("http index listing: %w", ErrNotConfigured)
	}

	month := fmt.Sprintf("%02d", int(s.Now().Month()))
	dirURL := strings.TrimRight(s.IndexURL, "/") + "/" + month + "/"

	base, err := url.Parse(dirURL)
	if err != nil {
		return nil, &RetrievalError{Op: "parse index url", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dirURL, nil)
	if err != nil {
		return nil, &RetrievalError{Op: "build index request", Err: err}
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, &RetrievalError{Op: "fetch directory index", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &RetrievalError{Op: "fetch directory index", Status: resp.StatusCode}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, &RetrievalError{Op: "parse directory index", Err: err}
	}

	images := []string{}
	for _, href := range collectHrefs(doc) {
		if !IsImageFile(href) {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			s.Logger.Warn("skipping unparseable href", zap.String("href", href))
			continue
		}
		images = append(images, base.ResolveReference(ref).String())
	}
	return images, nil
}

func collectHrefs(doc *html.Node) []string {
	var hrefs []string
	var traverse func(n *html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" {
					hrefs = append(hrefs, attr.Val)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return hrefs
}
