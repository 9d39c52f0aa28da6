package listing

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Source produces candidate background image URLs for the current calendar
// month. An empty result is a valid outcome ("no images this month"), not
// an error.
type Source interface {
	List(ctx context.Context) ([]string, error)
}

// ErrNotConfigured is returned when required connection parameters are
// absent. It maps to a 500 with a descriptive message, never to an empty
// list.
var ErrNotConfigured = errors.New("image listing is not configured on the server")

// RetrievalError reports a failed connection, fetch, or parse against the
// remote image source. Status is the upstream HTTP status when one exists,
// zero otherwise.
type RetrievalError struct {
	Op     string
	Status int
	Err    error
}

func (e *RetrievalError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream responded with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

var imageExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)$`)

// IsImageFile reports whether name carries a recognized image extension.
// Matching is case-insensitive.
func IsImageFile(name string) bool {
	return imageExt.MatchString(name)
}

// candidateURL joins base, month segment, and file name with exactly one
// slash between each part.
func candidateURL(base, month, name string) string {
	return strings.TrimRight(base, "/") + "/" + month + "/" + name
}
