package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsImageFile(t *testing.T) {
	accepted := []string{"a.png", "b.jpg", "c.jpeg", "d.gif", "e.webp", "C.JPG", "photo.PnG", "dir/img.webp"}
	for _, name := range accepted {
		assert.True(t, IsImageFile(name), name)
	}

	rejected := []string{"b.txt", "a.png.bak", "jpg", "noext", "archive.zip", "a.svg", "a.jpgx"}
	for _, name := range rejected {
		assert.False(t, IsImageFile(name), name)
	}
}

func TestCandidateURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/9/a.png", candidateURL("https://cdn.example.com/", "9", "a.png"))
	assert.Equal(t, "https://cdn.example.com/9/a.png", candidateURL("https://cdn.example.com", "9", "a.png"))
	assert.Equal(t, "https://cdn.example.com/path/12/b.jpg", candidateURL("https://cdn.example.com/path/", "12", "b.jpg"))
}
