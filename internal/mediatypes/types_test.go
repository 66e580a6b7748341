package mediatypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewExtensionSetDefaults(t *testing.T) {
	set := NewExtensionSet(nil)
	for _, ext := range DefaultImportExtensions {
		assert.True(t, set[ext], ext)
	}
	assert.False(t, set[".mp4"])
}

func TestExtensionSetMatches(t *testing.T) {
	set := NewExtensionSet([]string{"JPG", ".png", " webp ", ""})

	tests := []struct {
		path string
		want bool
	}{
		{"/photos/a.jpg", true},
		{"/photos/A.JPG", true},
		{"/photos/b.png", true},
		{"/photos/c.webp", true},
		{"/photos/d.jpeg", false},
		{"/photos/noext", false},
		{"/photos/.hidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, set.Matches(tt.path))
		})
	}
}

func TestGetMimeType(t *testing.T) {
	assert.Equal(t, "image/jpeg", GetMimeType("/x/a.JPEG"))
	assert.Equal(t, "image/tiff", GetMimeType("b.tif"))
	assert.Equal(t, "application/octet-stream", GetMimeType("c.heic"))
}

func TestExtensionSetList(t *testing.T) {
	set := NewExtensionSet([]string{"png", "JPG", "bmp"})
	assert.Equal(t, []string{".bmp", ".jpg", ".png"}, set.List())
}
