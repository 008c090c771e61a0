// Package image provides image loading for annotation and preview.
package image

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"snaplabel/pkg/geometry"
)

// Layer is a loaded image together with the file it came from.
type Layer struct {
	Path  string      // Source file path
	Image image.Image // Decoded, EXIF-oriented pixels
}

// Load loads an image from the specified path. JPEG orientation tags are
// applied so that the pixels match what the camera saw.
func Load(path string) (*Layer, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return &Layer{Path: path, Image: img}, nil
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}

// Size returns the image dimensions.
func (l *Layer) Size() geometry.Size {
	return SizeOf(l.Image)
}

// SizeOf returns the dimensions of img, or an empty size for nil.
func SizeOf(img image.Image) geometry.Size {
	if img == nil {
		return geometry.Size{}
	}
	b := img.Bounds()
	return geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
}

// Thumbnail scales img down to fit within w x h, keeping its aspect ratio.
func Thumbnail(img image.Image, w, h int) image.Image {
	return imaging.Fit(img, w, h, imaging.Box)
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
