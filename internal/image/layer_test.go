package image

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaplabel/pkg/geometry"
)

func TestLoadPNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	src.Set(1, 1, color.NRGBA{R: 255, A: 255})
	path := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, imaging.Save(src, path))

	l, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40, l.Width())
	assert.Equal(t, 30, l.Height())
	assert.Equal(t, geometry.NewSize(40, 30), l.Size())
	assert.Equal(t, path, l.Path)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestSizeOfNil(t *testing.T) {
	assert.True(t, SizeOf(nil).Empty())
	var l Layer
	assert.Equal(t, 0, l.Width())
}

func TestThumbnail(t *testing.T) {
	th := Thumbnail(image.NewRGBA(image.Rect(0, 0, 400, 200)), 100, 100)
	assert.Equal(t, image.Rect(0, 0, 100, 50), th.Bounds())
}

func TestIsSupportedFormat(t *testing.T) {
	assert.True(t, IsSupportedFormat("x/shot.JPG"))
	assert.True(t, IsSupportedFormat("a.png"))
	assert.False(t, IsSupportedFormat("a.tiff"))
	assert.False(t, IsSupportedFormat("classes.lst"))
}
