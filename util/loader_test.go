package util

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/images"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestLoadDirectoryImages(t *testing.T) {
	dir := t.TempDir()
	data := pngBytes(t, 4, 3)
	for _, name := range []string{"b.png", "a.PNG", "c.jpg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0o700))

	files, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)

	var names []string
	for i, f := range files {
		names = append(names, f.Name())
		assert.Equal(t, i, f.Frame)
		assert.Equal(t, data, f.Data)
	}
	assert.Equal(t, []string{"a.PNG", "b.png", "c.jpg"}, names)

	img, format, err := files[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, images.FormatPNG, format)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
}

func TestLoadImageFile(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadImageFile(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.jpg")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = LoadImageFile(empty)
	assert.ErrorIs(t, err, images.ErrInvalidImage)

	garbage := filepath.Join(dir, "garbage.jpg")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o600))
	f, err := LoadImageFile(garbage)
	require.NoError(t, err)
	_, _, err = f.Decode()
	assert.ErrorIs(t, err, images.ErrInvalidImage)

	_, err = LoadDirectoryImageFiles(filepath.Join(dir, "nope"))
	assert.Error(t, err)
}

func TestIsImagePath(t *testing.T) {
	assert.True(t, IsImagePath("a/b/frame.JPEG"))
	assert.True(t, IsImagePath("x.webp"))
	assert.False(t, IsImagePath("x.gif"))
	assert.False(t, IsImagePath("jpg"))
}
