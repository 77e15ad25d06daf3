package thumbnail

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xupload_errors "xupload/pkg/errors"
)

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	require.NoError(t, imaging.Save(img, path))
}

func TestGenerate_FixedSize(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.jpg", "c.gif"} {
		src := filepath.Join(dir, name)
		dst := filepath.Join(dir, "thumb_"+name)
		writeImage(t, src, 640, 360)

		require.NoError(t, NewGenerator(100, 100).Generate(src, dst))

		out, err := imaging.Open(dst)
		require.NoError(t, err, name)
		assert.Equal(t, image.Rect(0, 0, 100, 100), out.Bounds(), name)
	}
}

func TestGenerate_NotAnImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "fake.jpg")
	require.NoError(t, os.WriteFile(src, []byte("not an image"), 0o644))

	err := NewGenerator(100, 100).Generate(src, filepath.Join(dir, "thumb_fake.jpg"))
	assert.ErrorIs(t, err, xupload_errors.ErrThumbnail)
	assert.NoFileExists(t, filepath.Join(dir, "thumb_fake.jpg"))
}
