package thumbnail

import (
	"fmt"

	"github.com/disintegration/imaging"

	xupload_errors "xupload/pkg/errors"
)

// Generator writes fixed-size thumbnails next to the uploaded original.
type Generator struct {
	Width  int
	Height int
}

func NewGenerator(width, height int) *Generator {
	return &Generator{Width: width, Height: height}
}

// Generate scales and center-crops src to exactly Width x Height and saves it
// to dst. The output format follows dst's extension.
func (g *Generator) Generate(src, dst string) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", xupload_errors.ErrThumbnail, src, err)
	}
	thumb := imaging.Thumbnail(img, g.Width, g.Height, imaging.Lanczos)
	if err := imaging.Save(thumb, dst); err != nil {
		return fmt.Errorf("%w: save %s: %w", xupload_errors.ErrThumbnail, dst, err)
	}
	return nil
}
