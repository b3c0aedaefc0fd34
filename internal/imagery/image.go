package imagery

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// Extension maps an export format name to the stored file extension.
func Extension(format string) string {
	f := strings.ToLower(format)
	switch {
	case strings.HasPrefix(f, "png"):
		return "png"
	case f == "jpg" || f == "jpeg" || f == "jpgpng":
		return "jpg"
	case f == "tiff" || f == "tif":
		return "tif"
	case f == "bmp":
		return "bmp"
	default:
		return "png"
	}
}

// Normalize returns img as an opaque RGB raster of width×height. Alpha is
// dropped rather than composited, so color under transparent pixels is kept.
// The image is rescaled only when its size differs.
func Normalize(img image.Image, width, height int) *image.RGBA {
	b := img.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			flat.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}

	if b.Dx() == width && b.Dy() == height {
		return flat
	}

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), flat, flat.Bounds(), draw.Src, nil)
	return scaled
}

// Save encodes img by the extension of path and writes it atomically: the
// data goes to a temp file in the same directory that is renamed into place.
func Save(img image.Image, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tile-*")
	if err != nil {
		return eris.Wrap(err, "imagery: create temp file")
	}
	tmpName := tmp.Name()

	if err := encode(tmp, img, path); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "imagery: chmod temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "imagery: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "imagery: rename into place")
	}
	return nil
}

func encode(w io.Writer, img image.Image, path string) error {
	var err error
	switch strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".") {
	case "jpg", "jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case "tif", "tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		err = bmp.Encode(w, img)
	default:
		// An opaque RGBA is written as 8-bit truecolor without alpha.
		err = png.Encode(w, img)
	}
	if err != nil {
		return eris.Wrap(err, "imagery: encode image")
	}
	return nil
}
