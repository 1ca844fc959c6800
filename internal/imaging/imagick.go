package imaging

import (
	"fmt"
	"sync"

	"gopkg.in/gographics/imagick.v3/imagick"
)

var initOnce sync.Once

// ensureInit starts the MagickWand environment once per process. There is
// no matching Terminate; the environment lives until exit.
func ensureInit() {
	initOnce.Do(imagick.Initialize)
}

// LoadSquare decodes the image at path and resizes it to a size×size RGB
// raster using bilinear interpolation. Decoding failures are reported as
// *DecodeError.
func LoadSquare(path string, size int) (*Raster, error) {
	if size < 1 {
		return nil, fmt.Errorf("invalid working size %d", size)
	}
	ensureInit()

	mw := imagick.NewMagickWand()
	defer mw.Destroy()

	if err := mw.ReadImage(path); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if err := mw.AutoOrientImage(); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if err := mw.ResizeImage(uint(size), uint(size), imagick.FILTER_TRIANGLE); err != nil {
		return nil, fmt.Errorf("resize %s: %w", path, err)
	}

	px, err := mw.ExportImagePixels(0, 0, uint(size), uint(size), "RGB", imagick.PIXEL_CHAR)
	if err != nil {
		return nil, fmt.Errorf("export pixels %s: %w", path, err)
	}
	buf, ok := px.([]uint8)
	if !ok || len(buf) != size*size*3 {
		return nil, fmt.Errorf("export pixels %s: unexpected buffer shape", path)
	}

	return &Raster{W: size, H: size, Pix: buf}, nil
}

// Save encodes the raster to path. The container is inferred from the
// file extension (frame and still persistence use .png).
func Save(r *Raster, path string) error {
	ensureInit()

	mw := imagick.NewMagickWand()
	defer mw.Destroy()

	if err := mw.ConstituteImage(uint(r.W), uint(r.H), "RGB", imagick.PIXEL_CHAR, r.Pix); err != nil {
		return fmt.Errorf("constitute %dx%d image: %w", r.W, r.H, err)
	}
	if err := mw.WriteImage(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
