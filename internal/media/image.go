package media

import (
	"errors"
	"fmt"
	"image"
	"io"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"photoref/internal/filesystem"
	"photoref/internal/logging"
)

// ErrSourceUnavailable reports a source image that is missing, unreadable or
// undecodable.
var ErrSourceUnavailable = errors.New("source image unavailable")

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, err)
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

// LoadImage decodes the image at path with EXIF orientation applied.
// maxSize is a hint for decoders that can shrink while decoding.
func LoadImage(path string, maxSize int) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	logging.Debug("imaging.Open failed for %s: %v, trying fallback decoders", path, err)

	img, stdErr := decodeImageFile(path)
	if stdErr == nil {
		return img, nil
	}

	if IsVipsAvailable() {
		img, vipsErr := LoadImageWithVips(path, maxSize, maxSize)
		if vipsErr == nil {
			return img, nil
		}
		logging.Debug("vips fallback failed for %s: %v", path, vipsErr)
	}

	return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, err)
}

func decodeImageFile(path string) (image.Image, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Debug("failed to close %s: %v", path, err)
		}
	}()

	return decodeReader(file, path)
}

func decodeReader(r io.Reader, path string) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, err
	}

	logging.Debug("Decoded image format: %s for %s", format, path)
	return img, nil
}
