// Package imageio decodes image sources and encodes exported sheets.
package imageio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/clone"
	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrNotImage reports data that is not a supported image.
	ErrNotImage = errors.New("not an image")
	// ErrUnsupportedFormat reports an output format that cannot be written.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrTooLarge reports an image whose declared dimensions exceed the
	// pixel limit.
	ErrTooLarge = errors.New("image too large")
)

// DefaultMaxPixels bounds decoded images when no limit is given. It admits
// an 8192x8192 image.
const DefaultMaxPixels = 8192 * 8192

// Format is an encoding format for exported sheets.
type Format int

// The supported encoding formats
const (
	None Format = iota
	PNG
	JPEG
	GIF
	TIFF
	BMP
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	case GIF:
		return "gif"
	case TIFF:
		return "tiff"
	case BMP:
		return "bmp"
	}
	return "none"
}

// MIME returns the media type of f.
func (f Format) MIME() string {
	if f == None {
		return "application/octet-stream"
	}
	return "image/" + f.String()
}

// FormatFromExt returns a Format based on a filename extension,
// which can start with a . or not.
func FormatFromExt(ext string) (Format, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "gif":
		return GIF, nil
	case "tif", "tiff":
		return TIFF, nil
	case "bmp":
		return BMP, nil
	}
	return None, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
}

// FormatFromPath infers the format from the extension of path, defaulting
// to PNG when there is none.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return PNG, nil
	}
	return FormatFromExt(ext)
}

// Sniff returns the MIME type detected from the leading bytes of data.
func Sniff(data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if kind == filetype.Unknown || !filetype.IsImage(data) {
		return "", ErrNotImage
	}
	return kind.MIME.Value, nil
}

// Decode decodes data into an RGBA image of at most DefaultMaxPixels.
// mime is a hint from the caller and may be empty; the content itself
// decides, and a declared non-image type is rejected.
func Decode(data []byte, mime string) (*image.RGBA, string, error) {
	return DecodeLimit(data, mime, DefaultMaxPixels)
}

// DecodeLimit is Decode with a pixel limit. The header is checked before
// any pixel memory is allocated. maxPixels <= 0 uses DefaultMaxPixels.
func DecodeLimit(data []byte, mime string, maxPixels int) (*image.RGBA, string, error) {
	if mime != "" && !strings.HasPrefix(strings.ToLower(mime), "image/") {
		return nil, "", fmt.Errorf("%w: declared type %s", ErrNotImage, mime)
	}
	detected, err := Sniff(data)
	if err != nil {
		return nil, "", err
	}
	if err := CheckPixels(data, maxPixels); err != nil {
		return nil, "", err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: decode %s: %v", ErrNotImage, detected, err)
	}
	return clone.AsRGBA(img), detected, nil
}

// CheckPixels reads only the image header of data and fails with
// ErrTooLarge when width*height exceeds maxPixels.
func CheckPixels(data []byte, maxPixels int) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: %s has no pixels", ErrNotImage, format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d %s exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, format, maxPixels)
	}
	return nil
}

// ReadFile loads and decodes the image at path.
func ReadFile(path string) (*image.RGBA, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	img, mime, err := Decode(data, "")
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return img, mime, nil
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case PNG:
		return png.Encode(w, img)
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case GIF:
		return gif.Encode(w, img, nil)
	case TIFF:
		return tiff.Encode(w, img, nil)
	case BMP:
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
}

// WriteFile saves img at path with the format inferred from the extension.
func WriteFile(path string, img image.Image) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(file)
	if err := Encode(bw, img, f); err != nil {
		file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
