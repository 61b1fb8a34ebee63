// Package clipboard moves rendered sheets and annotation lists through the
// system clipboard.
package clipboard

import (
	"bytes"
	"errors"
	"image"
	"os"
	"runtime"
	"sync"

	"github.com/example/instructsheet/internal/imageio"
	"github.com/example/instructsheet/internal/sheet"
)

var (
	// ErrEmpty reports that the clipboard holds nothing of the wanted kind.
	ErrEmpty = errors.New("clipboard holds no data of that kind")

	errNoDisplay = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
)

type format int

const (
	formatText format = iota
	formatImage
)

type backend interface {
	init() error
	write(f format, data []byte) error
	read(f format) ([]byte, error)
}

var (
	initOnce sync.Once
	initErr  error
	active   backend = systemBackend{}
)

func needsDisplay() bool {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		return true
	}
	return false
}

func ensureInit() error {
	initOnce.Do(func() {
		if needsDisplay() && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			initErr = errNoDisplay
			return
		}
		initErr = active.init()
	})
	return initErr
}

// CopyImage publishes img as PNG.
func CopyImage(img image.Image) error {
	if err := ensureInit(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := imageio.Encode(&buf, img, imageio.PNG); err != nil {
		return err
	}
	return active.write(formatImage, buf.Bytes())
}

// PasteImage returns the encoded image held by the clipboard, ready for
// canvas loading.
func PasteImage() ([]byte, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	data, err := active.read(formatImage)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	return data, nil
}

// CopyAnnotations publishes list as the JSON annotation document.
func CopyAnnotations(list []sheet.Annotation) error {
	if err := ensureInit(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := sheet.Encode(&buf, list); err != nil {
		return err
	}
	return active.write(formatText, buf.Bytes())
}

// PasteAnnotations parses the clipboard text as an annotation list.
func PasteAnnotations() ([]sheet.Annotation, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	data, err := active.read(formatText)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	return sheet.Parse(data)
}
