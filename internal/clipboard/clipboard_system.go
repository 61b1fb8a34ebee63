//go:build cgo || windows

package clipboard

import (
	"golang.design/x/clipboard"
)

type systemBackend struct{}

func (systemBackend) init() error { return clipboard.Init() }

func (systemBackend) write(f format, data []byte) error {
	clipboard.Write(clipFormat(f), data)
	return nil
}

func (systemBackend) read(f format) ([]byte, error) {
	return clipboard.Read(clipFormat(f)), nil
}

func clipFormat(f format) clipboard.Format {
	if f == formatImage {
		return clipboard.FmtImage
	}
	return clipboard.FmtText
}
