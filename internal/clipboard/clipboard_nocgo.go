//go:build !cgo && !windows

package clipboard

import "errors"

var errCGODisabled = errors.New("clipboard operations require cgo support")

type systemBackend struct{}

func (systemBackend) init() error { return errCGODisabled }

func (systemBackend) write(format, []byte) error { return errCGODisabled }

func (systemBackend) read(format) ([]byte, error) { return nil, errCGODisabled }
