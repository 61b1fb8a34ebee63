package imageio

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
)

// ExportName returns the default export file name for day t.
func ExportName(t time.Time) string {
	return fmt.Sprintf("instruction-sheet_%s.png", t.Format("2006-01-02"))
}

// ExportPath joins dir and the default export name. A leading ~ in dir is
// expanded; an empty dir means the working directory.
func ExportPath(dir string, t time.Time) (string, error) {
	if dir == "" {
		return ExportName(t), nil
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(expanded, ExportName(t)), nil
}
