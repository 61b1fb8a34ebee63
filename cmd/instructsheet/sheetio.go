package main

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/example/instructsheet/internal/canvas"
	"github.com/example/instructsheet/internal/imageio"
	"github.com/example/instructsheet/internal/render"
	"github.com/example/instructsheet/internal/sheet"
)

var now = time.Now

// readSheet loads an annotation file; "-" reads standard input.
func (r *root) readSheet(path string) ([]sheet.Annotation, error) {
	if path == "-" {
		list, err := sheet.Decode(r.stdin)
		if err != nil {
			return nil, fmt.Errorf("read annotations from stdin: %w", err)
		}
		return list, nil
	}
	return sheet.ReadFile(path)
}

// writeSheet stores list at path; an empty path or "-" writes standard
// output.
func (r *root) writeSheet(path string, list []sheet.Annotation) error {
	if path == "" || path == "-" {
		return sheet.Encode(r.stdout, list)
	}
	return sheet.WriteFile(path, list)
}

// renderSheet flattens list onto img with the active theme.
func (r *root) renderSheet(img image.Image, list []sheet.Annotation, st render.Style, shadow bool) (*image.RGBA, error) {
	ctrl := canvas.New(
		canvas.WithLogger(r.log),
		canvas.WithTheme(r.activeTheme),
		canvas.WithStyle(st),
		canvas.WithImage(img),
	)
	if err := ctrl.SetAnnotations(list); err != nil {
		return nil, err
	}
	out, err := ctrl.Render()
	if err != nil {
		return nil, err
	}
	if shadow {
		out = render.DropShadow(out, render.DefaultShadow())
	}
	return out, nil
}

// exportImage writes img to path, to standard output for "-", or to the
// dated default name in the configured save directory when path is empty.
// It returns where the image went.
func (r *root) exportImage(path string, img image.Image) (string, error) {
	if path == "-" {
		return "stdout", imageio.Encode(r.stdout, img, imageio.PNG)
	}
	if path == "" {
		var err error
		if path, err = imageio.ExportPath(r.config.SaveDir, now()); err != nil {
			return "", err
		}
	}
	if err := imageio.WriteFile(path, img); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.notifier.Export(path)
	return path, nil
}

func readImageFile(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	mime, err := imageio.Sniff(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return data, mime, nil
}
