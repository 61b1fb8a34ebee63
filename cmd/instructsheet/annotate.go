package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"os"

	"github.com/example/instructsheet/internal/canvas"
	"github.com/example/instructsheet/internal/capture"
	"github.com/example/instructsheet/internal/clipboard"
	"github.com/example/instructsheet/internal/imageio"
	"github.com/example/instructsheet/internal/window"
)

var (
	captureScreenFn = capture.Screen
	captureRegionFn = capture.Region
	pasteImageFn    = clipboard.PasteImage
	runWindowFn     = (*window.Window).Run
)

// annotateCmd opens the interactive window on an image.
type annotateCmd struct {
	*root
	fs *flag.FlagSet

	source    string
	target    string
	arg       string
	sheetPath string
	output    string
	saveDir   string
}

func parseAnnotateCmd(args []string, r *root) (*annotateCmd, error) {
	fs := flag.NewFlagSet("annotate", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	a := &annotateCmd{root: r, fs: fs}
	fs.Usage = usageFunc(a)
	fs.StringVar(&a.sheetPath, "sheet", "", "annotation file to load, watch and write")
	fs.StringVar(&a.output, "o", "", "export path (default dated name in the save directory)")
	fs.StringVar(&a.saveDir, "save-dir", r.config.SaveDir, "directory for dated exports")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return a, nil
	}
	a.source = rest[0]
	switch a.source {
	case "file":
		if len(rest) != 2 {
			return nil, &UsageError{of: a}
		}
		a.arg = rest[1]
	case "capture":
		if len(rest) < 2 || len(rest) > 3 {
			return nil, &UsageError{of: a}
		}
		a.target = rest[1]
		if len(rest) == 3 {
			a.arg = rest[2]
		}
		if a.target != "screen" && a.target != "region" {
			return nil, fmt.Errorf("unknown capture target %q", a.target)
		}
		if a.target == "region" && a.arg == "" {
			return nil, errors.New("capture region needs a rectangle x,y,w,h")
		}
	case "clipboard":
		if len(rest) != 1 {
			return nil, &UsageError{of: a}
		}
	default:
		return nil, &UsageError{of: a}
	}
	return a, nil
}

func (a *annotateCmd) Program() string {
	return a.subcommand("annotate")
}

func (a *annotateCmd) FlagSet() *flag.FlagSet {
	return a.fs
}

func (a *annotateCmd) loadImage() (image.Image, error) {
	switch a.source {
	case "file":
		img, _, err := imageio.ReadFile(a.arg)
		return img, err
	case "capture":
		if a.target == "region" {
			rect, err := capture.ParseRect(a.arg)
			if err != nil {
				return nil, err
			}
			img, err := captureRegionFn(rect)
			if err != nil {
				return nil, fmt.Errorf("failed to capture region: %w", err)
			}
			return img, nil
		}
		img, err := captureScreenFn(a.arg)
		if err != nil {
			return nil, fmt.Errorf("failed to capture screen: %w", err)
		}
		return img, nil
	case "clipboard":
		data, err := pasteImageFn()
		if err != nil {
			return nil, fmt.Errorf("failed to read clipboard: %w", err)
		}
		img, _, err := imageio.Decode(data, "")
		return img, err
	}
	return nil, nil
}

func (a *annotateCmd) Run() error {
	img, err := a.loadImage()
	if err != nil {
		return err
	}
	copts := []canvas.Option{canvas.WithStyle(a.style())}
	if img != nil {
		copts = append(copts, canvas.WithImage(img))
	}
	if a.sheetPath != "" {
		list, err := a.readSheet(a.sheetPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			a.log.Info().Str("path", a.sheetPath).Msg("annotation file does not exist yet")
		case err != nil:
			return err
		default:
			copts = append(copts, canvas.WithAnnotations(list))
		}
	}

	w := window.New(
		window.WithLogger(a.log),
		window.WithTheme(a.activeTheme),
		window.WithTitle(a.windowTitle()),
		window.WithSaveDir(a.saveDir),
		window.WithOutput(a.output),
		window.WithSheetPath(a.sheetPath),
		window.WithNotifier(a.notifier),
		window.WithCanvasOptions(copts...),
	)
	return runWindowFn(w)
}

func (a *annotateCmd) windowTitle() string {
	switch a.source {
	case "file":
		return "Instruction Sheet - " + a.arg
	case "capture":
		return "Instruction Sheet - " + a.target + " capture"
	case "clipboard":
		return "Instruction Sheet - clipboard"
	}
	return "Instruction Sheet"
}
