package main

import (
	"flag"
	"fmt"

	"github.com/example/instructsheet/internal/clipboard"
	"github.com/example/instructsheet/internal/imageio"
	"github.com/example/instructsheet/internal/render"
)

type renderCmd struct {
	*root
	fs *flag.FlagSet

	image      string
	sheetPath  string
	output     string
	fontSize   float64
	fontFamily string
	arrowColor string
	shadow     bool
	clip       bool
}

func parseRenderCmd(args []string, r *root) (*renderCmd, error) {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	c := &renderCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	st := r.style()
	fs.StringVar(&c.output, "o", "", "output path (- for stdout, default dated name in the save directory)")
	fs.Float64Var(&c.fontSize, "font-size", st.FontSize, "label font size in pixels")
	fs.StringVar(&c.fontFamily, "font-family", st.FontFamily, "label font family list; a .ttf/.otf path is needed for CJK labels")
	fs.StringVar(&c.arrowColor, "arrow-color", st.ArrowColor.String(), "arrow color, cycle or #rrggbb")
	fs.BoolVar(&c.shadow, "shadow", false, "add a drop shadow around the sheet")
	fs.BoolVar(&c.clip, "copy", false, "also copy the rendered sheet to the clipboard")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 2 {
		return nil, &UsageError{of: c}
	}
	c.image = fs.Arg(0)
	c.sheetPath = fs.Arg(1)
	return c, nil
}

func (c *renderCmd) Program() string {
	return c.subcommand("render")
}

func (c *renderCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *renderCmd) renderStyle() (render.Style, error) {
	arrow, err := render.ParseArrowColor(c.arrowColor)
	if err != nil {
		return render.Style{}, err
	}
	return render.Style{
		FontSize:   c.fontSize,
		FontFamily: c.fontFamily,
		ArrowColor: arrow,
	}.Normalized(), nil
}

func (c *renderCmd) Run() error {
	st, err := c.renderStyle()
	if err != nil {
		return err
	}
	if c.output != "" && c.output != "-" {
		if _, err := imageio.FormatFromPath(c.output); err != nil {
			return err
		}
	}
	img, _, err := imageio.ReadFile(c.image)
	if err != nil {
		return err
	}
	list, err := c.readSheet(c.sheetPath)
	if err != nil {
		return err
	}
	out, err := c.renderSheet(img, list, st, c.shadow)
	if err != nil {
		return err
	}
	where, err := c.exportImage(c.output, out)
	if err != nil {
		return err
	}
	if where != "stdout" {
		fmt.Fprintf(c.stderr, "saved %s\n", where)
	}
	if c.clip {
		if err := clipboard.CopyImage(out); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		c.notifier.Copy("")
	}
	return nil
}
