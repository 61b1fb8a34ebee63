package main

import (
	"flag"
	"fmt"
	"math"
	"strings"

	"github.com/muesli/termenv"

	"github.com/example/instructsheet/internal/capture"
	"github.com/example/instructsheet/internal/clipboard"
	"github.com/example/instructsheet/internal/sheet"
	"github.com/example/instructsheet/internal/theme"
)

var listMonitorsFn = capture.ListMonitors

type listCmd struct {
	*root
	fs *flag.FlagSet

	fromClipboard bool
	what          string
	path          string
}

func parseListCmd(args []string, r *root) (*listCmd, error) {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	c := &listCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.BoolVar(&c.fromClipboard, "from-clipboard", false, "read the annotations from the clipboard")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch {
	case c.fromClipboard && fs.NArg() == 0:
		c.what = "sheet"
	case fs.NArg() == 1 && (fs.Arg(0) == "themes" || fs.Arg(0) == "monitors"):
		c.what = fs.Arg(0)
	case fs.NArg() == 1 && !c.fromClipboard:
		c.what = "sheet"
		c.path = fs.Arg(0)
	default:
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *listCmd) Program() string {
	return c.subcommand("list")
}

func (c *listCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *listCmd) Run() error {
	switch c.what {
	case "themes":
		return c.listThemes()
	case "monitors":
		return c.listMonitors()
	}
	var (
		list []sheet.Annotation
		err  error
	)
	if c.fromClipboard {
		list, err = clipboard.PasteAnnotations()
	} else {
		list, err = c.readSheet(c.path)
	}
	if err != nil {
		return err
	}
	return c.listSheet(list)
}

func (c *listCmd) listSheet(list []sheet.Annotation) error {
	out := termenv.NewOutput(c.stdout)
	if len(list) == 0 {
		fmt.Fprintln(c.stdout, "no annotations")
		return nil
	}
	st := c.style()
	palette := c.activeTheme.Palette
	for i, a := range list {
		col := st.ArrowColor.At(i, palette)
		marker := out.String(fmt.Sprintf("%3d", a.Number)).Bold().
			Foreground(out.Color(theme.Hex(col)))
		length := math.Hypot(a.TargetX-a.ArrowStartX, a.TargetY-a.ArrowStartY)
		fmt.Fprintf(c.stdout, "%s  %-32s target %5.1f%%,%5.1f%%  start %5.1f%%,%5.1f%%  length %.1f\n",
			marker, a.Label, a.TargetX, a.TargetY, a.ArrowStartX, a.ArrowStartY, length)
	}
	fmt.Fprintf(c.stdout, "%d annotations\n", len(list))
	return nil
}

func (c *listCmd) listThemes() error {
	fmt.Fprintln(c.stdout, "available themes (* marks the active theme):")
	seen := map[string]bool{}
	var names []string
	for _, n := range append(theme.Names(), c.config.ThemeNames()...) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, n := range names {
		marker := " "
		if strings.EqualFold(n, c.activeThemeName) {
			marker = "*"
		}
		fmt.Fprintf(c.stdout, "%s %s\n", marker, n)
	}
	return nil
}

func (c *listCmd) listMonitors() error {
	mons, err := listMonitorsFn()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "available monitors (* marks the primary monitor):")
	for _, m := range mons {
		marker := " "
		if m.Primary {
			marker = "*"
		}
		fmt.Fprintf(c.stdout, "%s %d: %s %dx%d+%d+%d\n", marker, m.Index, m.Name,
			m.Rect.Dx(), m.Rect.Dy(), m.Rect.Min.X, m.Rect.Min.Y)
	}
	return nil
}
