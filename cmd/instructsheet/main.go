package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/instructsheet/internal/config"
	"github.com/example/instructsheet/internal/logging"
	"github.com/example/instructsheet/internal/notify"
	"github.com/example/instructsheet/internal/render"
	"github.com/example/instructsheet/internal/theme"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs       *flag.FlagSet
	program  string
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	log      zerolog.Logger
	notifier *notify.Notifier
	config   *config.Config

	logLevel        string
	themeName       string
	exportAlerts    bool
	copyAlerts      bool
	analyzeAlerts   bool
	activeTheme     *theme.Theme
	activeThemeName string
}

func (r *root) Program() string {
	return r.program
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot(stdin io.Reader, stdout, stderr io.Writer) *root {
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
	}

	r := &root{
		fs:      flag.NewFlagSet("instructsheet", flag.ContinueOnError),
		program: "instructsheet",
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		log:     zerolog.Nop(),
		config:  cfg,
	}
	r.fs.SetOutput(stderr)
	r.fs.StringVar(&r.logLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error, off)")
	r.fs.StringVar(&r.themeName, "theme", "", "color theme to use (default, print, a config theme or a theme file)")
	r.fs.BoolVar(&r.exportAlerts, "notify-export", cfg.Notify.Export, "show a desktop notification after exporting a sheet")
	r.fs.BoolVar(&r.copyAlerts, "notify-copy", cfg.Notify.Copy, "show a desktop notification after copying to the clipboard")
	r.fs.BoolVar(&r.analyzeAlerts, "notify-analyze", cfg.Notify.Analyze, "show a desktop notification when analysis finishes")
	r.fs.Usage = usageFunc(r)
	return r
}

// setup applies the global flags. It runs once per command line so the
// interactive shell can reuse the root.
func (r *root) setup() {
	r.log = logging.New(r.stderr, r.logLevel)
	if r.notifier == nil {
		r.notifier = notify.New(notify.LoadPreferences(nil), notify.WithLogger(r.log))
	}
	r.notifier.Enable(notify.EventExport, r.exportAlerts)
	r.notifier.Enable(notify.EventCopy, r.copyAlerts)
	r.notifier.Enable(notify.EventAnalyze, r.analyzeAlerts)

	// Precedence: CLI > Env > Config > Default
	name := r.themeName
	if name == "" {
		name = os.Getenv(config.EnvPrefix + "_THEME")
	}
	if name == "" {
		name = r.config.Theme
	}
	t, err := r.config.ResolveTheme(name, theme.NewLoader())
	if err != nil {
		if name != "" && name != "default" {
			r.log.Warn().Err(err).Str("theme", name).Msg("failed to load theme, using default")
		}
		t = theme.Default()
		name = ""
	}
	if name == "" {
		name = "default"
	}
	r.activeTheme = t
	r.activeThemeName = name
}

func (r *root) subcommand(name string) string {
	return strings.TrimSpace(strings.Join([]string{r.program, name}, " "))
}

// style returns the configured sheet style.
func (r *root) style() render.Style {
	st, err := r.config.RenderStyle()
	if err != nil {
		r.log.Warn().Err(err).Msg("invalid style in config, using defaults")
		return render.DefaultStyle()
	}
	return st
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	r.setup()
	return r.dispatch(r.fs.Arg(0), r.fs.Args()[1:])
}

func (r *root) dispatch(cmdName string, subArgs []string) error {
	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "analyze":
		cmd, err = parseAnalyzeCmd(subArgs, r)
	case "render":
		cmd, err = parseRenderCmd(subArgs, r)
	case "annotate":
		cmd, err = parseAnnotateCmd(subArgs, r)
	case "list":
		cmd, err = parseListCmd(subArgs, r)
	case "serve":
		cmd, err = parseServeCmd(subArgs, r)
	case "config":
		cmd, err = parseConfigCmd(subArgs, r)
	case "interactive":
		cmd, err = parseInteractiveCmd(subArgs, r)
	case "version":
		cmd = &versionCmd{root: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

func main() {
	r := newRoot(os.Stdin, os.Stdout, os.Stderr)
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		switch {
		case errors.Is(err, flag.ErrHelp):
		case errors.As(err, &uerr):
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		default:
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
