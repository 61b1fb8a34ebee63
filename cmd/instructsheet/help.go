package main

import (
	"bytes"
	"embed"
	"flag"
	"fmt"
	"sync"
	"text/template"

	"github.com/example/instructsheet/internal/window"
)

//go:embed templates/*.txt
var helpFS embed.FS

// helpTemplates parses every embedded help page once, on first use.
var helpTemplates = sync.OnceValue(func() *template.Template {
	funcs := template.FuncMap{
		"flags":     flagRows,
		"shortcuts": window.Shortcuts,
	}
	return template.Must(template.New("help").Funcs(funcs).ParseFS(helpFS, "templates/*.txt"))
})

type flagInfo struct {
	Name     string
	DefValue string
	Usage    string
}

// flagRows lists the flags of fs in lexical order. A nil set has none.
func flagRows(fs *flag.FlagSet) []flagInfo {
	rows := []flagInfo{}
	if fs != nil {
		fs.VisitAll(func(f *flag.Flag) {
			rows = append(rows, flagInfo{Name: f.Name, DefValue: f.DefValue, Usage: f.Usage})
		})
	}
	return rows
}

// HelpData is implemented by every command that can print usage.
type HelpData interface {
	Program() string
	Template() string
	FlagSet() *flag.FlagSet
}

// UsageError carries the command whose help should be shown.
type UsageError struct {
	of HelpData
}

func (e *UsageError) Error() string {
	help, err := e.renderHelp()
	if err != nil {
		return err.Error()
	}
	return help
}

func (e *UsageError) renderHelp() (string, error) {
	var buf bytes.Buffer
	if err := helpTemplates().ExecuteTemplate(&buf, e.of.Template(), e.of); err != nil {
		return "", fmt.Errorf("render help %s: %w", e.of.Template(), err)
	}
	return buf.String(), nil
}

// usageFunc prints the help of h to the output of its flag set.
func usageFunc(h HelpData) func() {
	return func() {
		fs := h.FlagSet()
		if fs == nil {
			return
		}
		fmt.Fprint(fs.Output(), (&UsageError{of: h}).Error())
	}
}

func (r *root) Template() string { return "root.txt" }
func (a *analyzeCmd) Template() string { return "analyze.txt" }
func (c *renderCmd) Template() string { return "render.txt" }
func (a *annotateCmd) Template() string { return "annotate.txt" }
func (c *listCmd) Template() string { return "list.txt" }
func (s *serveCmd) Template() string { return "serve.txt" }
func (c *configCmd) Template() string { return "config.txt" }
func (i *interactiveCmd) Template() string { return "interactive.txt" }
func (v *versionCmd) Template() string { return "version.txt" }
