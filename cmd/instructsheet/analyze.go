package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/example/instructsheet/internal/imageio"
	"github.com/example/instructsheet/internal/inference"
)

// newAnalyzer builds the model client from the configuration. Tests swap
// it for a fake.
var newAnalyzer = func(r *root, model string) (inference.Analyzer, error) {
	key := r.config.APIKey()
	if key == "" {
		return nil, fmt.Errorf("%w: set %s", inference.ErrNoAPIKey, r.config.Inference.APIKeyEnv)
	}
	inf := r.config.Inference
	if model == "" {
		model = inf.Model
	}
	return inference.NewGeminiClient(key,
		inference.WithLogger(r.log),
		inference.WithModel(model),
		inference.WithEndpoint(inf.Endpoint),
		inference.WithTimeout(r.config.Timeout()),
		inference.WithRetries(inf.Retries),
		inference.WithMaxImageEdge(inf.MaxImageEdge),
	), nil
}

type analyzeCmd struct {
	*root
	fs *flag.FlagSet

	image        string
	instructions string
	output       string
	renderOut    string
	model        string
	shadow       bool
	text         []string
}

func parseAnalyzeCmd(args []string, r *root) (*analyzeCmd, error) {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	a := &analyzeCmd{root: r, fs: fs}
	fs.Usage = usageFunc(a)
	fs.StringVar(&a.instructions, "instructions", "", "file with one instruction per line (- for stdin)")
	fs.StringVar(&a.output, "o", "", "write the annotation file here instead of stdout")
	fs.StringVar(&a.renderOut, "render", "", "also export the rendered sheet to this path")
	fs.StringVar(&a.model, "model", "", "model name (default from config)")
	fs.BoolVar(&a.shadow, "shadow", false, "add a drop shadow to the rendered sheet")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < 1 {
		return nil, &UsageError{of: a}
	}
	a.image = fs.Arg(0)
	a.text = fs.Args()[1:]
	if a.instructions == "" && len(a.text) == 0 {
		return nil, &UsageError{of: a}
	}
	return a, nil
}

func (a *analyzeCmd) Program() string {
	return a.subcommand("analyze")
}

func (a *analyzeCmd) FlagSet() *flag.FlagSet {
	return a.fs
}

func (a *analyzeCmd) readInstructions() ([]string, error) {
	text := strings.Join(a.text, "\n")
	switch a.instructions {
	case "":
	case "-":
		b, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("read instructions: %w", err)
		}
		text = string(b)
	default:
		b, err := os.ReadFile(a.instructions)
		if err != nil {
			return nil, fmt.Errorf("read instructions: %w", err)
		}
		text = string(b)
	}
	list := inference.ParseInstructions(text)
	if len(list) == 0 {
		return nil, inference.ErrNoInstructions
	}
	return list, nil
}

func (a *analyzeCmd) Run() error {
	instructions, err := a.readInstructions()
	if err != nil {
		return err
	}
	data, mime, err := readImageFile(a.image)
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer(a.root, a.model)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	a.log.Info().Str("image", a.image).Int("instructions", len(instructions)).Msg("analyzing")
	list, err := analyzer.Analyze(ctx, inference.Image{Data: data, MIME: mime}, instructions)
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", a.image, err)
	}
	if err := a.writeSheet(a.output, list); err != nil {
		return err
	}
	a.log.Info().Int("annotations", len(list)).Msg("analysis done")

	img, _, err := imageio.Decode(data, mime)
	if err != nil {
		return err
	}
	preview, err := a.renderSheet(img, list, a.style(), a.shadow && a.renderOut != "")
	if err != nil {
		return err
	}
	if a.renderOut != "" {
		if _, err := a.exportImage(a.renderOut, preview); err != nil {
			return err
		}
	}
	a.notifier.Analyze(len(list), preview)
	return nil
}
