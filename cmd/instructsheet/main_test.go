package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/instructsheet/internal/capture"
	"github.com/example/instructsheet/internal/config"
	"github.com/example/instructsheet/internal/imageio"
	"github.com/example/instructsheet/internal/inference"
	"github.com/example/instructsheet/internal/sheet"
	"github.com/example/instructsheet/internal/window"
)

type testEnv struct {
	dir    string
	stdin  *bytes.Buffer
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newTestRoot isolates config lookup in a temp home and working directory.
func newTestRoot(t *testing.T) (*root, *testEnv) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("INSTRUCTSHEET_THEME", "")
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	t.Chdir(dir)

	env := &testEnv{dir: dir, stdin: &bytes.Buffer{}, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	return newRoot(env.stdin, env.stdout, env.stderr), env
}

func run(r *root, args ...string) error {
	return r.Run(append([]string{"-log-level", "off"}, args...))
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

var twoNotes = []sheet.Annotation{
	{Number: 1, Label: "Beans", TargetX: 75, TargetY: 50, ArrowStartX: 25, ArrowStartY: 50},
	{Number: 2, Label: "Add salt", TargetX: 50, TargetY: 80, ArrowStartX: 10, ArrowStartY: 90},
}

func TestVersion(t *testing.T) {
	r, env := newTestRoot(t)
	require.NoError(t, run(r, "version"))
	assert.Equal(t, "instructsheet version dev\n", env.stdout.String())
}

func TestRootUsage(t *testing.T) {
	r, _ := newTestRoot(t)
	err := run(r)
	var uerr *UsageError
	require.ErrorAs(t, err, &uerr)
	help := uerr.Error()
	assert.Contains(t, help, "Usage: instructsheet")
	assert.Contains(t, help, "-notify-analyze")
	assert.Contains(t, help, "annotate")

	r, _ = newTestRoot(t)
	assert.ErrorAs(t, run(r, "frobnicate"), &uerr)
}

func TestSubcommandHelp(t *testing.T) {
	r, _ := newTestRoot(t)
	r.setup()
	tests := []struct {
		name  string
		parse func() error
		want  string
	}{
		{"analyze", func() error { _, err := parseAnalyzeCmd(nil, r); return err }, "Usage: instructsheet analyze"},
		{"render", func() error { _, err := parseRenderCmd([]string{"only-one"}, r); return err }, "-arrow-color"},
		{"render fonts", func() error { _, err := parseRenderCmd([]string{"only-one"}, r); return err }, "need a font file path"},
		{"annotate", func() error { _, err := parseAnnotateCmd([]string{"nowhere"}, r); return err }, "q   quit"},
		{"list", func() error { _, err := parseListCmd(nil, r); return err }, "monitors"},
		{"serve", func() error { _, err := parseServeCmd([]string{"extra"}, r); return err }, "/api/analyze"},
		{"interactive", func() error { _, err := parseInteractiveCmd([]string{"extra"}, r); return err }, "exit"},
		{"config", func() error { c, _ := parseConfigCmd(nil, r); return c.Run() }, "print|save|path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var uerr *UsageError
			require.ErrorAs(t, tt.parse(), &uerr)
			assert.Contains(t, uerr.Error(), tt.want)
		})
	}
	assert.Contains(t, (&UsageError{of: &versionCmd{root: r}}).Error(), "Prints the version")
}

type fakeAnalyzer struct {
	img          inference.Image
	instructions []string
	list         []sheet.Annotation
	err          error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, img inference.Image, instructions []string) ([]sheet.Annotation, error) {
	f.img = img
	f.instructions = instructions
	return f.list, f.err
}

func stubAnalyzer(t *testing.T, a inference.Analyzer) {
	t.Helper()
	orig := newAnalyzer
	newAnalyzer = func(*root, string) (inference.Analyzer, error) { return a, nil }
	t.Cleanup(func() { newAnalyzer = orig })
}

func TestAnalyze(t *testing.T) {
	r, env := newTestRoot(t)
	fake := &fakeAnalyzer{list: twoNotes}
	stubAnalyzer(t, fake)

	imgPath := filepath.Join(env.dir, "label.png")
	writePNG(t, imgPath, 200, 100)
	sheetPath := filepath.Join(env.dir, "sheet.json")
	outPath := filepath.Join(env.dir, "out.png")

	require.NoError(t, run(r, "analyze", "-o", sheetPath, "-render", outPath, imgPath, "1. Replace organic", "2) Add salt"))
	assert.Equal(t, []string{"Replace organic", "Add salt"}, fake.instructions)
	assert.Equal(t, "image/png", fake.img.MIME)

	list, err := sheet.ReadFile(sheetPath)
	require.NoError(t, err)
	assert.Equal(t, twoNotes, list)

	img, _, err := imageio.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())
}

func TestAnalyzeInstructionFileToStdout(t *testing.T) {
	r, env := newTestRoot(t)
	fake := &fakeAnalyzer{list: twoNotes[:1]}
	stubAnalyzer(t, fake)

	imgPath := filepath.Join(env.dir, "label.png")
	writePNG(t, imgPath, 20, 20)
	env.stdin.WriteString("1. Replace organic\n\n2: Add salt\n")

	require.NoError(t, run(r, "analyze", "-instructions", "-", imgPath))
	assert.Equal(t, []string{"Replace organic", "Add salt"}, fake.instructions)
	list, err := sheet.Parse(env.stdout.Bytes())
	require.NoError(t, err)
	assert.Equal(t, twoNotes[:1], list)
}

func TestAnalyzeErrors(t *testing.T) {
	r, env := newTestRoot(t)
	sentinel := errors.New("quota")
	stubAnalyzer(t, &fakeAnalyzer{err: sentinel})

	imgPath := filepath.Join(env.dir, "label.png")
	writePNG(t, imgPath, 20, 20)
	err := run(r, "analyze", imgPath, "x")
	require.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "failed to analyze")

	r, _ = newTestRoot(t)
	notImage := filepath.Join(env.dir, "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("hello"), 0o644))
	assert.ErrorIs(t, run(r, "analyze", notImage, "x"), imageio.ErrNotImage)

	r, _ = newTestRoot(t)
	assert.ErrorIs(t, run(r, "analyze", imgPath, "  ", "1."), inference.ErrNoInstructions)
}

func TestAnalyzerRequiresKey(t *testing.T) {
	r, _ := newTestRoot(t)
	r.config.Inference.APIKeyEnv = "INSTRUCTSHEET_TEST_MISSING_KEY"
	t.Setenv("INSTRUCTSHEET_TEST_MISSING_KEY", "")
	_, err := newAnalyzer(r, "")
	assert.ErrorIs(t, err, inference.ErrNoAPIKey)

	t.Setenv("INSTRUCTSHEET_TEST_MISSING_KEY", "secret")
	a, err := newAnalyzer(r, "")
	require.NoError(t, err)
	assert.IsType(t, &inference.GeminiClient{}, a)
}

func writeSheet(t *testing.T, path string, list []sheet.Annotation) {
	t.Helper()
	require.NoError(t, sheet.WriteFile(path, list))
}

func TestRender(t *testing.T) {
	r, env := newTestRoot(t)
	imgPath := filepath.Join(env.dir, "label.png")
	writePNG(t, imgPath, 200, 100)
	sheetPath := filepath.Join(env.dir, "sheet.json")
	writeSheet(t, sheetPath, []sheet.Annotation{{Number: 1, Label: "A", TargetX: 75, TargetY: 50, ArrowStartX: 25, ArrowStartY: 50}})
	out := filepath.Join(env.dir, "out.png")

	require.NoError(t, run(r, "render", "-o", out, "-arrow-color", "#ff0000", imgPath, sheetPath))
	img, _, err := imageio.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(130, 50))
	assert.Contains(t, env.stderr.String(), "saved "+out)
}

func TestRenderDatedDefault(t *testing.T) {
	r, env := newTestRoot(t)
	imgPath := filepath.Join(env.dir, "label.png")
	writePNG(t, imgPath, 40, 40)
	sheetPath := filepath.Join(env.dir, "sheet.json")
	writeSheet(t, sheetPath, twoNotes[:1])

	require.NoError(t, run(r, "render", imgPath, sheetPath))
	matches, err := filepath.Glob(filepath.Join(env.dir, "instruction-sheet_*.png"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRenderStdinToStdoutWithShadow(t *testing.T) {
	r, env := newTestRoot(t)
	imgPath := filepath.Join(env.dir, "label.png")
	writePNG(t, imgPath, 60, 40)
	require.NoError(t, sheet.Encode(env.stdin, twoNotes))

	require.NoError(t, run(r, "render", "-shadow", "-o", "-", imgPath, "-"))
	img, err := png.Decode(env.stdout)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 60)
	assert.Greater(t, img.Bounds().Dy(), 40)
}

func TestRenderErrors(t *testing.T) {
	r, env := newTestRoot(t)
	imgPath := filepath.Join(env.dir, "label.png")
	writePNG(t, imgPath, 20, 20)
	sheetPath := filepath.Join(env.dir, "sheet.json")
	writeSheet(t, sheetPath, twoNotes)

	assert.Error(t, run(r, "render", "-arrow-color", "nope", imgPath, sheetPath))

	r, _ = newTestRoot(t)
	assert.ErrorIs(t, run(r, "render", "-o", "out.svg", imgPath, sheetPath), imageio.ErrUnsupportedFormat)

	r, _ = newTestRoot(t)
	bad := filepath.Join(env.dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"label":"x","targetX":1}]`), 0o644))
	assert.ErrorIs(t, run(r, "render", imgPath, bad), sheet.ErrMalformed)
}

func TestList(t *testing.T) {
	r, env := newTestRoot(t)
	sheetPath := filepath.Join(env.dir, "sheet.json")
	writeSheet(t, sheetPath, twoNotes)

	require.NoError(t, run(r, "list", sheetPath))
	out := env.stdout.String()
	assert.Contains(t, out, "Beans")
	assert.Contains(t, out, "Add salt")
	assert.Contains(t, out, "2 annotations")

	r, env = newTestRoot(t)
	empty := filepath.Join(env.dir, "empty.json")
	writeSheet(t, empty, []sheet.Annotation{})
	require.NoError(t, run(r, "list", empty))
	assert.Equal(t, "no annotations\n", env.stdout.String())
}

func TestListThemes(t *testing.T) {
	r, env := newTestRoot(t)
	require.NoError(t, run(r, "list", "themes"))
	assert.Contains(t, env.stdout.String(), "* default\n")
	assert.Contains(t, env.stdout.String(), "  print\n")
}

func TestListMonitors(t *testing.T) {
	orig := listMonitorsFn
	listMonitorsFn = func() ([]capture.MonitorInfo, error) {
		return []capture.MonitorInfo{
			{Index: 0, Name: "HDMI-1", Rect: image.Rect(0, 0, 1920, 1080), Primary: true},
			{Index: 1, Name: "DP-2", Rect: image.Rect(1920, 0, 3200, 1024)},
		}, nil
	}
	t.Cleanup(func() { listMonitorsFn = orig })

	r, env := newTestRoot(t)
	require.NoError(t, run(r, "list", "monitors"))
	assert.Contains(t, env.stdout.String(), "* 0: HDMI-1 1920x1080+0+0")
	assert.Contains(t, env.stdout.String(), "  1: DP-2 1280x1024+1920+0")
}

func TestConfigPrintAndSave(t *testing.T) {
	r, env := newTestRoot(t)
	require.NoError(t, run(r, "config", "print"))
	assert.Contains(t, env.stdout.String(), "font_size")

	r, env = newTestRoot(t)
	path := filepath.Join(env.dir, "conf", "config.toml")
	require.NoError(t, run(r, "config", "-o", path, "save"))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := config.Parse(f)
	require.NoError(t, err)
	assert.Equal(t, r.config.Style, cfg.Style)

	r, env = newTestRoot(t)
	require.NoError(t, run(r, "config", "path"))
	assert.Equal(t, config.DefaultPath()+"\n", env.stdout.String())

	r, _ = newTestRoot(t)
	assert.ErrorContains(t, run(r, "config", "explode"), "unknown config command")
}

func TestInteractive(t *testing.T) {
	r, env := newTestRoot(t)
	dir := filepath.Join(env.dir, "with space")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeSheet(t, filepath.Join(dir, "sheet.json"), twoNotes)

	env.stdin.WriteString("# comment\nversion\nlist \"" + filepath.Join(dir, "sheet.json") + "\"\nbogus\nexit\nversion\n")
	require.NoError(t, run(r, "interactive"))

	out := env.stdout.String()
	assert.Equal(t, 1, strings.Count(out, "instructsheet version dev"))
	assert.Contains(t, out, "Beans")
	assert.Contains(t, env.stderr.String(), "Usage: instructsheet")
}

func TestInteractiveExec(t *testing.T) {
	r, env := newTestRoot(t)
	require.NoError(t, run(r, "interactive", "-e", "version", "-e", "quit", "-e", "version"))
	assert.Equal(t, "instructsheet version dev\n", env.stdout.String())

	r, _ = newTestRoot(t)
	assert.ErrorContains(t, run(r, "interactive", "-e", `list "unterminated`), "parse")
}

func stubWindow(t *testing.T) **window.Window {
	t.Helper()
	var got *window.Window
	orig := runWindowFn
	runWindowFn = func(w *window.Window) error {
		got = w
		return nil
	}
	t.Cleanup(func() { runWindowFn = orig })
	return &got
}

func TestAnnotateFile(t *testing.T) {
	got := stubWindow(t)
	r, env := newTestRoot(t)
	imgPath := filepath.Join(env.dir, "label.png")
	writePNG(t, imgPath, 80, 40)
	sheetPath := filepath.Join(env.dir, "sheet.json")
	writeSheet(t, sheetPath, twoNotes)

	require.NoError(t, run(r, "annotate", "-sheet", sheetPath, "file", imgPath))
	require.NotNil(t, *got)
	ctrl := (*got).Controller()
	assert.True(t, ctrl.Ready())
	assert.Equal(t, twoNotes, ctrl.Annotations())
}

func TestAnnotateMissingSheetStartsEmpty(t *testing.T) {
	got := stubWindow(t)
	r, env := newTestRoot(t)
	require.NoError(t, run(r, "annotate", "-sheet", filepath.Join(env.dir, "new.json")))
	require.NotNil(t, *got)
	assert.False(t, (*got).Controller().Ready())
	assert.Empty(t, (*got).Controller().Annotations())
}

func TestAnnotateCapture(t *testing.T) {
	got := stubWindow(t)
	origScreen, origRegion := captureScreenFn, captureRegionFn
	t.Cleanup(func() { captureScreenFn, captureRegionFn = origScreen, origRegion })

	sentinel := errors.New("denied")
	captureScreenFn = func(string) (*image.RGBA, error) { return nil, sentinel }
	r, _ := newTestRoot(t)
	err := run(r, "annotate", "capture", "screen")
	require.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "failed to capture screen")

	var asked image.Rectangle
	captureRegionFn = func(rect image.Rectangle) (*image.RGBA, error) {
		asked = rect
		return image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy())), nil
	}
	r, _ = newTestRoot(t)
	require.NoError(t, run(r, "annotate", "capture", "region", "10,20,30,40"))
	assert.Equal(t, image.Rect(10, 20, 40, 60), asked)
	assert.Equal(t, float64(30), (*got).Controller().Size().W)
}

func TestAnnotateClipboard(t *testing.T) {
	got := stubWindow(t)
	orig := pasteImageFn
	t.Cleanup(func() { pasteImageFn = orig })

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 12, 8))))
	pasteImageFn = func() ([]byte, error) { return buf.Bytes(), nil }

	r, _ := newTestRoot(t)
	require.NoError(t, run(r, "annotate", "clipboard"))
	assert.True(t, (*got).Controller().Ready())
}

func TestParseAnnotateErrors(t *testing.T) {
	r, _ := newTestRoot(t)
	_, err := parseAnnotateCmd([]string{"capture", "window"}, r)
	assert.ErrorContains(t, err, "unknown capture target")
	_, err = parseAnnotateCmd([]string{"capture", "region"}, r)
	assert.ErrorContains(t, err, "rectangle")
	_, err = parseAnnotateCmd([]string{"file"}, r)
	var uerr *UsageError
	assert.ErrorAs(t, err, &uerr)
}

func TestServeWithoutKey(t *testing.T) {
	r, _ := newTestRoot(t)
	r.setup()
	r.config.Inference.APIKeyEnv = "INSTRUCTSHEET_TEST_MISSING_KEY"
	t.Setenv("INSTRUCTSHEET_TEST_MISSING_KEY", "")
	s, err := parseServeCmd([]string{"-addr", "127.0.0.1:0"}, r)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", s.addr)

	srv, err := s.newServer()
	require.NoError(t, err)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze",
		strings.NewReader(`{"image":"aGVsbG8=","instructions":["x"]}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
