package sheet

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArray(t *testing.T) {
	list, err := Parse([]byte(`[
		{"number": 1, "label": "Remove the cup", "targetX": 40, "targetY": 55.5, "arrowStartX": 10, "arrowStartY": 10},
		{"label": "Brighten sky", "targetX": 120, "targetY": -4, "arrowStartX": 80, "arrowStartY": 5}
	]`))
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, 1, list[0].Number)
	assert.Equal(t, 55.5, list[0].TargetY)
	assert.Equal(t, 2, list[1].Number, "missing number falls back to position")
	assert.Equal(t, 100.0, list[1].TargetX)
	assert.Equal(t, 0.0, list[1].TargetY)
}

func TestParseEnvelope(t *testing.T) {
	list, err := Parse([]byte(`{"annotations":[{"number":4,"label":"x","targetX":1,"targetY":2,"arrowStartX":3,"arrowStartY":4}]}`))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 4, list[0].Number)

	_, err = Parse([]byte(`{"annotations":[],"error":"upstream failed"}`))
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestParseMalformed(t *testing.T) {
	for name, in := range map[string]string{
		"empty":         "",
		"scalar":        "42",
		"missing coord": `[{"number":1,"label":"a","targetX":1,"targetY":2,"arrowStartX":3}]`,
		"bad json":      `[{"number":1,`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	in := []Annotation{{Number: 1, Label: "Crop <left>", TargetX: 12.5, TargetY: 20, ArrowStartX: 5, ArrowStartY: 6}}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, in))
	assert.Contains(t, buf.String(), `"arrowStartX": 5`)
	assert.Contains(t, buf.String(), "<left>")

	out, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	buf.Reset()
	require.NoError(t, Encode(&buf, nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestWatchReportsRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheet.json")
	require.NoError(t, WriteFile(path, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []Annotation, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(list []Annotation, err error) {
			if err == nil && len(list) > 0 {
				got <- list
			}
		})
	}()

	want := []Annotation{{Number: 1, Label: "a", TargetX: 1, TargetY: 1, ArrowStartX: 2, ArrowStartY: 2}}
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case list := <-got:
			assert.Equal(t, want, list)
			cancel()
			require.NoError(t, <-done)
			return
		case <-tick.C:
			// the watcher may not be registered on the first write
			require.NoError(t, WriteFile(path, want))
		case <-deadline:
			t.Fatal("no change reported")
		}
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
