package clipboard

import (
	"bytes"
	"image"
	"image/png"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/instructsheet/internal/sheet"
)

type memory struct {
	data map[format][]byte
}

func (m *memory) init() error { return nil }

func (m *memory) write(f format, data []byte) error {
	m.data[f] = append([]byte(nil), data...)
	return nil
}

func (m *memory) read(f format) ([]byte, error) { return m.data[f], nil }

func useMemory(t *testing.T) *memory {
	t.Helper()
	t.Setenv("DISPLAY", ":0")
	m := &memory{data: map[format][]byte{}}
	prev := active
	active = m
	initOnce = sync.Once{}
	initErr = nil
	t.Cleanup(func() {
		active = prev
		initOnce = sync.Once{}
		initErr = nil
	})
	return m
}

func TestEnsureInitWithoutDisplay(t *testing.T) {
	if !needsDisplay() {
		t.Skip("display check only applies to X11 platforms, not " + runtime.GOOS)
	}
	useMemory(t)
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")

	err := CopyImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	assert.ErrorIs(t, err, errNoDisplay)
}

func TestImageRoundTrip(t *testing.T) {
	m := useMemory(t)
	_, err := PasteImage()
	assert.ErrorIs(t, err, ErrEmpty)

	require.NoError(t, CopyImage(image.NewRGBA(image.Rect(0, 0, 3, 2))))
	require.NotEmpty(t, m.data[formatImage])

	data, err := PasteImage()
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
}

func TestAnnotationsRoundTrip(t *testing.T) {
	m := useMemory(t)
	list := []sheet.Annotation{{Number: 1, Label: "Salt", TargetX: 10, TargetY: 20, ArrowStartX: 5, ArrowStartY: 20}}
	require.NoError(t, CopyAnnotations(list))
	assert.Contains(t, string(m.data[formatText]), `"label": "Salt"`)

	got, err := PasteAnnotations()
	require.NoError(t, err)
	assert.Equal(t, list, got)
}

func TestPasteAnnotationsRejectsText(t *testing.T) {
	m := useMemory(t)
	m.data[formatText] = []byte("  \n")
	_, err := PasteAnnotations()
	assert.ErrorIs(t, err, ErrEmpty)

	m.data[formatText] = []byte("shopping list")
	_, err = PasteAnnotations()
	assert.ErrorIs(t, err, sheet.ErrMalformed)
}
