package capture

import (
	"errors"
	"image"
	"testing"

	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mons    []MonitorInfo
	monErr  error
	grabbed []image.Rectangle
}

func (f *fakeBackend) monitors() ([]MonitorInfo, error) { return f.mons, f.monErr }

func (f *fakeBackend) grab(rect image.Rectangle) (*image.RGBA, error) {
	f.grabbed = append(f.grabbed, rect)
	if rect.Empty() {
		rect = image.Rect(0, 0, 10, 10)
	}
	return image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy())), nil
}

func useFake(t *testing.T, f *fakeBackend) {
	t.Helper()
	prev := active
	active = f
	t.Cleanup(func() { active = prev })
}

var layout = []MonitorInfo{
	{Index: 0, Name: "HDMI-1", Rect: image.Rect(0, 0, 1920, 1080)},
	{Index: 1, Name: "eDP-1", Rect: image.Rect(1920, 0, 3200, 800), Primary: true},
}

func TestFindMonitor(t *testing.T) {
	tests := []struct {
		sel  string
		want int
	}{
		{"", 0},
		{"primary", 1},
		{"1", 1},
		{"#0", 0},
		{"edp", 1},
	}
	for _, tt := range tests {
		got, err := FindMonitor(layout, tt.sel)
		require.NoError(t, err, tt.sel)
		assert.Equal(t, tt.want, got.Index, tt.sel)
	}

	_, err := FindMonitor(layout, "5")
	assert.Error(t, err)
	_, err = FindMonitor(layout, "dp-9")
	assert.Error(t, err)
	_, err = FindMonitor(nil, "")
	assert.ErrorIs(t, err, errNoMonitors)
}

func TestScreen(t *testing.T) {
	f := &fakeBackend{mons: layout}
	useFake(t, f)

	img, err := Screen("")
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())

	img, err = Screen("primary")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1280, 800), img.Bounds())
	assert.Equal(t, []image.Rectangle{{}, layout[1].Rect}, f.grabbed)
}

func TestScreenMonitorError(t *testing.T) {
	useFake(t, &fakeBackend{monErr: errors.New("no randr")})
	_, err := Screen("1")
	assert.EqualError(t, err, "no randr")
}

func TestRegion(t *testing.T) {
	useFake(t, &fakeBackend{})
	_, err := Region(image.Rectangle{})
	assert.ErrorIs(t, err, ErrEmptyRegion)

	img, err := Region(image.Rect(5, 5, 25, 15))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
}

func TestParseRect(t *testing.T) {
	r, err := ParseRect("10, 20,300,200")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(10, 20, 310, 220), r)

	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "0,0,0,10"} {
		_, err := ParseRect(bad)
		assert.Error(t, err, bad)
	}
}

func TestXImageToRGBA(t *testing.T) {
	setup := &xproto.SetupInfo{PixmapFormats: []xproto.Format{{Depth: 24, BitsPerPixel: 32, ScanlinePad: 32}}}
	reply := &xproto.GetImageReply{
		Depth: 24,
		Data: []byte{
			0x10, 0x20, 0x30, 0x00, 0x01, 0x02, 0x03, 0x00,
			0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x00,
		},
	}
	img, err := xImageToRGBA(setup, reply, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0x30, 0x20, 0x10, 0xff}, img.Pix[0:4])
	assert.Equal(t, []uint8{0x03, 0x02, 0x01, 0xff}, img.Pix[4:8])
	assert.Equal(t, []uint8{0x00, 0x00, 0xff, 0xff}, img.Pix[8:12])
	assert.Equal(t, []uint8{0xff, 0x00, 0x00, 0xff}, img.Pix[12:16])

	reply.Depth = 8
	_, err = xImageToRGBA(setup, reply, 2, 2)
	assert.Error(t, err)

	_, err = xImageToRGBA(setup, &xproto.GetImageReply{Depth: 24}, 2, 2)
	assert.Error(t, err)
}
