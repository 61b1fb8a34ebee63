package capture

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
)

type x11Backend struct{}

// display is one open connection to the X server and its default screen.
type display struct {
	conn   *xgb.Conn
	setup  *xproto.SetupInfo
	screen *xproto.ScreenInfo
}

func openDisplay() (*display, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("open X display: %w", err)
	}
	d := &display{conn: conn, setup: xproto.Setup(conn)}
	if d.setup != nil {
		d.screen = d.setup.DefaultScreen(conn)
	}
	if d.screen == nil {
		conn.Close()
		return nil, errors.New("X display has no default screen")
	}
	return d, nil
}

func (d *display) Close() { d.conn.Close() }

func (d *display) bounds() image.Rectangle {
	return image.Rect(0, 0, int(d.screen.WidthInPixels), int(d.screen.HeightInPixels))
}

// outputs walks the connected RandR outputs that drive a CRTC. primary
// is set for the output the server marks as primary.
func (d *display) outputs(fn func(name string, primary bool, crtc *randr.GetCrtcInfoReply)) error {
	if err := randr.Init(d.conn); err != nil {
		return fmt.Errorf("randr: %w", err)
	}
	var primary randr.Output
	if p, err := randr.GetOutputPrimary(d.conn, d.screen.Root).Reply(); err == nil {
		primary = p.Output
	}
	res, err := randr.GetScreenResources(d.conn, d.screen.Root).Reply()
	if err != nil {
		return fmt.Errorf("randr resources: %w", err)
	}
	for _, out := range res.Outputs {
		info, err := randr.GetOutputInfo(d.conn, out, res.ConfigTimestamp).Reply()
		if err != nil || info.Crtc == 0 || info.Connection != randr.ConnectionConnected {
			continue
		}
		crtc, err := randr.GetCrtcInfo(d.conn, info.Crtc, res.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		fn(strings.TrimSpace(string(info.Name)), primary != 0 && out == primary, crtc)
	}
	return nil
}

func (x11Backend) monitors() ([]MonitorInfo, error) {
	d, err := openDisplay()
	if err != nil {
		return nil, err
	}
	defer d.Close()

	var mons []MonitorInfo
	err = d.outputs(func(name string, primary bool, crtc *randr.GetCrtcInfoReply) {
		x, y := int(crtc.X), int(crtc.Y)
		mons = append(mons, MonitorInfo{
			Index:   len(mons),
			Name:    name,
			Rect:    image.Rect(x, y, x+int(crtc.Width), y+int(crtc.Height)),
			Primary: primary,
		})
	})
	return mons, err
}

func (x11Backend) grab(rect image.Rectangle) (*image.RGBA, error) {
	d, err := openDisplay()
	if err != nil {
		return nil, err
	}
	defer d.Close()

	if rect.Empty() {
		rect = d.bounds()
	} else if rect = rect.Intersect(d.bounds()); rect.Empty() {
		return nil, fmt.Errorf("%w: outside the screen", ErrEmptyRegion)
	}
	cookie := xproto.GetImage(d.conn, xproto.ImageFormatZPixmap, xproto.Drawable(d.screen.Root),
		int16(rect.Min.X), int16(rect.Min.Y), uint16(rect.Dx()), uint16(rect.Dy()), ^uint32(0))
	reply, err := cookie.Reply()
	if err != nil {
		return nil, fmt.Errorf("read screen: %w", err)
	}
	return xImageToRGBA(d.setup, reply, rect.Dx(), rect.Dy())
}

// bytesPerPixel looks up the pixmap format the server uses for depth.
func bytesPerPixel(setup *xproto.SetupInfo, depth byte) (int, error) {
	for _, f := range setup.PixmapFormats {
		if f.Depth != depth {
			continue
		}
		if f.BitsPerPixel < 24 {
			return 0, fmt.Errorf("screen depth %d uses %d bits per pixel, need 24 or 32", depth, f.BitsPerPixel)
		}
		return int(f.BitsPerPixel) / 8, nil
	}
	return 0, fmt.Errorf("no pixmap format for screen depth %d", depth)
}

// xImageToRGBA converts a ZPixmap reply stored as little-endian BGRx.
func xImageToRGBA(setup *xproto.SetupInfo, reply *xproto.GetImageReply, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyRegion
	}
	if reply == nil || len(reply.Data) == 0 {
		return nil, errors.New("read screen: no pixel data")
	}
	bpp, err := bytesPerPixel(setup, reply.Depth)
	if err != nil {
		return nil, err
	}
	stride := len(reply.Data) / height
	if stride*height != len(reply.Data) || stride < width*bpp {
		return nil, fmt.Errorf("read screen: %d bytes do not fit %dx%d", len(reply.Data), width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		src := reply.Data[y*stride:]
		dst := img.Pix[y*img.Stride:]
		for x := range width {
			s, o := src[x*bpp:], dst[x*4:]
			// the fourth byte is padding at depth 24, never alpha
			o[0], o[1], o[2], o[3] = s[2], s[1], s[0], 0xff
		}
	}
	return img, nil
}
