package inference

import (
	"bytes"
	"fmt"

	"github.com/anthonynsimon/bild/transform"

	"github.com/example/instructsheet/internal/imageio"
)

// prepareImage validates img and shrinks it so its longer side is at most
// maxEdge pixels. Normalized coordinates do not depend on resolution, so the
// answer applies to the original image unchanged.
func prepareImage(img Image, maxEdge int) (Image, error) {
	decoded, mime, err := imageio.Decode(img.Data, img.MIME)
	if err != nil {
		return Image{}, err
	}
	b := decoded.Bounds()
	longest := max(b.Dx(), b.Dy())
	if maxEdge <= 0 || longest <= maxEdge {
		return Image{Data: img.Data, MIME: mime}, nil
	}

	scale := float64(maxEdge) / float64(longest)
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	resized := transform.Resize(decoded, w, h, transform.Linear)

	format := imageio.PNG
	if mime == "image/jpeg" {
		format = imageio.JPEG
	}
	var buf bytes.Buffer
	if err := imageio.Encode(&buf, resized, format); err != nil {
		return Image{}, fmt.Errorf("downscale: %w", err)
	}
	return Image{Data: buf.Bytes(), MIME: format.MIME()}, nil
}
