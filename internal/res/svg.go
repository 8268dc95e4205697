package res

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const mimeSVG = "image/svg+xml"

// maxSVGPixels bounds the raster of one SVG side.
const maxSVGPixels = 4096

func svgIcon(res *Resource) (*oksvg.SvgIcon, int, int, error) {
	icon, err := oksvg.ReadIconStream(res.GetReader(), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("parse svg %s: %w", res.URL, err)
	}
	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		return nil, 0, 0, fmt.Errorf("svg %s has no viewBox size", res.URL)
	}
	return icon, min(w, maxSVGPixels), min(h, maxSVGPixels), nil
}

// rasterizeSVG renders an SVG at its viewBox size and encodes it as PNG.
func rasterizeSVG(res *Resource) ([]byte, error) {
	icon, w, h, err := svgIcon(res)
	if err != nil {
		return nil, err
	}
	icon.SetTarget(0, 0, float64(w), float64(h))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode %s: %w", res.URL, err)
	}
	return buf.Bytes(), nil
}
