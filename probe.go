package svgpng

import (
	"context"
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultSVGWidth and DefaultSVGHeight apply when the svg element
	// declares neither width/height attributes nor a viewBox.
	DefaultSVGWidth  = 300
	DefaultSVGHeight = 150
)

// probeScript measures the first svg element. Explicit width/height
// attributes win over the viewBox, which wins over the defaults.
const probeScript = `() => {
	const svg = document.querySelector('svg');
	if (!svg) {
		return { found: false, width: 0, height: 0 };
	}
	let width = 300;
	let height = 150;
	try {
		const vb = svg.viewBox && svg.viewBox.baseVal;
		if (vb) {
			width = vb.width || width;
			height = vb.height || height;
		}
		if (svg.hasAttribute('width') && svg.width && svg.width.baseVal) {
			width = svg.width.baseVal.value || width;
		}
		if (svg.hasAttribute('height') && svg.height && svg.height.baseVal) {
			height = svg.height.baseVal.value || height;
		}
	} catch (e) {}
	return { found: true, width: width, height: height };
}`

type probeResult struct {
	Found  bool    `json:"found"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Dimensions describes the measured SVG and the viewport derived from it.
type Dimensions struct {
	// SVGWidth and SVGHeight are the intrinsic size in CSS pixels.
	SVGWidth  float64
	SVGHeight float64
	// Width and Height are the padded viewport in CSS pixels.
	Width  int
	Height int
}

// PaddedDimensions adds [WrapperPadding] on every side of a w×h SVG and
// rounds up to whole pixels.
func PaddedDimensions(w, h float64) Dimensions {
	return Dimensions{
		SVGWidth:  w,
		SVGHeight: h,
		Width:     int(math.Ceil(w + 2*WrapperPadding)),
		Height:    int(math.Ceil(h + 2*WrapperPadding)),
	}
}

// ProbeDimensions measures the svg element loaded in p and resizes the
// viewport to its padded size.
func ProbeDimensions(ctx context.Context, p Page) (Dimensions, error) {
	var res probeResult
	if err := p.Evaluate(ctx, probeScript, &res); err != nil {
		return Dimensions{}, newError(classify(err, KindDimensionProbe), "probe dimensions", err)
	}
	if !res.Found {
		return Dimensions{}, newError(KindDimensionProbe, "probe dimensions", errors.New("no svg element found in document"))
	}
	if !validSize(res.Width) || !validSize(res.Height) {
		return Dimensions{}, newError(KindDimensionProbe, "probe dimensions",
			fmt.Errorf("invalid svg size %vx%v", res.Width, res.Height))
	}

	dims := PaddedDimensions(res.Width, res.Height)
	if err := p.SetViewport(ctx, dims.Width, dims.Height); err != nil {
		return Dimensions{}, newError(classify(err, KindDimensionProbe), "resize viewport", err)
	}
	return dims, nil
}

func validSize(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// classify reports deadline errors as timeouts and anything else as kind.
func classify(err error, kind Kind) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindRenderTimeout
	}
	return kind
}
