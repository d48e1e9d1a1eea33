package svgpng

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaddedDimensions(t *testing.T) {
	tests := []struct {
		w, h         float64
		wantW, wantH int
	}{
		{100, 50, 140, 90},
		{300, 150, 340, 190},
		{10.2, 10.7, 51, 51},
		{0.5, 1, 41, 41},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%gx%g", tt.w, tt.h), func(t *testing.T) {
			d := PaddedDimensions(tt.w, tt.h)
			assert.Equal(t, tt.wantW, d.Width)
			assert.Equal(t, tt.wantH, d.Height)
			assert.Equal(t, tt.w, d.SVGWidth)
			assert.Equal(t, tt.h, d.SVGHeight)
		})
	}
}

func TestProbeDimensions(t *testing.T) {
	e := newFakeEngine()
	e.probe = probeResult{Found: true, Width: 100, Height: 50}

	dims, err := ProbeDimensions(context.Background(), &fakePage{e: e})
	require.NoError(t, err)
	assert.Equal(t, 140, dims.Width)
	assert.Equal(t, 90, dims.Height)
	assert.Equal(t, [][2]int{{140, 90}}, e.viewports)
}

func TestProbeDimensions_NoSVG(t *testing.T) {
	e := newFakeEngine()
	e.probe = probeResult{Found: false}

	_, err := ProbeDimensions(context.Background(), &fakePage{e: e})
	require.ErrorIs(t, err, ErrDimensionProbe)
	assert.Contains(t, err.Error(), "no svg element")
	assert.Empty(t, e.viewports)
}

func TestProbeDimensions_InvalidSize(t *testing.T) {
	assert.False(t, validSize(0))
	assert.False(t, validSize(-1))
	assert.False(t, validSize(math.Inf(1)))
	assert.False(t, validSize(math.NaN()))
	assert.True(t, validSize(0.5))

	e := newFakeEngine()
	e.probe = probeResult{Found: true, Width: 0, Height: 10}
	_, err := ProbeDimensions(context.Background(), &fakePage{e: e})
	assert.ErrorIs(t, err, ErrDimensionProbe)
}

func TestProbeDimensions_EvaluateError(t *testing.T) {
	e := newFakeEngine()
	e.probeErr = errors.New("execution context was destroyed")
	_, err := ProbeDimensions(context.Background(), &fakePage{e: e})
	assert.ErrorIs(t, err, ErrDimensionProbe)

	e.probeErr = fmt.Errorf("evaluate: %w", context.DeadlineExceeded)
	_, err = ProbeDimensions(context.Background(), &fakePage{e: e})
	assert.ErrorIs(t, err, ErrRenderTimeout)
}
