package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLabXYZRoundTrip(t *testing.T) {
	in := []float64{55.3, 12.1, -8.4}
	x, y, z := labToXYZD50(in)
	out := xyzToLabD50(x, y, z)

	require.InDelta(t, in[0], out[0], 1e-6)
	require.InDelta(t, in[1], out[1], 1e-6)
	require.InDelta(t, in[2], out[2], 1e-6)
}

func TestLabIdentityTransform(t *testing.T) {
	p := NewProvider()
	require.NoError(t, p.Initialize())

	lab, err := p.CreateLabD50Profile()
	require.NoError(t, err)

	tr, err := p.CreateTransform(lab, lab, RelativeColorimetric)
	require.NoError(t, err)

	in := []float64{0, 0, 0}
	out := tr.Apply(in)
	require.Equal(t, in, out)
}

func TestPureBlackLabRoundTripsToBlack(t *testing.T) {
	p := NewProvider()
	require.NoError(t, p.Initialize())

	lab, err := p.CreateLabD50Profile()
	require.NoError(t, err)

	tr, err := p.CreateTransform(lab, lab, RelativeColorimetric)
	require.NoError(t, err)

	out := tr.Apply([]float64{0, 0, 0})
	require.InDelta(t, 0, out[0], 0.5)
	require.InDelta(t, 0, out[1], 0.5)
	require.InDelta(t, 0, out[2], 0.5)
}

func TestRequireVersionRejectsNewerEngine(t *testing.T) {
	p := NewProvider()
	err := p.RequireVersion(EngineVersion + 1)
	require.ErrorIs(t, err, ErrUnsupportedEngineVersion)
}

func TestApplyKOnlyGCRForcesPureBlackOnNeutralGray(t *testing.T) {
	// A neutral-gray RGB input, v=v=v, must render as (0,0,0,K) with
	// C,M,Y <= 1/255, regardless of whatever colorimetric CMYK mix the
	// profile's ordinary rendering produced for it.
	input := []float64{0.5, 0.5, 0.5}
	colorimetric := []float64{0.22, 0.18, 0.15, 0.3} // a plausible non-K-only mix

	out := applyKOnlyGCR(input, colorimetric)

	require.LessOrEqual(t, out[0], 1.0/255)
	require.LessOrEqual(t, out[1], 1.0/255)
	require.LessOrEqual(t, out[2], 1.0/255)
	require.Equal(t, 0.0, out[0])
	require.Equal(t, 0.0, out[1])
	require.Equal(t, 0.0, out[2])
	require.InDelta(t, 0.5, out[3], 1e-9)
}

func TestApplyKOnlyGCRLeavesChromaticInputUntouched(t *testing.T) {
	input := []float64{0.8, 0.2, 0.1}
	colorimetric := []float64{0.1, 0.7, 0.85, 0.05}

	out := applyKOnlyGCR(input, colorimetric)

	require.Equal(t, colorimetric, out)
}

func TestIsNeutralGrayToleratesOneOver255Rounding(t *testing.T) {
	require.True(t, isNeutralGray([]float64{0.5, 0.5 + 1.0/255, 0.5}))
	require.False(t, isNeutralGray([]float64{0.5, 0.6, 0.5}))
	require.True(t, isNeutralGray([]float64{0.5})) // Gray has one channel, always neutral
}
