package clut

import (
	"testing"

	"github.com/hhrutter/pdfcolor/pkg/color/engine"
	"github.com/hhrutter/pdfcolor/pkg/color/policy"
	"github.com/stretchr/testify/require"
)

func TestBuildRequiresAtLeastTwoProfiles(t *testing.T) {
	p := engine.NewProvider()
	require.NoError(t, p.Initialize())
	lab, err := p.CreateLabD50Profile()
	require.NoError(t, err)

	_, err = Build(p, BuildOptions{
		Profiles:         []*engine.Profile{lab},
		InputColorSpace:  policy.CSLab,
		OutputColorSpace: policy.CSLab,
	})
	require.Error(t, err)
}

func TestBuildLabIdentityChainPreservesValues(t *testing.T) {
	p := engine.NewProvider()
	require.NoError(t, p.Initialize())
	lab, err := p.CreateLabD50Profile()
	require.NoError(t, err)

	lut, err := Build(p, BuildOptions{
		Profiles:         []*engine.Profile{lab, lab},
		Intent:           engine.RelativeColorimetric,
		InputColorSpace:  policy.CSLab,
		OutputColorSpace: policy.CSLab,
	})
	require.NoError(t, err)

	out := lut.Apply([]float64{50, 10, -10})
	require.InDelta(t, 50, out[0], 2)
	require.InDelta(t, 10, out[1], 2)
	require.InDelta(t, -10, out[2], 2)
}

func TestCoerceAchromaticLabForcesNeutralAB(t *testing.T) {
	lut := &CompositeLUT{
		inputChannels:  1,
		outputChannels: 3,
		resolution:     2,
		isLabOutput:    true,
		grid:           []float64{0, 5, -5, 100, 7, -7},
	}
	lut.coerceAchromaticLab()
	require.Equal(t, float64(neutralLab), lut.grid[1])
	require.Equal(t, float64(neutralLab), lut.grid[2])
	require.Equal(t, float64(neutralLab), lut.grid[4])
	require.Equal(t, float64(neutralLab), lut.grid[5])
}

func TestIsNeutralGrayInputDetectsGrayAndEqualRGB(t *testing.T) {
	require.True(t, isNeutralGrayInput(policy.CSGray, []float64{0.4}))
	require.True(t, isNeutralGrayInput(policy.CSRGB, []float64{0.6, 0.6, 0.6}))
	require.False(t, isNeutralGrayInput(policy.CSRGB, []float64{0.6, 0.5, 0.6}))
	require.False(t, isNeutralGrayInput(policy.CSCMYK, []float64{0, 0, 0, 1}))
}

func TestSampleForcesKOnlyGCROutputOnNeutralGrayGridPoints(t *testing.T) {
	lut := &CompositeLUT{
		inputChannels:   1,
		outputChannels:  4,
		resolution:      2,
		inputColorSpace: policy.CSGray,
		intent:          engine.KOnlyGCR,
	}
	lut.sample(nil, policy.CSGray)

	// Grid point 0 -> Gray=0.0 -> K=1; grid point 1 -> Gray=1.0 -> K=0.
	require.Equal(t, []float64{0, 0, 0, 1}, lut.grid[0:4])
	require.Equal(t, []float64{0, 0, 0, 0}, lut.grid[4:8])
}
