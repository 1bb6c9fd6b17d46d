package policy

import (
	"testing"

	"github.com/hhrutter/pdfcolor/pkg/color/engine"
	"github.com/stretchr/testify/require"
)

func TestEvaluateConversionKOnlyGCRFromLabDegrades(t *testing.T) {
	eval := EvaluateConversion(Request{
		SourceColorSpace:      CSLab,
		DestinationColorSpace: CSCMYK,
		RequestedIntent:       engine.KOnlyGCR,
	})
	require.Equal(t, engine.RelativeColorimetric, eval.RenderingIntent)
	require.False(t, eval.RequiresMultiprofileTransform)
}

func TestEvaluateConversionKOnlyGCRFromGrayRequiresMultiprofile(t *testing.T) {
	eval := EvaluateConversion(Request{
		SourceColorSpace:       CSGray,
		DestinationColorSpace:  CSCMYK,
		RequestedIntent:        engine.KOnlyGCR,
		BlackPointCompensation: true,
	})
	require.True(t, eval.RequiresMultiprofileTransform)
	require.Equal(t, []string{"srgb"}, eval.IntermediateProfiles)
	require.True(t, eval.MultiprofileBlackPointScaling)
}

func TestEvaluateConversionKOnlyGCRToRGBDegrades(t *testing.T) {
	eval := EvaluateConversion(Request{
		SourceColorSpace:      CSRGB,
		DestinationColorSpace: CSRGB,
		RequestedIntent:       engine.KOnlyGCR,
	})
	require.Equal(t, engine.RelativeColorimetric, eval.RenderingIntent)
}

func TestFormatPacksFields(t *testing.T) {
	f := Format(CSCMYK, 4, 1, false, false)
	require.Equal(t, 1, BytesPerSample(f))
}
