package convert

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/hhrutter/pdfcolor/pkg/model"
	"github.com/hhrutter/pdfcolor/pkg/types"
	"github.com/stretchr/testify/require"
)

func flateStreamDict(t *testing.T, d types.Dict, content []byte) *types.StreamDict {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	sd := types.NewStreamDict(d, 0, nil, nil, []types.PDFFilter{{Name: "FlateDecode"}})
	sd.Raw = buf.Bytes()
	return &sd
}

func newLabImageDict(w, h, bpc int) types.Dict {
	return types.Dict{
		"Type":             types.Name("XObject"),
		"Subtype":          types.Name("Image"),
		"Width":            types.Integer(w),
		"Height":           types.Integer(h),
		"BitsPerComponent": types.Integer(bpc),
		"ColorSpace":       types.Name("Lab"),
	}
}

func testConverter(t *testing.T) (*Converter, model.ColorConfig) {
	t.Helper()
	conf := model.ColorConfig{
		DestinationColorSpace: "Lab",
		ConvertImages:         true,
		ConvertContentStreams: true,
	}
	c, err := NewConverter(conf)
	require.NoError(t, err)
	return c, conf
}

// TestConvertImageLabIdentityRewritesDict exercises ConvertImage end to end
// (unpack, normalize, ConvertColorsBuffer, pack, dict rewrite) through the
// Lab pseudo-profile's identity transform, which needs no embedded ICC
// profile bytes.
func TestConvertImageLabIdentityRewritesDict(t *testing.T) {
	c, conf := testConverter(t)

	d := newLabImageDict(2, 1, 8)
	// L=128/255*100≈50.2, a=b=255/255*255-128=127 for the second pixel.
	sd := flateStreamDict(t, d, []byte{0x00, 0x80, 0x80, 0x80, 0xFF, 0xFF})

	ctx := model.NewContext(nil)

	require.NoError(t, c.ConvertImage(conf, ctx, sd))

	cs := sd.Dict.NameEntry("ColorSpace")
	require.NotNil(t, cs)
	require.Equal(t, "Lab", *cs)

	bpc := sd.Dict.IntEntry("BitsPerComponent")
	require.NotNil(t, bpc)
	require.Equal(t, 8, *bpc)

	require.Len(t, sd.Content, 2*3)
}

func TestConvertColorsBufferRejectsDeviceSourceWithoutProfile(t *testing.T) {
	c, conf := testConverter(t)

	_, err := c.ConvertColorsBuffer(conf, BufferRequest{
		SourceColorSpace: "DeviceGray",
		Input:            []float64{0, 1},
		PixelCount:       2,
		SourceChannels:   1,
	})
	require.ErrorIs(t, err, ErrMissingProfile)
}

func TestUnpack4BitSamplesMatchesExpectedValues(t *testing.T) {
	// Two 4-bit samples packed into one byte: 0x0 and 0xF.
	data := []byte{0x0F}
	samples := unpackSamples(data, 4, 2, 1, 1)
	require.Equal(t, []int{0, 15}, samples)
}

func TestUnpackSamplesPadsEachRowToAByteBoundary(t *testing.T) {
	// width=3, channels=1, bpc=4: 3 nibbles/row = 12 bits, padded to 2
	// bytes/row with 4 bits of unused padding at the end of each row.
	// Row 0: samples 1,2,3 -> 0x12, 0x30 (low nibble of second byte is pad)
	// Row 1: samples 4,5,6 -> 0x45, 0x60
	data := []byte{0x12, 0x30, 0x45, 0x60}
	samples := unpackSamples(data, 4, 3, 2, 1)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6}, samples)
}

func TestUnpackSamplesHandlesNonByteAlignedRowWidth(t *testing.T) {
	// width=17, bpc=1, channels=1: 17 bits/row padded to 3 bytes (24 bits,
	// 7 bits of padding). A naive flat-bitstream unpack would read row 1
	// starting 7 bits early instead of at the next row's byte boundary.
	rowBytes := 3
	data := make([]byte, rowBytes*2)
	data[0] = 0xFF // row 0: pixels 0-7 = 1
	data[1] = 0xFF // row 0: pixels 8-15 = 1
	data[2] = 0x80 // row 0: pixel 16 = 1, remaining 7 bits padding
	data[3] = 0x00 // row 1: pixels 0-7 = 0
	data[4] = 0x00 // row 1: pixels 8-15 = 0
	data[5] = 0x00 // row 1: pixel 16 = 0, remaining 7 bits padding

	samples := unpackSamples(data, 1, 17, 2, 1)
	require.Len(t, samples, 34)
	for i := 0; i < 17; i++ {
		require.Equal(t, 1, samples[i], "row 0 pixel %d", i)
	}
	for i := 17; i < 34; i++ {
		require.Equal(t, 0, samples[i], "row 1 pixel %d", i-17)
	}
}

func TestNormalizeAndPackDeviceSamplesRoundTripGray(t *testing.T) {
	rcs := &resolvedColorSpace{name: "DeviceGray"}
	samples := []int{0, 255}
	norm := normalizeDeviceSamples(rcs, samples, 8)
	require.InDelta(t, 0, norm[0], 1e-9)
	require.InDelta(t, 1, norm[1], 1e-9)

	packed := packDeviceSamples(model.ColorConfig{DestinationColorSpace: "DeviceGray"}, norm, 2, 1)
	require.Equal(t, []byte{0x00, 0xFF}, packed)
}

func TestConvertIndexedImageOnlyTouchesPalette(t *testing.T) {
	c, conf := testConverter(t)

	d := types.Dict{
		"Type":             types.Name("XObject"),
		"Subtype":          types.Name("Image"),
		"Width":            types.Integer(2),
		"Height":           types.Integer(1),
		"BitsPerComponent": types.Integer(8),
		"ColorSpace": types.Array{
			types.Name("Indexed"),
			types.Name("Lab"),
			types.Integer(1),
			types.NewHexLiteral([]byte{0x00, 0x80, 0x80, 0xFF, 0x80, 0x80}),
		},
	}
	indexBytes := []byte{0x00, 0x01}
	sd := flateStreamDict(t, d, indexBytes)

	ctx := model.NewContext(nil)

	require.NoError(t, c.ConvertImage(conf, ctx, sd))

	require.Equal(t, indexBytes, sd.Content)

	csObj, ok := sd.Dict.Find("ColorSpace")
	require.True(t, ok)
	arr, ok := csObj.(types.Array)
	require.True(t, ok)
	require.Equal(t, types.Name("Indexed"), arr[0])
	require.Equal(t, types.Name("Lab"), arr[1])
}
