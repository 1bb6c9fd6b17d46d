/*
Copyright 2018 The pdfcpu Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package convert

import (
	"testing"

	"github.com/hhrutter/pdfcolor/pkg/model"
	"github.com/hhrutter/pdfcolor/pkg/types"
	"github.com/stretchr/testify/require"
)

// TestConvertContentStreamLabIdentityRewritesScn exercises the CS/cs state
// tracking plus the scn operand rewrite, through the Lab identity
// transform so no embedded ICC profile bytes are needed.
func TestConvertContentStreamLabIdentityRewritesScn(t *testing.T) {
	c, conf := testConverter(t)
	ctx := model.NewContext(nil)
	res := types.Dict{"CS0": types.Name("Lab")}

	in := []byte("/CS0 cs\n50 10 -20 scn\n")
	out, err := c.ConvertContentStream(conf, ctx, res, in, "")
	require.NoError(t, err)
	require.Equal(t, "/CS0 cs\n50 10 -20 scn\n", string(out))
}

// TestConvertContentStreamDedupsRepeatedColor confirms two identical scn
// operands convert through a single cache entry: Size() grows by one
// color, not two, even though the operator appears twice.
func TestConvertContentStreamDedupsRepeatedColor(t *testing.T) {
	c, conf := testConverter(t)
	ctx := model.NewContext(nil)
	res := types.Dict{"CS0": types.Name("Lab")}

	in := []byte("/CS0 cs\n50 10 -20 scn\n50 10 -20 scn\n")
	out, err := c.ConvertContentStream(conf, ctx, res, in, "")
	require.NoError(t, err)
	require.Equal(t, "/CS0 cs\n50 10 -20 scn\n50 10 -20 scn\n", string(out))
	require.Equal(t, 1, c.colors.Size())
}

// TestConvertContentStreamLeavesSeparationOperandAlone confirms a color
// space this converter doesn't model (Separation) is left untouched
// rather than misconverted or rejected.
func TestConvertContentStreamLeavesSeparationOperandAlone(t *testing.T) {
	c, conf := testConverter(t)
	ctx := model.NewContext(nil)
	res := types.Dict{
		"CS0": types.Array{
			types.Name("Separation"),
			types.Name("Spot"),
			types.Name("DeviceCMYK"),
		},
	}

	in := []byte("/CS0 cs\n0.5 scn\n")
	out, err := c.ConvertContentStream(conf, ctx, res, in, "")
	require.NoError(t, err)
	require.Equal(t, in, out)
}

// TestConvertContentStreamSkipsWhenDisabled confirms ConvertContentStreams
// being false returns content unmodified without touching the cache.
func TestConvertContentStreamSkipsWhenDisabled(t *testing.T) {
	conf := model.ColorConfig{DestinationColorSpace: "Lab", ConvertContentStreams: false}
	c, err := NewConverter(conf)
	require.NoError(t, err)
	ctx := model.NewContext(nil)

	in := []byte("/CS0 cs\n50 10 -20 scn\n")
	out, err := c.ConvertContentStream(conf, ctx, types.Dict{"CS0": types.Name("Lab")}, in, "")
	require.NoError(t, err)
	require.Equal(t, in, out)
}

// TestConvertContentStreamLeavesBareDeviceGrayRGBUnchanged confirms g/G/rg/RG
// operators pass through byte-for-byte: DeviceGray/DeviceRGB carry no
// embedded source profile, so these are left unchanged rather than routed
// through a (possibly absent) configured default profile.
func TestConvertContentStreamLeavesBareDeviceGrayRGBUnchanged(t *testing.T) {
	c, conf := testConverter(t)
	ctx := model.NewContext(nil)

	in := []byte("1 1 1 rg 0 0 0 rg 0.5 0.5 0.5 rg\n0.5 g\n1 1 1 RG\n")
	out, err := c.ConvertContentStream(conf, ctx, nil, in, "")
	require.NoError(t, err)
	require.Equal(t, in, out)
}

// TestConvertContentStreamPrefixesLabResourceSelection confirms that when
// a page-level Lab resource name is supplied, every rewritten operator is
// preceded by a CS/cs selection of that resource, per spec.md §4.8's Lab
// operator-mapping rule.
func TestConvertContentStreamPrefixesLabResourceSelection(t *testing.T) {
	c, conf := testConverter(t)
	ctx := model.NewContext(nil)
	res := types.Dict{"CS0": types.Name("Lab")}

	in := []byte("/CS0 CS\n50 10 -20 SCN\n")
	out, err := c.ConvertContentStream(conf, ctx, res, in, "LabPDFColor")
	require.NoError(t, err)
	require.Equal(t, "/CS0 CS\n/LabPDFColor CS\n50 10 -20 SCN\n", string(out))
}

func TestBareOperatorForMapsDeviceSpacesAndFallsBackOtherwise(t *testing.T) {
	require.Equal(t, "g", bareOperatorFor("DeviceGray", false))
	require.Equal(t, "G", bareOperatorFor("DeviceGray", true))
	require.Equal(t, "rg", bareOperatorFor("DeviceRGB", false))
	require.Equal(t, "RG", bareOperatorFor("DeviceRGB", true))
	require.Equal(t, "k", bareOperatorFor("DeviceCMYK", false))
	require.Equal(t, "K", bareOperatorFor("DeviceCMYK", true))
	require.Equal(t, "sc", bareOperatorFor("Lab", false))
	require.Equal(t, "SC", bareOperatorFor("Lab", true))
}

func TestFormatNumberStripsTrailingZerosAndCollapsesNearZero(t *testing.T) {
	require.Equal(t, "0.5", formatNumber(0.5))
	require.Equal(t, "1", formatNumber(1.0))
	require.Equal(t, "0", formatNumber(0.00001))
	require.Equal(t, "0", formatNumber(-0.00001))
	require.Equal(t, "-0.333333", formatNumber(-1.0/3.0))
}

func TestTokenizeContentStreamSkipsCommentsAndStrings(t *testing.T) {
	toks := tokenizeContentStream([]byte("% a comment\n(a string) /Name1 12.5 Tj\n"))

	var kinds []tokenKind
	var texts []string
	for _, tok := range toks {
		kinds = append(kinds, tok.kind)
		if tok.text != "" {
			texts = append(texts, tok.text)
		}
	}

	require.Equal(t, []tokenKind{tokString, tokName, tokNumber, tokOperator}, kinds)
	require.Equal(t, []string{"Name1", "12.5", "Tj"}, texts)
}
