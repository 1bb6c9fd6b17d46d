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

package page

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/hhrutter/pdfcolor/pkg/color/convert"
	"github.com/hhrutter/pdfcolor/pkg/color/worker"
	"github.com/hhrutter/pdfcolor/pkg/model"
	"github.com/hhrutter/pdfcolor/pkg/types"
	"github.com/stretchr/testify/require"
)

func testConfig() model.ColorConfig {
	return model.ColorConfig{
		DestinationColorSpace: "Lab",
		ConvertImages:         true,
		ConvertContentStreams: true,
	}
}

func flateStreamDict(t *testing.T, d types.Dict, content []byte) types.StreamDict {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	sd := types.NewStreamDict(d, 0, nil, nil, []types.PDFFilter{{Name: "FlateDecode"}})
	sd.Raw = buf.Bytes()
	return sd
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

// buildPage wires an image XObject and a content stream into a fresh page,
// returning the page and the image/content-stream object references for
// post-conversion inspection.
func buildPage(t *testing.T, ctx *model.Context, imgColorSpace types.Dict, csBody []byte) (*model.Page, types.IndirectRef, types.IndirectRef) {
	t.Helper()

	imgSD := flateStreamDict(t, imgColorSpace, []byte{0x00, 0x80, 0x80, 0x80, 0xFF, 0xFF})
	imgRef := ctx.IndRefForObject(imgSD)

	contentSD := flateStreamDict(t, types.NewDict(), csBody)
	contentRef := ctx.IndRefForObject(contentSD)

	xobjects := types.Dict{"Im0": *imgRef}
	xobjectsRef := ctx.IndRefForObject(xobjects)

	resources := types.NewDict()
	resources.Update("XObject", *xobjectsRef)
	resources.Update("ColorSpace", types.Dict{"CS0": types.Name("Lab")})
	resourcesRef := ctx.IndRefForObject(resources)

	pageDict := types.NewDict()
	pageDict.InsertName("Type", "Page")
	pageDict.Update("Resources", *resourcesRef)
	pageDict.Update("Contents", *contentRef)

	p, err := model.NewPage(ctx, pageDict)
	require.NoError(t, err)

	return p, *imgRef, *contentRef
}

func TestConvertPageConvertsImageAndContentStreamOnThread(t *testing.T) {
	conf := testConfig()
	c, err := convert.NewConverter(conf)
	require.NoError(t, err)
	ctx := model.NewContext(nil)

	p, imgRef, csRef := buildPage(t, ctx, newLabImageDict(2, 1, 8), []byte("/CS0 cs\n50 10 -20 scn\n"))

	coord := NewCoordinator(c, nil, nil)
	result := coord.ConvertPage(conf, ctx, p)

	require.NoError(t, result.Err)
	require.Equal(t, 1, result.ImagesConverted)
	require.Equal(t, 1, result.StreamsConverted)

	entry, ok := ctx.FindTableEntryForIndRef(&imgRef)
	require.True(t, ok)
	sd := entry.Object.(types.StreamDict)
	cs := sd.Dict.NameEntry("ColorSpace")
	require.NotNil(t, cs)
	require.Equal(t, "Lab", *cs)

	csEntry, ok := ctx.FindTableEntryForIndRef(&csRef)
	require.True(t, ok)
	rewritten := csEntry.Object.(types.StreamDict)
	require.Contains(t, string(rewritten.Content), "LabPDFColor")
}

func TestConvertPageExcludesDeviceCMYKImages(t *testing.T) {
	conf := testConfig()
	c, err := convert.NewConverter(conf)
	require.NoError(t, err)
	ctx := model.NewContext(nil)

	cmykDict := types.Dict{
		"Type":             types.Name("XObject"),
		"Subtype":          types.Name("Image"),
		"Width":            types.Integer(1),
		"Height":           types.Integer(1),
		"BitsPerComponent": types.Integer(8),
		"ColorSpace":       types.Name("DeviceCMYK"),
	}
	p, _, _ := buildPage(t, ctx, cmykDict, []byte(""))

	coord := NewCoordinator(c, nil, nil)
	result := coord.ConvertPage(conf, ctx, p)

	require.Equal(t, 0, result.ImagesConverted)
}

func TestConvertPageDispatchesImagesToWorkerPool(t *testing.T) {
	conf := testConfig()
	c, err := convert.NewConverter(conf)
	require.NoError(t, err)
	ctx := model.NewContext(nil)

	p, imgRef, _ := buildPage(t, ctx, newLabImageDict(2, 1, 8), []byte(""))

	pool := worker.NewPool(c, 2)
	defer pool.Close()

	coord := NewCoordinator(c, pool, nil)
	result := coord.ConvertPage(conf, ctx, p)

	require.NoError(t, result.Err)
	require.Equal(t, 1, result.ImagesConverted)

	entry, ok := ctx.FindTableEntryForIndRef(&imgRef)
	require.True(t, ok)
	sd := entry.Object.(types.StreamDict)
	cs := sd.Dict.NameEntry("ColorSpace")
	require.NotNil(t, cs)
	require.Equal(t, "Lab", *cs)
}
