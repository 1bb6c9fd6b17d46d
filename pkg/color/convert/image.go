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
	"bytes"
	"compress/zlib"

	"github.com/hhrutter/pdfcolor/pkg/model"
	"github.com/hhrutter/pdfcolor/pkg/types"
	"github.com/pkg/errors"
)

// resolvedColorSpace is a PDF color-space definition with its embedded
// profile/palette bytes already dereferenced, per spec.md §3's "PDF
// Color-Space Definition".
type resolvedColorSpace struct {
	name    string // "DeviceGray"/"DeviceRGB"/"DeviceCMYK"/"Lab"/"Indexed", or an unhandled family name such as "Separation"
	profile []byte // embedded ICC profile bytes, for ICCBased

	indexed   bool
	baseSpace *resolvedColorSpace
	hival     int
	lookup    []byte // hival+1 entries of baseSpace's channel count
}

func deviceSpaceName(n string) string {
	switch n {
	case "DeviceGray", "CalGray", "G":
		return "DeviceGray"
	case "DeviceRGB", "CalRGB", "RGB":
		return "DeviceRGB"
	case "DeviceCMYK", "CMYK":
		return "DeviceCMYK"
	case "Lab":
		return "Lab"
	default:
		return n
	}
}

// resolveColorSpace dereferences a PDF color-space object (a Name or an
// Array headed by ICCBased/Indexed/CalRGB/CalGray/Lab) into a
// resolvedColorSpace, per validate/colorspace.go's array-shape rules.
func resolveColorSpace(ctx *model.Context, obj types.Object) (*resolvedColorSpace, error) {
	obj, err := ctx.Dereference(obj)
	if err != nil {
		return nil, err
	}

	if name, ok := obj.(types.Name); ok {
		return &resolvedColorSpace{name: deviceSpaceName(name.Value())}, nil
	}

	arr, ok := obj.(types.Array)
	if !ok || len(arr) == 0 {
		return nil, errors.Wrap(ErrBadInput, "unsupported color space object")
	}

	family, ok := arr[0].(types.Name)
	if !ok {
		return nil, errors.Wrap(ErrBadInput, "color space array missing family name")
	}

	switch family.Value() {
	case "ICCBased":
		if len(arr) < 2 {
			return nil, errors.Wrap(ErrBadInput, "ICCBased array too short")
		}
		sd, err := ctx.DereferenceStreamDict(arr[1])
		if err != nil {
			return nil, err
		}
		if err := sd.Decode(); err != nil {
			return nil, err
		}
		// ICCBased's device-equivalent name is derived from its required N
		// (component count) entry: the engine and policy only reason about
		// the three device spaces plus Lab, and an embedded ICC profile's
		// actual colorimetry is carried separately in profile.
		name := "DeviceRGB"
		switch intEntry(sd.Dict, "N") {
		case 1:
			name = "DeviceGray"
		case 4:
			name = "DeviceCMYK"
		}
		return &resolvedColorSpace{name: name, profile: sd.Content}, nil

	case "CalRGB":
		return &resolvedColorSpace{name: "DeviceRGB"}, nil

	case "CalGray":
		return &resolvedColorSpace{name: "DeviceGray"}, nil

	case "Lab":
		return &resolvedColorSpace{name: "Lab"}, nil

	case "Indexed":
		if len(arr) < 4 {
			return nil, errors.Wrap(ErrBadInput, "Indexed array too short")
		}
		base, err := resolveColorSpace(ctx, arr[1])
		if err != nil {
			return nil, err
		}
		hivalObj, err := ctx.Dereference(arr[2])
		if err != nil {
			return nil, err
		}
		hival, ok := hivalObj.(types.Integer)
		if !ok {
			return nil, errors.Wrap(ErrBadInput, "Indexed hival not an integer")
		}

		lookup, err := indexedLookupBytes(ctx, arr[3])
		if err != nil {
			return nil, err
		}

		return &resolvedColorSpace{
			name:      "Indexed",
			indexed:   true,
			baseSpace: base,
			hival:     hival.Value(),
			lookup:    lookup,
		}, nil

	default:
		return &resolvedColorSpace{name: family.Value()}, nil
	}
}

func indexedLookupBytes(ctx *model.Context, obj types.Object) ([]byte, error) {
	obj, err := ctx.Dereference(obj)
	if err != nil {
		return nil, err
	}
	switch o := obj.(type) {
	case types.StringLiteral:
		return []byte(o.Value()), nil
	case types.HexLiteral:
		return o.Bytes()
	case types.StreamDict:
		if err := o.Decode(); err != nil {
			return nil, err
		}
		return o.Content, nil
	default:
		return nil, errors.Wrap(ErrBadInput, "Indexed lookup table has unsupported type")
	}
}

// ResolvedColorSpaceName dereferences a PDF color-space object and returns
// its resolved device-equivalent name (DeviceGray/DeviceRGB/DeviceCMYK/Lab/
// Indexed/...), the same resolution ConvertImage itself uses internally.
// It lets a caller decide whether an image needs conversion at all (the
// Page Coordinator's CMYK-exclusion rule, spec.md §4.9 step 1) without
// running a full buffer conversion.
func ResolvedColorSpaceName(ctx *model.Context, obj types.Object) (string, error) {
	rcs, err := resolveColorSpace(ctx, obj)
	if err != nil {
		return "", err
	}
	return rcs.name, nil
}

func channelsFor(rcs *resolvedColorSpace) int {
	switch rcs.name {
	case "DeviceGray":
		return 1
	case "DeviceRGB":
		return 3
	case "DeviceCMYK":
		return 4
	case "Lab":
		return 3
	default:
		return 0
	}
}

// ConvertImage rewrites sd in place so its samples and ColorSpace entry
// reflect conf's destination color space, per spec.md §4.7 (Image
// Converter, C7). 1/2/4-bit components are normalized to 8 bits first;
// Indexed images convert only their palette, leaving pixel indices
// untouched.
func (c *Converter) ConvertImage(conf model.ColorConfig, ctx *model.Context, sd *types.StreamDict) error {
	if !conf.ConvertImages {
		return nil
	}

	w := intEntry(sd.Dict, "Width")
	h := intEntry(sd.Dict, "Height")
	bpc := intEntry(sd.Dict, "BitsPerComponent")
	if w <= 0 || h <= 0 || bpc <= 0 {
		return errors.Wrap(ErrBadInput, "image missing Width/Height/BitsPerComponent")
	}

	csObj, found := sd.Dict.Find("ColorSpace")
	if !found {
		return errors.Wrap(ErrBadInput, "image missing ColorSpace")
	}
	rcs, err := resolveColorSpace(ctx, csObj)
	if err != nil {
		return err
	}

	if err := sd.Decode(); err != nil {
		return err
	}

	if rcs.indexed {
		return c.convertIndexedImage(conf, sd, rcs)
	}

	srcChannels := channelsFor(rcs)
	if srcChannels == 0 {
		return errors.Wrap(ErrBadInput, "unsupported source color space for image conversion")
	}

	pixelCount := w * h
	samples := unpackSamples(sd.Content, bpc, w, h, srcChannels)
	input := normalizeDeviceSamples(rcs, samples, bpc)

	res, err := c.ConvertColorsBuffer(conf, BufferRequest{
		SourceColorSpace: rcs.name,
		SourceProfile:    rcs.profile,
		Input:            input,
		PixelCount:       pixelCount,
		SourceChannels:   srcChannels,
	})
	if err != nil {
		return err
	}

	return c.rewriteImageDict(sd, conf, res, pixelCount)
}

// convertIndexedImage converts only rcs.lookup's palette entries, leaving
// sd.Content's per-pixel index bytes untouched, per spec.md §4.7's
// Indexed-image rule.
func (c *Converter) convertIndexedImage(conf model.ColorConfig, sd *types.StreamDict, rcs *resolvedColorSpace) error {
	base := rcs.baseSpace
	srcChannels := channelsFor(base)
	if srcChannels == 0 {
		return errors.Wrap(ErrBadInput, "unsupported Indexed base color space")
	}

	entries := rcs.hival + 1
	paletteSamples := unpackBytePalette(rcs.lookup, srcChannels, entries)
	input := normalizeDeviceSamples(base, paletteSamples, 8)

	res, err := c.ConvertColorsBuffer(conf, BufferRequest{
		SourceColorSpace: base.name,
		SourceProfile:    base.profile,
		Input:            input,
		PixelCount:       entries,
		SourceChannels:   srcChannels,
	})
	if err != nil {
		return err
	}

	newLookup := packDeviceSamples(conf, res.Output, entries, res.OutputChannels)

	baseName := conf.DestinationColorSpace
	sd.Dict.Update("ColorSpace", types.Array{
		types.Name("Indexed"),
		types.Name(baseName),
		types.Integer(rcs.hival),
		types.NewHexLiteral(newLookup),
	})

	return nil
}

// rewriteImageDict packs res.Output back into 8-bit samples, recompresses
// via FlateDecode, and updates sd's ColorSpace/BitsPerComponent/Filter/
// DecodeParms/Length entries, per spec.md §4.7 step 6.
func (c *Converter) rewriteImageDict(sd *types.StreamDict, conf model.ColorConfig, res *BufferResult, pixelCount int) error {
	packed := packDeviceSamples(conf, res.Output, pixelCount, res.OutputChannels)

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(packed); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	sd.Content = packed
	sd.Raw = buf.Bytes()
	sd.FilterPipeline = []types.PDFFilter{{Name: "FlateDecode"}}
	sd.Dict.Delete("DecodeParms")
	sd.Dict.Update("ColorSpace", types.Name(conf.DestinationColorSpace))
	sd.Dict.Update("BitsPerComponent", types.Integer(8))
	sd.Dict.Update("Filter", types.Name("FlateDecode"))
	sd.Dict.Update("Length", types.Integer(len(sd.Raw)))

	return nil
}

func intEntry(d types.Dict, key string) int {
	if p := d.IntEntry(key); p != nil {
		return *p
	}
	return 0
}

// unpackSamples expands a packed bpc-bit sample stream into width*height*
// channels individual sample values in [0, 2^bpc-1], per spec.md §3's Pixel
// Format. Each PDF image row is padded to a byte boundary independent of
// the row's total bit width, so for bpc < 8 every row is unpacked starting
// at its own byte-aligned offset instead of treating the whole image as
// one flat bitstream.
func unpackSamples(data []byte, bpc, width, height, channels int) []int {
	count := width * height * channels
	out := make([]int, count)

	if bpc == 8 {
		for i := 0; i < count && i < len(data); i++ {
			out[i] = int(data[i])
		}
		return out
	}
	if bpc == 16 {
		for i := 0; i < count; i++ {
			off := i * 2
			if off+1 >= len(data) {
				break
			}
			out[i] = int(data[off])<<8 | int(data[off+1])
		}
		return out
	}

	samplesPerRow := width * channels
	rowBytes := (samplesPerRow*bpc + 7) / 8
	mask := (1 << uint(bpc)) - 1

	for row := 0; row < height; row++ {
		rowStart := row * rowBytes
		bitPos := 0
		for col := 0; col < samplesPerRow; col++ {
			byteIdx := rowStart + bitPos/8
			bitOff := bitPos % 8
			if byteIdx >= len(data) {
				break
			}
			shift := 8 - bpc - bitOff
			v := (int(data[byteIdx]) >> uint(shift)) & mask
			out[row*samplesPerRow+col] = v
			bitPos += bpc
		}
	}
	return out
}

// normalizeDeviceSamples maps unpacked integer samples into each color
// space's native float range.
func normalizeDeviceSamples(rcs *resolvedColorSpace, samples []int, bpc int) []float64 {
	max := float64((1 << uint(bpc)) - 1)
	out := make([]float64, len(samples))
	isLab := rcs.name == "Lab"
	ch := channelsFor(rcs)

	for i, s := range samples {
		v := float64(s) / max
		if isLab && ch > 0 {
			switch i % ch {
			case 0:
				v = v * 100
			default:
				v = -128 + v*255
			}
		}
		out[i] = v
	}
	return out
}

// packDeviceSamples maps normalized float samples back into 8-bit device
// bytes for the destination color space. Output is always one full byte
// per sample (rewriteImageDict always sets BitsPerComponent to 8), so
// every row is already byte-aligned and needs no row-boundary padding the
// way sub-8-bit unpackSamples input does.
func packDeviceSamples(conf model.ColorConfig, values []float64, pixelCount, channels int) []byte {
	isLab := conf.DestinationColorSpace == "Lab"
	out := make([]byte, pixelCount*channels)

	for i, v := range values {
		var n float64
		if isLab {
			switch i % channels {
			case 0:
				n = v / 100
			default:
				n = (v + 128) / 255
			}
		} else {
			n = v
		}
		if n < 0 {
			n = 0
		}
		if n > 1 {
			n = 1
		}
		out[i] = byte(n*255 + 0.5)
	}
	return out
}

// unpackBytePalette reads an Indexed color space's raw lookup table (always
// 8 bits per component, per the PDF spec) into per-entry integer samples.
func unpackBytePalette(lookup []byte, channels, entries int) []int {
	out := make([]int, entries*channels)
	for i := range out {
		if i < len(lookup) {
			out[i] = int(lookup[i])
		}
	}
	return out
}
