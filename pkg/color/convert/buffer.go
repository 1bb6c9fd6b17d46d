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
	"github.com/hhrutter/pdfcolor/pkg/color/cache"
	"github.com/hhrutter/pdfcolor/pkg/color/clut"
	"github.com/hhrutter/pdfcolor/pkg/color/engine"
	"github.com/hhrutter/pdfcolor/pkg/color/policy"
	"github.com/hhrutter/pdfcolor/pkg/model"
	"github.com/pkg/errors"
)

// BufferRequest describes one call into ConvertColorsBuffer: the source
// color space/profile and a flat buffer of pixelCount tuples, each
// srcChannels values long, normalized to each color space's native range
// (Gray/RGB 0..1, CMYK 0..1, Lab L 0..100 a/b -128..127).
//
// seehuhn.de/go/icc's native Transform.Apply works on normalized float64
// tuples with no byte-packing concept of its own; ConvertColorsBuffer
// therefore operates in that same normalized-float space, and pixel-format
// byte/endianness marshaling (spec.md §3's "Pixel Format") is handled at
// the Image Converter boundary (pkg/color/convert/image.go), which is
// where PDF image samples actually live as packed bytes.
type BufferRequest struct {
	SourceColorSpace string // a name ColorSpaceCode resolves: "DeviceGray"/"DeviceRGB"/"DeviceCMYK"/"Lab"/"CalRGB"/...
	SourceProfile    []byte // required unless SourceColorSpace normalizes to Lab
	Input            []float64
	PixelCount       int
	SourceChannels   int
}

// BufferResult is ConvertColorsBuffer's output.
type BufferResult struct {
	Output         []float64
	PixelCount     int
	InputChannels  int
	OutputChannels int
}

// pixelApplier is satisfied by both *engine.Transform and *clut.CompositeLUT
// so ConvertColorsBuffer can drive either through the same per-pixel loop.
type pixelApplier interface {
	Apply(input []float64) []float64
}

// ConvertColorsBuffer is the Base Converter's common conversion path
// (spec.md §4.6): validate, resolve profiles via the policy, obtain or
// build a transform, and run it over every pixel in the request.
func (c *Converter) ConvertColorsBuffer(conf model.ColorConfig, req BufferRequest) (*BufferResult, error) {
	srcCS := ColorSpaceCode(req.SourceColorSpace)
	dstCS := ColorSpaceCode(conf.DestinationColorSpace)

	if srcCS == 0 || dstCS == 0 {
		return nil, errors.Wrap(ErrPolicyRejected, "unresolved color space")
	}

	// DeviceRGB/DeviceGray images carry no embedded profile of their own;
	// fall back to the configured source default for that device space.
	srcProfileBytes := req.SourceProfile
	if len(srcProfileBytes) == 0 {
		switch srcCS {
		case policy.CSRGB:
			srcProfileBytes = conf.SourceRGBProfile
		case policy.CSGray:
			srcProfileBytes = conf.SourceGrayProfile
		}
	}
	if srcCS != policy.CSLab && len(srcProfileBytes) == 0 {
		return nil, ErrMissingProfile
	}

	intent := engine.RenderingIntent(conf.RenderingIntent)
	eval := policy.EvaluateConversion(policy.Request{
		SourceColorSpace:       srcCS,
		DestinationColorSpace:  dstCS,
		RequestedIntent:        intent,
		BlackPointCompensation: conf.BlackPointCompensation,
	})

	srcKey := c.sourceProfileKey(srcCS, srcProfileBytes)
	dstKey := profileKeyFor(conf.DestinationColorSpace, conf.DestinationProfile)

	var applier pixelApplier

	if eval.RequiresMultiprofileTransform {
		lutKey := "composite:" + srcKey + ">" + dstKey + ":" + itoa(int(eval.RenderingIntent))
		if lut, ok := c.composites[lutKey]; ok {
			applier = lut
		} else {
			built, err := c.buildComposite(srcCS, dstCS, srcKey, srcProfileBytes, conf, eval)
			if err != nil {
				return nil, errors.Wrap(ErrEngine, err.Error())
			}
			c.composites[lutKey] = built
			applier = built
		}
	} else {
		src, err := c.profiles.Profile(srcKey, srcProfileBytes)
		if err != nil {
			return nil, errors.Wrap(ErrEngine, err.Error())
		}
		dst, err := c.profiles.Profile(dstKey, conf.DestinationProfile)
		if err != nil {
			return nil, errors.Wrap(ErrEngine, err.Error())
		}
		tKey := cache.TransformKey(srcKey, dstKey, eval.RenderingIntent)
		t, err := c.profiles.Transform(tKey, src, dst, eval.RenderingIntent)
		if err != nil {
			return nil, errors.Wrap(ErrEngine, err.Error())
		}
		applier = t
	}

	outCh := policy.ChannelsForColorSpace(dstCS)
	out := make([]float64, req.PixelCount*outCh)

	buf := make([]float64, req.SourceChannels)
	for i := 0; i < req.PixelCount; i++ {
		copy(buf, req.Input[i*req.SourceChannels:(i+1)*req.SourceChannels])
		res := applier.Apply(buf)
		n := outCh
		if len(res) < n {
			n = len(res)
		}
		copy(out[i*outCh:i*outCh+n], res[:n])
	}

	return &BufferResult{
		Output:         out,
		PixelCount:     req.PixelCount,
		InputChannels:  req.SourceChannels,
		OutputChannels: outCh,
	}, nil
}

func (c *Converter) sourceProfileKey(srcCS int, profileBytes []byte) string {
	if srcCS == policy.CSLab {
		return "Lab"
	}
	return profileKeyFor("", profileBytes)
}

// buildComposite constructs the two-hop chain a K-only-GCR-from-non-RGB
// request needs (source -> sRGB -> destination), per spec.md §4.4.
func (c *Converter) buildComposite(srcCS, dstCS int, srcKey string, srcProfileBytes []byte, conf model.ColorConfig, eval policy.Evaluation) (*clut.CompositeLUT, error) {
	srcProfile, err := c.profiles.Profile(srcKey, srcProfileBytes)
	if err != nil {
		return nil, err
	}

	var mid *engine.Profile
	if len(conf.SourceRGBProfile) > 0 {
		mid, err = c.profiles.Profile(cache.ProfileKey(conf.SourceRGBProfile), conf.SourceRGBProfile)
	} else {
		mid, err = c.provider.CreateSRGBProfile()
	}
	if err != nil {
		return nil, err
	}

	dstKey := profileKeyFor(conf.DestinationColorSpace, conf.DestinationProfile)
	dstProfile, err := c.profiles.Profile(dstKey, conf.DestinationProfile)
	if err != nil {
		return nil, err
	}

	return clut.Build(c.provider, clut.BuildOptions{
		Profiles:          []*engine.Profile{srcProfile, mid, dstProfile},
		Intent:            eval.RenderingIntent,
		BlackPointScaling: eval.MultiprofileBlackPointScaling,
		InputColorSpace:   srcCS,
		OutputColorSpace:  dstCS,
	})
}
