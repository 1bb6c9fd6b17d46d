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

// Package policy decides pixel formats, rendering-intent overrides, and
// multi-profile requirements for a requested conversion, per spec.md §4.1.
// It holds no engine or I/O state — a policy decision is pure function of
// its inputs.
package policy

import "github.com/hhrutter/pdfcolor/pkg/color/engine"

// Pixel format bit layout, matching spec.md §6 exactly.
const (
	csShift        = 16
	channelsShift  = 3
	FlagFloat      = 1 << 22
	FlagEndian16   = 1 << 11
	FlagExtra      = 1 << 7
	FlagPlanar     = 1 << 12
	FlagSwapFirst  = 1 << 14
	FlagDoSwap     = 1 << 10
)

// Color-space codes used in the packed format (bits 16..23).
const (
	CSGray = 1
	CSRGB  = 2
	CSCMYK = 3
	CSLab  = 4
	CSXYZ  = 5
)

// Engine flags (distinct from pixel-format flags above).
const (
	FlagBPC                       = 0x2000
	FlagNoCache                   = 0x40
	FlagNoOptimize                = 0x100
	FlagMultiprofileBPCScaling    = 0x20000000
	FlagBPCClamping               = 0x80000000
)

// Format packs a color space, channel count, and bytes-per-sample into the
// published 32-bit pixel-format layout.
func Format(colorSpace, channels, bytesPerSample int, float, endian16 bool) int {
	f := (colorSpace << csShift) | (channels << channelsShift) | bytesPerSample
	if float {
		f |= FlagFloat
	}
	if endian16 {
		f |= FlagEndian16
	}
	return f
}

// ChannelsForColorSpace returns the channel count for a color-space code.
func ChannelsForColorSpace(cs int) int {
	switch cs {
	case CSGray:
		return 1
	case CSRGB, CSLab, CSXYZ:
		return 3
	case CSCMYK:
		return 4
	default:
		return 0
	}
}

// Evaluation is the outcome of EvaluateConversion: overrides the Base
// Converter applies on top of the caller's requested settings.
type Evaluation struct {
	RenderingIntent               engine.RenderingIntent
	RequiresMultiprofileTransform bool
	IntermediateProfiles          []string // built-in profile kinds, e.g. "srgb"
	MultiprofileBlackPointScaling bool
}

// Request describes one conversion's inputs to the policy.
type Request struct {
	SourceColorSpace      int
	DestinationColorSpace int
	RequestedIntent       engine.RenderingIntent
	BlackPointCompensation bool
}

// EvaluateConversion applies the deterministic policy rules from
// spec.md §4.1.
func EvaluateConversion(req Request) Evaluation {
	intent := req.RequestedIntent
	eval := Evaluation{RenderingIntent: intent}

	// Lab source forces relative-colorimetric when K-only-GCR was requested:
	// K-only-GCR has no meaning for a PCS-native source.
	if req.SourceColorSpace == CSLab && intent == engine.KOnlyGCR {
		eval.RenderingIntent = engine.RelativeColorimetric
		return eval
	}

	if intent != engine.KOnlyGCR {
		return eval
	}

	if req.DestinationColorSpace != CSCMYK {
		// K-only-GCR degrades to relative-colorimetric for non-CMYK destinations.
		eval.RenderingIntent = engine.RelativeColorimetric
		return eval
	}

	if req.SourceColorSpace != CSRGB {
		// K-only-GCR needs an RGB leg immediately before the final CMYK
		// stage; insert a synthesized sRGB intermediate.
		eval.RequiresMultiprofileTransform = true
		eval.IntermediateProfiles = []string{"srgb"}
		if req.BlackPointCompensation {
			eval.MultiprofileBlackPointScaling = true
		}
	}

	return eval
}

// BytesPerSample returns the byte width for a pixel-format's sample.
func BytesPerSample(format int) int {
	return format & 0x7
}

// CreateOutputBuffer returns a zeroed buffer sized for pixelCount pixels
// of channels samples each at the given format's bytes-per-sample.
func CreateOutputBuffer(format, pixelCount, channels int) []byte {
	return make([]byte, pixelCount*channels*BytesPerSample(format))
}
