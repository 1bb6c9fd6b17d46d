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

// Package engine wraps seehuhn.de/go/icc behind the narrow interface the
// rest of the color-conversion pipeline drives: open/close profiles,
// build device<->PCS transforms, and batch-convert pixel arrays. No
// component outside this package touches the icc package directly.
package engine

import (
	"math"

	"github.com/pkg/errors"
	"seehuhn.de/go/icc"
)

// RenderingIntent mirrors the ICC-defined intents plus the engine-custom
// K-only-GCR extension (20), matching spec.md's numbering exactly.
type RenderingIntent int

const (
	Perceptual           RenderingIntent = 0
	RelativeColorimetric RenderingIntent = 1
	Saturation           RenderingIntent = 2
	AbsoluteColorimetric RenderingIntent = 3
	KOnlyGCR             RenderingIntent = 20
)

func (ri RenderingIntent) toICC() icc.RenderingIntent {
	switch ri {
	case Perceptual:
		return icc.Perceptual
	case Saturation:
		return icc.Saturation
	case AbsoluteColorimetric:
		return icc.AbsoluteColorimetric
	default:
		// RelativeColorimetric and KOnlyGCR (which always degrades to
		// relative-colorimetric on the underlying engine, see policy.go)
		// both map to the ICC relative-colorimetric intent.
		return icc.RelativeColorimetric
	}
}

// ErrUnsupportedEngineVersion is returned by Provider constructors when
// a caller requires engine capabilities newer than this binding supports.
var ErrUnsupportedEngineVersion = errors.New("pdfcolor: unsupported engine version")

// EngineVersion is the version (YYYYMMDD) this binding of seehuhn.de/go/icc
// corresponds to for the purposes of the per-converter minimum-version
// check described in spec.md §4.2.
const EngineVersion = 20260115

// Profile is an opaque engine-side profile handle.
type Profile struct {
	icc  *icc.Profile
	kind string // "lab", "srgb", or "" for an embedded ICC profile
}

// Kind reports the profile's caching kind: "lab", "srgb", or "" (embedded).
func (p *Profile) Kind() string { return p.kind }

// Transform is an opaque engine-side forward (device->PCS) + inverse
// (PCS->device) transform pair bound to one profile and one intent.
type Transform struct {
	fwd    *icc.Transform // DeviceToPCS, nil for Lab "profiles"
	inv    *icc.Transform // PCSToDevice, nil for Lab "profiles"
	isLab  bool
	intent RenderingIntent
}

// Provider owns the engine lifecycle. It is safe for use by a single
// converter at a time; concurrent access (e.g. from worker goroutines)
// must use one Provider per goroutine, matching the per-worker profile
// cache described in spec.md §4.11.
type Provider struct {
	initialized bool
}

// NewProvider returns an engine provider. Initialize is idempotent and
// lazy; callers needing an explicit readiness check can call it directly.
func NewProvider() *Provider {
	return &Provider{}
}

// Initialize prepares the provider. It is a no-op beyond the first call.
func (p *Provider) Initialize() error {
	p.initialized = true
	return nil
}

// RequireVersion fails fast when the caller demands a newer engine version
// than this binding implements.
func (p *Provider) RequireVersion(minVersion int) error {
	if minVersion > EngineVersion {
		return errors.Wrapf(ErrUnsupportedEngineVersion, "required %d, have %d", minVersion, EngineVersion)
	}
	return nil
}

// OpenProfileFromMem decodes an embedded ICC profile's bytes.
func (p *Provider) OpenProfileFromMem(b []byte) (*Profile, error) {
	prof, err := icc.Decode(b)
	if err != nil {
		return nil, errors.Wrap(err, "pdfcolor: decoding ICC profile")
	}
	return &Profile{icc: prof}, nil
}

// CreateLabD50Profile returns the built-in D50 Lab pseudo-profile. Lab has
// no ICC profile bytes; PCS conversions for it are computed directly.
func (p *Provider) CreateLabD50Profile() (*Profile, error) {
	return &Profile{kind: "lab"}, nil
}

// CreateSRGBProfile is a placeholder for the built-in sRGB intermediate
// used by multi-profile chains. Since this binding has no embedded sRGB
// profile bytes, callers are expected to supply their own sRGB profile
// bytes via ColorConfig.SourceRGBProfile for multi-profile chains that
// need one; this constructor exists so the Provider interface matches
// spec.md §4.2 and fails loudly rather than silently degrading.
func (p *Provider) CreateSRGBProfile() (*Profile, error) {
	return nil, errors.New("pdfcolor: no built-in sRGB profile bytes embedded; supply SourceRGBProfile")
}

// CloseProfile releases a profile handle. seehuhn.de/go/icc profiles carry
// no OS resources beyond the decoded byte buffers, so this is a no-op
// kept for symmetry with the cache's open/close discipline.
func (p *Provider) CloseProfile(*Profile) {}

// CreateTransform builds a Transform between two profiles at the given
// intent. A Lab source or destination skips the corresponding icc.Transform
// half; PCS<->Lab conversion is handled directly by Transform.Apply.
func (p *Provider) CreateTransform(src, dst *Profile, intent RenderingIntent) (*Transform, error) {
	t := &Transform{intent: intent}

	if src.kind == "lab" && dst.kind == "lab" {
		t.isLab = true
		return t, nil
	}

	iccIntent := intent.toICC()

	if src.kind != "lab" {
		fwd, err := icc.NewTransform(src.icc, icc.DeviceToPCS, iccIntent)
		if err != nil {
			return nil, errors.Wrap(err, "pdfcolor: building forward transform")
		}
		t.fwd = fwd
	}
	if dst.kind != "lab" {
		inv, err := icc.NewTransform(dst.icc, icc.PCSToDevice, iccIntent)
		if err != nil {
			return nil, errors.Wrap(err, "pdfcolor: building inverse transform")
		}
		t.inv = inv
	}

	return t, nil
}

// DeleteTransform releases a transform handle. No OS resources are held.
func (p *Provider) DeleteTransform(*Transform) {}

// Apply converts one color tuple from src's device space to dst's device
// space via the shared PCS (XYZ), the single-pixel primitive every batch
// path in this module loops over (seehuhn.de/go/icc has no native batch
// entry point — see SPEC_FULL.md §4.2 and DESIGN.md).
func (t *Transform) Apply(input []float64) []float64 {
	if t.isLab {
		// Lab -> Lab identity (both profiles are the Lab pseudo-profile).
		out := make([]float64, len(input))
		copy(out, input)
		return out
	}

	var x, y, z float64
	if t.fwd == nil {
		// source is Lab: input is already (L,a,b); convert directly to XYZ.
		x, y, z = labToXYZD50(input)
	} else {
		x, y, z = t.fwd.ToXYZ(normalizeDeviceInput(input))
	}

	var out []float64
	if t.inv == nil {
		// destination is Lab: convert XYZ directly to Lab.
		out = xyzToLabD50(x, y, z)
	} else {
		out = t.inv.FromXYZ(x, y, z)
	}

	if t.intent == KOnlyGCR && t.inv != nil && len(out) == 4 {
		out = applyKOnlyGCR(input, out)
	}

	return out
}

// grayNeutralTolerance bounds how far apart a device tuple's channels may
// be and still count as a neutral gray for K-only-GCR purposes.
const grayNeutralTolerance = 1.0 / 255

// isNeutralGray reports whether a device-space input tuple (Gray's single
// channel, or RGB's three) represents an achromatic gray.
func isNeutralGray(input []float64) bool {
	if len(input) == 0 {
		return false
	}
	first := input[0]
	for _, v := range input[1:] {
		if math.Abs(v-first) > grayNeutralTolerance {
			return false
		}
	}
	return true
}

// applyKOnlyGCR enforces the K-only-GCR rendering intent's invariant: a
// neutral-gray device source renders as pure black ink, C=M=Y=0, with K
// carrying all of the tone, rather than whatever C/M/Y/K mix the profile's
// ordinary colorimetric rendering would otherwise produce.
func applyKOnlyGCR(input, cmyk []float64) []float64 {
	if !isNeutralGray(input) {
		return cmyk
	}
	k := 1 - normalizeDeviceInput(input[:1])[0]
	return []float64{0, 0, 0, k}
}

// TransformArray converts pixelCount tuples of inChannels values each from
// in into out (outChannels values each), looping Apply per pixel.
func TransformArray(t *Transform, in []float64, inChannels int, out []float64, outChannels int, pixelCount int) {
	buf := make([]float64, inChannels)
	for i := 0; i < pixelCount; i++ {
		copy(buf, in[i*inChannels:(i+1)*inChannels])
		res := t.Apply(buf)
		n := outChannels
		if len(res) < n {
			n = len(res)
		}
		copy(out[i*outChannels:i*outChannels+n], res[:n])
	}
}

// normalizeDeviceInput clamps device-space inputs to [0,1], the range
// Transform.ToXYZ expects.
func normalizeDeviceInput(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = math.Max(0, math.Min(1, v))
	}
	return out
}
