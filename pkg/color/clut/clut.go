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

// Package clut builds the Composite-LUT (spec.md §4.4): chaining two-profile
// transforms through a sampled grid so a multi-profile conversion (e.g.
// Gray -> sRGB -> CMYK for K-only-GCR) can be driven through a single
// transform handle.
package clut

import (
	"github.com/hhrutter/pdfcolor/pkg/color/engine"
	"github.com/hhrutter/pdfcolor/pkg/color/policy"
	"github.com/pkg/errors"
)

// neutralLab is the native-range Lab a/b value representing zero chroma,
// per spec.md §3's achromatic-coercion rule. lut.grid stores Lab in its
// native range (L in [0,100], a/b in [-128,127]), never 16-bit-packed, so
// neutral a/b is plain 0, not a 16-bit encoding of 0.
const neutralLab = 0

// gridResolution returns the engine-recommended sampling resolution for a
// chain whose first profile has the given input color space, per spec.md
// §4.4 step 2: higher for Lab (perceptual uniformity), lower for Gray.
func gridResolution(inputColorSpace int) int {
	switch inputColorSpace {
	case policy.CSLab:
		return 33
	case policy.CSGray:
		return 9
	default:
		return 17
	}
}

// CompositeLUT is a sampled multi-profile transform, wrapped so it can be
// driven through the same Apply(input []float64) []float64 contract as a
// plain engine.Transform.
type CompositeLUT struct {
	inputChannels  int
	outputChannels int
	resolution     int
	grid           []float64 // flattened, resolution^inputChannels * outputChannels
	isLabOutput    bool
	inputColorSpace int
	intent          engine.RenderingIntent

	// blackpoint scaling, set only when BlackPointScaling was requested.
	bpcScale  float64
	bpcOffset [3]float64
	bpcActive bool
}

// BuildOptions configures one composite-LUT build.
type BuildOptions struct {
	Profiles              []*engine.Profile
	ProfileKeys           []string // caching fingerprints, parallel to Profiles
	Intent                engine.RenderingIntent
	BlackPointScaling     bool
	InputColorSpace       int // policy.CSxxx for Profiles[0]
	OutputColorSpace      int // policy.CSxxx for the last profile
}

// Build samples a chain of two-profile transforms into a single CompositeLUT,
// per spec.md §4.4.
func Build(provider *engine.Provider, opts BuildOptions) (*CompositeLUT, error) {
	if len(opts.Profiles) < 2 {
		return nil, errors.New("pdfcolor: composite LUT requires at least two profiles")
	}

	stages := make([]*engine.Transform, 0, len(opts.Profiles)-1)
	for i := 0; i < len(opts.Profiles)-1; i++ {
		t, err := provider.CreateTransform(opts.Profiles[i], opts.Profiles[i+1], opts.Intent)
		if err != nil {
			return nil, errors.Wrapf(err, "pdfcolor: building composite LUT stage %d", i)
		}
		stages = append(stages, t)
	}

	inCh := policy.ChannelsForColorSpace(opts.InputColorSpace)
	outCh := policy.ChannelsForColorSpace(opts.OutputColorSpace)
	if inCh == 0 || outCh == 0 {
		return nil, errors.New("pdfcolor: composite LUT: unknown channel count for color space")
	}

	res := gridResolution(opts.InputColorSpace)

	lut := &CompositeLUT{
		inputChannels:  inCh,
		outputChannels: outCh,
		resolution:     res,
		isLabOutput:    opts.OutputColorSpace == policy.CSLab,
		inputColorSpace: opts.InputColorSpace,
		intent:          opts.Intent,
	}

	lut.sample(stages, opts.InputColorSpace)

	if lut.isLabOutput {
		lut.coerceAchromaticLab()
	}

	if opts.BlackPointScaling {
		if err := lut.computeBlackPointScaling(stages, opts.InputColorSpace); err != nil {
			return nil, err
		}
	}

	return lut, nil
}

// sample walks a uniform grid of lut.resolution points per input channel
// and chains every stage's Apply to fill lut.grid.
func (lut *CompositeLUT) sample(stages []*engine.Transform, inputColorSpace int) {
	n := lut.inputChannels
	total := pow(lut.resolution, n)
	lut.grid = make([]float64, total*lut.outputChannels)

	idx := make([]int, n)
	for flat := 0; flat < total; flat++ {
		unflatten(flat, lut.resolution, idx)

		in := make([]float64, n)
		for i, gi := range idx {
			in[i] = gridValue(inputColorSpace, i, gi, lut.resolution)
		}

		out := in
		for _, st := range stages {
			out = st.Apply(out)
		}

		if lut.intent == engine.KOnlyGCR && lut.outputChannels == 4 && isNeutralGrayInput(inputColorSpace, in) {
			out = []float64{0, 0, 0, 1 - in[0]}
		}

		base := flat * lut.outputChannels
		m := lut.outputChannels
		if len(out) < m {
			m = len(out)
		}
		copy(lut.grid[base:base+m], out[:m])
	}
}

// isNeutralGrayInput reports whether a grid sample point on a Gray or RGB
// input axis represents an achromatic gray: trivially true for Gray's
// single channel, and true for RGB only when all three sampled channel
// values coincide exactly (grid points are exact, not measured, samples).
func isNeutralGrayInput(colorSpace int, in []float64) bool {
	switch colorSpace {
	case policy.CSGray:
		return true
	case policy.CSRGB:
		for _, v := range in[1:] {
			if v != in[0] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// gridValue maps a grid index along axis i to an input value in that
// axis's native range (e.g. Lab L in [0,100], a/b in [-128,127]).
func gridValue(colorSpace, axis, gridIndex, resolution int) float64 {
	t := float64(gridIndex) / float64(resolution-1)
	if colorSpace == policy.CSLab {
		if axis == 0 {
			return t * 100
		}
		return -128 + t*255
	}
	return t // Gray/RGB/CMYK device ranges are normalized to [0,1].
}

func pow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}

func unflatten(flat, resolution int, idx []int) {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i] = flat % resolution
		flat /= resolution
	}
}

// coerceAchromaticLab forces a=b=neutral wherever L is exactly 0 or its
// maximum, per spec.md §3/§4.4 step 5.
func (lut *CompositeLUT) coerceAchromaticLab() {
	if lut.outputChannels < 3 {
		return
	}
	for i := 0; i < len(lut.grid); i += lut.outputChannels {
		l := lut.grid[i]
		if l == 0 || l == 100 {
			lut.grid[i+1] = neutralLab
			lut.grid[i+2] = neutralLab
		}
	}
}

// computeBlackPointScaling runs the pure-black pretest described in
// spec.md §4.4 step 6: if pure black round-trips within tolerance, scaling
// is skipped entirely.
func (lut *CompositeLUT) computeBlackPointScaling(stages []*engine.Transform, inputColorSpace int) error {
	black := make([]float64, lut.inputChannels)
	if inputColorSpace == policy.CSLab {
		black[0] = 0
	}

	out := []float64(black)
	for _, st := range stages {
		out = st.Apply(out)
	}

	residual := 0.0
	minAbs := 1e9
	for _, v := range out {
		a := v
		if a < 0 {
			a = -a
		}
		residual += a
		if a < minAbs {
			minAbs = a
		}
	}

	if residual/float64(len(out)) < 0.001 && minAbs <= 0.00001 {
		lut.bpcActive = false
		return nil
	}

	// Lift correction: scale = (1 - wantedY) / (1 - liftedY), with liftedY
	// taken from the first output channel of the pure-black sample, and an
	// offset of (1 - scale). applyBlackPointScaling applies both directly
	// to the first three interpolated output channels; no XYZ round trip
	// is performed.
	liftedY := out[0]
	wantedY := 0.0
	denom := 1 - liftedY
	if denom == 0 {
		lut.bpcActive = false
		return nil
	}
	lut.bpcScale = (1 - wantedY) / denom
	lut.bpcOffset = [3]float64{1 - lut.bpcScale, 1 - lut.bpcScale, 1 - lut.bpcScale}
	lut.bpcActive = true
	return nil
}

// Apply evaluates the CompositeLUT at input via multilinear interpolation
// over the sampled grid, giving CompositeLUT the same Apply contract as a
// plain engine.Transform so it can be installed into a ProfileCache.
func (lut *CompositeLUT) Apply(input []float64) []float64 {
	n := lut.inputChannels
	res := lut.resolution

	lower := make([]int, n)
	frac := make([]float64, n)
	for i := 0; i < n; i++ {
		t := normalizedAxis(lut.inputColorSpace, input, i)
		pos := t * float64(res-1)
		lo := int(pos)
		if lo >= res-1 {
			lo = res - 2
		}
		if lo < 0 {
			lo = 0
		}
		lower[i] = lo
		frac[i] = pos - float64(lo)
	}

	out := make([]float64, lut.outputChannels)
	corners := 1 << n
	for c := 0; c < corners; c++ {
		weight := 1.0
		idx := make([]int, n)
		for i := 0; i < n; i++ {
			if c&(1<<i) != 0 {
				idx[i] = lower[i] + 1
				weight *= frac[i]
			} else {
				idx[i] = lower[i]
				weight *= 1 - frac[i]
			}
		}
		if weight == 0 {
			continue
		}
		flat := flattenIdx(idx, res)
		base := flat * lut.outputChannels
		for k := 0; k < lut.outputChannels; k++ {
			out[k] += weight * lut.grid[base+k]
		}
	}

	if lut.bpcActive {
		lut.applyBlackPointScaling(out)
	}

	return out
}

// normalizedAxis inverts gridValue: maps a native-range input value on the
// given axis back to the [0,1] grid-fraction domain sample() used to build
// the LUT.
func normalizedAxis(colorSpace int, input []float64, axis int) float64 {
	if axis >= len(input) {
		return 0
	}
	v := input[axis]
	if colorSpace == policy.CSLab {
		if axis == 0 {
			return clamp01(v / 100)
		}
		return clamp01((v + 128) / 255)
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func flattenIdx(idx []int, resolution int) int {
	flat := 0
	for _, v := range idx {
		flat = flat*resolution + v
	}
	return flat
}

func (lut *CompositeLUT) applyBlackPointScaling(out []float64) {
	n := 3
	if len(out) < n {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = out[i]*lut.bpcScale + lut.bpcOffset[i]
	}
}
