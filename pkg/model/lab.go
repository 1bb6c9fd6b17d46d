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

package model

import "github.com/hhrutter/pdfcolor/pkg/types"

// labWhitePointD50 is the whitepoint of the normalized Lab color space this
// module standardizes on for a Lab destination, per spec.md §4.10.
var labWhitePointD50 = [3]float64{0.96422, 1.0, 0.82521}

const labRangeTolerance = 1e-5

// GetOrCreateNormalizedLabColorSpace returns the indirect reference to a
// document-wide `[/Lab <<WhitePoint, Range>>]` color space matching the
// D50 whitepoint and (-128,127,-128,127) a/b range, per spec.md §4.10.
// An existing match already registered in ctx is reused; otherwise a new
// one is created and cached for the lifetime of ctx.
func (ctx *Context) GetOrCreateNormalizedLabColorSpace() (*types.IndirectRef, error) {
	if ctx.labColorSpaceRef != nil {
		return ctx.labColorSpaceRef, nil
	}

	for nr, e := range ctx.table {
		if ref := labArrayRefIfMatching(nr, e.Object); ref != nil {
			ctx.labColorSpaceRef = ref
			return ref, nil
		}
	}

	d := types.NewDict()
	d.Update("WhitePoint", types.Array{
		types.Float(labWhitePointD50[0]),
		types.Float(labWhitePointD50[1]),
		types.Float(labWhitePointD50[2]),
	})
	d.Update("Range", types.Array{
		types.Integer(-128), types.Integer(127),
		types.Integer(-128), types.Integer(127),
	})
	arr := types.Array{types.Name("Lab"), d}

	ref := ctx.IndRefForObject(arr)
	ctx.labColorSpaceRef = ref
	return ref, nil
}

func labArrayRefIfMatching(objNr int, obj types.Object) *types.IndirectRef {
	arr, ok := obj.(types.Array)
	if !ok || len(arr) != 2 {
		return nil
	}
	if name, ok := arr[0].(types.Name); !ok || name.Value() != "Lab" {
		return nil
	}
	d, ok := arr[1].(types.Dict)
	if !ok {
		return nil
	}
	wp := d.ArrayEntry("WhitePoint")
	rng := d.ArrayEntry("Range")
	if !numbersClose(wp, labWhitePointD50[:], labRangeTolerance) {
		return nil
	}
	if !numbersClose(rng, []float64{-128, 127, -128, 127}, labRangeTolerance) {
		return nil
	}
	return types.NewIndirectRef(objNr, 0)
}

func numbersClose(arr types.Array, want []float64, tolerance float64) bool {
	if len(arr) != len(want) {
		return false
	}
	for i, w := range want {
		var v float64
		switch n := arr[i].(type) {
		case types.Float:
			v = n.Value()
		case types.Integer:
			v = float64(n.Value())
		default:
			return false
		}
		d := v - w
		if d < 0 {
			d = -d
		}
		if d > tolerance {
			return false
		}
	}
	return true
}

// EnsureLabColorSpaceResource installs the shared normalized Lab color
// space into page's /Resources/ColorSpace dict under a free name, reusing
// an existing entry that already points at the same object, and returns
// the resource name content-stream rewriting should select.
func (p *Page) EnsureLabColorSpaceResource(ctx *Context) (string, error) {
	ref, err := ctx.GetOrCreateNormalizedLabColorSpace()
	if err != nil {
		return "", err
	}

	csRes, err := p.ColorSpaceResources(ctx)
	if err != nil {
		return "", err
	}

	for name, obj := range csRes {
		if ir, ok := obj.(types.IndirectRef); ok && ir.ObjectNumber.Value() == ref.ObjectNumber.Value() {
			return name, nil
		}
	}

	name := csRes.NewIDForPrefix("LabPDFColor", 0)
	csRes.Insert(name, *ref)
	return name, nil
}
