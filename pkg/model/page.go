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

import (
	"github.com/hhrutter/pdfcolor/pkg/types"
	"github.com/pkg/errors"
)

// Page wraps one page dict with the convenience accessors color conversion
// needs: Resources.XObject, Resources.ColorSpace, and Contents, regardless
// of whether Contents is a single stream reference or an array of them.
type Page struct {
	Dict      types.Dict
	Resources types.Dict
	MediaBox  *types.Rectangle
}

// NewPage resolves d's /Resources and /MediaBox (falling back to parent
// inheritance is the caller's responsibility — pages here are expected to
// already carry an inherited, resolved Resources dict, matching how
// pkg/pdfcpu/model.XRefTable.PageDict hands pages to callers).
func NewPage(ctx *Context, d types.Dict) (*Page, error) {
	var resources types.Dict
	if ro, ok := d.Find("Resources"); ok {
		r, err := ctx.DereferenceDict(ro)
		if err != nil {
			return nil, errors.Wrap(err, "pdfcolor: resolving page Resources")
		}
		resources = r
	}
	if resources == nil {
		resources = types.NewDict()
	}

	var mb *types.Rectangle
	if mbo, ok := d.Find("MediaBox"); ok {
		arr, err := ctx.DereferenceArray(mbo)
		if err == nil {
			mb = types.RectForArray(arr)
		}
	}

	return &Page{Dict: d, Resources: resources, MediaBox: mb}, nil
}

// XObjects returns the page's /Resources/XObject dict, or an empty Dict.
func (p *Page) XObjects(ctx *Context) (types.Dict, error) {
	xo, ok := p.Resources.Find("XObject")
	if !ok {
		return types.NewDict(), nil
	}
	d, err := ctx.DereferenceDict(xo)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return types.NewDict(), nil
	}
	return d, nil
}

// ColorSpaceResources returns the page's /Resources/ColorSpace dict,
// creating it if absent so callers can insert into it directly.
func (p *Page) ColorSpaceResources(ctx *Context) (types.Dict, error) {
	cs, ok := p.Resources.Find("ColorSpace")
	if !ok {
		d := types.NewDict()
		p.Resources.Update("ColorSpace", d)
		return d, nil
	}
	d, err := ctx.DereferenceDict(cs)
	if err != nil {
		return nil, err
	}
	if d == nil {
		d = types.NewDict()
		p.Resources.Update("ColorSpace", d)
	}
	return d, nil
}

// ContentStreamRefs returns the page's /Contents as a slice of indirect
// references, handling both the single-stream and array forms.
func (p *Page) ContentStreamRefs() ([]types.IndirectRef, error) {
	o, ok := p.Dict.Find("Contents")
	if !ok {
		return nil, nil
	}

	switch c := o.(type) {
	case types.IndirectRef:
		return []types.IndirectRef{c}, nil
	case types.Array:
		refs := make([]types.IndirectRef, 0, len(c))
		for _, e := range c {
			ir, ok := e.(types.IndirectRef)
			if !ok {
				return nil, errors.Errorf("pdfcolor: page Contents array entry is not an indirect reference: %T", e)
			}
			refs = append(refs, ir)
		}
		return refs, nil
	default:
		return nil, errors.Errorf("pdfcolor: unsupported page Contents type: %T", o)
	}
}
