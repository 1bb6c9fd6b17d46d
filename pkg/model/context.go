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

// Package model provides the minimal PDF object-graph surface color
// conversion operates over: a cross-reference table stand-in, page
// lookup, and configuration.
package model

import (
	"github.com/hhrutter/pdfcolor/pkg/types"
	"github.com/pkg/errors"
)

// XRefTableEntry holds the in-memory object for one object number.
// Unlike the teacher's full xref table entry, there is no Free/Offset/
// generation bookkeeping here: this module never writes an incremental
// update, it only mutates objects already resolved into memory.
type XRefTableEntry struct {
	Object types.Object
}

// Context is the minimal cross-reference-table stand-in color conversion
// operates over. It owns the object graph and exposes Dereference the way
// pkg/pdfcpu/model.XRefTable does, trimmed to what a color-conversion run
// needs: no linearization, no encryption, no object streams, no writer.
type Context struct {
	Conf          *Configuration
	RootDict      types.Dict
	HeaderVersion string
	PageCount     int

	table   map[int]*XRefTableEntry
	nextObj int

	labColorSpaceRef *types.IndirectRef
}

// NewContext returns an empty Context ready to have objects registered into it.
func NewContext(conf *Configuration) *Context {
	if conf == nil {
		conf = NewDefaultConfiguration()
	}
	return &Context{
		Conf:    conf,
		table:   map[int]*XRefTableEntry{},
		nextObj: 1,
	}
}

// IndRefForObject registers obj under a fresh object number and returns a
// reference to it.
func (ctx *Context) IndRefForObject(obj types.Object) *types.IndirectRef {
	nr := ctx.nextObj
	ctx.nextObj++
	ctx.table[nr] = &XRefTableEntry{Object: obj}
	return types.NewIndirectRef(nr, 0)
}

// FindTableEntryForIndRef returns the table entry for indRef, if any.
func (ctx *Context) FindTableEntryForIndRef(indRef *types.IndirectRef) (*XRefTableEntry, bool) {
	if indRef == nil {
		return nil, false
	}
	e, ok := ctx.table[indRef.ObjectNumber.Value()]
	return e, ok
}

func (ctx *Context) indRefToObject(ir *types.IndirectRef) (types.Object, error) {
	if ir == nil {
		return nil, errors.New("pdfcolor: indRefToObject: input argument is nil")
	}

	entry, found := ctx.FindTableEntryForIndRef(ir)
	if !found {
		return nil, nil
	}

	return entry.Object, nil
}

// Dereference resolves an indirect object into the object it points to.
// Non-reference objects are returned unchanged, matching pkg/pdfcpu/model's
// Dereference semantics.
func (ctx *Context) Dereference(o types.Object) (types.Object, error) {
	ir, ok := o.(types.IndirectRef)
	if !ok {
		return o, nil
	}
	return ctx.indRefToObject(&ir)
}

// DereferenceDict resolves o and type-asserts the result to a Dict.
func (ctx *Context) DereferenceDict(o types.Object) (types.Dict, error) {
	o, err := ctx.Dereference(o)
	if err != nil || o == nil {
		return nil, err
	}
	d, ok := o.(types.Dict)
	if !ok {
		return nil, errors.Errorf("pdfcolor: DereferenceDict: expected Dict, got %T", o)
	}
	return d, nil
}

// DereferenceArray resolves o and type-asserts the result to an Array.
func (ctx *Context) DereferenceArray(o types.Object) (types.Array, error) {
	o, err := ctx.Dereference(o)
	if err != nil || o == nil {
		return nil, err
	}
	a, ok := o.(types.Array)
	if !ok {
		return nil, errors.Errorf("pdfcolor: DereferenceArray: expected Array, got %T", o)
	}
	return a, nil
}

// DereferenceStreamDict resolves o and type-asserts the result to a *StreamDict.
func (ctx *Context) DereferenceStreamDict(o types.Object) (*types.StreamDict, error) {
	o, err := ctx.Dereference(o)
	if err != nil || o == nil {
		return nil, err
	}
	sd, ok := o.(types.StreamDict)
	if !ok {
		return nil, errors.Errorf("pdfcolor: DereferenceStreamDict: expected StreamDict, got %T", o)
	}
	return &sd, nil
}

// UpdateObject overwrites the object stored for the given indirect reference.
func (ctx *Context) UpdateObject(ir types.IndirectRef, obj types.Object) {
	if e, ok := ctx.table[ir.ObjectNumber.Value()]; ok {
		e.Object = obj
		return
	}
	ctx.table[ir.ObjectNumber.Value()] = &XRefTableEntry{Object: obj}
}

// Pages walks the page tree rooted at RootDict and returns each page Dict
// in document order. It resolves a simple, non-inherited Kids tree — the
// same shape pkg/pdfcpu/model.XRefTable.PageDict walks, without the
// rotate/inheritance bookkeeping that has no bearing on color conversion.
func (ctx *Context) Pages() ([]types.Dict, error) {
	pagesRef, ok := ctx.RootDict.Find("Pages")
	if !ok {
		return nil, errors.New("pdfcolor: document root has no /Pages entry")
	}
	pagesDict, err := ctx.DereferenceDict(pagesRef)
	if err != nil {
		return nil, err
	}

	var pages []types.Dict
	var walk func(types.Dict) error
	walk = func(d types.Dict) error {
		if t := d.Type(); t != nil && *t == "Page" {
			pages = append(pages, d)
			return nil
		}
		kids, err := ctx.DereferenceArray(d["Kids"])
		if err != nil {
			return err
		}
		for _, k := range kids {
			kd, err := ctx.DereferenceDict(k)
			if err != nil {
				return err
			}
			if err := walk(kd); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(pagesDict); err != nil {
		return nil, err
	}
	ctx.PageCount = len(pages)
	return pages, nil
}
