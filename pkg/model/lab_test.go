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
	"testing"

	"github.com/hhrutter/pdfcolor/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateNormalizedLabColorSpaceIsStableAcrossCalls(t *testing.T) {
	ctx := NewContext(nil)

	ref1, err := ctx.GetOrCreateNormalizedLabColorSpace()
	require.NoError(t, err)
	ref2, err := ctx.GetOrCreateNormalizedLabColorSpace()
	require.NoError(t, err)

	require.Equal(t, ref1.ObjectNumber.Value(), ref2.ObjectNumber.Value())
}

func TestGetOrCreateNormalizedLabColorSpaceReusesExistingMatch(t *testing.T) {
	ctx := NewContext(nil)

	d := types.NewDict()
	d.Update("WhitePoint", types.Array{types.Float(0.96422), types.Float(1.0), types.Float(0.82521)})
	d.Update("Range", types.Array{types.Integer(-128), types.Integer(127), types.Integer(-128), types.Integer(127)})
	existingRef := ctx.IndRefForObject(types.Array{types.Name("Lab"), d})

	ref, err := ctx.GetOrCreateNormalizedLabColorSpace()
	require.NoError(t, err)
	require.Equal(t, existingRef.ObjectNumber.Value(), ref.ObjectNumber.Value())
}

func TestEnsureLabColorSpaceResourcePointsAtSharedObjectAcrossPages(t *testing.T) {
	ctx := NewContext(nil)

	page1 := &Page{Dict: types.NewDict(), Resources: types.NewDict()}
	name1, err := page1.EnsureLabColorSpaceResource(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, name1)

	page2 := &Page{Dict: types.NewDict(), Resources: types.NewDict()}
	name2, err := page2.EnsureLabColorSpaceResource(ctx)
	require.NoError(t, err)

	cs1, err := page1.ColorSpaceResources(ctx)
	require.NoError(t, err)
	cs2, err := page2.ColorSpaceResources(ctx)
	require.NoError(t, err)

	ir1 := cs1.IndirectRefEntry(name1)
	ir2 := cs2.IndirectRefEntry(name2)
	require.NotNil(t, ir1)
	require.NotNil(t, ir2)
	require.Equal(t, ir1.ObjectNumber.Value(), ir2.ObjectNumber.Value())
}
