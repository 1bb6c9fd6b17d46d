package model

import (
	"testing"

	"github.com/hhrutter/pdfcolor/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestContextDereference(t *testing.T) {
	ctx := NewContext(nil)

	leaf := types.Integer(42)
	ref := ctx.IndRefForObject(leaf)

	obj, err := ctx.Dereference(*ref)
	require.NoError(t, err)
	require.Equal(t, leaf, obj)
}

func TestContextPagesWalksKidsTree(t *testing.T) {
	ctx := NewContext(nil)

	page1 := types.NewDict()
	page1.InsertName("Type", "Page")
	page1Ref := ctx.IndRefForObject(page1)

	page2 := types.NewDict()
	page2.InsertName("Type", "Page")
	page2Ref := ctx.IndRefForObject(page2)

	kids := types.Array{*page1Ref, *page2Ref}
	pages := types.NewDict()
	pages.InsertName("Type", "Pages")
	pages.Update("Kids", kids)
	pagesRef := ctx.IndRefForObject(pages)

	root := types.NewDict()
	root.Update("Pages", *pagesRef)
	ctx.RootDict = root

	got, err := ctx.Pages()
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 2, ctx.PageCount)
}

func TestNewPageResolvesResourcesAndMediaBox(t *testing.T) {
	ctx := NewContext(nil)

	resources := types.NewDict()
	resourcesRef := ctx.IndRefForObject(resources)

	pageDict := types.NewDict()
	pageDict.InsertName("Type", "Page")
	pageDict.Update("Resources", *resourcesRef)
	pageDict.Update("MediaBox", types.NewNumberArray(0, 0, 612, 792))

	page, err := NewPage(ctx, pageDict)
	require.NoError(t, err)
	require.NotNil(t, page.MediaBox)
	require.Equal(t, 612.0, page.MediaBox.Width())
	require.Equal(t, 792.0, page.MediaBox.Height())
}
