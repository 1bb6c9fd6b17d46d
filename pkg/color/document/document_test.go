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

package document

import (
	"testing"

	"github.com/hhrutter/pdfcolor/pkg/model"
	"github.com/hhrutter/pdfcolor/pkg/types"
	"github.com/stretchr/testify/require"
)

func buildTwoPageDocument(t *testing.T) *model.Context {
	t.Helper()
	ctx := model.NewContext(nil)

	newBlankPage := func() types.IndirectRef {
		resources := types.NewDict()
		resourcesRef := ctx.IndRefForObject(resources)

		d := types.NewDict()
		d.InsertName("Type", "Page")
		d.Update("Resources", *resourcesRef)
		return *ctx.IndRefForObject(d)
	}

	page1 := newBlankPage()
	page2 := newBlankPage()

	pages := types.NewDict()
	pages.InsertName("Type", "Pages")
	pages.Update("Kids", types.Array{page1, page2})
	pagesRef := ctx.IndRefForObject(pages)

	info := types.NewDict()
	info.InsertString("Producer", "Test Producer")
	infoRef := ctx.IndRefForObject(info)

	root := types.NewDict()
	root.Update("Pages", *pagesRef)
	root.Update("Info", *infoRef)
	ctx.RootDict = root

	return ctx
}

func TestRunWalksAllPagesAndAggregatesTotals(t *testing.T) {
	ctx := buildTwoPageDocument(t)
	conf := model.ColorConfig{DestinationColorSpace: "Lab", ConvertImages: true, ConvertContentStreams: true}

	o, err := NewOrchestrator(conf, Options{})
	require.NoError(t, err)
	defer o.Close()

	result := o.Run(conf, ctx)

	require.NoError(t, result.Err)
	require.Len(t, result.Pages, 2)
}

func TestRunAppendsEngineVersionSuffixToProducer(t *testing.T) {
	ctx := buildTwoPageDocument(t)
	conf := model.ColorConfig{DestinationColorSpace: "Lab", EngineVersion: 3}

	o, err := NewOrchestrator(conf, Options{})
	require.NoError(t, err)
	defer o.Close()

	o.Run(conf, ctx)

	infoObj, ok := ctx.RootDict.Find("Info")
	require.True(t, ok)
	info, err := ctx.DereferenceDict(infoObj)
	require.NoError(t, err)

	producer := info.StringEntry("Producer")
	require.NotNil(t, producer)
	require.Contains(t, *producer, "Test Producer")
	require.Contains(t, *producer, "engine v3")
}

func TestRunWithWorkerPoolStillConvertsAllPages(t *testing.T) {
	ctx := buildTwoPageDocument(t)
	conf := model.ColorConfig{DestinationColorSpace: "Lab", ConvertImages: true}

	o, err := NewOrchestrator(conf, Options{UseWorkers: true, WorkerCount: 2})
	require.NoError(t, err)
	defer o.Close()

	result := o.Run(conf, ctx)

	require.NoError(t, result.Err)
	require.Len(t, result.Pages, 2)
}
