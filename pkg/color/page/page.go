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

// Package page implements the Page Coordinator (C9, spec.md §4.9): for one
// page, collect convertible image XObjects and content streams, dispatch
// the image phase (on-thread or to a worker pool), run the content-stream
// phase sequentially, and apply the results in place.
package page

import (
	"github.com/hhrutter/pdfcolor/pkg/color/convert"
	"github.com/hhrutter/pdfcolor/pkg/color/diag"
	"github.com/hhrutter/pdfcolor/pkg/color/worker"
	"github.com/hhrutter/pdfcolor/pkg/model"
	"github.com/hhrutter/pdfcolor/pkg/types"

	"go.uber.org/multierr"
)

// Result aggregates one page's conversion outcome, per spec.md §4.9 step 7:
// totals plus every non-fatal per-item error, collected rather than
// aborting the rest of the page.
type Result struct {
	ImagesConverted  int
	StreamsConverted int
	ColorOperations  int
	Err              error
}

// Coordinator drives one page's conversion. Pool is optional: nil means
// every image is converted on-thread through Converter directly. Diag is
// optional: nil means no span is opened for the page.
type Coordinator struct {
	Converter *convert.Converter
	Pool      *worker.Pool
	Diag      *diag.Collector
}

// NewCoordinator returns a Coordinator driving converter, optionally
// dispatching image work to pool and reporting to collector.
func NewCoordinator(converter *convert.Converter, pool *worker.Pool, collector *diag.Collector) *Coordinator {
	return &Coordinator{Converter: converter, Pool: pool, Diag: collector}
}

type imageCandidate struct {
	ref     types.IndirectRef
	indexed bool
}

// ConvertPage implements spec.md §4.9 steps 1-7 for one page.
func (co *Coordinator) ConvertPage(conf model.ColorConfig, ctx *model.Context, p *model.Page) Result {
	var span diag.Handle
	if co.Diag != nil {
		span = co.Diag.StartSpan("page", nil)
		defer co.Diag.EndSpan(span, nil)
	}

	var result Result

	labResourceName := ""
	if conf.DestinationColorSpace == "Lab" {
		name, err := p.EnsureLabColorSpaceResource(ctx)
		if err != nil {
			result.Err = multierr.Append(result.Err, err)
		} else {
			labResourceName = name
		}
	}

	candidates, err := co.collectConvertibleImages(conf, ctx, p)
	result.Err = multierr.Append(result.Err, err)

	imagesConverted, imgErr := co.convertImages(conf, ctx, candidates)
	result.ImagesConverted = imagesConverted
	result.Err = multierr.Append(result.Err, imgErr)

	streamsConverted, colorOps, csErr := co.convertContentStreams(conf, ctx, p, labResourceName)
	result.StreamsConverted = streamsConverted
	result.ColorOperations = colorOps
	result.Err = multierr.Append(result.Err, csErr)

	if co.Diag != nil {
		co.Diag.UpdateSpan(span, map[string]interface{}{
			"imagesConverted":  result.ImagesConverted,
			"streamsConverted": result.StreamsConverted,
			"colorOperations":  result.ColorOperations,
		})
	}

	return result
}

// collectConvertibleImages walks the page's /Resources/XObject dict and
// keeps every Image subtype whose existing color space is not already
// DeviceCMYK, per spec.md §4.9 step 1.
func (co *Coordinator) collectConvertibleImages(conf model.ColorConfig, ctx *model.Context, p *model.Page) ([]imageCandidate, error) {
	xobjs, err := p.XObjects(ctx)
	if err != nil {
		return nil, err
	}
	if !conf.ConvertImages {
		return nil, nil
	}

	var candidates []imageCandidate
	var errs error

	for _, obj := range xobjs {
		ref, ok := obj.(types.IndirectRef)
		if !ok {
			continue
		}
		sd, err := ctx.DereferenceStreamDict(ref)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if sd == nil {
			continue
		}
		if t := sd.Dict.NameEntry("Subtype"); t == nil || *t != "Image" {
			continue
		}

		csObj, found := sd.Dict.Find("ColorSpace")
		if !found {
			continue
		}
		name, err := convert.ResolvedColorSpaceName(ctx, csObj)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if name == "DeviceCMYK" {
			continue
		}

		candidates = append(candidates, imageCandidate{ref: ref, indexed: name == "Indexed"})
	}

	return candidates, errs
}

// convertImages runs the image phase: Indexed images always on-thread,
// everything else dispatched to Pool when one is configured, sequentially
// otherwise, per spec.md §4.9 step 4.
func (co *Coordinator) convertImages(conf model.ColorConfig, ctx *model.Context, candidates []imageCandidate) (int, error) {
	var onThread, pooled []imageCandidate
	for _, cand := range candidates {
		if cand.indexed || co.Pool == nil {
			onThread = append(onThread, cand)
		} else {
			pooled = append(pooled, cand)
		}
	}

	converted := 0
	var errs error

	for _, cand := range onThread {
		if err := co.convertOneImage(conf, ctx, co.Converter, cand.ref); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		converted++
	}

	if len(pooled) == 0 {
		return converted, errs
	}

	runs := make([]func(c *convert.Converter) (interface{}, error), len(pooled))
	for i, cand := range pooled {
		ref := cand.ref
		runs[i] = func(c *convert.Converter) (interface{}, error) {
			return nil, co.convertOneImage(conf, ctx, c, ref)
		}
	}

	for _, r := range co.Pool.RunImageTasks(runs) {
		if r.Success {
			converted++
			continue
		}
		errs = multierr.Append(errs, r.Err)
	}

	return converted, errs
}

// convertOneImage dereferences ref into a *StreamDict, converts it through
// c, and writes the mutated copy back into ctx: DereferenceStreamDict
// hands back a pointer to a detached copy, so StreamDict fields outside
// its embedded Dict (Content, Raw, FilterPipeline) need an explicit
// UpdateObject to persist.
func (co *Coordinator) convertOneImage(conf model.ColorConfig, ctx *model.Context, c *convert.Converter, ref types.IndirectRef) error {
	sd, err := ctx.DereferenceStreamDict(ref)
	if err != nil {
		return err
	}
	if sd == nil {
		return nil
	}
	if err := c.ConvertImage(conf, ctx, sd); err != nil {
		return err
	}
	ctx.UpdateObject(ref, *sd)
	return nil
}

// convertContentStreams runs the content-stream phase sequentially,
// threading labResourceName through so every rewritten color operator
// re-selects the page's shared Lab resource, per spec.md §4.9 step 5 and
// §4.8.
func (co *Coordinator) convertContentStreams(conf model.ColorConfig, ctx *model.Context, p *model.Page, labResourceName string) (int, int, error) {
	if !conf.ConvertContentStreams {
		return 0, 0, nil
	}

	refs, err := p.ContentStreamRefs()
	if err != nil {
		return 0, 0, err
	}

	csRes, err := p.ColorSpaceResources(ctx)
	if err != nil {
		return 0, 0, err
	}

	converted := 0
	colorOps := 0
	var errs error

	for _, ref := range refs {
		sd, err := ctx.DereferenceStreamDict(ref)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if sd == nil {
			continue
		}
		if err := sd.Decode(); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		out, err := co.Converter.ConvertContentStream(conf, ctx, csRes, sd.Content, labResourceName)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		colorOps += countColorOperators(sd.Content, out)
		sd.Content = out
		sd.Raw = out
		sd.FilterPipeline = nil
		sd.Dict.Delete("Filter")
		sd.Dict.Delete("DecodeParms")
		sd.Dict.Update("Length", types.Integer(len(out)))

		ctx.UpdateObject(ref, *sd)
		converted++
	}

	return converted, colorOps, errs
}

// countColorOperators approximates spec.md §4.9 step 7's "color operations"
// total without re-tokenizing the stream: the converter always normalizes
// a rewritten operator into scn/SCN/sc/SC, so the increase in how many of
// those tokens appear from before to after is, modulo operators that
// already used that form and were left untouched (e.g. Separation
// operands, per the content-stream converter's pass-through rule), a close
// approximation of how many operators were actually rewritten.
func countColorOperators(before, after []byte) int {
	countBoth := func(data []byte) int {
		return countOperatorOccurrences(data, "scn") + countOperatorOccurrences(data, "SCN") +
			countOperatorOccurrences(data, "sc") + countOperatorOccurrences(data, "SC")
	}
	diff := countBoth(after) - countBoth(before)
	if diff < 0 {
		return 0
	}
	return diff
}

func countOperatorOccurrences(data []byte, op string) int {
	n := 0
	target := []byte(op)
	for i := 0; i+len(target) <= len(data); i++ {
		if string(data[i:i+len(target)]) != op {
			continue
		}
		before := i == 0 || isOpBoundary(data[i-1])
		afterIdx := i + len(target)
		after := afterIdx == len(data) || isOpBoundary(data[afterIdx])
		if before && after {
			n++
		}
	}
	return n
}

func isOpBoundary(b byte) bool {
	switch b {
	case ' ', '\n', '\r', '\t':
		return true
	}
	return false
}
