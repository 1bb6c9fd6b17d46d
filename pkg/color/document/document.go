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

// Package document implements the Document Orchestrator (C10, spec.md
// §4.10): walks a document's pages in order, wires up the shared Lab
// color-space resource, owns the converter/worker pool/diagnostics
// collector for the run, updates Producer metadata, and aggregates
// per-page errors into one document-level result.
package document

import (
	"fmt"

	"github.com/hhrutter/pdfcolor/pkg/color/convert"
	"github.com/hhrutter/pdfcolor/pkg/color/diag"
	"github.com/hhrutter/pdfcolor/pkg/color/page"
	"github.com/hhrutter/pdfcolor/pkg/color/worker"
	"github.com/hhrutter/pdfcolor/pkg/model"
	"github.com/hhrutter/pdfcolor/pkg/types"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// engineVersionSuffixFormat is appended to the document's /Info/Producer
// entry after a successful run, per spec.md §4.10.
const engineVersionSuffixFormat = " (color-converted, engine v%d)"

// PageResult pairs one page's index (0-based, document order) with its
// Page Coordinator outcome.
type PageResult struct {
	PageIndex int
	page.Result
}

// Result is a whole-document conversion run's outcome.
type Result struct {
	Pages            []PageResult
	ImagesConverted  int
	StreamsConverted int
	ColorOperations  int
	Err              error
}

// Orchestrator owns the long-lived run state: the root Base Converter, an
// optional worker pool, and an optional diagnostics collector. Run is safe
// to call once per Orchestrator; Close releases the pool and converter.
type Orchestrator struct {
	converter *convert.Converter
	pool      *worker.Pool
	collector *diag.Collector
}

// Options configures one Orchestrator.
type Options struct {
	// UseWorkers mirrors model.ColorConfig.UseWorkers but is surfaced here
	// since the pool is an Orchestrator-owned resource, not per-config.
	UseWorkers  bool
	WorkerCount int

	// Logger backs the diagnostics collector; nil disables diagnostics
	// output but a Collector is still created so Run's call sites never
	// need a nil check.
	Logger *zap.Logger
}

// NewOrchestrator constructs the root converter for base, optionally a
// worker pool sized per opts, and a diagnostics collector.
func NewOrchestrator(base model.ColorConfig, opts Options) (*Orchestrator, error) {
	root, err := convert.NewConverter(base)
	if err != nil {
		return nil, err
	}

	var pool *worker.Pool
	if opts.UseWorkers {
		pool = worker.NewPool(root, opts.WorkerCount)
	}

	return &Orchestrator{
		converter: root,
		pool:      pool,
		collector: diag.NewCollector(opts.Logger),
	}, nil
}

// Diagnostics returns the orchestrator's collector, for callers that want
// to render HumanTree/MarshalHierarchicalJSON/EmitFlatTraceLog after Run.
func (o *Orchestrator) Diagnostics() *diag.Collector {
	return o.collector
}

// Close disposes the worker pool (each worker disposes its own child
// converter as it exits) and the root converter's caches, in that order.
func (o *Orchestrator) Close() {
	if o.pool != nil {
		o.pool.Close()
	}
	o.converter.Dispose()
}

// Run walks ctx's page tree in document order, converting every page
// through a page.Coordinator built from this Orchestrator's converter,
// pool and collector, and aggregates the per-page results. A Lab
// destination gets its shared color-space resource resolved once up
// front (page.Coordinator.ConvertPage also ensures it lazily, but
// resolving it here means every page shares the exact same call instead
// of a document-wide race across a worker-dispatched page phase, should
// a caller ever parallelize pages too).
func (o *Orchestrator) Run(conf model.ColorConfig, ctx *model.Context) Result {
	rootSpan := o.collector.StartSpan("document", nil)
	defer o.collector.EndSpan(rootSpan, nil)

	var result Result

	if conf.DestinationColorSpace == "Lab" {
		if _, err := ctx.GetOrCreateNormalizedLabColorSpace(); err != nil {
			result.Err = multierr.Append(result.Err, err)
		}
	}

	pageDicts, err := ctx.Pages()
	if err != nil {
		result.Err = multierr.Append(result.Err, err)
		return result
	}

	coord := page.NewCoordinator(o.converter, o.pool, o.collector)

	for i, d := range pageDicts {
		p, err := model.NewPage(ctx, d)
		if err != nil {
			result.Err = multierr.Append(result.Err, err)
			continue
		}

		pr := coord.ConvertPage(conf, ctx, p)
		result.Pages = append(result.Pages, PageResult{PageIndex: i, Result: pr})
		result.ImagesConverted += pr.ImagesConverted
		result.StreamsConverted += pr.StreamsConverted
		result.ColorOperations += pr.ColorOperations
		if pr.Err != nil {
			result.Err = multierr.Append(result.Err, pr.Err)
		}
	}

	o.updateProducer(conf, ctx)

	o.collector.UpdateSpan(rootSpan, map[string]interface{}{
		"pageCount":        len(pageDicts),
		"imagesConverted":  result.ImagesConverted,
		"streamsConverted": result.StreamsConverted,
	})

	return result
}

// updateProducer appends the color-engine-version suffix spec.md §4.10
// calls for to the document's /Info/Producer entry, if an Info dict is
// reachable from the root.
func (o *Orchestrator) updateProducer(conf model.ColorConfig, ctx *model.Context) {
	infoObj, ok := ctx.RootDict.Find("Info")
	if !ok {
		return
	}
	info, err := ctx.DereferenceDict(infoObj)
	if err != nil || info == nil {
		return
	}

	producer := ""
	if p := info.NameEntry("Producer"); p != nil {
		producer = *p
	} else if p := info.StringEntry("Producer"); p != nil {
		producer = *p
	}

	producer += fmt.Sprintf(engineVersionSuffixFormat, conf.EngineVersion)
	info.Update("Producer", types.StringLiteral(producer))
}
