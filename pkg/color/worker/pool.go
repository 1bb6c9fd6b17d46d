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

// Package worker implements the Worker Pool (C11, spec.md §4.11): a fixed
// set of goroutines, each owning its own child Base Converter, dispatching
// image/content-stream/transform/benchmark tasks round-robin and
// reassembling results by TaskID.
package worker

import (
	"sync"
	"time"

	"github.com/hhrutter/pdfcolor/pkg/color/convert"
)

// Kind identifies the task message variants spec.md §4.11 describes. Pool
// gives no Kind special handling: every Task, whatever its Kind, is executed
// by calling its caller-supplied Run closure, and Kind is only copied into
// the Result. Init, SharedConfig and DiagnosticsPort perform no warm-up,
// config caching or diagnostics wiring of their own.
type Kind int

const (
	KindInit Kind = iota
	KindSharedConfig
	KindDiagnosticsPort
	KindImage
	KindContentStream
	KindTransform
	KindBenchmark
)

// Task is one unit of work submitted to the pool. Run receives the
// dispatching worker's own *convert.Converter (a child of the pool's root
// converter, so its profile/transform cache is never shared for writes
// across goroutines, per spec.md §4.2/§5) and returns an opaque value.
type Task struct {
	ID   int
	Kind Kind
	Run  func(c *convert.Converter) (interface{}, error)
}

// Result is a Task's outcome, carrying the same TaskID per spec.md §4.11.
type Result struct {
	TaskID   int
	Kind     Kind
	Success  bool
	Value    interface{}
	Err      error
	Duration time.Duration
}

// Pool owns workerCount goroutines, each with its own child converter.
// Tasks queue on a buffered channel and are dispatched round-robin by the
// Go runtime's own channel-receive fairness; within one worker, tasks
// execute strictly in arrival order (spec.md §4.11's concurrency
// guarantee), across workers they are unordered.
type Pool struct {
	tasks   chan Task
	results chan Result
	wg      sync.WaitGroup
}

// NewPool starts workerCount goroutines, each a child of root (via
// root.NewChildConverter), and returns the running Pool. workerCount <= 0
// is coerced to 1.
func NewPool(root *convert.Converter, workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}

	p := &Pool{
		tasks:   make(chan Task, workerCount*4),
		results: make(chan Result, workerCount*4),
	}

	for i := 0; i < workerCount; i++ {
		child := root.NewChildConverter(nil)
		p.wg.Add(1)
		go p.run(child)
	}

	return p
}

func (p *Pool) run(c *convert.Converter) {
	defer p.wg.Done()
	defer c.Dispose()
	for t := range p.tasks {
		start := time.Now()
		val, err := t.Run(c)
		p.results <- Result{
			TaskID:   t.ID,
			Kind:     t.Kind,
			Success:  err == nil,
			Value:    val,
			Err:      err,
			Duration: time.Since(start),
		}
	}
}

// Submit queues t. The caller must eventually drain a matching Result from
// Results() for every submitted Task, or Close will block forever.
func (p *Pool) Submit(t Task) {
	p.tasks <- t
}

// Results returns the channel Result values are published on.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops accepting new tasks, waits for in-flight tasks to drain (no
// mid-task cancellation, per spec.md §4.11), disposing each worker's child
// converter as it exits, then closes Results().
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
	close(p.results)
}

// RunImageTasks submits one KindImage task per entry in runs, collects
// exactly len(runs) results (matched back to the caller by TaskID == index
// into runs), and returns them in that same order regardless of the
// completion order across workers. This is the "fan out and wait on a
// sync.WaitGroup" shape spec.md §4.9 describes for the Page Coordinator's
// image phase.
func (p *Pool) RunImageTasks(runs []func(c *convert.Converter) (interface{}, error)) []Result {
	out := make([]Result, len(runs))
	for i, run := range runs {
		p.Submit(Task{ID: i, Kind: KindImage, Run: run})
	}
	for range runs {
		r := <-p.results
		out[r.TaskID] = r
	}
	return out
}
