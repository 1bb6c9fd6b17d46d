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

// Package diag implements the Diagnostics collector (C12, spec.md §4.12): a
// hierarchical span tree plus counters and events, emitted through
// go.uber.org/zap as a flat chronological trace log and (via encoding/json)
// as a machine-readable hierarchy, with a human ASCII tree-print for
// interactive use.
package diag

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// auxWorkerBaseID isolates a worker-local collector's own span id space
// from the main collector's, per spec.md §4.12's "auxiliary workers are
// started at id = 100000" rule. Merge remaps these back into the main
// collector's id space.
const auxWorkerBaseID = 100000

// DefaultGracefulCleanupTimeout is the per-descendant unit spec.md §4.12's
// root-span sweep multiplies by (descendantCount) to decide how long an
// ended root span waits for its descendants to also end before they are
// force-aborted.
const DefaultGracefulCleanupTimeout = 1000 * time.Millisecond

// Handle identifies one span returned by StartSpan/StartNestedSpan. It is
// the argument EndSpan, UpdateSpan and AbortSpan expect back; Name is
// carried for convenience (logging call sites rarely keep the original
// string around) but only ID matters for equality.
type Handle struct {
	ID   int
	Name string
}

type spanStatus int

const (
	spanOpen spanStatus = iota
	spanEnded
	spanAborted
)

type span struct {
	id        int
	parentID  int // -1 for a root span
	name      string
	attrs     map[string]interface{}
	metrics   map[string]float64
	status    spanStatus
	abortInfo map[string]interface{}
	start     time.Time
	end       time.Time
	children  []int
	timer     *time.Timer
}

func (s *span) descendantCount(c *Collector) int {
	n := 0
	for _, cid := range s.children {
		n++
		if cs, ok := c.spans[cid]; ok {
			n += cs.descendantCount(c)
		}
	}
	return n
}

// Event is one RecordEvent call, timestamped against the collector's clock.
type Event struct {
	Name string
	Data map[string]interface{}
	At   time.Time
}

// Collector is the parent (main-thread) diagnostics state: a span tree,
// an event log, a counter map, and a monotonic start time every span and
// event is reported relative to.
type Collector struct {
	mu         sync.Mutex
	logger     *zap.Logger
	startTime  time.Time
	nextID     int
	currentID  int // id of the "current" span for non-nested call sites; -1 when none
	spans      map[int]*span
	order      []int
	events     []Event
	counters   map[string]float64
	cleanupDur time.Duration
}

// NewCollector returns a ready Collector. A nil logger falls back to
// zap.NewNop(), matching the teacher's pattern of tolerating an unset
// logger rather than requiring every caller to construct one.
func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		logger:     logger,
		startTime:  time.Now(),
		nextID:     1,
		currentID:  -1,
		spans:      map[int]*span{},
		counters:   map[string]float64{},
		cleanupDur: DefaultGracefulCleanupTimeout,
	}
}

// StartSpan opens a new span parented to whatever span is currently
// "active" for non-nested call sites (the root context if none), and
// makes the new span the active one until it ends.
func (c *Collector) StartSpan(name string, attrs map[string]interface{}) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	parentID := c.currentID
	h := c.newSpanLocked(parentID, name, attrs)
	c.currentID = h.ID
	return h
}

// StartNestedSpan opens a span explicitly parented to parent, without
// disturbing whatever span is currently active for non-nested call sites.
func (c *Collector) StartNestedSpan(parent Handle, name string, attrs map[string]interface{}) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.newSpanLocked(parent.ID, name, attrs)
}

func (c *Collector) newSpanLocked(parentID int, name string, attrs map[string]interface{}) Handle {
	id := c.nextID
	c.nextID++

	s := &span{
		id:       id,
		parentID: parentID,
		name:     name,
		attrs:    cloneMap(attrs),
		metrics:  map[string]float64{},
		status:   spanOpen,
		start:    time.Now(),
	}
	c.spans[id] = s
	c.order = append(c.order, id)
	if p, ok := c.spans[parentID]; ok {
		p.children = append(p.children, id)
	}

	c.logger.Debug("span started",
		zap.Int("span_id", id),
		zap.Int("parent_id", parentID),
		zap.String("name", name),
	)

	return Handle{ID: id, Name: name}
}

// EndSpan closes h, merging metrics into whatever UpdateSpan calls already
// recorded. If h was the active span for non-nested call sites, the active
// span reverts to h's parent. Ending a root span (parentID == -1) schedules
// a timeout sweep of any descendants still open, per spec.md §4.12.
func (c *Collector) EndSpan(h Handle, metrics map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.spans[h.ID]
	if !ok || s.status != spanOpen {
		return
	}

	for k, v := range metrics {
		s.metrics[k] = v
	}
	s.status = spanEnded
	s.end = time.Now()

	if c.currentID == h.ID {
		c.currentID = s.parentID
	}

	c.logger.Debug("span ended",
		zap.Int("span_id", s.id),
		zap.Duration("duration", s.end.Sub(s.start)),
	)

	if s.parentID == -1 {
		c.scheduleRootSweepLocked(s)
	}
}

func (c *Collector) scheduleRootSweepLocked(root *span) {
	n := root.descendantCount(c)
	if n == 0 {
		return
	}
	delay := time.Duration(n) * c.cleanupDur
	root.timer = time.AfterFunc(delay, func() { c.sweepDescendants(root.id) })
}

func (c *Collector) sweepDescendants(rootID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	root, ok := c.spans[rootID]
	if !ok {
		return
	}
	var walk func(int)
	walk = func(id int) {
		s, ok := c.spans[id]
		if !ok {
			return
		}
		if s.status == spanOpen {
			s.status = spanAborted
			s.end = time.Now()
			s.abortInfo = map[string]interface{}{"timeout": s.end.Sub(s.start).Milliseconds()}
			c.logger.Warn("span force-aborted on root timeout sweep",
				zap.Int("span_id", s.id), zap.Int("root_id", rootID))
		}
		for _, cid := range s.children {
			walk(cid)
		}
	}
	for _, cid := range root.children {
		walk(cid)
	}
}

// UpdateSpan merges data into an open span: numeric values (float64, float32,
// int, int64) accumulate into the span's metrics, everything else into its
// attributes.
func (c *Collector) UpdateSpan(h Handle, data map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.spans[h.ID]
	if !ok {
		return
	}
	for k, v := range data {
		if f, ok := asFloat64(v); ok {
			s.metrics[k] = f
			continue
		}
		if s.attrs == nil {
			s.attrs = map[string]interface{}{}
		}
		s.attrs[k] = v
	}
}

func asFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// AbortSpan marks an open span aborted with reason, distinct from a clean
// EndSpan. If it was the active span, the active span reverts to its
// parent, matching EndSpan's bookkeeping.
func (c *Collector) AbortSpan(h Handle, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.spans[h.ID]
	if !ok || s.status != spanOpen {
		return
	}
	s.status = spanAborted
	s.end = time.Now()
	s.abortInfo = map[string]interface{}{"reason": reason}

	if c.currentID == h.ID {
		c.currentID = s.parentID
	}

	c.logger.Warn("span aborted", zap.Int("span_id", s.id), zap.String("reason", reason))
}

// IncrementCounter adds delta (default 1 when omitted) to a named counter.
func (c *Collector) IncrementCounter(name string, delta ...float64) {
	d := 1.0
	if len(delta) > 0 {
		d = delta[0]
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += d
}

// RecordEvent appends a timestamped event, not tied to any particular span.
func (c *Collector) RecordEvent(name string, data map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, Event{Name: name, Data: cloneMap(data), At: time.Now()})
	c.logger.Info("event", zap.String("name", name))
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// flatEntry is one chronologically-ordered line of the flat trace log:
// either a span transition or a standalone event.
type flatEntry struct {
	at   time.Time
	kind string
	name string
}

func (c *Collector) flatEntriesLocked() []flatEntry {
	var entries []flatEntry
	for _, id := range c.order {
		s := c.spans[id]
		entries = append(entries, flatEntry{at: s.start, kind: "span_start", name: s.name})
		if s.status != spanOpen {
			entries = append(entries, flatEntry{at: s.end, kind: "span_end", name: s.name})
		}
	}
	for _, e := range c.events {
		entries = append(entries, flatEntry{at: e.At, kind: "event", name: e.Name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
	return entries
}

// EmitFlatTraceLog writes every span transition and event to the collector's
// zap logger in chronological order, per spec.md §4.12's flat trace-log
// output format.
func (c *Collector) EmitFlatTraceLog() {
	c.mu.Lock()
	entries := c.flatEntriesLocked()
	c.mu.Unlock()

	for _, e := range entries {
		c.logger.Info(e.kind,
			zap.String("name", e.name),
			zap.Duration("offset", e.at.Sub(c.startTime)),
		)
	}
}
