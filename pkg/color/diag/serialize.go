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

package diag

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SpanRecord is one span in a Serialize() snapshot. StartOffset/EndOffset
// are durations relative to the owning collector's start time, so a Merge
// into another collector only has to add a single offset to relocate them.
type SpanRecord struct {
	ID          int                    `json:"id"`
	ParentID    int                    `json:"parentId"`
	Name        string                 `json:"name"`
	Status      string                 `json:"status"`
	Attrs       map[string]interface{} `json:"attrs,omitempty"`
	Metrics     map[string]float64     `json:"metrics,omitempty"`
	AbortInfo   map[string]interface{} `json:"abortInfo,omitempty"`
	StartOffset time.Duration          `json:"startOffset"`
	EndOffset   time.Duration          `json:"endOffset,omitempty"`
	Children    []int                  `json:"children,omitempty"`
}

// EventRecord is one RecordEvent call in a Serialize() snapshot.
type EventRecord struct {
	Name   string                 `json:"name"`
	Data   map[string]interface{} `json:"data,omitempty"`
	Offset time.Duration          `json:"offset"`
}

// SerializedTree is the self-contained snapshot Serialize returns and Merge
// consumes, per spec.md §4.12's "auxiliary worker reports its subtree back
// for merging" contract.
type SerializedTree struct {
	StartTime time.Time          `json:"startTime"`
	Spans     []SpanRecord       `json:"spans"`
	Events    []EventRecord      `json:"events"`
	Counters  map[string]float64 `json:"counters,omitempty"`
}

func statusString(s spanStatus) string {
	switch s {
	case spanEnded:
		return "ended"
	case spanAborted:
		return "aborted"
	default:
		return "open"
	}
}

// Serialize snapshots the full span tree, event log and counters for
// transport to another collector (typically the main collector gathering a
// worker's subtree) or for direct hierarchical JSON emission.
func (c *Collector) Serialize() SerializedTree {
	c.mu.Lock()
	defer c.mu.Unlock()

	tree := SerializedTree{
		StartTime: c.startTime,
		Counters:  make(map[string]float64, len(c.counters)),
	}
	for k, v := range c.counters {
		tree.Counters[k] = v
	}

	for _, id := range c.order {
		s := c.spans[id]
		rec := SpanRecord{
			ID:          s.id,
			ParentID:    s.parentID,
			Name:        s.name,
			Status:      statusString(s.status),
			Attrs:       s.attrs,
			Metrics:     s.metrics,
			AbortInfo:   s.abortInfo,
			StartOffset: s.start.Sub(c.startTime),
			Children:    append([]int(nil), s.children...),
		}
		if s.status != spanOpen {
			rec.EndOffset = s.end.Sub(c.startTime)
		}
		tree.Spans = append(tree.Spans, rec)
	}

	for _, e := range c.events {
		tree.Events = append(tree.Events, EventRecord{
			Name:   e.Name,
			Data:   e.Data,
			Offset: e.At.Sub(c.startTime),
		})
	}

	return tree
}

// Merge absorbs sub (typically a worker's Serialize output) into c,
// remapping every span id sub carries to a fresh id in c's own space —
// undoing the auxWorkerBaseID isolation — and re-parenting sub's former
// root spans (ParentID == -1) under parentSpanID. Timestamps are shifted
// by the wall-clock difference between the two collectors' start times so
// everything lands on c's single timeline.
func (c *Collector) Merge(sub SerializedTree, parentSpanID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	offset := sub.StartTime.Sub(c.startTime)
	idMap := make(map[int]int, len(sub.Spans))

	for _, rec := range sub.Spans {
		newID := c.nextID
		c.nextID++
		idMap[rec.ID] = newID
	}

	for _, rec := range sub.Spans {
		newID := idMap[rec.ID]
		parentID := parentSpanID
		if rec.ParentID != -1 {
			if mapped, ok := idMap[rec.ParentID]; ok {
				parentID = mapped
			}
		}

		s := &span{
			id:        newID,
			parentID:  parentID,
			name:      rec.Name,
			attrs:     rec.Attrs,
			metrics:   rec.Metrics,
			abortInfo: rec.AbortInfo,
			start:     c.startTime.Add(offset + rec.StartOffset),
		}
		switch rec.Status {
		case "ended":
			s.status = spanEnded
			s.end = c.startTime.Add(offset + rec.EndOffset)
		case "aborted":
			s.status = spanAborted
			s.end = c.startTime.Add(offset + rec.EndOffset)
		default:
			s.status = spanOpen
		}
		for _, childOld := range rec.Children {
			if mapped, ok := idMap[childOld]; ok {
				s.children = append(s.children, mapped)
			}
		}

		c.spans[newID] = s
		c.order = append(c.order, newID)
	}

	if parent, ok := c.spans[parentSpanID]; ok {
		for _, rec := range sub.Spans {
			if rec.ParentID == -1 {
				parent.children = append(parent.children, idMap[rec.ID])
			}
		}
	}

	for _, e := range sub.Events {
		c.events = append(c.events, Event{
			Name: e.Name,
			Data: e.Data,
			At:   c.startTime.Add(offset + e.Offset),
		})
	}

	for k, v := range sub.Counters {
		c.counters[k] += v
	}
}

// MarshalHierarchicalJSON renders Serialize()'s snapshot as the machine
// JSON format spec.md §4.12 calls for: the full span tree plus events and
// counters, nested by parent/child rather than the flat record list
// SerializedTree stores internally, with each span's "time" (self) and
// "time (inc)" (inclusive) metrics computed from its start/end offsets.
func (c *Collector) MarshalHierarchicalJSON() ([]byte, error) {
	tree := c.Serialize()
	byID := make(map[int]*jsonSpan, len(tree.Spans))
	for _, r := range tree.Spans {
		js := &jsonSpan{SpanRecord: r}
		js.Metrics = cloneMetrics(r.Metrics)
		byID[r.ID] = js
	}
	var roots []*jsonSpan
	for _, r := range tree.Spans {
		js := byID[r.ID]
		if r.ParentID == -1 {
			roots = append(roots, js)
			continue
		}
		if parent, ok := byID[r.ParentID]; ok {
			parent.Nested = append(parent.Nested, js)
		} else {
			roots = append(roots, js)
		}
	}

	for _, root := range roots {
		computeSpanTimes(root)
	}

	out := jsonDocument{
		StartTime: tree.StartTime,
		Roots:     roots,
		Events:    tree.Events,
		Counters:  tree.Counters,
	}
	return json.MarshalIndent(out, "", "  ")
}

func cloneMetrics(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// computeSpanTimes fills in js's "time"/"time (inc)" metrics and returns
// its inclusive duration, recursing depth-first so every child's
// inclusive time is known before its parent's self-time is derived.
func computeSpanTimes(js *jsonSpan) time.Duration {
	inclusive := js.EndOffset - js.StartOffset
	if js.Status == "open" {
		inclusive = 0
	}

	var childrenInclusive time.Duration
	for _, child := range js.Nested {
		childrenInclusive += computeSpanTimes(child)
	}

	self := inclusive - childrenInclusive
	if self < 0 {
		self = 0
	}

	js.Metrics["time"] = self.Seconds()
	js.Metrics["time (inc)"] = inclusive.Seconds()

	return inclusive
}

type jsonSpan struct {
	SpanRecord
	Nested []*jsonSpan `json:"children,omitempty"`
}

type jsonDocument struct {
	StartTime time.Time          `json:"startTime"`
	Roots     []*jsonSpan        `json:"roots"`
	Events    []EventRecord      `json:"events,omitempty"`
	Counters  map[string]float64 `json:"counters,omitempty"`
}

// HumanTree renders the span hierarchy as an ASCII tree for interactive
// use, per spec.md §4.12's human-readable output format.
func (c *Collector) HumanTree() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var roots []int
	for _, id := range c.order {
		if c.spans[id].parentID == -1 {
			roots = append(roots, id)
		}
	}

	var b strings.Builder
	for i, id := range roots {
		c.writeTreeLocked(&b, id, "", i == len(roots)-1)
	}
	return b.String()
}

func (c *Collector) writeTreeLocked(b *strings.Builder, id int, prefix string, last bool) {
	s := c.spans[id]
	branch := "├── "
	childPrefix := prefix + "│   "
	if last {
		branch = "└── "
		childPrefix = prefix + "    "
	}

	dur := ""
	if s.status != spanOpen {
		dur = fmt.Sprintf(" (%s, %s)", statusString(s.status), s.end.Sub(s.start))
	} else {
		dur = " (open)"
	}
	fmt.Fprintf(b, "%s%s%s%s\n", prefix, branch, s.name, dur)

	for i, cid := range s.children {
		c.writeTreeLocked(b, cid, childPrefix, i == len(s.children)-1)
	}
}
