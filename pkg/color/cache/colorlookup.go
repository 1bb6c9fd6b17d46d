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

package cache

import "fmt"

// DefaultMaxColorCacheEntries bounds the color lookup cache, per spec.md §3.
const DefaultMaxColorCacheEntries = 50000

// ColorKey builds the per-color cache key, per spec.md §3:
// "<space>:<v1,v2,…>".
func ColorKey(space string, values []float64) string {
	s := space + ":"
	for i, v := range values {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%g", v)
	}
	return s
}

// PendingEntry is one queued-but-not-yet-converted color.
type PendingEntry struct {
	Space  string
	Values []float64
	Key    string
}

// ColorLookupCache is the per-converter color lookup cache described in
// spec.md §4.5: a config-fingerprint-keyed map of color-key to converted
// values, with a bounded size and FIFO eviction.
type ColorLookupCache struct {
	maxEntries int
	entries    map[string]map[string][]float64
	order      []entryRef // insertion order across all config buckets, for FIFO eviction
	pending    map[string][]PendingEntry
}

type entryRef struct {
	config string
	key    string
}

// NewColorLookupCache returns an empty cache bounded at maxEntries (use
// DefaultMaxColorCacheEntries when the caller has no specific need).
func NewColorLookupCache(maxEntries int) *ColorLookupCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxColorCacheEntries
	}
	return &ColorLookupCache{
		maxEntries: maxEntries,
		entries:    map[string]map[string][]float64{},
		pending:    map[string][]PendingEntry{},
	}
}

// LookupColor returns the cached conversion for (config, space, values), if any.
func (c *ColorLookupCache) LookupColor(config, space string, values []float64) ([]float64, bool) {
	bucket, ok := c.entries[config]
	if !ok {
		return nil, false
	}
	v, ok := bucket[ColorKey(space, values)]
	return v, ok
}

// RegisterColor queues (space, values) for batched conversion under config
// if it is neither cached nor already pending. Returns true if newly queued.
func (c *ColorLookupCache) RegisterColor(config, space string, values []float64) bool {
	key := ColorKey(space, values)

	if bucket, ok := c.entries[config]; ok {
		if _, ok := bucket[key]; ok {
			return false
		}
	}

	for _, p := range c.pending[config] {
		if p.Key == key {
			return false
		}
	}

	c.pending[config] = append(c.pending[config], PendingEntry{Space: space, Values: values, Key: key})
	return true
}

// Pending returns the queued entries for config, grouped by color space.
func (c *ColorLookupCache) Pending(config string) map[string][]PendingEntry {
	grouped := map[string][]PendingEntry{}
	for _, p := range c.pending[config] {
		grouped[p.Space] = append(grouped[p.Space], p)
	}
	return grouped
}

// ClearPending drops config's pending queue after the caller (the
// Content-Stream Converter) has stored the results via StoreColor.
func (c *ColorLookupCache) ClearPending(config string) {
	delete(c.pending, config)
}

// StoreColor records a converted color and evicts the oldest 10% of
// entries (across all config buckets, FIFO by insertion order) if the
// total size now exceeds maxEntries, per spec.md §4.5/§8 property 6.
func (c *ColorLookupCache) StoreColor(config, space string, values, converted []float64) {
	bucket, ok := c.entries[config]
	if !ok {
		bucket = map[string][]float64{}
		c.entries[config] = bucket
	}

	key := ColorKey(space, values)
	if _, exists := bucket[key]; !exists {
		c.order = append(c.order, entryRef{config: config, key: key})
	}
	bucket[key] = converted

	if c.Size() > c.maxEntries {
		c.evict()
	}
}

// Size returns the total number of cached color entries across all configs.
func (c *ColorLookupCache) Size() int {
	n := 0
	for _, bucket := range c.entries {
		n += len(bucket)
	}
	return n
}

// evict removes the oldest 10% of entries in insertion order, deleting any
// config bucket left empty.
func (c *ColorLookupCache) evict() {
	n := len(c.order) / 10
	if n == 0 {
		n = 1
	}
	if n > len(c.order) {
		n = len(c.order)
	}

	for i := 0; i < n; i++ {
		ref := c.order[i]
		if bucket, ok := c.entries[ref.config]; ok {
			delete(bucket, ref.key)
			if len(bucket) == 0 {
				delete(c.entries, ref.config)
			}
		}
	}
	c.order = c.order[n:]
}
