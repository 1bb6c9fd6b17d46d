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

// BufferRegistry tracks shared byte-buffer views keyed on a stable PDF
// object identity ("<objNr>-<genNr>"), standing in for the weak-map the
// distilled spec describes — Go has no weak-collection primitive, so
// buffers are released explicitly via Release rather than via GC
// finalizers (see SPEC_FULL.md §9).
type BufferRegistry struct {
	buffers map[string][]byte
	total   int
}

// NewBufferRegistry returns an empty registry.
func NewBufferRegistry() *BufferRegistry {
	return &BufferRegistry{buffers: map[string][]byte{}}
}

// Store registers b under ref, replacing any prior buffer for ref.
func (r *BufferRegistry) Store(ref string, b []byte) {
	if old, ok := r.buffers[ref]; ok {
		r.total -= len(old)
	}
	r.buffers[ref] = b
	r.total += len(b)
}

// View returns the buffer registered under ref, if any.
func (r *BufferRegistry) View(ref string) ([]byte, bool) {
	b, ok := r.buffers[ref]
	return b, ok
}

// Release drops the buffer registered under ref.
func (r *BufferRegistry) Release(ref string) {
	if b, ok := r.buffers[ref]; ok {
		r.total -= len(b)
		delete(r.buffers, ref)
	}
}

// Count returns the number of buffers currently tracked.
func (r *BufferRegistry) Count() int { return len(r.buffers) }

// TotalBytes returns the sum of all tracked buffer lengths.
func (r *BufferRegistry) TotalBytes() int { return r.total }
