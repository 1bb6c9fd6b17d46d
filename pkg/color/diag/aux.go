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

import "go.uber.org/zap"

// NewWorkerCollector returns a Collector meant to run inside one worker
// goroutine of a pool: its span ids start at auxWorkerBaseID so they never
// collide with the main collector's own ids, per spec.md §4.12. The worker
// uses it exactly like a main-thread Collector and eventually hands its
// Serialize() snapshot to the main collector's Merge.
func NewWorkerCollector(logger *zap.Logger) *Collector {
	c := NewCollector(logger)
	c.nextID = auxWorkerBaseID
	return c
}

// AuxReport is what a worker sends back on its report channel: its
// complete diagnostics subtree plus the main-collector span it should be
// grafted under.
type AuxReport struct {
	Tree         SerializedTree
	ParentSpanID int
}

// NewAuxChannel returns a channel workers can report AuxReport values on,
// and a drain function the main collector calls (typically once, after the
// pool has drained and closed the channel) to merge every pending report.
func (c *Collector) NewAuxChannel(buffer int) (chan<- AuxReport, func()) {
	ch := make(chan AuxReport, buffer)
	drain := func() {
		for r := range ch {
			c.Merge(r.Tree, r.ParentSpanID)
		}
	}
	return ch, drain
}
