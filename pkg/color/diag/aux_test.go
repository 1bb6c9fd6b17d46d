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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWorkerCollectorStartsIDsAtAuxBase(t *testing.T) {
	w := NewWorkerCollector(nil)
	h := w.StartSpan("convert-image", nil)

	require.Equal(t, auxWorkerBaseID, h.ID)
}

func TestNewAuxChannelDrainMergesReportedSubtrees(t *testing.T) {
	main := NewCollector(nil)
	root := main.StartSpan("document", nil)

	ch, drain := main.NewAuxChannel(2)

	worker := NewWorkerCollector(nil)
	wh := worker.StartSpan("convert-image", nil)
	worker.EndSpan(wh, map[string]float64{"pixels": 3})

	ch <- AuxReport{Tree: worker.Serialize(), ParentSpanID: root.ID}
	close(ch)
	drain()

	require.Len(t, main.spans, 2)
}
