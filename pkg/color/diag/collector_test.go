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

func TestStartSpanNestsUnderCurrentSpanByDefault(t *testing.T) {
	c := NewCollector(nil)

	root := c.StartSpan("document", nil)
	child := c.StartSpan("page", nil)

	require.Equal(t, root.ID, c.spans[child.ID].parentID)
}

func TestStartNestedSpanDoesNotDisturbCurrentSpan(t *testing.T) {
	c := NewCollector(nil)

	root := c.StartSpan("document", nil)
	detached := c.StartNestedSpan(root, "aux-worker", nil)
	sibling := c.StartSpan("page", nil)

	require.Equal(t, root.ID, c.spans[detached.ID].parentID)
	require.Equal(t, root.ID, c.spans[sibling.ID].parentID)
	require.NotEqual(t, detached.ID, sibling.ID)
}

func TestEndSpanRevertsCurrentSpanToParent(t *testing.T) {
	c := NewCollector(nil)

	root := c.StartSpan("document", nil)
	child := c.StartSpan("page", nil)
	c.EndSpan(child, nil)

	require.Equal(t, root.ID, c.currentID)
	require.Equal(t, spanEnded, c.spans[child.ID].status)
}

func TestUpdateSpanRoutesNumbersToMetricsAndRestToAttrs(t *testing.T) {
	c := NewCollector(nil)
	h := c.StartSpan("image", nil)

	c.UpdateSpan(h, map[string]interface{}{
		"pixelsConverted": 42,
		"colorSpace":      "DeviceRGB",
	})

	s := c.spans[h.ID]
	require.Equal(t, 42.0, s.metrics["pixelsConverted"])
	require.Equal(t, "DeviceRGB", s.attrs["colorSpace"])
}

func TestAbortSpanRecordsReasonAndRevertsCurrent(t *testing.T) {
	c := NewCollector(nil)
	root := c.StartSpan("document", nil)
	h := c.StartSpan("page", nil)

	c.AbortSpan(h, "cancelled")

	s := c.spans[h.ID]
	require.Equal(t, spanAborted, s.status)
	require.Equal(t, "cancelled", s.abortInfo["reason"])
	require.Equal(t, root.ID, c.currentID)
}

func TestIncrementCounterDefaultsDeltaToOne(t *testing.T) {
	c := NewCollector(nil)
	c.IncrementCounter("imagesConverted")
	c.IncrementCounter("imagesConverted")
	c.IncrementCounter("imagesConverted", 3)

	require.Equal(t, 5.0, c.counters["imagesConverted"])
}

func TestRecordEventAppendsToEventLog(t *testing.T) {
	c := NewCollector(nil)
	c.RecordEvent("profile-cache-miss", map[string]interface{}{"key": "Lab"})

	require.Len(t, c.events, 1)
	require.Equal(t, "profile-cache-miss", c.events[0].Name)
}

func TestEndSpanIsNoOpOnAlreadyClosedSpan(t *testing.T) {
	c := NewCollector(nil)
	h := c.StartSpan("page", nil)
	c.EndSpan(h, map[string]float64{"duration": 1})
	c.EndSpan(h, map[string]float64{"duration": 2})

	require.Equal(t, 1.0, c.spans[h.ID].metrics["duration"])
}
