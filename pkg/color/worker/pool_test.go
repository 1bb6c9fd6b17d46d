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

package worker

import (
	"errors"
	"testing"

	"github.com/hhrutter/pdfcolor/pkg/color/convert"
	"github.com/hhrutter/pdfcolor/pkg/model"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func newRootConverter(t *testing.T) *convert.Converter {
	t.Helper()
	root, err := convert.NewConverter(model.ColorConfig{DestinationColorSpace: "Lab"})
	require.NoError(t, err)
	return root
}

func TestRunImageTasksPreservesCallerOrderAcrossWorkers(t *testing.T) {
	root := newRootConverter(t)
	pool := NewPool(root, 4)
	defer pool.Close()

	runs := make([]func(c *convert.Converter) (interface{}, error), 20)
	for i := 0; i < len(runs); i++ {
		i := i
		runs[i] = func(c *convert.Converter) (interface{}, error) {
			require.NotNil(t, c)
			return i * i, nil
		}
	}

	results := pool.RunImageTasks(runs)
	require.Len(t, results, len(runs))
	for i, r := range results {
		require.True(t, r.Success)
		require.Equal(t, i, r.TaskID)
		require.Equal(t, i*i, r.Value)
	}
}

func TestRunImageTasksCollectsPerTaskErrors(t *testing.T) {
	root := newRootConverter(t)
	pool := NewPool(root, 2)
	defer pool.Close()

	runs := []func(c *convert.Converter) (interface{}, error){
		func(c *convert.Converter) (interface{}, error) { return 1, nil },
		func(c *convert.Converter) (interface{}, error) { return nil, errBoom },
	}

	results := pool.RunImageTasks(runs)
	require.True(t, results[0].Success)
	require.False(t, results[1].Success)
	require.ErrorIs(t, results[1].Err, errBoom)
}

func TestNewPoolCoercesNonPositiveWorkerCount(t *testing.T) {
	root := newRootConverter(t)
	pool := NewPool(root, 0)
	defer pool.Close()

	results := pool.RunImageTasks([]func(c *convert.Converter) (interface{}, error){
		func(c *convert.Converter) (interface{}, error) { return "ok", nil },
	})
	require.Len(t, results, 1)
	require.True(t, results[0].Success)
}
