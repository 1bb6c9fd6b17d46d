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

package filter

import (
	"bytes"
	"io"

	"github.com/hhrutter/lzw"
	"github.com/pkg/errors"

	"github.com/hhrutter/pdfcolor/pkg/log"
)

type lzwDecode struct {
	baseFilter
}

// Encode implements encoding for an LZW filter.
func (f lzwDecode) Encode(r io.Reader) (io.Reader, error) {

	log.Trace.Println("EncodeLZW begin")

	earlyChange := 1
	if ec, found := f.parms["EarlyChange"]; found {
		earlyChange = ec
	}

	var b bytes.Buffer
	w := lzw.NewWriter(&b, earlyChange == 1)

	if _, err := io.Copy(w, r); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	log.Trace.Println("EncodeLZW end")

	return &b, nil
}

// Decode implements decoding for an LZW filter.
func (f lzwDecode) Decode(r io.Reader) (io.Reader, error) {

	log.Trace.Println("DecodeLZW begin")

	if p, found := f.parms["Predictor"]; found && p > 1 {
		return nil, errors.Errorf("pdfcolor: filter LZWDecode: unsupported \"Predictor\" %d", p)
	}

	earlyChange := 1
	if ec, found := f.parms["EarlyChange"]; found {
		earlyChange = ec
	}

	rc := lzw.NewReader(r, earlyChange == 1)
	defer rc.Close()

	return passThru(rc)
}
