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

// Package filter contains the stream filters this module consumes to get at
// raw color samples: the PDF object model hands us compressed stream bytes
// and we need inflated ones, nothing more.
package filter

import (
	"io"

	"github.com/pkg/errors"

	"github.com/hhrutter/pdfcolor/pkg/log"
)

// PDF defines the following filters. Only the ones that can legally wrap
// an image or content stream's color samples are implemented here.
const (
	ASCII85  = "ASCII85Decode"
	ASCIIHex = "ASCIIHexDecode"
	LZW      = "LZWDecode"
	Flate    = "FlateDecode"
)

// ErrUnsupportedFilter signals an unsupported filter type.
var ErrUnsupportedFilter = errors.New("pdfcolor: filter not supported")

// Filter defines an interface for encoding/decoding buffers.
type Filter interface {
	Encode(r io.Reader) (io.Reader, error)
	Decode(r io.Reader) (io.Reader, error)
}

// NewFilter returns a filter for given filterName and an optional parameter dictionary.
func NewFilter(filterName string, parms map[string]int) (Filter, error) {

	switch filterName {

	case ASCII85:
		return ascii85Decode{baseFilter{}}, nil

	case ASCIIHex:
		return asciiHexDecode{baseFilter{}}, nil

	case LZW:
		return lzwDecode{baseFilter{parms}}, nil

	case Flate:
		return flate{baseFilter{parms}}, nil

	}

	log.Info.Printf("filter not supported: <%s>", filterName)
	return nil, ErrUnsupportedFilter
}

// List returns the list of all supported PDF filters.
func List() []string {
	return []string{ASCII85, ASCIIHex, LZW, Flate}
}

type baseFilter struct {
	parms map[string]int
}
