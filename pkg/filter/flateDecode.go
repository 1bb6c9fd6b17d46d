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
	"compress/zlib"
	"io"

	"github.com/pkg/errors"

	"github.com/hhrutter/pdfcolor/pkg/log"
)

// PDF allows a prediction step prior to compression applying TIFF or PNG prediction.
const (
	PredictorNo      = 1
	PredictorTIFF    = 2
	PredictorNone    = 10
	PredictorSub     = 11
	PredictorUp      = 12
	PredictorAverage = 13
	PredictorPaeth   = 14
	PredictorOptimum = 15
)

const (
	pngNone    = 0x00
	pngSub     = 0x01
	pngUp      = 0x02
	pngAverage = 0x03
	pngPaeth   = 0x04
)

type flate struct {
	baseFilter
}

// Encode implements encoding for a Flate filter.
func (f flate) Encode(r io.Reader) (io.Reader, error) {

	log.Trace.Println("EncodeFlate begin")

	var b bytes.Buffer
	w := zlib.NewWriter(&b)

	written, err := io.Copy(w, r)
	if err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	log.Trace.Printf("EncodeFlate end: %d bytes written\n", written)

	return &b, nil
}

// Decode implements decoding for a Flate filter.
func (f flate) Decode(r io.Reader) (io.Reader, error) {

	log.Trace.Println("DecodeFlate begin")

	rc, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return f.decodePostProcess(rc)
}

func passThru(rin io.Reader) (*bytes.Buffer, error) {
	var b bytes.Buffer
	_, err := io.Copy(&b, rin)
	return &b, err
}

func intMemberOf(i int, list []int) bool {
	for _, v := range list {
		if i == v {
			return true
		}
	}
	return false
}

func applyHorDiff(row []byte, colors int) []byte {
	// TIFF prediction, 8 bits per color only.
	for i := 1; i < len(row)/colors; i++ {
		for j := 0; j < colors; j++ {
			row[i*colors+j] += row[(i-1)*colors+j]
		}
	}
	return row
}

func processRow(pr, cr []byte, p, bytesPerPixel int) []byte {

	if p == PredictorTIFF {
		return cr
	}

	cdat := cr[1:]
	pdat := pr[1:]
	f := int(cr[0])

	switch f {

	case pngNone:

	case pngSub:
		for i := bytesPerPixel; i < len(cdat); i++ {
			cdat[i] += cdat[i-bytesPerPixel]
		}

	case pngUp:
		for i, p := range pdat {
			cdat[i] += p
		}

	case pngAverage:
		for i := 0; i < bytesPerPixel; i++ {
			cdat[i] += pdat[i] / 2
		}
		for i := bytesPerPixel; i < len(cdat); i++ {
			cdat[i] += byte((int(cdat[i-bytesPerPixel]) + int(pdat[i])) / 2)
		}

	case pngPaeth:
		filterPaeth(cdat, pdat, bytesPerPixel)
	}

	return cdat
}

func filterPaeth(cdat, pdat []byte, bpp int) {
	for i := 0; i < bpp; i++ {
		cdat[i] += paeth(0, pdat[i], 0)
	}
	for i := bpp; i < len(cdat); i++ {
		cdat[i] += paeth(cdat[i-bpp], pdat[i], pdat[i-bpp])
	}
}

func paeth(a, b, c byte) byte {
	pp := int(a) + int(b) - int(c)
	pa := abs(pp - int(a))
	pb := abs(pp - int(b))
	pc := abs(pp - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

func (f flate) parameters() (colors, bpc, columns int, err error) {

	colors, found := f.parms["Colors"]
	if !found {
		colors = 1
	} else if colors == 0 {
		return 0, 0, 0, errors.Errorf("pdfcolor: filter FlateDecode: \"Colors\" must be > 0")
	}

	bpc, found = f.parms["BitsPerComponent"]
	if !found {
		bpc = 8
	} else if !intMemberOf(bpc, []int{1, 2, 4, 8, 16}) {
		return 0, 0, 0, errors.Errorf("pdfcolor: filter FlateDecode: unexpected \"BitsPerComponent\": %d", bpc)
	}

	columns, found = f.parms["Columns"]
	if !found {
		columns = 1
	}

	return colors, bpc, columns, nil
}

// decodePostProcess applies the FlateDecode predictor, if one was declared.
func (f flate) decodePostProcess(r io.Reader) (io.Reader, error) {

	predictor, found := f.parms["Predictor"]
	if !found || predictor == PredictorNo {
		return passThru(r)
	}

	if !intMemberOf(predictor, []int{PredictorTIFF, PredictorNone, PredictorSub, PredictorUp, PredictorAverage, PredictorPaeth, PredictorOptimum}) {
		return nil, errors.Errorf("pdfcolor: filter FlateDecode: undefined \"Predictor\" %d", predictor)
	}

	colors, bpc, columns, err := f.parameters()
	if err != nil {
		return nil, err
	}

	bytesPerPixel := (bpc*colors + 7) / 8
	rowSize := bpc * colors * columns / 8
	if predictor != PredictorTIFF {
		rowSize++
	}

	cr := make([]byte, rowSize)
	pr := make([]byte, rowSize)

	var b bytes.Buffer

	for {
		n, err := io.ReadFull(r, cr)
		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			if n == 0 {
				break
			}
		}

		if n != rowSize {
			return nil, errors.Errorf("pdfcolor: filter FlateDecode: read error, expected %d bytes, got: %d", rowSize, n)
		}

		d := processRow(pr, cr, predictor, bytesPerPixel)
		if predictor == PredictorTIFF {
			d = applyHorDiff(d, colors)
		}

		if _, err := b.Write(d); err != nil {
			return nil, err
		}

		if err == io.EOF {
			break
		}

		pr, cr = cr, pr
	}

	return &b, nil
}
