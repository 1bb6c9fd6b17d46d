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

package model

const (
	// ValidationStrict ensures 100% compliance with the PDF spec.
	ValidationStrict int = iota

	// ValidationRelaxed tolerates frequently encountered deviations.
	ValidationRelaxed
)

// ColorConfig carries the color-conversion run configuration. It is kept as
// its own named type (rather than embedded anonymous fields) so that
// pkg/color/document can import it without creating an import cycle back
// into pkg/model.
type ColorConfig struct {
	DestinationProfile             []byte
	DestinationColorSpace          string
	RenderingIntent                int
	BlackPointCompensation         bool
	BlackpointCompensationClamping bool
	ConvertImages                  bool
	ConvertContentStreams          bool
	UseWorkers                     bool
	WorkerCount                    int
	EngineVersion                  int
	SourceRGBProfile                []byte
	SourceGrayProfile               []byte
	UseAdaptiveBPCClamping          bool
	CoerceLabAbsoluteZeroPixels     bool
	Verbose                         bool
}

// Configuration is the minimal run configuration this module needs,
// trimmed from pkg/pdfcpu/model.Configuration: no Unit (no page-geometry
// rendering here), no permission/encryption fields, no CommandMode.
type Configuration struct {
	ValidationMode int
	ColorConfig    ColorConfig
}

// NewDefaultConfiguration returns a Configuration with pdfcpu's own
// relaxed-validation default and a zero-value ColorConfig (callers must
// still set a destination profile/color space before running a conversion).
func NewDefaultConfiguration() *Configuration {
	return &Configuration{
		ValidationMode: ValidationRelaxed,
	}
}
