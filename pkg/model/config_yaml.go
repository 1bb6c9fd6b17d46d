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

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// yamlColorConfig mirrors ColorConfig with lower-cased yaml tags, following
// the same deck-of-fields approach as pdfcpu's own config.yml loading.
type yamlColorConfig struct {
	DestinationProfilePath          string `yaml:"destinationProfilePath"`
	DestinationColorSpace           string `yaml:"destinationColorSpace"`
	RenderingIntent                 int    `yaml:"renderingIntent"`
	BlackPointCompensation          bool   `yaml:"blackPointCompensation"`
	BlackpointCompensationClamping  bool   `yaml:"blackpointCompensationClamping"`
	ConvertImages                   bool   `yaml:"convertImages"`
	ConvertContentStreams           bool   `yaml:"convertContentStreams"`
	UseWorkers                      bool   `yaml:"useWorkers"`
	WorkerCount                     int    `yaml:"workerCount"`
	EngineVersion                   int    `yaml:"engineVersion"`
	SourceRGBProfilePath            string `yaml:"sourceRGBProfilePath"`
	SourceGrayProfilePath           string `yaml:"sourceGrayProfilePath"`
	UseAdaptiveBPCClamping          bool   `yaml:"useAdaptiveBPCClamping"`
	CoerceLabAbsoluteZeroPixels     bool   `yaml:"coerceLabAbsoluteZeroPixels"`
	Verbose                         bool   `yaml:"verbose"`
}

type yamlConfiguration struct {
	ValidationMode string          `yaml:"validationMode"`
	Color          yamlColorConfig `yaml:"color"`
}

// LoadConfig reads a YAML configuration file into a Configuration, for
// CLI-less test harnesses and benchmarks. Profile byte slices are loaded
// from the paths given in the YAML document; a path left empty leaves the
// corresponding ColorConfig field nil.
func LoadConfig(path string) (*Configuration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "pdfcolor: reading config file %q", path)
	}

	var y yamlConfiguration
	if err := yaml.Unmarshal(b, &y); err != nil {
		return nil, errors.Wrapf(err, "pdfcolor: parsing config file %q", path)
	}

	conf := NewDefaultConfiguration()
	if y.ValidationMode == "strict" {
		conf.ValidationMode = ValidationStrict
	}

	cc := ColorConfig{
		DestinationColorSpace:          y.Color.DestinationColorSpace,
		RenderingIntent:                y.Color.RenderingIntent,
		BlackPointCompensation:         y.Color.BlackPointCompensation,
		BlackpointCompensationClamping: y.Color.BlackpointCompensationClamping,
		ConvertImages:                  y.Color.ConvertImages,
		ConvertContentStreams:          y.Color.ConvertContentStreams,
		UseWorkers:                     y.Color.UseWorkers,
		WorkerCount:                    y.Color.WorkerCount,
		EngineVersion:                  y.Color.EngineVersion,
		UseAdaptiveBPCClamping:         y.Color.UseAdaptiveBPCClamping,
		CoerceLabAbsoluteZeroPixels:    y.Color.CoerceLabAbsoluteZeroPixels,
		Verbose:                        y.Color.Verbose,
	}

	if y.Color.DestinationProfilePath != "" {
		b, err := os.ReadFile(y.Color.DestinationProfilePath)
		if err != nil {
			return nil, errors.Wrapf(err, "pdfcolor: reading destination profile %q", y.Color.DestinationProfilePath)
		}
		cc.DestinationProfile = b
	}
	if y.Color.SourceRGBProfilePath != "" {
		b, err := os.ReadFile(y.Color.SourceRGBProfilePath)
		if err != nil {
			return nil, errors.Wrapf(err, "pdfcolor: reading source RGB profile %q", y.Color.SourceRGBProfilePath)
		}
		cc.SourceRGBProfile = b
	}
	if y.Color.SourceGrayProfilePath != "" {
		b, err := os.ReadFile(y.Color.SourceGrayProfilePath)
		if err != nil {
			return nil, errors.Wrapf(err, "pdfcolor: reading source Gray profile %q", y.Color.SourceGrayProfilePath)
		}
		cc.SourceGrayProfile = b
	}

	conf.ColorConfig = cc
	return conf, nil
}
