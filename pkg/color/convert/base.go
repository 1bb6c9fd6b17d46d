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

package convert

import (
	"github.com/hhrutter/pdfcolor/pkg/color/cache"
	"github.com/hhrutter/pdfcolor/pkg/color/clut"
	"github.com/hhrutter/pdfcolor/pkg/color/engine"
	"github.com/hhrutter/pdfcolor/pkg/color/policy"
	"github.com/hhrutter/pdfcolor/pkg/log"
	"github.com/hhrutter/pdfcolor/pkg/model"
)

// PartialConfig overrides a subset of model.ColorConfig fields for one
// reference, per spec.md §3's "Per-Reference Override". Nil/zero-value
// pointer fields mean "inherit from the base config".
type PartialConfig struct {
	DestinationProfile     []byte
	DestinationColorSpace  *string
	RenderingIntent        *engine.RenderingIntent
	BlackPointCompensation *bool
}

func mergeConfig(base model.ColorConfig, p *PartialConfig) model.ColorConfig {
	if p == nil {
		return base
	}
	merged := base
	if p.DestinationProfile != nil {
		merged.DestinationProfile = p.DestinationProfile
	}
	if p.DestinationColorSpace != nil {
		merged.DestinationColorSpace = *p.DestinationColorSpace
	}
	if p.RenderingIntent != nil {
		merged.RenderingIntent = int(*p.RenderingIntent)
	}
	if p.BlackPointCompensation != nil {
		merged.BlackPointCompensation = *p.BlackPointCompensation
	}
	return merged
}

// referenceKey normalizes a PDF object reference into the key form
// spec.md §3 describes: "<objectNumber>-<generationNumber>".
func referenceKey(objNr, genNr int) string {
	return itoa(objNr) + "-" + itoa(genNr)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Converter is the Base Converter (C6): frozen configuration, per-reference
// overrides, a color engine provider, and the profile/transform and color
// lookup caches that every leaf converter (Image/ContentStream) drives its
// buffer conversions through.
type Converter struct {
	base       model.ColorConfig
	overrides  map[string]*PartialConfig
	provider   *engine.Provider
	profiles   *cache.ProfileCache
	colors     *cache.ColorLookupCache
	composites map[string]*clut.CompositeLUT
	parent     *Converter
}

// NewConverter constructs a root Base Converter for base.
func NewConverter(base model.ColorConfig) (*Converter, error) {
	provider := engine.NewProvider()
	if err := provider.Initialize(); err != nil {
		return nil, err
	}
	if err := provider.RequireVersion(base.EngineVersion); err != nil {
		return nil, err
	}

	return &Converter{
		base:       base,
		overrides:  map[string]*PartialConfig{},
		provider:   provider,
		profiles:   cache.NewProfileCache(provider),
		colors:     cache.NewColorLookupCache(cache.DefaultMaxColorCacheEntries),
		composites: map[string]*clut.CompositeLUT{},
	}, nil
}

// NewChildConverter returns a converter sharing this one's engine provider
// and color lookup cache but owning its own profile/transform cache,
// matching spec.md §4.6's "child creation" contract.
func (c *Converter) NewChildConverter(partial *PartialConfig) *Converter {
	return &Converter{
		base:       mergeConfig(c.base, partial),
		overrides:  map[string]*PartialConfig{},
		provider:   c.provider,
		profiles:   cache.NewProfileCache(c.provider),
		colors:     c.colors,
		composites: map[string]*clut.CompositeLUT{},
		parent:     c,
	}
}

// ConfigurationFor returns the effective, merged configuration for a PDF
// object reference (objNr, genNr).
func (c *Converter) ConfigurationFor(objNr, genNr int) model.ColorConfig {
	key := referenceKey(objNr, genNr)
	if p, ok := c.overrides[key]; ok {
		return mergeConfig(c.base, p)
	}
	return c.base
}

// SetConfigurationFor installs a per-reference override.
func (c *Converter) SetConfigurationFor(objNr, genNr int, partial *PartialConfig) {
	c.overrides[referenceKey(objNr, genNr)] = partial
}

// ColorSpaceCode maps a normalized color-space name to the policy's
// packed-format color-space code.
func ColorSpaceCode(name string) int {
	switch name {
	case "DeviceGray", "CalGray", "sGray", "Gray":
		return policy.CSGray
	case "DeviceRGB", "CalRGB", "sRGB", "RGB":
		return policy.CSRGB
	case "DeviceCMYK", "CMYK":
		return policy.CSCMYK
	case "Lab":
		return policy.CSLab
	default:
		return 0
	}
}

// Dispose releases this converter's caches, child-before-parent discipline
// is the caller's responsibility (dispose children first).
func (c *Converter) Dispose() {
	c.profiles.Dispose()
}

// profileKeyFor returns the profile cache key for a color space: the
// built-in "Lab"/"sRGB" names, or an embedded-bytes fingerprint.
func profileKeyFor(colorSpace string, profileBytes []byte) string {
	if colorSpace == "Lab" {
		return "Lab"
	}
	if len(profileBytes) == 0 {
		return "sRGB"
	}
	return cache.ProfileKey(profileBytes)
}

// configFingerprint returns the color lookup cache's bucket key for conf,
// per spec.md §3: "<destinationProfileKey>|<intent>|<bpc>".
func configFingerprint(conf model.ColorConfig) string {
	key := profileKeyFor(conf.DestinationColorSpace, conf.DestinationProfile)
	bpc := 0
	if conf.BlackPointCompensation {
		bpc = 1
	}
	return key + "|" + itoa(conf.RenderingIntent) + "|" + itoa(bpc)
}

func logf(conf model.ColorConfig, format string, args ...interface{}) {
	if conf.Verbose {
		log.Info.Printf(format, args...)
	} else {
		log.Debug.Printf(format, args...)
	}
}
