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

// Package cache implements the Profile & Transform Cache (spec.md §4.3)
// and the Buffer/Color Lookup Registry (spec.md §4.5).
package cache

import (
	"fmt"

	"github.com/hhrutter/pdfcolor/pkg/color/engine"
	"github.com/hhrutter/pdfcolor/pkg/log"
)

// ProfileKey returns the caching fingerprint for embedded ICC profile
// bytes, per spec.md §3: "buf:<byteLength>:<firstByte>:<lastByte>".
func ProfileKey(b []byte) string {
	if len(b) == 0 {
		return "buf:0:0:0"
	}
	return fmt.Sprintf("buf:%d:%d:%d", len(b), b[0], b[len(b)-1])
}

// ProfileCache caches opened engine profiles by fingerprint, and
// transforms by a fingerprint built from their component parts. Owned by
// exactly one converter; never shared for writes across goroutines (see
// SPEC_FULL.md §5 — each worker owns its own cache instance).
type ProfileCache struct {
	provider   *engine.Provider
	profiles   map[string]*engine.Profile
	transforms map[string]*engine.Transform
}

// NewProfileCache returns an empty cache bound to provider.
func NewProfileCache(provider *engine.Provider) *ProfileCache {
	return &ProfileCache{
		provider:   provider,
		profiles:   map[string]*engine.Profile{},
		transforms: map[string]*engine.Transform{},
	}
}

// Profile returns the cached profile for key, opening it from b on a miss.
// key == "Lab" and key == "sRGB" are handled as the built-in profiles;
// any other key is treated as embedded ICC bytes.
func (c *ProfileCache) Profile(key string, b []byte) (*engine.Profile, error) {
	if p, ok := c.profiles[key]; ok {
		return p, nil
	}

	var p *engine.Profile
	var err error
	switch key {
	case "Lab":
		p, err = c.provider.CreateLabD50Profile()
	case "sRGB":
		p, err = c.provider.CreateSRGBProfile()
	default:
		p, err = c.provider.OpenProfileFromMem(b)
	}
	if err != nil {
		return nil, err
	}

	c.profiles[key] = p
	log.Debug.Printf("pdfcolor: opened profile %s\n", key)
	return p, nil
}

// TransformKey builds the fingerprint for a single transform, per spec.md
// §3: concatenation of source fingerprint, destination fingerprint, and
// intent.
func TransformKey(srcKey, dstKey string, intent engine.RenderingIntent) string {
	return fmt.Sprintf("%s|%s|%d", srcKey, dstKey, intent)
}

// MultiTransformKey builds the fingerprint for a multi-profile transform,
// per spec.md §3: "multi:" prefix joining all profile fingerprints.
func MultiTransformKey(profileKeys []string, intent engine.RenderingIntent) string {
	s := "multi:"
	for i, k := range profileKeys {
		if i > 0 {
			s += ","
		}
		s += k
	}
	return fmt.Sprintf("%s|%d", s, intent)
}

// Transform returns the cached transform for key, creating it from src/dst
// on a miss.
func (c *ProfileCache) Transform(key string, src, dst *engine.Profile, intent engine.RenderingIntent) (*engine.Transform, error) {
	if t, ok := c.transforms[key]; ok {
		return t, nil
	}

	t, err := c.provider.CreateTransform(src, dst, intent)
	if err != nil {
		return nil, err
	}

	c.transforms[key] = t
	return t, nil
}

// StoreTransform inserts a pre-built transform (e.g. a composite LUT from
// pkg/color/clut) under key.
func (c *ProfileCache) StoreTransform(key string, t *engine.Transform) {
	c.transforms[key] = t
}

// LookupTransform returns a previously cached transform, if any.
func (c *ProfileCache) LookupTransform(key string) (*engine.Transform, bool) {
	t, ok := c.transforms[key]
	return t, ok
}

// Dispose releases every cached transform, then every cached profile, in
// that order, matching spec.md §4.3's "handles must never be closed while
// a transform referencing them is live" discipline.
func (c *ProfileCache) Dispose() {
	for k, t := range c.transforms {
		c.provider.DeleteTransform(t)
		delete(c.transforms, k)
	}
	for k, p := range c.profiles {
		c.provider.CloseProfile(p)
		delete(c.profiles, k)
	}
}
