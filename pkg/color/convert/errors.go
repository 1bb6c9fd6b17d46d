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

// Package convert implements the Base Converter (C6), Image Converter
// (C7), and Content-Stream Converter (C8) described in spec.md §4.6-4.8.
package convert

import "github.com/pkg/errors"

var (
	// ErrMissingProfile is returned when a non-Lab color space has no
	// embedded or configured ICC profile to convert from.
	ErrMissingProfile = errors.New("pdfcolor: missing source profile for non-Lab color space")

	// ErrBadInput is returned when an image's declared dimensions/bit
	// depth/channel count are inconsistent with its buffer length.
	ErrBadInput = errors.New("pdfcolor: image buffer inconsistent with declared dimensions")

	// ErrPolicyRejected is returned when the policy disallows a requested
	// combination of source/destination/intent.
	ErrPolicyRejected = errors.New("pdfcolor: conversion policy rejected request")

	// ErrEngine wraps an error returned by the color engine itself.
	ErrEngine = errors.New("pdfcolor: color engine error")

	// ErrParseWarning marks a non-fatal content-stream parse anomaly.
	ErrParseWarning = errors.New("pdfcolor: content-stream parse warning")
)
