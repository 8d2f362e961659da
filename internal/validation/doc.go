// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

// Package validation validates API request structs with go-playground/validator.
//
// A single validator instance is shared process-wide. Field names in errors
// are the JSON names clients send, and custom tags cover profile input:
//
//	genre       non-blank after trimming
//	nickname    printable, no leading or trailing space
//
// Failures convert to the models.APIError envelope with code VALIDATION_ERROR.
package validation
