// Package openapi embeds the OpenAPI document for the Secret Santa API.
// It is imported by the HTTP server to serve the document at /openapi.yaml.
package openapi

import _ "embed"

// Document contains the raw bytes of openapi.yaml, embedded at compile time.
// Serving it from the binary keeps the published contract next to the code
// that implements it.
//
//go:embed openapi.yaml
var Document []byte
