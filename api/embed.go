// Package api embeds the OpenAPI specification so the server can serve it
// at /openapi.yaml without a filesystem dependency.
package api

import _ "embed"

// OpenAPISpec is the raw OpenAPI 3.1 YAML description of the PolicyPulse API.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
