//go:build tools

package tools

// Pins the code generator for api/openapi.yaml and the goose CLI used to run
// internal/adapters/postgres/migrations by hand.
import (
	_ "github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen"
	_ "github.com/pressly/goose/v3/cmd/goose"
)
