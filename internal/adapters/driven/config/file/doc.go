// Package file provides the TOML-backed configuration store.
//
// Settings live in ~/.recall/config.toml by default. Nested tables are
// flattened into dot-notation keys on load, so "[embedding]\nmodel = ..."
// and Set("embedding.model", ...) address the same value.
package file
