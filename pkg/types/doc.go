// Package types defines the data shared by the Luppolo pipeline.
//
// This package contains type definitions for:
//   - Node: Abstract Syntax Tree nodes and their per-kind payloads
//   - Program: the linearized, serializable instruction form
//   - Error types: Structured errors with codes
package types
