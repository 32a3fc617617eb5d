// Package orchestrator wires the entity → preprocess → decorators → renderer
// pipeline, providing dependency injection friendly helpers for consumers
// that prefer a single entry point.
package orchestrator
