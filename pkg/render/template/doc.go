// Package template defines the renderer-agnostic template seam. The pongo
// subpackage provides the sandboxed pongo2 implementation.
package template
