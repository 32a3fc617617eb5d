// Package markup separates trusted fragments from plain scalars. Values of type
// Markup (or anything implementing Safe) are inserted into templates verbatim;
// every other scalar is escaped with Escape, which mirrors the template
// engine's autoescape.
package markup
