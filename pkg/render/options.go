package render

// RenderOptions carry per-request choices that do not belong in the view
// variables.
type RenderOptions struct {
	// Theme and Variant select a theme through the renderer's selector. Empty
	// values use the selector defaults.
	Theme   string
	Variant string
	// Suggestions lists theme hook suggestions, most specific first. The
	// renderer falls back to its base template when none resolve.
	Suggestions []string
}
