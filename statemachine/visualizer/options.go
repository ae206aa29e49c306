package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowHandlers marks handler states in their node labels.
	ShowHandlers bool

	// ShowPreconditions adds precondition names to transition labels.
	ShowPreconditions bool

	// Direction controls diagram flow: "TD" (top-down) or "LR" (left-right)
	Direction string

	// HighlightPath highlights a specific state path through the diagram
	HighlightPath []string
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowHandlers:      true,
		ShowPreconditions: true,
		Direction:         "TD",
	}
}

// WithShowHandlers enables/disables handler markers.
func (o Options) WithShowHandlers(show bool) Options {
	o.ShowHandlers = show

	return o
}

// WithShowPreconditions enables/disables precondition guards.
func (o Options) WithShowPreconditions(show bool) Options {
	o.ShowPreconditions = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}
