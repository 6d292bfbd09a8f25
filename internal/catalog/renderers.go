package catalog

import "fmt"

// RendererTable maps each model id to the renderer resource that draws it.
// R is whatever handle the rendering collaborator uses (a GL program and
// mesh, a test double, ...).
type RendererTable[R any] struct {
	byID map[ModelID]R
}

// NewRendererTable builds one renderer per catalog entry with build.
func NewRendererTable[R any](c *Catalog, build func(Model) (R, error)) (*RendererTable[R], error) {
	t := &RendererTable[R]{byID: make(map[ModelID]R, c.Len())}
	for _, m := range c.Models() {
		r, err := build(m)
		if err != nil {
			return nil, fmt.Errorf("build renderer for %q: %w", m.ID, err)
		}
		t.byID[m.ID] = r
	}
	return t, nil
}

// Register adds or replaces the renderer for id.
func (t *RendererTable[R]) Register(id ModelID, r R) {
	if t.byID == nil {
		t.byID = make(map[ModelID]R)
	}
	t.byID[id] = r
}

// Lookup returns the renderer for id.
func (t *RendererTable[R]) Lookup(id ModelID) (R, bool) {
	r, ok := t.byID[id]
	return r, ok
}

// Len returns the number of registered renderers.
func (t *RendererTable[R]) Len() int { return len(t.byID) }
