// Package catalog lists the 3-D models a user can place and maps each
// model id to the renderer resource that draws it.
package catalog

import (
	"errors"
	"fmt"
	"math"
)

// ModelID identifies a model variant, e.g. "snorlax".
type ModelID string

// ErrUnknownModel is returned when a model id is not in the catalog.
var ErrUnknownModel = errors.New("unknown model")

// Model describes one placeable model and its assets.
type Model struct {
	ID           ModelID `json:"id"`
	Name         string  `json:"name"`
	ObjectFile   string  `json:"object_file"`
	TextureFile  string  `json:"texture_file"`
	PreviewFile  string  `json:"preview_file,omitempty"`
	DefaultScale float64 `json:"default_scale"`
}

// Validate checks that the model is usable.
func (m Model) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("model id must not be empty")
	}
	if m.ObjectFile == "" {
		return fmt.Errorf("model %q: object_file must not be empty", m.ID)
	}
	if !(m.DefaultScale > 0) || math.IsInf(m.DefaultScale, 0) {
		return fmt.Errorf("model %q: default_scale must be positive and finite, got %f", m.ID, m.DefaultScale)
	}
	return nil
}

// DefaultModels is the built-in model set with the scale each asset needs
// to appear roughly life-sized on a floor.
func DefaultModels() []Model {
	return []Model{
		{ID: "snorlax", Name: "Snorlax", ObjectFile: "snorlax.obj", TextureFile: "PM_Kabigon12901.png", PreviewFile: "snorlax_preview.png", DefaultScale: 0.08},
		{ID: "tauros", Name: "Tauros", ObjectFile: "tauros.obj", TextureFile: "PM_Kentaros4282.png", PreviewFile: "tauros_preview.png", DefaultScale: 0.03},
		{ID: "pactrophy", Name: "Pacman Trophy", ObjectFile: "pactrophy.obj", TextureFile: "Tex_0209_0.png", PreviewFile: "pactrophy_preview.png", DefaultScale: 0.04},
		{ID: "mariocu", Name: "Mario Trophy", ObjectFile: "mariocu.obj", TextureFile: "Tex_0213_0.png", PreviewFile: "mariocu_preview.png", DefaultScale: 0.04},
		{ID: "spider", Name: "Spider", ObjectFile: "celspder.obj", TextureFile: "celspder.png", PreviewFile: "celspder_preview.png", DefaultScale: 5.0},
		{ID: "andy", Name: "Android", ObjectFile: "andy.obj", TextureFile: "andy.png", PreviewFile: "andy_preview.png", DefaultScale: 1.0},
	}
}

// Catalog is an ordered, id-indexed set of models.
type Catalog struct {
	models []Model
	byID   map[ModelID]int
}

// New builds a catalog. Ids must be unique and every model must validate.
func New(models []Model) (*Catalog, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one model")
	}
	c := &Catalog{
		models: make([]Model, 0, len(models)),
		byID:   make(map[ModelID]int, len(models)),
	}
	for _, m := range models {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		c.byID[m.ID] = len(c.models)
		c.models = append(c.models, m)
	}
	return c, nil
}

// MustDefault returns the built-in catalog.
func MustDefault() *Catalog {
	c, err := New(DefaultModels())
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the model with the given id.
func (c *Catalog) Lookup(id ModelID) (Model, error) {
	i, ok := c.byID[id]
	if !ok {
		return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return c.models[i], nil
}

// Models returns the models in catalog order.
func (c *Catalog) Models() []Model {
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

// Default is the model selected before the user picks one: the last entry.
func (c *Catalog) Default() Model {
	return c.models[len(c.models)-1]
}

// Len returns the number of models.
func (c *Catalog) Len() int { return len(c.models) }
