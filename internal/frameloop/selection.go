package frameloop

import (
	"fmt"
	"math"

	"github.com/banshee-data/floorobjects/internal/catalog"
	"github.com/banshee-data/floorobjects/internal/config"
)

// Selection is the model the user will place next and the live scale a
// pinch gesture is adjusting. It is passed explicitly into placement and
// rescale calls instead of living in shared UI state.
type Selection struct {
	catalog *catalog.Catalog
	model   catalog.Model
	scale   float64

	step     float64
	minScale float64
	maxScale float64
}

// NewSelection starts with initial selected at its default scale.
func NewSelection(cat *catalog.Catalog, initial catalog.Model, cfg *config.TuningConfig) *Selection {
	return &Selection{
		catalog:  cat,
		model:    initial,
		scale:    initial.DefaultScale,
		step:     cfg.GetPinchScaleStep(),
		minScale: cfg.GetMinScale(),
		maxScale: cfg.GetMaxScale(),
	}
}

// Model returns the selected model.
func (s *Selection) Model() catalog.Model { return s.model }

// Scale returns the live scale factor.
func (s *Selection) Scale() float64 { return s.scale }

// Select switches to the model with id and resets the live scale to that
// model's default.
func (s *Selection) Select(id catalog.ModelID) error {
	m, err := s.catalog.Lookup(id)
	if err != nil {
		return fmt.Errorf("select: %w", err)
	}
	s.model = m
	s.scale = m.DefaultScale
	return nil
}

// Pinch applies one pinch-gesture update. factor is the gesture's
// span ratio since the previous event: above 1 grows the scale, otherwise
// shrinks it, by scale·step·factor². The result is clamped to the
// configured bounds and returned.
func (s *Selection) Pinch(factor float64) float64 {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return s.scale
	}
	delta := s.scale * s.step * factor * factor
	if factor > 1 {
		s.scale += delta
	} else {
		s.scale -= delta
	}
	s.scale = math.Min(math.Max(s.scale, s.minScale), s.maxScale)
	return s.scale
}
