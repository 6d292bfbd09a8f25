package placement

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/banshee-data/floorobjects/internal/catalog"
	"github.com/banshee-data/floorobjects/internal/config"
	"github.com/banshee-data/floorobjects/internal/monitoring"
	"github.com/banshee-data/floorobjects/internal/spatial"
	"github.com/banshee-data/floorobjects/internal/timeutil"
	"github.com/banshee-data/floorobjects/internal/tracking"
	"github.com/google/uuid"
)

// ErrInvalidPlacement is returned by Place for a nil anchor or plane or an
// unusable scale.
var ErrInvalidPlacement = errors.New("invalid placement")

// ErrInvalidScale is returned when a scale factor is not positive and finite.
var ErrInvalidScale = errors.New("scale factor must be positive and finite")

var logf = monitoring.Tagged("placement")

// AnchorReleaser is the part of the tracking session the registry needs to
// hand anchors back.
type AnchorReleaser interface {
	ReleaseAnchor(anchor tracking.Anchor) error
}

// AnchorCreator is the part of the tracking session that creates anchors.
type AnchorCreator interface {
	CreateAnchor(pose spatial.Pose) (tracking.Anchor, error)
}

// RegistryConfig holds configuration for the registry.
type RegistryConfig struct {
	MaxPlacements int            // Maximum live placements before oldest-eviction
	Listener      Listener       // Optional change observer
	Clock         timeutil.Clock // Stamps PlacedAt; RealClock when nil
}

// RegistryConfigFromTuning builds a RegistryConfig from a loaded TuningConfig.
func RegistryConfigFromTuning(cfg *config.TuningConfig) RegistryConfig {
	return RegistryConfig{MaxPlacements: cfg.GetMaxPlacements()}
}

// Registry is the bounded, insertion-ordered set of live placements. Every
// record corresponds to exactly one anchor still held by the session; the
// removing call releases it.
type Registry struct {
	cfg        RegistryConfig
	releaser   AnchorReleaser
	reconciler Reconciler
	records    []*Record
}

// NewRegistry creates an empty registry. A non-positive MaxPlacements falls
// back to config.DefaultMaxPlacements.
func NewRegistry(cfg RegistryConfig, releaser AnchorReleaser) *Registry {
	if cfg.MaxPlacements <= 0 {
		cfg.MaxPlacements = config.DefaultMaxPlacements
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Registry{
		cfg:      cfg,
		releaser: releaser,
		records:  make([]*Record, 0, min(cfg.MaxPlacements, initialRecordsCap)),
	}
}

// initialRecordsCap bounds the up-front allocation; larger registries grow
// on demand.
const initialRecordsCap = 64

func validScale(s float64) bool {
	return s > 0 && !math.IsInf(s, 0)
}

// Place wraps anchor and plane into a new record and appends it. When the
// registry is full the oldest record is evicted first, so Place never fails
// for capacity. Invalid input is rejected and the anchor released so it is
// not orphaned in the session.
func (r *Registry) Place(anchor tracking.Anchor, plane tracking.Plane, modelID catalog.ModelID, scale float64) (*Record, error) {
	if anchor == nil || plane == nil || !validScale(scale) {
		if anchor != nil {
			r.release(anchor)
		}
		return nil, fmt.Errorf("%w: anchor=%t plane=%t scale=%v", ErrInvalidPlacement, anchor != nil, plane != nil, scale)
	}

	if len(r.records) >= r.cfg.MaxPlacements {
		r.EvictOldest()
	}

	rec := &Record{
		ID:          uuid.NewString(),
		Anchor:      anchor,
		Plane:       plane,
		ModelID:     modelID,
		ScaleFactor: scale,
		PlacedAt:    r.cfg.Clock.Now(),
	}
	r.records = append(r.records, rec)
	if r.cfg.Listener != nil {
		r.cfg.Listener.PlacementAdded(rec)
	}
	return rec, nil
}

// PlaceHit asks creator for an anchor at the hit pose and places it on the
// hit plane.
func (r *Registry) PlaceHit(creator AnchorCreator, hit tracking.Hit, modelID catalog.ModelID, scale float64) (*Record, error) {
	if hit.Plane == nil {
		return nil, fmt.Errorf("%w: hit has no plane", ErrInvalidPlacement)
	}
	if !validScale(scale) {
		return nil, fmt.Errorf("%w: scale=%v", ErrInvalidPlacement, scale)
	}
	anchor, err := creator.CreateAnchor(hit.Pose)
	if err != nil {
		return nil, fmt.Errorf("create anchor: %w", err)
	}
	return r.Place(anchor, hit.Plane, modelID, scale)
}

// EvictOldest removes the oldest record and releases its anchor. It reports
// whether anything was removed.
func (r *Registry) EvictOldest() bool {
	if len(r.records) == 0 {
		return false
	}
	rec := r.records[0]
	r.records = slices.Delete(r.records, 0, 1)
	r.finishRemoval(rec, RemovedEvicted)
	return true
}

// Undo removes the most recently placed record and releases its anchor. It
// reports whether anything was removed.
func (r *Registry) Undo() bool {
	n := len(r.records)
	if n == 0 {
		return false
	}
	rec := r.records[n-1]
	r.records = slices.Delete(r.records, n-1, n)
	r.finishRemoval(rec, RemovedUndone)
	return true
}

// Reset removes every record, releasing each anchor once, and returns how
// many were removed.
func (r *Registry) Reset() int {
	removed := r.records
	r.records = make([]*Record, 0, min(r.cfg.MaxPlacements, initialRecordsCap))
	for _, rec := range removed {
		r.finishRemoval(rec, RemovedReset)
	}
	return len(removed)
}

func (r *Registry) finishRemoval(rec *Record, reason RemovalReason) {
	r.release(rec.Anchor)
	if r.cfg.Listener != nil {
		r.cfg.Listener.PlacementRemoved(rec, reason)
	}
}

// release hands the anchor back to the session. A failed release is logged;
// the record stays removed.
func (r *Registry) release(anchor tracking.Anchor) {
	if r.releaser == nil {
		return
	}
	if err := r.releaser.ReleaseAnchor(anchor); err != nil {
		logf("release anchor %s: %v", anchor.ID(), err)
	}
}

// MostRecentMatching returns the newest record showing modelID.
func (r *Registry) MostRecentMatching(modelID catalog.ModelID) (*Record, bool) {
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].ModelID == modelID {
			return r.records[i], true
		}
	}
	return nil, false
}

// UpdateScale sets rec's scale factor.
func (r *Registry) UpdateScale(rec *Record, scale float64) error {
	if !validScale(scale) {
		return fmt.Errorf("%w: %v", ErrInvalidScale, scale)
	}
	old := rec.ScaleFactor
	if old == scale {
		return nil
	}
	rec.ScaleFactor = scale
	if r.cfg.Listener != nil {
		r.cfg.Listener.PlacementRescaled(rec, old, scale)
	}
	return nil
}

// ForEachTrackable yields every record whose render pose can be computed
// this frame, with that pose, in insertion order. Poses are recomputed on
// every iteration.
func (r *Registry) ForEachTrackable() iter.Seq2[*Record, spatial.Pose] {
	return func(yield func(*Record, spatial.Pose) bool) {
		for _, rec := range r.records {
			pose, err := r.reconciler.ComputeRenderPose(rec)
			if err != nil {
				continue
			}
			if !yield(rec, pose) {
				return
			}
		}
	}
}

// Len returns the number of live records.
func (r *Registry) Len() int { return len(r.records) }

// Cap returns the configured maximum number of records.
func (r *Registry) Cap() int { return r.cfg.MaxPlacements }

// Records returns the live records, oldest first. The slice is a copy; the
// records are shared.
func (r *Registry) Records() []*Record {
	return slices.Clone(r.records)
}

// Oldest returns the first record still live.
func (r *Registry) Oldest() (*Record, bool) {
	if len(r.records) == 0 {
		return nil, false
	}
	return r.records[0], true
}

// Newest returns the most recently placed record.
func (r *Registry) Newest() (*Record, bool) {
	if len(r.records) == 0 {
		return nil, false
	}
	return r.records[len(r.records)-1], true
}
