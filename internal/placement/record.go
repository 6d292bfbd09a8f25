package placement

import (
	"time"

	"github.com/banshee-data/floorobjects/internal/catalog"
	"github.com/banshee-data/floorobjects/internal/tracking"
)

// Record is one placed model instance. Anchor and Plane are shared with the
// tracking session, which owns them; the record only reads them.
type Record struct {
	ID          string
	Anchor      tracking.Anchor
	Plane       tracking.Plane
	ModelID     catalog.ModelID
	ScaleFactor float64
	PlacedAt    time.Time
}

// RemovalReason says why a record left the registry.
type RemovalReason string

const (
	RemovedEvicted RemovalReason = "evicted" // Registry was full
	RemovedUndone  RemovalReason = "undone"  // Undo removed the newest record
	RemovedReset   RemovalReason = "reset"   // Reset cleared everything
)

// Listener observes registry changes. All callbacks run synchronously on the
// frame thread after the registry has been updated.
type Listener interface {
	PlacementAdded(rec *Record)
	PlacementRemoved(rec *Record, reason RemovalReason)
	PlacementRescaled(rec *Record, oldScale, newScale float64)
}
