package placement

import (
	"errors"

	"github.com/banshee-data/floorobjects/internal/spatial"
	"github.com/banshee-data/floorobjects/internal/tracking"
)

// ErrNotTrackable means the record's anchor or plane is not currently
// tracking. Callers skip the record for this frame; it is not a failure.
var ErrNotTrackable = errors.New("placement not trackable")

// Reconciler produces the stabilised render pose for a record.
//
// Anchors are refined mostly in the horizontal plane while the supporting
// plane's height converges separately, so the render pose takes X, Z and
// rotation from the anchor and Y from the plane's centre. Neither input is
// modified.
type Reconciler struct{}

// IsTracking reports whether both the anchor and the plane of rec are
// currently tracking.
func (Reconciler) IsTracking(rec *Record) bool {
	if rec == nil || rec.Anchor == nil || rec.Plane == nil {
		return false
	}
	return rec.Anchor.TrackingState() == tracking.Tracking &&
		rec.Plane.TrackingState() == tracking.Tracking
}

// ComputeRenderPose returns the anchor pose with its Y replaced by the
// plane's current centre height, or ErrNotTrackable.
func (r Reconciler) ComputeRenderPose(rec *Record) (spatial.Pose, error) {
	if !r.IsTracking(rec) {
		return spatial.Pose{}, ErrNotTrackable
	}
	return rec.Anchor.Pose().WithY(rec.Plane.CenterPose().TY()), nil
}
