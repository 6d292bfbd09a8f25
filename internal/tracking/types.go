package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/floorobjects/internal/spatial"
)

// TrackingState is the tracking status the collaborator reports for the
// camera, an anchor or a plane.
type TrackingState int

const (
	Tracking TrackingState = iota // Pose is being actively refined
	Paused                        // Temporarily lost; may resume
	Stopped                       // Permanently lost; will not resume
)

// String implements fmt.Stringer.
func (s TrackingState) String() string {
	switch s {
	case Tracking:
		return "tracking"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("TrackingState(%d)", int(s))
	}
}

// ErrSessionPaused is returned by Session.Update when the session cannot
// produce a frame (camera paused, app backgrounded).
var ErrSessionPaused = errors.New("tracking session paused")

// ErrAnchorReleased is returned when an operation targets an anchor the
// session no longer tracks.
var ErrAnchorReleased = errors.New("anchor already released")

// Anchor is a session-owned handle to a fixed real-world point whose pose
// estimate is refined every frame.
type Anchor interface {
	ID() string
	Pose() spatial.Pose
	TrackingState() TrackingState
}

// Plane is a session-owned handle to a detected horizontal surface whose
// centre pose (notably its height) is refined every frame.
type Plane interface {
	ID() string
	CenterPose() spatial.Pose
	TrackingState() TrackingState
	// Contains reports whether the world-frame point (x, z) lies inside the
	// plane's boundary polygon.
	Contains(x, z float64) bool
}

// Tap is a single-finger tap in normalised screen coordinates, [0,1] on
// each axis with the origin at the top-left.
type Tap struct {
	X, Y float64
}

// Hit is one hit-test result against a plane.
type Hit struct {
	Plane Plane
	// Pose is the world-frame intersection of the tap ray with the plane.
	Pose spatial.Pose
	// Distance from the camera to Pose, in metres.
	Distance float64
	// InPolygon is false when the ray hit the plane's infinite extension
	// outside its detected boundary.
	InPolygon bool
}

// Frame is the per-frame snapshot handed back by Session.Update.
type Frame struct {
	Seq            uint64
	TimestampNanos int64
	CameraState    TrackingState
	CameraPose     spatial.Pose
	Planes         []Plane
	Anchors        []Anchor
}

// Session is the tracking collaborator. All methods are called from the
// frame thread.
type Session interface {
	// Update advances the session one frame and returns its snapshot.
	Update(ctx context.Context) (*Frame, error)
	// HitTest casts the tap into the current frame. Results are sorted
	// nearest first.
	HitTest(tap Tap) []Hit
	// CreateAnchor starts tracking a new anchor at pose.
	CreateAnchor(pose spatial.Pose) (Anchor, error)
	// ReleaseAnchor stops tracking anchor. Releasing twice returns
	// ErrAnchorReleased.
	ReleaseAnchor(anchor Anchor) error
}

// FirstPlaneHit returns the nearest hit that lies inside a plane's polygon.
// Hits must already be sorted nearest first.
func FirstPlaneHit(hits []Hit) (Hit, bool) {
	for _, h := range hits {
		if h.Plane != nil && h.InPolygon {
			return h, true
		}
	}
	return Hit{}, false
}
