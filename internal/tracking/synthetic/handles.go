package synthetic

import (
	"github.com/banshee-data/floorobjects/internal/spatial"
	"github.com/banshee-data/floorobjects/internal/tracking"
)

// XZ is a point on the horizontal plane.
type XZ struct {
	X, Z float64
}

// Plane is a simulated detected plane. It satisfies tracking.Plane.
type Plane struct {
	id      string
	trueY   float64
	center  spatial.Pose
	polygon []XZ
	state   tracking.TrackingState
	dropout int
	pinned  bool
}

func (p *Plane) ID() string                            { return p.id }
func (p *Plane) CenterPose() spatial.Pose              { return p.center }
func (p *Plane) TrackingState() tracking.TrackingState { return p.state }

// Contains reports whether the world point (x, z) lies inside the polygon,
// using the even-odd crossing rule.
func (p *Plane) Contains(x, z float64) bool {
	lx := x - p.center.TX()
	lz := z - p.center.TZ()
	inside := false
	n := len(p.polygon)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.polygon[i], p.polygon[j]
		if (a.Z > lz) != (b.Z > lz) {
			cross := (b.X-a.X)*(lz-a.Z)/(b.Z-a.Z) + a.X
			if lx < cross {
				inside = !inside
			}
		}
	}
	return inside
}

// SetTrackingState pins the plane's state until Unpin is called.
func (p *Plane) SetTrackingState(state tracking.TrackingState) {
	p.state = state
	p.pinned = true
}

// SetHeight overwrites the current height estimate.
func (p *Plane) SetHeight(y float64) {
	p.center = p.center.WithY(y)
}

// SetTrueHeight moves the height the estimate converges towards.
func (p *Plane) SetTrueHeight(y float64) { p.trueY = y }

// Unpin hands the state back to the simulator. A paused handle resumes
// tracking; a stopped one stays stopped.
func (p *Plane) Unpin() {
	p.pinned = false
	p.dropout = 0
	unpinState(&p.state)
}

// Anchor is a simulated anchor. It satisfies tracking.Anchor.
type Anchor struct {
	id      string
	origin  spatial.Vec3
	pose    spatial.Pose
	state   tracking.TrackingState
	dropout int
	pinned  bool
}

func (a *Anchor) ID() string                            { return a.id }
func (a *Anchor) Pose() spatial.Pose                    { return a.pose }
func (a *Anchor) TrackingState() tracking.TrackingState { return a.state }

// SetTrackingState pins the anchor's state until Unpin is called.
func (a *Anchor) SetTrackingState(state tracking.TrackingState) {
	a.state = state
	a.pinned = true
}

// SetPose overwrites the current pose estimate and the point jitter is
// centred on.
func (a *Anchor) SetPose(p spatial.Pose) {
	a.pose = p
	a.origin = p.Translation
}

// Unpin hands the state back to the simulator. A paused handle resumes
// tracking; a stopped one stays stopped.
func (a *Anchor) Unpin() {
	a.pinned = false
	a.dropout = 0
	unpinState(&a.state)
}

func unpinState(state *tracking.TrackingState) {
	if *state != tracking.Stopped {
		*state = tracking.Tracking
	}
}
