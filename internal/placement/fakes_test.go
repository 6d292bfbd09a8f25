package placement

import (
	"errors"
	"fmt"

	"github.com/banshee-data/floorobjects/internal/spatial"
	"github.com/banshee-data/floorobjects/internal/tracking"
)

type fakeAnchor struct {
	id    string
	pose  spatial.Pose
	state tracking.TrackingState
}

func (a *fakeAnchor) ID() string                            { return a.id }
func (a *fakeAnchor) Pose() spatial.Pose                    { return a.pose }
func (a *fakeAnchor) TrackingState() tracking.TrackingState { return a.state }

type fakePlane struct {
	id     string
	center spatial.Pose
	state  tracking.TrackingState
}

func (p *fakePlane) ID() string                            { return p.id }
func (p *fakePlane) CenterPose() spatial.Pose              { return p.center }
func (p *fakePlane) TrackingState() tracking.TrackingState { return p.state }
func (p *fakePlane) Contains(x, z float64) bool            { return true }

func newAnchor(id string, x, y, z float64) *fakeAnchor {
	return &fakeAnchor{
		id:    id,
		pose:  spatial.NewPose(spatial.Vec3{X: x, Y: y, Z: z}, spatial.QuatFromAxisAngle(spatial.Vec3{Y: 1}, 0.4)),
		state: tracking.Tracking,
	}
}

func newPlane(y float64) *fakePlane {
	return &fakePlane{
		id:     "plane",
		center: spatial.NewPose(spatial.Vec3{Y: y}, spatial.QuatIdentity()),
		state:  tracking.Tracking,
	}
}

// fakeSession records anchor creation and release calls.
type fakeSession struct {
	created  int
	released []string
	failNext error
}

func (s *fakeSession) CreateAnchor(pose spatial.Pose) (tracking.Anchor, error) {
	if err := s.failNext; err != nil {
		s.failNext = nil
		return nil, err
	}
	s.created++
	return &fakeAnchor{id: fmt.Sprintf("a%d", s.created), pose: pose, state: tracking.Tracking}, nil
}

func (s *fakeSession) ReleaseAnchor(a tracking.Anchor) error {
	for _, id := range s.released {
		if id == a.ID() {
			return errors.New("double release")
		}
	}
	s.released = append(s.released, a.ID())
	return nil
}

func (s *fakeSession) releaseCount(id string) int {
	n := 0
	for _, r := range s.released {
		if r == id {
			n++
		}
	}
	return n
}

type event struct {
	kind   string
	id     string
	reason RemovalReason
}

type recordingListener struct {
	events []event
}

func (l *recordingListener) PlacementAdded(rec *Record) {
	l.events = append(l.events, event{kind: "added", id: rec.Anchor.ID()})
}

func (l *recordingListener) PlacementRemoved(rec *Record, reason RemovalReason) {
	l.events = append(l.events, event{kind: "removed", id: rec.Anchor.ID(), reason: reason})
}

func (l *recordingListener) PlacementRescaled(rec *Record, oldScale, newScale float64) {
	l.events = append(l.events, event{kind: "rescaled", id: rec.Anchor.ID()})
}
