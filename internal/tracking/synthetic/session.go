// Package synthetic provides a deterministic, in-process stand-in for an AR
// tracking session. It is used by tests and by cmd/floorsim to drive the
// frame loop without a camera.
//
// Planes start with a biased height estimate that converges towards their
// true height frame by frame; anchors jitter around their creation point;
// both can drop out of tracking randomly or on demand.
package synthetic

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/banshee-data/floorobjects/internal/spatial"
	"github.com/banshee-data/floorobjects/internal/tracking"
)

// Config controls the simulated session.
type Config struct {
	Seed      int64
	FrameRate float64 // frames per second, used for timestamps only

	// Camera
	CameraHeight float64 // metres above the world origin
	CameraPitch  float64 // radians, positive looks down
	TanHalfFovX  float64
	TanHalfFovY  float64

	// Refinement
	HeightConvergence float64 // fraction of remaining plane-height error removed per frame [0,1]
	AnchorJitter      float64 // std-dev of per-frame anchor pose noise (metres)

	// Random tracking loss
	DropoutProbability float64 // per-frame chance that a tracked anchor/plane pauses
	DropoutFrames      int     // frames a random dropout lasts
}

// DefaultConfig returns a phone-like camera 1.4 m above the floor looking
// 40° down, with gentle refinement and no random dropouts.
func DefaultConfig() Config {
	return Config{
		Seed:              1,
		FrameRate:         30,
		CameraHeight:      1.4,
		CameraPitch:       40 * math.Pi / 180,
		TanHalfFovX:       0.5,
		TanHalfFovY:       0.7,
		HeightConvergence: 0.1,
		AnchorJitter:      0.002,
	}
}

// PlaneSpec describes a plane to add to the session.
type PlaneSpec struct {
	ID string
	// TrueCenter is the plane's real centre; the estimate starts at
	// TrueCenter with Y replaced by InitialY.
	TrueCenter spatial.Vec3
	InitialY   float64
	// Polygon is the boundary in plane-local X/Z, relative to the centre.
	// When empty a rectangle of HalfX × HalfZ is used.
	Polygon []XZ
	HalfX   float64
	HalfZ   float64
}

// Session is a simulated tracking session. It is not safe for concurrent
// use; like a real AR session it belongs to the frame thread.
type Session struct {
	cfg Config
	rng *rand.Rand

	seq     uint64
	startNs int64

	camera      tracking.TrackingState
	paused      bool
	failNext    error
	planes      []*Plane
	anchors     map[string]*Anchor
	anchorOrder []string
	nextAnchor  int

	releases map[string]int
}

// NewSession creates a session with no planes.
func NewSession(cfg Config) *Session {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 30
	}
	return &Session{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		startNs:  time.Unix(0, 0).UnixNano(),
		camera:   tracking.Tracking,
		anchors:  make(map[string]*Anchor),
		releases: make(map[string]int),
	}
}

// AddPlane registers a new tracked plane and returns it.
func (s *Session) AddPlane(spec PlaneSpec) *Plane {
	id := spec.ID
	if id == "" {
		id = fmt.Sprintf("plane-%d", len(s.planes)+1)
	}
	poly := spec.Polygon
	if len(poly) == 0 {
		hx, hz := spec.HalfX, spec.HalfZ
		if hx <= 0 {
			hx = 1
		}
		if hz <= 0 {
			hz = 1
		}
		poly = []XZ{{-hx, -hz}, {hx, -hz}, {hx, hz}, {-hx, hz}}
	}
	p := &Plane{
		id:      id,
		trueY:   spec.TrueCenter.Y,
		center:  spatial.NewPose(spatial.Vec3{X: spec.TrueCenter.X, Y: spec.InitialY, Z: spec.TrueCenter.Z}, spatial.QuatIdentity()),
		polygon: poly,
		state:   tracking.Tracking,
	}
	s.planes = append(s.planes, p)
	return p
}

// Update implements tracking.Session.
func (s *Session) Update(ctx context.Context) (*tracking.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.failNext; err != nil {
		s.failNext = nil
		return nil, err
	}
	if s.paused {
		return nil, tracking.ErrSessionPaused
	}

	s.seq++
	for _, p := range s.planes {
		s.refinePlane(p)
	}
	for _, id := range s.anchorOrder {
		s.refineAnchor(s.anchors[id])
	}

	frame := &tracking.Frame{
		Seq:            s.seq,
		TimestampNanos: s.startNs + int64(float64(s.seq)/s.cfg.FrameRate*1e9),
		CameraState:    s.camera,
		CameraPose:     s.cameraPose(),
		Planes:         make([]tracking.Plane, 0, len(s.planes)),
		Anchors:        make([]tracking.Anchor, 0, len(s.anchorOrder)),
	}
	for _, p := range s.planes {
		frame.Planes = append(frame.Planes, p)
	}
	for _, id := range s.anchorOrder {
		frame.Anchors = append(frame.Anchors, s.anchors[id])
	}
	return frame, nil
}

func (s *Session) refinePlane(p *Plane) {
	if p.state == tracking.Stopped {
		return
	}
	s.applyDropout(&p.state, &p.dropout, p.pinned)
	if p.state != tracking.Tracking {
		return
	}
	y := p.center.TY()
	y += s.cfg.HeightConvergence * (p.trueY - y)
	p.center = p.center.WithY(y)
}

func (s *Session) refineAnchor(a *Anchor) {
	if a.state == tracking.Stopped {
		return
	}
	s.applyDropout(&a.state, &a.dropout, a.pinned)
	if a.state != tracking.Tracking || s.cfg.AnchorJitter <= 0 {
		return
	}
	j := s.cfg.AnchorJitter
	a.pose.Translation = a.origin.Add(spatial.Vec3{
		X: s.rng.NormFloat64() * j,
		Y: s.rng.NormFloat64() * j,
		Z: s.rng.NormFloat64() * j,
	})
}

// applyDropout advances a random pause countdown. Pinned states, set
// explicitly by tests, are left alone.
func (s *Session) applyDropout(state *tracking.TrackingState, countdown *int, pinned bool) {
	if pinned {
		return
	}
	if *countdown > 0 {
		*countdown--
		if *countdown == 0 {
			*state = tracking.Tracking
		}
		return
	}
	if s.cfg.DropoutProbability > 0 && s.rng.Float64() < s.cfg.DropoutProbability {
		*state = tracking.Paused
		*countdown = max(s.cfg.DropoutFrames, 1)
	}
}

func (s *Session) cameraPose() spatial.Pose {
	pitch := spatial.QuatFromAxisAngle(spatial.Vec3{X: 1}, -s.cfg.CameraPitch)
	return spatial.NewPose(spatial.Vec3{Y: s.cfg.CameraHeight}, pitch)
}

// HitTest implements tracking.Session. The tap is turned into a ray through
// a pinhole camera and intersected with every plane's horizontal surface.
func (s *Session) HitTest(tap tracking.Tap) []tracking.Hit {
	cam := s.cameraPose()
	dirCam := spatial.Vec3{
		X: (tap.X - 0.5) * 2 * s.cfg.TanHalfFovX,
		Y: (0.5 - tap.Y) * 2 * s.cfg.TanHalfFovY,
		Z: -1,
	}
	dir := cam.Rotation.Rotate(dirCam)
	origin := cam.Translation
	if math.Abs(dir.Y) < 1e-9 {
		return nil
	}

	var hits []tracking.Hit
	for _, p := range s.planes {
		if p.state != tracking.Tracking {
			continue
		}
		t := (p.center.TY() - origin.Y) / dir.Y
		if t <= 0 {
			continue
		}
		pt := origin.Add(spatial.Vec3{X: dir.X * t, Y: dir.Y * t, Z: dir.Z * t})
		hits = append(hits, tracking.Hit{
			Plane:     p,
			Pose:      spatial.NewPose(pt, spatial.QuatIdentity()),
			Distance:  t * dir.Norm(),
			InPolygon: p.Contains(pt.X, pt.Z),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}

// CreateAnchor implements tracking.Session.
func (s *Session) CreateAnchor(pose spatial.Pose) (tracking.Anchor, error) {
	if s.paused {
		return nil, tracking.ErrSessionPaused
	}
	if err := pose.Validate(); err != nil {
		return nil, fmt.Errorf("create anchor: %w", err)
	}
	s.nextAnchor++
	a := &Anchor{
		id:     fmt.Sprintf("anchor-%d", s.nextAnchor),
		origin: pose.Translation,
		pose:   pose,
		state:  tracking.Tracking,
	}
	s.anchors[a.id] = a
	s.anchorOrder = append(s.anchorOrder, a.id)
	return a, nil
}

// ReleaseAnchor implements tracking.Session.
func (s *Session) ReleaseAnchor(anchor tracking.Anchor) error {
	if anchor == nil {
		return fmt.Errorf("release anchor: nil anchor")
	}
	id := anchor.ID()
	s.releases[id]++
	a, ok := s.anchors[id]
	if !ok {
		return fmt.Errorf("release %s: %w", id, tracking.ErrAnchorReleased)
	}
	a.state = tracking.Stopped
	delete(s.anchors, id)
	for i, v := range s.anchorOrder {
		if v == id {
			s.anchorOrder = append(s.anchorOrder[:i], s.anchorOrder[i+1:]...)
			break
		}
	}
	return nil
}

// SetCameraState overrides the camera tracking state reported in frames.
func (s *Session) SetCameraState(state tracking.TrackingState) { s.camera = state }

// SetPaused makes Update and CreateAnchor fail with ErrSessionPaused.
func (s *Session) SetPaused(paused bool) { s.paused = paused }

// FailNextUpdate makes the next Update return err.
func (s *Session) FailNextUpdate(err error) { s.failNext = err }

// LiveAnchors returns the number of anchors still tracked.
func (s *Session) LiveAnchors() int { return len(s.anchors) }

// ReleaseCount returns how many times ReleaseAnchor was called for id.
func (s *Session) ReleaseCount(id string) int { return s.releases[id] }

// Planes returns the session's planes in creation order.
func (s *Session) Planes() []*Plane { return s.planes }
