package placement

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/banshee-data/floorobjects/internal/catalog"
	"github.com/banshee-data/floorobjects/internal/config"
	"github.com/banshee-data/floorobjects/internal/spatial"
	"github.com/banshee-data/floorobjects/internal/testutil"
	"github.com/banshee-data/floorobjects/internal/timeutil"
	"github.com/banshee-data/floorobjects/internal/tracking"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anchorIDs(recs []*Record) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.Anchor.ID()
	}
	return ids
}

func placeN(t *testing.T, r *Registry, s *fakeSession, plane tracking.Plane, n int) []*Record {
	t.Helper()
	var out []*Record
	for i := 0; i < n; i++ {
		rec, err := r.PlaceHit(s, tracking.Hit{Plane: plane, Pose: spatial.Identity(), InPolygon: true}, "andy", 1)
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestNewRegistry_DefaultCapacity(t *testing.T) {
	t.Parallel()

	r := NewRegistry(RegistryConfig{}, nil)
	assert.Equal(t, 32, r.Cap())
	assert.Equal(t, 0, r.Len())

	r = NewRegistry(RegistryConfigFromTuning(&config.TuningConfig{MaxPlacements: func() *int { v := 5; return &v }()}), nil)
	assert.Equal(t, 5, r.Cap())
}

func TestNewRegistry_HugeCapacityAllocatesLazily(t *testing.T) {
	t.Parallel()

	s := &fakeSession{}
	var r *Registry
	require.NotPanics(t, func() { r = NewRegistry(RegistryConfig{MaxPlacements: 1 << 60}, s) })
	assert.Equal(t, 1<<60, r.Cap())

	placeN(t, r, s, newPlane(0), 100)
	assert.Equal(t, 100, r.Len())
	require.NotPanics(t, func() { assert.Equal(t, 100, r.Reset()) })
	assert.Equal(t, 0, r.Len())
}

func TestPlace_EvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 5, 32} {
		s := &fakeSession{}
		r := NewRegistry(RegistryConfig{MaxPlacements: n}, s)
		recs := placeN(t, r, s, newPlane(0), n+1)

		assert.Equal(t, n, r.Len())
		first := recs[0].Anchor.ID()
		assert.Equal(t, 1, s.releaseCount(first), "capacity %d", n)
		assert.Len(t, s.released, 1)
		assert.NotContains(t, anchorIDs(r.Records()), first)

		newest, ok := r.Newest()
		require.True(t, ok)
		assert.Same(t, recs[n], newest)
	}
}

func TestPlace_CapacityTwoScenario(t *testing.T) {
	t.Parallel()

	s := &fakeSession{}
	l := &recordingListener{}
	r := NewRegistry(RegistryConfig{MaxPlacements: 2, Listener: l}, s)
	plane := newPlane(0)

	a, b, c := newAnchor("A", 0, 0, 0), newAnchor("B", 1, 0, 0), newAnchor("C", 2, 0, 0)
	for _, anc := range []*fakeAnchor{a, b, c} {
		_, err := r.Place(anc, plane, "andy", 1)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"B", "C"}, anchorIDs(r.Records()))
	assert.Equal(t, []string{"A"}, s.released)

	want := []event{
		{kind: "added", id: "A"},
		{kind: "added", id: "B"},
		{kind: "removed", id: "A", reason: RemovedEvicted},
		{kind: "added", id: "C"},
	}
	if diff := cmp.Diff(want, l.events, cmp.AllowUnexported(event{})); diff != "" {
		t.Errorf("listener events mismatch (-want +got):\n%s", diff)
	}
}

func TestPlace_InvalidInputReleasesAnchor(t *testing.T) {
	t.Parallel()

	s := &fakeSession{}
	r := NewRegistry(RegistryConfig{MaxPlacements: 4}, s)
	plane := newPlane(0)

	for _, scale := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		a := newAnchor("bad", 0, 0, 0)
		s.released = nil
		_, err := r.Place(a, plane, "andy", scale)
		assert.True(t, errors.Is(err, ErrInvalidPlacement), "scale %v", scale)
		assert.Equal(t, []string{"bad"}, s.released)
	}

	_, err := r.Place(newAnchor("np", 0, 0, 0), nil, "andy", 1)
	assert.ErrorIs(t, err, ErrInvalidPlacement)
	_, err = r.Place(nil, plane, "andy", 1)
	assert.ErrorIs(t, err, ErrInvalidPlacement)

	assert.Equal(t, 0, r.Len())
}

func TestPlaceHit(t *testing.T) {
	t.Parallel()

	s := &fakeSession{}
	r := NewRegistry(RegistryConfig{MaxPlacements: 4, Clock: timeutil.NewMockClock(time.Unix(42, 0))}, s)

	hitPose := spatial.NewPose(spatial.Vec3{X: 0.3, Y: 0.01, Z: -1}, spatial.QuatIdentity())
	rec, err := r.PlaceHit(s, tracking.Hit{Plane: newPlane(0), Pose: hitPose}, "snorlax", 0.08)
	require.NoError(t, err)
	assert.Equal(t, hitPose, rec.Anchor.Pose())
	assert.Equal(t, catalog.ModelID("snorlax"), rec.ModelID)
	assert.Equal(t, 0.08, rec.ScaleFactor)
	assert.Equal(t, time.Unix(42, 0), rec.PlacedAt)
	assert.NotEmpty(t, rec.ID)

	// Creation failures surface and nothing is placed.
	boom := errors.New("session paused")
	s.failNext = boom
	_, err = r.PlaceHit(s, tracking.Hit{Plane: newPlane(0)}, "andy", 1)
	assert.ErrorIs(t, err, boom)

	// Bad input never reaches the session.
	_, err = r.PlaceHit(s, tracking.Hit{}, "andy", 1)
	assert.ErrorIs(t, err, ErrInvalidPlacement)
	_, err = r.PlaceHit(s, tracking.Hit{Plane: newPlane(0)}, "andy", 0)
	assert.ErrorIs(t, err, ErrInvalidPlacement)
	assert.Equal(t, 1, s.created)
	assert.Equal(t, 1, r.Len())
}

func TestUndo_ReverseOrder(t *testing.T) {
	t.Parallel()

	s := &fakeSession{}
	r := NewRegistry(RegistryConfig{MaxPlacements: 8}, s)
	recs := placeN(t, r, s, newPlane(0), 5)

	for k := 1; k <= 3; k++ {
		assert.True(t, r.Undo())
	}
	assert.Equal(t, []string{recs[4].Anchor.ID(), recs[3].Anchor.ID(), recs[2].Anchor.ID()}, s.released)
	assert.Equal(t, anchorIDs(recs[:2]), anchorIDs(r.Records()))

	assert.True(t, r.Undo())
	assert.True(t, r.Undo())
	assert.False(t, r.Undo())
	assert.False(t, r.Undo())
	assert.Equal(t, 0, r.Len())
	assert.Len(t, s.released, 5)
	for _, rec := range recs {
		assert.Equal(t, 1, s.releaseCount(rec.Anchor.ID()))
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	s := &fakeSession{}
	l := &recordingListener{}
	r := NewRegistry(RegistryConfig{MaxPlacements: 8, Listener: l}, s)
	recs := placeN(t, r, s, newPlane(0), 4)

	assert.Equal(t, 4, r.Reset())
	assert.Equal(t, 0, r.Len())
	assert.Len(t, s.released, 4)
	for _, rec := range recs {
		assert.Equal(t, 1, s.releaseCount(rec.Anchor.ID()))
	}

	assert.Equal(t, 0, r.Reset(), "reset on empty is a no-op")
	assert.Len(t, s.released, 4)

	removed := 0
	for _, e := range l.events {
		if e.kind == "removed" {
			assert.Equal(t, RemovedReset, e.reason)
			removed++
		}
	}
	assert.Equal(t, 4, removed)
}

func TestEvictOldest(t *testing.T) {
	t.Parallel()

	s := &fakeSession{}
	r := NewRegistry(RegistryConfig{MaxPlacements: 8}, s)
	assert.False(t, r.EvictOldest())

	recs := placeN(t, r, s, newPlane(0), 3)
	assert.True(t, r.EvictOldest())
	oldest, ok := r.Oldest()
	require.True(t, ok)
	assert.Same(t, recs[1], oldest)
	assert.Equal(t, []string{recs[0].Anchor.ID()}, s.released)
}

func TestRelease_ErrorIsLoggedNotFatal(t *testing.T) {
	logs := testutil.CaptureLogs(t)

	s := &fakeSession{}
	r := NewRegistry(RegistryConfig{MaxPlacements: 4}, s)
	recs := placeN(t, r, s, newPlane(0), 1)

	// Pretend the session already dropped the anchor.
	s.released = append(s.released, recs[0].Anchor.ID())

	assert.True(t, r.Undo())
	assert.Equal(t, 0, r.Len())
	logged := logs.Messages()
	require.Len(t, logged, 1)
	assert.Contains(t, logged[0], "[placement] release anchor "+recs[0].Anchor.ID())
}

func TestMostRecentMatching(t *testing.T) {
	t.Parallel()

	s := &fakeSession{}
	r := NewRegistry(RegistryConfig{MaxPlacements: 8}, s)
	plane := newPlane(0)

	_, _ = r.Place(newAnchor("A", 0, 0, 0), plane, "fox", 1)
	_, _ = r.Place(newAnchor("B", 0, 0, 0), plane, "snorlax", 1)
	c, _ := r.Place(newAnchor("C", 0, 0, 0), plane, "snorlax", 1)

	got, ok := r.MostRecentMatching("snorlax")
	require.True(t, ok)
	assert.Same(t, c, got)

	got, ok = r.MostRecentMatching("fox")
	require.True(t, ok)
	assert.Equal(t, "A", got.Anchor.ID())

	_, ok = r.MostRecentMatching("tauros")
	assert.False(t, ok)
}

func TestUpdateScale(t *testing.T) {
	t.Parallel()

	l := &recordingListener{}
	r := NewRegistry(RegistryConfig{MaxPlacements: 2, Listener: l}, &fakeSession{})
	rec, err := r.Place(newAnchor("A", 0, 0, 0), newPlane(0), "andy", 1)
	require.NoError(t, err)

	require.NoError(t, r.UpdateScale(rec, 1.5))
	assert.Equal(t, 1.5, rec.ScaleFactor)

	// Same value does not notify.
	require.NoError(t, r.UpdateScale(rec, 1.5))

	for _, bad := range []float64{0, -2, math.NaN(), math.Inf(-1)} {
		assert.ErrorIs(t, r.UpdateScale(rec, bad), ErrInvalidScale)
	}
	assert.Equal(t, 1.5, rec.ScaleFactor)

	rescaled := 0
	for _, e := range l.events {
		if e.kind == "rescaled" {
			rescaled++
		}
	}
	assert.Equal(t, 1, rescaled)
}

func TestForEachTrackable(t *testing.T) {
	t.Parallel()

	s := &fakeSession{}
	r := NewRegistry(RegistryConfig{MaxPlacements: 8}, s)
	plane := newPlane(0.02)
	lost := newPlane(0.5)
	lost.state = tracking.Paused

	a := newAnchor("A", 1, 2, 3)
	b := newAnchor("B", 4, 5, 6)
	b.state = tracking.Stopped
	c := newAnchor("C", 7, 8, 9)
	d := newAnchor("D", 1, 1, 1)
	for _, p := range []struct {
		a     *fakeAnchor
		plane tracking.Plane
	}{{a, plane}, {b, plane}, {c, plane}, {d, lost}} {
		_, err := r.Place(p.a, p.plane, "andy", 1)
		require.NoError(t, err)
	}

	type pair struct {
		ID   string
		Pose spatial.Pose
	}
	collect := func() []pair {
		var out []pair
		for rec, pose := range r.ForEachTrackable() {
			out = append(out, pair{rec.Anchor.ID(), pose})
		}
		return out
	}

	first := collect()
	want := []pair{
		{"A", a.pose.WithY(0.02)},
		{"C", c.pose.WithY(0.02)},
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("trackable mismatch (-want +got):\n%s", diff)
	}

	// Same frame state, same sequence.
	if diff := cmp.Diff(first, collect()); diff != "" {
		t.Errorf("second iteration differs (-first +second):\n%s", diff)
	}

	// Fresh each frame: regaining tracking shows up on the next iteration.
	lost.state = tracking.Tracking
	assert.Len(t, collect(), 3)

	// Early break stops the sequence.
	n := 0
	for range r.ForEachTrackable() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}
