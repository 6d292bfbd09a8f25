package frameloop

import (
	"context"
	"errors"
	"testing"

	"github.com/banshee-data/floorobjects/internal/config"
	"github.com/banshee-data/floorobjects/internal/placement"
	"github.com/banshee-data/floorobjects/internal/spatial"
	"github.com/banshee-data/floorobjects/internal/tracking"
	"github.com/banshee-data/floorobjects/internal/tracking/synthetic"
	"github.com/stretchr/testify/require"
)

var centreTap = tracking.Tap{X: 0.5, Y: 0.5}

type recordingRenderer struct {
	calls  int
	frames [][]Draw
	err    error
}

func (r *recordingRenderer) Draw(frame *tracking.Frame, draws []Draw) error {
	r.calls++
	r.frames = append(r.frames, draws)
	return r.err
}

func (r *recordingRenderer) last() []Draw {
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

type countingObserver struct {
	seqs []uint64
}

func (o *countingObserver) ObserveFrame(snap *FrameSnapshot) {
	o.seqs = append(o.seqs, snap.Seq)
}

// panickySession panics on the next Update when armed.
type panickySession struct {
	*synthetic.Session
	armed bool
}

func (s *panickySession) Update(ctx context.Context) (*tracking.Frame, error) {
	if s.armed {
		s.armed = false
		panic("tracker exploded")
	}
	return s.Session.Update(ctx)
}

type harness struct {
	proc     *Processor
	session  *synthetic.Session
	floor    *synthetic.Plane
	registry *placement.Registry
	renderer *recordingRenderer
	observer *countingObserver
}

func newHarness(t *testing.T, tuning *config.TuningConfig, wrap func(*synthetic.Session) tracking.Session) *harness {
	t.Helper()
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}

	simCfg := synthetic.DefaultConfig()
	simCfg.AnchorJitter = 0
	sess := synthetic.NewSession(simCfg)
	floor := sess.AddPlane(synthetic.PlaneSpec{ID: "floor", TrueCenter: spatial.Vec3{Z: -1.67}, HalfX: 2, HalfZ: 2})

	var session tracking.Session = sess
	if wrap != nil {
		session = wrap(sess)
	}

	cat, err := tuning.GetCatalog()
	require.NoError(t, err)
	initial, err := tuning.GetSelectedModel(cat)
	require.NoError(t, err)

	reg := placement.NewRegistry(placement.RegistryConfigFromTuning(tuning), session)
	rr := &recordingRenderer{}
	obs := &countingObserver{}
	proc, err := NewProcessor(Config{
		Session:   session,
		Registry:  reg,
		Selection: NewSelection(cat, initial, tuning),
		Renderer:  rr,
		Observers: []FrameObserver{obs},
		Tuning:    tuning,
	})
	require.NoError(t, err)

	return &harness{proc: proc, session: sess, floor: floor, registry: reg, renderer: rr, observer: obs}
}

func (h *harness) step(t *testing.T) {
	t.Helper()
	require.NoError(t, h.proc.Step(context.Background()))
}

func ptrInt(v int) *int { return &v }

var errBoom = errors.New("boom")
