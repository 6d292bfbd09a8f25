package frameloop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/banshee-data/floorobjects/internal/catalog"
	"github.com/banshee-data/floorobjects/internal/config"
	"github.com/banshee-data/floorobjects/internal/monitoring"
	"github.com/banshee-data/floorobjects/internal/placement"
	"github.com/banshee-data/floorobjects/internal/spatial"
	"github.com/banshee-data/floorobjects/internal/timeutil"
	"github.com/banshee-data/floorobjects/internal/tracking"
)

// ErrCommandQueueFull is returned when a UI command cannot be queued.
var ErrCommandQueueFull = errors.New("command queue full")

const commandQueueCapacity = 64

var logf = monitoring.Tagged("frameloop")

// Draw is one model instance to render this frame.
type Draw struct {
	RecordID   string
	AnchorID   string
	ModelID    catalog.ModelID
	Pose       spatial.Pose // reconciled render pose
	AnchorPose spatial.Pose // raw anchor estimate, for diagnostics
	Scale      float64
	Transform  [16]float32 // column-major model matrix including Scale
}

// Renderer is the rendering collaborator. Draw is called once per frame
// while the camera is tracking, with draws in placement order.
type Renderer interface {
	Draw(frame *tracking.Frame, draws []Draw) error
}

// FrameObserver is notified after each successfully processed frame.
type FrameObserver interface {
	ObserveFrame(snap *FrameSnapshot)
}

// Stats are cumulative frame-loop counters.
type Stats struct {
	Frames       int64 // frames processed to completion
	FailedFrames int64 // session update failures
	Panics       int64 // recovered panics
	RenderErrors int64
	TapsDropped  int64 // rejected by a full tap queue
	TapsMissed   int64 // polled but hit no plane, or camera not tracking
	Placements   int64
	PlaceErrors  int64
}

// FrameSnapshot is the published, read-only view of the latest frame.
type FrameSnapshot struct {
	Seq            uint64
	TimestampNanos int64
	CameraState    tracking.TrackingState
	SelectedModel  catalog.ModelID
	LiveScale      float64
	Placements     int
	Draws          []Draw
	Stats          Stats
}

// Config holds the processor's collaborators.
type Config struct {
	Session   tracking.Session
	Registry  *placement.Registry
	Selection *Selection
	Renderer  Renderer        // optional
	Observers []FrameObserver // optional
	TapQueue  *TapQueue       // optional; built from Tuning when nil
	Tuning    *config.TuningConfig
	Clock     timeutil.Clock // paces Run; RealClock when nil
}

type commandKind int

const (
	cmdUndo commandKind = iota
	cmdReset
	cmdSelect
	cmdPinch
)

type command struct {
	kind   commandKind
	model  catalog.ModelID
	factor float64
}

// Processor runs the per-frame placement pipeline.
type Processor struct {
	session   tracking.Session
	registry  *placement.Registry
	selection *Selection
	renderer  Renderer
	observers []FrameObserver
	taps      *TapQueue
	commands  chan command
	clock     timeutil.Clock

	stats    Stats
	snapshot atomic.Pointer[FrameSnapshot]

	warnFailed func(format string, v ...interface{}) int64
}

// NewProcessor wires a processor. Session, Registry and Selection are
// required.
func NewProcessor(cfg Config) (*Processor, error) {
	if cfg.Session == nil || cfg.Registry == nil || cfg.Selection == nil {
		return nil, fmt.Errorf("frameloop: session, registry and selection are required")
	}
	tuning := cfg.Tuning
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	taps := cfg.TapQueue
	if taps == nil {
		taps = NewTapQueue(tuning.GetTapQueueCapacity())
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	p := &Processor{
		session:    cfg.Session,
		registry:   cfg.Registry,
		selection:  cfg.Selection,
		renderer:   cfg.Renderer,
		observers:  cfg.Observers,
		taps:       taps,
		commands:   make(chan command, commandQueueCapacity),
		clock:      clock,
		warnFailed: monitoring.RateLimited(30, logf),
	}
	p.snapshot.Store(&FrameSnapshot{
		SelectedModel: cfg.Selection.Model().ID,
		LiveScale:     cfg.Selection.Scale(),
	})
	return p, nil
}

// OfferTap queues a tap for a later frame. It never blocks; false means the
// tap was dropped.
func (p *Processor) OfferTap(tap tracking.Tap) bool {
	return p.taps.Offer(tap)
}

func (p *Processor) enqueue(c command) error {
	select {
	case p.commands <- c:
		return nil
	default:
		return ErrCommandQueueFull
	}
}

// Undo queues removal of the most recent placement.
func (p *Processor) Undo() error { return p.enqueue(command{kind: cmdUndo}) }

// Reset queues removal of every placement.
func (p *Processor) Reset() error { return p.enqueue(command{kind: cmdReset}) }

// Select queues a model selection change.
func (p *Processor) Select(id catalog.ModelID) error {
	return p.enqueue(command{kind: cmdSelect, model: id})
}

// Pinch queues a pinch-gesture scale update.
func (p *Processor) Pinch(factor float64) error {
	return p.enqueue(command{kind: cmdPinch, factor: factor})
}

// AddObserver appends an observer. It must be called before the first Step.
func (p *Processor) AddObserver(o FrameObserver) {
	p.observers = append(p.observers, o)
}

// Snapshot returns the most recently published frame. Safe for concurrent use.
func (p *Processor) Snapshot() *FrameSnapshot {
	return p.snapshot.Load()
}

// Step processes one frame. Collaborator errors and panics are logged,
// counted and end the frame early; only context errors are returned.
func (p *Processor) Step(ctx context.Context) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			p.stats.Panics++
			logf("recovered panic in frame: %v", r)
			err = nil
		}
	}()

	p.drainCommands()

	frame, err := p.session.Update(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		p.stats.FailedFrames++
		p.warnFailed("session update failed: %v", err)
		return nil
	}
	if frame == nil {
		p.stats.FailedFrames++
		p.warnFailed("session returned no frame")
		return nil
	}

	p.handleTap(frame)
	p.applyLiveScale()

	var draws []Draw
	if frame.CameraState == tracking.Tracking {
		draws = p.collectDraws()
		if p.renderer != nil {
			if err := p.renderer.Draw(frame, draws); err != nil {
				p.stats.RenderErrors++
				logf("render frame %d: %v", frame.Seq, err)
			}
		}
	}

	p.stats.Frames++
	p.stats.TapsDropped = p.taps.Dropped()
	snap := &FrameSnapshot{
		Seq:            frame.Seq,
		TimestampNanos: frame.TimestampNanos,
		CameraState:    frame.CameraState,
		SelectedModel:  p.selection.Model().ID,
		LiveScale:      p.selection.Scale(),
		Placements:     p.registry.Len(),
		Draws:          draws,
		Stats:          p.stats,
	}
	p.snapshot.Store(snap)
	for _, o := range p.observers {
		o.ObserveFrame(snap)
	}
	return nil
}

func (p *Processor) drainCommands() {
	for {
		select {
		case c := <-p.commands:
			p.apply(c)
		default:
			return
		}
	}
}

func (p *Processor) apply(c command) {
	switch c.kind {
	case cmdUndo:
		p.registry.Undo()
	case cmdReset:
		if n := p.registry.Reset(); n > 0 {
			logf("reset removed %d placements", n)
		}
	case cmdSelect:
		if err := p.selection.Select(c.model); err != nil {
			logf("%v", err)
		}
	case cmdPinch:
		p.selection.Pinch(c.factor)
	}
}

// handleTap consumes at most one queued tap and places the selected model on
// the nearest plane hit inside a polygon.
func (p *Processor) handleTap(frame *tracking.Frame) {
	tap, ok := p.taps.Poll()
	if !ok {
		return
	}
	if frame.CameraState != tracking.Tracking {
		p.stats.TapsMissed++
		return
	}
	hit, ok := tracking.FirstPlaneHit(p.session.HitTest(tap))
	if !ok {
		p.stats.TapsMissed++
		return
	}
	model := p.selection.Model()
	if _, err := p.registry.PlaceHit(p.session, hit, model.ID, p.selection.Scale()); err != nil {
		p.stats.PlaceErrors++
		logf("place %s on %s: %v", model.ID, hit.Plane.ID(), err)
		return
	}
	p.stats.Placements++
}

// applyLiveScale routes the live pinch scale to the newest instance of the
// selected model only.
func (p *Processor) applyLiveScale() {
	rec, ok := p.registry.MostRecentMatching(p.selection.Model().ID)
	if !ok || !(placement.Reconciler{}).IsTracking(rec) {
		return
	}
	if err := p.registry.UpdateScale(rec, p.selection.Scale()); err != nil {
		logf("rescale %s: %v", rec.ID, err)
	}
}

func (p *Processor) collectDraws() []Draw {
	draws := make([]Draw, 0, p.registry.Len())
	for rec, pose := range p.registry.ForEachTrackable() {
		draws = append(draws, Draw{
			RecordID:   rec.ID,
			AnchorID:   rec.Anchor.ID(),
			ModelID:    rec.ModelID,
			Pose:       pose,
			AnchorPose: rec.Anchor.Pose(),
			Scale:      rec.ScaleFactor,
			Transform:  pose.ModelMatrix(rec.ScaleFactor),
		})
	}
	return draws
}

// Run calls Step every interval until ctx is cancelled or maxFrames frames
// have been attempted (maxFrames <= 0 means no limit). An interval of zero
// runs frames back to back.
func (p *Processor) Run(ctx context.Context, interval time.Duration, maxFrames int) error {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := p.clock.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C()
	}
	for n := 0; maxFrames <= 0 || n < maxFrames; n++ {
		if err := p.Step(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		}
	}
	return nil
}
