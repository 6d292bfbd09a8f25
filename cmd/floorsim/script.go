package main

import (
	"math/rand"

	"github.com/banshee-data/floorobjects/internal/catalog"
	"github.com/banshee-data/floorobjects/internal/frameloop"
	"github.com/banshee-data/floorobjects/internal/tracking"
)

// scriptedUser plays the part of the person holding the phone: it taps,
// pinches, switches models and occasionally undoes or resets. It runs as a
// frame observer so its input lands in the queues between frames, the same
// way UI events would.
type scriptedUser struct {
	proc   *frameloop.Processor
	models []catalog.Model
	rng    *rand.Rand

	tapEvery   uint64
	pinchEvery uint64
	undoEvery  uint64
	resetAt    uint64

	modelIdx int
	taps     int
	rejected int
}

func newScriptedUser(proc *frameloop.Processor, cat *catalog.Catalog, seed int64, resetAt uint64) *scriptedUser {
	return &scriptedUser{
		proc:       proc,
		models:     cat.Models(),
		rng:        rand.New(rand.NewSource(seed)),
		tapEvery:   15,
		pinchEvery: 7,
		undoEvery:  90,
		resetAt:    resetAt,
	}
}

func (u *scriptedUser) ObserveFrame(snap *frameloop.FrameSnapshot) {
	seq := snap.Seq
	if seq == 0 {
		return
	}

	if seq%u.tapEvery == 0 {
		// Every fourth tap switches to the next model first.
		if u.taps%4 == 3 && len(u.models) > 0 {
			u.modelIdx = (u.modelIdx + 1) % len(u.models)
			u.command(u.proc.Select(u.models[u.modelIdx].ID))
		}
		tap := tracking.Tap{X: 0.2 + 0.6*u.rng.Float64(), Y: 0.35 + 0.55*u.rng.Float64()}
		if !u.proc.OfferTap(tap) {
			u.rejected++
		}
		u.taps++
	}
	if seq%u.pinchEvery == 0 {
		u.command(u.proc.Pinch(0.8 + 0.5*u.rng.Float64()))
	}
	if seq%u.undoEvery == 0 {
		u.command(u.proc.Undo())
	}
	if u.resetAt > 0 && seq == u.resetAt {
		u.command(u.proc.Reset())
	}
}

func (u *scriptedUser) command(err error) {
	if err != nil {
		u.rejected++
	}
}
