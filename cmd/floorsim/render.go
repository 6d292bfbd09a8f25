package main

import (
	"sort"

	"github.com/banshee-data/floorobjects/internal/catalog"
	"github.com/banshee-data/floorobjects/internal/frameloop"
	"github.com/banshee-data/floorobjects/internal/monitoring"
	"github.com/banshee-data/floorobjects/internal/tracking"
)

var renderLogf = monitoring.Tagged("render")

// objectRenderer stands in for the GPU resources of one model.
type objectRenderer struct {
	model catalog.Model
	draws int64
}

// consoleRenderer counts draw calls per model and logs a one-line frame
// summary every logEvery frames.
type consoleRenderer struct {
	table    *catalog.RendererTable[*objectRenderer]
	logEvery uint64
	unknown  int64
	frames   int64
}

func newConsoleRenderer(cat *catalog.Catalog, logEvery uint64) (*consoleRenderer, error) {
	table, err := catalog.NewRendererTable(cat, func(m catalog.Model) (*objectRenderer, error) {
		return &objectRenderer{model: m}, nil
	})
	if err != nil {
		return nil, err
	}
	return &consoleRenderer{table: table, logEvery: logEvery}, nil
}

func (r *consoleRenderer) Draw(frame *tracking.Frame, draws []frameloop.Draw) error {
	r.frames++
	for _, d := range draws {
		obj, ok := r.table.Lookup(d.ModelID)
		if !ok {
			r.unknown++
			continue
		}
		obj.draws++
	}
	if r.logEvery > 0 && frame.Seq%r.logEvery == 0 {
		renderLogf("frame %d: %d objects, %d planes, %d anchors",
			frame.Seq, len(draws), len(frame.Planes), len(frame.Anchors))
	}
	return nil
}

// drawCounts returns per-model draw totals, skipping models never drawn.
func (r *consoleRenderer) drawCounts(cat *catalog.Catalog) map[catalog.ModelID]int64 {
	counts := make(map[catalog.ModelID]int64)
	for _, m := range cat.Models() {
		if obj, ok := r.table.Lookup(m.ID); ok && obj.draws > 0 {
			counts[m.ID] = obj.draws
		}
	}
	return counts
}

func sortedModelIDs(counts map[catalog.ModelID]int64) []catalog.ModelID {
	ids := make([]catalog.ModelID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
