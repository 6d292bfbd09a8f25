package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/banshee-data/floorobjects/internal/journal"
)

func printSummary(w io.Writer, s *summary) {
	snap := s.snapshot
	st := snap.Stats
	fmt.Fprintf(w, "frames: %d processed, %d failed, %d panics\n", st.Frames, st.FailedFrames, st.Panics)
	fmt.Fprintf(w, "taps: %d placed, %d missed, %d dropped, %d place errors\n", st.Placements, st.TapsMissed, st.TapsDropped, st.PlaceErrors)
	fmt.Fprintf(w, "placements: %d live, %d anchors held, %d drawn last frame\n", snap.Placements, s.liveAnchors, len(snap.Draws))
	fmt.Fprintf(w, "selection: %s at scale %.4f\n", snap.SelectedModel, snap.LiveScale)
	for _, id := range sortedModelIDs(s.draws) {
		fmt.Fprintf(w, "  draws %-10s %d\n", id, s.draws[id])
	}
	if s.plots > 0 {
		fmt.Fprintf(w, "plots: %d written\n", s.plots)
	}
	if len(s.journaled) > 0 {
		events := make([]string, 0, len(s.journaled))
		for ev := range s.journaled {
			events = append(events, string(ev))
		}
		sort.Strings(events)
		for _, ev := range events {
			fmt.Fprintf(w, "  journal %-9s %d\n", ev, s.journaled[journal.Event(ev)])
		}
	}
}
