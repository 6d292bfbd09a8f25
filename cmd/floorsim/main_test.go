package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/banshee-data/floorobjects/internal/config"
	"github.com/banshee-data/floorobjects/internal/journal"
	"github.com/banshee-data/floorobjects/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogs(t *testing.T) {
	t.Helper()
	testutil.CaptureLogs(t)
}

func TestRun_Simulation(t *testing.T) {
	quietLogs(t)

	dir := t.TempDir()
	sum, err := run(context.Background(), options{
		tuning:  config.EmptyTuningConfig(),
		frames:  300,
		seed:    3,
		dbPath:  testutil.TempDBPath(t, "journal.db"),
		plotDir: filepath.Join(dir, "plots"),
		dropout: 0.002,
	})
	require.NoError(t, err)

	st := sum.snapshot.Stats
	assert.Equal(t, int64(300), st.Frames+st.FailedFrames+st.Panics)
	assert.Positive(t, st.Placements)
	assert.Equal(t, sum.snapshot.Placements, sum.liveAnchors, "every placement holds exactly one anchor")
	assert.LessOrEqual(t, sum.snapshot.Placements, config.DefaultMaxPlacements)
	assert.NotEmpty(t, sum.draws)
	assert.Positive(t, sum.plots)

	assert.Equal(t, int(st.Placements), sum.journaled[journal.EventPlaced])
	removed := sum.journaled[journal.EventEvicted] + sum.journaled[journal.EventUndone] + sum.journaled[journal.EventReset]
	assert.Equal(t, int(st.Placements)-sum.snapshot.Placements, removed)

	var buf bytes.Buffer
	printSummary(&buf, sum)
	assert.Contains(t, buf.String(), "frames: ")
	assert.Contains(t, buf.String(), "journal placed")
}

func TestRun_ResetReleasesEverything(t *testing.T) {
	quietLogs(t)

	sum, err := run(context.Background(), options{
		frames:  201,
		seed:    5,
		resetAt: 200,
	})
	require.NoError(t, err)
	assert.Zero(t, sum.snapshot.Placements)
	assert.Zero(t, sum.liveAnchors)
	assert.Positive(t, sum.snapshot.Stats.Placements)
}

func TestRun_SmallRegistry(t *testing.T) {
	quietLogs(t)

	limit := 2
	sum, err := run(context.Background(), options{
		tuning: &config.TuningConfig{MaxPlacements: &limit},
		frames: 240,
		seed:   9,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, sum.snapshot.Placements, 2)
	assert.Equal(t, sum.snapshot.Placements, sum.liveAnchors)
}

func TestRun_Cancelled(t *testing.T) {
	quietLogs(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := run(ctx, options{frames: 100})
	require.NoError(t, err)
	assert.Zero(t, sum.snapshot.Stats.Frames)
}
