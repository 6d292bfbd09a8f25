package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestRealClock(t *testing.T) {
	t.Parallel()

	var c Clock = RealClock{}
	before := time.Now()
	assert.False(t, c.Now().Before(before))

	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()
	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker did not tick")
	}
}

func TestMockClock_SetAdvance(t *testing.T) {
	t.Parallel()

	c := NewMockClock(epoch)
	assert.Equal(t, epoch, c.Now())
	assert.Equal(t, epoch, c.Now(), "no step, time stands still")

	c.Advance(time.Minute)
	assert.Equal(t, epoch.Add(time.Minute), c.Now())

	c.Set(epoch)
	assert.Equal(t, epoch, c.Now())
}

func TestSteppingClock(t *testing.T) {
	t.Parallel()

	c := NewSteppingClock(epoch, time.Millisecond)
	a, b := c.Now(), c.Now()
	assert.Equal(t, epoch, a)
	assert.Equal(t, time.Millisecond, b.Sub(a))
}

func TestMockTicker(t *testing.T) {
	t.Parallel()

	c := NewMockClock(epoch)
	tk := c.NewTicker(10 * time.Millisecond)

	c.Advance(5 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticked early")
	default:
	}

	c.Advance(5 * time.Millisecond)
	select {
	case got := <-tk.C():
		assert.Equal(t, epoch.Add(10*time.Millisecond), got)
	default:
		t.Fatal("expected tick")
	}

	// A slow receiver sees one buffered tick, not a backlog.
	c.Advance(50 * time.Millisecond)
	require.Len(t, tk.(*MockTicker).ch, 1)
	<-tk.C()

	tk.Stop()
	c.Advance(time.Second)
	assert.Len(t, tk.(*MockTicker).ch, 0)
}
