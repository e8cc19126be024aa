package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNow struct{ t time.Time }

func (f *fakeNow) now() time.Time          { return f.t }
func (f *fakeNow) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestMemorySlots_TakeConsumes(t *testing.T) {
	slots := NewMemorySlots(0, nil)
	ctx := context.Background()

	require.NoError(t, slots.Put(ctx, "req-1", "done"))

	output, ok, err := slots.Take(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "done", output)

	// Second take must miss: the slot is read-and-delete.
	_, ok, err = slots.Take(ctx, "req-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySlots_TakeMissing(t *testing.T) {
	slots := NewMemorySlots(0, nil)

	_, ok, err := slots.Take(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySlots_Expiry(t *testing.T) {
	clk := &fakeNow{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	slots := NewMemorySlots(SlotTTL, clk.now)
	ctx := context.Background()

	require.NoError(t, slots.Put(ctx, "req-1", "done"))
	clk.advance(SlotTTL + time.Second)

	_, ok, err := slots.Take(ctx, "req-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySlots_PutOverwrites(t *testing.T) {
	slots := NewMemorySlots(0, nil)
	ctx := context.Background()

	require.NoError(t, slots.Put(ctx, "req-1", "first"))
	require.NoError(t, slots.Put(ctx, "req-1", "second"))

	output, ok, err := slots.Take(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", output)
}
