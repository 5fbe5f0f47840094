package telemetry_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/codelab/internal/apperr"
	"github.com/mind-engage/codelab/internal/db/dbtest"
	"github.com/mind-engage/codelab/internal/progress"
	"github.com/mind-engage/codelab/internal/telemetry"
)

func newCounters(t *testing.T) *telemetry.Counters {
	t.Helper()
	return telemetry.New(progress.NewSQLStore(dbtest.Open(t)))
}

func TestHoverCountsUp(t *testing.T) {
	c := newCounters(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.RecordHover(ctx, "ann", "vis_04_01_01", "line_3")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := c.RecordHover(ctx, "ann", "vis_04_01_01", "line_4")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "items are counted separately")
}

func TestHoverConcurrentIncrementsSumExactly(t *testing.T) {
	c := newCounters(t)
	ctx := context.Background()

	const n = 30
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.RecordHover(ctx, "ann", "svg", "item")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := c.RecordHover(ctx, "ann", "svg", "item")
	require.NoError(t, err)
	assert.Equal(t, int64(n+1), got)
}

func TestPageTimeAppendsRows(t *testing.T) {
	c := newCounters(t)
	ctx := context.Background()

	require.NoError(t, c.RecordPageTime(ctx, "ann", "ch04-01", 500))
	require.NoError(t, c.RecordPageTime(ctx, "ann", "ch04-01", 300))

	got, err := c.PageTimes(ctx, "ann", "ch04-01")
	require.NoError(t, err)
	assert.Equal(t, []int64{500, 300}, got)
}

func TestTelemetryValidation(t *testing.T) {
	c := newCounters(t)
	ctx := context.Background()

	_, err := c.RecordHover(ctx, "ann", " ", "item")
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = c.RecordHover(ctx, "", "svg", "item")
	require.ErrorIs(t, err, apperr.ErrAuthRequired)

	require.ErrorIs(t, c.RecordPageTime(ctx, "ann", "", 10), apperr.ErrValidation)
	require.ErrorIs(t, c.RecordPageTime(ctx, "ann", "page", -1), apperr.ErrValidation)

	got, err := c.PageTimes(ctx, "ann", "page")
	require.NoError(t, err)
	assert.Empty(t, got)
}
