package progress_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/codelab/internal/apperr"
	"github.com/mind-engage/codelab/internal/db/dbtest"
	"github.com/mind-engage/codelab/internal/progress"
)

func newStore(t *testing.T) *progress.SQLStore {
	t.Helper()
	return progress.NewSQLStore(dbtest.Open(t))
}

func ptr[T any](v T) *T { return &v }

func TestUpsertScoreOutcome(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	out, err := s.UpsertScore(ctx, "ann", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, progress.Created, out)

	out, err = s.UpsertScore(ctx, "ann", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, progress.Updated, out)

	scores, err := s.Scores(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{2: 1}, scores)
}

func TestEnsureAndResetScores(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.UpsertScore(ctx, "ann", 1, 1)
	require.NoError(t, err)
	require.NoError(t, s.EnsureScores(ctx, "ann", 3))

	scores, err := s.Scores(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 0, 1: 1, 2: 0}, scores, "seeding never overwrites")

	require.NoError(t, s.ResetScores(ctx, "ann", 3))
	scores, err = s.Scores(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 0, 1: 0, 2: 0}, scores)
}

func TestSnapshotSeedAndReplace(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	snap, err := s.EnsureSnapshot(ctx, "ann", "template")
	require.NoError(t, err)
	assert.Equal(t, "template", snap)

	out, err := s.PutSnapshot(ctx, "ann", "mine")
	require.NoError(t, err)
	assert.Equal(t, progress.Updated, out)

	snap, err = s.EnsureSnapshot(ctx, "ann", "template")
	require.NoError(t, err)
	assert.Equal(t, "mine", snap)

	out, err = s.PutSnapshot(ctx, "bob", "his")
	require.NoError(t, err)
	assert.Equal(t, progress.Created, out)
}

func TestApplyResponsePartialThenFull(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	out, err := s.ApplyResponse(ctx, "ann", progress.ResponseUpdate{QuestionID: 1, DTime: 1000, DHover: 200})
	require.NoError(t, err)
	assert.Equal(t, progress.Created, out)
	_, err = s.ApplyResponse(ctx, "ann", progress.ResponseUpdate{QuestionID: 1, DTime: 500, DHover: 0})
	require.NoError(t, err)

	rs, err := s.Responses(ctx, "ann")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, progress.Response{QuestionID: 1, Answer: progress.Unanswered, TimeElapsed: 1500, HoverTime: 200}, rs[0])

	out, err = s.ApplyResponse(ctx, "ann", progress.ResponseUpdate{
		QuestionID: 1, Answer: ptr(2), FreeResponse: ptr("because"), DTime: 10, DHover: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, progress.Updated, out)

	rs, err = s.Responses(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, progress.Response{QuestionID: 1, Answer: 2, FreeResponse: "because", TimeElapsed: 1510, HoverTime: 205}, rs[0])

	// a later partial update keeps the answer
	_, err = s.ApplyResponse(ctx, "ann", progress.ResponseUpdate{QuestionID: 1, DTime: 1})
	require.NoError(t, err)
	rs, err = s.Responses(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, 2, rs[0].Answer)
	assert.Equal(t, int64(1511), rs[0].TimeElapsed)
}

func TestPointer(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	cur, err := s.Pointer(ctx, "ann")
	require.NoError(t, err)
	assert.Zero(t, cur)

	require.NoError(t, s.SetPointer(ctx, "ann", 3))
	require.NoError(t, s.SetPointer(ctx, "ann", 1))
	cur, err = s.Pointer(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, 1, cur)
}

func TestIncrementHoverConcurrent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementHover(ctx, "ann", "diagram", "node")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.IncrementHover(ctx, "ann", "diagram", "node")
	require.NoError(t, err)
	assert.Equal(t, int64(n+1), got)

	got, err = s.IncrementHover(ctx, "bob", "diagram", "node")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "counters are per learner")
}

func TestUpsertsOutsideTxAreAtomic(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := s.UpsertScore(ctx, "ann", 2, 1)
			assert.NoError(t, err)
			_, err = s.ApplyResponse(ctx, "ann", progress.ResponseUpdate{QuestionID: 0, DTime: 10, DHover: 1})
			assert.NoError(t, err)
			if out == progress.Created {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	scores, err := s.Scores(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{2: 1}, scores)

	rs, err := s.Responses(ctx, "ann")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, int64(10*n), rs[0].TimeElapsed)
	assert.Equal(t, int64(n), rs[0].HoverTime)
}

func TestPageTimeLogKeepsEveryVisit(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendPageTime(ctx, "ann", "intro", 500))
	require.NoError(t, s.AppendPageTime(ctx, "ann", "intro", 300))
	require.NoError(t, s.AppendPageTime(ctx, "ann", "ownership", 10))

	got, err := s.PageTimes(ctx, "ann", "intro")
	require.NoError(t, err)
	assert.Equal(t, []int64{500, 300}, got)
}

func TestInTxRollsBackEveryWrite(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx progress.Ops) error {
		if _, err := tx.UpsertScore(ctx, "ann", 0, 1); err != nil {
			return err
		}
		if _, err := tx.PutSnapshot(ctx, "ann", "draft"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	scores, err := s.Scores(ctx, "ann")
	require.NoError(t, err)
	assert.Empty(t, scores)
	snap, err := s.EnsureSnapshot(ctx, "ann", "template")
	require.NoError(t, err)
	assert.Equal(t, "template", snap)
}

func TestStoreErrorsArePersistenceKind(t *testing.T) {
	h := dbtest.Open(t)
	s := progress.NewSQLStore(h)
	require.NoError(t, h.Close())

	_, err := s.UpsertScore(context.Background(), "ann", 0, 1)
	require.ErrorIs(t, err, apperr.ErrPersistence)
}
