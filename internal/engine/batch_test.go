package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dish/internal/testutil"
)

// recorder is an Observer that keeps everything it sees.
type recorder struct {
	calls []string
	runs  []*RunResult
	begin *BatchResult
	fail  error
}

func (r *recorder) BeginBatch(_ context.Context, b *BatchResult) error {
	r.calls = append(r.calls, "begin")
	r.begin = b
	return nil
}

func (r *recorder) ObserveRun(_ context.Context, _ *BatchResult, run *RunResult) error {
	r.calls = append(r.calls, "run")
	r.runs = append(r.runs, run)
	return r.fail
}

func (r *recorder) EndBatch(_ context.Context, _ *BatchResult) error {
	r.calls = append(r.calls, "end")
	return nil
}

func TestBatch_Run(t *testing.T) {
	m := testutil.MustParse(t, testutil.OscillatorModel, testutil.ParseDefaults)
	rec := &recorder{}

	b := NewBatch(m, Options{Mode: ModeRA}, identity(),
		WithObserver(rec),
		WithIDGenerator(NewFixedGenerator("batch-1")),
		WithNow(testutil.NowFunc()),
	)
	res, err := b.Run(context.Background(), 3, 4)
	require.NoError(t, err)

	assert.Equal(t, "batch-1", res.ID)
	assert.Equal(t, 3, res.Runs)
	assert.Equal(t, 4, res.Cycles)
	assert.Equal(t, 3, res.Completed)
	assert.Equal(t, []string{"osc"}, res.Names)
	assert.Equal(t, testutil.FixedTime, res.StartedAt)
	assert.NotEmpty(t, res.ModelHash)

	// every run oscillates 0 1 0 1 0
	assert.Equal(t, [][]int{{0, 3, 0, 3, 0}}, res.Sums)

	assert.Equal(t, []string{"begin", "run", "run", "run", "end"}, rec.calls)
	require.Len(t, rec.runs, 3)
	for i, run := range rec.runs {
		assert.Equal(t, i, run.Index)
		assert.Equal(t, []uint8{0, 1, 0, 1, 0}, run.Trace[0])
		assert.Equal(t, []uint8{0}, run.Initial())
		require.Len(t, run.Events, 4)
	}
}

func TestBatch_EventsAreStampedInOrder(t *testing.T) {
	m := testutil.MustParse(t, testutil.ChainModel, testutil.ParseDefaults)
	rec := &recorder{}

	_, err := NewBatch(m, Options{Mode: ModeCA}, NewRand(1), WithObserver(rec), WithClock(NewClockAt(10))).
		Run(context.Background(), 2, 3)
	require.NoError(t, err)

	want := int64(11)
	for _, run := range rec.runs {
		require.Len(t, run.Events, 9, "three groups per cycle")
		for _, ev := range run.Events {
			assert.Equal(t, want, ev.Seq)
			assert.Equal(t, run.Index, ev.Run)
			want++
		}
	}
}

func TestBatch_Reproducible(t *testing.T) {
	m := testutil.MustParse(t, "a = random\nb = random\nc = false\nRules:\nc = a * b;\na = !b;\nb = c + a;\n", testutil.ParseDefaults)

	run := func() [][]int {
		res, err := NewBatch(m, Options{Mode: ModeRA}, NewRand(99)).Run(context.Background(), 20, 15)
		require.NoError(t, err)
		return res.Sums
	}
	assert.Equal(t, run(), run(), "same seed, same sums")
}

func TestBatch_SumsMatchTraces(t *testing.T) {
	m := testutil.MustParse(t, testutil.ChainModel, testutil.ParseDefaults)
	rec := &recorder{}

	res, err := NewBatch(m, Options{Mode: ModeRA}, NewRand(5), WithObserver(rec)).Run(context.Background(), 10, 6)
	require.NoError(t, err)

	for e := range res.Names {
		for k := 0; k <= 6; k++ {
			n := 0
			for _, run := range rec.runs {
				n += int(run.Trace[e][k])
			}
			assert.Equal(t, n, res.Sums[e][k], "element %d index %d", e, k)
		}
	}
}

func TestBatch_InvalidArguments(t *testing.T) {
	m := testutil.MustParse(t, testutil.OscillatorModel, testutil.ParseDefaults)
	b := NewBatch(m, Options{Mode: ModeRA}, identity())

	_, err := b.Run(context.Background(), 0, 5)
	assert.Error(t, err)

	_, err = b.Run(context.Background(), 1, -1)
	assert.Error(t, err)

	_, err = NewBatch(m, Options{Mode: ModeRA, Ranked: true}, identity()).Run(context.Background(), 1, 1)
	assert.True(t, IsInvalidMode(err))
}

func TestBatch_ContextCancelled(t *testing.T) {
	m := testutil.MustParse(t, testutil.OscillatorModel, testutil.ParseDefaults)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBatch(m, Options{Mode: ModeRA}, identity()).Run(ctx, 5, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatch_ObserverErrorStops(t *testing.T) {
	m := testutil.MustParse(t, testutil.OscillatorModel, testutil.ParseDefaults)
	boom := errors.New("disk full")
	rec := &recorder{fail: boom}

	_, err := NewBatch(m, Options{Mode: ModeRA}, identity(), WithObserver(rec)).Run(context.Background(), 5, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"begin", "run"}, rec.calls)
}

func TestScheduleFromEvents(t *testing.T) {
	events := []Event{
		{Seq: 1, Cycle: 0, Group: 2},
		{Seq: 2, Cycle: 0, Group: 0},
		{Seq: 3, Cycle: 2, Group: 1},
	}
	assert.Equal(t, [][]int{{2, 0}, nil, {1}}, ScheduleFromEvents(events, 3))
}
