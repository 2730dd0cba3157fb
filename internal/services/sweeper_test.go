package services

import (
	"context"
	"testing"
	"time"

	"auction-platform/pkg/logger"

	"github.com/stretchr/testify/require"
)

func TestSweep_ClosesDueAuctions(t *testing.T) {
	env := newTestEnv()
	env.seedAuction("due-1", -time.Minute, "100")
	env.seedAuction("due-2", -time.Hour, "200")
	env.seedAuction("open", time.Hour, "300")

	sweep := NewFinalizerSweep(env.store, env.closer, nil, "test-1", time.Second, logger.NewNop())
	sweep.RunCycle(context.Background())

	for _, id := range []string{"due-1", "due-2"} {
		fresh, err := env.store.GetAuction(context.Background(), id)
		require.NoError(t, err)
		require.True(t, fresh.IsClosed)
	}

	open, err := env.store.GetAuction(context.Background(), "open")
	require.NoError(t, err)
	require.False(t, open.IsClosed)

	require.Equal(t, 2, env.notifier.CloseEventCount())
}

func TestSweep_RepeatedCyclesAreIdempotent(t *testing.T) {
	env := newTestEnv()
	env.seedAuction("due-1", -time.Minute, "100")

	sweep := NewFinalizerSweep(env.store, env.closer, nil, "test-1", time.Second, logger.NewNop())
	sweep.RunCycle(context.Background())
	sweep.RunCycle(context.Background())
	sweep.RunCycle(context.Background())

	require.Equal(t, 1, env.notifier.CloseEventCount())
}

func TestSweep_SkipsWhenNotLeader(t *testing.T) {
	env := newTestEnv()
	env.seedAuction("due-1", -time.Minute, "100")

	sweep := NewFinalizerSweep(env.store, env.closer, &fakeElection{leader: false}, "test-1", time.Second, logger.NewNop())
	sweep.RunCycle(context.Background())

	fresh, err := env.store.GetAuction(context.Background(), "due-1")
	require.NoError(t, err)
	require.False(t, fresh.IsClosed, "followers leave the sweep to the leader")
	require.Equal(t, 0, env.notifier.CloseEventCount())
}

func TestSweep_RunsWhenLeader(t *testing.T) {
	env := newTestEnv()
	env.seedAuction("due-1", -time.Minute, "100")

	sweep := NewFinalizerSweep(env.store, env.closer, &fakeElection{leader: true}, "test-1", time.Second, logger.NewNop())
	sweep.RunCycle(context.Background())

	fresh, err := env.store.GetAuction(context.Background(), "due-1")
	require.NoError(t, err)
	require.True(t, fresh.IsClosed)
}

func TestSweep_StopsSchedulingAfterCancel(t *testing.T) {
	env := newTestEnv()
	env.seedAuction("due-1", -time.Minute, "100")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sweep := NewFinalizerSweep(env.store, env.closer, nil, "test-1", time.Second, logger.NewNop())
	sweep.RunCycle(ctx)

	fresh, err := env.store.GetAuction(context.Background(), "due-1")
	require.NoError(t, err)
	require.False(t, fresh.IsClosed, "cancelled cycles defer work to the next start")
}

func TestSweep_RaceWithOpportunisticCloseEmitsOneEvent(t *testing.T) {
	env := newTestEnv()
	env.seedAuction("due-1", -time.Minute, "100")

	// Simulate the read path finalizing the auction just before the sweep
	// reaches it: the sweep must treat the lost race as a no-op.
	snapshot, err := env.store.GetAuction(context.Background(), "due-1")
	require.NoError(t, err)
	event, err := env.closer.CloseIfDue(context.Background(), snapshot, time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, event)

	sweep := NewFinalizerSweep(env.store, env.closer, nil, "test-1", time.Second, logger.NewNop())
	sweep.RunCycle(context.Background())

	require.Equal(t, 1, env.notifier.CloseEventCount(), "exactly one close event system-wide")
}

func TestSweep_StartStopLifecycle(t *testing.T) {
	env := newTestEnv()
	sweep := NewFinalizerSweep(env.store, env.closer, nil, "test-1", 50*time.Millisecond, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sweep.Start(ctx))

	cancel()
	require.NoError(t, sweep.Stop())
}
