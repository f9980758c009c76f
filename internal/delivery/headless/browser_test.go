package headless

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestBrowser(t *testing.T, cfg Config) *Browser {
	t.Helper()
	b, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	b := newTestBrowser(t, Config{})
	require.Equal(t, DefaultNavTimeout, b.cfg.NavTimeout)
	require.Equal(t, DefaultSentinelTitle, b.cfg.SentinelTitle)
	require.Nil(t, b.limiter)
}

func TestNewRejectsNegativeParallelism(t *testing.T) {
	t.Parallel()

	_, err := New(Config{MaxParallel: -1})
	require.Error(t, err)
}

func TestIsSentinelTrimsAndIgnoresCase(t *testing.T) {
	t.Parallel()

	b := newTestBrowser(t, Config{})
	require.True(t, b.isSentinel("welcome to nginx"))
	require.True(t, b.isSentinel("  Welcome To NGINX  "))
	require.False(t, b.isSentinel("Example Domain"))
	require.False(t, b.isSentinel(""))
}

func TestNavTimeoutClipsToCallerDeadline(t *testing.T) {
	t.Parallel()

	b := newTestBrowser(t, Config{NavTimeout: 8 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.LessOrEqual(t, b.navTimeout(ctx), time.Second)

	require.Equal(t, 8*time.Second, b.navTimeout(context.Background()))
}

func TestOpenTargetTracksAndReleases(t *testing.T) {
	t.Parallel()

	b := newTestBrowser(t, Config{})
	_, release, err := b.openTarget()
	require.NoError(t, err)
	require.Equal(t, 1, b.openTargets())

	release()
	require.Zero(t, b.openTargets())

	// Releasing twice is harmless.
	release()
	require.Zero(t, b.openTargets())
}

func TestSlotTargetReusesLiveTab(t *testing.T) {
	t.Parallel()

	b := newTestBrowser(t, Config{})
	first, err := b.slotTarget(0)
	require.NoError(t, err)
	second, err := b.slotTarget(0)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, b.openTargets())

	other, err := b.slotTarget(1)
	require.NoError(t, err)
	require.NotSame(t, first, other)
	require.Equal(t, 2, b.openTargets())
}

func TestSlotTargetRecreatesDeadTab(t *testing.T) {
	t.Parallel()

	b := newTestBrowser(t, Config{})
	first, err := b.slotTarget(0)
	require.NoError(t, err)

	b.CloseAll()
	require.Error(t, first.Err())

	second, err := b.slotTarget(0)
	require.NoError(t, err)
	require.NotSame(t, first, second)
}

func TestCloseAllDisposesEverything(t *testing.T) {
	t.Parallel()

	b := newTestBrowser(t, Config{})
	_, _, err := b.openTarget()
	require.NoError(t, err)
	_, err = b.slotTarget(3)
	require.NoError(t, err)
	require.Equal(t, 2, b.openTargets())

	b.CloseAll()
	require.Zero(t, b.openTargets())
}

func TestAcquireHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	b := newTestBrowser(t, Config{MaxParallel: 1})
	require.NoError(t, b.acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, b.acquire(ctx))

	b.release()
	require.NoError(t, b.acquire(context.Background()))
}
