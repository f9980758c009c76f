package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkforge/linkforge/internal/config"
)

func TestNewRegistersEntries(t *testing.T) {
	t.Parallel()

	entries := []config.ScheduleEntry{
		{Cron: "0 * * * *", URL: "https://example.com", Mode: "fetch"},
		{Cron: "30 2 * * *", URL: "https://example.org", Mode: "frame"},
	}
	s, err := New(entries, nil, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 2, s.EntryCount())

	s.Start()
	s.Stop()
}

func TestNewRejectsInvalidCron(t *testing.T) {
	t.Parallel()

	entries := []config.ScheduleEntry{{Cron: "not a cron", URL: "https://example.com"}}
	_, err := New(entries, nil, zap.NewNop())
	require.Error(t, err)
}

func TestNewRejectsInvalidMode(t *testing.T) {
	t.Parallel()

	entries := []config.ScheduleEntry{{Cron: "* * * * *", URL: "https://example.com", Mode: "warp"}}
	_, err := New(entries, nil, zap.NewNop())
	require.Error(t, err)
}

func TestNewWithNoEntries(t *testing.T) {
	t.Parallel()

	s, err := New(nil, nil, zap.NewNop())
	require.NoError(t, err)
	require.Zero(t, s.EntryCount())
}
