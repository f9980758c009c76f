package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEventValidate(t *testing.T) {
	t.Parallel()

	base := Event{
		RunID: uuid.New(),
		TS:    time.Unix(1700000000, 0).UTC(),
	}

	t.Run("run events need no url", func(t *testing.T) {
		t.Parallel()
		for _, stage := range []Stage{StageRunStart, StageRunDone, StageRunStop, StageTaskDone} {
			evt := base
			evt.Stage = stage
			require.NoError(t, evt.Validate())
		}
	})

	t.Run("attempt events require url", func(t *testing.T) {
		t.Parallel()
		for _, stage := range []Stage{StageAttemptStart, StageAttemptDone} {
			evt := base
			evt.Stage = stage
			require.Error(t, evt.Validate())
			evt.URL = "https://example.com"
			require.NoError(t, evt.Validate())
		}
	})

	t.Run("missing run id", func(t *testing.T) {
		t.Parallel()
		evt := base
		evt.RunID = uuid.Nil
		evt.Stage = StageRunStart
		require.Error(t, evt.Validate())
	})

	t.Run("missing timestamp", func(t *testing.T) {
		t.Parallel()
		evt := base
		evt.TS = time.Time{}
		evt.Stage = StageRunStart
		require.Error(t, evt.Validate())
	})

	t.Run("unknown stage", func(t *testing.T) {
		t.Parallel()
		evt := base
		evt.Stage = Stage("WAT")
		require.Error(t, evt.Validate())
	})

	t.Run("negative duration", func(t *testing.T) {
		t.Parallel()
		evt := base
		evt.Stage = StageRunDone
		evt.Dur = -time.Second
		require.Error(t, evt.Validate())
	})
}
