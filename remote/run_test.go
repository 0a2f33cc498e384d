package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type observed struct {
	title string
	err   error
}

type recordingObserver struct{ calls []observed }

func (r *recordingObserver) ObserveRemote(title string, err error, _ time.Duration) {
	r.calls = append(r.calls, observed{title, err})
}

func TestRunSuccess(t *testing.T) {
	inbox := NewInbox()
	obs := &recordingObserver{}
	r := NewRunner(inbox, zaptest.NewLogger(t)).WithObserver(obs)

	got, err := Do(context.Background(), r, Operation{Title: "Save", Success: "saved", Error: "failed"},
		func(context.Context) (int, error) { return 7, nil })

	require.NoError(t, err)
	assert.Equal(t, 7, got)
	active := inbox.Active()
	require.Len(t, active, 1, "loading notice replaced by the settled one")
	assert.Equal(t, LevelSuccess, active[0].Level)
	assert.Equal(t, "saved", active[0].Message)
	assert.Equal(t, DefaultNotificationTTL, active[0].TTL)
	require.Len(t, obs.calls, 1)
	assert.NoError(t, obs.calls[0].err)
}

func TestRunFailureSurfacesError(t *testing.T) {
	inbox := NewInbox()
	r := NewRunner(inbox, zaptest.NewLogger(t))
	boom := errors.New("boom")

	err := r.Run(context.Background(), Operation{Title: "Assign", Error: "could not assign"},
		func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	active := inbox.Active()
	require.Len(t, active, 1)
	assert.Equal(t, LevelError, active[0].Level)
	assert.Equal(t, "could not assign", active[0].Message)
}

func TestInboxExpires(t *testing.T) {
	inbox := NewInbox()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	inbox.now = func() time.Time { return now }

	inbox.Notify(Notification{Level: LevelError, Title: "x", TTL: time.Second, At: now})
	assert.Len(t, inbox.Active(), 1)

	now = now.Add(2 * time.Second)
	assert.Empty(t, inbox.Active())
}
