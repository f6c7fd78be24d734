package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	events   []*Event
	logErr   error
	closeErr error
	closed   bool
}

func (r *recordingLogger) Log(ctx context.Context, event *Event) error {
	if r.logErr != nil {
		return r.logErr
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingLogger) Close() error {
	r.closed = true
	return r.closeErr
}

func TestMultiLogger_FansOut(t *testing.T) {
	a := &recordingLogger{}
	b := &recordingLogger{}
	multi := NewMultiLogger(a, b)

	event := &Event{EventType: EventInvitationCreate, Status: EventStatusSuccess}
	require.NoError(t, multi.Log(context.Background(), event))

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestMultiLogger_FailureDoesNotSkipOthers(t *testing.T) {
	broken := &recordingLogger{logErr: fmt.Errorf("disk full")}
	healthy := &recordingLogger{}
	multi := NewMultiLogger(broken, healthy)

	err := multi.Log(context.Background(), &Event{EventType: EventTreeUpdate, Status: EventStatusSuccess})
	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, healthy.events, 1, "healthy logger should still receive the event")
}

func TestMultiLogger_CloseClosesAll(t *testing.T) {
	a := &recordingLogger{closeErr: fmt.Errorf("already closed")}
	b := &recordingLogger{}
	multi := NewMultiLogger(a, b)

	err := multi.Close()
	assert.Error(t, err)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestNopLogger(t *testing.T) {
	var logger Logger = NopLogger{}
	assert.NoError(t, logger.Log(context.Background(), &Event{EventType: EventLogin}))
	assert.NoError(t, logger.Close())
}
