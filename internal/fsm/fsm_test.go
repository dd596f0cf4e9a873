package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenCycle(t *testing.T) {
	s := ListenIdle

	next, err := Listen(s, ListenStart)
	require.NoError(t, err)
	require.Equal(t, ListenListening, next)

	next, err = Listen(next, ListenPartial)
	require.NoError(t, err)
	require.Equal(t, ListenListening, next)

	next, err = Listen(next, ListenEnded)
	require.NoError(t, err)
	require.Equal(t, ListenIdle, next)

	next, err = Listen(next, ListenStart)
	require.NoError(t, err)
	next, err = Listen(next, ListenError)
	require.NoError(t, err)
	require.Equal(t, ListenIdle, next)
}

func TestReplyCycle(t *testing.T) {
	next, err := Reply(ReplyReady, ReplySubmit)
	require.NoError(t, err)
	require.Equal(t, ReplyAwaiting, next)

	next, err = Reply(next, ReplyOutcome)
	require.NoError(t, err)
	require.Equal(t, ReplyReady, next)
}

func TestListenMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		state ListenState
		event ListenEvent
	}{
		{name: "idle partial invalid", state: ListenIdle, event: ListenPartial},
		{name: "idle ended invalid", state: ListenIdle, event: ListenEnded},
		{name: "idle error invalid", state: ListenIdle, event: ListenError},
		{name: "listening start invalid", state: ListenListening, event: ListenStart},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Listen(tc.state, tc.event)
			require.Equal(t, tc.state, next)
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid transition")
		})
	}
}

func TestReplyMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		state ReplyState
		event ReplyEvent
	}{
		{name: "ready outcome invalid", state: ReplyReady, event: ReplyOutcome},
		{name: "awaiting submit invalid", state: ReplyAwaiting, event: ReplySubmit},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Reply(tc.state, tc.event)
			require.Equal(t, tc.state, next)
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid transition")
		})
	}
}

func TestUnknownStates(t *testing.T) {
	next, err := Listen(ListenState("mystery"), ListenStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown listen state")
	require.Equal(t, ListenState("mystery"), next)

	reply, err := Reply(ReplyState("mystery"), ReplySubmit)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown reply state")
	require.Equal(t, ReplyState("mystery"), reply)
}
