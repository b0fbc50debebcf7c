package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mutualaidnyc/hotline/pkg/core/model"
)

func newTestCallLogger(store *mockCallLogStore) *CallLogger {
	l := NewCallLogger(store, testConfig(), zap.NewNop())
	l.now = func() time.Time { return tuesdayNoon }
	return l
}

func TestHandleWorkspaceEventTaskCreated(t *testing.T) {
	store := newMockCallLogStore()
	l := newTestCallLogger(store)

	err := l.HandleWorkspaceEvent(context.Background(), model.WorkspaceEvent{
		EventType:      "task.created",
		TaskSid:        "WT1",
		TaskAttributes: `{"selected_language":"Spanish","call_sid":"CA1","caller":"+12125550199"}`,
	})
	require.NoError(t, err)

	require.Len(t, store.inserted, 1)
	entry := store.inserted[0]
	assert.Equal(t, "WT1", entry.TaskSid)
	assert.Equal(t, "CA1", entry.CallSid)
	assert.Equal(t, "Spanish", entry.Language)
	assert.Equal(t, "2125550199", entry.CallerPhone)
}

func TestHandleWorkspaceEventBadAttributesIsDropped(t *testing.T) {
	store := newMockCallLogStore()
	l := newTestCallLogger(store)

	err := l.HandleWorkspaceEvent(context.Background(), model.WorkspaceEvent{
		EventType:      "task.created",
		TaskSid:        "WT1",
		TaskAttributes: "{not json",
	})
	require.NoError(t, err)
	assert.Empty(t, store.inserted)
}

func TestHandleWorkspaceEventReservationAccepted(t *testing.T) {
	store := newMockCallLogStore()
	l := newTestCallLogger(store)

	err := l.HandleWorkspaceEvent(context.Background(), model.WorkspaceEvent{
		EventType:  "reservation.accepted",
		TaskSid:    "WT1",
		TaskAge:    "42",
		WorkerSid:  "WK1",
		WorkerName: "Ada-1",
	})
	require.NoError(t, err)

	require.Len(t, store.updates["WT1"], 1)
	update := store.updates["WT1"][0]
	require.NotNil(t, update.VolunteerName)
	assert.Equal(t, "Ada-1", *update.VolunteerName)
	require.NotNil(t, update.SecondsInQueue)
	assert.Equal(t, 42, *update.SecondsInQueue)
	require.NotNil(t, update.VolunteerConnectTime)
	assert.Equal(t, tuesdayNoon, *update.VolunteerConnectTime)
	assert.Nil(t, update.EndStatus)
}

func TestHandleWorkspaceEventSentinelAcceptIsQueueTimeout(t *testing.T) {
	store := newMockCallLogStore()
	l := newTestCallLogger(store)

	err := l.HandleWorkspaceEvent(context.Background(), model.WorkspaceEvent{
		EventType: "reservation.accepted",
		TaskSid:   "WT1",
		WorkerSid: vmWorkerSid,
	})
	require.NoError(t, err)

	require.Len(t, store.updates["WT1"], 1)
	update := store.updates["WT1"][0]
	require.NotNil(t, update.EndStatus)
	assert.Equal(t, statusQueueTimeout, *update.EndStatus)
	assert.Nil(t, update.VolunteerName)
}

func TestHandleWorkspaceEventTaskCanceled(t *testing.T) {
	store := newMockCallLogStore()
	l := newTestCallLogger(store)

	err := l.HandleWorkspaceEvent(context.Background(), model.WorkspaceEvent{
		EventType: "task.canceled",
		TaskSid:   "WT1",
		TaskAge:   "17",
	})
	require.NoError(t, err)

	require.Len(t, store.updates["WT1"], 1)
	update := store.updates["WT1"][0]
	require.NotNil(t, update.EndStatus)
	assert.Equal(t, statusHangupInQueue, *update.EndStatus)
	require.NotNil(t, update.SecondsInQueue)
	assert.Equal(t, 17, *update.SecondsInQueue)
	assert.Nil(t, update.TalkEndAge)
}

func TestHandleWorkspaceEventTaskCompleted(t *testing.T) {
	tests := []struct {
		name       string
		reason     string
		wantStatus string
		wantTalk   bool
	}{
		{"after a conversation", "conference ended", statusTalked, true},
		{"queue timeout", reasonQueueTimeout, statusQueueTimeout, false},
		{"voicemail recorded", reasonVMRecorded, statusQueueTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockCallLogStore()
			l := newTestCallLogger(store)

			err := l.HandleWorkspaceEvent(context.Background(), model.WorkspaceEvent{
				EventType: "task.completed",
				TaskSid:   "WT1",
				TaskAge:   "300",
				Reason:    tt.reason,
			})
			require.NoError(t, err)

			require.Len(t, store.updates["WT1"], 1)
			update := store.updates["WT1"][0]
			require.NotNil(t, update.EndStatus)
			assert.Equal(t, tt.wantStatus, *update.EndStatus)
			if tt.wantTalk {
				require.NotNil(t, update.TalkEndAge)
				assert.Equal(t, 300, *update.TalkEndAge)
			} else {
				require.NotNil(t, update.SecondsInQueue)
				assert.Equal(t, 300, *update.SecondsInQueue)
			}
		})
	}
}

func TestHandleWorkspaceEventUnhandledTypeIgnored(t *testing.T) {
	store := newMockCallLogStore()
	l := newTestCallLogger(store)

	err := l.HandleWorkspaceEvent(context.Background(), model.WorkspaceEvent{
		EventType: "worker.activity.update",
	})
	require.NoError(t, err)
	assert.Empty(t, store.inserted)
	assert.Empty(t, store.updates)
}
