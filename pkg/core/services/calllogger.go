package services

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mutualaidnyc/hotline/internal/config"
	"github.com/mutualaidnyc/hotline/pkg/core/model"
	"github.com/mutualaidnyc/hotline/pkg/db"
	"github.com/mutualaidnyc/hotline/pkg/phone"
)

// Call outcome labels in the audit log.
const (
	statusHangupInQueue = "Hangup before volunteer connected"
	statusQueueTimeout  = "Timed out of queue"
	statusTalked        = "Talked with volunteer"
)

// CallLogger keeps one audit row per inbound call, built up incrementally
// from workspace lifecycle events. Events arrive at least once; inserts and
// updates are idempotent so replays are harmless.
type CallLogger struct {
	store  db.CallLogStore
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewCallLogger builds a call logger.
func NewCallLogger(store db.CallLogStore, cfg *config.Config, logger *zap.Logger) *CallLogger {
	return &CallLogger{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// HandleWorkspaceEvent dispatches one workspace lifecycle event onto the
// call log. Event types outside the audit trail are ignored.
func (l *CallLogger) HandleWorkspaceEvent(ctx context.Context, event model.WorkspaceEvent) error {
	switch event.EventType {
	case "task.created":
		return l.taskCreated(ctx, event)
	case "reservation.accepted":
		return l.reservationAccepted(ctx, event)
	case "task.canceled":
		return l.taskEnded(ctx, event, statusHangupInQueue)
	case "task.completed":
		status := statusTalked
		if event.Reason == reasonQueueTimeout || event.Reason == reasonVMRecorded {
			status = statusQueueTimeout
		}
		return l.taskEnded(ctx, event, status)
	}
	return nil
}

func (l *CallLogger) taskCreated(ctx context.Context, event model.WorkspaceEvent) error {
	attrs, err := model.ParseTaskAttributes(event.TaskAttributes)
	if err != nil {
		l.logger.Warn("task created with unparseable attributes",
			zap.String("task_sid", event.TaskSid), zap.Error(err))
		return nil
	}

	return l.store.InsertCallLog(ctx, &db.CallLogEntry{
		TaskSid:     event.TaskSid,
		CallSid:     attrs.CallSid,
		Language:    attrs.SelectedLanguage,
		CallerPhone: phone.StripCountryCode(attrs.Caller),
	})
}

func (l *CallLogger) reservationAccepted(ctx context.Context, event model.WorkspaceEvent) error {
	// the voicemail sentinel accepting is a queue timeout, not a connect
	if event.WorkerSid == l.cfg.Twilio.VMWorkerSID {
		status := statusQueueTimeout
		return l.store.UpdateCallLogByTask(ctx, event.TaskSid, db.CallLogUpdate{EndStatus: &status})
	}

	update := db.CallLogUpdate{
		VolunteerName: &event.WorkerName,
	}
	if age, ok := parseAge(event.TaskAge); ok {
		update.SecondsInQueue = &age
	}
	connectTime := l.now()
	update.VolunteerConnectTime = &connectTime

	return l.store.UpdateCallLogByTask(ctx, event.TaskSid, update)
}

func (l *CallLogger) taskEnded(ctx context.Context, event model.WorkspaceEvent, status string) error {
	update := db.CallLogUpdate{EndStatus: &status}
	if age, ok := parseAge(event.TaskAge); ok {
		if status == statusTalked {
			update.TalkEndAge = &age
		} else {
			update.SecondsInQueue = &age
		}
	}
	return l.store.UpdateCallLogByTask(ctx, event.TaskSid, update)
}

func parseAge(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	age, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return age, true
}
