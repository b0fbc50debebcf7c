package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"

	"github.com/mutualaidnyc/hotline/pkg/core/model"
	"github.com/mutualaidnyc/hotline/pkg/db"
)

// HandleIncomingSms lets a volunteer set their own availability by texting
// the hotline number: "on" signs in, anything else signs out. The reply
// confirms the resulting state. Texts from unknown numbers get a polite
// brush-off rather than silence so misdialers are not left guessing.
func (m *ShiftManager) HandleIncomingSms(ctx context.Context, event model.IncomingSmsEvent) (string, error) {
	worker, err := m.platform.FindWorkerByContact(event.From)
	if err != nil {
		return "", err
	}
	if worker == nil {
		return smsReply("This number is not registered with the hotline.")
	}

	var activity, reply string
	if strings.EqualFold(strings.TrimSpace(event.Body), "on") {
		activity = model.ActivityAvailable
		reply = fmt.Sprintf("%s, You are signed in", worker.FriendlyName)
	} else {
		activity = model.ActivityOffline
		reply = fmt.Sprintf("%s, You are signed out", worker.FriendlyName)
	}

	if err := m.platform.UpdateWorker(worker.Sid, nil, m.activities[activity]); err != nil {
		return "", err
	}

	availability := model.ActivityUnavailable
	if activity == model.ActivityAvailable {
		availability = model.ActivityAvailable
	}
	audit := []db.AvailabilityLogEntry{{
		ID:            uuid.NewString(),
		VolunteerName: worker.FriendlyName,
		Availability:  availability,
		Reason:        reasonTextMessage,
	}}
	if err := m.roster.InsertAvailabilityLog(ctx, audit); err != nil {
		m.logger.Error("failed to write availability log",
			zap.String("worker_sid", worker.Sid), zap.Error(err))
	}

	return smsReply(reply)
}

func smsReply(body string) (string, error) {
	return twiml.Messages([]twiml.Element{
		&twiml.MessagingMessage{Body: body},
	})
}
