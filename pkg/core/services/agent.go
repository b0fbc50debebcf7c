package services

import (
	"context"

	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"

	"github.com/mutualaidnyc/hotline/pkg/core/model"
)

// HandleAgentConnected runs when the volunteer's phone is answered by
// something. With a pending reservation in hand it either bridges (human),
// rejects (machine), or falls through to a one-digit confirmation prompt
// when detection was inconclusive or disabled.
func (r *CallRouter) HandleAgentConnected(ctx context.Context, event model.AgentCallEvent) (string, error) {
	worker, err := r.router.FindWorkerByContact(event.Called)
	if err != nil {
		return "", err
	}
	if worker == nil {
		// number no longer maps to a worker; nothing to resolve
		r.logger.Warn("agent-connected for unknown number", zap.String("called", event.Called))
		return sayHangup(sayCallerDisconnected)
	}

	reservation, err := r.router.PendingReservation(worker.Sid)
	if err != nil {
		return "", err
	}
	if reservation == nil {
		// caller hung up while the volunteer's phone was ringing
		return sayHangup(sayCallerDisconnected)
	}

	if event.AnsweredBy == model.AnsweredByHuman {
		return r.acceptAndBridge(reservation)
	}

	if model.MachineAnswers[event.AnsweredBy] {
		if err := r.router.UpdateReservationStatus(worker.Sid, reservation.Sid, model.ReservationRejected); err != nil {
			r.logger.Error("failed to reject reservation",
				zap.String("reservation_sid", reservation.Sid), zap.Error(err))
		}
		return sayHangup(sayMachineDetected)
	}

	// AnsweredBy is unknown, or machine detection is off. Leave the
	// reservation pending and ask the volunteer to confirm with a keypress.
	task, err := r.router.FetchTask(reservation.TaskSid)
	if err != nil {
		return "", err
	}

	return twiml.Voice([]twiml.Element{
		&twiml.VoiceGather{
			Action:              r.apiURL("agent-gather"),
			Method:              "POST",
			NumDigits:           "1",
			ActionOnEmptyResult: "true",
			InnerElements: []twiml.Element{
				&twiml.VoicePlay{
					Url: r.assetURL(languageAsset("receiving_call_in_", task.Attributes.SelectedLanguage)),
				},
			},
		},
	})
}

// HandleAgentGather handles the volunteer's response to the confirmation
// prompt. The reservation is re-fetched fresh: the caller may have hung up
// (or the platform reassigned the task) while the prompt played.
func (r *CallRouter) HandleAgentGather(ctx context.Context, event model.AgentCallEvent) (string, error) {
	worker, err := r.router.FindWorkerByContact(event.Called)
	if err != nil {
		return "", err
	}
	if worker == nil {
		r.logger.Warn("agent-gather for unknown number", zap.String("called", event.Called))
		return sayHangup(sayCallerDisconnected)
	}

	reservation, err := r.router.PendingReservation(worker.Sid)
	if err != nil {
		return "", err
	}

	reject := func() {
		if reservation == nil {
			return
		}
		if err := r.router.UpdateReservationStatus(worker.Sid, reservation.Sid, model.ReservationRejected); err != nil {
			r.logger.Error("failed to reject reservation",
				zap.String("reservation_sid", reservation.Sid), zap.Error(err))
		}
	}

	switch {
	case event.Digits == "1":
		if reservation == nil {
			return playHangup(r.assetURL("caller_disconnected"))
		}
		return r.acceptAndBridge(reservation)

	case event.Digits == "":
		// prompt timed out with no keypress
		reject()
		if event.CallStatus == "in-progress" {
			return playHangup(r.assetURL("no_response"))
		}
		return twiml.Voice([]twiml.Element{&twiml.VoiceHangup{}})

	case event.Digits == "9":
		reject()
		return playHangup(r.assetURL("send_call_to_next_volunteer"))

	default:
		// invalid entry; re-prompt via provider redirect, no state change
		return twiml.Voice([]twiml.Element{
			&twiml.VoicePlay{Url: r.assetURL("invalid_entry")},
			&twiml.VoiceRedirect{Url: r.apiURL("agent-connected")},
		})
	}
}

// acceptAndBridge resolves the reservation to accepted and joins both call
// legs in a conference named by the task SID. The caller's leg is parked in
// a holding state, so the conference document is also pushed onto it
// out-of-band; the returned document serves the volunteer's leg.
func (r *CallRouter) acceptAndBridge(reservation *model.Reservation) (string, error) {
	if err := r.router.UpdateReservationStatus(reservation.WorkerSid, reservation.Sid, model.ReservationAccepted); err != nil {
		r.logger.Error("failed to accept reservation",
			zap.String("reservation_sid", reservation.Sid), zap.Error(err))
	}

	task, err := r.router.FetchTask(reservation.TaskSid)
	if err != nil {
		return "", err
	}

	doc, err := twiml.Voice([]twiml.Element{
		&twiml.VoiceDial{
			InnerElements: []twiml.Element{
				&twiml.VoiceConference{
					Name:                 reservation.TaskSid,
					EndConferenceOnExit:  "true",
					StatusCallback:       r.apiURL("worker-bridge-disconnect"),
					StatusCallbackMethod: "POST",
					StatusCallbackEvent:  "end",
				},
			},
		},
	})
	if err != nil {
		return "", err
	}

	if err := r.telephony.UpdateCallTwiml(task.Attributes.CallSid, doc); err != nil {
		r.logger.Error("failed to push conference to caller leg",
			zap.String("call_sid", task.Attributes.CallSid), zap.Error(err))
	}
	return doc, nil
}

// HandleBridgeDisconnect completes the task when the conference ends. The
// conference room is named by the task SID. Completion failures are logged
// but not surfaced: the callback can fire more than once and the task only
// transitions once.
func (r *CallRouter) HandleBridgeDisconnect(ctx context.Context, event model.BridgeDisconnectEvent) error {
	if err := r.router.CompleteTask(event.FriendlyName, event.Reason); err != nil {
		r.logger.Warn("failed to complete task on bridge disconnect",
			zap.String("task_sid", event.FriendlyName), zap.Error(err))
	}
	return nil
}
