package services

import (
	"context"

	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"

	"github.com/mutualaidnyc/hotline/pkg/core/model"
	"github.com/mutualaidnyc/hotline/pkg/db"
	"github.com/mutualaidnyc/hotline/pkg/phone"
)

// sendToVoicemailOrDisconnect runs when the queue times out and the task is
// assigned to the voicemail sentinel. The sentinel's reservation is accepted
// immediately so the platform stops reassigning; what happens next depends
// on whether voicemail is enabled for the deployment.
func (r *CallRouter) sendToVoicemailOrDisconnect(ctx context.Context, event model.CallAssignmentEvent) error {
	if err := r.router.UpdateReservationStatus(event.WorkerSid, event.ReservationSid, model.ReservationAccepted); err != nil {
		r.logger.Error("failed to accept voicemail reservation",
			zap.String("reservation_sid", event.ReservationSid), zap.Error(err))
	}

	language := event.TaskAttributes.SelectedLanguage

	if !r.cfg.Twilio.VoicemailEnabled {
		doc, err := playHangup(r.assetURL(languageAsset("no_volunteers_available_in_", language)))
		if err != nil {
			return err
		}
		if err := r.telephony.UpdateCallTwiml(event.TaskAttributes.CallSid, doc); err != nil {
			return err
		}
		return r.router.CompleteTask(event.TaskSid, reasonQueueTimeout)
	}

	record := &twiml.VoiceRecord{
		Action:      r.apiURL("vm-recording-ended"),
		Method:      "POST",
		MaxLength:   "20",
		FinishOnKey: "*",
	}
	if r.cfg.Twilio.TranscribeFor(language) {
		record.Transcribe = "true"
		record.TranscribeCallback = r.apiURL("new-transcription")
	}

	doc, err := twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: sayLeaveMessage},
		record,
		&twiml.VoiceSay{Message: sayNoRecording},
	})
	if err != nil {
		return err
	}

	return r.telephony.UpdateCallTwiml(event.TaskAttributes.CallSid, doc)
}

// HandleRecordingEnded persists the finished voicemail and completes the
// task. The task is found by call SID because the record verb's action
// callback carries no task identity. The closing message only plays when the
// caller is still on the line; a caller who hung up mid-recording gets an
// empty response.
func (r *CallRouter) HandleRecordingEnded(ctx context.Context, event model.RecordingEvent) (string, error) {
	task, err := r.router.TaskForCallSid(event.CallSid)
	if err != nil {
		return "", err
	}
	if task == nil {
		r.logger.Warn("recording ended for unknown call", zap.String("call_sid", event.CallSid))
		if event.RecordingSid != "" {
			// Nothing to attach the recording to, so don't leave it at the
			// provider.
			if err := r.telephony.DeleteRecording(event.RecordingSid); err != nil {
				r.logger.Warn("failed to delete orphan recording",
					zap.String("recording_sid", event.RecordingSid), zap.Error(err))
			}
		}
		return r.recordingFarewell(event)
	}

	vm := db.Voicemail{
		RecordingSid: event.RecordingSid,
		RecordingURL: event.RecordingURL,
		CallSid:      event.CallSid,
		Language:     task.Attributes.SelectedLanguage,
		CallerPhone:  phone.StripCountryCode(task.Attributes.Caller),
	}
	if err := r.voicemails.InsertVoicemail(ctx, &vm); err != nil {
		return "", err
	}

	if err := r.router.CompleteTask(task.Sid, reasonVMRecorded); err != nil {
		r.logger.Error("failed to complete task after voicemail",
			zap.String("task_sid", task.Sid), zap.Error(err))
	}

	return r.recordingFarewell(event)
}

func (r *CallRouter) recordingFarewell(event model.RecordingEvent) (string, error) {
	if event.CallStatus != "in-progress" {
		return "", nil
	}
	return sayHangup(sayVoicemailReceived)
}

// HandleNewTranscription copies the transcript text onto the stored
// voicemail, then deletes the provider-side transcription resource. Deletion
// is best effort; the transcript is already saved.
func (r *CallRouter) HandleNewTranscription(ctx context.Context, event model.TranscriptionEvent) error {
	if err := r.voicemails.SaveTranscript(ctx, event.RecordingSid, event.TranscriptionText); err != nil {
		return err
	}

	if err := r.telephony.DeleteTranscription(event.TranscriptionSid); err != nil {
		r.logger.Warn("failed to delete transcription",
			zap.String("transcription_sid", event.TranscriptionSid), zap.Error(err))
	}
	return nil
}
