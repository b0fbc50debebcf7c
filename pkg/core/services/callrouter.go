// Package services holds the hotline's orchestration logic: the call
// assignment and reservation lifecycle, voicemail fallback, SMS
// self-service, and the shift/roster lifecycle. Services are plain structs
// built from injected clients so tests can swap in mocks.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"

	"github.com/mutualaidnyc/hotline/internal/config"
	"github.com/mutualaidnyc/hotline/pkg/core/model"
	"github.com/mutualaidnyc/hotline/pkg/db"
)

// RouterClient is the routing-platform surface the call router needs.
// *taskrouterclient.Client satisfies it.
type RouterClient interface {
	FindWorkerByContact(contactURI string) (*model.Worker, error)
	PendingReservation(workerSid string) (*model.Reservation, error)
	UpdateReservationStatus(workerSid, reservationSid, status string) error
	UpdateWorker(workerSid string, attrs *model.WorkerAttributes, activitySid string) error
	ListActivities() (map[string]string, error)
	FetchTask(taskSid string) (*model.Task, error)
	TaskForCallSid(callSid string) (*model.Task, error)
	CompleteTask(taskSid, reason string) error
}

// TelephonyClient is the voice/messaging surface the call router needs.
// *twilioclient.Client satisfies it.
type TelephonyClient interface {
	CreateCall(to, from, callbackURL string, machineDetection bool) error
	UpdateCallTwiml(callSid, doc string) error
	SendSMS(to, body string) error
	DeleteRecording(recordingSid string) error
	DeleteTranscription(transcriptionSid string) error
}

// Spoken prompts on the volunteer and caller legs.
const (
	sayCallerDisconnected = "We're sorry but the caller has disconnected before you got on the phone."
	sayMachineDetected    = "Machine detected, goodbye"
	sayLeaveMessage       = "Please leave a message at the beep.\nPress the star key when finished."
	sayNoRecording        = "I did not receive a recording"
	sayVoicemailReceived  = "We have received your voicemail, we'll get back to you soon. Goodbye"
)

// Task completion reason codes.
const (
	reasonQueueTimeout = "TaskRouter queue time out"
	reasonVMRecorded   = "VM recorded"
)

// CallRouter drives the reservation state machine. Each webhook handler is
// an independent unit of work: it re-fetches platform state before mutating
// anything and treats "already gone" as a normal branch, because events for
// the same task arrive unordered and at least once.
type CallRouter struct {
	router     RouterClient
	telephony  TelephonyClient
	voicemails db.VoicemailStore
	cfg        *config.Config
	logger     *zap.Logger
	activities map[string]string
}

// NewCallRouter builds a call router and resolves the workspace's activity
// SIDs once up front.
func NewCallRouter(
	router RouterClient,
	telephony TelephonyClient,
	voicemails db.VoicemailStore,
	cfg *config.Config,
	logger *zap.Logger,
) (*CallRouter, error) {
	activities, err := router.ListActivities()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace activities: %w", err)
	}

	return &CallRouter{
		router:     router,
		telephony:  telephony,
		voicemails: voicemails,
		cfg:        cfg,
		logger:     logger,
		activities: activities,
	}, nil
}

func (r *CallRouter) apiURL(endpoint string) string {
	return fmt.Sprintf("https://%s/api/%s", r.cfg.HostName, endpoint)
}

func (r *CallRouter) assetURL(name string) string {
	return fmt.Sprintf("https://%s/assets/%s.mp3", r.cfg.HostName, name)
}

// HandleCallAssignment reacts to the platform selecting a worker for a
// task. The VM sentinel goes straight to the voicemail fallback; any other
// worker gets an outbound call so a human can pick up. The response body is
// always empty: call-placement failure is logged and swallowed because the
// platform's own timeout will reassign or expire the task.
func (r *CallRouter) HandleCallAssignment(ctx context.Context, event model.CallAssignmentEvent) (string, error) {
	if event.WorkerSid == r.cfg.Twilio.VMWorkerSID {
		return "", r.sendToVoicemailOrDisconnect(ctx, event)
	}

	err := r.telephony.CreateCall(
		event.WorkerAttributes.ContactURI,
		event.TaskAttributes.Called,
		r.apiURL("agent-connected"),
		r.cfg.Twilio.AMDEnabled,
	)
	if err != nil {
		r.logger.Error("failed to place volunteer call",
			zap.String("worker_sid", event.WorkerSid),
			zap.String("task_sid", event.TaskSid),
			zap.Error(err))
	}
	return "", nil
}

// sayHangup builds a terminal spoken response.
func sayHangup(message string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: message},
		&twiml.VoiceHangup{},
	})
}

// playHangup builds a terminal played response.
func playHangup(url string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoicePlay{Url: url},
		&twiml.VoiceHangup{},
	})
}

func languageAsset(prefix, language string) string {
	return prefix + strings.ToLower(language)
}
