// Package server is the webhook HTTP layer. It parses Twilio's form-encoded
// callbacks into typed events, dispatches them to the services, and writes
// the TwiML they return. Webhook handlers never surface errors to the
// provider as 5xx TwiML failures; a caller on the line gets an apology
// document instead.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"

	"github.com/mutualaidnyc/hotline/internal/config"
	"github.com/mutualaidnyc/hotline/pkg/core/model"
	"github.com/mutualaidnyc/hotline/pkg/schedule"
)

const sayApology = "We're sorry, something went wrong. Please try again later."

// CallService is the reservation/voicemail surface the webhook layer
// dispatches to. *services.CallRouter satisfies it.
type CallService interface {
	HandleCallAssignment(ctx context.Context, event model.CallAssignmentEvent) (string, error)
	HandleAgentConnected(ctx context.Context, event model.AgentCallEvent) (string, error)
	HandleAgentGather(ctx context.Context, event model.AgentCallEvent) (string, error)
	HandleBridgeDisconnect(ctx context.Context, event model.BridgeDisconnectEvent) error
	HandleRecordingEnded(ctx context.Context, event model.RecordingEvent) (string, error)
	HandleNewTranscription(ctx context.Context, event model.TranscriptionEvent) error
}

// ShiftService is the shift/roster surface. *services.ShiftManager
// satisfies it.
type ShiftService interface {
	HandleIncomingSms(ctx context.Context, event model.IncomingSmsEvent) (string, error)
	StartShift(ctx context.Context, shiftName string) error
	EndShift(ctx context.Context) error
	SendShiftWarnings(ctx context.Context) error
	SyncWorkers(ctx context.Context) error
}

// AuditService consumes workspace lifecycle events. *services.CallLogger
// satisfies it.
type AuditService interface {
	HandleWorkspaceEvent(ctx context.Context, event model.WorkspaceEvent) error
}

// GateService answers business-hours questions for the IVR flow.
// *services.ScheduleGate satisfies it.
type GateService interface {
	Status(ctx context.Context, language string) (schedule.Evaluation, error)
	IsOpen(ctx context.Context) bool
}

// Server routes Twilio webhooks and job triggers to the services.
type Server struct {
	calls   CallService
	shifts  ShiftService
	audit   AuditService
	gate    GateService
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics
	mux     *http.ServeMux
}

// New wires the routes. The prometheus registry is injectable so tests can
// use a fresh one.
func New(calls CallService, shifts ShiftService, audit AuditService, gate GateService, cfg *config.Config, logger *zap.Logger, reg *prometheus.Registry) *Server {
	s := &Server{
		calls:   calls,
		shifts:  shifts,
		audit:   audit,
		gate:    gate,
		cfg:     cfg,
		logger:  logger,
		metrics: newMetrics(reg),
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/call-assignment", s.handleCallAssignment)
	s.mux.HandleFunc("POST /api/agent-connected", s.handleAgentConnected)
	s.mux.HandleFunc("POST /api/agent-gather", s.handleAgentGather)
	s.mux.HandleFunc("POST /api/worker-bridge-disconnect", s.handleBridgeDisconnect)
	s.mux.HandleFunc("POST /api/incoming-sms", s.handleIncomingSms)
	s.mux.HandleFunc("POST /api/vm-recording-ended", s.handleRecordingEnded)
	s.mux.HandleFunc("POST /api/new-transcription", s.handleNewTranscription)
	s.mux.HandleFunc("POST /api/workspace-event", s.handleWorkspaceEvent)
	s.mux.HandleFunc("GET /api/schedule-status", s.handleScheduleStatus)

	s.mux.HandleFunc("POST /jobs/start-shift", s.handleStartShift)
	s.mux.HandleFunc("POST /jobs/end-shift", s.jobHandler("end-shift", s.shifts.EndShift))
	s.mux.HandleFunc("POST /jobs/shift-warnings", s.jobHandler("shift-warnings", s.shifts.SendShiftWarnings))
	s.mux.HandleFunc("POST /jobs/sync-workers", s.jobHandler("sync-workers", s.shifts.SyncWorkers))

	s.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return s
}

// Handler exposes the mux for tests and for ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then drains
// in-flight webhooks before returning.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("webhook server listening", zap.String("addr", s.cfg.ListenAddr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleCallAssignment(w http.ResponseWriter, r *http.Request) {
	s.metrics.webhookRequests.WithLabelValues("call-assignment").Inc()

	workerAttrs, err := model.ParseWorkerAttributes(r.FormValue("WorkerAttributes"))
	if err != nil {
		s.failVoice(w, "call-assignment", err)
		return
	}
	taskAttrs, err := model.ParseTaskAttributes(r.FormValue("TaskAttributes"))
	if err != nil {
		s.failVoice(w, "call-assignment", err)
		return
	}

	event := model.CallAssignmentEvent{
		WorkerSid:        r.FormValue("WorkerSid"),
		TaskSid:          r.FormValue("TaskSid"),
		ReservationSid:   r.FormValue("ReservationSid"),
		WorkerAttributes: workerAttrs,
		TaskAttributes:   taskAttrs,
	}

	doc, err := s.calls.HandleCallAssignment(r.Context(), event)
	if err != nil {
		s.failVoice(w, "call-assignment", err)
		return
	}
	s.metrics.callsAssigned.Inc()
	writeTwiml(w, doc)
}

func agentCallEvent(r *http.Request) model.AgentCallEvent {
	return model.AgentCallEvent{
		Called:     r.FormValue("Called"),
		CallSid:    r.FormValue("CallSid"),
		CallStatus: r.FormValue("CallStatus"),
		AnsweredBy: r.FormValue("AnsweredBy"),
		Digits:     r.FormValue("Digits"),
	}
}

func (s *Server) handleAgentConnected(w http.ResponseWriter, r *http.Request) {
	s.metrics.webhookRequests.WithLabelValues("agent-connected").Inc()

	doc, err := s.calls.HandleAgentConnected(r.Context(), agentCallEvent(r))
	if err != nil {
		s.failVoice(w, "agent-connected", err)
		return
	}
	writeTwiml(w, doc)
}

func (s *Server) handleAgentGather(w http.ResponseWriter, r *http.Request) {
	s.metrics.webhookRequests.WithLabelValues("agent-gather").Inc()

	event := agentCallEvent(r)
	doc, err := s.calls.HandleAgentGather(r.Context(), event)
	if err != nil {
		s.failVoice(w, "agent-gather", err)
		return
	}
	s.metrics.gatherOutcomes.WithLabelValues(gatherOutcome(event.Digits)).Inc()
	writeTwiml(w, doc)
}

func (s *Server) handleBridgeDisconnect(w http.ResponseWriter, r *http.Request) {
	s.metrics.webhookRequests.WithLabelValues("worker-bridge-disconnect").Inc()

	event := model.BridgeDisconnectEvent{
		FriendlyName: r.FormValue("FriendlyName"),
		Reason:       r.FormValue("ReasonConferenceEnded"),
	}
	if event.Reason == "" {
		event.Reason = r.FormValue("StatusCallbackEvent")
	}

	if err := s.calls.HandleBridgeDisconnect(r.Context(), event); err != nil {
		s.fail(w, "worker-bridge-disconnect", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleIncomingSms(w http.ResponseWriter, r *http.Request) {
	s.metrics.webhookRequests.WithLabelValues("incoming-sms").Inc()

	event := model.IncomingSmsEvent{
		From: r.FormValue("From"),
		Body: r.FormValue("Body"),
	}

	doc, err := s.shifts.HandleIncomingSms(r.Context(), event)
	if err != nil {
		s.fail(w, "incoming-sms", err)
		return
	}
	writeTwiml(w, doc)
}

func (s *Server) handleRecordingEnded(w http.ResponseWriter, r *http.Request) {
	s.metrics.webhookRequests.WithLabelValues("vm-recording-ended").Inc()

	event := model.RecordingEvent{
		CallSid:      r.FormValue("CallSid"),
		CallStatus:   r.FormValue("CallStatus"),
		RecordingSid: r.FormValue("RecordingSid"),
		RecordingURL: r.FormValue("RecordingUrl"),
	}

	doc, err := s.calls.HandleRecordingEnded(r.Context(), event)
	if err != nil {
		s.failVoice(w, "vm-recording-ended", err)
		return
	}
	s.metrics.voicemailsRecorded.Inc()
	writeTwiml(w, doc)
}

func (s *Server) handleNewTranscription(w http.ResponseWriter, r *http.Request) {
	s.metrics.webhookRequests.WithLabelValues("new-transcription").Inc()

	event := model.TranscriptionEvent{
		RecordingSid:      r.FormValue("RecordingSid"),
		TranscriptionSid:  r.FormValue("TranscriptionSid"),
		TranscriptionText: r.FormValue("TranscriptionText"),
	}

	if err := s.calls.HandleNewTranscription(r.Context(), event); err != nil {
		s.fail(w, "new-transcription", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleWorkspaceEvent(w http.ResponseWriter, r *http.Request) {
	s.metrics.webhookRequests.WithLabelValues("workspace-event").Inc()

	event := model.WorkspaceEvent{
		EventType:      r.FormValue("EventType"),
		TaskSid:        r.FormValue("TaskSid"),
		TaskAge:        r.FormValue("TaskAge"),
		TaskAttributes: r.FormValue("TaskAttributes"),
		Reason:         r.FormValue("Reason"),
		WorkerSid:      r.FormValue("WorkerSid"),
		WorkerName:     r.FormValue("WorkerName"),
	}

	// always 200: the event stream must not back up behind store hiccups
	if err := s.audit.HandleWorkspaceEvent(r.Context(), event); err != nil {
		s.metrics.webhookErrors.WithLabelValues("workspace-event").Inc()
		s.logger.Error("workspace event failed",
			zap.String("event_type", event.EventType),
			zap.String("task_sid", event.TaskSid),
			zap.Error(err))
	}
	w.WriteHeader(http.StatusOK)
}

// handleScheduleStatus serves the IVR flow's "are we open" question. An
// evaluation failure answers closed: a wrong "closed" sends the caller to
// voicemail, a wrong "open" rings phones nobody is staffing.
func (s *Server) handleScheduleStatus(w http.ResponseWriter, r *http.Request) {
	s.metrics.webhookRequests.WithLabelValues("schedule-status").Inc()

	eval, err := s.gate.Status(r.Context(), r.URL.Query().Get("language"))
	if err != nil {
		s.metrics.webhookErrors.WithLabelValues("schedule-status").Inc()
		s.logger.Error("schedule evaluation failed", zap.Error(err))
		eval = schedule.Evaluation{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"isHoliday":    eval.IsHoliday,
		"isPartialDay": eval.IsPartialDay,
		"isRegularDay": eval.IsRegularDay,
		"isOpen":       eval.IsOpen,
		"description":  eval.Description,
	})
}

func (s *Server) handleStartShift(w http.ResponseWriter, r *http.Request) {
	shift := r.FormValue("shift")
	if shift == "" {
		shift = r.URL.Query().Get("shift")
	}
	if shift == "" {
		http.Error(w, "missing shift parameter", http.StatusBadRequest)
		return
	}

	s.runJob("start-shift", func(ctx context.Context) error {
		return s.shifts.StartShift(ctx, shift)
	})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) jobHandler(name string, job func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.runJob(name, job)
		w.WriteHeader(http.StatusAccepted)
	}
}

// runJob detaches the work from the request: the scheduler that triggered it
// only needs an ack, and the outcome lands in logs and metrics.
func (s *Server) runJob(name string, job func(ctx context.Context) error) {
	go func() {
		if err := job(context.Background()); err != nil {
			s.metrics.shiftJobRuns.WithLabelValues(name, "error").Inc()
			s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.metrics.shiftJobRuns.WithLabelValues(name, "ok").Inc()
		s.logger.Info("job finished", zap.String("job", name))
	}()
}

// fail acknowledges a non-voice webhook failure with a 500.
func (s *Server) fail(w http.ResponseWriter, endpoint string, err error) {
	s.metrics.webhookErrors.WithLabelValues(endpoint).Inc()
	s.logger.Error("webhook failed", zap.String("endpoint", endpoint), zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// failVoice answers a broken voice webhook with an apology document so the
// person on the line hears something better than dead air.
func (s *Server) failVoice(w http.ResponseWriter, endpoint string, err error) {
	s.metrics.webhookErrors.WithLabelValues(endpoint).Inc()
	s.logger.Error("webhook failed", zap.String("endpoint", endpoint), zap.Error(err))

	doc, twimlErr := twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: sayApology},
		&twiml.VoiceHangup{},
	})
	if twimlErr != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeTwiml(w, doc)
}

func writeTwiml(w http.ResponseWriter, doc string) {
	if doc == "" {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(doc))
}
