package model

// Webhook payloads as this system consumes them. The HTTP layer parses the
// provider's form bodies into these; attribute blobs are decoded there so
// handlers never pass raw JSON strings around.

// CallAssignmentEvent fires when TaskRouter selects a worker for a task.
type CallAssignmentEvent struct {
	WorkerSid        string
	TaskSid          string
	ReservationSid   string
	WorkerAttributes WorkerAttributes
	TaskAttributes   TaskAttributes
}

// AgentCallEvent covers the volunteer-leg callbacks: the agent-connected
// callback (AnsweredBy set when machine detection ran) and the agent-gather
// callback (Digits set).
type AgentCallEvent struct {
	Called     string
	CallSid    string
	CallStatus string
	AnsweredBy string
	Digits     string
}

// BridgeDisconnectEvent fires when a caller/volunteer conference ends. The
// conference FriendlyName carries the task SID.
type BridgeDisconnectEvent struct {
	FriendlyName string
	Reason       string
}

// IncomingSmsEvent is a volunteer self-service text.
type IncomingSmsEvent struct {
	From string
	Body string
}

// RecordingEvent fires when a voicemail recording finishes.
type RecordingEvent struct {
	CallSid      string
	CallStatus   string
	RecordingSid string
	RecordingURL string
}

// TranscriptionEvent fires when a voicemail transcript is ready.
type TranscriptionEvent struct {
	RecordingSid      string
	TranscriptionSid  string
	TranscriptionText string
}

// WorkspaceEvent is a TaskRouter workspace lifecycle event used for the call
// audit log. TaskAttributes stays raw here because only some event types
// carry it; the call logger decodes it when needed.
type WorkspaceEvent struct {
	EventType      string
	TaskSid        string
	TaskAge        string
	TaskAttributes string
	Reason         string
	WorkerSid      string
	WorkerName     string
}
