package model

import "encoding/json"

// Activity names known to the TaskRouter workspace. A worker is Offline
// unless a shift start or an SMS sign-in moved it to Available.
const (
	ActivityAvailable   = "Available"
	ActivityOffline     = "Offline"
	ActivityUnavailable = "Unavailable"
)

// Reservation lifecycle statuses. A reservation is resolved exactly once;
// accepted and rejected are terminal.
const (
	ReservationPending  = "pending"
	ReservationAccepted = "accepted"
	ReservationRejected = "rejected"
)

// AnsweredByHuman is the machine-detection result that lets a call skip the
// DTMF confirmation prompt.
const AnsweredByHuman = "human"

// MachineAnswers are the detection results that mean nobody human picked up.
// Anything else (notably "unknown") falls through to the DTMF prompt.
var MachineAnswers = map[string]bool{
	"machine_end_beep":    true,
	"machine_end_silence": true,
	"machine_end_other":   true,
	"fax":                 true,
	"machine_start":       true,
}

// WorkerAttributes is the typed form of the JSON attribute blob TaskRouter
// keeps on each worker. It is decoded once at the gateway boundary and
// serialized once on the way back out.
type WorkerAttributes struct {
	Languages  []string `json:"languages"`
	ContactURI string   `json:"contact_uri"`
}

// Encode serializes the attributes for the platform.
func (a WorkerAttributes) Encode() (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseWorkerAttributes decodes a platform attribute blob.
func ParseWorkerAttributes(raw string) (WorkerAttributes, error) {
	var a WorkerAttributes
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return WorkerAttributes{}, err
	}
	return a, nil
}

// TaskAttributes is the typed form of a task's attribute blob. One task is
// one inbound call.
type TaskAttributes struct {
	SelectedLanguage string `json:"selected_language"`
	CallSid          string `json:"call_sid"`
	Caller           string `json:"caller"`
	Called           string `json:"called"`
	From             string `json:"from"`
}

// ParseTaskAttributes decodes a task attribute blob.
func ParseTaskAttributes(raw string) (TaskAttributes, error) {
	var a TaskAttributes
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return TaskAttributes{}, err
	}
	return a, nil
}

// Worker is this system's view of a routable volunteer. It is projected from
// the routing platform; the roster store stays the source of truth for
// language assignment.
type Worker struct {
	Sid          string
	FriendlyName string
	ActivityName string
	Attributes   WorkerAttributes
}

// Reservation pairs one task with one candidate worker.
type Reservation struct {
	Sid       string
	TaskSid   string
	WorkerSid string
	Status    string
}

// Task is a unit of routable work created by the platform per inbound call.
type Task struct {
	Sid        string
	Attributes TaskAttributes
}
