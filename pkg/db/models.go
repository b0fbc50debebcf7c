package db

import "time"

// Volunteer is a roster row. The roster store is the source of truth for
// who volunteers and which languages they cover; WorkerSid caches the
// routing-platform identity once one has been provisioned. Rows are never
// deleted by this system.
type Volunteer struct {
	ID        string
	Name      string
	Phone     string
	WorkerSid string
}

// ShiftVolunteer is a volunteer together with the languages they cover for
// one weekday-qualified shift key (e.g. "Tuesday 5PM - 8PM").
type ShiftVolunteer struct {
	Volunteer
	Languages []string
}

// WorkerSidUpdate records a newly provisioned platform identity against a
// roster row.
type WorkerSidUpdate struct {
	VolunteerID string
	WorkerSid   string
}

// AvailabilityLogEntry is one roster-state transition in the audit log.
type AvailabilityLogEntry struct {
	ID            string
	VolunteerName string
	Availability  string // "Available" or "Unavailable"
	Reason        string // "Shift Start" or "Shift End"
}

// Voicemail is a recorded caller message, keyed by the provider's recording
// SID so the transcription callback can find it later.
type Voicemail struct {
	RecordingSid string
	RecordingURL string
	CallSid      string
	Language     string
	CallerPhone  string // country prefix stripped
	Transcript   string
}

// CallLogEntry is one row of the hotline call audit log, keyed by task SID.
type CallLogEntry struct {
	TaskSid     string
	CallSid     string
	Language    string
	CallerPhone string
}

// CallLogUpdate carries the fields a workspace event may set on an existing
// call-log row. Nil fields are left untouched.
type CallLogUpdate struct {
	SecondsInQueue       *int
	TalkEndAge           *int
	EndStatus            *string
	VolunteerName        *string
	VolunteerConnectTime *time.Time
}
