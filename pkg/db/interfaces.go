package db

import "context"

// RosterStore defines the roster row-store operations the shift manager
// needs.
type RosterStore interface {
	ListVolunteers(ctx context.Context) ([]Volunteer, error)
	ListShiftVolunteers(ctx context.Context, shiftKey string) ([]ShiftVolunteer, error)
	UpdateWorkerSids(ctx context.Context, updates []WorkerSidUpdate) error
	InsertAvailabilityLog(ctx context.Context, entries []AvailabilityLogEntry) error
}

// VoicemailStore defines the voicemail persistence operations.
type VoicemailStore interface {
	InsertVoicemail(ctx context.Context, vm *Voicemail) error
	SaveTranscript(ctx context.Context, recordingSid, transcript string) error
}

// CallLogStore defines the call audit log operations.
type CallLogStore interface {
	InsertCallLog(ctx context.Context, entry *CallLogEntry) error
	UpdateCallLogByTask(ctx context.Context, taskSid string, update CallLogUpdate) error
}
