package services

import (
	"context"

	"github.com/mutualaidnyc/hotline/pkg/core/model"
	"github.com/mutualaidnyc/hotline/pkg/db"
)

type statusUpdate struct {
	workerSid      string
	reservationSid string
	status         string
}

type workerUpdate struct {
	workerSid   string
	attrs       *model.WorkerAttributes
	activitySid string
}

type completion struct {
	taskSid string
	reason  string
}

// mockRouter implements both RouterClient and ShiftPlatform.
type mockRouter struct {
	workers     []model.Worker
	pending     map[string]*model.Reservation
	tasks       map[string]*model.Task
	tasksByCall map[string]*model.Task
	activities  map[string]string

	createdSids    []string
	nextCreatedSid string

	statusUpdates []statusUpdate
	workerUpdates []workerUpdate
	completions   []completion
	deletedSids   []string

	err error
}

func newMockRouter() *mockRouter {
	return &mockRouter{
		pending:     map[string]*model.Reservation{},
		tasks:       map[string]*model.Task{},
		tasksByCall: map[string]*model.Task{},
		activities: map[string]string{
			model.ActivityAvailable:   "WAavailable",
			model.ActivityOffline:     "WAoffline",
			model.ActivityUnavailable: "WAunavailable",
		},
	}
}

func (m *mockRouter) ListWorkers() ([]model.Worker, error) {
	return m.workers, m.err
}

func (m *mockRouter) WorkersBySid() (map[string]model.Worker, error) {
	if m.err != nil {
		return nil, m.err
	}
	bySid := make(map[string]model.Worker, len(m.workers))
	for _, w := range m.workers {
		bySid[w.Sid] = w
	}
	return bySid, nil
}

func (m *mockRouter) FindWorkerByContact(contactURI string) (*model.Worker, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, w := range m.workers {
		if w.Attributes.ContactURI == contactURI {
			worker := w
			return &worker, nil
		}
	}
	return nil, nil
}

func (m *mockRouter) PendingReservation(workerSid string) (*model.Reservation, error) {
	return m.pending[workerSid], m.err
}

func (m *mockRouter) UpdateReservationStatus(workerSid, reservationSid, status string) error {
	m.statusUpdates = append(m.statusUpdates, statusUpdate{workerSid, reservationSid, status})
	return m.err
}

func (m *mockRouter) CreateWorker(friendlyName string, attrs model.WorkerAttributes) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	sid := m.nextCreatedSid
	if sid == "" {
		sid = "WKnew"
	}
	m.createdSids = append(m.createdSids, sid)
	m.workers = append(m.workers, model.Worker{Sid: sid, FriendlyName: friendlyName, Attributes: attrs})
	return sid, nil
}

func (m *mockRouter) UpdateWorker(workerSid string, attrs *model.WorkerAttributes, activitySid string) error {
	m.workerUpdates = append(m.workerUpdates, workerUpdate{workerSid, attrs, activitySid})
	return m.err
}

func (m *mockRouter) DeleteWorker(workerSid string) error {
	m.deletedSids = append(m.deletedSids, workerSid)
	return m.err
}

func (m *mockRouter) ListActivities() (map[string]string, error) {
	return m.activities, m.err
}

func (m *mockRouter) FetchTask(taskSid string) (*model.Task, error) {
	return m.tasks[taskSid], m.err
}

func (m *mockRouter) TaskForCallSid(callSid string) (*model.Task, error) {
	return m.tasksByCall[callSid], m.err
}

func (m *mockRouter) CompleteTask(taskSid, reason string) error {
	m.completions = append(m.completions, completion{taskSid, reason})
	return m.err
}

type placedCall struct {
	to, from, callbackURL string
	machineDetection      bool
}

type twimlPush struct {
	callSid string
	doc     string
}

type sentSms struct {
	to, body string
}

type mockTelephony struct {
	calls                 []placedCall
	pushes                []twimlPush
	sms                   []sentSms
	deletedRecordings     []string
	deletedTranscriptions []string
	err                   error
}

func (m *mockTelephony) CreateCall(to, from, callbackURL string, machineDetection bool) error {
	m.calls = append(m.calls, placedCall{to, from, callbackURL, machineDetection})
	return m.err
}

func (m *mockTelephony) UpdateCallTwiml(callSid, doc string) error {
	m.pushes = append(m.pushes, twimlPush{callSid, doc})
	return m.err
}

func (m *mockTelephony) SendSMS(to, body string) error {
	m.sms = append(m.sms, sentSms{to, body})
	return m.err
}

func (m *mockTelephony) DeleteRecording(recordingSid string) error {
	m.deletedRecordings = append(m.deletedRecordings, recordingSid)
	return m.err
}

func (m *mockTelephony) DeleteTranscription(transcriptionSid string) error {
	m.deletedTranscriptions = append(m.deletedTranscriptions, transcriptionSid)
	return m.err
}

type mockVoicemailStore struct {
	inserted    []db.Voicemail
	transcripts map[string]string
	err         error
}

func newMockVoicemailStore() *mockVoicemailStore {
	return &mockVoicemailStore{transcripts: map[string]string{}}
}

func (m *mockVoicemailStore) InsertVoicemail(ctx context.Context, vm *db.Voicemail) error {
	m.inserted = append(m.inserted, *vm)
	return m.err
}

func (m *mockVoicemailStore) SaveTranscript(ctx context.Context, recordingSid, transcript string) error {
	if m.err != nil {
		return m.err
	}
	m.transcripts[recordingSid] = transcript
	return nil
}

type mockRosterStore struct {
	volunteers      []db.Volunteer
	shiftVolunteers map[string][]db.ShiftVolunteer
	sidUpdates      []db.WorkerSidUpdate
	auditEntries    []db.AvailabilityLogEntry
	err             error
}

func newMockRosterStore() *mockRosterStore {
	return &mockRosterStore{shiftVolunteers: map[string][]db.ShiftVolunteer{}}
}

func (m *mockRosterStore) ListVolunteers(ctx context.Context) ([]db.Volunteer, error) {
	return m.volunteers, m.err
}

func (m *mockRosterStore) ListShiftVolunteers(ctx context.Context, shiftKey string) ([]db.ShiftVolunteer, error) {
	return m.shiftVolunteers[shiftKey], m.err
}

func (m *mockRosterStore) UpdateWorkerSids(ctx context.Context, updates []db.WorkerSidUpdate) error {
	m.sidUpdates = append(m.sidUpdates, updates...)
	return m.err
}

func (m *mockRosterStore) InsertAvailabilityLog(ctx context.Context, entries []db.AvailabilityLogEntry) error {
	m.auditEntries = append(m.auditEntries, entries...)
	return m.err
}

type mockCallLogStore struct {
	inserted []db.CallLogEntry
	updates  map[string][]db.CallLogUpdate
	err      error
}

func newMockCallLogStore() *mockCallLogStore {
	return &mockCallLogStore{updates: map[string][]db.CallLogUpdate{}}
}

func (m *mockCallLogStore) InsertCallLog(ctx context.Context, entry *db.CallLogEntry) error {
	m.inserted = append(m.inserted, *entry)
	return m.err
}

func (m *mockCallLogStore) UpdateCallLogByTask(ctx context.Context, taskSid string, update db.CallLogUpdate) error {
	if m.err != nil {
		return m.err
	}
	m.updates[taskSid] = append(m.updates[taskSid], update)
	return nil
}
