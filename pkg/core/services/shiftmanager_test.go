package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mutualaidnyc/hotline/internal/config"
	"github.com/mutualaidnyc/hotline/pkg/core/model"
	"github.com/mutualaidnyc/hotline/pkg/db"
)

// tuesdayNoon is a fixed Tuesday in Eastern time so shift keys are stable.
var tuesdayNoon = time.Date(2021, time.March, 2, 12, 0, 0, 0, time.FixedZone("EST", -5*60*60))

func newTestManager(t *testing.T, router *mockRouter, roster *mockRosterStore, notifier *mockTelephony) *ShiftManager {
	t.Helper()
	cfg := testConfig()
	cfg.Shifts = []config.ShiftConfig{
		{Name: "2PM - 5PM", RRule: "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR"},
		{Name: "5PM - 8PM", RRule: "FREQ=WEEKLY;BYDAY=TU,TH"},
	}

	m, err := NewShiftManager(router, roster, notifier, nil, cfg, zap.NewNop())
	require.NoError(t, err)
	m.now = func() time.Time { return tuesdayNoon }
	m.shuffle = func(n int, swap func(i, j int)) {}
	return m
}

func rosterVolunteer(id, sid string, languages ...string) db.ShiftVolunteer {
	return db.ShiftVolunteer{
		Volunteer: db.Volunteer{
			ID:        id,
			Name:      "Ada",
			Phone:     "(212) 555-0111",
			WorkerSid: sid,
		},
		Languages: languages,
	}
}

func TestStartShiftActivatesOfflineVolunteers(t *testing.T) {
	router := newMockRouter()
	router.workers = []model.Worker{
		{Sid: "WK1", FriendlyName: "Ada-1", ActivityName: model.ActivityOffline},
	}
	roster := newMockRosterStore()
	roster.shiftVolunteers["Tuesday 2PM - 5PM"] = []db.ShiftVolunteer{
		rosterVolunteer("1", "WK1", "English", "Spanish"),
	}
	notifier := &mockTelephony{}
	m := newTestManager(t, router, roster, notifier)

	require.NoError(t, m.StartShift(context.Background(), "2PM - 5PM"))

	require.Len(t, router.workerUpdates, 1)
	update := router.workerUpdates[0]
	assert.Equal(t, "WK1", update.workerSid)
	assert.Equal(t, "WAavailable", update.activitySid)
	require.NotNil(t, update.attrs)
	assert.Equal(t, []string{"English", "Spanish"}, update.attrs.Languages)
	assert.Equal(t, "+12125550111", update.attrs.ContactURI)

	require.Len(t, notifier.sms, 1)
	assert.Equal(t, "+12125550111", notifier.sms[0].to)
	assert.Contains(t, notifier.sms[0].body, "2PM - 5PM")

	require.Len(t, roster.auditEntries, 1)
	entry := roster.auditEntries[0]
	assert.Equal(t, "Ada-1", entry.VolunteerName)
	assert.Equal(t, model.ActivityAvailable, entry.Availability)
	assert.Equal(t, reasonShiftStart, entry.Reason)
	assert.NotEmpty(t, entry.ID)
}

func TestStartShiftIsIdempotentForActiveVolunteers(t *testing.T) {
	router := newMockRouter()
	router.workers = []model.Worker{
		{Sid: "WK1", FriendlyName: "Ada-1", ActivityName: model.ActivityAvailable},
	}
	roster := newMockRosterStore()
	roster.shiftVolunteers["Tuesday 2PM - 5PM"] = []db.ShiftVolunteer{
		rosterVolunteer("1", "WK1", "English"),
	}
	notifier := &mockTelephony{}
	m := newTestManager(t, router, roster, notifier)

	require.NoError(t, m.StartShift(context.Background(), "2PM - 5PM"))

	// attributes refresh still happens, but no activity change, text or audit
	require.Len(t, router.workerUpdates, 1)
	assert.Empty(t, router.workerUpdates[0].activitySid)
	assert.Empty(t, notifier.sms)
	assert.Empty(t, roster.auditEntries)
}

func TestStartShiftDeactivatesCarryOvers(t *testing.T) {
	router := newMockRouter()
	router.workers = []model.Worker{
		{Sid: "WK1", FriendlyName: "Ada-1", ActivityName: model.ActivityOffline},
		{Sid: "WK2", FriendlyName: "Grace-2", ActivityName: model.ActivityAvailable,
			Attributes: model.WorkerAttributes{ContactURI: "+12125550122"}},
		{Sid: vmWorkerSid, FriendlyName: "Voicemail", ActivityName: model.ActivityAvailable},
	}
	roster := newMockRosterStore()
	roster.shiftVolunteers["Tuesday 2PM - 5PM"] = []db.ShiftVolunteer{
		rosterVolunteer("1", "WK1", "English"),
	}
	notifier := &mockTelephony{}
	m := newTestManager(t, router, roster, notifier)

	require.NoError(t, m.StartShift(context.Background(), "2PM - 5PM"))

	var deactivated []workerUpdate
	for _, u := range router.workerUpdates {
		if u.activitySid == "WAoffline" {
			deactivated = append(deactivated, u)
		}
	}
	require.Len(t, deactivated, 1)
	assert.Equal(t, "WK2", deactivated[0].workerSid, "the sentinel is never signed out")

	require.Len(t, roster.auditEntries, 2)
	assert.Equal(t, model.ActivityUnavailable, roster.auditEntries[1].Availability)
	assert.Equal(t, "Grace-2", roster.auditEntries[1].VolunteerName)
	assert.Equal(t, reasonShiftEnd, roster.auditEntries[1].Reason,
		"a carried-over volunteer is signed out, not started")
}

func TestStartShiftSkipsUnprovisionedVolunteers(t *testing.T) {
	router := newMockRouter()
	roster := newMockRosterStore()
	roster.shiftVolunteers["Tuesday 2PM - 5PM"] = []db.ShiftVolunteer{
		rosterVolunteer("1", "", "English"),
	}
	m := newTestManager(t, router, roster, &mockTelephony{})

	require.NoError(t, m.StartShift(context.Background(), "2PM - 5PM"))
	assert.Empty(t, router.workerUpdates)
}

func TestEndShiftSignsEveryoneOut(t *testing.T) {
	router := newMockRouter()
	router.workers = []model.Worker{
		{Sid: "WK1", FriendlyName: "Ada-1", ActivityName: model.ActivityAvailable,
			Attributes: model.WorkerAttributes{ContactURI: "+12125550111"}},
		{Sid: "WK2", FriendlyName: "Grace-2", ActivityName: model.ActivityOffline},
		{Sid: vmWorkerSid, FriendlyName: "Voicemail", ActivityName: model.ActivityAvailable},
	}
	roster := newMockRosterStore()
	notifier := &mockTelephony{}
	m := newTestManager(t, router, roster, notifier)

	require.NoError(t, m.EndShift(context.Background()))

	require.Len(t, router.workerUpdates, 1)
	assert.Equal(t, "WK1", router.workerUpdates[0].workerSid)
	assert.Equal(t, "WAoffline", router.workerUpdates[0].activitySid)
	assert.Nil(t, router.workerUpdates[0].attrs)

	require.Len(t, notifier.sms, 1)
	assert.Equal(t, "+12125550111", notifier.sms[0].to)
	assert.Contains(t, notifier.sms[0].body, "your shift has ended")

	require.Len(t, roster.auditEntries, 1)
	assert.Equal(t, reasonShiftEnd, roster.auditEntries[0].Reason)
	assert.Equal(t, model.ActivityUnavailable, roster.auditEntries[0].Availability)
}

func TestSendShiftWarningsOnlyForTomorrowsShifts(t *testing.T) {
	// tuesdayNoon means tomorrow is Wednesday: the weekday shift fires, the
	// Tuesday/Thursday shift does not.
	router := newMockRouter()
	roster := newMockRosterStore()
	roster.shiftVolunteers["Wednesday 2PM - 5PM"] = []db.ShiftVolunteer{
		rosterVolunteer("1", "WK1", "English"),
	}
	roster.shiftVolunteers["Wednesday 5PM - 8PM"] = []db.ShiftVolunteer{
		rosterVolunteer("2", "WK2", "English"),
	}
	notifier := &mockTelephony{}
	m := newTestManager(t, router, roster, notifier)

	require.NoError(t, m.SendShiftWarnings(context.Background()))

	require.Len(t, notifier.sms, 1)
	assert.Equal(t, "+12125550111", notifier.sms[0].to)
	assert.Contains(t, notifier.sms[0].body, "2PM - 5PM")
	assert.Contains(t, notifier.sms[0].body, "tomorrow")
}

func TestSyncWorkersProvisionsMissing(t *testing.T) {
	router := newMockRouter()
	router.nextCreatedSid = "WKfresh"
	roster := newMockRosterStore()
	roster.volunteers = []db.Volunteer{
		{ID: "7", Name: "Ada", Phone: "(212) 555-0111"},
	}
	m := newTestManager(t, router, roster, &mockTelephony{})

	require.NoError(t, m.SyncWorkers(context.Background()))

	require.Len(t, router.createdSids, 1)
	created := router.workers[len(router.workers)-1]
	assert.Equal(t, "Ada-7", created.FriendlyName)
	assert.Equal(t, []string{"English"}, created.Attributes.Languages)
	assert.Equal(t, "+12125550111", created.Attributes.ContactURI)

	require.Len(t, roster.sidUpdates, 1)
	assert.Equal(t, db.WorkerSidUpdate{VolunteerID: "7", WorkerSid: "WKfresh"}, roster.sidUpdates[0])
}

func TestSyncWorkersFailsFastOnIncompleteRow(t *testing.T) {
	router := newMockRouter()
	roster := newMockRosterStore()
	roster.volunteers = []db.Volunteer{
		{ID: "1", Name: "Ada", Phone: "(212) 555-0111"},
		{ID: "2", Name: "Grace", Phone: "  "},
	}
	m := newTestManager(t, router, roster, &mockTelephony{})

	err := m.SyncWorkers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roster row 2")
	assert.Empty(t, router.createdSids, "nothing is provisioned on a bad roster")
	assert.Empty(t, roster.sidUpdates)
}

func TestSyncWorkersDeletesOrphansButNeverSentinel(t *testing.T) {
	router := newMockRouter()
	router.workers = []model.Worker{
		{Sid: "WK1", FriendlyName: "Ada-1"},
		{Sid: "WKorphan", FriendlyName: "Gone-9"},
		{Sid: vmWorkerSid, FriendlyName: "Voicemail"},
	}
	roster := newMockRosterStore()
	roster.volunteers = []db.Volunteer{
		{ID: "1", Name: "Ada", Phone: "(212) 555-0111", WorkerSid: "WK1"},
	}
	m := newTestManager(t, router, roster, &mockTelephony{})

	require.NoError(t, m.SyncWorkers(context.Background()))

	assert.Equal(t, []string{"WKorphan"}, router.deletedSids)
	assert.Empty(t, roster.sidUpdates, "existing rows keep their sids")
}

func TestHandleIncomingSmsSignsOut(t *testing.T) {
	router := newMockRouter()
	router.workers = []model.Worker{
		{Sid: "WK1", FriendlyName: "Ada-1", ActivityName: model.ActivityAvailable,
			Attributes: model.WorkerAttributes{ContactURI: "+12125550111"}},
	}
	roster := newMockRosterStore()
	m := newTestManager(t, router, roster, &mockTelephony{})

	doc, err := m.HandleIncomingSms(context.Background(), model.IncomingSmsEvent{
		From: "+12125550111",
		Body: "pause calls",
	})
	require.NoError(t, err)

	assert.Contains(t, doc, "Ada-1, You are signed out")
	require.Len(t, router.workerUpdates, 1)
	assert.Equal(t, "WAoffline", router.workerUpdates[0].activitySid)

	require.Len(t, roster.auditEntries, 1)
	assert.Equal(t, model.ActivityUnavailable, roster.auditEntries[0].Availability)
	assert.Equal(t, reasonTextMessage, roster.auditEntries[0].Reason)
}

func TestHandleIncomingSmsSignsIn(t *testing.T) {
	router := newMockRouter()
	router.workers = []model.Worker{
		{Sid: "WK1", FriendlyName: "Ada-1", ActivityName: model.ActivityOffline,
			Attributes: model.WorkerAttributes{ContactURI: "+12125550111"}},
	}
	roster := newMockRosterStore()
	m := newTestManager(t, router, roster, &mockTelephony{})

	for _, body := range []string{"on", " ON "} {
		doc, err := m.HandleIncomingSms(context.Background(), model.IncomingSmsEvent{
			From: "+12125550111",
			Body: body,
		})
		require.NoError(t, err)
		assert.Contains(t, doc, "Ada-1, You are signed in")
	}

	require.Len(t, router.workerUpdates, 2)
	assert.Equal(t, "WAavailable", router.workerUpdates[0].activitySid)

	require.Len(t, roster.auditEntries, 2)
	assert.Equal(t, model.ActivityAvailable, roster.auditEntries[0].Availability)
}

func TestHandleIncomingSmsUnknownNumber(t *testing.T) {
	router := newMockRouter()
	m := newTestManager(t, router, newMockRosterStore(), &mockTelephony{})

	doc, err := m.HandleIncomingSms(context.Background(), model.IncomingSmsEvent{From: "+19995550000"})
	require.NoError(t, err)

	assert.Contains(t, doc, "not registered")
	assert.Empty(t, router.workerUpdates)
}

func TestShiftKeyUsesDeploymentWeekday(t *testing.T) {
	m := newTestManager(t, newMockRouter(), newMockRosterStore(), &mockTelephony{})

	key := m.shiftKey("5PM - 8PM", tuesdayNoon)
	assert.Equal(t, fmt.Sprintf("%s 5PM - 8PM", "Tuesday"), key)
}
