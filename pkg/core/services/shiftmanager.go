package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/mutualaidnyc/hotline/internal/config"
	"github.com/mutualaidnyc/hotline/pkg/core/model"
	"github.com/mutualaidnyc/hotline/pkg/db"
	"github.com/mutualaidnyc/hotline/pkg/phone"
)

// ShiftPlatform is the routing-platform surface the shift manager needs.
// *taskrouterclient.Client satisfies it.
type ShiftPlatform interface {
	ListWorkers() ([]model.Worker, error)
	WorkersBySid() (map[string]model.Worker, error)
	FindWorkerByContact(contactURI string) (*model.Worker, error)
	CreateWorker(friendlyName string, attrs model.WorkerAttributes) (string, error)
	UpdateWorker(workerSid string, attrs *model.WorkerAttributes, activitySid string) error
	DeleteWorker(workerSid string) error
	ListActivities() (map[string]string, error)
}

// Notifier sends texts to volunteers. *twilioclient.Client satisfies it.
type Notifier interface {
	SendSMS(to, body string) error
}

// Volunteer-facing texts.
const (
	smsShiftStart = "Mutual Aid NYC thanks you for volunteering! Your %s shift is" +
		" starting now. If you need to temporarily pause incoming calls, please" +
		" respond to this text message with \"pause calls\""
	smsShiftEnd = "Thanks again for volunteering, your shift has ended. You" +
		" should receive no more new calls."
	smsShiftWarning = "Reminder from Mutual Aid NYC: you are signed up for the" +
		" %s hotline shift tomorrow."
)

// Audit log reasons.
const (
	reasonShiftStart  = "Shift Start"
	reasonShiftEnd    = "Shift End"
	reasonTextMessage = "Text Message"
)

// ShiftManager drives the shift and roster lifecycle: activating the rostered
// volunteers at shift start, deactivating everyone at shift end, reconciling
// the roster against the platform's worker list, and handling volunteer
// sign-in and sign-out over SMS.
type ShiftManager struct {
	platform ShiftPlatform
	roster   db.RosterStore
	notifier Notifier
	gate     *ScheduleGate
	cfg      *config.Config
	logger   *zap.Logger

	activities map[string]string
	location   *time.Location

	// injectable for tests
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

// NewShiftManager builds a shift manager, resolving the workspace activities
// and the deployment timezone up front. gate may be nil; shifts then start
// unconditionally.
func NewShiftManager(
	platform ShiftPlatform,
	roster db.RosterStore,
	notifier Notifier,
	gate *ScheduleGate,
	cfg *config.Config,
	logger *zap.Logger,
) (*ShiftManager, error) {
	activities, err := platform.ListActivities()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace activities: %w", err)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", cfg.Timezone, err)
	}

	return &ShiftManager{
		platform:   platform,
		roster:     roster,
		notifier:   notifier,
		gate:       gate,
		cfg:        cfg,
		logger:     logger,
		activities: activities,
		location:   location,
		now:        time.Now,
		shuffle:    rand.Shuffle,
	}, nil
}

// shiftKey qualifies a shift name with the weekday it runs on, matching the
// roster store's assignment keys ("Tuesday 5PM - 8PM").
func (m *ShiftManager) shiftKey(shiftName string, day time.Time) string {
	return day.In(m.location).Weekday().String() + " " + shiftName
}

// StartShift activates today's rostered volunteers for the named shift and
// deactivates everyone else. The eligible list is shuffled before activation
// so no volunteer is systematically first in the platform's routing order.
// Only workers moving from Offline are texted and audited; a volunteer
// already signed in keeps their state, though their language attributes are
// refreshed either way.
func (m *ShiftManager) StartShift(ctx context.Context, shiftName string) error {
	if m.gate != nil && !m.gate.IsOpen(ctx) {
		m.logger.Info("hotline is closed, skipping shift activation",
			zap.String("shift", shiftName))
		return nil
	}

	key := m.shiftKey(shiftName, m.now())

	eligible, err := m.roster.ListShiftVolunteers(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to list volunteers for %q: %w", key, err)
	}

	m.shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})

	workers, err := m.platform.WorkersBySid()
	if err != nil {
		return err
	}

	var audit []db.AvailabilityLogEntry
	eligibleSids := make(map[string]bool, len(eligible))

	for _, v := range eligible {
		worker, ok := workers[v.WorkerSid]
		if !ok {
			m.logger.Warn("rostered volunteer has no platform worker",
				zap.String("volunteer_id", v.ID), zap.String("shift", key))
			continue
		}
		eligibleSids[worker.Sid] = true

		attrs := &model.WorkerAttributes{
			Languages:  v.Languages,
			ContactURI: phone.Normalize(v.Phone),
		}

		activitySid := ""
		if worker.ActivityName == model.ActivityOffline {
			activitySid = m.activities[model.ActivityAvailable]
		}

		if err := m.platform.UpdateWorker(worker.Sid, attrs, activitySid); err != nil {
			m.logger.Error("failed to activate worker",
				zap.String("worker_sid", worker.Sid), zap.Error(err))
			continue
		}

		if worker.ActivityName == model.ActivityOffline {
			if err := m.notifier.SendSMS(attrs.ContactURI, fmt.Sprintf(smsShiftStart, shiftName)); err != nil {
				m.logger.Error("failed to send shift start text",
					zap.String("worker_sid", worker.Sid), zap.Error(err))
			}
			audit = append(audit, db.AvailabilityLogEntry{
				ID:            uuid.NewString(),
				VolunteerName: worker.FriendlyName,
				Availability:  model.ActivityAvailable,
				Reason:        reasonShiftStart,
			})
		}
	}

	// Anyone still active who is not rostered for this shift is carried over
	// from a previous one and gets signed out now.
	for _, w := range workers {
		if eligibleSids[w.Sid] || w.Sid == m.cfg.Twilio.VMWorkerSID || w.ActivityName == model.ActivityOffline {
			continue
		}
		if err := m.deactivate(w, reasonShiftEnd, &audit); err != nil {
			m.logger.Error("failed to deactivate worker",
				zap.String("worker_sid", w.Sid), zap.Error(err))
		}
	}

	if len(audit) > 0 {
		if err := m.roster.InsertAvailabilityLog(ctx, audit); err != nil {
			return fmt.Errorf("failed to write availability log: %w", err)
		}
	}

	m.logger.Info("shift started",
		zap.String("shift", key),
		zap.Int("eligible", len(eligible)),
		zap.Int("transitions", len(audit)))
	return nil
}

// EndShift signs out every active worker except the voicemail sentinel.
func (m *ShiftManager) EndShift(ctx context.Context) error {
	workers, err := m.platform.ListWorkers()
	if err != nil {
		return err
	}

	var audit []db.AvailabilityLogEntry
	for _, w := range workers {
		if w.Sid == m.cfg.Twilio.VMWorkerSID || w.ActivityName == model.ActivityOffline {
			continue
		}
		if err := m.deactivate(w, reasonShiftEnd, &audit); err != nil {
			m.logger.Error("failed to deactivate worker",
				zap.String("worker_sid", w.Sid), zap.Error(err))
		}
	}

	if len(audit) > 0 {
		if err := m.roster.InsertAvailabilityLog(ctx, audit); err != nil {
			return fmt.Errorf("failed to write availability log: %w", err)
		}
	}

	m.logger.Info("shift ended", zap.Int("transitions", len(audit)))
	return nil
}

// deactivate moves one worker Offline, texts them, and records the audit
// entry in the caller's batch.
func (m *ShiftManager) deactivate(w model.Worker, reason string, audit *[]db.AvailabilityLogEntry) error {
	if err := m.platform.UpdateWorker(w.Sid, nil, m.activities[model.ActivityOffline]); err != nil {
		return err
	}
	if err := m.notifier.SendSMS(w.Attributes.ContactURI, smsShiftEnd); err != nil {
		m.logger.Error("failed to send shift end text",
			zap.String("worker_sid", w.Sid), zap.Error(err))
	}
	*audit = append(*audit, db.AvailabilityLogEntry{
		ID:            uuid.NewString(),
		VolunteerName: w.FriendlyName,
		Availability:  model.ActivityUnavailable,
		Reason:        reason,
	})
	return nil
}

// SendShiftWarnings texts tomorrow's rostered volunteers for every
// configured shift whose recurrence rule lands on tomorrow.
func (m *ShiftManager) SendShiftWarnings(ctx context.Context) error {
	now := m.now().In(m.location)
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, m.location).AddDate(0, 0, 1)
	dayAfter := tomorrow.AddDate(0, 0, 1)

	for _, shift := range m.cfg.Shifts {
		rule, err := rrule.StrToRRule(shift.RRule)
		if err != nil {
			return fmt.Errorf("invalid rrule for shift %q: %w", shift.Name, err)
		}
		rule.DTStart(tomorrow.AddDate(0, 0, -8))

		if len(rule.Between(tomorrow, dayAfter.Add(-time.Second), true)) == 0 {
			continue
		}

		key := m.shiftKey(shift.Name, tomorrow)
		volunteers, err := m.roster.ListShiftVolunteers(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to list volunteers for %q: %w", key, err)
		}

		for _, v := range volunteers {
			if err := m.notifier.SendSMS(phone.Normalize(v.Phone), fmt.Sprintf(smsShiftWarning, shift.Name)); err != nil {
				m.logger.Error("failed to send shift warning",
					zap.String("volunteer_id", v.ID), zap.Error(err))
			}
		}

		m.logger.Info("shift warnings sent",
			zap.String("shift", key), zap.Int("volunteers", len(volunteers)))
	}
	return nil
}
