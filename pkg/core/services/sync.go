package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mutualaidnyc/hotline/pkg/core/model"
	"github.com/mutualaidnyc/hotline/pkg/db"
	"github.com/mutualaidnyc/hotline/pkg/phone"
)

// SyncWorkers reconciles the roster against the platform's worker list:
// every roster row gets a provisioned worker, and workers no roster row
// references are removed. It aborts before touching the platform if any
// roster row is missing a name or phone number, since a partial sync would
// leave volunteers unreachable.
func (m *ShiftManager) SyncWorkers(ctx context.Context) error {
	volunteers, err := m.roster.ListVolunteers(ctx)
	if err != nil {
		return err
	}

	for _, v := range volunteers {
		if strings.TrimSpace(v.Name) == "" || strings.TrimSpace(v.Phone) == "" {
			return fmt.Errorf("roster row %s is missing a name or phone number", v.ID)
		}
	}

	workers, err := m.platform.ListWorkers()
	if err != nil {
		return err
	}
	bySid := make(map[string]model.Worker, len(workers))
	for _, w := range workers {
		bySid[w.Sid] = w
	}

	var updates []db.WorkerSidUpdate
	referenced := make(map[string]bool, len(volunteers))

	for _, v := range volunteers {
		if _, ok := bySid[v.WorkerSid]; ok {
			referenced[v.WorkerSid] = true
			continue
		}

		attrs := model.WorkerAttributes{
			Languages:  []string{"English"},
			ContactURI: phone.Normalize(v.Phone),
		}
		sid, err := m.platform.CreateWorker(fmt.Sprintf("%s-%s", v.Name, v.ID), attrs)
		if err != nil {
			return fmt.Errorf("failed to provision worker for %s: %w", v.ID, err)
		}

		referenced[sid] = true
		updates = append(updates, db.WorkerSidUpdate{VolunteerID: v.ID, WorkerSid: sid})
	}

	for _, w := range workers {
		if referenced[w.Sid] || w.Sid == m.cfg.Twilio.VMWorkerSID {
			continue
		}
		if err := m.platform.DeleteWorker(w.Sid); err != nil {
			m.logger.Warn("failed to delete orphaned worker",
				zap.String("worker_sid", w.Sid), zap.Error(err))
		}
	}

	if len(updates) > 0 {
		if err := m.roster.UpdateWorkerSids(ctx, updates); err != nil {
			return fmt.Errorf("failed to record worker sids: %w", err)
		}
	}

	m.logger.Info("roster synced",
		zap.Int("volunteers", len(volunteers)),
		zap.Int("provisioned", len(updates)))
	return nil
}
