package postgres

import (
	"context"
	"fmt"

	"github.com/mutualaidnyc/hotline/pkg/db"
)

// ListVolunteers retrieves every roster row.
func (d *DB) ListVolunteers(ctx context.Context) ([]db.Volunteer, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, phone, worker_sid
		FROM volunteers
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query volunteers: %w", err)
	}
	defer rows.Close()

	var volunteers []db.Volunteer
	for rows.Next() {
		var v db.Volunteer
		if err := rows.Scan(&v.ID, &v.Name, &v.Phone, &v.WorkerSid); err != nil {
			return nil, fmt.Errorf("failed to scan volunteer: %w", err)
		}
		volunteers = append(volunteers, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating volunteers: %w", err)
	}

	return volunteers, nil
}

// ListShiftVolunteers retrieves the volunteers assigned a non-empty
// language list for the given weekday-qualified shift key.
func (d *DB) ListShiftVolunteers(ctx context.Context, shiftKey string) ([]db.ShiftVolunteer, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT v.id, v.name, v.phone, v.worker_sid, s.languages
		FROM volunteers v
		JOIN shift_assignments s ON s.volunteer_id = v.id
		WHERE s.shift_key = $1 AND cardinality(s.languages) > 0
	`, shiftKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift volunteers: %w", err)
	}
	defer rows.Close()

	var volunteers []db.ShiftVolunteer
	for rows.Next() {
		var v db.ShiftVolunteer
		if err := rows.Scan(&v.ID, &v.Name, &v.Phone, &v.WorkerSid, &v.Languages); err != nil {
			return nil, fmt.Errorf("failed to scan shift volunteer: %w", err)
		}
		volunteers = append(volunteers, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shift volunteers: %w", err)
	}

	return volunteers, nil
}

// UpdateWorkerSids records newly provisioned platform identities against
// their roster rows in a single transaction.
func (d *DB) UpdateWorkerSids(ctx context.Context, updates []db.WorkerSidUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, u := range updates {
		_, err := tx.Exec(ctx, `
			UPDATE volunteers SET worker_sid = $2 WHERE id = $1
		`, u.VolunteerID, u.WorkerSid)
		if err != nil {
			return fmt.Errorf("failed to update worker sid for %s: %w", u.VolunteerID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// InsertAvailabilityLog appends audit rows as one batch.
func (d *DB) InsertAvailabilityLog(ctx context.Context, entries []db.AvailabilityLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_log (id, volunteer_name, availability, reason)
			VALUES ($1, $2, $3, $4)
		`, e.ID, e.VolunteerName, e.Availability, e.Reason)
		if err != nil {
			return fmt.Errorf("failed to insert availability log entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
