package postgres

import (
	"context"
	"fmt"

	"github.com/mutualaidnyc/hotline/pkg/db"
)

// InsertCallLog creates the audit row for a newly created task.
func (d *DB) InsertCallLog(ctx context.Context, entry *db.CallLogEntry) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO call_log (task_sid, call_sid, language, caller_phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (task_sid) DO NOTHING
	`, entry.TaskSid, entry.CallSid, entry.Language, entry.CallerPhone)
	if err != nil {
		return fmt.Errorf("failed to insert call log entry: %w", err)
	}
	return nil
}

// UpdateCallLogByTask applies the non-nil fields of the update to the row
// for the given task.
func (d *DB) UpdateCallLogByTask(ctx context.Context, taskSid string, update db.CallLogUpdate) error {
	_, err := d.pool.Exec(ctx, `
		UPDATE call_log SET
			seconds_in_queue = COALESCE($2, seconds_in_queue),
			talk_end_age = COALESCE($3, talk_end_age),
			end_status = COALESCE($4, end_status),
			volunteer_name = COALESCE($5, volunteer_name),
			volunteer_connect_time = COALESCE($6, volunteer_connect_time)
		WHERE task_sid = $1
	`, taskSid, update.SecondsInQueue, update.TalkEndAge, update.EndStatus,
		update.VolunteerName, update.VolunteerConnectTime)
	if err != nil {
		return fmt.Errorf("failed to update call log for task %s: %w", taskSid, err)
	}
	return nil
}
