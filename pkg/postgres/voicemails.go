package postgres

import (
	"context"
	"fmt"

	"github.com/mutualaidnyc/hotline/pkg/db"
)

// InsertVoicemail persists a recorded caller message.
func (d *DB) InsertVoicemail(ctx context.Context, vm *db.Voicemail) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO voicemails (recording_sid, recording_url, call_sid, language, caller_phone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (recording_sid) DO NOTHING
	`, vm.RecordingSid, vm.RecordingURL, vm.CallSid, vm.Language, vm.CallerPhone)
	if err != nil {
		return fmt.Errorf("failed to insert voicemail: %w", err)
	}
	return nil
}

// SaveTranscript attaches transcript text to an existing voicemail row.
func (d *DB) SaveTranscript(ctx context.Context, recordingSid, transcript string) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE voicemails SET transcript = $2 WHERE recording_sid = $1
	`, recordingSid, transcript)
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no voicemail found for recording %s", recordingSid)
	}
	return nil
}
