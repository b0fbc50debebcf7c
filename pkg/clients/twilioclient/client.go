// Package twilioclient is a thin typed wrapper over the Twilio voice and
// messaging REST API.
package twilioclient

import (
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// Client wraps the telephony operations the hotline needs: outbound calls,
// out-of-band call updates, SMS, and recording/transcription cleanup.
type Client struct {
	rest     *twilio.RestClient
	callerID string
}

// New creates a telephony client. callerID is the hotline number outbound
// SMS are sent from.
func New(rest *twilio.RestClient, callerID string) *Client {
	return &Client{rest: rest, callerID: callerID}
}

// CreateCall places an outbound call to a volunteer. The provider invokes
// callbackURL when the call is answered. Machine detection is attached only
// when enabled in configuration.
func (c *Client) CreateCall(to, from, callbackURL string, machineDetection bool) error {
	params := &api.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetUrl(callbackURL)
	params.SetMethod("POST")
	if machineDetection {
		params.SetMachineDetection("Enable")
	}

	if _, err := c.rest.Api.CreateCall(params); err != nil {
		return fmt.Errorf("failed to place call to %s: %w", to, err)
	}
	return nil
}

// UpdateCallTwiml pushes a TwiML document onto a live call leg. This is how
// the parked caller leg gets its conference or voicemail instructions.
func (c *Client) UpdateCallTwiml(callSid, doc string) error {
	params := &api.UpdateCallParams{}
	params.SetTwiml(doc)

	if _, err := c.rest.Api.UpdateCall(callSid, params); err != nil {
		return fmt.Errorf("failed to update call %s: %w", callSid, err)
	}
	return nil
}

// SendSMS sends a text from the hotline's caller ID.
func (c *Client) SendSMS(to, body string) error {
	params := &api.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.callerID)
	params.SetBody(body)

	if _, err := c.rest.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send sms to %s: %w", to, err)
	}
	return nil
}

// DeleteRecording removes a voicemail recording from the provider.
func (c *Client) DeleteRecording(recordingSid string) error {
	if err := c.rest.Api.DeleteRecording(recordingSid, &api.DeleteRecordingParams{}); err != nil {
		return fmt.Errorf("failed to delete recording %s: %w", recordingSid, err)
	}
	return nil
}

// DeleteTranscription removes a transcription resource once its text has
// been copied to the roster store.
func (c *Client) DeleteTranscription(transcriptionSid string) error {
	if err := c.rest.Api.DeleteTranscription(transcriptionSid, &api.DeleteTranscriptionParams{}); err != nil {
		return fmt.Errorf("failed to delete transcription %s: %w", transcriptionSid, err)
	}
	return nil
}
