package taskrouterclient

import (
	"fmt"

	taskrouter "github.com/twilio/twilio-go/rest/taskrouter/v1"

	"github.com/mutualaidnyc/hotline/pkg/core/model"
)

// ListWorkers fetches every worker in the workspace with parsed attributes.
// Workers whose attribute blob does not parse are skipped rather than
// failing the whole listing.
func (c *Client) ListWorkers() ([]model.Worker, error) {
	params := &taskrouter.ListWorkerParams{}
	params.SetLimit(listPageLimit)

	raw, err := c.rest.TaskrouterV1.ListWorker(c.workspaceSid, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}

	workers := make([]model.Worker, 0, len(raw))
	for _, w := range raw {
		attrs, err := model.ParseWorkerAttributes(deref(w.Attributes))
		if err != nil {
			continue
		}
		workers = append(workers, model.Worker{
			Sid:          deref(w.Sid),
			FriendlyName: deref(w.FriendlyName),
			ActivityName: deref(w.ActivityName),
			Attributes:   attrs,
		})
	}
	return workers, nil
}

// WorkersBySid returns all workers keyed by their platform identifier.
func (c *Client) WorkersBySid() (map[string]model.Worker, error) {
	workers, err := c.ListWorkers()
	if err != nil {
		return nil, err
	}

	result := make(map[string]model.Worker, len(workers))
	for _, w := range workers {
		result[w.Sid] = w
	}
	return result, nil
}

// FindWorkerByContact looks up the worker whose contact_uri matches the
// given number. Returns nil when no worker matches.
func (c *Client) FindWorkerByContact(contactURI string) (*model.Worker, error) {
	workers, err := c.ListWorkers()
	if err != nil {
		return nil, err
	}

	for _, w := range workers {
		if w.Attributes.ContactURI == contactURI {
			worker := w
			return &worker, nil
		}
	}
	return nil, nil
}

// CreateWorker provisions a new platform worker and returns its SID.
func (c *Client) CreateWorker(friendlyName string, attrs model.WorkerAttributes) (string, error) {
	encoded, err := attrs.Encode()
	if err != nil {
		return "", fmt.Errorf("failed to encode worker attributes: %w", err)
	}

	params := &taskrouter.CreateWorkerParams{}
	params.SetFriendlyName(friendlyName)
	params.SetAttributes(encoded)

	worker, err := c.rest.TaskrouterV1.CreateWorker(c.workspaceSid, params)
	if err != nil {
		return "", fmt.Errorf("failed to create worker %s: %w", friendlyName, err)
	}
	return deref(worker.Sid), nil
}

// UpdateWorker updates a worker's attributes and/or activity. Nil attrs or
// an empty activity SID leaves that aspect untouched.
func (c *Client) UpdateWorker(workerSid string, attrs *model.WorkerAttributes, activitySid string) error {
	params := &taskrouter.UpdateWorkerParams{}
	if attrs != nil {
		encoded, err := attrs.Encode()
		if err != nil {
			return fmt.Errorf("failed to encode worker attributes: %w", err)
		}
		params.SetAttributes(encoded)
	}
	if activitySid != "" {
		params.SetActivitySid(activitySid)
	}

	if _, err := c.rest.TaskrouterV1.UpdateWorker(c.workspaceSid, workerSid, params); err != nil {
		return fmt.Errorf("failed to update worker %s: %w", workerSid, err)
	}
	return nil
}

// DeleteWorker removes a worker from the workspace.
func (c *Client) DeleteWorker(workerSid string) error {
	if err := c.rest.TaskrouterV1.DeleteWorker(c.workspaceSid, workerSid, &taskrouter.DeleteWorkerParams{}); err != nil {
		return fmt.Errorf("failed to delete worker %s: %w", workerSid, err)
	}
	return nil
}
