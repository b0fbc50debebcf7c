package taskrouterclient

import (
	"fmt"

	taskrouter "github.com/twilio/twilio-go/rest/taskrouter/v1"

	"github.com/mutualaidnyc/hotline/pkg/core/model"
)

// PendingReservation returns the worker's single pending reservation, or
// nil when there is none. The platform guarantees at most one pending
// reservation per worker; absence usually means the caller already hung up
// and is a normal outcome for callers of this method.
func (c *Client) PendingReservation(workerSid string) (*model.Reservation, error) {
	params := &taskrouter.ListWorkerReservationParams{}
	params.SetReservationStatus(model.ReservationPending)
	params.SetLimit(1)

	reservations, err := c.rest.TaskrouterV1.ListWorkerReservation(c.workspaceSid, workerSid, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations for worker %s: %w", workerSid, err)
	}
	if len(reservations) == 0 {
		return nil, nil
	}

	r := reservations[0]
	return &model.Reservation{
		Sid:       deref(r.Sid),
		TaskSid:   deref(r.TaskSid),
		WorkerSid: deref(r.WorkerSid),
		Status:    deref(r.ReservationStatus),
	}, nil
}

// UpdateReservationStatus resolves a reservation to accepted or rejected.
func (c *Client) UpdateReservationStatus(workerSid, reservationSid, status string) error {
	params := &taskrouter.UpdateWorkerReservationParams{}
	params.SetReservationStatus(status)

	_, err := c.rest.TaskrouterV1.UpdateWorkerReservation(c.workspaceSid, workerSid, reservationSid, params)
	if err != nil {
		return fmt.Errorf("failed to update reservation %s to %s: %w", reservationSid, status, err)
	}
	return nil
}
