// Package taskrouterclient is a thin typed wrapper over the TaskRouter REST
// API for a single workspace. Worker and task attribute blobs are decoded
// here, at the boundary; nothing above this package sees raw JSON strings.
package taskrouterclient

import (
	"fmt"

	"github.com/twilio/twilio-go"
	taskrouter "github.com/twilio/twilio-go/rest/taskrouter/v1"
)

const listPageLimit = 1000

// Client wraps TaskRouter operations for one workspace. It is constructed
// explicitly and injected; there is no shared module-level instance.
type Client struct {
	rest         *twilio.RestClient
	workspaceSid string
}

// New creates a TaskRouter client bound to a workspace.
func New(rest *twilio.RestClient, workspaceSid string) *Client {
	return &Client{rest: rest, workspaceSid: workspaceSid}
}

// ListActivities returns the workspace's activity SIDs keyed by friendly
// name (Available, Offline, Unavailable).
func (c *Client) ListActivities() (map[string]string, error) {
	params := &taskrouter.ListActivityParams{}
	params.SetLimit(listPageLimit)

	activities, err := c.rest.TaskrouterV1.ListActivity(c.workspaceSid, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	result := make(map[string]string, len(activities))
	for _, activity := range activities {
		result[deref(activity.FriendlyName)] = deref(activity.Sid)
	}
	return result, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
