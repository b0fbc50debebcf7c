package taskrouterclient

import (
	"fmt"

	taskrouter "github.com/twilio/twilio-go/rest/taskrouter/v1"

	"github.com/mutualaidnyc/hotline/pkg/core/model"
)

// FetchTask retrieves a task with parsed attributes.
func (c *Client) FetchTask(taskSid string) (*model.Task, error) {
	raw, err := c.rest.TaskrouterV1.FetchTask(c.workspaceSid, taskSid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task %s: %w", taskSid, err)
	}

	attrs, err := model.ParseTaskAttributes(deref(raw.Attributes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse attributes of task %s: %w", taskSid, err)
	}

	return &model.Task{Sid: deref(raw.Sid), Attributes: attrs}, nil
}

// TaskForCallSid finds the task whose call_sid attribute matches the given
// call. Returns nil when the platform no longer has one.
func (c *Client) TaskForCallSid(callSid string) (*model.Task, error) {
	params := &taskrouter.ListTaskParams{}
	params.SetEvaluateTaskAttributes(fmt.Sprintf("call_sid == %q", callSid))
	params.SetLimit(1)

	tasks, err := c.rest.TaskrouterV1.ListTask(c.workspaceSid, params)
	if err != nil {
		return nil, fmt.Errorf("failed to find task for call %s: %w", callSid, err)
	}
	if len(tasks) == 0 {
		return nil, nil
	}

	attrs, err := model.ParseTaskAttributes(deref(tasks[0].Attributes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse attributes of task for call %s: %w", callSid, err)
	}

	return &model.Task{Sid: deref(tasks[0].Sid), Attributes: attrs}, nil
}

// CompleteTask marks a task completed with a reason code. The platform only
// transitions a task once; callers treat repeat completions as idempotent.
func (c *Client) CompleteTask(taskSid, reason string) error {
	params := &taskrouter.UpdateTaskParams{}
	params.SetAssignmentStatus("completed")
	params.SetReason(reason)

	if _, err := c.rest.TaskrouterV1.UpdateTask(c.workspaceSid, taskSid, params); err != nil {
		return fmt.Errorf("failed to complete task %s: %w", taskSid, err)
	}
	return nil
}
