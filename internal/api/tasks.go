package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/existflow/taskprox/internal/model"
)

func filterQuery(f model.TaskFilter) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("projectId", f.ProjectID)
	set("title", f.Title)
	set("creator", f.Creator)
	set("status", f.Status)
	set("startDate", f.StartDate)
	set("deadline", f.Deadline)
	if f.HasRecurso {
		q.Set("hasRecurso", "true")
	}
	return q
}

// ListTasks returns the tasks visible to the caller, narrowed by filter
func (c *Client) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	var out []model.Task
	if err := c.do(ctx, http.MethodGet, apiPath("/tasks"), filterQuery(filter), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTasksByProject returns the project's tasks the caller collaborates on
func (c *Client) ListTasksByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	var out []model.Task
	if err := c.do(ctx, http.MethodGet, apiPath("/tasks/by-project/%s", projectID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTask returns a single task
func (c *Client) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var out model.Task
	if err := c.do(ctx, http.MethodGet, apiPath("/tasks/%s", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTask stores a new task and returns it as saved
func (c *Client) CreateTask(ctx context.Context, t model.Task) (*model.Task, error) {
	var out model.Task
	if err := c.do(ctx, http.MethodPost, apiPath("/tasks"), nil, t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask replaces a task, attachments included
func (c *Client) UpdateTask(ctx context.Context, t model.Task) (*model.Task, error) {
	var out model.Task
	if err := c.do(ctx, http.MethodPut, apiPath("/tasks/%s", t.ID), nil, t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTaskStatus changes only the status
func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status model.Status) (*model.Task, error) {
	var out model.Task
	body := map[string]model.Status{"status": status}
	if err := c.do(ctx, http.MethodPatch, apiPath("/tasks/%s/status", id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask removes a task
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, apiPath("/tasks/%s", id), nil, nil, nil)
}
