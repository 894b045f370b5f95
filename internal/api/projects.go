package api

import (
	"context"
	"net/http"

	"github.com/existflow/taskprox/internal/model"
)

// ListProjects returns the projects visible to the caller
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	if err := c.do(ctx, http.MethodGet, apiPath("/projects"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProject returns a single project
func (c *Client) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var out model.Project
	if err := c.do(ctx, http.MethodGet, apiPath("/projects/%s", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProject stores a new project and returns it as saved
func (c *Client) CreateProject(ctx context.Context, p model.Project) (*model.Project, error) {
	var out model.Project
	if err := c.do(ctx, http.MethodPost, apiPath("/projects"), nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProject replaces a project
func (c *Client) UpdateProject(ctx context.Context, p model.Project) (*model.Project, error) {
	var out model.Project
	if err := c.do(ctx, http.MethodPut, apiPath("/projects/%s", p.ID), nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject removes a project
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, apiPath("/projects/%s", id), nil, nil, nil)
}

// ProjectSummary returns every project with its completion counters
func (c *Client) ProjectSummary(ctx context.Context) ([]model.ProjectSummary, error) {
	var out []model.ProjectSummary
	if err := c.do(ctx, http.MethodGet, apiPath("/projects/summary"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
