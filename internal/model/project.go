package model

import "encoding/json"

// Project groups tasks and carries its own collaborator list
type Project struct {
	ID            string         `json:"id"`
	Name          string         `json:"name" validate:"required"`
	Description   string         `json:"description,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
	UserEmail     string         `json:"user_email,omitempty"` // Owner
	Collaborators []Collaborator `json:"collaborators"`
}

// UnmarshalJSON accepts both "id" and the legacy "_id" key
func (p *Project) UnmarshalJSON(data []byte) error {
	type alias Project
	aux := struct {
		*alias
		MongoID string `json:"_id"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = aux.MongoID
	}
	return nil
}

// CreatorEmail implements permission.Entity
func (p Project) CreatorEmail() string { return p.UserEmail }

// CreatorDisplayName implements permission.Entity. Projects only record the owner's email.
func (p Project) CreatorDisplayName() string { return "" }

// CollaboratorList implements permission.Entity
func (p Project) CollaboratorList() []Collaborator { return p.Collaborators }

// ProjectSummary is a project with its computed progress
type ProjectSummary struct {
	Project
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// Progress returns the completed ratio in [0,1]
func (s ProjectSummary) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// UnmarshalJSON keeps the counters that the embedded Project decoder would drop
func (s *ProjectSummary) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &s.Project); err != nil {
		return err
	}
	var counts struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
	}
	if err := json.Unmarshal(data, &counts); err != nil {
		return err
	}
	s.Total = counts.Total
	s.Completed = counts.Completed
	return nil
}
