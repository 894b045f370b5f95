package model

// Collaborator grants a non-creator access to a task or project
type Collaborator struct {
	ID         string `json:"id,omitempty"`
	Email      string `json:"email"`
	Permission string `json:"permission"`
}
