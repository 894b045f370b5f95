package model

// Attachment is a file carried inline in a task payload. Data holds a
// data-URL ("data:<mime>;base64,<payload>").
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}
