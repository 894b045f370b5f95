package model

import (
	"encoding/json"
	"strings"
)

// StatusKind enumerates the fixed task workflow. StatusCustom carries free text.
type StatusKind int

const (
	StatusPending StatusKind = iota
	StatusOnHold
	StatusReady
	StatusInProgress
	StatusInReview
	StatusCompleted
	StatusCustom
)

// KnownStatuses lists the closed vocabulary in workflow order
var KnownStatuses = []StatusKind{
	StatusPending,
	StatusOnHold,
	StatusReady,
	StatusInProgress,
	StatusInReview,
	StatusCompleted,
}

var statusNames = map[StatusKind]string{
	StatusPending:    "pendiente",
	StatusOnHold:     "en espera",
	StatusReady:      "lista para comenzar",
	StatusInProgress: "en progreso",
	StatusInReview:   "en revisión",
	StatusCompleted:  "completado",
}

// Older records use these spellings
var statusAliases = map[string]StatusKind{
	"en proceso":  StatusInProgress,
	"en revision": StatusInReview,
}

// Status is a tagged task status: one of KnownStatuses or a custom label
type Status struct {
	Kind   StatusKind
	Custom string
}

// NewStatus returns a status of a known kind
func NewStatus(kind StatusKind) Status {
	return Status{Kind: kind}
}

// CustomStatus returns a free-text status
func CustomStatus(label string) Status {
	return Status{Kind: StatusCustom, Custom: strings.TrimSpace(label)}
}

// ParseStatus maps text onto the vocabulary case-insensitively. Unknown text
// becomes a custom status; empty text is pending.
func ParseStatus(s string) Status {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return NewStatus(StatusPending)
	}
	for kind, name := range statusNames {
		if name == norm {
			return NewStatus(kind)
		}
	}
	if kind, ok := statusAliases[norm]; ok {
		return NewStatus(kind)
	}
	return CustomStatus(s)
}

// String returns the wire value
func (s Status) String() string {
	if s.Kind == StatusCustom {
		return s.Custom
	}
	return statusNames[s.Kind]
}

// Label returns the display form with the first letter capitalised
func (s Status) Label() string {
	str := s.String()
	if str == "" {
		return "Sin estado"
	}
	r := []rune(str)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// IsCustom reports whether the status is outside the closed vocabulary
func (s Status) IsCustom() bool {
	return s.Kind == StatusCustom
}

// IsDone reports whether the status is the terminal one
func (s Status) IsDone() bool {
	return s.Kind == StatusCompleted
}

// MarshalJSON implements json.Marshaler
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}
