package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in     string
		kind   StatusKind
		custom string
	}{
		{"pendiente", StatusPending, ""},
		{"  En Espera ", StatusOnHold, ""},
		{"Lista para comenzar", StatusReady, ""},
		{"en progreso", StatusInProgress, ""},
		{"En proceso", StatusInProgress, ""},
		{"en revisión", StatusInReview, ""},
		{"COMPLETADO", StatusCompleted, ""},
		{"", StatusPending, ""},
		{"Bloqueado", StatusCustom, "Bloqueado"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			s := ParseStatus(tc.in)
			assert.Equal(t, tc.kind, s.Kind)
			assert.Equal(t, tc.custom, s.Custom)
		})
	}
}

func TestStatusLabelCoversVocabulary(t *testing.T) {
	for _, kind := range KnownStatuses {
		s := NewStatus(kind)
		assert.NotEmpty(t, s.String(), "kind %d has no name", kind)
		assert.Equal(t, s, ParseStatus(s.Label()))
	}
	assert.Equal(t, "En revisión", NewStatus(StatusInReview).Label())
	assert.Equal(t, "Sin estado", CustomStatus("  ").Label())
}

func TestTaskUnmarshal_LegacyIDAndDates(t *testing.T) {
	raw := `{
		"_id": "665f",
		"title": "Informe",
		"status": "en revisión",
		"deadline": "2025-03-01T00:00:00",
		"startDate": null,
		"collaborators": [{"email": "bob@x.com", "permission": "write"}]
	}`

	var task Task
	require.NoError(t, json.Unmarshal([]byte(raw), &task))

	assert.Equal(t, "665f", task.ID)
	assert.Equal(t, StatusInReview, task.Status.Kind)
	require.True(t, task.HasDeadline())
	assert.Equal(t, "2025-03-01", task.Deadline.String())
	assert.Nil(t, task.StartDate)
	assert.Len(t, task.Collaborators, 1)
}

func TestTaskMarshal_StatusAsString(t *testing.T) {
	d := NewDate(time.Date(2025, 1, 15, 13, 0, 0, 0, time.UTC))
	task := Task{ID: "1", Title: "x", Status: CustomStatus("Bloqueado"), Deadline: &d}

	data, err := json.Marshal(task)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"Bloqueado"`)
	assert.Contains(t, string(data), `"deadline":"2025-01-15"`)
}

func TestTaskIsOverdue(t *testing.T) {
	now := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	past := NewDate(now.AddDate(0, 0, -1))
	today := NewDate(now)

	assert.True(t, Task{Deadline: &past}.IsOverdue(now))
	assert.False(t, Task{Deadline: &today}.IsOverdue(now))
	assert.False(t, Task{Deadline: &past, Completed: true}.IsOverdue(now))
	assert.False(t, Task{}.IsOverdue(now))
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate("25/12/2024")
	assert.Error(t, err)
}

func TestProjectSummaryUnmarshal(t *testing.T) {
	var s ProjectSummary
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"p1","name":"Web","total":4,"completed":1}`), &s))
	assert.Equal(t, "p1", s.ID)
	assert.Equal(t, 4, s.Total)
	assert.InDelta(t, 0.25, s.Progress(), 1e-9)
}
