package form

import (
	"testing"

	"github.com/existflow/taskprox/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_ReportsMissingFields(t *testing.T) {
	err := Struct(model.Registration{Email: "bad", Password: "x"})

	var ferr *Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "must be a valid email", ferr.Fields["email"])
	assert.Equal(t, "is required", ferr.Fields["firstname"])
	assert.NotContains(t, ferr.Fields, "password")
	assert.Contains(t, err.Error(), "address is required")
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(model.Credentials{Email: "ana@x.com", Password: "secret"}))
	assert.NoError(t, Struct(model.Task{Title: "Informe"}))
	assert.Error(t, Struct(model.Project{}))
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("ana@x.com"))
	assert.ErrorIs(t, Email("ana"), ErrInvalidEmail)
	assert.ErrorIs(t, Email(""), ErrInvalidEmail)
}

func TestConfirmPassword(t *testing.T) {
	assert.NoError(t, ConfirmPassword("a", "a"))
	assert.ErrorIs(t, ConfirmPassword("a", "b"), ErrPasswordMismatch)
}
