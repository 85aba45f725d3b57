package execution

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   Status
		expected string
	}{
		{name: "pending status", status: StatusPending, expected: "PENDING"},
		{name: "running status", status: StatusRunning, expected: "RUNNING"},
		{name: "success status", status: StatusSuccess, expected: "SUCCESS"},
		{name: "failed status", status: StatusFailed, expected: "FAILED"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestParseStatus_Lenient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected Status
	}{
		{name: "running token", input: "RUNNING", expected: StatusRunning},
		{name: "success token", input: "SUCCESS", expected: StatusSuccess},
		{name: "failed token", input: "FAILED", expected: StatusFailed},
		{name: "pending token", input: "PENDING", expected: StatusPending},
		{name: "unknown token defaults to pending", input: "UNKNOWN", expected: StatusPending},
		{name: "lowercase defaults to pending", input: "success", expected: StatusPending},
		{name: "empty defaults to pending", input: "", expected: StatusPending},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ParseStatus(tt.input))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusSuccess.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestStatus_JSON(t *testing.T) {
	t.Parallel()

	t.Run("marshals as uppercase token", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(StatusSuccess)
		require.NoError(t, err)
		assert.Equal(t, `"SUCCESS"`, string(data))
	})

	t.Run("zero value marshals as pending", func(t *testing.T) {
		t.Parallel()

		var s Status
		data, err := json.Marshal(s)
		require.NoError(t, err)
		assert.Equal(t, `"PENDING"`, string(data))
	})

	t.Run("unmarshals known token", func(t *testing.T) {
		t.Parallel()

		var s Status
		require.NoError(t, json.Unmarshal([]byte(`"FAILED"`), &s))
		assert.Equal(t, StatusFailed, s)
	})

	t.Run("unknown token decodes to pending without error", func(t *testing.T) {
		t.Parallel()

		var s Status
		require.NoError(t, json.Unmarshal([]byte(`"HALTED"`), &s))
		assert.Equal(t, StatusPending, s)
	})

	t.Run("non-string value decodes to pending without error", func(t *testing.T) {
		t.Parallel()

		var s Status
		require.NoError(t, json.Unmarshal([]byte(`42`), &s))
		assert.Equal(t, StatusPending, s)
	})
}
