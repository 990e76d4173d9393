package registry

import (
	"os"
	"path/filepath"
	"testing"

	"job-recommender/internal/common/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRegistry_ShippedFile(t *testing.T) {
	reg, err := LoadRegistry("../../configs/activity-registry.json")
	require.NoError(t, err)

	for _, taskType := range []string{"rank-jobs", "train-cf-model", "get-model-stats", "index-job-postings", "recommend-cf", "get-cf-embedding"} {
		t.Run(taskType, func(t *testing.T) {
			activity, ok := reg.Find(taskType)
			require.True(t, ok)
			assert.NoError(t, validation.ValidateTaskType(activity.TaskType))

			_, err := validation.Compile(activity.InputSchema)
			assert.NoError(t, err)
		})
	}
}

func TestLoadRegistry_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"activities": [`},
		{"missing task type", `{"activities": [{"id": "a"}]}`},
		{"duplicate task type", `{"activities": [{"id": "a", "taskType": "rank-jobs"}, {"id": "b", "taskType": "rank-jobs"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegistry(writeRegistry(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestActivityRegistry_InputSchema(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t, `{"activities": [
		{"id": "a", "taskType": "rank-jobs", "inputSchema": {"type": "object"}}
	]}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"type": "object"}, reg.InputSchema("rank-jobs"))
	assert.Nil(t, reg.InputSchema("train-cf-model"))

	var nilReg *ActivityRegistry
	assert.Nil(t, nilReg.InputSchema("rank-jobs"))
}

func TestActivityRegistry_AddSetSave(t *testing.T) {
	reg := &ActivityRegistry{Version: "1.0.0"}
	require.NoError(t, reg.Add(Activity{ID: "rank-jobs", TaskType: "rank-jobs", Timeout: "30s"}))
	assert.Error(t, reg.Add(Activity{ID: "rank-jobs", TaskType: "other"}), "duplicate id")
	assert.Error(t, reg.Add(Activity{ID: "other", TaskType: "rank-jobs"}), "duplicate task type")
	assert.Len(t, reg.Activities, 1)
	assert.NotEmpty(t, reg.LastUpdated)

	tests := []struct {
		name    string
		id      string
		field   string
		value   string
		wantErr bool
	}{
		{"status", "rank-jobs", "status", "verified", false},
		{"retries", "rank-jobs", "retries", "3", false},
		{"timeout", "rank-jobs", "timeout", "45s", false},
		{"bad timeout", "rank-jobs", "timeout", "soon", true},
		{"negative retries", "rank-jobs", "retries", "-1", true},
		{"unknown field", "rank-jobs", "taskType", "x", true},
		{"unknown id", "missing", "status", "verified", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Set(tt.id, tt.field, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}

	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	require.NoError(t, Save(reg, path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	activity, ok := loaded.Find("rank-jobs")
	require.True(t, ok)
	assert.Equal(t, "verified", activity.ImplementationStatus)
	assert.Equal(t, 3, activity.Retries)
	assert.Equal(t, "45s", activity.Timeout)
}
