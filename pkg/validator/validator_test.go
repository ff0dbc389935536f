package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alertRequest struct {
	Severity    string `json:"severity" binding:"omitempty,severity"`
	QualityType string `json:"quality_type" binding:"omitempty,quality_type"`
	FileFormat  string `json:"file_format" binding:"omitempty,file_format"`
	EntityType  string `json:"entity_type" binding:"omitempty,entity_type"`
	Algorithm   string `json:"detection_algorithm" binding:"omitempty,algorithm"`
	WindowHours int    `json:"window_hours" binding:"omitempty,window_hours"`
}

func TestCustomValidators(t *testing.T) {
	v := Get()
	require.NotNil(t, v)

	tests := []struct {
		name    string
		req     alertRequest
		wantErr bool
	}{
		{name: "empty request passes", req: alertRequest{}},
		{
			name: "valid values pass",
			req: alertRequest{
				Severity:    "high",
				QualityType: "format_error",
				FileFormat:  "csv",
				EntityType:  "PERSON",
				Algorithm:   "kmeans",
				WindowHours: 24,
			},
		},
		{name: "unknown severity", req: alertRequest{Severity: "urgent"}, wantErr: true},
		{name: "unknown quality type", req: alertRequest{QualityType: "broken"}, wantErr: true},
		{name: "unknown file format", req: alertRequest{FileFormat: "docx"}, wantErr: true},
		{name: "lowercase entity type", req: alertRequest{EntityType: "person"}, wantErr: true},
		{name: "unknown algorithm", req: alertRequest{Algorithm: "isolation_forest"}, wantErr: true},
		{name: "unsupported window", req: alertRequest{WindowHours: 7}, wantErr: true},
		{name: "week window passes", req: alertRequest{WindowHours: 168}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFieldNamesComeFromJSONTags(t *testing.T) {
	v := Get()

	err := v.Struct(alertRequest{Severity: "urgent"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "severity")
}
