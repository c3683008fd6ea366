package api

import (
	"time"

	"github.com/google/uuid"
)

// Dataset kinds accepted by the monitoring service. Uploads are tagged with
// exactly one of these and stored independently per project.
const (
	ReferenceData = "reference"
	CurrentData   = "current"
)

// Report presets recognized by the monitoring service.
const (
	DataDriftPreset      = "DataDriftPreset"
	ClassificationPreset = "ClassificationPreset"
	RegressionPreset     = "RegressionPreset"
	RankingPreset        = "RankingPreset"
	DataQualityPreset    = "DataQualityPreset"
	TextEvalsPreset      = "TextEvals"
)

type Project struct {
	Id          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UploadResponse struct {
	ProjectId uuid.UUID `json:"project_id"`
	Kind      string    `json:"kind"`
	Rows      int       `json:"rows"`
	Columns   int       `json:"columns"`
}

type RunReportRequest struct {
	Preset string         `json:"preset"`
	Config map[string]any `json:"config,omitempty"`
}

type RunReportResponse struct {
	ReportId uuid.UUID `json:"report_id"`
	Status   string    `json:"status"`
}

type Report struct {
	Id        uuid.UUID      `json:"id"`
	ProjectId uuid.UUID      `json:"project_id"`
	Preset    string         `json:"preset"`
	CreatedAt time.Time      `json:"created_at"`
	Content   map[string]any `json:"content"`
}

type ReportSummary struct {
	Id        uuid.UUID `json:"id"`
	Preset    string    `json:"preset"`
	CreatedAt time.Time `json:"created_at"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type ProjectMetrics struct {
	ProjectId uuid.UUID      `json:"project_id"`
	Kind      string         `json:"kind"`
	Metrics   map[string]any `json:"metrics"`
}
