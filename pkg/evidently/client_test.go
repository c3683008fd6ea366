package evidently_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlmonitor/internal/sandbox"
	"mlmonitor/pkg/api"
	"mlmonitor/pkg/dataset"
	"mlmonitor/pkg/evidently"
)

func newTestClient(t *testing.T) *evidently.Client {
	t.Helper()

	db, err := sandbox.NewDatabase("file::memory:")
	require.NoError(t, err)

	router := chi.NewRouter()
	sandbox.NewService(db).AddRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return evidently.NewClient(evidently.Config{BaseURL: server.URL, Timeout: 10 * time.Second})
}

func TestHealthCheck(t *testing.T) {
	client := newTestClient(t)

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}

func TestEndToEndDriftWorkflow(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	project, err := client.CreateProject(ctx, "demo", "end to end drift run")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, project.Id)

	reference, current := dataset.DriftPair(100, 1.5, dataset.SuddenDrift, 42)
	require.NoError(t, client.UploadData(ctx, project.Id, reference, api.ReferenceData))
	require.NoError(t, client.UploadData(ctx, project.Id, current, api.CurrentData))

	reportId, err := client.RunDataDrift(ctx, project.Id, nil)
	require.NoError(t, err)

	report, err := client.GetReport(ctx, project.Id, reportId)
	require.NoError(t, err)

	// The report must reference only this project's datasets and carry the
	// drift-detection boolean.
	assert.Equal(t, project.Id.String(), report.Content["project_id"])
	drifted, ok := report.Content["drift_detected"].(bool)
	require.True(t, ok, "drift report must contain the drift_detected boolean")
	assert.True(t, drifted)

	datasets := report.Content["datasets"].(map[string]any)
	require.Contains(t, datasets, api.ReferenceData)
	require.Contains(t, datasets, api.CurrentData)
	assert.Equal(t, float64(100), datasets[api.ReferenceData].(map[string]any)["rows"])
	assert.Equal(t, float64(100), datasets[api.CurrentData].(map[string]any)["rows"])
}

func TestProjectCRUD(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	created, err := client.CreateProject(ctx, "crud", "lifecycle test")
	require.NoError(t, err)

	fetched, err := client.GetProject(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.Id, fetched.Id)
	assert.Equal(t, "crud", fetched.Name)

	projects, err := client.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)

	require.NoError(t, client.DeleteProject(ctx, created.Id))

	_, err = client.GetProject(ctx, created.Id)
	require.Error(t, err)
	assert.True(t, evidently.IsNotFound(err))
}

func TestUploadKindTagging(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	project, err := client.CreateProject(ctx, "tagging", "")
	require.NoError(t, err)

	reference, _ := dataset.DriftPair(30, 0, dataset.GradualDrift, 1)
	_, current := dataset.DriftPair(40, 0.2, dataset.GradualDrift, 2)
	require.NoError(t, client.UploadData(ctx, project.Id, reference, api.ReferenceData))
	require.NoError(t, client.UploadData(ctx, project.Id, current, api.CurrentData))

	reportId, err := client.RunDataDrift(ctx, project.Id, nil)
	require.NoError(t, err)
	report, err := client.GetReport(ctx, project.Id, reportId)
	require.NoError(t, err)

	datasets := report.Content["datasets"].(map[string]any)
	assert.Equal(t, float64(30), datasets[api.ReferenceData].(map[string]any)["rows"])
	assert.Equal(t, float64(40), datasets[api.CurrentData].(map[string]any)["rows"])
}

func TestUploadRejectsUnknownKind(t *testing.T) {
	client := newTestClient(t)
	table, _ := dataset.DriftPair(5, 0, dataset.GradualDrift, 1)

	err := client.UploadData(context.Background(), uuid.New(), table, "baseline")
	require.Error(t, err)
}

func TestGetReportUnknownId(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	project, err := client.CreateProject(ctx, "errors", "")
	require.NoError(t, err)

	_, err = client.GetReport(ctx, project.Id, uuid.New())
	require.Error(t, err)

	var reqErr *evidently.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 404, reqErr.StatusCode)
	assert.True(t, evidently.IsNotFound(err))
}

func TestRunReportUnknownPreset(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	project, err := client.CreateProject(ctx, "presets", "")
	require.NoError(t, err)

	table, _ := dataset.DriftPair(10, 0, dataset.GradualDrift, 1)
	require.NoError(t, client.UploadData(ctx, project.Id, table, api.CurrentData))

	_, err = client.RunReport(ctx, project.Id, "NoSuchPreset", nil)
	require.Error(t, err)

	var reqErr *evidently.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 400, reqErr.StatusCode)
	assert.Contains(t, reqErr.Message, "unrecognized preset")
}

func TestUnreachableServer(t *testing.T) {
	server := httptest.NewServer(chi.NewRouter())
	url := server.URL
	server.Close()

	client := evidently.NewClient(evidently.Config{BaseURL: url, Timeout: time.Second})
	_, err := client.Health(context.Background())
	require.Error(t, err)

	var reqErr *evidently.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 0, reqErr.StatusCode)
}

func TestSaveReportHTML(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	project, err := client.CreateProject(ctx, "export", "")
	require.NoError(t, err)

	reference, current := dataset.DriftPair(20, 0.5, dataset.GradualDrift, 3)
	require.NoError(t, client.UploadData(ctx, project.Id, reference, api.ReferenceData))
	require.NoError(t, client.UploadData(ctx, project.Id, current, api.CurrentData))

	reportId, err := client.RunDataDrift(ctx, project.Id, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, client.SaveReportHTML(ctx, project.Id, reportId, path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "<html>")
}

func TestListReportsAndMetrics(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	project, err := client.CreateProject(ctx, "metrics", "")
	require.NoError(t, err)

	reference, current := dataset.DriftPair(50, 1.0, dataset.GradualDrift, 4)
	require.NoError(t, client.UploadData(ctx, project.Id, reference, api.ReferenceData))
	require.NoError(t, client.UploadData(ctx, project.Id, current, api.CurrentData))

	_, err = client.RunDataDrift(ctx, project.Id, nil)
	require.NoError(t, err)
	_, err = client.RunDataQuality(ctx, project.Id, nil)
	require.NoError(t, err)

	reports, err := client.ListReports(ctx, project.Id)
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	metrics, err := client.ProjectMetrics(ctx, project.Id, "all")
	require.NoError(t, err)
	assert.Contains(t, metrics.Metrics, api.DataDriftPreset)
	assert.Contains(t, metrics.Metrics, api.DataQualityPreset)
}
