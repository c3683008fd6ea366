package sandbox_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mlmonitor/internal/sandbox"
	"mlmonitor/pkg/api"
	"mlmonitor/pkg/dataset"
)

func createDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sandbox.NewDatabase("file::memory:")
	require.NoError(t, err)
	return db
}

func createRouter(t *testing.T) chi.Router {
	t.Helper()
	service := sandbox.NewService(createDB(t))
	router := chi.NewRouter()
	service.AddRoutes(router)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, endpoint string, payload any, dest any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, endpoint, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if dest != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
	}
	return rec
}

func uploadTable(t *testing.T, router http.Handler, projectId uuid.UUID, table *dataset.Table, kind string) *httptest.ResponseRecorder {
	t.Helper()

	csvData, err := table.CSVString()
	require.NoError(t, err)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", kind+"_data.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csvData))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/projects/%s/data/%s", projectId, kind), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createProject(t *testing.T, router http.Handler, name string) api.Project {
	t.Helper()
	var project api.Project
	rec := doJSON(t, router, http.MethodPost, "/api/projects", api.CreateProjectRequest{Name: name, Description: "test project"}, &project)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEqual(t, uuid.Nil, project.Id)
	return project
}

func TestHealth(t *testing.T) {
	router := createRouter(t)

	var health api.HealthResponse
	rec := doJSON(t, router, http.MethodGet, "/api/health", nil, &health)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", health.Status)
}

func TestProjectLifecycle(t *testing.T) {
	router := createRouter(t)

	project := createProject(t, router, "demo")

	var fetched api.Project
	rec := doJSON(t, router, http.MethodGet, "/api/projects/"+project.Id.String(), nil, &fetched)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, project.Id, fetched.Id)
	assert.Equal(t, "demo", fetched.Name)

	var projects []api.Project
	rec = doJSON(t, router, http.MethodGet, "/api/projects", nil, &projects)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, projects, 1)

	rec = doJSON(t, router, http.MethodDelete, "/api/projects/"+project.Id.String(), nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/projects/"+project.Id.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProjectRequiresName(t *testing.T) {
	router := createRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/projects", api.CreateProjectRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadKindsAreIndependent(t *testing.T) {
	router := createRouter(t)
	project := createProject(t, router, "tagging")

	reference, current := dataset.DriftPair(50, 0, dataset.GradualDrift, 1)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, reference, api.ReferenceData).Code)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, current, api.CurrentData).Code)

	// Re-uploading the current dataset must not disturb the reference one.
	smaller, _ := dataset.DriftPair(20, 0, dataset.GradualDrift, 2)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, smaller, api.CurrentData).Code)

	var response api.RunReportResponse
	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/projects/%s/reports", project.Id),
		api.RunReportRequest{Preset: api.DataDriftPreset}, &response)
	require.Equal(t, http.StatusOK, rec.Code)

	var report api.Report
	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/projects/%s/reports/%s", project.Id, response.ReportId), nil, &report)
	require.Equal(t, http.StatusOK, rec.Code)

	datasets := report.Content["datasets"].(map[string]any)
	ref := datasets["reference"].(map[string]any)
	cur := datasets["current"].(map[string]any)
	assert.Equal(t, float64(50), ref["rows"])
	assert.Equal(t, float64(20), cur["rows"])
}

func TestUploadRejectsInvalidKind(t *testing.T) {
	router := createRouter(t)
	project := createProject(t, router, "kinds")

	table, _ := dataset.DriftPair(5, 0, dataset.GradualDrift, 1)
	rec := uploadTable(t, router, project.Id, table, "baseline")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunReportUnknownPreset(t *testing.T) {
	router := createRouter(t)
	project := createProject(t, router, "presets")

	table, _ := dataset.DriftPair(5, 0, dataset.GradualDrift, 1)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, table, api.CurrentData).Code)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/projects/%s/reports", project.Id),
		api.RunReportRequest{Preset: "NoSuchPreset"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unrecognized preset")
}

func TestRunReportWithoutData(t *testing.T) {
	router := createRouter(t)
	project := createProject(t, router, "empty")

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/projects/%s/reports", project.Id),
		api.RunReportRequest{Preset: api.DataDriftPreset}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReportNotFound(t *testing.T) {
	router := createRouter(t)
	project := createProject(t, router, "missing")

	rec := doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/api/projects/%s/reports/%s", project.Id, uuid.New()), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func runReport(t *testing.T, router http.Handler, projectId uuid.UUID, preset string, config map[string]any) api.Report {
	t.Helper()

	var response api.RunReportResponse
	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/projects/%s/reports", projectId),
		api.RunReportRequest{Preset: preset, Config: config}, &response)
	require.Equal(t, http.StatusOK, rec.Code)

	var report api.Report
	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/projects/%s/reports/%s", projectId, response.ReportId), nil, &report)
	require.Equal(t, http.StatusOK, rec.Code)
	return report
}

func TestDriftReportDetectsDrift(t *testing.T) {
	router := createRouter(t)
	project := createProject(t, router, "drift")

	reference, current := dataset.DriftPair(200, 1.5, dataset.SuddenDrift, 7)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, reference, api.ReferenceData).Code)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, current, api.CurrentData).Code)

	report := runReport(t, router, project.Id, api.DataDriftPreset, map[string]any{"threshold": 0.1})

	assert.Equal(t, project.Id.String(), report.Content["project_id"])
	drifted, ok := report.Content["drift_detected"].(bool)
	require.True(t, ok, "report must contain a drift_detected boolean")
	assert.True(t, drifted)
}

func TestDriftReportNoDrift(t *testing.T) {
	router := createRouter(t)
	project := createProject(t, router, "stable")

	reference, current := dataset.DriftPair(200, 0, dataset.GradualDrift, 7)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, reference, api.ReferenceData).Code)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, current, api.CurrentData).Code)

	report := runReport(t, router, project.Id, api.DataDriftPreset, map[string]any{"threshold": 0.2})

	drifted, ok := report.Content["drift_detected"].(bool)
	require.True(t, ok)
	assert.False(t, drifted)
}

func TestClassificationReport(t *testing.T) {
	router := createRouter(t)
	project := createProject(t, router, "classification")

	predictions := dataset.Predictions(100, "good", 3)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, predictions, api.CurrentData).Code)

	report := runReport(t, router, project.Id, api.ClassificationPreset, nil)
	metrics := report.Content["metrics"].(map[string]any)
	assert.Equal(t, float64(100), metrics["samples"])
	assert.Greater(t, metrics["accuracy"].(float64), 0.7)
}

func TestQualityReport(t *testing.T) {
	router := createRouter(t)
	project := createProject(t, router, "quality")

	table := dataset.QualityIssues(100, 0.2, 0.1, 0.05, 5)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, table, api.CurrentData).Code)

	report := runReport(t, router, project.Id, api.DataQualityPreset, nil)
	metrics := report.Content["metrics"].(map[string]any)
	assert.Greater(t, metrics["missing_cells"].(float64), float64(0))
	assert.Greater(t, metrics["duplicate_rows"].(float64), float64(0))
}

func TestExportReport(t *testing.T) {
	router := createRouter(t)
	project := createProject(t, router, "export")

	reference, current := dataset.DriftPair(20, 0.5, dataset.GradualDrift, 9)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, reference, api.ReferenceData).Code)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, current, api.CurrentData).Code)

	var response api.RunReportResponse
	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/projects/%s/reports", project.Id),
		api.RunReportRequest{Preset: api.DataDriftPreset}, &response)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/projects/%s/reports/%s/export?format=html", project.Id, response.ReportId), nil)
	htmlRec := httptest.NewRecorder()
	router.ServeHTTP(htmlRec, req)
	assert.Equal(t, http.StatusOK, htmlRec.Code)
	assert.Contains(t, htmlRec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, htmlRec.Body.String(), api.DataDriftPreset)

	req = httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/projects/%s/reports/%s/export?format=pdf", project.Id, response.ReportId), nil)
	badRec := httptest.NewRecorder()
	router.ServeHTTP(badRec, req)
	assert.Equal(t, http.StatusBadRequest, badRec.Code)
}

func TestProjectMetrics(t *testing.T) {
	router := createRouter(t)
	project := createProject(t, router, "metrics")

	reference, current := dataset.DriftPair(100, 1.0, dataset.GradualDrift, 11)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, reference, api.ReferenceData).Code)
	require.Equal(t, http.StatusOK, uploadTable(t, router, project.Id, current, api.CurrentData).Code)

	runReport(t, router, project.Id, api.DataDriftPreset, nil)
	runReport(t, router, project.Id, api.DataQualityPreset, nil)

	var metrics api.ProjectMetrics
	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/projects/%s/metrics?type=drift", project.Id), nil, &metrics)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, metrics.Metrics, api.DataDriftPreset)
	assert.NotContains(t, metrics.Metrics, api.DataQualityPreset)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/projects/%s/metrics?type=all", project.Id), nil, &metrics)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, metrics.Metrics, api.DataQualityPreset)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/projects/%s/metrics?type=bogus", project.Id), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
