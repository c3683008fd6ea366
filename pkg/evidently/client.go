package evidently

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"mlmonitor/pkg/api"
	"mlmonitor/pkg/dataset"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	// BaseURL of the monitoring service, e.g. "http://localhost:8000".
	BaseURL string
	// Timeout applied to every request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Client is a synchronous client for the monitoring service's REST API. One
// blocking HTTP call is issued per operation; the client holds no state
// beyond the underlying connection pool, so it is safe for concurrent use.
// Failed operations return a *RequestError; there are no automatic retries.
type Client struct {
	http *resty.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", "mlmonitor-client/1.0")

	return &Client{http: client}
}

func parseResponse[T any](op string, res *resty.Response) (T, error) {
	var data T
	if !res.IsSuccess() {
		return data, statusError(op, res.StatusCode(), strings.TrimSpace(res.String()))
	}
	if err := json.Unmarshal(res.Body(), &data); err != nil {
		return data, transportError(op, fmt.Errorf("error parsing response body: %w", err))
	}
	return data, nil
}

// Health reports whether the service is reachable and responding.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	const op = "health"
	res, err := c.http.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return api.HealthResponse{}, transportError(op, err)
	}
	return parseResponse[api.HealthResponse](op, res)
}

// CreateProject registers a new project and returns the server's
// representation of it, including the assigned id.
func (c *Client) CreateProject(ctx context.Context, name, description string) (api.Project, error) {
	const op = "create project"
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(api.CreateProjectRequest{Name: name, Description: description}).
		Post("/api/projects")
	if err != nil {
		return api.Project{}, transportError(op, err)
	}
	return parseResponse[api.Project](op, res)
}

func (c *Client) GetProject(ctx context.Context, projectId uuid.UUID) (api.Project, error) {
	const op = "get project"
	res, err := c.http.R().SetContext(ctx).Get("/api/projects/" + projectId.String())
	if err != nil {
		return api.Project{}, transportError(op, err)
	}
	return parseResponse[api.Project](op, res)
}

func (c *Client) ListProjects(ctx context.Context) ([]api.Project, error) {
	const op = "list projects"
	res, err := c.http.R().SetContext(ctx).Get("/api/projects")
	if err != nil {
		return nil, transportError(op, err)
	}
	return parseResponse[[]api.Project](op, res)
}

func (c *Client) DeleteProject(ctx context.Context, projectId uuid.UUID) error {
	const op = "delete project"
	res, err := c.http.R().SetContext(ctx).Delete("/api/projects/" + projectId.String())
	if err != nil {
		return transportError(op, err)
	}
	if !res.IsSuccess() {
		return statusError(op, res.StatusCode(), strings.TrimSpace(res.String()))
	}
	return nil
}

// UploadData serializes the table to CSV and uploads it as the project's
// reference or current dataset. Re-uploading the same kind supersedes the
// previous dataset; the other kind is unaffected.
func (c *Client) UploadData(ctx context.Context, projectId uuid.UUID, table *dataset.Table, kind string) error {
	const op = "upload data"

	if kind != api.ReferenceData && kind != api.CurrentData {
		return transportError(op, fmt.Errorf("invalid dataset kind %q", kind))
	}

	csvData, err := table.CSVString()
	if err != nil {
		return transportError(op, fmt.Errorf("error serializing table: %w", err))
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", kind+"_data.csv", strings.NewReader(csvData)).
		Post(fmt.Sprintf("/api/projects/%s/data/%s", projectId, kind))
	if err != nil {
		return transportError(op, err)
	}
	if !res.IsSuccess() {
		return statusError(op, res.StatusCode(), strings.TrimSpace(res.String()))
	}

	slog.Info("dataset uploaded", "project_id", projectId, "kind", kind, "rows", table.NumRows())
	return nil
}

// RunReport asks the service to run the named preset against the project's
// uploaded datasets and returns the id of the generated report.
func (c *Client) RunReport(ctx context.Context, projectId uuid.UUID, preset string, config map[string]any) (uuid.UUID, error) {
	const op = "run report"
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(api.RunReportRequest{Preset: preset, Config: config}).
		Post(fmt.Sprintf("/api/projects/%s/reports", projectId))
	if err != nil {
		return uuid.Nil, transportError(op, err)
	}
	response, err := parseResponse[api.RunReportResponse](op, res)
	if err != nil {
		return uuid.Nil, err
	}
	return response.ReportId, nil
}

// GetReport fetches the structured content of a generated report.
func (c *Client) GetReport(ctx context.Context, projectId, reportId uuid.UUID) (api.Report, error) {
	const op = "get report"
	res, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/api/projects/%s/reports/%s", projectId, reportId))
	if err != nil {
		return api.Report{}, transportError(op, err)
	}
	return parseResponse[api.Report](op, res)
}

func (c *Client) ListReports(ctx context.Context, projectId uuid.UUID) ([]api.ReportSummary, error) {
	const op = "list reports"
	res, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/api/projects/%s/reports", projectId))
	if err != nil {
		return nil, transportError(op, err)
	}
	return parseResponse[[]api.ReportSummary](op, res)
}

// ExportReport retrieves a report rendered in the given format ("json" or
// "html") as raw bytes.
func (c *Client) ExportReport(ctx context.Context, projectId, reportId uuid.UUID, format string) ([]byte, error) {
	const op = "export report"
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("format", format).
		Get(fmt.Sprintf("/api/projects/%s/reports/%s/export", projectId, reportId))
	if err != nil {
		return nil, transportError(op, err)
	}
	if !res.IsSuccess() {
		return nil, statusError(op, res.StatusCode(), strings.TrimSpace(res.String()))
	}
	return res.Body(), nil
}

// SaveReportHTML exports the report as HTML and writes it to path.
func (c *Client) SaveReportHTML(ctx context.Context, projectId, reportId uuid.UUID, path string) error {
	content, err := c.ExportReport(ctx, projectId, reportId, "html")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("error writing report to %s: %w", path, err)
	}
	slog.Info("report saved", "project_id", projectId, "report_id", reportId, "path", path)
	return nil
}

// ProjectMetrics returns consolidated metrics for a project. Kind selects the
// metric family ("drift", "performance", "quality") or "all".
func (c *Client) ProjectMetrics(ctx context.Context, projectId uuid.UUID, kind string) (api.ProjectMetrics, error) {
	const op = "project metrics"
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("type", kind).
		Get(fmt.Sprintf("/api/projects/%s/metrics", projectId))
	if err != nil {
		return api.ProjectMetrics{}, transportError(op, err)
	}
	return parseResponse[api.ProjectMetrics](op, res)
}
