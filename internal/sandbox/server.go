// Package sandbox is a lightweight, API-compatible stand-in for the hosted
// monitoring service. It implements the project/upload/report surface that
// the client consumes, persisting state in a relational store and producing
// minimal report content. It exists for tests and local development; it is
// not a replacement for the real service's analysis engine or dashboard.
package sandbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mlmonitor/pkg/api"
	"mlmonitor/pkg/dataset"
)

const Version = "1.0.0"

// Uploaded datasets are limited to 64MB, which is far beyond anything the
// demos or tests produce.
const maxUploadBytes = 64 << 20

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) AddRoutes(r chi.Router) {
	r.Get("/api/health", RestHandler(s.Health))
	r.Route("/api/projects", func(r chi.Router) {
		r.Post("/", RestHandler(s.CreateProject))
		r.Get("/", RestHandler(s.ListProjects))
		r.Route("/{project_id}", func(r chi.Router) {
			r.Get("/", RestHandler(s.GetProject))
			r.Delete("/", RestHandler(s.DeleteProject))
			r.Post("/data/{kind}", RestHandler(s.UploadData))
			r.Post("/reports", RestHandler(s.RunReport))
			r.Get("/reports", RestHandler(s.ListReports))
			r.Get("/reports/{report_id}", RestHandler(s.GetReport))
			r.Get("/reports/{report_id}/export", s.ExportReport)
			r.Get("/metrics", RestHandler(s.ProjectMetrics))
		})
	})
}

func (s *Service) Health(r *http.Request) (any, error) {
	return api.HealthResponse{Status: "healthy", Version: Version}, nil
}

func (s *Service) CreateProject(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreateProjectRequest](r)
	if err != nil {
		return nil, err
	}

	if req.Name == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "project name is required")
	}

	project := Project{
		Id:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(r.Context()).Create(&project).Error; err != nil {
		slog.Error("error creating project", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create project")
	}

	slog.Info("project created", "project_id", project.Id, "name", project.Name)
	return toApiProject(project), nil
}

func (s *Service) loadProject(r *http.Request) (Project, error) {
	projectId, err := URLParamUUID(r, "project_id")
	if err != nil {
		return Project{}, err
	}

	var project Project
	if err := s.db.WithContext(r.Context()).First(&project, "id = ?", projectId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Project{}, CodedErrorf(http.StatusNotFound, "project %s not found", projectId)
		}
		slog.Error("error loading project", "error", err)
		return Project{}, CodedErrorf(http.StatusInternalServerError, "failed to load project")
	}
	return project, nil
}

func (s *Service) GetProject(r *http.Request) (any, error) {
	project, err := s.loadProject(r)
	if err != nil {
		return nil, err
	}
	return toApiProject(project), nil
}

func (s *Service) ListProjects(r *http.Request) (any, error) {
	var projects []Project
	if err := s.db.WithContext(r.Context()).Order("created_at").Find(&projects).Error; err != nil {
		slog.Error("error listing projects", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to list projects")
	}

	response := make([]api.Project, len(projects))
	for i, project := range projects {
		response[i] = toApiProject(project)
	}
	return response, nil
}

func (s *Service) DeleteProject(r *http.Request) (any, error) {
	project, err := s.loadProject(r)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(r.Context()).Transaction(func(txn *gorm.DB) error {
		if err := txn.Delete(&Upload{}, "project_id = ?", project.Id).Error; err != nil {
			return err
		}
		if err := txn.Delete(&Report{}, "project_id = ?", project.Id).Error; err != nil {
			return err
		}
		return txn.Delete(&Project{}, "id = ?", project.Id).Error
	})
	if err != nil {
		slog.Error("error deleting project", "project_id", project.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to delete project")
	}

	slog.Info("project deleted", "project_id", project.Id)
	return nil, nil
}

func (s *Service) UploadData(r *http.Request) (any, error) {
	project, err := s.loadProject(r)
	if err != nil {
		return nil, err
	}

	kind := chi.URLParam(r, "kind")
	if kind != api.ReferenceData && kind != api.CurrentData {
		return nil, CodedErrorf(http.StatusBadRequest, "invalid dataset kind %q: must be %q or %q", kind, api.ReferenceData, api.CurrentData)
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "unable to parse multipart upload: %v", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "missing file attachment: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "error reading upload: %v", err)
	}

	table, err := dataset.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "uploaded file is not valid csv: %v", err)
	}

	upload := Upload{
		ProjectId:  project.Id,
		Kind:       kind,
		Filename:   header.Filename,
		Data:       data,
		Rows:       table.NumRows(),
		Columns:    table.NumColumns(),
		UploadedAt: time.Now().UTC(),
	}
	err = s.db.WithContext(r.Context()).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&upload).Error
	if err != nil {
		slog.Error("error storing upload", "project_id", project.Id, "kind", kind, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to store upload")
	}

	slog.Info("dataset stored", "project_id", project.Id, "kind", kind, "rows", upload.Rows)
	return api.UploadResponse{ProjectId: project.Id, Kind: kind, Rows: upload.Rows, Columns: upload.Columns}, nil
}

func (s *Service) RunReport(r *http.Request) (any, error) {
	project, err := s.loadProject(r)
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.RunReportRequest](r)
	if err != nil {
		return nil, err
	}
	if req.Preset == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "preset is required")
	}

	var uploadRows []Upload
	if err := s.db.WithContext(r.Context()).Find(&uploadRows, "project_id = ?", project.Id).Error; err != nil {
		slog.Error("error loading uploads", "project_id", project.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to load uploads")
	}
	if len(uploadRows) == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "no datasets uploaded for project %s", project.Id)
	}

	uploads := make(map[string]*Upload, len(uploadRows))
	for i := range uploadRows {
		uploads[uploadRows[i].Kind] = &uploadRows[i]
	}

	content, err := buildReportContent(req.Preset, req.Config, uploads)
	if err != nil {
		return nil, err
	}
	content["project_id"] = project.Id.String()

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to serialize report content")
	}

	report := Report{
		Id:        uuid.New(),
		ProjectId: project.Id,
		Preset:    req.Preset,
		Content:   contentJSON,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(r.Context()).Create(&report).Error; err != nil {
		slog.Error("error storing report", "project_id", project.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to store report")
	}

	slog.Info("report generated", "project_id", project.Id, "report_id", report.Id, "preset", report.Preset)
	return api.RunReportResponse{ReportId: report.Id, Status: "completed"}, nil
}

func (s *Service) loadReport(r *http.Request) (Report, error) {
	project, err := s.loadProject(r)
	if err != nil {
		return Report{}, err
	}
	reportId, err := URLParamUUID(r, "report_id")
	if err != nil {
		return Report{}, err
	}

	var report Report
	err = s.db.WithContext(r.Context()).
		First(&report, "id = ? AND project_id = ?", reportId, project.Id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Report{}, CodedErrorf(http.StatusNotFound, "report %s not found", reportId)
		}
		slog.Error("error loading report", "error", err)
		return Report{}, CodedErrorf(http.StatusInternalServerError, "failed to load report")
	}
	return report, nil
}

func (s *Service) GetReport(r *http.Request) (any, error) {
	report, err := s.loadReport(r)
	if err != nil {
		return nil, err
	}
	return toApiReport(report)
}

type listReportsParams struct {
	Limit int `schema:"limit"`
}

func (s *Service) ListReports(r *http.Request) (any, error) {
	project, err := s.loadProject(r)
	if err != nil {
		return nil, err
	}

	params, err := ParseRequestQueryParams[listReportsParams](r)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(r.Context()).
		Where("project_id = ?", project.Id).
		Order("created_at desc")
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}

	var reports []Report
	if err := query.Find(&reports).Error; err != nil {
		slog.Error("error listing reports", "project_id", project.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to list reports")
	}

	response := make([]api.ReportSummary, len(reports))
	for i, report := range reports {
		response[i] = api.ReportSummary{Id: report.Id, Preset: report.Preset, CreatedAt: report.CreatedAt}
	}
	return response, nil
}

func (s *Service) ExportReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.loadReport(r)
	if err != nil {
		var cerr *codedError
		if errors.As(err, &cerr) {
			http.Error(w, err.Error(), cerr.code)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(report.Content) //nolint:errcheck
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><title>Report %s</title></head><body><h1>%s</h1><pre>%s</pre></body></html>\n",
			report.Id, report.Preset, report.Content)
	default:
		http.Error(w, fmt.Sprintf("unsupported export format %q", format), http.StatusBadRequest)
	}
}

type metricsParams struct {
	Type string `schema:"type"`
}

// ProjectMetrics consolidates the metrics of the latest report per preset
// into a single map, optionally filtered by metric family.
func (s *Service) ProjectMetrics(r *http.Request) (any, error) {
	project, err := s.loadProject(r)
	if err != nil {
		return nil, err
	}

	params, err := ParseRequestQueryParams[metricsParams](r)
	if err != nil {
		return nil, err
	}
	kind := params.Type
	if kind == "" {
		kind = "all"
	}

	wanted := map[string][]string{
		"drift":       {api.DataDriftPreset},
		"performance": {api.ClassificationPreset, api.RegressionPreset, api.RankingPreset},
		"quality":     {api.DataQualityPreset},
		"all":         {api.DataDriftPreset, api.ClassificationPreset, api.RegressionPreset, api.RankingPreset, api.DataQualityPreset, api.TextEvalsPreset},
	}
	presets, ok := wanted[kind]
	if !ok {
		return nil, CodedErrorf(http.StatusBadRequest, "unknown metric type %q", kind)
	}

	metrics := make(map[string]any)
	for _, preset := range presets {
		var report Report
		err := s.db.WithContext(r.Context()).
			Where("project_id = ? AND preset = ?", project.Id, preset).
			Order("created_at desc").
			First(&report).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			slog.Error("error loading latest report", "project_id", project.Id, "preset", preset, "error", err)
			return nil, CodedErrorf(http.StatusInternalServerError, "failed to load metrics")
		}

		var content map[string]any
		if err := json.Unmarshal(report.Content, &content); err != nil {
			continue
		}
		metrics[preset] = content["metrics"]
	}

	return api.ProjectMetrics{ProjectId: project.Id, Kind: kind, Metrics: metrics}, nil
}

func toApiProject(project Project) api.Project {
	return api.Project{
		Id:          project.Id,
		Name:        project.Name,
		Description: project.Description,
		CreatedAt:   project.CreatedAt,
	}
}

func toApiReport(report Report) (api.Report, error) {
	var content map[string]any
	if err := json.Unmarshal(report.Content, &content); err != nil {
		return api.Report{}, CodedErrorf(http.StatusInternalServerError, "stored report content is corrupt")
	}
	return api.Report{
		Id:        report.Id,
		ProjectId: report.ProjectId,
		Preset:    report.Preset,
		CreatedAt: report.CreatedAt,
		Content:   content,
	}, nil
}
