package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"mlmonitor/internal/config"
	"mlmonitor/pkg/api"
	"mlmonitor/pkg/dataset"
	"mlmonitor/pkg/evidently"
)

const reportsDir = "reports"

type demoRunner struct {
	client   *evidently.Client
	cfg      *config.Config
	projects map[string]uuid.UUID
}

// Demo workflows against a running monitoring service: drift detection,
// classification performance, data quality, LLM text evals, and a combined
// monitoring pass with consolidated metrics.
func main() {
	config.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	cfg.SetupLogging()

	runner := &demoRunner{
		client:   evidently.NewClient(evidently.Config{BaseURL: cfg.EvidentlyURL, Timeout: cfg.RequestTimeout}),
		cfg:      cfg,
		projects: make(map[string]uuid.UUID),
	}

	ctx := context.Background()

	health, err := runner.client.Health(ctx)
	if err != nil {
		log.Fatalf("Monitoring service is not reachable at %s: %v", cfg.EvidentlyURL, err)
	}
	slog.Info("monitoring service is up", "status", health.Status, "version", health.Version)

	if err := os.MkdirAll(reportsDir, os.ModePerm); err != nil {
		log.Fatalf("error creating reports directory: %v", err)
	}

	demos := []struct {
		name string
		run  func(context.Context) error
	}{
		{"data drift detection", runner.demoDataDrift},
		{"model performance monitoring", runner.demoClassification},
		{"data quality check", runner.demoDataQuality},
		{"llm evaluation", runner.demoTextEvals},
		{"comprehensive monitoring", runner.demoComprehensive},
	}

	failed := 0
	for _, demo := range demos {
		slog.Info("running demo", "name", demo.name)
		if err := demo.run(ctx); err != nil {
			slog.Error("demo failed", "name", demo.name, "error", err)
			failed++
		}
	}

	slog.Info("demo run complete", "projects_created", len(runner.projects), "failed", failed)
	for name, id := range runner.projects {
		slog.Info("created project", "demo", name, "project_id", id)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func (d *demoRunner) demoDataDrift(ctx context.Context) error {
	reference, current := dataset.DriftPair(1000, 0.8, dataset.GradualDrift, 42)
	slog.Info("generated synthetic data", "reference", reference.Summary(), "current", current.Summary())

	project, err := d.client.CreateProject(ctx, "Data Drift Analysis Demo", "Drift detection on synthetic data")
	if err != nil {
		return err
	}
	d.projects["data_drift"] = project.Id

	if err := d.client.UploadData(ctx, project.Id, reference, api.ReferenceData); err != nil {
		return err
	}
	if err := d.client.UploadData(ctx, project.Id, current, api.CurrentData); err != nil {
		return err
	}

	reportId, err := d.client.RunDataDrift(ctx, project.Id, map[string]any{"method": "psi", "threshold": 0.1})
	if err != nil {
		return err
	}

	report, err := d.client.GetReport(ctx, project.Id, reportId)
	if err != nil {
		return err
	}

	d.checkDriftAlert(report)

	return d.client.SaveReportHTML(ctx, project.Id, reportId, filepath.Join(reportsDir, "data_drift.html"))
}

// checkDriftAlert compares the reported drifted-column share against the
// configured alert threshold.
func (d *demoRunner) checkDriftAlert(report api.Report) {
	metrics, ok := report.Content["metrics"].(map[string]any)
	if !ok {
		return
	}
	share, ok := metrics["share_of_drifted_columns"].(float64)
	if !ok {
		return
	}

	if share >= d.cfg.DriftAlertThreshold {
		slog.Warn("ALERT: drifted column share exceeds threshold",
			"share", share, "threshold", d.cfg.DriftAlertThreshold, "report_id", report.Id)
	} else {
		slog.Info("drift below alert threshold", "share", share, "threshold", d.cfg.DriftAlertThreshold)
	}
}

func (d *demoRunner) demoClassification(ctx context.Context) error {
	trainData := dataset.Predictions(1000, "good", 42)
	liveData := dataset.Predictions(500, "degraded", 43)

	project, err := d.client.CreateProject(ctx, "ML Model Performance Demo", "Classification performance on live traffic")
	if err != nil {
		return err
	}
	d.projects["model_performance"] = project.Id

	if err := d.client.UploadData(ctx, project.Id, trainData, api.ReferenceData); err != nil {
		return err
	}
	if err := d.client.UploadData(ctx, project.Id, liveData, api.CurrentData); err != nil {
		return err
	}

	if _, err := d.client.RunModelPerformance(ctx, project.Id, "classification", nil); err != nil {
		return err
	}

	// Drift between training and live data is usually the reason performance
	// degrades, so run both.
	_, err = d.client.RunDataDrift(ctx, project.Id, nil)
	return err
}

func (d *demoRunner) demoDataQuality(ctx context.Context) error {
	data := dataset.QualityIssues(1000, 0.1, 0.05, 0.02, 42)

	project, err := d.client.CreateProject(ctx, "Data Quality Check Demo", "Quality checks on problematic data")
	if err != nil {
		return err
	}
	d.projects["data_quality"] = project.Id

	if err := d.client.UploadData(ctx, project.Id, data, api.CurrentData); err != nil {
		return err
	}

	_, err = d.client.RunDataQuality(ctx, project.Id, nil)
	return err
}

func (d *demoRunner) demoTextEvals(ctx context.Context) error {
	data := dataset.LLMSamples()

	project, err := d.client.CreateProject(ctx, "LLM Evaluation Demo", "Quality of LLM answers")
	if err != nil {
		return err
	}
	d.projects["llm_evaluation"] = project.Id

	if err := d.client.UploadData(ctx, project.Id, data, api.CurrentData); err != nil {
		return err
	}

	_, err = d.client.RunTextEvals(ctx, project.Id, nil)
	return err
}

func (d *demoRunner) demoComprehensive(ctx context.Context) error {
	baseline := dataset.Predictions(5000, "good", 7)
	production := dataset.Predictions(1000, "degraded", 8)

	project, err := d.client.CreateProject(ctx, "Comprehensive Monitoring Demo", "Full monitoring of a production ML system")
	if err != nil {
		return err
	}
	d.projects["comprehensive"] = project.Id

	if err := d.client.UploadData(ctx, project.Id, baseline, api.ReferenceData); err != nil {
		return err
	}
	if err := d.client.UploadData(ctx, project.Id, production, api.CurrentData); err != nil {
		return err
	}

	if _, err := d.client.RunDataDrift(ctx, project.Id, nil); err != nil {
		return err
	}
	if _, err := d.client.RunModelPerformance(ctx, project.Id, "classification", nil); err != nil {
		return err
	}
	if _, err := d.client.RunDataQuality(ctx, project.Id, nil); err != nil {
		return err
	}

	metrics, err := d.client.ProjectMetrics(ctx, project.Id, "all")
	if err != nil {
		return err
	}
	for preset, values := range metrics.Metrics {
		slog.Info("consolidated metrics", "preset", preset, "metrics", values)
	}

	return nil
}
