package evidently

import (
	"context"

	"github.com/google/uuid"

	"mlmonitor/pkg/api"
)

// Preset helpers with the default configurations the service expects. Each
// returns the id of the generated report.

// RunDataDrift runs the drift preset. A nil config uses PSI with a 0.1
// threshold.
func (c *Client) RunDataDrift(ctx context.Context, projectId uuid.UUID, config map[string]any) (uuid.UUID, error) {
	if config == nil {
		config = map[string]any{"method": "psi", "threshold": 0.1}
	}
	return c.RunReport(ctx, projectId, api.DataDriftPreset, config)
}

// RunModelPerformance runs the performance preset matching the model type.
// Unknown model types fall back to classification.
func (c *Client) RunModelPerformance(ctx context.Context, projectId uuid.UUID, modelType string, config map[string]any) (uuid.UUID, error) {
	preset := api.ClassificationPreset
	switch modelType {
	case "regression":
		preset = api.RegressionPreset
	case "ranking":
		preset = api.RankingPreset
	}
	return c.RunReport(ctx, projectId, preset, config)
}

func (c *Client) RunDataQuality(ctx context.Context, projectId uuid.UUID, config map[string]any) (uuid.UUID, error) {
	return c.RunReport(ctx, projectId, api.DataQualityPreset, config)
}

// RunTextEvals runs the LLM evaluation preset. A nil config requests the
// default descriptor set.
func (c *Client) RunTextEvals(ctx context.Context, projectId uuid.UUID, config map[string]any) (uuid.UUID, error) {
	if config == nil {
		config = map[string]any{"descriptors": []string{"Sentiment", "TextLength", "Toxicity"}}
	}
	return c.RunReport(ctx, projectId, api.TextEvalsPreset, config)
}
