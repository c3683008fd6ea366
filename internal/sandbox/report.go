package sandbox

import (
	"bytes"
	"math"
	"net/http"
	"strconv"

	"mlmonitor/pkg/api"
	"mlmonitor/pkg/dataset"
)

// Report content builders. These produce a stable, minimal content shape so
// clients and demos have something real to parse; they deliberately do not
// reproduce the hosted service's full metric suite.

const defaultDriftThreshold = 0.1

type datasetRef struct {
	Filename string `json:"filename"`
	Rows     int    `json:"rows"`
	Columns  int    `json:"columns"`
}

func buildReportContent(preset string, config map[string]any, uploads map[string]*Upload) (map[string]any, error) {
	tables := make(map[string]*dataset.Table, len(uploads))
	refs := make(map[string]datasetRef, len(uploads))
	for kind, upload := range uploads {
		table, err := parseUpload(upload)
		if err != nil {
			return nil, err
		}
		tables[kind] = table
		refs[kind] = datasetRef{Filename: upload.Filename, Rows: table.NumRows(), Columns: table.NumColumns()}
	}

	var metrics map[string]any
	var err error
	switch preset {
	case api.DataDriftPreset:
		metrics, err = driftMetrics(tables, config)
	case api.ClassificationPreset, api.RegressionPreset, api.RankingPreset:
		metrics, err = performanceMetrics(tables, config)
	case api.DataQualityPreset:
		metrics, err = qualityMetrics(tables)
	case api.TextEvalsPreset:
		metrics, err = textEvalMetrics(tables)
	default:
		return nil, CodedErrorf(http.StatusBadRequest, "unrecognized preset %q", preset)
	}
	if err != nil {
		return nil, err
	}

	content := map[string]any{
		"preset":   preset,
		"datasets": refs,
		"metrics":  metrics,
	}
	if detected, ok := metrics["dataset_drift"]; ok {
		content["drift_detected"] = detected
	}
	return content, nil
}

func parseUpload(upload *Upload) (*dataset.Table, error) {
	table, err := dataset.ReadCSV(bytes.NewReader(upload.Data))
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error parsing stored %s dataset: %v", upload.Kind, err)
	}
	return table, nil
}

func requireKind(tables map[string]*dataset.Table, kind string) (*dataset.Table, error) {
	table, ok := tables[kind]
	if !ok {
		return nil, CodedErrorf(http.StatusBadRequest, "no %s dataset uploaded for this project", kind)
	}
	return table, nil
}

func driftMetrics(tables map[string]*dataset.Table, config map[string]any) (map[string]any, error) {
	reference, err := requireKind(tables, api.ReferenceData)
	if err != nil {
		return nil, err
	}
	current, err := requireKind(tables, api.CurrentData)
	if err != nil {
		return nil, err
	}

	threshold := defaultDriftThreshold
	if v, ok := config["threshold"].(float64); ok && v > 0 {
		threshold = v
	}

	byColumn := make(map[string]any)
	drifted := 0
	compared := 0
	for _, col := range reference.Columns {
		curValues, err := current.Column(col)
		if err != nil {
			continue // column missing from current dataset
		}
		refValues, _ := reference.Column(col)

		score := columnDriftScore(refValues, curValues)
		compared++
		detected := score > threshold
		if detected {
			drifted++
		}
		byColumn[col] = map[string]any{"score": round4(score), "drift_detected": detected}
	}

	if compared == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "reference and current datasets share no columns")
	}

	share := float64(drifted) / float64(compared)
	return map[string]any{
		"number_of_columns":         compared,
		"number_of_drifted_columns": drifted,
		"share_of_drifted_columns":  round4(share),
		"drift_by_column":           byColumn,
		"dataset_drift":             share >= 0.5,
		"threshold":                 threshold,
	}, nil
}

// columnDriftScore compares two columns: numeric columns by normalized mean
// shift, everything else by total variation distance of value frequencies.
func columnDriftScore(reference, current []string) float64 {
	refNums, refOk := parseFloats(reference)
	curNums, curOk := parseFloats(current)
	if refOk && curOk {
		refMean := mean(refNums)
		curMean := mean(curNums)
		return math.Abs(curMean-refMean) / (1 + math.Abs(refMean))
	}

	refFreq := frequencies(reference)
	curFreq := frequencies(current)
	distance := 0.0
	for value := range union(refFreq, curFreq) {
		distance += math.Abs(refFreq[value] - curFreq[value])
	}
	return distance / 2
}

func performanceMetrics(tables map[string]*dataset.Table, config map[string]any) (map[string]any, error) {
	current, err := requireKind(tables, api.CurrentData)
	if err != nil {
		return nil, err
	}

	targetCol := stringOption(config, "target", "target")
	predictionCol := stringOption(config, "prediction", "prediction")

	targets, err := current.Column(targetCol)
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "current dataset has no %q column", targetCol)
	}
	predictions, err := current.Column(predictionCol)
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "current dataset has no %q column", predictionCol)
	}

	correct := 0
	for i := range targets {
		if targets[i] == predictions[i] {
			correct++
		}
	}
	accuracy := 0.0
	if len(targets) > 0 {
		accuracy = float64(correct) / float64(len(targets))
	}

	return map[string]any{
		"samples":           len(targets),
		"correct":           correct,
		"accuracy":          round4(accuracy),
		"target_column":     targetCol,
		"prediction_column": predictionCol,
	}, nil
}

func qualityMetrics(tables map[string]*dataset.Table) (map[string]any, error) {
	table, ok := tables[api.CurrentData]
	if !ok {
		var err error
		table, err = requireKind(tables, api.ReferenceData)
		if err != nil {
			return nil, CodedErrorf(http.StatusBadRequest, "no dataset uploaded for this project")
		}
	}

	missing := 0
	seen := make(map[string]int)
	duplicates := 0
	for _, row := range table.Rows {
		key := ""
		for _, cell := range row {
			if cell == "" {
				missing++
			}
			key += cell + "\x1f"
		}
		seen[key]++
		if seen[key] > 1 {
			duplicates++
		}
	}

	cells := table.NumRows() * table.NumColumns()
	missingShare := 0.0
	if cells > 0 {
		missingShare = float64(missing) / float64(cells)
	}

	return map[string]any{
		"rows":               table.NumRows(),
		"columns":            table.NumColumns(),
		"missing_cells":      missing,
		"missing_share":      round4(missingShare),
		"duplicate_rows":     duplicates,
		"constant_columns":   constantColumns(table),
		"almost_empty_table": table.NumRows() == 0,
	}, nil
}

func textEvalMetrics(tables map[string]*dataset.Table) (map[string]any, error) {
	table, err := requireKind(tables, api.CurrentData)
	if err != nil {
		return nil, err
	}

	lengths := make(map[string]any)
	for _, col := range table.Columns {
		cells, _ := table.Column(col)
		total := 0
		for _, cell := range cells {
			total += len(cell)
		}
		avg := 0.0
		if len(cells) > 0 {
			avg = float64(total) / float64(len(cells))
		}
		lengths[col] = round4(avg)
	}

	return map[string]any{
		"samples":             table.NumRows(),
		"mean_text_length":    lengths,
		"evaluated_columns":   table.Columns,
		"descriptors_applied": []string{"TextLength"},
	}, nil
}

func constantColumns(table *dataset.Table) int {
	count := 0
	for _, col := range table.Columns {
		cells, _ := table.Column(col)
		constant := len(cells) > 0
		for _, cell := range cells {
			if cell != cells[0] {
				constant = false
				break
			}
		}
		if constant {
			count++
		}
	}
	return count
}

func parseFloats(cells []string) ([]float64, bool) {
	values := make([]float64, 0, len(cells))
	for _, cell := range cells {
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, false
		}
		values = append(values, v)
	}
	return values, len(values) > 0
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func frequencies(cells []string) map[string]float64 {
	freq := make(map[string]float64)
	for _, cell := range cells {
		freq[cell]++
	}
	for value := range freq {
		freq[value] /= float64(len(cells))
	}
	return freq
}

func union(a, b map[string]float64) map[string]struct{} {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	return keys
}

func stringOption(config map[string]any, key, fallback string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
