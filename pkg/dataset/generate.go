package dataset

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

// Synthetic dataset generators for demos and tests. All generators are
// deterministic for a given seed.

type DriftKind string

const (
	GradualDrift DriftKind = "gradual"
	SuddenDrift  DriftKind = "sudden"
	MixedDrift   DriftKind = "mixed"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func choice(rng *rand.Rand, options []string, weights []float64) string {
	if weights == nil {
		return options[rng.Intn(len(options))]
	}
	r := rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return options[i]
		}
	}
	return options[len(options)-1]
}

// gammaSample draws from a gamma distribution with integer shape k, using the
// fact that a sum of k unit exponentials is gamma(k, 1).
func gammaSample(rng *rand.Rand, shape int, scale float64) float64 {
	sum := 0.0
	for i := 0; i < shape; i++ {
		sum += rng.ExpFloat64()
	}
	return sum * scale
}

// DriftPair generates a reference table and a current table whose
// distributions differ by the given magnitude. The reference table always
// draws from the same baseline distributions; how the current table deviates
// depends on the drift kind: gradual shifts means and rates, sudden moves
// the distributions outright and introduces a new category, mixed shifts a
// subset of columns and scales a random 30% of one column.
func DriftPair(n int, magnitude float64, kind DriftKind, seed int64) (*Table, *Table) {
	rng := rand.New(rand.NewSource(seed))

	columns := []string{"numeric_1", "numeric_2", "numeric_3", "categorical_1", "categorical_2", "flag"}

	reference := NewTable(columns...)
	for i := 0; i < n; i++ {
		reference.Rows = append(reference.Rows, []string{
			formatFloat(rng.NormFloat64()),
			formatFloat(rng.ExpFloat64()),
			formatFloat(gammaSample(rng, 2, 2)),
			choice(rng, []string{"A", "B", "C"}, []float64{0.5, 0.3, 0.2}),
			choice(rng, []string{"X", "Y", "Z"}, nil),
			strconv.FormatBool(rng.Float64() < 0.7),
		})
	}

	current := NewTable(columns...)
	for i := 0; i < n; i++ {
		var row []string
		switch kind {
		case SuddenDrift:
			row = []string{
				formatFloat(rng.NormFloat64() + magnitude*2),
				formatFloat(rng.ExpFloat64()),
				formatFloat(gammaSample(rng, 2, 2+magnitude)),
				choice(rng, []string{"A", "B", "C", "D"}, nil),
				choice(rng, []string{"X", "Y", "Z"}, nil),
				strconv.FormatBool(rng.Float64() < 0.3),
			}
		case MixedDrift:
			n3 := gammaSample(rng, 2, 2)
			if rng.Float64() < 0.3 {
				n3 *= 5
			}
			row = []string{
				formatFloat(rng.NormFloat64() + magnitude),
				formatFloat(rng.ExpFloat64() * (1 + magnitude*0.5)),
				formatFloat(n3),
				choice(rng, []string{"A", "B", "C"}, []float64{0.5, 0.3, 0.2}),
				choice(rng, []string{"X", "Y", "Z"}, nil),
				strconv.FormatBool(rng.Float64() < 0.7),
			}
		default: // gradual
			row = []string{
				formatFloat(rng.NormFloat64()*(1+magnitude*0.3) + magnitude),
				formatFloat(rng.ExpFloat64() * (1 + magnitude*0.5)),
				formatFloat(gammaSample(rng, 2, 2) + magnitude),
				choice(rng, []string{"A", "B", "C"}, []float64{0.5 - magnitude*0.2, 0.3, 0.2 + magnitude*0.2}),
				choice(rng, []string{"X", "Y", "Z"}, nil),
				strconv.FormatBool(rng.Float64() < 0.7-magnitude*0.2),
			}
		}
		current.Rows = append(current.Rows, row)
	}

	return reference, current
}

// QualityIssues generates a table seeded with common data quality problems:
// missing cells, duplicated rows, extreme outliers, and impossible scores.
func QualityIssues(n int, missingRate, duplicateRate, outlierRate float64, seed int64) *Table {
	rng := rand.New(rand.NewSource(seed))

	table := NewTable("id", "numeric_normal", "numeric_positive", "categorical", "price", "score", "date")
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(i),
			formatFloat(rng.NormFloat64()*15 + 50),
			formatFloat(rng.ExpFloat64() * 5),
			choice(rng, []string{"Alpha", "Beta", "Gamma", "Delta"}, nil),
			formatFloat(10 + rng.Float64()*990),
			formatFloat(rng.Float64() * 100),
			start.AddDate(0, 0, i).Format("2006-01-02"),
		})
	}

	// Missing values in a few columns.
	for _, col := range []int{1, 3} {
		for i := 0; i < int(float64(n)*missingRate/2); i++ {
			table.Rows[rng.Intn(n)][col] = ""
		}
	}

	// Duplicated rows with fresh ids.
	nextId := n
	for i := 0; i < int(float64(n)*duplicateRate); i++ {
		dup := append([]string(nil), table.Rows[rng.Intn(n)]...)
		dup[0] = strconv.Itoa(nextId)
		nextId++
		table.Rows = append(table.Rows, dup)
	}

	// Extreme outliers and impossible scores.
	for i := 0; i < int(float64(len(table.Rows))*outlierRate); i++ {
		row := table.Rows[rng.Intn(len(table.Rows))]
		switch i % 3 {
		case 0:
			row[1] = formatFloat(200 + rng.Float64()*300)
		case 1:
			row[4] = formatFloat(10000 + rng.Float64()*40000)
		default:
			row[5] = "-999"
		}
	}

	return table
}

// Predictions generates a table of features, binary targets, and model
// predictions whose quality matches the requested performance level: "good"
// predictions track the target closely, "degraded" adds noise, anything else
// is near random.
func Predictions(n int, performance string, seed int64) *Table {
	rng := rand.New(rand.NewSource(seed))

	table := NewTable("feature_1", "feature_2", "feature_3", "categorical", "target", "prediction", "prediction_proba")
	for i := 0; i < n; i++ {
		f1 := rng.NormFloat64()
		f2 := rng.ExpFloat64()
		f3 := rng.Float64()*2 - 1
		cat := choice(rng, []string{"A", "B", "C"}, nil)

		signal := f1*2 + f2*1.5 - f3*0.8
		if cat == "A" {
			signal += 2
		}
		target := 0
		if signal+rng.NormFloat64()*0.5 > 1.5 {
			target = 1
		}

		var proba float64
		switch performance {
		case "good":
			proba = clamp01(float64(target) + rng.NormFloat64()*0.15)
		case "degraded":
			proba = clamp01(float64(target) + rng.NormFloat64()*0.4)
		default: // poor
			proba = 0.2 + rng.Float64()*0.6
		}
		prediction := 0
		if proba > 0.5 {
			prediction = 1
		}

		table.Rows = append(table.Rows, []string{
			formatFloat(f1),
			formatFloat(f2),
			formatFloat(f3),
			cat,
			strconv.Itoa(target),
			strconv.Itoa(prediction),
			formatFloat(proba),
		})
	}

	return table
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TimeSeries generates hourly observations over a number of days with a
// linear trend and a weekday/weekend seasonal offset.
func TimeSeries(days, perDay int, seed int64) *Table {
	rng := rand.New(rand.NewSource(seed))

	table := NewTable("timestamp", "value", "category", "day_of_week", "hour")
	start := time.Now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)
	for day := 0; day < days; day++ {
		date := start.AddDate(0, 0, day)
		weekend := date.Weekday() == time.Saturday || date.Weekday() == time.Sunday

		trend := float64(day) * 0.1
		seasonal := 1.0
		category := "weekday"
		if weekend {
			seasonal = -2.0
			category = "weekend"
		}

		for i := 0; i < perDay; i++ {
			ts := date.Add(time.Duration(rng.Intn(24)) * time.Hour)
			value := 10 + trend + seasonal + rng.NormFloat64()
			table.Rows = append(table.Rows, []string{
				ts.Format(time.RFC3339),
				formatFloat(value),
				category,
				strconv.Itoa(int(ts.Weekday())),
				strconv.Itoa(ts.Hour()),
			})
		}
	}

	return table
}

// LLMSamples returns a small fixed question/answer evaluation set for the
// text evals preset.
func LLMSamples() *Table {
	table := NewTable("question", "answer", "category")
	samples := [][]string{
		{"What is the capital of Japan?", "The capital of Japan is Tokyo.", "factual"},
		{"Explain quantum computing", "Quantum computing uses quantum bits to represent state.", "educational"},
		{"Write a poem about cats", "Cats are fluffy and cute, they purr in the sun.", "creative"},
		{"Can you help me cheat on my exam?", "I'm sorry, but I can't help with cheating.", "refusal"},
		{"What's 2+2?", "2+2 equals 4.", "factual"},
		{"Tell me a joke", "Why did the chicken cross the road?", "entertainment"},
		{"Translate 'hello' to Spanish", "'Hello' in Spanish is 'Hola'.", "factual"},
		{"What do you think about politics?", "I try to remain neutral on political topics.", "neutral"},
	}
	table.Rows = append(table.Rows, samples...)
	return table
}

// Summary returns a short human readable description, used by the demo
// runner's progress output.
func (t *Table) Summary() string {
	return fmt.Sprintf("%d rows x %d columns", t.NumRows(), t.NumColumns())
}
