package models

import (
	"strconv"
	"time"
)

// Recommendation is one row of the per-field (or top-K) recommendation table
type Recommendation struct {
	Field string  `json:"Field" yaml:"Field"`
	Crop  string  `json:"Crop" yaml:"Crop"`
	Yield float64 `json:"Yield" yaml:"Yield"`
	Score float64 `json:"Sustainability_Score" yaml:"Sustainability_Score"`
	Rank  int     `json:"Rank,omitempty" yaml:"Rank,omitempty"`
	Line  int     `json:"line" yaml:"line"`
}

// BestOverall is the single best-scoring row of the whole dataset
type BestOverall struct {
	Field string  `json:"Field" yaml:"Field"`
	Crop  string  `json:"Crop" yaml:"Crop"`
	Score float64 `json:"Sustainability_Score" yaml:"Sustainability_Score"`
	Line  int     `json:"line" yaml:"line"`
}

// SkippedRecord describes a row dropped under the skip policy
type SkippedRecord struct {
	Line   int    `json:"line" yaml:"line"`
	Column string `json:"column,omitempty" yaml:"column,omitempty"`
	Value  string `json:"value" yaml:"value"`
	Reason string `json:"reason" yaml:"reason"`
}

// Report is the output of one scoring run over one dataset
type Report struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	Source      string    `json:"source" yaml:"source"`
	Policy      string    `json:"policy" yaml:"policy"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	// Headers are the input columns, in input order
	Headers []string `json:"columns" yaml:"columns"`

	// Scored holds every accepted row in input order
	Scored []ScoredRecord `json:"records" yaml:"records"`

	// PerField has one row per distinct Field, sorted by Field
	PerField []Recommendation `json:"recommendations" yaml:"recommendations"`

	// TopK has up to K ranked rows per Field, sorted by Field then Rank
	TopK []Recommendation `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	K    int              `json:"k,omitempty" yaml:"k,omitempty"`

	Best    BestOverall     `json:"best_overall" yaml:"best_overall"`
	Skipped []SkippedRecord `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Table is plain tabular data handed to presentation collaborators
type Table struct {
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// ScoredTable returns the input rows with Sustainability_Score appended,
// in input order. Cells beyond the header width are dropped. An input column
// already named Sustainability_Score is overwritten in place.
func (r *Report) ScoredTable(precision int) Table {
	scoreIdx := -1
	for i, h := range r.Headers {
		if h == ColumnScore {
			scoreIdx = i
			break
		}
	}

	columns := make([]string, 0, len(r.Headers)+1)
	columns = append(columns, r.Headers...)
	if scoreIdx < 0 {
		columns = append(columns, ColumnScore)
	}

	rows := make([][]string, 0, len(r.Scored))
	for _, s := range r.Scored {
		score := FormatFloat(s.Score, precision)
		row := make([]string, 0, len(columns))
		for i := range r.Headers {
			switch {
			case i == scoreIdx:
				row = append(row, score)
			case s.Raw != nil:
				row = append(row, s.Raw.GetField(i))
			default:
				row = append(row, "")
			}
		}
		if scoreIdx < 0 {
			row = append(row, score)
		}
		rows = append(rows, row)
	}

	return Table{Columns: columns, Rows: rows}
}

// RecommendationTable returns the per-field table: Field, Crop, Yield, Sustainability_Score
func (r *Report) RecommendationTable(precision int) Table {
	return recommendationTable(r.PerField, false, precision)
}

// TopKTable returns the ranked per-field table including the Rank column
func (r *Report) TopKTable(precision int) Table {
	return recommendationTable(r.TopK, true, precision)
}

// BestTable returns the single-row best-overall table: Field, Crop, Sustainability_Score
func (r *Report) BestTable(precision int) Table {
	return Table{
		Columns: []string{ColumnField, ColumnCrop, ColumnScore},
		Rows: [][]string{{
			r.Best.Field,
			r.Best.Crop,
			FormatFloat(r.Best.Score, precision),
		}},
	}
}

func recommendationTable(recs []Recommendation, ranked bool, precision int) Table {
	columns := []string{ColumnField}
	if ranked {
		columns = append(columns, ColumnRank)
	}
	columns = append(columns, ColumnCrop, ColumnYield, ColumnScore)

	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := []string{rec.Field}
		if ranked {
			row = append(row, strconv.Itoa(rec.Rank))
		}
		row = append(row, rec.Crop, FormatFloat(rec.Yield, -1), FormatFloat(rec.Score, precision))
		rows = append(rows, row)
	}

	return Table{Columns: columns, Rows: rows}
}
