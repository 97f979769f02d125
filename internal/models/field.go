package models

import (
	"strconv"
)

// Column names of the required input schema.
const (
	ColumnField         = "Field"
	ColumnCrop          = "Crop"
	ColumnYield         = "Yield"
	ColumnWaterUse      = "Water_Use"
	ColumnFertilizerUse = "Fertilizer_Use"

	// ColumnScore is the derived column appended to every scored row.
	ColumnScore = "Sustainability_Score"

	// ColumnRank is only present in top-K tables.
	ColumnRank = "Rank"
)

// RequiredColumns is the input schema, in declaration order.
var RequiredColumns = []string{
	ColumnField,
	ColumnCrop,
	ColumnYield,
	ColumnWaterUse,
	ColumnFertilizerUse,
}

// NumericColumns are the required columns that must parse as non-negative numbers.
var NumericColumns = []string{
	ColumnYield,
	ColumnWaterUse,
	ColumnFertilizerUse,
}

// FieldRecord is one typed row of the crop dataset
type FieldRecord struct {
	Line          int     `json:"line" yaml:"line"`
	Field         string  `json:"Field" yaml:"Field"`
	Crop          string  `json:"Crop" yaml:"Crop"`
	Yield         float64 `json:"Yield" yaml:"Yield"`
	WaterUse      float64 `json:"Water_Use" yaml:"Water_Use"`
	FertilizerUse float64 `json:"Fertilizer_Use" yaml:"Fertilizer_Use"`
}

// ScoredRecord is a FieldRecord with its derived sustainability score.
// Raw keeps the original row so extra columns survive into the augmented table.
type ScoredRecord struct {
	FieldRecord `yaml:",inline"`
	Score float64 `json:"Sustainability_Score" yaml:"Sustainability_Score"`
	Raw   *Record `json:"-" yaml:"-"`
}

// FormatFloat renders a float with the given number of decimals, or with
// the shortest exact representation when precision is negative.
func FormatFloat(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}
