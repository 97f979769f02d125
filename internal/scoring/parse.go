package scoring

import (
	"math"
	"strconv"
	"strings"

	"github.com/zuhrulumam/cropscore/internal/errors"
	"github.com/zuhrulumam/cropscore/internal/models"
	"github.com/zuhrulumam/cropscore/internal/reader"
)

// parseRecord turns one raw row into a typed FieldRecord
func parseRecord(raw *models.Record, cols columnIndex) (models.FieldRecord, error) {
	if err := reader.ValidateRecord(raw); err != nil {
		return models.FieldRecord{}, err
	}

	field := raw.GetField(cols[models.ColumnField])
	rec := models.FieldRecord{
		Line:  raw.LineNumber,
		Field: strings.TrimSpace(field),
		Crop:  strings.TrimSpace(raw.GetField(cols[models.ColumnCrop])),
	}

	if rec.Field == "" {
		return models.FieldRecord{}, errors.NewMalformedDataError(
			raw.FileName, raw.LineNumber, models.ColumnField, field, "missing value")
	}

	targets := map[string]*float64{
		models.ColumnYield:         &rec.Yield,
		models.ColumnWaterUse:      &rec.WaterUse,
		models.ColumnFertilizerUse: &rec.FertilizerUse,
	}

	for _, name := range models.NumericColumns {
		v, err := parseQuantity(raw, name, raw.GetField(cols[name]))
		if err != nil {
			return models.FieldRecord{}, err
		}
		*targets[name] = v
	}

	return rec, nil
}

// parseQuantity parses a non-negative finite number
func parseQuantity(raw *models.Record, column, value string) (float64, error) {
	malformed := func(reason string) error {
		return errors.NewMalformedDataError(raw.FileName, raw.LineNumber, column, value, reason)
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, malformed("missing value")
	}

	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, malformed("not a number")
	}

	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, malformed("not a finite number")
	case v < 0:
		return 0, malformed("negative value")
	}

	return v, nil
}
