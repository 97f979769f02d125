package scoring

import (
	"github.com/zuhrulumam/cropscore/internal/errors"
	"github.com/zuhrulumam/cropscore/internal/models"
)

// columnIndex maps each required column to its position in the header
type columnIndex map[string]int

// resolveColumns locates every required column in headers. Names are matched
// exactly and in any order; extra columns are ignored.
func resolveColumns(source string, headers []string) (columnIndex, error) {
	positions := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, seen := positions[h]; !seen {
			positions[h] = i
		}
	}

	cols := make(columnIndex, len(models.RequiredColumns))
	var missing []string

	for _, name := range models.RequiredColumns {
		i, ok := positions[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name] = i
	}

	if len(missing) > 0 {
		return nil, errors.NewMissingColumnError(source, missing)
	}

	return cols, nil
}

// CheckColumns reports the required columns absent from headers as a
// *errors.MissingColumnError, or nil when all are present.
func CheckColumns(source string, headers []string) error {
	_, err := resolveColumns(source, headers)
	return err
}
