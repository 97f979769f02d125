package reader

import (
	"fmt"

	"github.com/zuhrulumam/cropscore/internal/errors"
	"github.com/zuhrulumam/cropscore/internal/models"
)

// validateHeaders rejects header rows whose required columns cannot be
// addressed unambiguously. Extra columns are carried through untouched,
// so blank or odd names outside the schema are allowed.
func validateHeaders(headers []string) error {
	if len(headers) == 0 {
		return errors.ErrInvalidCSV
	}

	required := make(map[string]bool, len(models.RequiredColumns))
	for _, name := range models.RequiredColumns {
		required[name] = true
	}

	seen := make(map[string]int)
	for i, header := range headers {
		if !required[header] {
			continue
		}
		if first, dup := seen[header]; dup {
			return fmt.Errorf("%w: column %q appears at positions %d and %d",
				errors.ErrInvalidHeader, header, first+1, i+1)
		}
		seen[header] = i
	}

	return nil
}

// ValidateRecord checks a row against its header width. A mismatch is
// reported as malformed data so the caller's row policy applies.
func ValidateRecord(record *models.Record) error {
	if record == nil {
		return errors.NewMalformedDataError("", 0, "", "", "nil record")
	}

	if len(record.Headers) > 0 && len(record.Data) != len(record.Headers) {
		return errors.NewMalformedDataError(
			record.FileName,
			record.LineNumber,
			"",
			"",
			fmt.Sprintf("expected %d fields, got %d", len(record.Headers), len(record.Data)),
		)
	}

	return nil
}
