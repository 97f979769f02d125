// Package fixtures writes crop CSV files for integration tests and benchmarks.
package fixtures

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

// Header is the canonical column order
var Header = []string{"Field", "Crop", "Yield", "Water_Use", "Fertilizer_Use"}

// Planted best row. Its score (100000) is far above anything random rows reach.
const (
	ChampionField = "F000"
	ChampionCrop  = "Champion"
)

var crops = []string{"Wheat", "Corn", "Rice", "Barley", "Soy", "Oat", "Millet", "Sorghum"}

// Generator generates test CSV files
type Generator struct {
	outputDir string
	rand      *rand.Rand
}

// NewGenerator creates a generator writing into outputDir.
// Output is reproducible for a given seed.
func NewGenerator(outputDir string, seed int64) *Generator {
	return &Generator{
		outputDir: outputDir,
		rand:      rand.New(rand.NewSource(seed)),
	}
}

func (g *Generator) write(filename string, header []string, rows [][]string) (string, error) {
	path := filepath.Join(g.outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if header != nil {
		if err := writer.Write(header); err != nil {
			return "", err
		}
	}
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}

	return path, nil
}

// validRow returns a well-formed row with integer measurements
func (g *Generator) validRow(fields int) []string {
	return []string{
		fmt.Sprintf("F%03d", g.rand.Intn(fields)),
		crops[g.rand.Intn(len(crops))],
		strconv.Itoa(1 + g.rand.Intn(100)),
		strconv.Itoa(g.rand.Intn(50)),
		strconv.Itoa(g.rand.Intn(20)),
	}
}

func championRow() []string {
	return []string{ChampionField, ChampionCrop, "100000", "0", "0"}
}

// GenerateValid writes rows well-formed records spread over fields fields.
// The middle row is the champion, so the best overall row is always known.
func (g *Generator) GenerateValid(filename string, rows, fields int) (string, error) {
	if fields < 1 {
		fields = 1
	}

	records := make([][]string, 0, rows)
	for i := 0; i < rows; i++ {
		if i == rows/2 {
			records = append(records, championRow())
			continue
		}
		records = append(records, g.validRow(fields))
	}

	return g.write(filename, Header, records)
}

// GenerateWithErrors writes rows records of which roughly errorRate are
// malformed. It returns the number of malformed rows written. The champion
// row is always well-formed.
func (g *Generator) GenerateWithErrors(filename string, rows int, errorRate float64) (string, int, error) {
	records := make([][]string, 0, rows)
	bad := 0

	for i := 0; i < rows; i++ {
		if i == rows/2 {
			records = append(records, championRow())
			continue
		}

		record := g.validRow(10)
		if g.rand.Float64() < errorRate {
			bad++
			switch g.rand.Intn(4) {
			case 0: // Non-numeric yield
				record[2] = "n/a"
			case 1: // Negative water use
				record[3] = "-" + record[3] + "1"
			case 2: // Missing cell
				record = record[:4]
			case 3: // Blank field
				record[0] = "  "
			}
		}
		records = append(records, record)
	}

	path, err := g.write(filename, Header, records)
	return path, bad, err
}

// GenerateShuffled writes valid rows with the columns reordered and an
// extra Notes column
func (g *Generator) GenerateShuffled(filename string, rows int) (string, error) {
	header := []string{"Notes", "Fertilizer_Use", "Crop", "Water_Use", "Field", "Yield"}

	records := make([][]string, 0, rows)
	for i := 0; i < rows; i++ {
		r := g.validRow(5)
		if i == rows/2 {
			r = championRow()
		}
		records = append(records, []string{"row " + strconv.Itoa(i+1), r[4], r[1], r[3], r[0], r[2]})
	}

	return g.write(filename, header, records)
}

// GenerateMultiple generates count valid files
func (g *Generator) GenerateMultiple(prefix string, count, rowsPerFile int) ([]string, error) {
	var files []string

	for i := 0; i < count; i++ {
		filename := fmt.Sprintf("%s_%d.csv", prefix, i+1)
		path, err := g.GenerateValid(filename, rowsPerFile, 10)
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}

	return files, nil
}

// GenerateMissingColumns writes a file without Water_Use and Fertilizer_Use
func (g *Generator) GenerateMissingColumns(filename string) (string, error) {
	return g.write(filename, []string{"Field", "Crop", "Yield"}, [][]string{
		{"A", "Wheat", "4"},
	})
}

// GenerateEmpty generates a zero-byte file
func (g *Generator) GenerateEmpty(filename string) (string, error) {
	return g.write(filename, nil, nil)
}

// GenerateHeaderOnly generates a CSV file with only a header
func (g *Generator) GenerateHeaderOnly(filename string) (string, error) {
	return g.write(filename, Header, nil)
}
