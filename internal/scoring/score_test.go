package scoring

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zuhrulumam/cropscore/internal/errors"
	"github.com/zuhrulumam/cropscore/internal/models"
	"github.com/zuhrulumam/cropscore/internal/reader"
)

const header = "Field,Crop,Yield,Water_Use,Fertilizer_Use\n"

func mustRead(t *testing.T, content string) *models.Dataset {
	t.Helper()
	ds, err := reader.ReadString(context.Background(), content, reader.Config{Source: "test.csv"})
	require.NoError(t, err)
	return ds
}

func TestSustainabilityScore(t *testing.T) {
	tests := []struct {
		name               string
		yield, water, fert float64
		want               float64
	}{
		{"wheat", 4, 2, 1, 1.0},
		{"corn", 6, 3, 2, 1.0},
		{"rice", 5, 1, 1, 5.0 / 3.0},
		{"zero usage", 5, 0, 0, 5.0},
		{"zero yield", 0, 4, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SustainabilityScore(tt.yield, tt.water, tt.fert), 1e-9)
		})
	}
}

func TestScore_Example(t *testing.T) {
	ds := mustRead(t, header+
		"A,Wheat,4,2,1\n"+
		"A,Corn,6,3,2\n"+
		"B,Rice,5,1,1\n")

	report, err := Score(context.Background(), ds, Options{})
	require.NoError(t, err)

	require.Len(t, report.Scored, 3)
	assert.InDelta(t, 1.0, report.Scored[0].Score, 1e-9)
	assert.InDelta(t, 1.0, report.Scored[1].Score, 1e-9)
	assert.InDelta(t, 1.6667, report.Scored[2].Score, 1e-4)

	require.Len(t, report.PerField, 2)
	assert.Equal(t, "A", report.PerField[0].Field)
	assert.Equal(t, "Wheat", report.PerField[0].Crop, "tie goes to the first row in input order")
	assert.Equal(t, 4.0, report.PerField[0].Yield)
	assert.Equal(t, "B", report.PerField[1].Field)
	assert.Equal(t, "Rice", report.PerField[1].Crop)

	assert.Equal(t, "B", report.Best.Field)
	assert.Equal(t, "Rice", report.Best.Crop)
	assert.Equal(t, 4, report.Best.Line)

	assert.Equal(t, "reject", report.Policy)
	assert.NotEmpty(t, report.RunID)
	assert.Empty(t, report.TopK)
}

func TestScore_ZeroUsage(t *testing.T) {
	report, err := Score(context.Background(), mustRead(t, header+"A,Wheat,5,0,0\n"), Options{})
	require.NoError(t, err)

	assert.Equal(t, 5.0, report.Scored[0].Score)
	assert.Equal(t, 5.0, report.Best.Score)
}

func TestScore_ColumnOrderAndExtras(t *testing.T) {
	ds := mustRead(t, "Notes,Fertilizer_Use,Crop,Water_Use,Field,Yield\n"+
		"dry,1,Wheat,2,A,4\n"+
		"wet,1,Rice,1,B,5\n")

	report, err := Score(context.Background(), ds, Options{})
	require.NoError(t, err)

	assert.Equal(t, "Rice", report.Best.Crop)

	table := report.ScoredTable(2)
	assert.Equal(t, []string{"Notes", "Fertilizer_Use", "Crop", "Water_Use", "Field", "Yield", "Sustainability_Score"}, table.Columns)
	assert.Equal(t, []string{"dry", "1", "Wheat", "2", "A", "4", "1.00"}, table.Rows[0])
}

func TestScore_ExistingScoreColumnReplaced(t *testing.T) {
	ds := mustRead(t, "Field,Crop,Sustainability_Score,Yield,Water_Use,Fertilizer_Use\n"+
		"A,Wheat,stale,4,2,1\n")

	report, err := Score(context.Background(), ds, Options{})
	require.NoError(t, err)

	table := report.ScoredTable(2)
	assert.Equal(t, []string{"Field", "Crop", "Sustainability_Score", "Yield", "Water_Use", "Fertilizer_Use"}, table.Columns)
	assert.Equal(t, [][]string{{"A", "Wheat", "1.00", "4", "2", "1"}}, table.Rows)
}

func TestScore_TrimsIdentifiers(t *testing.T) {
	ds := mustRead(t, header+
		" A,Wheat ,4,2,1\n"+
		"A , Corn,6,3,2\n")

	report, err := Score(context.Background(), ds, Options{})
	require.NoError(t, err)

	require.Len(t, report.PerField, 1)
	assert.Equal(t, "A", report.PerField[0].Field)
	assert.Equal(t, "Wheat", report.PerField[0].Crop)
	assert.Equal(t, "Corn", report.Scored[1].Crop)
}

func TestScore_MissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing []string
	}{
		{
			name:    "one missing",
			content: "Field,Crop,Yield,Water_Use\nA,Wheat,4,2\n",
			missing: []string{"Fertilizer_Use"},
		},
		{
			name:    "several missing in schema order",
			content: "Yield,Field\n4,A\n",
			missing: []string{"Crop", "Water_Use", "Fertilizer_Use"},
		},
		{
			name:    "names are case sensitive",
			content: "field,Crop,Yield,Water_Use,Fertilizer_Use\nA,Wheat,4,2,1\n",
			missing: []string{"Field"},
		},
		{
			name:    "checked before emptiness",
			content: "Field,Crop\n",
			missing: []string{"Yield", "Water_Use", "Fertilizer_Use"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Score(context.Background(), mustRead(t, tt.content), Options{})
			assert.Nil(t, report)

			var mce *errors.MissingColumnError
			require.True(t, errors.As(err, &mce), "got %v", err)
			assert.Equal(t, tt.missing, mce.Missing)
		})
	}
}

func TestScore_Empty(t *testing.T) {
	report, err := Score(context.Background(), mustRead(t, header), Options{})
	assert.Nil(t, report)

	var ede *errors.EmptyDatasetError
	require.True(t, errors.As(err, &ede), "got %v", err)
	assert.Equal(t, 0, ede.Skipped)

	_, err = Score(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, errors.ErrEmptyDataset)
}

func TestScore_RejectPolicy(t *testing.T) {
	tests := []struct {
		name   string
		row    string
		column string
		reason string
	}{
		{"non numeric", "A,Wheat,abc,2,1", "Yield", "not a number"},
		{"missing value", "A,Wheat,4,,1", "Water_Use", "missing value"},
		{"negative", "A,Wheat,4,2,-1", "Fertilizer_Use", "negative value"},
		{"infinite", "A,Wheat,Inf,2,1", "Yield", "not a finite number"},
		{"nan", "A,Wheat,NaN,2,1", "Yield", "not a finite number"},
		{"blank field", " ,Wheat,4,2,1", "Field", "missing value"},
		{"ragged row", "A,Wheat,4", "", "expected 5 fields, got 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := mustRead(t, header+"B,Rice,5,1,1\n"+tt.row+"\n")

			report, err := Score(context.Background(), ds, Options{Policy: PolicyReject})
			assert.Nil(t, report)

			var mde *errors.MalformedDataError
			require.True(t, errors.As(err, &mde), "got %v", err)
			assert.Equal(t, 3, mde.Line)
			assert.Equal(t, tt.column, mde.Column)
			assert.Equal(t, tt.reason, mde.Reason)
		})
	}
}

func TestScore_NumericWhitespace(t *testing.T) {
	report, err := Score(context.Background(), mustRead(t, header+"A,Wheat, 4 ,2,1\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 4.0, report.Scored[0].Yield)
}

func TestScore_SkipPolicy(t *testing.T) {
	ds := mustRead(t, header+
		"A,Wheat,4,2,1\n"+
		"A,Corn,x,3,2\n"+
		"B,Rice,5,1,1\n"+
		"B,Oats,,1,1\n")

	report, err := Score(context.Background(), ds, Options{Policy: PolicySkip})
	require.NoError(t, err)

	assert.Equal(t, "skip", report.Policy)
	require.Len(t, report.Scored, 2)
	assert.Equal(t, "Wheat", report.Scored[0].Crop)
	assert.Equal(t, "Rice", report.Scored[1].Crop)

	require.Len(t, report.Skipped, 2)
	assert.Equal(t, models.SkippedRecord{Line: 3, Column: "Yield", Value: "x", Reason: "not a number"}, report.Skipped[0])
	assert.Equal(t, 5, report.Skipped[1].Line)

	assert.Equal(t, "Rice", report.Best.Crop)
}

func TestScore_SkipPolicyAllMalformed(t *testing.T) {
	ds := mustRead(t, header+"A,Wheat,x,2,1\nB,Rice,y,1,1\n")

	_, err := Score(context.Background(), ds, Options{Policy: PolicySkip})

	var ede *errors.EmptyDatasetError
	require.True(t, errors.As(err, &ede), "got %v", err)
	assert.Equal(t, 2, ede.Skipped)
}

func TestScore_SkipThreshold(t *testing.T) {
	ds := mustRead(t, header+
		"A,Wheat,4,2,1\n"+
		"A,Corn,x,3,2\n"+
		"B,Rice,5,1,1\n"+
		"B,Oats,6,1,1\n")

	_, err := Score(context.Background(), ds, Options{Policy: PolicySkip, SkipThreshold: 0.2})
	assert.ErrorIs(t, err, errors.ErrSkipThresholdExceeded)
	assert.Equal(t, "malformed_data", errors.Kind(err))

	report, err := Score(context.Background(), ds, Options{Policy: PolicySkip, SkipThreshold: 0.25})
	require.NoError(t, err)
	assert.Len(t, report.Skipped, 1)
}

func TestScore_TopK(t *testing.T) {
	ds := mustRead(t, header+
		"A,Wheat,4,2,1\n"+ // 1.0
		"A,Corn,6,3,2\n"+ // 1.0
		"A,Barley,9,1,1\n"+ // 3.0
		"A,Millet,1,1,1\n"+ // 0.333
		"B,Rice,5,1,1\n")

	report, err := Score(context.Background(), ds, Options{TopK: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, report.K)
	require.Len(t, report.TopK, 4)

	got := make([]string, 0, len(report.TopK))
	for _, rec := range report.TopK {
		got = append(got, rec.Field+":"+rec.Crop)
	}
	assert.Equal(t, []string{"A:Barley", "A:Wheat", "A:Corn", "B:Rice"}, got)
	assert.Equal(t, []int{1, 2, 3, 1}, []int{report.TopK[0].Rank, report.TopK[1].Rank, report.TopK[2].Rank, report.TopK[3].Rank})

	one, err := Score(context.Background(), ds, Options{TopK: 1})
	require.NoError(t, err)
	require.Len(t, one.TopK, len(one.PerField))
	for i := range one.PerField {
		assert.Equal(t, one.PerField[i].Crop, one.TopK[i].Crop)
	}
}

func TestScore_FieldOrdering(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "numeric identifiers",
			content: header + "10,Wheat,1,0,0\n2,Corn,1,0,0\n1,Rice,1,0,0\n",
			want:    []string{"1", "2", "10"},
		},
		{
			name:    "mixed identifiers",
			content: header + "10,Wheat,1,0,0\nB,Corn,1,0,0\n2,Rice,1,0,0\n",
			want:    []string{"10", "2", "B"},
		},
		{
			name:    "text identifiers",
			content: header + "North,Wheat,1,0,0\nEast,Corn,1,0,0\n",
			want:    []string{"East", "North"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Score(context.Background(), mustRead(t, tt.content), Options{})
			require.NoError(t, err)

			got := make([]string, 0, len(report.PerField))
			for _, rec := range report.PerField {
				got = append(got, rec.Field)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScore_Properties(t *testing.T) {
	ds := mustRead(t, header+
		"3,Wheat,4,2,1\n"+
		"1,Corn,6,3,2\n"+
		"2,Rice,5,1,1\n"+
		"1,Soy,7,0,2\n"+
		"3,Oats,2,0,0\n"+
		"2,Rye,8,4,4\n")

	first, err := Score(context.Background(), ds, Options{TopK: 2})
	require.NoError(t, err)
	second, err := Score(context.Background(), ds, Options{TopK: 2})
	require.NoError(t, err)

	assert.Equal(t, first.Scored, second.Scored)
	assert.Equal(t, first.PerField, second.PerField)
	assert.Equal(t, first.TopK, second.TopK)
	assert.Equal(t, first.Best, second.Best)

	fields := make(map[string]bool)
	for _, rec := range first.Scored {
		fields[rec.Field] = true
		assert.GreaterOrEqual(t, rec.Score, 0.0)
		assert.False(t, math.IsInf(rec.Score, 0))
	}
	assert.Len(t, first.PerField, len(fields))

	fieldMax := make(map[string]float64)
	for _, rec := range first.Scored {
		if rec.Score > fieldMax[rec.Field] {
			fieldMax[rec.Field] = rec.Score
		}
	}

	for _, rec := range first.PerField {
		assert.GreaterOrEqual(t, first.Best.Score, rec.Score)
		assert.Equal(t, fieldMax[rec.Field], rec.Score, "field %s", rec.Field)
	}
}

func TestScore_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Score(ctx, mustRead(t, header+"A,Wheat,4,2,1\n"), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewScorer_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"unknown policy", Options{Policy: "drop"}},
		{"negative top-k", Options{TopK: -1}},
		{"threshold above one", Options{SkipThreshold: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScorer(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyReject, p)

	p, err = ParsePolicy(" SKIP ")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	_, err = ParsePolicy("ignore")
	assert.Error(t, err)
}

func TestCheckColumns(t *testing.T) {
	assert.NoError(t, CheckColumns("x.csv", models.RequiredColumns))
	assert.ErrorIs(t, CheckColumns("x.csv", []string{"Field"}), errors.ErrMissingColumns)
}
