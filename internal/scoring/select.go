package scoring

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/zuhrulumam/cropscore/internal/models"
)

// groupByField buckets rows by Field, preserving input order inside each
// bucket, and returns the distinct field values in output order.
func groupByField(scored []models.ScoredRecord) (map[string][]models.ScoredRecord, []string) {
	groups := make(map[string][]models.ScoredRecord)
	var fields []string

	for _, rec := range scored {
		if _, ok := groups[rec.Field]; !ok {
			fields = append(fields, rec.Field)
		}
		groups[rec.Field] = append(groups[rec.Field], rec)
	}

	sortFields(fields)
	return groups, fields
}

// bestPerField returns the max-score row of each field, first row winning ties
func bestPerField(scored []models.ScoredRecord) []models.Recommendation {
	groups, fields := groupByField(scored)

	recs := make([]models.Recommendation, 0, len(fields))
	for _, field := range fields {
		group := groups[field]
		best := group[0]
		for _, rec := range group[1:] {
			if rec.Score > best.Score {
				best = rec
			}
		}
		recs = append(recs, toRecommendation(best, 0))
	}

	return recs
}

// topKPerField returns up to k rows per field ranked by descending score.
// Equal scores keep input order.
func topKPerField(scored []models.ScoredRecord, k int) []models.Recommendation {
	groups, fields := groupByField(scored)

	var recs []models.Recommendation
	for _, field := range fields {
		group := append([]models.ScoredRecord(nil), groups[field]...)
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Score > group[j].Score
		})

		n := min(k, len(group))
		for i := 0; i < n; i++ {
			recs = append(recs, toRecommendation(group[i], i+1))
		}
	}

	return recs
}

// bestOverall returns the first row holding the global maximum score
func bestOverall(scored []models.ScoredRecord) models.BestOverall {
	best := scored[0]
	for _, rec := range scored[1:] {
		if rec.Score > best.Score {
			best = rec
		}
	}

	return models.BestOverall{
		Field: best.Field,
		Crop:  best.Crop,
		Score: best.Score,
		Line:  best.Line,
	}
}

func toRecommendation(rec models.ScoredRecord, rank int) models.Recommendation {
	return models.Recommendation{
		Field: rec.Field,
		Crop:  rec.Crop,
		Yield: rec.Yield,
		Score: rec.Score,
		Rank:  rank,
		Line:  rec.Line,
	}
}

// sortFields orders field identifiers numerically when every one of them is
// a number, lexicographically otherwise.
func sortFields(fields []string) {
	numbers := make(map[string]float64, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil || math.IsNaN(v) {
			sort.Strings(fields)
			return
		}
		numbers[f] = v
	}

	sort.SliceStable(fields, func(i, j int) bool {
		a, b := numbers[fields[i]], numbers[fields[j]]
		if a != b {
			return a < b
		}
		return fields[i] < fields[j]
	})
}
