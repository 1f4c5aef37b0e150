package table

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/joseph-ayodele/candidate-search/constants"
	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/entity"
	"github.com/joseph-ayodele/candidate-search/internal/export"
)

// Count is one labelled bucket of a distribution.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ValueCounts tallies the tokens of a delimited column.
func ValueCounts(rows []entity.CandidateRow, column string) map[string]int {
	out := make(map[string]int)
	for _, r := range rows {
		cell, ok := r.Get(column)
		if !ok {
			continue
		}
		for _, tok := range export.SplitCell(cell) {
			out[tok]++
		}
	}
	return out
}

// SortCounts orders a tally by count descending, then label ascending.
func SortCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Label: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// ExactCounts tallies each distinct value of a numeric column, ordered by value.
func ExactCounts(rows []entity.CandidateRow, column string) ([]Count, error) {
	type bucket struct {
		v float64
		n int
	}
	seen := map[float64]*bucket{}
	for _, r := range rows {
		v, err := numeric(r, column)
		if err != nil {
			return nil, err
		}
		if b, ok := seen[v]; ok {
			b.n++
			continue
		}
		seen[v] = &bucket{v: v, n: 1}
	}
	buckets := make([]*bucket, 0, len(seen))
	for _, b := range seen {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].v < buckets[j].v })

	out := make([]Count, len(buckets))
	for i, b := range buckets {
		out[i] = Count{Label: entity.FormatYears(b.v), Count: b.n}
	}
	return out, nil
}

// BinnedCounts assigns each value of a numeric column to [bins[i], bins[i+1]). The last
// label collects values >= the last boundary; values below bins[0] are not counted.
// Labels must pair one-to-one with bins, and bins must be strictly increasing.
func BinnedCounts(rows []entity.CandidateRow, column string, bins []float64, labels []string) ([]Count, error) {
	if len(bins) == 0 || len(bins) != len(labels) {
		return nil, common.NewAppError("INVALID_BINS",
			fmt.Sprintf("need one label per bin, got %d bins and %d labels", len(bins), len(labels)),
			common.ErrInvalidInput)
	}
	for i := 1; i < len(bins); i++ {
		if !(bins[i] > bins[i-1]) {
			return nil, common.NewAppError("INVALID_BINS", "bins must be strictly increasing", common.ErrInvalidInput)
		}
	}

	out := make([]Count, len(labels))
	for i, l := range labels {
		out[i] = Count{Label: l}
	}
	for _, r := range rows {
		v, err := numeric(r, column)
		if err != nil {
			return nil, err
		}
		if idx := binIndex(bins, v); idx >= 0 {
			out[idx].Count++
		}
	}
	return out, nil
}

func binIndex(bins []float64, v float64) int {
	if math.IsNaN(v) || v < bins[0] {
		return -1
	}
	// first boundary strictly greater than v, minus one
	return sort.Search(len(bins), func(i int) bool { return bins[i] > v }) - 1
}

// ExperienceBounds returns the observed min and max experience. ok is false for an empty table.
func ExperienceBounds(rows []entity.CandidateRow) (lo, hi float64, ok bool) {
	for i, r := range rows {
		if i == 0 {
			lo, hi = r.ExperienceYears, r.ExperienceYears
			continue
		}
		lo = math.Min(lo, r.ExperienceYears)
		hi = math.Max(hi, r.ExperienceYears)
	}
	return lo, hi, len(rows) > 0
}

// FacetOptions returns the sorted distinct tokens of a delimited column.
func FacetOptions(rows []entity.CandidateRow, column string) []string {
	counts := ValueCounts(rows, column)
	out := make([]string, 0, len(counts))
	for k := range counts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func numeric(r entity.CandidateRow, column string) (float64, error) {
	if column == constants.ColExperienceYears {
		return r.ExperienceYears, nil
	}
	cell, ok := r.Get(column)
	if !ok {
		return 0, common.NewAppError("UNKNOWN_COLUMN", "unknown column "+column, common.ErrInvalidInput)
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, common.NewAppError("NOT_NUMERIC", "column "+column+" is not numeric", common.ErrInvalidInput)
	}
	return v, nil
}
