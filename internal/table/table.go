package table

import (
	"sync"
	"time"

	"github.com/joseph-ayodele/candidate-search/constants"
	"github.com/joseph-ayodele/candidate-search/internal/entity"
)

// DefaultBins and DefaultBinLabels bucket experience years for the distribution chart.
var (
	DefaultBins      = []float64{0, 2, 5, 10, 15, 20}
	DefaultBinLabels = []string{"0-2", "2-5", "5-10", "10-15", "15-20", "20+"}
)

// Query is the dashboard's filter state. Zero values mean "no filter".
type Query struct {
	Categories map[string][]string
	MinYears   *float64
	MaxYears   *float64
	Text       map[string]string
}

// Predicates converts the query into filter predicates. An open-ended range is closed
// with the table's observed bounds.
func (q Query) Predicates(lo, hi float64) []Predicate {
	var preds []Predicate
	for _, col := range constants.CategoryColumns {
		if vals := q.Categories[col]; len(vals) > 0 {
			preds = append(preds, CategoryPredicate{Column: col, Values: vals})
		}
	}
	if q.MinYears != nil || q.MaxYears != nil {
		p := RangePredicate{Min: lo, Max: hi}
		if q.MinYears != nil {
			p.Min = *q.MinYears
		}
		if q.MaxYears != nil {
			p.Max = *q.MaxYears
		}
		preds = append(preds, p)
	}
	for _, col := range constants.TextColumns {
		if needle := q.Text[col]; needle != "" {
			preds = append(preds, SubstringPredicate{Column: col, Needle: needle})
		}
	}
	return preds
}

// Summary describes the loaded table for building the dashboard controls.
type Summary struct {
	Total         int                 `json:"total"`
	Facets        map[string][]string `json:"facets"`
	ExperienceMin float64             `json:"experience_min"`
	ExperienceMax float64             `json:"experience_max"`
	Columns       []string            `json:"columns"`
	LoadedAt      time.Time           `json:"loaded_at"`
}

// Distribution holds the aggregate counts of a (filtered) view.
type Distribution struct {
	Categories map[string][]Count `json:"categories"`
	Experience []Count            `json:"experience"`
	Binned     []Count            `json:"binned"`
}

// Table is a reloadable in-memory snapshot of the flat candidate table.
// Reads never observe a partially replaced snapshot.
type Table struct {
	mu       sync.RWMutex
	rows     []entity.CandidateRow
	loadedAt time.Time
}

func New(rows []entity.CandidateRow) *Table {
	t := &Table{}
	t.Replace(rows)
	return t
}

// Replace swaps in a new snapshot.
func (t *Table) Replace(rows []entity.CandidateRow) {
	cp := make([]entity.CandidateRow, len(rows))
	copy(cp, rows)
	t.mu.Lock()
	t.rows = cp
	t.loadedAt = time.Now().UTC()
	t.mu.Unlock()
}

// Rows returns the current snapshot. Callers must not modify it.
func (t *Table) Rows() []entity.CandidateRow {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Query returns the rows matching q.
func (t *Table) Query(q Query) []entity.CandidateRow {
	rows := t.Rows()
	lo, hi, _ := ExperienceBounds(rows)
	return Filter(rows, q.Predicates(lo, hi)...)
}

// Summary reports totals, facet options and the experience bounds of the snapshot.
func (t *Table) Summary() Summary {
	t.mu.RLock()
	rows, loadedAt := t.rows, t.loadedAt
	t.mu.RUnlock()

	lo, hi, _ := ExperienceBounds(rows)
	facets := make(map[string][]string, len(constants.CategoryColumns))
	for _, col := range constants.CategoryColumns {
		facets[col] = FacetOptions(rows, col)
	}
	return Summary{
		Total:         len(rows),
		Facets:        facets,
		ExperienceMin: lo,
		ExperienceMax: hi,
		Columns:       constants.DisplayColumns,
		LoadedAt:      loadedAt,
	}
}

// Distribute computes the chart aggregates for rows.
func Distribute(rows []entity.CandidateRow) Distribution {
	d := Distribution{Categories: make(map[string][]Count, len(constants.CategoryColumns))}
	for _, col := range constants.CategoryColumns {
		d.Categories[col] = SortCounts(ValueCounts(rows, col))
	}
	// experience_years is always numeric, these cannot fail
	d.Experience, _ = ExactCounts(rows, constants.ColExperienceYears)
	d.Binned, _ = BinnedCounts(rows, constants.ColExperienceYears, DefaultBins, DefaultBinLabels)
	return d
}
