// Package table filters and aggregates the flattened candidate table.
package table

import (
	"strings"

	"github.com/joseph-ayodele/candidate-search/internal/entity"
	"github.com/joseph-ayodele/candidate-search/internal/export"
)

// Predicate is one filter condition over a row. Inactive predicates are skipped.
type Predicate interface {
	Match(row entity.CandidateRow) bool
	Active() bool
}

// CategoryPredicate matches when any selected value equals (case-insensitively) any
// whole token of the row's delimited cell.
type CategoryPredicate struct {
	Column string
	Values []string
}

func (p CategoryPredicate) Active() bool {
	for _, v := range p.Values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

func (p CategoryPredicate) Match(row entity.CandidateRow) bool {
	cell, ok := row.Get(p.Column)
	if !ok {
		return false
	}
	tokens := export.SplitCell(cell)
	for _, v := range p.Values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		for _, tok := range tokens {
			if strings.EqualFold(tok, v) {
				return true
			}
		}
	}
	return false
}

// RangePredicate matches Min <= experience_years <= Max.
type RangePredicate struct {
	Min float64
	Max float64
}

func (p RangePredicate) Active() bool { return true }

func (p RangePredicate) Match(row entity.CandidateRow) bool {
	return p.Min <= row.ExperienceYears && row.ExperienceYears <= p.Max
}

// SubstringPredicate matches when Needle occurs in the column, ignoring case.
// An empty needle is inactive.
type SubstringPredicate struct {
	Column string
	Needle string
}

func (p SubstringPredicate) Active() bool { return p.Needle != "" }

func (p SubstringPredicate) Match(row entity.CandidateRow) bool {
	cell, ok := row.Get(p.Column)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(cell), strings.ToLower(p.Needle))
}

// Filter returns the rows matching every active predicate, in table order.
// With no active predicates the input is returned unchanged.
func Filter(rows []entity.CandidateRow, preds ...Predicate) []entity.CandidateRow {
	active := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil && p.Active() {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return rows
	}

	out := make([]entity.CandidateRow, 0, len(rows))
	for _, r := range rows {
		if matchAll(r, active) {
			out = append(out, r)
		}
	}
	return out
}

func matchAll(r entity.CandidateRow, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Match(r) {
			return false
		}
	}
	return true
}
