package server

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/candidate-search/constants"
	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/entity"
	"github.com/joseph-ayodele/candidate-search/internal/table"
)

const (
	paramMinYears = "min_years"
	paramMaxYears = "max_years"
	paramFields   = "fields"

	fieldsDisplay = "display"
	fieldsAll     = "all"
)

// ParseQuery builds a table.Query from request parameters. Category columns accept
// repeated and comma-separated values; text columns take one substring each.
func ParseQuery(params map[string][]string) (table.Query, error) {
	q := table.Query{
		Categories: map[string][]string{},
		Text:       map[string]string{},
	}
	v := common.NewValidator()

	for _, col := range constants.CategoryColumns {
		for _, raw := range params[col] {
			for _, tok := range strings.Split(raw, ",") {
				if tok = strings.TrimSpace(tok); tok != "" {
					q.Categories[col] = append(q.Categories[col], tok)
				}
			}
		}
	}
	for _, col := range constants.TextColumns {
		if needle := strings.TrimSpace(first(params[col])); needle != "" {
			q.Text[col] = needle
		}
	}

	q.MinYears = parseYears(v, paramMinYears, first(params[paramMinYears]))
	q.MaxYears = parseYears(v, paramMaxYears, first(params[paramMaxYears]))
	if q.MinYears != nil && q.MaxYears != nil {
		v.Check(*q.MinYears <= *q.MaxYears, paramMinYears, *q.MinYears, "must not exceed max_years")
	}
	if fields := first(params[paramFields]); fields != "" {
		v.Field(paramFields, fields, common.OneOf(fieldsDisplay, fieldsAll))
	}
	if err := v.Error(); err != nil {
		return table.Query{}, err
	}
	return q, nil
}

func parseYears(v *common.Validator, name, raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		v.Check(false, name, raw, "must be a number")
		return nil
	}
	v.Field(name, f, common.NonNegative)
	return &f
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// project renders rows as column -> cell maps restricted to cols.
func project(rows []entity.CandidateRow, cols []string) []map[string]string {
	out := make([]map[string]string, len(rows))
	for i, r := range rows {
		m := make(map[string]string, len(cols))
		for _, c := range cols {
			m[c], _ = r.Get(c)
		}
		out[i] = m
	}
	return out
}

func columnsFor(fields string) []string {
	if fields == fieldsAll {
		return constants.Columns
	}
	return constants.DisplayColumns
}
