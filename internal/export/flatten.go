package export

import (
	"strings"

	"github.com/joseph-ayodele/candidate-search/constants"
	"github.com/joseph-ayodele/candidate-search/internal/entity"
)

// Flatten maps each candidate to a row, joining list fields with constants.ListSeparator.
func Flatten(records []entity.Candidate) []entity.CandidateRow {
	rows := make([]entity.CandidateRow, len(records))
	for i, c := range records {
		rows[i] = FlattenOne(c)
	}
	return rows
}

// FlattenOne flattens a single candidate. An empty list becomes "".
func FlattenOne(c entity.Candidate) entity.CandidateRow {
	return entity.CandidateRow{
		Name:               c.Name,
		Email:              c.Email,
		Education:          joinCell(c.Education),
		ExperienceYears:    c.ExperienceYears,
		CurrentRole:        c.CurrentRole,
		CurrentCompany:     c.CurrentCompany,
		InvestmentApproach: joinCell(c.InvestmentApproach),
		Markets:            joinCell(c.Markets),
		Sectors:            joinCell(c.Sectors),
		Skills:             joinCell(c.Skills),
		SourceFile:         c.SourceFile,
	}
}

// Structured returns the nested form written to the JSON output. Nil lists become empty so
// they serialize as [] rather than null.
func Structured(records []entity.Candidate) []entity.Candidate {
	out := make([]entity.Candidate, len(records))
	for i, c := range records {
		c.Education = orEmpty(c.Education)
		c.InvestmentApproach = orEmpty(c.InvestmentApproach)
		c.Markets = orEmpty(c.Markets)
		c.Sectors = orEmpty(c.Sectors)
		c.Skills = orEmpty(c.Skills)
		out[i] = c
	}
	return out
}

// SplitCell is the inverse of the list join: split on the separator, trim, drop empties.
// Elements that themselves contain a bare comma ("C,C++") stay whole.
func SplitCell(cell string) []string {
	out := []string{}
	for _, tok := range strings.Split(cell, constants.ListSeparator) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func joinCell(items []string) string {
	return strings.Join(items, constants.ListSeparator)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
