package entity

import (
	"strconv"

	"github.com/joseph-ayodele/candidate-search/constants"
)

// CandidateRow is a Candidate with list-valued fields joined into single cells.
type CandidateRow struct {
	Name               string  `json:"name"`
	Email              string  `json:"email"`
	Education          string  `json:"education"`
	ExperienceYears    float64 `json:"experience_years"`
	CurrentRole        string  `json:"current_role"`
	CurrentCompany     string  `json:"current_company"`
	InvestmentApproach string  `json:"investment_approach"`
	Markets            string  `json:"markets"`
	Sectors            string  `json:"sectors"`
	Skills             string  `json:"skills"`
	SourceFile         string  `json:"source_file"`
}

// Get returns the cell for a column name; experience_years is formatted as a decimal.
func (r CandidateRow) Get(col string) (string, bool) {
	switch col {
	case constants.ColName:
		return r.Name, true
	case constants.ColEmail:
		return r.Email, true
	case constants.ColEducation:
		return r.Education, true
	case constants.ColExperienceYears:
		return FormatYears(r.ExperienceYears), true
	case constants.ColCurrentRole:
		return r.CurrentRole, true
	case constants.ColCurrentCompany:
		return r.CurrentCompany, true
	case constants.ColInvestmentApproach:
		return r.InvestmentApproach, true
	case constants.ColMarkets:
		return r.Markets, true
	case constants.ColSectors:
		return r.Sectors, true
	case constants.ColSkills:
		return r.Skills, true
	case constants.ColSourceFile:
		return r.SourceFile, true
	default:
		return "", false
	}
}

// Values returns the row's cells in constants.Columns order.
func (r CandidateRow) Values() []string {
	out := make([]string, len(constants.Columns))
	for i, c := range constants.Columns {
		out[i], _ = r.Get(c)
	}
	return out
}

// Set assigns a cell by column name. Unknown columns are ignored; an unparseable
// experience_years cell becomes 0.
func (r *CandidateRow) Set(col, v string) {
	switch col {
	case constants.ColName:
		r.Name = v
	case constants.ColEmail:
		r.Email = v
	case constants.ColEducation:
		r.Education = v
	case constants.ColExperienceYears:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			f = 0
		}
		r.ExperienceYears = f
	case constants.ColCurrentRole:
		r.CurrentRole = v
	case constants.ColCurrentCompany:
		r.CurrentCompany = v
	case constants.ColInvestmentApproach:
		r.InvestmentApproach = v
	case constants.ColMarkets:
		r.Markets = v
	case constants.ColSectors:
		r.Sectors = v
	case constants.ColSkills:
		r.Skills = v
	case constants.ColSourceFile:
		r.SourceFile = v
	}
}

// RowFromValues builds a row from a header and a record of the same width.
func RowFromValues(header, values []string) CandidateRow {
	var r CandidateRow
	for i, col := range header {
		if i >= len(values) {
			break
		}
		r.Set(col, values[i])
	}
	return r
}

// FormatYears renders experience years without trailing zeros ("5", "3.5").
func FormatYears(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
