package constants

// Column names of the flat candidate table. The order is the header order of the CSV/XLSX
// outputs and is fixed regardless of what a given extraction produced.
const (
	ColName               = "name"
	ColEmail              = "email"
	ColEducation          = "education"
	ColExperienceYears    = "experience_years"
	ColCurrentRole        = "current_role"
	ColCurrentCompany     = "current_company"
	ColInvestmentApproach = "investment_approach"
	ColMarkets            = "markets"
	ColSectors            = "sectors"
	ColSkills             = "skills"
	ColSourceFile         = "source_file"
)

// Columns is the fixed column set of the flattened table.
var Columns = []string{
	ColName,
	ColEmail,
	ColEducation,
	ColExperienceYears,
	ColCurrentRole,
	ColCurrentCompany,
	ColInvestmentApproach,
	ColMarkets,
	ColSectors,
	ColSkills,
	ColSourceFile,
}

// CategoryColumns are the delimited multi-value columns exposed as multi-select filters.
var CategoryColumns = []string{
	ColInvestmentApproach,
	ColMarkets,
	ColSectors,
	ColSkills,
}

// TextColumns are free-text columns that accept substring filters.
var TextColumns = []string{
	ColName,
	ColEmail,
	ColCurrentRole,
	ColCurrentCompany,
	ColEducation,
	ColSourceFile,
}

// DisplayColumns is the subset rendered in the dashboard's candidate table.
var DisplayColumns = []string{
	ColName,
	ColCurrentRole,
	ColCurrentCompany,
	ColExperienceYears,
	ColSectors,
	ColMarkets,
}

// ListSeparator joins set-valued fields into a single cell.
const ListSeparator = ", "

// IsCategoryColumn reports whether col is one of the delimited multi-value columns.
func IsCategoryColumn(col string) bool {
	for _, c := range CategoryColumns {
		if c == col {
			return true
		}
	}
	return false
}

// IsTextColumn reports whether col accepts substring filters.
func IsTextColumn(col string) bool {
	for _, c := range TextColumns {
		if c == col {
			return true
		}
	}
	return false
}
