package entity

// Candidate is the canonical, schema-complete record for one resume.
// Every field is present and type-correct regardless of what the extractor returned.
type Candidate struct {
	Name               string   `json:"name"`
	Email              string   `json:"email"`
	Education          []string `json:"education"`
	ExperienceYears    float64  `json:"experience_years"`
	CurrentRole        string   `json:"current_role"`
	CurrentCompany     string   `json:"current_company"`
	InvestmentApproach []string `json:"investment_approach"`
	Markets            []string `json:"markets"`
	Sectors            []string `json:"sectors"`
	Skills             []string `json:"skills"`
	SourceFile         string   `json:"source_file"`
}
