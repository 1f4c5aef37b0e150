package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/candidate-search/internal/entity"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name string
		raw  entity.RawRecord
		want entity.Candidate
	}{
		{
			name: "nil record",
			raw:  nil,
			want: emptyCandidate(),
		},
		{
			name: "string experience and duplicate skills",
			raw: entity.RawRecord{
				"experience_years": "7",
				"skills":           []any{"python", "Python", nil, ""},
			},
			want: func() entity.Candidate {
				c := emptyCandidate()
				c.ExperienceYears = 7
				c.Skills = []string{"Python"}
				return c
			}(),
		},
		{
			name: "garbage experience",
			raw:  entity.RawRecord{"experience_years": "abc"},
			want: emptyCandidate(),
		},
		{
			name: "negative experience clamps",
			raw:  entity.RawRecord{"experience_years": -3.0},
			want: emptyCandidate(),
		},
		{
			name: "markets title-cased and sorted",
			raw: entity.RawRecord{
				"markets": []any{"us", "emerging markets", "US"},
			},
			want: func() entity.Candidate {
				c := emptyCandidate()
				c.Markets = []string{"Emerging Markets", "Us"}
				return c
			}(),
		},
		{
			name: "scalar fields pass through",
			raw: entity.RawRecord{
				"name":            "Jane Doe",
				"email":           "jane@example.com",
				"current_role":    "Portfolio Manager",
				"current_company": "Acme Capital",
				"education":       []any{"MBA, Wharton", "BA Economics"},
			},
			want: func() entity.Candidate {
				c := emptyCandidate()
				c.Name = "Jane Doe"
				c.Email = "jane@example.com"
				c.CurrentRole = "Portfolio Manager"
				c.CurrentCompany = "Acme Capital"
				c.Education = []string{"MBA, Wharton", "BA Economics"}
				return c
			}(),
		},
		{
			name: "scalar string list field",
			raw:  entity.RawRecord{"sectors": "fintech, healthcare"},
			want: func() entity.Candidate {
				c := emptyCandidate()
				c.Sectors = []string{"Fintech", "Healthcare"}
				return c
			}(),
		},
		{
			name: "falsy set elements dropped",
			raw:  entity.RawRecord{"investment_approach": []any{false, 0.0, "value", nil}},
			want: func() entity.Candidate {
				c := emptyCandidate()
				c.InvestmentApproach = []string{"Value"}
				return c
			}(),
		},
		{
			name: "wrong types degrade",
			raw: entity.RawRecord{
				"name":             nil,
				"experience_years": []any{1, 2},
				"skills":           map[string]any{},
			},
			want: emptyCandidate(),
		},
		{
			name: "object education entry",
			raw: entity.RawRecord{
				"education": []any{map[string]any{"institution": "LSE", "degree": "MSc Finance"}},
			},
			want: func() entity.Candidate {
				c := emptyCandidate()
				c.Education = []string{"MSc Finance - LSE"}
				return c
			}(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.raw))
		})
	}
}

func TestNormalizeExperience(t *testing.T) {
	testCases := []struct {
		name string
		in   any
		want float64
	}{
		{name: "int float", in: 5.0, want: 5},
		{name: "fractional", in: 3.5, want: 3.5},
		{name: "padded string", in: " 12 ", want: 12},
		{name: "json number", in: json.Number("4.25"), want: 4.25},
		{name: "true", in: true, want: 1},
		{name: "false", in: false, want: 0},
		{name: "words", in: "ten years", want: 0},
		{name: "nan string", in: "NaN", want: 0},
		{name: "object", in: map[string]any{"years": 3}, want: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(entity.RawRecord{"experience_years": tc.in})
			assert.Equal(t, tc.want, got.ExperienceYears)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raw := entity.RawRecord{
		"name":             "Sam",
		"experience_years": "9.5",
		"skills":           []any{"excel", "Financial Modeling", "excel"},
		"markets":          []any{"asia pacific"},
		"sectors":          "energy",
		"education":        []any{"CFA"},
	}
	first := Normalize(raw)

	// Feed the canonical form back through the normalizer as a raw record.
	b, err := json.Marshal(first)
	require.NoError(t, err)
	var again entity.RawRecord
	require.NoError(t, json.Unmarshal(b, &again))

	assert.Equal(t, first, Normalize(again))
}

func TestNormalizeNeverPanics(t *testing.T) {
	inputs := []entity.RawRecord{
		{},
		{"skills": nil},
		{"skills": 42.0},
		{"skills": []any{[]any{"nested"}, map[string]any{"a": 1.0}}},
		{"education": "single string"},
		{"experience_years": nil},
		{"unknown": "field"},
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Normalize(in) })
	}
}

func TestTitleSet(t *testing.T) {
	assert.Equal(t, []string{"Private Equity", "Value"}, TitleSet([]string{"value", " private equity", "VALUE", ""}))
	assert.Equal(t, []string{}, TitleSet(nil))
}

func TestTitleSetCapitalizesAfterNonLetters(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "o'neil", want: "O'Neil"},
		{in: "3d modeling", want: "3D Modeling"},
		{in: "m&a", want: "M&A"},
		{in: "c,c++", want: "C,C++"},
		{in: "PRIVATE-EQUITY", want: "Private-Equity"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, []string{tc.want}, TitleSet([]string{tc.in}))
		})
	}
}

func emptyCandidate() entity.Candidate {
	return entity.Candidate{
		Education:          []string{},
		InvestmentApproach: []string{},
		Markets:            []string{},
		Sectors:            []string{},
		Skills:             []string{},
	}
}
