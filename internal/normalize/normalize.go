// Package normalize coerces loosely-typed extractor output into entity.Candidate.
//
// Coercion table (raw key -> field):
//
//	name, email, current_role, current_company  string; non-strings stringified; missing -> ""
//	experience_years                            float >= 0; numbers, numeric strings, bools; else 0
//	education                                   ordered []string; order and case kept, no de-dup
//	skills, sectors, markets, investment_approach
//	                                            set of title-cased strings, sorted; falsy dropped
//
// Normalize never fails: malformed input degrades to the defaults above.
package normalize

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joseph-ayodele/candidate-search/internal/entity"
)

// Raw keys as produced by the extraction prompt.
const (
	KeyName               = "name"
	KeyEmail              = "email"
	KeyEducation          = "education"
	KeyExperienceYears    = "experience_years"
	KeyCurrentRole        = "current_role"
	KeyCurrentCompany     = "current_company"
	KeyInvestmentApproach = "investment_approach"
	KeyMarkets            = "markets"
	KeySectors            = "sectors"
	KeySkills             = "skills"
)

// SetFields are the keys collapsed to title-cased sets.
var SetFields = []string{KeySkills, KeySectors, KeyMarkets, KeyInvestmentApproach}

// Normalize returns a schema-complete candidate for raw. A nil raw is an empty record.
// SourceFile is left empty; the collector sets it.
func Normalize(raw entity.RawRecord) entity.Candidate {
	if raw == nil {
		raw = entity.RawRecord{}
	}
	caser := cases.Title(language.Und)

	return entity.Candidate{
		Name:               toText(raw, KeyName),
		Email:              toText(raw, KeyEmail),
		Education:          toSequence(raw, KeyEducation),
		ExperienceYears:    toYears(raw),
		CurrentRole:        toText(raw, KeyCurrentRole),
		CurrentCompany:     toText(raw, KeyCurrentCompany),
		InvestmentApproach: toTitleSet(raw, KeyInvestmentApproach, caser),
		Markets:            toTitleSet(raw, KeyMarkets, caser),
		Sectors:            toTitleSet(raw, KeySectors, caser),
		Skills:             toTitleSet(raw, KeySkills, caser),
	}
}

// TitleSet title-cases, de-duplicates and sorts values. Empty values are dropped.
func TitleSet(values []string) []string {
	caser := cases.Title(language.Und)
	items := make([]any, len(values))
	for i, v := range values {
		items[i] = v
	}
	return collapse(items, caser)
}

func toText(raw entity.RawRecord, key string) string {
	v, ok := raw.Lookup(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(stringify(v))
}

func toYears(raw entity.RawRecord) float64 {
	v, ok := raw.Lookup(KeyExperienceYears)
	if !ok {
		return 0
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		p, err := t.Float64()
		if err != nil {
			return 0
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = p
	case bool:
		if t {
			f = 1
		}
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// toSequence reads key as an ordered list of strings, dropping null and blank entries.
func toSequence(raw entity.RawRecord, key string) []string {
	out := []string{}
	for _, item := range items(raw, key, false) {
		if item == nil {
			continue
		}
		s := strings.TrimSpace(stringify(item))
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func toTitleSet(raw entity.RawRecord, key string, caser cases.Caser) []string {
	return collapse(items(raw, key, true), caser)
}

// items returns the elements of raw[key]. A scalar becomes a one-element list; when
// splitStrings is set a string scalar is treated as a comma-separated list.
func items(raw entity.RawRecord, key string, splitStrings bool) []any {
	v, ok := raw.Lookup(key)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case string:
		if !splitStrings {
			return []any{t}
		}
		parts := strings.Split(t, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out
	default:
		return []any{t}
	}
}

func collapse(values []any, caser cases.Caser) []string {
	seen := make(map[string]struct{}, len(values))
	out := []string{}
	for _, v := range values {
		if falsy(v) {
			continue
		}
		s := strings.TrimSpace(stringify(v))
		if s == "" {
			continue
		}
		s = titleCase(caser, s)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// titleCase capitalizes every letter that follows a non-letter, so "o'neil" becomes
// "O'Neil" and "3d modeling" becomes "3D Modeling".
func titleCase(caser cases.Caser, s string) string {
	runes := []rune(caser.String(s))
	prevLetter := false
	for i, r := range runes {
		isLetter := unicode.IsLetter(r)
		if isLetter && !prevLetter {
			runes[i] = unicode.ToTitle(r)
		}
		prevLetter = isLetter
	}
	return string(runes)
}

func falsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// educationKeys is the render order for object-shaped education entries.
var educationKeys = []string{"degree", "field", "major", "institution", "school", "university", "year", "graduation_year"}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "True"
		}
		return "False"
	case json.Number:
		return t.String()
	case map[string]any:
		return joinObject(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// joinObject renders {"degree": "MBA", "institution": "Wharton"} as "MBA - Wharton".
func joinObject(m map[string]any) string {
	var parts []string
	used := make(map[string]struct{}, len(m))
	add := func(k string) {
		if v, ok := m[k]; ok && !falsy(v) {
			if s := strings.TrimSpace(stringify(v)); s != "" {
				parts = append(parts, s)
			}
		}
		used[k] = struct{}{}
	}
	for _, k := range educationKeys {
		add(k)
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if _, ok := used[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		add(k)
	}
	return strings.Join(parts, " - ")
}
