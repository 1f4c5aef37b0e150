package llm

import (
	"strings"
)

// ResumeSchemaTemplate is the empty record shown to the model, in field order.
const ResumeSchemaTemplate = `{
  "name": "",
  "email": "",
  "education": [],
  "experience_years": 0.0,
  "current_role": "",
  "current_company": "",
  "investment_approach": [],
  "markets": [],
  "sectors": [],
  "skills": []
}`

// BuildSystemPrompt composes the parser instructions and extraction rules.
func BuildSystemPrompt() string {
	parts := []string{
		"You are an expert resume parser for hedge fund recruiting.",
		"Extract the resume information and return VALID JSON ONLY that strictly follows this schema:",
		ResumeSchemaTemplate,
		"Rules:",
		"1. If years of experience is not explicitly written, infer it from the job dates in the resume. Estimate total experience in years (numeric).",
		"2. If education is not explicitly written, try to extract any degrees and institutions from text.",
		"3. Use arrays for skills, sectors, markets, and investment_approach.",
		"4. Always return JSON only, no extra text.",
		"5. Infer investment approach (Fundamental / Systematic / Quantitative).",
		"6. Infer markets (US, Europe, APAC).",
	}
	return strings.Join(parts, "\n")
}

// BuildUserPrompt carries the resume text, capped at maxChars runes (0 = no cap).
func BuildUserPrompt(req ExtractRequest, maxChars int) string {
	text := req.Text
	if maxChars > 0 {
		if r := []rune(text); len(r) > maxChars {
			text = string(r[:maxChars])
		}
	}
	var b strings.Builder
	if fn := strings.TrimSpace(req.Filename); fn != "" {
		b.WriteString("Filename: ")
		b.WriteString(fn)
		b.WriteString("\n\n")
	}
	b.WriteString("Resume Text:\n")
	b.WriteString(text)
	return b.String()
}

// BuildPrompt is the single-message form used by providers without a system role.
func BuildPrompt(req ExtractRequest, maxChars int) string {
	return BuildSystemPrompt() + "\n\n" + BuildUserPrompt(req, maxChars)
}
