package normalize

import "strings"

// MinConfidence is the lowest extractor confidence that can be committed.
const MinConfidence = 0.6

// GenericClarification is returned when nothing specific is missing.
const GenericClarification = "Please provide the appointment date, time, and department."

const (
	datePrompt       = `Date (e.g., "tomorrow", "Jan 25")`
	timePrompt       = `Time (e.g., "3pm", "14:30")`
	departmentPrompt = `Department (e.g., "Dentist", "Cardiology")`
)

// NeedsClarification reports whether the raw extraction is too weak or too
// incomplete to commit. It looks only at the raw phrases, not at whether
// they parse.
func NeedsClarification(e RawEntities) bool {
	if e.confidence() < MinConfidence {
		return true
	}
	if !present(e.DatePhrase) || !present(e.TimePhrase) || !present(e.Department) {
		return true
	}
	return !e.IsClear
}

// GenerateClarificationMessage lists the missing fields in the order date,
// time, department.
func GenerateClarificationMessage(e RawEntities) string {
	var missing []string
	if !present(e.DatePhrase) {
		missing = append(missing, datePrompt)
	}
	if !present(e.TimePhrase) {
		missing = append(missing, timePrompt)
	}
	if !present(e.Department) {
		missing = append(missing, departmentPrompt)
	}
	if len(missing) == 0 {
		return GenericClarification
	}
	return "Please provide: " + strings.Join(missing, ", ")
}
