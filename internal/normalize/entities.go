// Package normalize turns loosely structured appointment entities into
// calendar-exact values and decides whether a request can be committed or
// needs clarification.
//
// Everything in this package is pure: no I/O, no shared state, no logging.
// Callers inject the reference clock and the target location.
package normalize

import "strings"

// ErrContract is the panic message used when a caller violates the input
// contract, e.g. passes entities without a confidence score.
const ErrContract = "normalize: input contract violated"

// RawEntities is what the entity extractor returns for one request.
type RawEntities struct {
	DatePhrase *string  `json:"date_phrase"`
	TimePhrase *string  `json:"time_phrase"`
	Department *string  `json:"department"`
	Confidence *float64 `json:"confidence"`
	IsClear    bool     `json:"is_clear"`
}

// Unclear returns the entities used when extraction failed outright.
func Unclear() RawEntities {
	zero := 0.0
	return RawEntities{Confidence: &zero}
}

func (e RawEntities) confidence() float64 {
	if e.Confidence == nil {
		panic(ErrContract + ": confidence is missing")
	}
	return *e.Confidence
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
