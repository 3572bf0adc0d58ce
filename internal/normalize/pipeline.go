package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"
	// Zone data is embedded so results do not depend on the host's zoneinfo.
	_ "time/tzdata"
)

// AmbiguousMessage is the clarification sent when the gate passed but a
// phrase did not parse.
const AmbiguousMessage = "Ambiguous date/time or department"

var ErrInvalidTimezone = errors.New("invalid timezone")

// NormalizedAppointment is the calendar-exact form of an extraction.
// DateTime is set only when both Date and Time are.
type NormalizedAppointment struct {
	Date       *string `json:"date"`
	Time       *string `json:"time"`
	DateTime   *string `json:"datetime"`
	Department *string `json:"department"`
	Timezone   string  `json:"timezone"`
}

type DecisionKind string

const (
	Commit  DecisionKind = "commit"
	Clarify DecisionKind = "clarify"
)

// Decision routes a request. Message is set only for Clarify.
type Decision struct {
	Kind       DecisionKind
	Normalized NormalizedAppointment
	Message    string
}

func (d Decision) IsCommit() bool { return d.Kind == Commit }

// Normalize parses the date and time phrases in loc relative to ref. It
// never fails: a phrase that does not parse leaves its field nil.
func Normalize(e RawEntities, loc *time.Location, ref time.Time) NormalizedAppointment {
	if loc == nil {
		panic(ErrContract + ": nil location")
	}
	out := NormalizedAppointment{
		Department: e.Department,
		Timezone:   loc.String(),
	}

	date, dateOK := ParseDatePhrase(deref(e.DatePhrase), loc, ref)
	if dateOK {
		s := date.String()
		out.Date = &s
	}
	clock, timeOK := ParseTimePhrase(deref(e.TimePhrase))
	if timeOK {
		s := clock.String()
		out.Time = &s
	}
	if dateOK && timeOK {
		if instant, ok := Compose(date, clock, loc); ok {
			s := FormatInstant(instant)
			out.DateTime = &s
		}
	}
	return out
}

// Decide applies the clarification gate and then checks that both date and
// time were normalized.
func Decide(e RawEntities, n NormalizedAppointment) Decision {
	if NeedsClarification(e) {
		return Decision{Kind: Clarify, Normalized: n, Message: GenerateClarificationMessage(e)}
	}
	if n.Date == nil || n.Time == nil {
		return Decision{Kind: Clarify, Normalized: n, Message: AmbiguousMessage}
	}
	return Decision{Kind: Commit, Normalized: n}
}

// NormalizationConfidence is a two-bucket placeholder: 0.95 when both date
// and time normalized, 0.5 otherwise. It is not a calibrated score.
func NormalizationConfidence(n NormalizedAppointment) float64 {
	if n.Date != nil && n.Time != nil {
		return 0.95
	}
	return 0.5
}

// Clock returns the reference "now" for a normalization call.
type Clock func() time.Time

// Pipeline binds a default location and a clock so callers only pass the
// entities and an optional per-call timezone.
type Pipeline struct {
	defaultLoc *time.Location
	now        Clock
}

// Result is the output of one Pipeline run.
type Result struct {
	Normalized NormalizedAppointment
	Decision   Decision
	Confidence float64
}

// NewPipeline returns a pipeline for the given default IANA timezone.
func NewPipeline(defaultTimezone string, now Clock) (*Pipeline, error) {
	loc, err := LoadLocation(defaultTimezone)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Pipeline{defaultLoc: loc, now: now}, nil
}

// DefaultTimezone returns the IANA id used when a call does not override it.
func (p *Pipeline) DefaultTimezone() string {
	return p.defaultLoc.String()
}

// Run normalizes e in tz (or the default location when tz is empty) and
// decides whether to commit.
func (p *Pipeline) Run(e RawEntities, tz string) (Result, error) {
	loc := p.defaultLoc
	if strings.TrimSpace(tz) != "" {
		var err error
		if loc, err = LoadLocation(tz); err != nil {
			return Result{}, err
		}
	}
	n := Normalize(e, loc, p.now())
	return Result{
		Normalized: n,
		Decision:   Decide(e, n),
		Confidence: NormalizationConfidence(n),
	}, nil
}

// LoadLocation resolves an IANA timezone id. "Local" is refused so that
// results never depend on the host's zone.
func LoadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" || tz == "UTC" {
		return time.UTC, nil
	}
	if tz == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc, nil
}
