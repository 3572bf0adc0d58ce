package main

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

var departments = []string{
	"Dentist",
	"Cardiology",
	"Dermatology",
	"General Practice",
	"Orthopedics",
	"Neurology",
	"Pediatrics",
	"Ophthalmology",
	"ENT",
}

var relativeDays = []string{"today", "tomorrow", "day after tomorrow"}

// Intent says what the generated text is expected to produce.
type Intent int

const (
	IntentComplete Intent = iota // date, time, and department present
	IntentPartial                // one of the three is missing
	IntentVague                  // nothing usable
)

// Request is one synthetic intake message.
type Request struct {
	Text   string
	Intent Intent
}

// PhraseGenerator produces free-text booking requests.
type PhraseGenerator struct {
	f *gofakeit.Faker
}

func NewPhraseGenerator(seed uint64) *PhraseGenerator {
	return &PhraseGenerator{f: gofakeit.New(seed)}
}

func (g *PhraseGenerator) datePhrase() string {
	switch g.f.Number(0, 2) {
	case 0:
		return g.f.RandomString(relativeDays)
	case 1:
		return "next " + strings.ToLower(g.f.WeekDay())
	default:
		return fmt.Sprintf("%s %d", g.f.MonthString()[:3], g.f.Number(1, 28))
	}
}

func (g *PhraseGenerator) timePhrase() string {
	if g.f.Bool() {
		h := g.f.Number(1, 12)
		suffix := g.f.RandomString([]string{"am", "pm", "AM", "p.m."})
		if g.f.Bool() {
			return fmt.Sprintf("%d%s", h, suffix)
		}
		return fmt.Sprintf("%d:%02d %s", h, g.f.RandomInt([]int{0, 15, 30, 45}), suffix)
	}
	return fmt.Sprintf("%02d:%02d", g.f.Number(7, 19), g.f.RandomInt([]int{0, 30}))
}

// Next returns a complete request most of the time, with a share of partial
// and vague ones.
func (g *PhraseGenerator) Next() Request {
	dept := g.f.RandomString(departments)
	name := g.f.FirstName()

	switch roll := g.f.Number(1, 10); {
	case roll <= 7:
		templates := []string{
			"Book %[1]s %[2]s at %[3]s",
			"Hi, this is %[4]s. I need a %[1]s appointment %[2]s around %[3]s please",
			"%[2]s %[3]s %[1]s",
		}
		tpl := g.f.RandomString(templates)
		return Request{Text: fmt.Sprintf(tpl, dept, g.datePhrase(), g.timePhrase(), name), Intent: IntentComplete}
	case roll <= 9:
		if g.f.Bool() {
			return Request{Text: fmt.Sprintf("Can %s see %s %s?", name, dept, g.datePhrase()), Intent: IntentPartial}
		}
		return Request{Text: fmt.Sprintf("I'd like to come in %s at %s", g.datePhrase(), g.timePhrase()), Intent: IntentPartial}
	default:
		return Request{Text: g.f.RandomString([]string{
			"Can I come in sometime soon?",
			"need an appointment",
			"whenever works for the doctor",
		}), Intent: IntentVague}
	}
}
