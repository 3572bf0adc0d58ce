package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_EndToEndCommit(t *testing.T) {
	loc := mustLoad(t, "Asia/Kolkata")
	ref := time.Date(2026, 1, 20, 0, 0, 0, 0, loc)
	e := RawEntities{
		DatePhrase: ptr("tomorrow"),
		TimePhrase: ptr("3pm"),
		Department: ptr("Dentist"),
		Confidence: ptr(0.92),
		IsClear:    true,
	}

	n := Normalize(e, loc, ref)
	require.NotNil(t, n.Date)
	require.NotNil(t, n.Time)
	require.NotNil(t, n.DateTime)
	assert.Equal(t, "2026-01-21", *n.Date)
	assert.Equal(t, "15:00", *n.Time)
	assert.Equal(t, "2026-01-21T09:30:00.000Z", *n.DateTime)
	assert.Equal(t, "Dentist", *n.Department)
	assert.Equal(t, "Asia/Kolkata", n.Timezone)

	d := Decide(e, n)
	assert.True(t, d.IsCommit())
	assert.Empty(t, d.Message)
	assert.Equal(t, n, d.Normalized)
}

func TestNormalize_AmbiguousDate(t *testing.T) {
	loc := mustLoad(t, "Asia/Kolkata")
	ref := time.Date(2026, 1, 20, 0, 0, 0, 0, loc)
	e := RawEntities{
		DatePhrase: ptr("sometime"),
		TimePhrase: ptr("3pm"),
		Department: ptr("Dentist"),
		Confidence: ptr(0.9),
		IsClear:    true,
	}

	require.False(t, NeedsClarification(e))

	n := Normalize(e, loc, ref)
	assert.Nil(t, n.Date)
	assert.Equal(t, "15:00", *n.Time)
	assert.Nil(t, n.DateTime)

	d := Decide(e, n)
	assert.Equal(t, Clarify, d.Kind)
	assert.Equal(t, AmbiguousMessage, d.Message)
}

func TestNormalize_DegradesFieldsIndependently(t *testing.T) {
	loc := mustLoad(t, "America/New_York")
	ref := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)

	t.Run("no phrases", func(t *testing.T) {
		n := Normalize(RawEntities{Confidence: ptr(0.0)}, loc, ref)
		assert.Nil(t, n.Date)
		assert.Nil(t, n.Time)
		assert.Nil(t, n.DateTime)
		assert.Nil(t, n.Department)
		assert.Equal(t, "America/New_York", n.Timezone)
	})

	t.Run("dst gap keeps date and time but no instant", func(t *testing.T) {
		e := RawEntities{
			DatePhrase: ptr("2026-03-08"),
			TimePhrase: ptr("2:30 am"),
			Department: ptr("Radiology"),
			Confidence: ptr(0.95),
			IsClear:    true,
		}
		n := Normalize(e, loc, ref)
		assert.Equal(t, "2026-03-08", *n.Date)
		assert.Equal(t, "02:30", *n.Time)
		assert.Nil(t, n.DateTime)
	})

	t.Run("department passes through verbatim", func(t *testing.T) {
		e := RawEntities{Department: ptr("  cardiology "), Confidence: ptr(0.9)}
		n := Normalize(e, loc, ref)
		assert.Equal(t, "  cardiology ", *n.Department)
	})
}

func TestNormalize_Idempotent(t *testing.T) {
	loc := mustLoad(t, "Europe/Paris")
	ref := time.Date(2026, 5, 14, 17, 0, 0, 0, loc)
	e := clearEntities()
	e.DatePhrase = ptr("next monday")

	first := Normalize(e, loc, ref)
	second := Normalize(e, loc, ref)
	assert.Equal(t, first, second)
}

func TestDecide_GateRunsBeforeParsing(t *testing.T) {
	loc := mustLoad(t, "UTC")
	ref := time.Date(2026, 1, 20, 0, 0, 0, 0, loc)
	e := clearEntities()
	e.Confidence = ptr(0.3)

	d := Decide(e, Normalize(e, loc, ref))
	assert.Equal(t, Clarify, d.Kind)
	assert.Equal(t, GenericClarification, d.Message)
}

func TestNormalizationConfidence(t *testing.T) {
	assert.Equal(t, 0.95, NormalizationConfidence(NormalizedAppointment{Date: ptr("2026-01-01"), Time: ptr("10:00")}))
	assert.Equal(t, 0.5, NormalizationConfidence(NormalizedAppointment{Date: ptr("2026-01-01")}))
	assert.Equal(t, 0.5, NormalizationConfidence(NormalizedAppointment{}))
}

func TestPipeline_Run(t *testing.T) {
	fixed := time.Date(2026, 1, 19, 18, 30, 0, 0, time.UTC) // 2026-01-20 00:00 in Kolkata
	p, err := NewPipeline("Asia/Kolkata", func() time.Time { return fixed })
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", p.DefaultTimezone())

	e := clearEntities()
	e.DatePhrase = ptr("tomorrow")

	t.Run("default timezone", func(t *testing.T) {
		res, err := p.Run(e, "")
		require.NoError(t, err)
		assert.True(t, res.Decision.IsCommit())
		assert.Equal(t, "2026-01-21T09:30:00.000Z", *res.Normalized.DateTime)
		assert.Equal(t, 0.95, res.Confidence)
	})

	t.Run("per call override", func(t *testing.T) {
		res, err := p.Run(e, "America/Los_Angeles")
		require.NoError(t, err)
		// 2026-01-19 10:30 in Los Angeles
		assert.Equal(t, "2026-01-20", *res.Normalized.Date)
		assert.Equal(t, "2026-01-20T23:00:00.000Z", *res.Normalized.DateTime)
		assert.Equal(t, "America/Los_Angeles", res.Normalized.Timezone)
	})

	t.Run("invalid timezone", func(t *testing.T) {
		_, err := p.Run(e, "Mars/Olympus")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTimezone))
	})

	t.Run("clarify", func(t *testing.T) {
		unclear := e
		unclear.Department = nil
		res, err := p.Run(unclear, "")
		require.NoError(t, err)
		assert.Equal(t, Clarify, res.Decision.Kind)
		assert.Contains(t, res.Decision.Message, "Department")
	})
}

func TestNewPipeline_RejectsBadDefault(t *testing.T) {
	_, err := NewPipeline("Not/AZone", nil)
	assert.ErrorIs(t, err, ErrInvalidTimezone)

	_, err = NewPipeline("Local", nil)
	assert.ErrorIs(t, err, ErrInvalidTimezone)
}

func TestUnclear(t *testing.T) {
	e := Unclear()
	assert.True(t, NeedsClarification(e))
	assert.Equal(t, 0.0, *e.Confidence)
}
