package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/storeops/shiftledger/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// BOUNDARY VALUES
// =============================================================================

func TestRoundToPayrollHours_Boundaries(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{0, "0"},
		{19, "0"},
		{20, "0.5"},
		{40, "0.5"},
		{41, "1"},
		{60, "1"},
		{90, "1.5"},
		{100, "1.5"},
		{101, "2"},
		{360, "6"},
		{405, "7"},
	}
	for _, c := range cases {
		got := engine.RoundToPayrollHours(c.minutes)
		assert.True(t, got.Equal(decimal.RequireFromString(c.want)),
			"%d min: want %s, got %s", c.minutes, c.want, got)
	}
}

// =============================================================================
// POLICY PROPERTIES
// =============================================================================

func TestRoundToPayrollHours_MonotonicAndBounded(t *testing.T) {
	// For all m: result is one of {floor(m/60), +0.5, +1} and never
	// decreases as minutes grow.
	prev := decimal.Zero
	for m := 0; m <= 24*60; m++ {
		got := engine.RoundToPayrollHours(m)
		whole := decimal.NewFromInt(int64(m / 60))

		diff := got.Sub(whole)
		ok := diff.IsZero() ||
			diff.Equal(decimal.RequireFromString("0.5")) ||
			diff.Equal(decimal.NewFromInt(1))
		require.True(t, ok, "%d min rounded to %s", m, got)
		require.True(t, got.GreaterThanOrEqual(prev), "not monotonic at %d min", m)
		prev = got
	}
}

func TestRoundToPayrollHours_NegativeClampIsObserved(t *testing.T) {
	// GIVEN: garbled instants producing a negative duration
	// THEN: the result degrades to zero AND the clamp is logged,
	//       never propagated as an error
	logger, hook := logtest.NewNullLogger()
	engine.SetLogger(logger)
	t.Cleanup(func() { engine.SetLogger(nil) })

	got := engine.RoundToPayrollHours(-45)

	assert.True(t, got.IsZero())
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, -45, hook.LastEntry().Data["minutes"])
}
