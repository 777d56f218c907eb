/*
rounding.go - Payroll hour rounding policy

PURPOSE:
  Converts raw elapsed minutes into payable hours under the company's
  asymmetric rounding rule. Applied uniformly to worked-shift durations and
  scheduled slot durations, and nowhere else.

POLICY:
  whole = minutes / 60, remainder = minutes mod 60
    remainder < 20   -> whole        (drop the remainder)
    20..40           -> whole + 0.5
    remainder > 40   -> whole + 1

  The result is always one of {whole, whole+0.5, whole+1} and is monotonic
  non-decreasing in minutes.

DATA QUALITY:
  Negative minutes come from garbled instants (an end before a start).
  The clamp degrades them to zero hours rather than ever producing a
  negative duration, and logs through the package logger so the bad row is
  observable instead of silently swallowed.
*/
package engine

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	halfHour = decimal.NewFromFloat(0.5)
	oneHour  = decimal.NewFromInt(1)
	hundred  = decimal.NewFromInt(100)

	// DefaultThresholdHours is the warn level used when no in-scope store
	// has a settings row.
	DefaultThresholdHours = decimal.NewFromInt(2)
)

// pkgLog receives data-quality signals (never operational errors).
// Replaceable so the shell can route it into its configured logger.
var pkgLog logrus.FieldLogger = logrus.StandardLogger()

// SetLogger routes the engine's data-quality logging. Pass nil to restore
// the standard logger.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		pkgLog = logrus.StandardLogger()
		return
	}
	pkgLog = l
}

// RoundToPayrollHours converts elapsed minutes to payable hours.
// Negative input is clamped to zero and logged as a data-quality anomaly.
func RoundToPayrollHours(minutes int) decimal.Decimal {
	if minutes < 0 {
		pkgLog.WithFields(logrus.Fields{
			"minutes": minutes,
		}).Warn("negative shift duration clamped to zero")
		return decimal.Zero
	}

	whole := decimal.NewFromInt(int64(minutes / 60))
	switch remainder := minutes % 60; {
	case remainder < 20:
		return whole
	case remainder > 40:
		return whole.Add(oneHour)
	default:
		return whole.Add(halfHour)
	}
}

// driftHours converts a minute difference to exact (unrounded) hours for
// threshold comparison.
func driftHours(minutes int) decimal.Decimal {
	if minutes < 0 {
		minutes = -minutes
	}
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60))
}
