// Package fine computes overdue fines for borrowals.
package fine

import "time"

// DefaultRatePerDay is charged for every started day past the due date.
const DefaultRatePerDay = 10.0

const day = 24 * time.Hour

type Calculator struct {
	RatePerDay float64
}

// New returns a Calculator charging rate per day, falling back to
// DefaultRatePerDay for a non-positive rate.
func New(rate float64) Calculator {
	if rate <= 0 {
		rate = DefaultRatePerDay
	}
	return Calculator{RatePerDay: rate}
}

// Compute returns the fine owed at the reference time. Paid loans, loans
// without a due date and loans not yet past due owe nothing.
func (c Calculator) Compute(dueDate time.Time, finePaid bool, at time.Time) float64 {
	if finePaid || dueDate.IsZero() {
		return 0
	}
	return float64(DaysLate(dueDate, at)) * c.RatePerDay
}

// DaysLate counts started days between due and at; one second late is one day.
func DaysLate(due, at time.Time) int64 {
	if !at.After(due) {
		return 0
	}
	late := at.Sub(due)
	days := int64(late / day)
	if late%day != 0 {
		days++
	}
	return days
}
