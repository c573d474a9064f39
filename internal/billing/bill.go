// Package billing computes maintenance dues for a resident from the society
// fee schedule and the resident's payment history.
package billing

import (
	"time"

	"society_portal_echo/internal/models"
)

// Bill is the computed maintenance position for one resident
type Bill struct {
	// MonthlyTotal is the sum of all fee-schedule components
	MonthlyTotal float64
	// MonthsOwed is the whole calendar months elapsed since the base date
	// (last payment, or the join date plus the signup month)
	MonthsOwed int
	// Due is the arrears beyond the current month
	Due float64
	// Credit is the surplus when the resident has already paid this month
	Credit float64
	// TotalAmount is the payable amount: MonthlyTotal + Due - Credit.
	// It is not floored at zero; a credit overshoot surfaces as a negative value.
	TotalAmount float64
}

// MonthDiff returns the whole calendar-month difference between from and to.
// A partial month counts as zero: the month-number difference is decremented
// by one when to's day-of-month is less than from's.
func MonthDiff(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	return months
}

// Compute calculates the bill for a resident as of now.
//
// The base date is the last payment date when one exists, otherwise the
// resident's join date; with no prior payment the signup month itself is
// billable, so one month is added. Exactly one elapsed month means the
// resident is on schedule (only the current month is charged); zero means
// they have already paid this month and the monthly total is returned as
// credit; anything beyond one accrues as due.
func Compute(resident models.Resident, society models.Society, now time.Time) Bill {
	monthlyTotal := society.MonthlyTotal()

	baseDate := resident.CreatedAt
	hasPriorPayment := resident.LastPayment.Date != nil
	if hasPriorPayment {
		baseDate = *resident.LastPayment.Date
	}

	monthsOwed := MonthDiff(baseDate, now)
	if !hasPriorPayment {
		monthsOwed++
	}

	var due, credit float64
	if monthsOwed == 0 {
		credit = monthlyTotal
	} else if monthsOwed > 1 {
		due = float64(monthsOwed-1) * monthlyTotal
	}

	return Bill{
		MonthlyTotal: monthlyTotal,
		MonthsOwed:   monthsOwed,
		Due:          due,
		Credit:       credit,
		TotalAmount:  monthlyTotal + due - credit,
	}
}
