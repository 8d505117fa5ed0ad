package invoices

import "time"

const referenceLayout = "2006-01"

// Cycle is one billing period of a card.
type Cycle struct {
	Reference   string
	ClosingDate time.Time
	DueDate     time.Time
}

// dayIn returns day of the given month, clamped to the month length so a
// closing day of 31 means the last day in shorter months.
func dayIn(year int, month time.Month, day int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CycleInMonth is the cycle that closes in the given month.
func CycleInMonth(year int, month time.Month, closingDay, dueDay int) Cycle {
	closing := dayIn(year, month, closingDay)

	dueMonth := month
	if dueDay <= closingDay {
		dueMonth++
	}
	due := dayIn(year, dueMonth, dueDay)
	if dueMonth > 12 {
		due = dayIn(year+1, dueMonth-12, dueDay)
	}

	return Cycle{
		Reference:   closing.Format(referenceLayout),
		ClosingDate: closing,
		DueDate:     due,
	}
}

// CycleFor returns the cycle a purchase made on date is billed in: the one
// whose closing date is the first strictly after date. A purchase made on
// the closing day goes to the next invoice.
func CycleFor(date time.Time, closingDay, dueDay int) Cycle {
	y, m, _ := date.Date()
	d := time.Date(y, m, date.Day(), 0, 0, 0, 0, time.UTC)

	c := CycleInMonth(y, m, closingDay, dueDay)
	if d.Before(c.ClosingDate) {
		return c
	}
	next := time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
	return CycleInMonth(next.Year(), next.Month(), closingDay, dueDay)
}

// Shift returns the cycle n months after c for the same card days.
func (c Cycle) Shift(n, closingDay, dueDay int) Cycle {
	first := time.Date(c.ClosingDate.Year(), c.ClosingDate.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return CycleInMonth(first.Year(), first.Month(), closingDay, dueDay)
}

// AddMonthsClamped moves date n months ahead keeping the day when the
// target month has it, otherwise its last day (Jan 31 + 1 = Feb 29).
func AddMonthsClamped(date time.Time, n int) time.Time {
	first := time.Date(date.Year(), date.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return dayIn(first.Year(), first.Month(), date.Day())
}
