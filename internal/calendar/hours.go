// Package calendar answers whether an instrument is tradable right now and
// how long until its next session opens. Session tables follow the Moscow
// Exchange schedule: stocks trade one base session with optional morning
// and evening extensions, futures trade around the midday clearing gap.
package calendar

// Session is one trading interval within a day, both edges inclusive.
// Open and Close are seconds from midnight exchange time.
type Session struct {
	Name  string
	Open  int
	Close int
}

func at(h, m, s int) int {
	return h*3600 + m*60 + s
}

var (
	stockBase = []Session{
		{Name: "base", Open: at(10, 0, 0), Close: at(18, 39, 59)},
	}
	stockMorning = Session{Name: "morning", Open: at(9, 0, 0), Close: at(9, 50, 0)}
	stockEvening = Session{Name: "evening", Open: at(19, 5, 0), Close: at(23, 50, 0)}

	futureBase = []Session{
		{Name: "before_clearing", Open: at(9, 0, 0), Close: at(14, 0, 0)},
		{Name: "after_clearing", Open: at(14, 10, 0), Close: at(18, 50, 0)},
	}
	futureEvening = Session{Name: "evening", Open: at(19, 15, 0), Close: at(23, 50, 0)}
)
