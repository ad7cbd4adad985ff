package calendar

import (
	"errors"
	"sort"
	"time"

	"trade_go/internal/domain"
)

// TimeOffset shaves the first and last seconds off every session so orders
// are never placed in the opening or closing auction noise.
const TimeOffset = 30 * time.Second

const secondsPerDay = 24 * 60 * 60

// ErrNoSessions means an instrument ended up with an empty session list,
// which is a configuration bug, not a runtime condition.
var ErrNoSessions = errors.New("no trading sessions configured")

var exchangeZone = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}()

// Clock is what the execution loop needs from a trading calendar.
type Clock interface {
	IsTradingNow() bool
	SecondsTillTradingStarts() (int64, error)
}

// TradingTime is the trading calendar of a single instrument.
type TradingTime struct {
	sessions []Session // offset-adjusted, sorted by open time
	firstDay int       // Monday-based weekday index range, inclusive
	lastDay  int
	now      func() time.Time
}

// ForAsset builds the calendar for one instrument from its class and
// extended-session flags.
func ForAsset(a *domain.Asset) *TradingTime {
	return &TradingTime{
		sessions: adjust(sessionsFor(a)),
		firstDay: 0, // Monday
		lastDay:  4, // Friday
		now:      time.Now,
	}
}

func sessionsFor(a *domain.Asset) []Session {
	var sessions []Session
	switch a.AssetType {
	case domain.AssetTypeFuture:
		sessions = append(sessions, futureBase...)
		if a.EveningTrading {
			sessions = append(sessions, futureEvening)
		}
	default:
		// Stocks and bonds share the stock schedule.
		sessions = append(sessions, stockBase...)
		if a.MorningTrading {
			sessions = append(sessions, stockMorning)
		}
		if a.EveningTrading {
			sessions = append(sessions, stockEvening)
		}
	}
	return sessions
}

// adjust applies the symmetric safety offset to every session edge and
// sorts by open time, which the nearest-session search relies on.
func adjust(sessions []Session) []Session {
	offset := int(TimeOffset / time.Second)
	adjusted := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		open, close := s.Open+offset, s.Close-offset
		if open >= close {
			continue
		}
		adjusted = append(adjusted, Session{Name: s.Name, Open: open, Close: close})
	}
	sort.Slice(adjusted, func(i, j int) bool {
		return adjusted[i].Open < adjusted[j].Open
	})
	return adjusted
}

func (t *TradingTime) tradingDay(wd time.Weekday) bool {
	idx := (int(wd) + 6) % 7 // Monday = 0
	return t.firstDay <= idx && idx <= t.lastDay
}

func secondOfDay(ts time.Time) int {
	return ts.Hour()*3600 + ts.Minute()*60 + ts.Second()
}

// IsTradingNow reports whether the instrument trades at this moment:
// a trading weekday and the time of day inside any adjusted session.
func (t *TradingTime) IsTradingNow() bool {
	now := t.now().In(exchangeZone)
	if !t.tradingDay(now.Weekday()) {
		return false
	}
	s := secondOfDay(now)
	for _, sess := range t.sessions {
		if sess.Open <= s && s <= sess.Close {
			return true
		}
	}
	return false
}

// SecondsTillTradingStarts returns 0 while trading, otherwise the wait
// until the next session opens: later today when one remains, else across
// midnight skipping non-trading weekdays.
func (t *TradingTime) SecondsTillTradingStarts() (int64, error) {
	if len(t.sessions) == 0 {
		return 0, ErrNoSessions
	}
	if t.IsTradingNow() {
		return 0, nil
	}
	now := t.now().In(exchangeZone)
	s := secondOfDay(now)
	if t.tradingDay(now.Weekday()) {
		for _, sess := range t.sessions {
			if sess.Open > s {
				return int64(sess.Open - s), nil
			}
		}
	}
	days := 1
	for !t.tradingDay(now.AddDate(0, 0, days).Weekday()) {
		days++
		if days > 7 {
			return 0, ErrNoSessions
		}
	}
	wait := secondsPerDay - s + (days-1)*secondsPerDay + t.sessions[0].Open
	return int64(wait), nil
}

// SpreadTime is the joint calendar of a spread: the spread trades only
// while both legs trade, and waits as long as its slowest leg.
type SpreadTime struct {
	far  *TradingTime
	near *TradingTime
}

// ForSpread builds the joint calendar for both legs of a spread.
func ForSpread(s *domain.Spread) *SpreadTime {
	return &SpreadTime{far: ForAsset(s.FarLeg), near: ForAsset(s.NearLeg)}
}

func (t *SpreadTime) IsTradingNow() bool {
	return t.far.IsTradingNow() && t.near.IsTradingNow()
}

func (t *SpreadTime) SecondsTillTradingStarts() (int64, error) {
	farWait, err := t.far.SecondsTillTradingStarts()
	if err != nil {
		return 0, err
	}
	nearWait, err := t.near.SecondsTillTradingStarts()
	if err != nil {
		return 0, err
	}
	if nearWait > farWait {
		return nearWait, nil
	}
	return farWait, nil
}
