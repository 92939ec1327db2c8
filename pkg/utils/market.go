package utils

import (
	"time"
)

// MarketSession describes the US equity session at a point in time.
type MarketSession string

const (
	SessionPreMarket  MarketSession = "PRE_MARKET"
	SessionOpen       MarketSession = "OPEN"
	SessionAfterHours MarketSession = "AFTER_HOURS"
	SessionClosed     MarketSession = "CLOSED"
)

// NewYorkLocation is the timezone for US equity markets.
var NewYorkLocation *time.Location

func init() {
	var err error
	NewYorkLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to UTC-5
		NewYorkLocation = time.FixedZone("EST", -5*60*60)
	}
}

// SessionAt returns the market session at t.
func SessionAt(t time.Time) MarketSession {
	now := t.In(NewYorkLocation)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return SessionClosed
	}

	minutes := now.Hour()*60 + now.Minute()
	switch {
	case minutes >= 4*60 && minutes < 9*60+30:
		return SessionPreMarket
	case minutes >= 9*60+30 && minutes < 16*60:
		return SessionOpen
	case minutes >= 16*60 && minutes < 20*60:
		return SessionAfterHours
	}
	return SessionClosed
}

// CurrentSession returns the current market session.
func CurrentSession() MarketSession {
	return SessionAt(time.Now())
}

// IsMarketOpen returns true if the regular session is open.
func IsMarketOpen() bool {
	return CurrentSession() == SessionOpen
}

// NextMarketOpen returns the next regular session open after t.
func NextMarketOpen(t time.Time) time.Time {
	now := t.In(NewYorkLocation)
	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, NewYorkLocation)

	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
