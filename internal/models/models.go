// Package models provides domain models for the trading desk.
package models

import (
	"math"
	"time"
)

// TrendLabel is the qualitative trend derived from a day-over-day change.
type TrendLabel string

const (
	Uptrend   TrendLabel = "Uptrend"
	Downtrend TrendLabel = "Downtrend"
	Sideways  TrendLabel = "Sideways"
	Volatile  TrendLabel = "Volatile"
)

// QuoteSnapshot is a single quote fetch. Missing prices are NaN, a missing
// volume is 0 and a missing beta is nil; the feed resolves these once when
// it decodes the upstream payload.
type QuoteSnapshot struct {
	Symbol           string    `json:"symbol"`
	CurrentPrice     float64   `json:"current_price"`
	PreviousClose    float64   `json:"previous_close"`
	DayHigh          float64   `json:"day_high"`
	DayLow           float64   `json:"day_low"`
	Volume           int64     `json:"volume"`
	FiftyTwoWeekLow  float64   `json:"fifty_two_week_low"`
	FiftyTwoWeekHigh float64   `json:"fifty_two_week_high"`
	Beta             *float64  `json:"beta,omitempty"`
	Source           string    `json:"source"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// HasBeta reports whether the feed supplied a finite beta value.
func (q QuoteSnapshot) HasBeta() bool {
	return q.Beta != nil && !math.IsNaN(*q.Beta) && !math.IsInf(*q.Beta, 0)
}

// OHLCBar is one bar of a price series.
type OHLCBar struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
	Gain   bool    `json:"gain"`
}

// NewOHLCBar creates a bar and derives the Gain flag.
func NewOHLCBar(t string, open, high, low, close float64, volume int64) OHLCBar {
	return OHLCBar{
		Time:   t,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
		Gain:   close > open,
	}
}

// RiskPlan holds the trade-planning form inputs.
type RiskPlan struct {
	AccountSize float64 `json:"account_size"`
	RiskPercent float64 `json:"risk_percent"`
	EntryPrice  float64 `json:"entry_price"`
	StopLoss    float64 `json:"stop_loss"`
	TakeProfit  float64 `json:"take_profit"`
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
