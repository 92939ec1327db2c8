package models

import "time"

// AssetType classifies a portfolio holding.
type AssetType string

const (
	AssetStock  AssetType = "stock"
	AssetETF    AssetType = "etf"
	AssetCrypto AssetType = "crypto"
	AssetBond   AssetType = "bond"
	AssetCash   AssetType = "cash"
)

// Asset is a portfolio holding owned by a user.
type Asset struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name"`
	Type         AssetType `json:"type"`
	Quantity     float64   `json:"quantity"`
	AveragePrice float64   `json:"average_price"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CostBasis returns quantity times average price.
func (a Asset) CostBasis() float64 {
	return a.Quantity * a.AveragePrice
}

// UserProfile is the account profile screen.
type UserProfile struct {
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Country   string    `json:"country,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotificationSettings controls which alerts a user receives.
type NotificationSettings struct {
	EmailAlerts  bool `json:"email_alerts"`
	PriceAlerts  bool `json:"price_alerts"`
	NewsDigest   bool `json:"news_digest"`
	WeeklyReport bool `json:"weekly_report"`
}

// SecuritySettings holds two-factor and session preferences.
type SecuritySettings struct {
	TwoFactorEnabled bool          `json:"two_factor_enabled"`
	TOTPSecret       string        `json:"-"`
	SessionTimeout   time.Duration `json:"session_timeout"`
}

// BillingSettings holds the subscription plan and card summary.
type BillingSettings struct {
	Plan      string `json:"plan"`
	CardLast4 string `json:"card_last4,omitempty"`
	Currency  string `json:"currency"`
}

// Settings groups every settings section of a user.
type Settings struct {
	UserID        string               `json:"user_id"`
	Notifications NotificationSettings `json:"notifications"`
	Security      SecuritySettings     `json:"security"`
	Billing       BillingSettings      `json:"billing"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// DefaultSettings returns the settings of a user who never saved any.
func DefaultSettings(userID string) Settings {
	return Settings{
		UserID: userID,
		Notifications: NotificationSettings{
			EmailAlerts: true,
			PriceAlerts: true,
		},
		Security: SecuritySettings{
			SessionTimeout: 8 * time.Hour,
		},
		Billing: BillingSettings{
			Plan:     "free",
			Currency: "USD",
		},
	}
}

// LoginRecord is one entry of a user's login history.
type LoginRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device"`
	Location  string    `json:"location,omitempty"`
	Success   bool      `json:"success"`
}
