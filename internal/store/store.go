// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"stockdesk/internal/models"
)

// DataStore defines the interface for data persistence. Every row is
// scoped to a user identifier.
type DataStore interface {
	// Portfolio assets
	CreateAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, userID, id string) (*models.Asset, error)
	ListAssets(ctx context.Context, userID string, filter AssetFilter) ([]models.Asset, error)
	UpdateAsset(ctx context.Context, asset *models.Asset) error
	DeleteAsset(ctx context.Context, userID, id string) error

	// Profile
	SaveProfile(ctx context.Context, profile *models.UserProfile) error
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)

	// Settings
	GetSettings(ctx context.Context, userID string) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings *models.Settings) error

	// Login history
	RecordLogin(ctx context.Context, record *models.LoginRecord) error
	ListLogins(ctx context.Context, userID string, limit int) ([]models.LoginRecord, error)

	// Watchlist
	AddToWatchlist(ctx context.Context, userID, symbol string) error
	RemoveFromWatchlist(ctx context.Context, userID, symbol string) error
	GetWatchlist(ctx context.Context, userID string) ([]string, error)

	// Lifecycle
	Close() error
}

// AssetFilter represents filters for listing assets.
type AssetFilter struct {
	Type   models.AssetType
	Symbol string
	Limit  int
}

// DefaultLoginLimit is the number of login records returned when no limit is given.
const DefaultLoginLimit = 20
