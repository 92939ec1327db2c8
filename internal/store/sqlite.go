package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	apperrors "stockdesk/internal/errors"
	"stockdesk/internal/models"
)

// SecretCodec seals secret columns before they are written and opens them
// when read back.
type SecretCodec interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	now     func() time.Time
	secrets SecretCodec
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// SetSecretCodec enables encryption of the TOTP secret column.
func (s *SQLiteStore) SetSecretCodec(codec SecretCodec) {
	s.secrets = codec
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Portfolio holdings
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		asset_type TEXT NOT NULL,
		quantity REAL NOT NULL,
		average_price REAL NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assets_user ON assets(user_id, symbol);

	-- Account profile
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL
	);

	-- Notification, security and billing settings
	CREATE TABLE IF NOT EXISTS settings (
		user_id TEXT PRIMARY KEY,
		email_alerts INTEGER NOT NULL,
		price_alerts INTEGER NOT NULL,
		news_digest INTEGER NOT NULL,
		weekly_report INTEGER NOT NULL,
		two_factor_enabled INTEGER NOT NULL,
		totp_secret TEXT NOT NULL DEFAULT '',
		session_timeout_seconds INTEGER NOT NULL,
		plan TEXT NOT NULL,
		card_last4 TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Login history
	CREATE TABLE IF NOT EXISTS login_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		device TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_login_user_time ON login_history(user_id, timestamp DESC);

	-- Watchlist
	CREATE TABLE IF NOT EXISTS watchlist (
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, symbol)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func notFound(table, id string) error {
	return apperrors.NewStoreError(table, "get", id, apperrors.ErrDataNotFound)
}

// ============================================================================
// Asset Methods
// ============================================================================

// CreateAsset inserts an asset, assigning a new ID and timestamps.
func (s *SQLiteStore) CreateAsset(ctx context.Context, asset *models.Asset) error {
	now := s.now()
	asset.ID = uuid.New().String()
	asset.Symbol = strings.ToUpper(asset.Symbol)
	asset.CreatedAt = now
	asset.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (id, user_id, symbol, name, asset_type, quantity, average_price, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, asset.ID, asset.UserID, asset.Symbol, asset.Name, asset.Type, asset.Quantity,
		asset.AveragePrice, asset.Notes, asset.CreatedAt, asset.UpdatedAt)
	if err != nil {
		return apperrors.NewStoreError("assets", "create", asset.ID, fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}
	return nil
}

const assetColumns = `id, user_id, symbol, name, asset_type, quantity, average_price, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (models.Asset, error) {
	var a models.Asset
	var assetType string
	err := row.Scan(&a.ID, &a.UserID, &a.Symbol, &a.Name, &assetType, &a.Quantity,
		&a.AveragePrice, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	a.Type = models.AssetType(assetType)
	return a, err
}

// GetAsset retrieves one asset of a user.
func (s *SQLiteStore) GetAsset(ctx context.Context, userID, id string) (*models.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+` FROM assets WHERE user_id = ? AND id = ?
	`, userID, id)

	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("assets", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &a, nil
}

// ListAssets retrieves a user's assets ordered by symbol.
func (s *SQLiteStore) ListAssets(ctx context.Context, userID string, filter AssetFilter) ([]models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE user_id = ?`
	args := []interface{}{userID}

	if filter.Type != "" {
		query += " AND asset_type = ?"
		args = append(args, filter.Type)
	}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, strings.ToUpper(filter.Symbol))
	}

	query += " ORDER BY symbol ASC, created_at ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}

	return assets, rows.Err()
}

// UpdateAsset replaces the mutable fields of an existing asset.
func (s *SQLiteStore) UpdateAsset(ctx context.Context, asset *models.Asset) error {
	asset.Symbol = strings.ToUpper(asset.Symbol)
	asset.UpdatedAt = s.now()

	result, err := s.db.ExecContext(ctx, `
		UPDATE assets
		SET symbol = ?, name = ?, asset_type = ?, quantity = ?, average_price = ?, notes = ?, updated_at = ?
		WHERE user_id = ? AND id = ?
	`, asset.Symbol, asset.Name, asset.Type, asset.Quantity, asset.AveragePrice, asset.Notes,
		asset.UpdatedAt, asset.UserID, asset.ID)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}

	return requireRow(result, "assets", "update", asset.ID)
}

// DeleteAsset removes an asset of a user.
func (s *SQLiteStore) DeleteAsset(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM assets WHERE user_id = ? AND id = ?
	`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	return requireRow(result, "assets", "delete", id)
}

func requireRow(result sql.Result, table, action, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NewStoreError(table, action, id, apperrors.ErrDataNotFound)
	}
	return nil
}

// ============================================================================
// Profile Methods
// ============================================================================

// SaveProfile inserts or replaces a user's profile.
func (s *SQLiteStore) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	profile.UpdatedAt = s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, full_name, email, phone, country, bio, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			phone = excluded.phone,
			country = excluded.country,
			bio = excluded.bio,
			updated_at = excluded.updated_at
	`, profile.UserID, profile.FullName, profile.Email, profile.Phone, profile.Country,
		profile.Bio, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a user's profile.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, full_name, email, phone, country, bio, updated_at
		FROM profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.FullName, &p.Email, &p.Phone, &p.Country, &p.Bio, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("profiles", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// ============================================================================
// Settings Methods
// ============================================================================

// GetSettings retrieves a user's settings, or the defaults when none were saved.
func (s *SQLiteStore) GetSettings(ctx context.Context, userID string) (*models.Settings, error) {
	var st models.Settings
	var timeoutSeconds int64

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, email_alerts, price_alerts, news_digest, weekly_report,
			two_factor_enabled, totp_secret, session_timeout_seconds,
			plan, card_last4, currency, updated_at
		FROM settings WHERE user_id = ?
	`, userID).Scan(
		&st.UserID,
		&st.Notifications.EmailAlerts, &st.Notifications.PriceAlerts,
		&st.Notifications.NewsDigest, &st.Notifications.WeeklyReport,
		&st.Security.TwoFactorEnabled, &st.Security.TOTPSecret, &timeoutSeconds,
		&st.Billing.Plan, &st.Billing.CardLast4, &st.Billing.Currency, &st.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		defaults := models.DefaultSettings(userID)
		return &defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	st.Security.SessionTimeout = time.Duration(timeoutSeconds) * time.Second
	if s.secrets != nil && st.Security.TOTPSecret != "" {
		if st.Security.TOTPSecret, err = s.secrets.Open(st.Security.TOTPSecret); err != nil {
			return nil, fmt.Errorf("failed to open totp secret: %w", err)
		}
	}
	return &st, nil
}

// SaveSettings inserts or replaces a user's settings.
func (s *SQLiteStore) SaveSettings(ctx context.Context, st *models.Settings) error {
	st.UpdatedAt = s.now()

	secret := st.Security.TOTPSecret
	if s.secrets != nil {
		var err error
		if secret, err = s.secrets.Seal(secret); err != nil {
			return fmt.Errorf("failed to seal totp secret: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO settings (
			user_id, email_alerts, price_alerts, news_digest, weekly_report,
			two_factor_enabled, totp_secret, session_timeout_seconds,
			plan, card_last4, currency, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, st.UserID,
		st.Notifications.EmailAlerts, st.Notifications.PriceAlerts,
		st.Notifications.NewsDigest, st.Notifications.WeeklyReport,
		st.Security.TwoFactorEnabled, secret, int64(st.Security.SessionTimeout/time.Second),
		st.Billing.Plan, st.Billing.CardLast4, st.Billing.Currency, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// ============================================================================
// Login History Methods
// ============================================================================

// RecordLogin appends a login attempt. A zero timestamp is set to now.
func (s *SQLiteStore) RecordLogin(ctx context.Context, record *models.LoginRecord) error {
	record.ID = uuid.New().String()
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now()
	}
	// Timestamps are compared as text, so keep them in one zone.
	record.Timestamp = record.Timestamp.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO login_history (id, user_id, timestamp, device, location, success)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ID, record.UserID, record.Timestamp, record.Device, record.Location, record.Success)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// ListLogins retrieves a user's login history, newest first.
func (s *SQLiteStore) ListLogins(ctx context.Context, userID string, limit int) ([]models.LoginRecord, error) {
	if limit <= 0 {
		limit = DefaultLoginLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, timestamp, device, location, success
		FROM login_history WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query logins: %w", err)
	}
	defer rows.Close()

	var records []models.LoginRecord
	for rows.Next() {
		var r models.LoginRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Timestamp, &r.Device, &r.Location, &r.Success); err != nil {
			return nil, fmt.Errorf("failed to scan login: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// ============================================================================
// Watchlist Methods
// ============================================================================

// AddToWatchlist adds a symbol to a user's watchlist.
func (s *SQLiteStore) AddToWatchlist(ctx context.Context, userID, symbol string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO watchlist (user_id, symbol, created_at) VALUES (?, ?, ?)
	`, userID, strings.ToUpper(symbol), s.now())
	if err != nil {
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}
	return nil
}

// RemoveFromWatchlist removes a symbol from a user's watchlist.
func (s *SQLiteStore) RemoveFromWatchlist(ctx context.Context, userID, symbol string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM watchlist WHERE user_id = ? AND symbol = ?
	`, userID, strings.ToUpper(symbol))
	if err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}
	return requireRow(result, "watchlist", "delete", symbol)
}

// GetWatchlist retrieves a user's watchlist in insertion order.
func (s *SQLiteStore) GetWatchlist(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol FROM watchlist WHERE user_id = ? ORDER BY created_at ASC, symbol ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}
