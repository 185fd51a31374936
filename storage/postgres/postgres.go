// Package postgres provides a PostgreSQL implementation of the billing.Store
// interface. Upserts use INSERT ... ON CONFLICT keyed by the provider
// identifiers; the customer mapping's primary key on the user identifier is
// what turns concurrent lookup-or-create races into billing.ErrMappingExists.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mstoican/stripesync/pkg/billing"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// Schema holds the DDL for the five relations the store writes. Timestamps
// are stored as the RFC3339 strings the reconciliation produces.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	id text PRIMARY KEY,
	active boolean NOT NULL,
	name text NOT NULL,
	description text,
	image text,
	metadata jsonb
);

CREATE TABLE IF NOT EXISTS prices (
	id text PRIMARY KEY,
	product_id text NOT NULL DEFAULT '',
	active boolean NOT NULL,
	currency text NOT NULL,
	description text,
	type text NOT NULL,
	unit_amount bigint,
	interval text,
	interval_count bigint,
	trial_period_days bigint,
	metadata jsonb
);

CREATE TABLE IF NOT EXISTS customers (
	id text PRIMARY KEY,
	customer_id text NOT NULL
);

CREATE INDEX IF NOT EXISTS customers_customer_id_idx ON customers (customer_id);

CREATE TABLE IF NOT EXISTS subscriptions (
	id text PRIMARY KEY,
	user_id text NOT NULL,
	status text NOT NULL,
	price_id text,
	quantity bigint,
	cancel_at_period_end boolean NOT NULL,
	cancel_at text,
	canceled_at text,
	current_period_start text NOT NULL,
	current_period_end text NOT NULL,
	created text NOT NULL,
	ended_at text,
	trial_start text,
	trial_end text,
	metadata jsonb
);

CREATE TABLE IF NOT EXISTS users (
	id text PRIMARY KEY,
	billing_address jsonb,
	payment_method jsonb
);
`

// Store implements billing.Store using PostgreSQL
type Store struct {
	pool   *pgxpool.Pool
	config Config
}

// Config holds PostgreSQL store configuration
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// Pool configuration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// New creates a new PostgreSQL store
func New(ctx context.Context, config Config) (*Store, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool:   pool,
		config: config,
	}, nil
}

// Close closes the PostgreSQL connection pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// CreateSchema creates the store's relations when they do not exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// UpsertProduct implements billing.Store
func (s *Store) UpsertProduct(ctx context.Context, product *billing.Product) error {
	if product == nil || product.ID == "" {
		return fmt.Errorf("invalid product")
	}

	metadata, err := marshalMetadata(product.Metadata)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO products (id, active, name, description, image, metadata)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				active = EXCLUDED.active,
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				image = EXCLUDED.image,
				metadata = EXCLUDED.metadata`,
		product.ID, product.Active, product.Name, product.Description, product.Image, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

// UpsertPrice implements billing.Store
func (s *Store) UpsertPrice(ctx context.Context, price *billing.Price) error {
	if price == nil || price.ID == "" {
		return fmt.Errorf("invalid price")
	}

	metadata, err := marshalMetadata(price.Metadata)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO prices
				(id, product_id, active, currency, description, type, unit_amount,
				 interval, interval_count, trial_period_days, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				product_id = EXCLUDED.product_id,
				active = EXCLUDED.active,
				currency = EXCLUDED.currency,
				description = EXCLUDED.description,
				type = EXCLUDED.type,
				unit_amount = EXCLUDED.unit_amount,
				interval = EXCLUDED.interval,
				interval_count = EXCLUDED.interval_count,
				trial_period_days = EXCLUDED.trial_period_days,
				metadata = EXCLUDED.metadata`,
		price.ID, price.ProductID, price.Active, price.Currency, price.Description,
		string(price.Type), price.UnitAmount, price.Interval, price.IntervalCount,
		price.TrialPeriodDays, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price: %w", err)
	}

	return nil
}

// CustomerByUserID implements billing.Store
func (s *Store) CustomerByUserID(ctx context.Context, userID string) (*billing.CustomerMapping, error) {
	var mapping billing.CustomerMapping

	err := s.pool.QueryRow(ctx,
		`SELECT id, customer_id FROM customers WHERE id = $1`,
		userID).Scan(&mapping.UserID, &mapping.CustomerID)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, billing.ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer mapping: %w", err)
	}

	return &mapping, nil
}

// CustomerByProviderID implements billing.Store
func (s *Store) CustomerByProviderID(ctx context.Context, customerID string) (*billing.CustomerMapping, error) {
	var mapping billing.CustomerMapping

	err := s.pool.QueryRow(ctx,
		`SELECT id, customer_id FROM customers WHERE customer_id = $1`,
		customerID).Scan(&mapping.UserID, &mapping.CustomerID)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, billing.ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer mapping: %w", err)
	}

	return &mapping, nil
}

// InsertCustomer implements billing.Store. The primary key on the user
// identifier surfaces concurrent inserts as billing.ErrMappingExists.
func (s *Store) InsertCustomer(ctx context.Context, mapping *billing.CustomerMapping) error {
	if mapping == nil || mapping.UserID == "" {
		return fmt.Errorf("invalid customer mapping")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO customers (id, customer_id) VALUES ($1, $2)`,
		mapping.UserID, mapping.CustomerID,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return billing.ErrMappingExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert customer mapping: %w", err)
	}

	return nil
}

// UpsertSubscription implements billing.Store
func (s *Store) UpsertSubscription(ctx context.Context, sub *billing.Subscription) error {
	if sub == nil || sub.ID == "" {
		return fmt.Errorf("invalid subscription")
	}

	metadata, err := marshalMetadata(sub.Metadata)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO subscriptions
				(id, user_id, status, price_id, quantity, cancel_at_period_end,
				 cancel_at, canceled_at, current_period_start, current_period_end,
				 created, ended_at, trial_start, trial_end, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (id) DO UPDATE SET
				user_id = EXCLUDED.user_id,
				status = EXCLUDED.status,
				price_id = EXCLUDED.price_id,
				quantity = EXCLUDED.quantity,
				cancel_at_period_end = EXCLUDED.cancel_at_period_end,
				cancel_at = EXCLUDED.cancel_at,
				canceled_at = EXCLUDED.canceled_at,
				current_period_start = EXCLUDED.current_period_start,
				current_period_end = EXCLUDED.current_period_end,
				created = EXCLUDED.created,
				ended_at = EXCLUDED.ended_at,
				trial_start = EXCLUDED.trial_start,
				trial_end = EXCLUDED.trial_end,
				metadata = EXCLUDED.metadata`,
		sub.ID, sub.UserID, sub.Status, sub.PriceID, sub.Quantity, sub.CancelAtPeriodEnd,
		sub.CancelAt, sub.CanceledAt, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.Created, sub.EndedAt, sub.TrialStart, sub.TrialEnd, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

// UpdateUserBilling implements billing.Store
func (s *Store) UpdateUserBilling(ctx context.Context, userID string, userBilling *billing.UserBilling) error {
	if userID == "" || userBilling == nil {
		return fmt.Errorf("invalid user billing update")
	}

	address, err := json.Marshal(userBilling.Address)
	if err != nil {
		return fmt.Errorf("failed to marshal billing address: %w", err)
	}

	var paymentMethod []byte
	if userBilling.PaymentMethod != nil {
		paymentMethod, err = json.Marshal(userBilling.PaymentMethod)
		if err != nil {
			return fmt.Errorf("failed to marshal payment method: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE users SET billing_address = $2, payment_method = $3 WHERE id = $1`,
		userID, address, paymentMethod,
	)
	if err != nil {
		return fmt.Errorf("failed to update user billing: %w", err)
	}

	return nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return raw, nil
}
