package audit

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

// ClickHouseConfig holds the connection settings of the history store.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore appends settlement events to a history table.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

const createEventsTable = `
	CREATE TABLE IF NOT EXISTS settlement_events (
		id String,
		type LowCardinality(String),
		timestamp DateTime64(3, 'UTC'),
		actor String,
		order_id UInt64,
		status LowCardinality(String),
		recipient String,
		destination_mint String,
		gross_amount UInt64,
		fee_amount UInt64,
		output_amount UInt64,
		reason String,
		attributes Map(String, String)
	) ENGINE = MergeTree()
	ORDER BY (timestamp, order_id)
`

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := conn.Exec(ctx, createEventsTable); err != nil {
		return nil, fmt.Errorf("failed to create settlement_events: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")
	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

func (c *ClickHouseStore) Emit(ctx context.Context, ev *Event) error {
	return c.InsertEvent(ctx, ev)
}

func (c *ClickHouseStore) InsertEvent(ctx context.Context, ev *Event) error {
	query := `
		INSERT INTO settlement_events (
			id, type, timestamp, actor, order_id, status, recipient,
			destination_mint, gross_amount, fee_amount, output_amount, reason, attributes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	attrs := ev.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	err := c.conn.Exec(ctx, query,
		ev.ID,
		string(ev.Type),
		ev.Timestamp,
		ev.Actor,
		ev.OrderID,
		ev.Status,
		ev.Recipient,
		ev.DestinationMint,
		ev.GrossAmount,
		ev.FeeAmount,
		ev.OutputAmount,
		ev.Reason,
		attrs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
