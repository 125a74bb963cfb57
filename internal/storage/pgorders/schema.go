package pgorders

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS orders (
  id BIGSERIAL PRIMARY KEY,
  notification_time TIMESTAMPTZ NOT NULL,
  order_number TEXT NULL,
  notification_title TEXT NULL,
  notification_text TEXT NULL,
  source_package TEXT NULL,
  customer_address TEXT NULL,
  pickup_address TEXT NULL,
  delivery_address TEXT NULL,
  start_time TIMESTAMPTZ NULL,
  end_time TIMESTAMPTZ NULL,
  distance_km DOUBLE PRECISION NULL,
  earnings DOUBLE PRECISION NULL,
  notes TEXT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  is_manual_entry BOOLEAN NOT NULL DEFAULT FALSE,
  last_modified TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_notification_time ON orders(notification_time DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
