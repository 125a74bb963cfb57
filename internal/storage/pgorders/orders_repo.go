package pgorders

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"courierlog/internal/models"
)

// ErrNotFound is returned by lookups for ids that do not exist.
var ErrNotFound = errors.New("order not found")

const orderColumns = `
  id, notification_time, order_number, notification_title, notification_text,
  source_package, customer_address, pickup_address, delivery_address,
  start_time, end_time, distance_km, earnings, notes,
  status, is_manual_entry, last_modified`

// InsertOrder stores a new order and returns it with the assigned id.
func (s *Storage) InsertOrder(ctx context.Context, o models.Order) (*models.Order, error) {
	err := s.db.QueryRow(ctx, `
INSERT INTO orders (
  notification_time, order_number, notification_title, notification_text,
  source_package, customer_address, pickup_address, delivery_address,
  start_time, end_time, distance_km, earnings, notes,
  status, is_manual_entry, last_modified
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
RETURNING id
`,
		o.NotificationTime, o.OrderNumber, o.NotificationTitle, o.NotificationText,
		o.SourcePackage, o.CustomerAddress, o.PickupAddress, o.DeliveryAddress,
		o.StartTime, o.EndTime, o.DistanceKm, o.Earnings, o.Notes,
		o.Status, o.IsManualEntry, o.LastModified,
	).Scan(&o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "insert order")
	}
	return &o, nil
}

// UpdateOrder overwrites every mutable column of an existing order. Callers
// build the new value via assemble.ApplyUpdate so unspecified fields keep
// their prior values.
func (s *Storage) UpdateOrder(ctx context.Context, o models.Order) error {
	tag, err := s.db.Exec(ctx, `
UPDATE orders SET
  notification_time = $2, order_number = $3, notification_title = $4,
  notification_text = $5, source_package = $6, customer_address = $7,
  pickup_address = $8, delivery_address = $9, start_time = $10, end_time = $11,
  distance_km = $12, earnings = $13, notes = $14, status = $15,
  is_manual_entry = $16, last_modified = $17
WHERE id = $1
`,
		o.ID,
		o.NotificationTime, o.OrderNumber, o.NotificationTitle,
		o.NotificationText, o.SourcePackage, o.CustomerAddress,
		o.PickupAddress, o.DeliveryAddress, o.StartTime, o.EndTime,
		o.DistanceKm, o.Earnings, o.Notes, o.Status,
		o.IsManualEntry, o.LastModified,
	)
	if err != nil {
		return errors.Wrap(err, "update order")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Storage) GetOrderByID(ctx context.Context, id uint64) (*models.Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

func (s *Storage) DeleteOrder(ctx context.Context, id uint64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete order")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteAllOrders(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM orders`)
	return errors.Wrap(err, "delete all orders")
}

// ListAllOrders returns every order, newest notification first.
func (s *Storage) ListAllOrders(ctx context.Context) ([]*models.Order, error) {
	return s.listOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY notification_time DESC`)
}

// ListOrdersBetween returns orders with from <= notification_time < to,
// newest first. Today/week/month bounds are computed by the caller.
func (s *Storage) ListOrdersBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	return s.listOrders(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE notification_time >= $1 AND notification_time < $2
ORDER BY notification_time DESC
`, from.UTC(), to.UTC())
}

func (s *Storage) listOrders(ctx context.Context, q string, args ...any) ([]*models.Order, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	defer rows.Close()

	out := []*models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.NotificationTime, &o.OrderNumber, &o.NotificationTitle, &o.NotificationText,
		&o.SourcePackage, &o.CustomerAddress, &o.PickupAddress, &o.DeliveryAddress,
		&o.StartTime, &o.EndTime, &o.DistanceKm, &o.Earnings, &o.Notes,
		&o.Status, &o.IsManualEntry, &o.LastModified,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
