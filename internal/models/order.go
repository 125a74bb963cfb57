package models

import "time"

// Order statuses (can be extended).
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
)

// Order is a single captured delivery. Immutable once assembled; changes go
// through an explicit copy-with-update (see assemble.ApplyUpdate).
type Order struct {
	ID uint64

	NotificationTime  time.Time
	OrderNumber       *string
	NotificationTitle *string
	NotificationText  *string
	SourcePackage     *string

	CustomerAddress *string
	PickupAddress   *string
	DeliveryAddress *string

	StartTime *time.Time
	EndTime   *time.Time

	DistanceKm *float64
	Earnings   *float64
	Notes      *string

	Status        string
	IsManualEntry bool
	LastModified  time.Time
}

// DurationMinutes returns the trip duration when both trip timestamps are set.
func (o *Order) DurationMinutes() *int64 {
	if o.StartTime == nil || o.EndTime == nil {
		return nil
	}
	m := int64(o.EndTime.Sub(*o.StartTime) / time.Minute)
	return &m
}

// OrderUpdate carries explicit field overrides for an existing order.
// Nil fields keep their prior values.
type OrderUpdate struct {
	OrderNumber     *string
	CustomerAddress *string
	PickupAddress   *string
	DeliveryAddress *string
	DistanceKm      *float64
	Earnings        *float64
	Notes           *string
	Status          *string
}

// LocationSample is one GPS fix from the location source.
type LocationSample struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Timestamp time.Time
}
