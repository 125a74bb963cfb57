package messages

import "time"

// OrderCaptured is published after an auto-captured order has been stored,
// for downstream consumers (export tooling, dashboards).
type OrderCaptured struct {
	OrderID          uint64    `json:"order_id"`
	OrderNumber      string    `json:"order_number,omitempty"`
	SourcePackage    string    `json:"source_package,omitempty"`
	NotificationTime time.Time `json:"notification_time"`
	PickupAddress    string    `json:"pickup_address,omitempty"`
	DeliveryAddress  string    `json:"delivery_address,omitempty"`
}
