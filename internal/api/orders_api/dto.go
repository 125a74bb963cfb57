package orders_api

import (
	"time"

	"courierlog/internal/models"
)

type orderJSON struct {
	ID               uint64     `json:"id"`
	NotificationTime time.Time  `json:"notificationTime"`
	OrderNumber      *string    `json:"orderNumber,omitempty"`
	Title            *string    `json:"notificationTitle,omitempty"`
	Text             *string    `json:"notificationText,omitempty"`
	SourcePackage    *string    `json:"sourcePackage,omitempty"`
	CustomerAddress  *string    `json:"customerAddress,omitempty"`
	PickupAddress    *string    `json:"pickupAddress,omitempty"`
	DeliveryAddress  *string    `json:"deliveryAddress,omitempty"`
	StartTime        *time.Time `json:"startTime,omitempty"`
	EndTime          *time.Time `json:"endTime,omitempty"`
	DurationMinutes  *int64     `json:"durationMinutes,omitempty"`
	DistanceKm       *float64   `json:"distanceKm,omitempty"`
	Earnings         *float64   `json:"earnings,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	Status           string     `json:"status"`
	IsManualEntry    bool       `json:"isManualEntry"`
	LastModified     time.Time  `json:"lastModified"`
}

func toOrderJSON(o *models.Order) orderJSON {
	return orderJSON{
		ID:               o.ID,
		NotificationTime: o.NotificationTime,
		OrderNumber:      o.OrderNumber,
		Title:            o.NotificationTitle,
		Text:             o.NotificationText,
		SourcePackage:    o.SourcePackage,
		CustomerAddress:  o.CustomerAddress,
		PickupAddress:    o.PickupAddress,
		DeliveryAddress:  o.DeliveryAddress,
		StartTime:        o.StartTime,
		EndTime:          o.EndTime,
		DurationMinutes:  o.DurationMinutes(),
		DistanceKm:       o.DistanceKm,
		Earnings:         o.Earnings,
		Notes:            o.Notes,
		Status:           o.Status,
		IsManualEntry:    o.IsManualEntry,
		LastModified:     o.LastModified,
	}
}
