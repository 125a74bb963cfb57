// Package assemble builds immutable Order records from extracted
// notification fields or from manual user input.
package assemble

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"courierlog/internal/extract"
	"courierlog/internal/models"
)

// ValidationError reports a manually supplied value that failed to parse.
// Returned to the caller, never panicked; the caller prompts again.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ManualInput carries the raw form values of a manually entered order.
// Distance and earnings arrive as text exactly as typed.
type ManualInput struct {
	OrderNumber     string
	CustomerAddress string
	PickupAddress   string
	DeliveryAddress string
	DistanceText    string
	EarningsText    string
	Notes           string
}

// FromEvent assembles a pending order out of one notification event.
// The first extracted address is treated as pickup, the second as delivery.
func FromEvent(postedAt time.Time, title, body, sourceTag string) models.Order {
	f := extract.Extract(title, body)

	now := time.Now().UTC()
	o := models.Order{
		NotificationTime:  postedAt,
		OrderNumber:       blankToNil(f.OrderNumber),
		NotificationTitle: blankToNil(title),
		NotificationText:  blankToNil(body),
		SourcePackage:     blankToNil(sourceTag),
		Status:            models.OrderStatusPending,
		IsManualEntry:     false,
		LastModified:      now,
	}
	if len(f.Addresses) > 0 {
		o.PickupAddress = &f.Addresses[0]
	}
	if len(f.Addresses) > 1 {
		o.DeliveryAddress = &f.Addresses[1]
	}
	return o
}

// FromManualInput assembles a completed, manually entered order. When the
// typed distance is blank, liveKm (the running accumulator total, read at
// save time) is used instead.
func FromManualInput(in ManualInput, liveKm float64) (models.Order, error) {
	distance, err := parseNonNegative("distance", in.DistanceText)
	if err != nil {
		return models.Order{}, err
	}
	earnings, err := parseNonNegative("earnings", in.EarningsText)
	if err != nil {
		return models.Order{}, err
	}

	if distance == nil {
		distance = &liveKm
	}

	now := time.Now().UTC()
	return models.Order{
		NotificationTime: now,
		OrderNumber:      blankToNil(in.OrderNumber),
		CustomerAddress:  blankToNil(in.CustomerAddress),
		PickupAddress:    blankToNil(in.PickupAddress),
		DeliveryAddress:  blankToNil(in.DeliveryAddress),
		DistanceKm:       distance,
		Earnings:         earnings,
		Notes:            blankToNil(in.Notes),
		Status:           models.OrderStatusCompleted,
		IsManualEntry:    true,
		LastModified:     now,
	}, nil
}

// ApplyUpdate copies an order with the explicit overrides from upd and a
// refreshed LastModified. Nil fields keep their prior values; nothing is
// implicitly nulled.
func ApplyUpdate(o models.Order, upd models.OrderUpdate) models.Order {
	if upd.OrderNumber != nil {
		o.OrderNumber = upd.OrderNumber
	}
	if upd.CustomerAddress != nil {
		o.CustomerAddress = upd.CustomerAddress
	}
	if upd.PickupAddress != nil {
		o.PickupAddress = upd.PickupAddress
	}
	if upd.DeliveryAddress != nil {
		o.DeliveryAddress = upd.DeliveryAddress
	}
	if upd.DistanceKm != nil {
		o.DistanceKm = upd.DistanceKm
	}
	if upd.Earnings != nil {
		o.Earnings = upd.Earnings
	}
	if upd.Notes != nil {
		o.Notes = upd.Notes
	}
	if upd.Status != nil {
		o.Status = *upd.Status
	}
	o.LastModified = time.Now().UTC()
	return o
}

func parseNonNegative(field, text string) (*float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, &ValidationError{Field: field, Reason: "not a number"}
	}
	if v < 0 {
		return nil, &ValidationError{Field: field, Reason: "must be non-negative"}
	}
	return &v, nil
}

func blankToNil(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
