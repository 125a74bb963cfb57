// Package report reduces persisted orders into summary figures.
package report

import "courierlog/internal/models"

// Summary is the result of one reduction over a set of orders.
type Summary struct {
	Count           int     `json:"count"`
	TotalDistanceKm float64 `json:"totalDistanceKm"`
	TotalEarnings   float64 `json:"totalEarnings"`
}

// Summarize reduces orders into count/distance/earnings totals. Absent
// distance or earnings count as zero. Input order does not matter; range
// selection happens upstream at the store.
func Summarize(orders []*models.Order) Summary {
	s := Summary{Count: len(orders)}
	for _, o := range orders {
		if o.DistanceKm != nil {
			s.TotalDistanceKm += *o.DistanceKm
		}
		if o.Earnings != nil {
			s.TotalEarnings += *o.Earnings
		}
	}
	return s
}
