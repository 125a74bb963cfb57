// Package track accumulates noisy GPS fixes into a per-session distance
// total. One tracking session is active at a time; the Manager owns the
// session and serializes sample delivery.
package track

import (
	"courierlog/internal/geo"
	"courierlog/internal/models"
)

// AcceptanceWindow bounds a single location-to-location delta, in meters.
// Deltas at or below Min are GPS jitter, at or above Max are fix glitches;
// both are discarded. Exclusive on both ends.
type AcceptanceWindow struct {
	MinDeltaMeters float64
	MaxDeltaMeters float64
}

func DefaultWindow() AcceptanceWindow {
	return AcceptanceWindow{MinDeltaMeters: 10, MaxDeltaMeters: 500}
}

// Accepts reports whether a delta counts toward the total. Both bounds are
// excluded.
func (w AcceptanceWindow) Accepts(deltaMeters float64) bool {
	return deltaMeters > w.MinDeltaMeters && deltaMeters < w.MaxDeltaMeters
}

// Accumulator keeps the running distance of one tracking session.
// Not safe for concurrent use; the Manager serializes access.
type Accumulator struct {
	window      AcceptanceWindow
	last        *models.LocationSample
	totalMeters float64
}

func NewAccumulator(w AcceptanceWindow) *Accumulator {
	if w.MaxDeltaMeters <= w.MinDeltaMeters {
		w = DefaultWindow()
	}
	return &Accumulator{window: w}
}

// Reset clears the total and the last position. Invoked once at session
// start.
func (a *Accumulator) Reset() {
	a.totalMeters = 0
	a.last = nil
}

// AddSample advances the last position and, when the delta from the previous
// position falls inside the acceptance window, adds it to the total. The new
// sample becomes the comparison point even when its delta is discarded.
func (a *Accumulator) AddSample(s models.LocationSample) {
	if a.last != nil {
		delta := geo.HaversineMeters(a.last.Latitude, a.last.Longitude, s.Latitude, s.Longitude)
		if a.window.Accepts(delta) {
			a.totalMeters += delta
		}
	}
	a.last = &s
}

// TotalKm returns the accumulated distance in kilometers. Monotonically
// non-decreasing within a session, never negative.
func (a *Accumulator) TotalKm() float64 {
	return a.totalMeters / 1000.0
}
