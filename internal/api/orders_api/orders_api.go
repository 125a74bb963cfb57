// Package orders_api exposes the service over plain JSON/HTTP.
package orders_api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"courierlog/internal/assemble"
	"courierlog/internal/models"
	"courierlog/internal/services/orders"
	"courierlog/internal/track"
)

// RateLimiter sheds excess location fixes at the ingest boundary.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type OrdersAPI struct {
	svc     *orders.Service
	tracker *track.Manager

	rl            RateLimiter
	samplesPerMin int64
}

func New(svc *orders.Service, tracker *track.Manager) *OrdersAPI {
	return &OrdersAPI{svc: svc, tracker: tracker}
}

// WithSampleRateLimit caps accepted fixes per session per minute.
func (a *OrdersAPI) WithSampleRateLimit(rl RateLimiter, perMinute int64) *OrdersAPI {
	a.rl = rl
	a.samplesPerMin = perMinute
	return a
}

func (a *OrdersAPI) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", a.createOrder)
		r.Get("/", a.listOrders)
		r.Delete("/", a.deleteAllOrders)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getOrder)
			r.Patch("/", a.updateOrder)
			r.Delete("/", a.deleteOrder)
		})
	})

	r.Get("/reports", a.getReport)

	r.Route("/tracking", func(r chi.Router) {
		r.Post("/start", a.startTracking)
		r.Post("/stop", a.stopTracking)
		r.Post("/samples", a.addSample)
		r.Get("/current", a.currentTracking)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

func (a *OrdersAPI) createOrder(w http.ResponseWriter, r *http.Request) {
	var in assemble.ManualInput
	if !decodeJSON(w, r, &in) {
		return
	}
	o, err := a.svc.SaveManual(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderJSON(o))
}

func (a *OrdersAPI) listOrders(w http.ResponseWriter, r *http.Request) {
	rng, err := orders.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	out, err := a.svc.ListOrders(r.Context(), rng)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]orderJSON, 0, len(out))
	for _, o := range out {
		items = append(items, toOrderJSON(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": items})
}

func (a *OrdersAPI) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	o, err := a.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderJSON(o))
}

func (a *OrdersAPI) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var upd models.OrderUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	o, err := a.svc.UpdateOrder(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderJSON(o))
}

func (a *OrdersAPI) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.svc.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *OrdersAPI) deleteAllOrders(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteAllOrders(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *OrdersAPI) getReport(w http.ResponseWriter, r *http.Request) {
	rng, err := orders.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	sum, err := a.svc.Report(r.Context(), rng)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *OrdersAPI) startTracking(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.tracker.Start())
}

type stopResponse struct {
	Stopped bool    `json:"stopped"`
	FinalKm float64 `json:"finalKm"`
}

func (a *OrdersAPI) stopTracking(w http.ResponseWriter, _ *http.Request) {
	km, stopped := a.tracker.Stop()
	writeJSON(w, http.StatusOK, stopResponse{Stopped: stopped, FinalKm: km})
}

func (a *OrdersAPI) currentTracking(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.tracker.Current())
}

type sampleRequest struct {
	SessionID string    `json:"sessionId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *OrdersAPI) addSample(w http.ResponseWriter, r *http.Request) {
	var req sampleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if a.rl != nil && a.samplesPerMin > 0 {
		key := "samples:" + req.SessionID
		ok, _, err := a.rl.Allow(r.Context(), key, a.samplesPerMin, time.Minute)
		if err == nil && !ok {
			writeJSON(w, http.StatusTooManyRequests, errorBody(errors.New("sample rate exceeded")))
			return
		}
		// При недоступном редисе пропускаем сэмпл без лимита.
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	err := a.tracker.AddSample(req.SessionID, models.LocationSample{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Timestamp: ts,
	})
	if err != nil {
		writeJSON(w, http.StatusConflict, errorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, a.tracker.Current())
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody(errors.New("invalid order id")))
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(errors.Wrap(err, "decode request")))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	var ve *assemble.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err))
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err))
	case errors.Is(err, orders.ErrCollaboratorUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err))
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody(err))
	}
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
