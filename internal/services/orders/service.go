// Package orders wires extraction, assembly, tracking, storage, cache and
// broker into the operations the API and the event consumer call.
package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"courierlog/internal/assemble"
	"courierlog/internal/broker/messages"
	"courierlog/internal/cache"
	"courierlog/internal/models"
	"courierlog/internal/report"
	"courierlog/internal/storage/pgorders"
	"courierlog/internal/track"
	"courierlog/internal/worker"
)

var (
	// ErrNotFound mirrors the storage sentinel for callers that do not
	// import the storage package.
	ErrNotFound = pgorders.ErrNotFound
	// ErrCollaboratorUnavailable marks storage or broker failures. The
	// service's own state stays usable for a retry.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

type Repository interface {
	InsertOrder(ctx context.Context, o models.Order) (*models.Order, error)
	UpdateOrder(ctx context.Context, o models.Order) error
	GetOrderByID(ctx context.Context, id uint64) (*models.Order, error)
	DeleteOrder(ctx context.Context, id uint64) error
	DeleteAllOrders(ctx context.Context) error
	ListAllOrders(ctx context.Context) ([]*models.Order, error)
	ListOrdersBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Saver interface {
	Submit(name string, fn worker.Job) error
}

type Service struct {
	repo       Repository
	cache      cache.BytesCache
	summaryTTL time.Duration

	saver         Saver
	producer      Producer
	capturedTopic string

	allowList []string
	tracker   *track.Manager

	now func() time.Time
}

func New(repo Repository, c cache.BytesCache, summaryTTL time.Duration, tracker *track.Manager, allowList []string) *Service {
	return &Service{
		repo:       repo,
		cache:      c,
		summaryTTL: summaryTTL,
		tracker:    tracker,
		allowList:  allowList,
		now:        time.Now,
	}
}

// WithPublisher enables fire-and-forget capture: persistence runs on the
// saver pool and an OrderCaptured message is published after a successful
// store.
func (s *Service) WithPublisher(saver Saver, producer Producer, topic string) *Service {
	s.saver = saver
	s.producer = producer
	s.capturedTopic = topic
	return s
}

// MatchesSource reports whether an event source is on the delivery-platform
// allow-list (substring, case-insensitive).
func (s *Service) MatchesSource(sourcePackage string) bool {
	p := strings.ToLower(sourcePackage)
	for _, want := range s.allowList {
		if strings.Contains(p, strings.ToLower(want)) {
			return true
		}
	}
	return false
}

// HandleNotification processes one inbound notification event. Events from
// unlisted sources are dropped before extraction. Persistence is submitted
// to the saver pool; the consumer never blocks on storage and a full queue
// drops the event with a logged error.
func (s *Service) HandleNotification(ctx context.Context, msg messages.NotificationPosted) error {
	if !s.MatchesSource(msg.SourcePackage) {
		return nil
	}

	postedAt := msg.PostedAt
	if postedAt.IsZero() {
		postedAt = s.now().UTC()
	}

	o := assemble.FromEvent(postedAt, msg.Title, msg.FullText(), msg.SourcePackage)
	slog.Debug("notification captured",
		"source", msg.SourcePackage,
		"order_number", derefOr(o.OrderNumber, ""))

	if s.saver == nil {
		_, err := s.insertAndAnnounce(ctx, o)
		return err
	}

	if err := s.saver.Submit("save-order", func(jobCtx context.Context) error {
		_, err := s.insertAndAnnounce(jobCtx, o)
		return err
	}); err != nil {
		slog.Error("drop notification event", "source", msg.SourcePackage, "error", err.Error())
	}
	return nil
}

// SaveManual stores a manually entered order. The typed distance wins; a
// blank distance falls back to the live accumulator total, resolved here at
// save time.
func (s *Service) SaveManual(ctx context.Context, in assemble.ManualInput) (*models.Order, error) {
	liveKm := 0.0
	if s.tracker != nil {
		liveKm = s.tracker.CurrentKm()
	}
	o, err := assemble.FromManualInput(in, liveKm)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.InsertOrder(ctx, o)
	if err != nil {
		return nil, unavailable(err, "insert order")
	}
	s.invalidateSummaries(ctx)
	return saved, nil
}

// UpdateOrder applies explicit field overrides to an existing order.
func (s *Service) UpdateOrder(ctx context.Context, id uint64, upd models.OrderUpdate) (*models.Order, error) {
	if id == 0 {
		return nil, errors.New("order id is required")
	}
	cur, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, unavailable(err, "get order")
	}

	next := assemble.ApplyUpdate(*cur, upd)
	if err := s.repo.UpdateOrder(ctx, next); err != nil {
		return nil, unavailable(err, "update order")
	}
	s.invalidateSummaries(ctx)
	return &next, nil
}

func (s *Service) GetOrder(ctx context.Context, id uint64) (*models.Order, error) {
	if id == 0 {
		return nil, errors.New("order id is required")
	}
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, unavailable(err, "get order")
	}
	return o, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id uint64) error {
	if id == 0 {
		return errors.New("order id is required")
	}
	if err := s.repo.DeleteOrder(ctx, id); err != nil {
		return unavailable(err, "delete order")
	}
	s.invalidateSummaries(ctx)
	return nil
}

func (s *Service) DeleteAllOrders(ctx context.Context) error {
	if err := s.repo.DeleteAllOrders(ctx); err != nil {
		return unavailable(err, "delete all orders")
	}
	s.invalidateSummaries(ctx)
	return nil
}

// ListOrders returns orders within the named range, newest first.
func (s *Service) ListOrders(ctx context.Context, r Range) ([]*models.Order, error) {
	var (
		out []*models.Order
		err error
	)
	if r == RangeAll {
		out, err = s.repo.ListAllOrders(ctx)
	} else {
		from, to := r.Bounds(s.now())
		out, err = s.repo.ListOrdersBetween(ctx, from, to)
	}
	if err != nil {
		return nil, unavailable(err, "list orders")
	}
	return out, nil
}

// Report summarizes the named range. Summaries are cached best-effort: a
// cache failure falls through to the store.
func (s *Service) Report(ctx context.Context, r Range) (report.Summary, error) {
	key := summaryKey(r)
	if s.cache != nil && s.summaryTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var sum report.Summary
			if json.Unmarshal(b, &sum) == nil {
				return sum, nil
			}
		}
	}

	orders, err := s.ListOrders(ctx, r)
	if err != nil {
		return report.Summary{}, err
	}
	sum := report.Summarize(orders)

	if s.cache != nil && s.summaryTTL > 0 {
		if b, err := json.Marshal(sum); err == nil {
			_ = s.cache.Set(ctx, key, b, s.summaryTTL)
		}
	}
	return sum, nil
}

func (s *Service) insertAndAnnounce(ctx context.Context, o models.Order) (*models.Order, error) {
	saved, err := s.repo.InsertOrder(ctx, o)
	if err != nil {
		return nil, errors.Wrap(err, "insert captured order")
	}
	s.invalidateSummaries(ctx)

	if s.producer != nil && s.capturedTopic != "" {
		msg := messages.OrderCaptured{
			OrderID:          saved.ID,
			OrderNumber:      derefOr(saved.OrderNumber, ""),
			SourcePackage:    derefOr(saved.SourcePackage, ""),
			NotificationTime: saved.NotificationTime,
			PickupAddress:    derefOr(saved.PickupAddress, ""),
			DeliveryAddress:  derefOr(saved.DeliveryAddress, ""),
		}
		b, _ := json.Marshal(msg)
		key := strconv.FormatUint(saved.ID, 10)
		if err := s.producer.Publish(ctx, s.capturedTopic, []byte(key), b); err != nil {
			// Публикация best-effort: заказ уже сохранён.
			slog.Error("publish order captured", "order_id", saved.ID, "error", err.Error())
		}
	}
	return saved, nil
}

func (s *Service) invalidateSummaries(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx,
		summaryKey(RangeAll), summaryKey(RangeToday),
		summaryKey(RangeWeek), summaryKey(RangeMonth))
}

func summaryKey(r Range) string {
	return "summary:" + string(r)
}

func unavailable(err error, op string) error {
	if err == nil || errors.Is(err, pgorders.ErrNotFound) {
		return err
	}
	return errors.Wrapf(ErrCollaboratorUnavailable, "%s: %v", op, err)
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
