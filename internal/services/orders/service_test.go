package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"courierlog/internal/assemble"
	"courierlog/internal/broker/messages"
	"courierlog/internal/models"
	"courierlog/internal/report"
	"courierlog/internal/storage/pgorders"
	"courierlog/internal/track"
	"courierlog/internal/worker"
)

var defaultAllowList = []string{"za.co.cowabunga", "za.co.loop.logistics"}

type fakeRepo struct {
	inserted  []models.Order
	insertErr error

	updated   *models.Order
	updateErr error

	getOut *models.Order
	getErr error

	deletedID  uint64
	deletedAll bool

	listAllOut []*models.Order
	listFrom   time.Time
	listTo     time.Time
	listOut    []*models.Order
	listErr    error
}

func (f *fakeRepo) InsertOrder(ctx context.Context, o models.Order) (*models.Order, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	o.ID = uint64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, o)
	return &o, nil
}
func (f *fakeRepo) UpdateOrder(ctx context.Context, o models.Order) error {
	f.updated = &o
	return f.updateErr
}
func (f *fakeRepo) GetOrderByID(ctx context.Context, id uint64) (*models.Order, error) {
	return f.getOut, f.getErr
}
func (f *fakeRepo) DeleteOrder(ctx context.Context, id uint64) error {
	f.deletedID = id
	return nil
}
func (f *fakeRepo) DeleteAllOrders(ctx context.Context) error {
	f.deletedAll = true
	return nil
}
func (f *fakeRepo) ListAllOrders(ctx context.Context) ([]*models.Order, error) {
	return f.listAllOut, f.listErr
}
func (f *fakeRepo) ListOrdersBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	f.listFrom, f.listTo = from, to
	return f.listOut, f.listErr
}

type fakeCache struct {
	m       map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache { return &fakeCache{m: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok := c.m[key]
	return b, ok, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.m[key] = value
	return nil
}
func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.m, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

// inlineSaver runs jobs synchronously; fullSaver simulates a full queue.
type inlineSaver struct{ ran int }

func (s *inlineSaver) Submit(name string, fn worker.Job) error {
	s.ran++
	return fn(context.Background())
}

type fullSaver struct{}

func (fullSaver) Submit(string, worker.Job) error { return worker.ErrQueueFull }

type fakeProducer struct {
	topic string
	key   []byte
	value []byte
	err   error
	calls int
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.calls++
	p.topic, p.key, p.value = topic, key, value
	return p.err
}

func TestService_MatchesSource(t *testing.T) {
	s := New(&fakeRepo{}, nil, 0, nil, defaultAllowList)

	require.True(t, s.MatchesSource("za.co.cowabunga"))
	require.True(t, s.MatchesSource("ZA.CO.COWABUNGA.LOOP"))
	require.True(t, s.MatchesSource("prefix.za.co.loop.logistics.suffix"))
	require.False(t, s.MatchesSource("com.whatsapp"))
	require.False(t, s.MatchesSource(""))
}

func TestService_HandleNotification_IgnoresUnlistedSources(t *testing.T) {
	r := &fakeRepo{}
	s := New(r, nil, 0, nil, defaultAllowList)

	err := s.HandleNotification(context.Background(), messages.NotificationPosted{
		SourcePackage: "com.whatsapp",
		Text:          "Order #123",
	})
	require.NoError(t, err)
	require.Empty(t, r.inserted)
}

func TestService_HandleNotification_CapturesOrder(t *testing.T) {
	r := &fakeRepo{}
	saver := &inlineSaver{}
	prod := &fakeProducer{}
	postedAt := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

	s := New(r, nil, 0, nil, defaultAllowList).WithPublisher(saver, prod, "orders.captured")

	err := s.HandleNotification(context.Background(), messages.NotificationPosted{
		SourcePackage: "za.co.cowabunga",
		PostedAt:      postedAt,
		Title:         "New Order",
		Text:          "New Order #4521",
		LongText:      "Pickup: 12 Oak Street Sandton | Deliver: 45 Main Rd Rosebank",
	})
	require.NoError(t, err)
	require.Equal(t, 1, saver.ran)
	require.Len(t, r.inserted, 1)

	o := r.inserted[0]
	require.Equal(t, postedAt, o.NotificationTime)
	require.Equal(t, "4521", *o.OrderNumber)
	require.Equal(t, "New Order #4521 | Pickup: 12 Oak Street Sandton | Deliver: 45 Main Rd Rosebank", *o.NotificationText)
	require.Equal(t, "12 Oak Street Sandton", *o.PickupAddress)
	require.Equal(t, models.OrderStatusPending, o.Status)
	require.False(t, o.IsManualEntry)

	require.Equal(t, 1, prod.calls)
	require.Equal(t, "orders.captured", prod.topic)
	var captured messages.OrderCaptured
	require.NoError(t, json.Unmarshal(prod.value, &captured))
	require.Equal(t, "4521", captured.OrderNumber)
}

func TestService_HandleNotification_FullQueueDropsWithoutError(t *testing.T) {
	// Дропнутое событие не валит консьюмер.
	r := &fakeRepo{}
	s := New(r, nil, 0, nil, defaultAllowList).WithPublisher(fullSaver{}, nil, "")

	err := s.HandleNotification(context.Background(), messages.NotificationPosted{
		SourcePackage: "za.co.cowabunga",
		Text:          "Order #1 here",
	})
	require.NoError(t, err)
	require.Empty(t, r.inserted)
}

func TestService_HandleNotification_PublishFailureDoesNotFailCapture(t *testing.T) {
	r := &fakeRepo{}
	saver := &inlineSaver{}
	prod := &fakeProducer{err: errors.New("broker down")}
	s := New(r, nil, 0, nil, defaultAllowList).WithPublisher(saver, prod, "orders.captured")

	err := s.HandleNotification(context.Background(), messages.NotificationPosted{
		SourcePackage: "za.co.cowabunga",
		Text:          "Order #77 stuff",
	})
	require.NoError(t, err)
	require.Len(t, r.inserted, 1)
}

func TestService_SaveManual_FallsBackToLiveDistance(t *testing.T) {
	r := &fakeRepo{}
	tracker := track.NewManager(track.DefaultWindow())
	st := tracker.Start()
	feedDistance(t, tracker, st.SessionID, 250)

	s := New(r, nil, 0, tracker, nil)

	saved, err := s.SaveManual(context.Background(), assemble.ManualInput{EarningsText: "85"})
	require.NoError(t, err)
	require.InDelta(t, 0.25, *saved.DistanceKm, 1e-6)
	require.Equal(t, 85.0, *saved.Earnings)
	require.True(t, saved.IsManualEntry)
	require.NotZero(t, saved.ID)
}

func TestService_SaveManual_TypedDistanceWins(t *testing.T) {
	tracker := track.NewManager(track.DefaultWindow())
	st := tracker.Start()
	feedDistance(t, tracker, st.SessionID, 250)

	s := New(&fakeRepo{}, nil, 0, tracker, nil)

	saved, err := s.SaveManual(context.Background(), assemble.ManualInput{DistanceText: "9.9"})
	require.NoError(t, err)
	require.Equal(t, 9.9, *saved.DistanceKm)
}

func TestService_SaveManual_ValidationError(t *testing.T) {
	s := New(&fakeRepo{}, nil, 0, nil, nil)

	_, err := s.SaveManual(context.Background(), assemble.ManualInput{DistanceText: "abc"})
	var ve *assemble.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestService_SaveManual_StorageDownIsCollaboratorUnavailable(t *testing.T) {
	r := &fakeRepo{insertErr: errors.New("connection refused")}
	s := New(r, nil, 0, nil, nil)

	_, err := s.SaveManual(context.Background(), assemble.ManualInput{})
	require.ErrorIs(t, err, ErrCollaboratorUnavailable)
}

func TestService_UpdateOrder_CopiesWithOverrides(t *testing.T) {
	pickup := "12 Oak Street Sandton"
	r := &fakeRepo{getOut: &models.Order{ID: 3, PickupAddress: &pickup, Status: models.OrderStatusPending}}
	s := New(r, nil, 0, nil, nil)

	status := models.OrderStatusCompleted
	out, err := s.UpdateOrder(context.Background(), 3, models.OrderUpdate{Status: &status})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCompleted, out.Status)
	require.Equal(t, pickup, *out.PickupAddress)
	require.Equal(t, models.OrderStatusCompleted, r.updated.Status)
}

func TestService_UpdateOrder_NotFound(t *testing.T) {
	r := &fakeRepo{getErr: pgorders.ErrNotFound}
	s := New(r, nil, 0, nil, nil)

	_, err := s.UpdateOrder(context.Background(), 99, models.OrderUpdate{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_Report_CacheHitSkipsStore(t *testing.T) {
	r := &fakeRepo{listErr: errors.New("db down")}
	c := newFakeCache()
	want := report.Summary{Count: 2, TotalDistanceKm: 3.5, TotalEarnings: 120}
	b, _ := json.Marshal(want)
	c.m["summary:today"] = b

	s := New(r, c, time.Minute, nil, nil)

	got, err := s.Report(context.Background(), RangeToday)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestService_Report_MissComputesAndCaches(t *testing.T) {
	d := 2.5
	r := &fakeRepo{listOut: []*models.Order{{DistanceKm: &d}}}
	c := newFakeCache()
	s := New(r, c, time.Minute, nil, nil)

	got, err := s.Report(context.Background(), RangeWeek)
	require.NoError(t, err)
	require.Equal(t, 1, got.Count)
	require.InDelta(t, 2.5, got.TotalDistanceKm, 1e-9)
	require.Contains(t, c.m, "summary:week")
}

func TestService_WritesInvalidateSummaries(t *testing.T) {
	r := &fakeRepo{getOut: &models.Order{ID: 1}}
	c := newFakeCache()
	c.m["summary:all"] = []byte("{}")
	s := New(r, c, time.Minute, nil, nil)

	_, err := s.SaveManual(context.Background(), assemble.ManualInput{})
	require.NoError(t, err)
	require.NotContains(t, c.m, "summary:all")
	require.Contains(t, c.deleted, "summary:today")

	require.NoError(t, s.DeleteOrder(context.Background(), 1))
	require.Equal(t, uint64(1), r.deletedID)

	require.NoError(t, s.DeleteAllOrders(context.Background()))
	require.True(t, r.deletedAll)
}

func TestService_ListOrders_RangeUsesBounds(t *testing.T) {
	r := &fakeRepo{}
	s := New(r, nil, 0, nil, nil)
	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)
	s.now = func() time.Time { return now }

	_, err := s.ListOrders(context.Background(), RangeToday)
	require.NoError(t, err)
	from, to := RangeToday.Bounds(now)
	require.Equal(t, from, r.listFrom)
	require.Equal(t, to, r.listTo)
}

func feedDistance(t *testing.T, m *track.Manager, sessionID string, meters float64) {
	t.Helper()
	const metersPerDegreeLat = 111194.92664825867
	lat := -26.2041
	require.NoError(t, m.AddSample(sessionID, models.LocationSample{Latitude: lat, Longitude: 28.0473}))
	lat += meters / metersPerDegreeLat
	require.NoError(t, m.AddSample(sessionID, models.LocationSample{Latitude: lat, Longitude: 28.0473}))
}
