package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/database/memory"
	invDto "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*invDto.StockChangedEvent
}

func (p *recordingPublisher) PublishStockChanged(_ context.Context, e *invDto.StockChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fixture struct {
	store *memory.Store
	pub   *recordingPublisher
	uc    reservation.UseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	uc := NewReservationUseCase(store, store.Reservations(), store.Inventory(), pub, Config{}, nil, logger.NewNop())
	return &fixture{store: store, pub: pub, uc: uc}
}

func (f *fixture) receive(t *testing.T, variant, location string, qty int) {
	t.Helper()
	_, err := f.store.Inventory().ApplyDelta(context.Background(),
		&invDto.LevelDelta{VariantID: variant, LocationID: location, OnHandDelta: qty},
		&model.InventoryMovement{MovementType: model.MovementReceive})
	require.NoError(t, err)
}

func (f *fixture) level(t *testing.T, variant, location string) *model.InventoryLevel {
	t.Helper()
	l, err := f.store.Inventory().GetLevel(context.Background(), variant, location)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l
}

func intPtr(v int) *int { return &v }

func TestAllocate(t *testing.T) {
	levels := []model.InventoryLevel{
		{LocationID: "loc-c", QuantityOnHand: 4},
		{LocationID: "loc-a", QuantityOnHand: 10, QuantityReserved: 6},
		{LocationID: "loc-b", QuantityOnHand: 4},
		{LocationID: "loc-d", QuantityOnHand: 9},
	}

	allocations, err := Allocate(levels, 15)
	require.NoError(t, err)
	assert.Equal(t, []dto.Allocation{
		{LocationID: "loc-d", Quantity: 9},
		{LocationID: "loc-a", Quantity: 4},
		{LocationID: "loc-b", Quantity: 2},
	}, allocations)

	_, err = Allocate(levels, 22)
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
}

func TestReserveAtLocation(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "v1", "loc-a", 10)

	out, err := f.uc.Reserve(context.Background(), &dto.ReserveInput{
		OrderID: "order-1", OrderItemID: "item-1", VariantID: "v1", LocationID: "loc-a", Quantity: 4,
	})
	require.NoError(t, err)
	require.Len(t, out.Reservations, 1)
	assert.Equal(t, 4, out.Total())
	assert.True(t, out.Reservations[0].IsActive)
	require.NotNil(t, out.Reservations[0].ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), *out.Reservations[0].ExpiresAt, time.Minute)

	l := f.level(t, "v1", "loc-a")
	assert.Equal(t, 10, l.QuantityOnHand)
	assert.Equal(t, 4, l.QuantityReserved)
	assert.Equal(t, 6, l.Available())
	assert.Equal(t, 1, f.pub.count())
}

func TestReserveRejectsShortfallWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "v1", "loc-a", 3)

	_, err := f.uc.Reserve(context.Background(), &dto.ReserveInput{
		OrderID: "order-1", VariantID: "v1", LocationID: "loc-a", Quantity: 4,
	})
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)

	l := f.level(t, "v1", "loc-a")
	assert.Equal(t, 0, l.QuantityReserved)
	list, err := f.uc.ListByOrder(context.Background(), "order-1", false)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 0, f.pub.count())
}

func TestReserveSplitsAcrossLocations(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "v1", "loc-a", 3)
	f.receive(t, "v1", "loc-b", 5)

	out, err := f.uc.Reserve(context.Background(), &dto.ReserveInput{OrderID: "order-1", VariantID: "v1", Quantity: 7})
	require.NoError(t, err)
	require.Len(t, out.Reservations, 2)
	assert.Equal(t, "loc-b", out.Reservations[0].LocationID)
	assert.Equal(t, 5, out.Reservations[0].QuantityReserved)
	assert.Equal(t, "loc-a", out.Reservations[1].LocationID)
	assert.Equal(t, 2, out.Reservations[1].QuantityReserved)

	_, err = f.uc.Reserve(context.Background(), &dto.ReserveInput{OrderID: "order-2", VariantID: "v1", Quantity: 2})
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Equal(t, 1, f.level(t, "v1", "loc-a").Available())
}

func TestReserveValidatesInput(t *testing.T) {
	f := newFixture(t)
	past := time.Now().Add(-time.Hour)

	_, err := f.uc.Reserve(context.Background(), &dto.ReserveInput{OrderID: "o1", VariantID: "v1", Quantity: 0})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	_, err = f.uc.Reserve(context.Background(), &dto.ReserveInput{OrderID: "o1", Quantity: 1})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	_, err = f.uc.Reserve(context.Background(), &dto.ReserveInput{OrderID: "o1", VariantID: "v1", Quantity: 1, ExpiresAt: &past})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	_, err = f.uc.Reserve(context.Background(), &dto.ReserveInput{VariantID: "v1", LocationID: "loc-a", Quantity: 1})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "order_id")
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "v1", "loc-a", 7)

	var wg sync.WaitGroup
	var ok, short int64
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.Reserve(context.Background(), &dto.ReserveInput{
				OrderID: "order", VariantID: "v1", LocationID: "loc-a", Quantity: 1,
			})
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case apperror.KindOf(err) == apperror.KindInsufficientStock:
				atomic.AddInt64(&short, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 7, ok)
	assert.EqualValues(t, 13, short)
	l := f.level(t, "v1", "loc-a")
	assert.Equal(t, 7, l.QuantityReserved)
	assert.Equal(t, 0, l.Available())
}

func TestReleasePartialThenRest(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "v1", "loc-a", 10)
	out, err := f.uc.Reserve(context.Background(), &dto.ReserveInput{OrderID: "o", VariantID: "v1", LocationID: "loc-a", Quantity: 5})
	require.NoError(t, err)
	id := out.Reservations[0].ID

	rel, err := f.uc.Release(context.Background(), &dto.ReleaseInput{ReservationID: id, Quantity: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, rel.ReleasedQuantity)
	assert.True(t, rel.Reservation.IsActive)
	assert.Equal(t, 3, rel.Level.QuantityReserved)

	_, err = f.uc.Release(context.Background(), &dto.ReleaseInput{ReservationID: id, Quantity: intPtr(4)})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	rel, err = f.uc.Release(context.Background(), &dto.ReleaseInput{ReservationID: id})
	require.NoError(t, err)
	assert.Equal(t, 3, rel.ReleasedQuantity)
	assert.False(t, rel.Reservation.IsActive)
	assert.NotNil(t, rel.Reservation.ReleasedAt)
	assert.Nil(t, rel.Reservation.FulfilledAt)

	_, err = f.uc.Release(context.Background(), &dto.ReleaseInput{ReservationID: id})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.Equal(t, 0, f.level(t, "v1", "loc-a").QuantityReserved)

	_, err = f.uc.Release(context.Background(), &dto.ReleaseInput{ReservationID: "missing"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestFulfillShipsFromReservation(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "v1", "loc-a", 10)
	out, err := f.uc.Reserve(context.Background(), &dto.ReserveInput{OrderID: "o", VariantID: "v1", LocationID: "loc-a", Quantity: 4})
	require.NoError(t, err)
	id := out.Reservations[0].ID

	ful, err := f.uc.Fulfill(context.Background(), &dto.FulfillInput{ReservationID: id, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, model.MovementShip, ful.Movement.MovementType)
	assert.Equal(t, -4, ful.Movement.QuantityDelta)
	assert.Equal(t, 6, ful.Level.QuantityOnHand)
	assert.Equal(t, 0, ful.Level.QuantityReserved)
	assert.False(t, ful.Reservation.IsActive)
	assert.NotNil(t, ful.Reservation.FulfilledAt)

	_, err = f.uc.Fulfill(context.Background(), &dto.FulfillInput{ReservationID: id, Quantity: 1})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestReleaseOrderReleasesEveryActiveReservation(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "v1", "loc-a", 5)
	f.receive(t, "v2", "loc-a", 5)
	_, err := f.uc.Reserve(context.Background(), &dto.ReserveInput{OrderID: "o", VariantID: "v1", LocationID: "loc-a", Quantity: 2})
	require.NoError(t, err)
	_, err = f.uc.Reserve(context.Background(), &dto.ReserveInput{OrderID: "o", VariantID: "v2", LocationID: "loc-a", Quantity: 3})
	require.NoError(t, err)

	released, err := f.uc.ReleaseOrder(context.Background(), "o", "order cancelled", "user-1")
	require.NoError(t, err)
	assert.Len(t, released, 2)
	assert.Equal(t, 0, f.level(t, "v1", "loc-a").QuantityReserved)
	assert.Equal(t, 0, f.level(t, "v2", "loc-a").QuantityReserved)

	released, err = f.uc.ReleaseOrder(context.Background(), "o", "again", "user-1")
	require.NoError(t, err)
	assert.Empty(t, released)
}

func TestExpireSweepIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "v1", "loc-a", 10)
	soon := time.Now().Add(time.Hour)
	later := time.Now().Add(48 * time.Hour)

	_, err := f.uc.Reserve(context.Background(), &dto.ReserveInput{OrderID: "o1", VariantID: "v1", LocationID: "loc-a", Quantity: 3, ExpiresAt: &soon})
	require.NoError(t, err)
	_, err = f.uc.Reserve(context.Background(), &dto.ReserveInput{OrderID: "o2", VariantID: "v1", LocationID: "loc-a", Quantity: 2, ExpiresAt: &later})
	require.NoError(t, err)

	now := time.Now().Add(2 * time.Hour)
	expired, err := f.uc.ExpireSweep(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "o1", expired[0].OrderID)
	assert.NotNil(t, expired[0].ReleasedAt)
	assert.Equal(t, 2, f.level(t, "v1", "loc-a").QuantityReserved)

	expired, err = f.uc.ExpireSweep(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, expired)
	assert.Equal(t, 2, f.level(t, "v1", "loc-a").QuantityReserved)
}

func TestExpireSweepReleasesOnlyUnfulfilledRemainder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, "v1", "loc-a", 10)
	soon := time.Now().Add(time.Hour)

	out, err := f.uc.Reserve(ctx, &dto.ReserveInput{OrderID: "o1", VariantID: "v1", LocationID: "loc-a", Quantity: 5, ExpiresAt: &soon})
	require.NoError(t, err)
	resID := out.Reservations[0].ID
	_, err = f.uc.Fulfill(ctx, &dto.FulfillInput{ReservationID: resID, Quantity: 2})
	require.NoError(t, err)

	expired, err := f.uc.ExpireSweep(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, 3, expired[0].QuantityReleased)
	assert.Equal(t, 2, expired[0].QuantityFulfilled)
	assert.False(t, expired[0].IsActive)

	l := f.level(t, "v1", "loc-a")
	assert.Equal(t, 8, l.QuantityOnHand)
	assert.Equal(t, 0, l.QuantityReserved)
}

// releasingRepository releases every listed reservation before the sweep locks it.
type releasingRepository struct {
	reservation.Repository
	release func(ctx context.Context, id string)
}

func (r *releasingRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.InventoryReservation, error) {
	items, err := r.Repository.ListExpired(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		r.release(ctx, item.ID)
	}
	return items, nil
}

func TestExpireSweepSkipsReservationReleasedAfterListing(t *testing.T) {
	store := memory.NewStore()
	repo := &releasingRepository{Repository: store.Reservations()}
	uc := NewReservationUseCase(store, repo, store.Inventory(), nil, Config{}, nil, logger.NewNop())
	released := 0
	repo.release = func(ctx context.Context, id string) {
		_, err := uc.Release(ctx, &dto.ReleaseInput{ReservationID: id, Reason: "customer cancelled"})
		require.NoError(t, err)
		released++
	}

	ctx := context.Background()
	_, err := store.Inventory().ApplyDelta(ctx,
		&invDto.LevelDelta{VariantID: "v1", LocationID: "loc-a", OnHandDelta: 6},
		&model.InventoryMovement{MovementType: model.MovementReceive})
	require.NoError(t, err)
	soon := time.Now().Add(time.Hour)
	_, err = uc.Reserve(ctx, &dto.ReserveInput{OrderID: "o1", VariantID: "v1", LocationID: "loc-a", Quantity: 4, ExpiresAt: &soon})
	require.NoError(t, err)

	expired, err := uc.ExpireSweep(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, expired)
	assert.Equal(t, 1, released)

	l, err := store.Inventory().GetLevel(ctx, "v1", "loc-a")
	require.NoError(t, err)
	assert.Equal(t, 6, l.QuantityOnHand)
	assert.Equal(t, 0, l.QuantityReserved)
}

type fakeLocker struct {
	held     bool
	released int
}

func (l *fakeLocker) AcquireLock(context.Context, string, string, time.Duration) (bool, error) {
	return !l.held, nil
}

func (l *fakeLocker) ReleaseLock(context.Context, string, string) error {
	l.released++
	return nil
}

func TestSweeperHonoursLease(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "v1", "loc-a", 10)
	soon := time.Now().Add(time.Millisecond)
	_, err := f.uc.Reserve(context.Background(), &dto.ReserveInput{OrderID: "o1", VariantID: "v1", LocationID: "loc-a", Quantity: 3, ExpiresAt: &soon})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	locker := &fakeLocker{held: true}
	s := NewSweeper(f.uc, locker, time.Minute, 0, logger.NewNop())
	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	locker.held = false
	n, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, locker.released)
	assert.Equal(t, 0, f.level(t, "v1", "loc-a").QuantityReserved)
}

func TestSweeperFallsBackToDefaultInterval(t *testing.T) {
	f := newFixture(t)
	for _, interval := range []time.Duration{0, -time.Second} {
		s := NewSweeper(f.uc, nil, interval, 0, logger.NewNop())
		assert.Equal(t, DefaultSweepInterval, s.interval)
		assert.Equal(t, DefaultSweepInterval, s.leaseTTL)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NotPanics(t, func() { s.Start(ctx) })
	}
}
