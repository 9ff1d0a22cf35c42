package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/catalog"
	"github.com/fekuna/omnipos-inventory-service/internal/database/memory"
	"github.com/fekuna/omnipos-inventory-service/internal/fulfillment"
	"github.com/fekuna/omnipos-inventory-service/internal/fulfillment/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	invDto "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	invUC "github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	orderDto "github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	orderUC "github.com/fekuna/omnipos-inventory-service/internal/order/usecase"
	resUC "github.com/fekuna/omnipos-inventory-service/internal/reservation/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *memory.Store
	stock  inventory.UseCase
	orders order.UseCase
	uc     fulfillment.UseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	log := logger.NewNop()
	reservations := resUC.NewReservationUseCase(store, store.Reservations(), store.Inventory(), nil, resUC.Config{}, nil, log)
	stock := invUC.NewInventoryUseCase(store, store.Inventory(), reservations, catalog.NewAllowAll(), nil, nil, log)
	orders := orderUC.NewOrderUseCase(store, store.Orders(), reservations, nil, log)
	uc := NewFulfillmentUseCase(store, store.Fulfillments(), orders, store.Orders(), stock, reservations, nil, log)
	return &fixture{store: store, stock: stock, orders: orders, uc: uc}
}

// paidOrder creates an order in payment_received holding qty units of v1 at loc-a.
func (f *fixture) paidOrder(t *testing.T, number string, qty int) (*model.Order, string) {
	t.Helper()
	ctx := context.Background()
	o, err := f.orders.Create(ctx, &orderDto.CreateOrderInput{OrderNumber: number})
	require.NoError(t, err)
	for _, s := range []model.OrderStatus{model.OrderConfirmed, model.OrderPaymentReceived} {
		_, err = f.orders.Transition(ctx, &orderDto.TransitionInput{OrderID: o.ID, NewStatus: s})
		require.NoError(t, err)
	}
	reserved, err := f.orders.ReserveItems(ctx, &orderDto.ReserveItemsInput{
		OrderID: o.ID,
		Items:   []orderDto.ReserveItem{{OrderItemID: "line-1", VariantID: "v1", LocationID: "loc-a", Quantity: qty}},
	})
	require.NoError(t, err)
	require.Len(t, reserved, 1)
	return o, reserved[0].ID
}

func (f *fixture) advance(t *testing.T, id string, statuses ...model.FulfillmentStatus) *model.OrderFulfillment {
	t.Helper()
	var got *model.OrderFulfillment
	for _, s := range statuses {
		var err error
		got, err = f.uc.Advance(context.Background(), &dto.AdvanceInput{FulfillmentID: id, Status: s, UserID: "picker"})
		require.NoError(t, err, "advance to %s", s)
	}
	return got
}

func (f *fixture) orderStatus(t *testing.T, id string) model.OrderStatus {
	t.Helper()
	o, err := f.orders.Get(context.Background(), id)
	require.NoError(t, err)
	return o.Status
}

func (f *fixture) level(t *testing.T) *model.InventoryLevel {
	t.Helper()
	l, err := f.stock.GetLevel(context.Background(), "v1", "loc-a")
	require.NoError(t, err)
	return l
}

func (f *fixture) receive(t *testing.T, qty int) {
	t.Helper()
	_, err := f.stock.Receive(context.Background(), &invDto.ReceiveInput{VariantID: "v1", LocationID: "loc-a", Quantity: qty})
	require.NoError(t, err)
}

func TestFullWorkflowShipsAgainstReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 10)
	o, resID := f.paidOrder(t, "ORD-1", 4)

	ful, err := f.uc.Create(ctx, &dto.CreateFulfillmentInput{
		OrderID:           o.ID,
		Items:             []dto.CreateItem{{ReservationID: resID, Quantity: 4}},
		WarehouseLocation: "A-01",
	})
	require.NoError(t, err)
	assert.Equal(t, model.FulfillmentPending, ful.Status)
	assert.Equal(t, fmt.Sprintf("FUL-%s-0001", time.Now().UTC().Format("20060102")), ful.FulfillmentNumber)
	assert.Equal(t, "line-1", ful.Items[0].OrderItemID)
	assert.Equal(t, "loc-a", ful.Items[0].LocationID)
	assert.Equal(t, model.OrderProcessingStarted, f.orderStatus(t, o.ID))

	picked := f.advance(t, ful.ID, model.FulfillmentPicking)
	require.NotNil(t, picked.AssignedToID)
	assert.Equal(t, "picker", *picked.AssignedToID)
	require.NotNil(t, picked.PickingStartedAt)

	f.advance(t, ful.ID, model.FulfillmentPacking, model.FulfillmentReadyToShip)
	assert.Equal(t, model.OrderPacked, f.orderStatus(t, o.ID))

	shipped := f.advance(t, ful.ID, model.FulfillmentShipped)
	assert.NotNil(t, shipped.ShippedAt)
	assert.Equal(t, model.OrderShipped, f.orderStatus(t, o.ID))
	l := f.level(t)
	assert.Equal(t, 6, l.QuantityOnHand)
	assert.Equal(t, 0, l.QuantityReserved)

	done := f.advance(t, ful.ID, model.FulfillmentFulfilled)
	assert.NotNil(t, done.CompletedAt)

	_, err = f.uc.Advance(ctx, &dto.AdvanceInput{FulfillmentID: ful.ID, Status: model.FulfillmentCancelled})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestSplitFulfillmentsShipIndependently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 10)
	o, resID := f.paidOrder(t, "ORD-SPLIT", 4)

	first, err := f.uc.Create(ctx, &dto.CreateFulfillmentInput{OrderID: o.ID, Items: []dto.CreateItem{{ReservationID: resID, Quantity: 2}}})
	require.NoError(t, err)
	second, err := f.uc.Create(ctx, &dto.CreateFulfillmentInput{OrderID: o.ID, Items: []dto.CreateItem{{ReservationID: resID, Quantity: 2}}})
	require.NoError(t, err)

	f.advance(t, first.ID, model.FulfillmentPicking, model.FulfillmentPacking, model.FulfillmentReadyToShip, model.FulfillmentShipped)
	assert.Equal(t, model.OrderShipped, f.orderStatus(t, o.ID))
	l := f.level(t)
	assert.Equal(t, 8, l.QuantityOnHand)
	assert.Equal(t, 2, l.QuantityReserved)

	f.advance(t, second.ID, model.FulfillmentPicking, model.FulfillmentPacking, model.FulfillmentReadyToShip, model.FulfillmentShipped)
	assert.Equal(t, model.OrderShipped, f.orderStatus(t, o.ID))
	l = f.level(t)
	assert.Equal(t, 6, l.QuantityOnHand)
	assert.Equal(t, 0, l.QuantityReserved)

	done := f.advance(t, second.ID, model.FulfillmentFulfilled)
	assert.Equal(t, model.FulfillmentFulfilled, done.Status)
}

func TestReadyToShipFailsOnCancelledOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 10)
	o, resID := f.paidOrder(t, "ORD-GONE", 2)

	ful, err := f.uc.Create(ctx, &dto.CreateFulfillmentInput{OrderID: o.ID, Items: []dto.CreateItem{{ReservationID: resID, Quantity: 2}}})
	require.NoError(t, err)
	f.advance(t, ful.ID, model.FulfillmentPicking, model.FulfillmentPacking)

	_, err = f.orders.Transition(ctx, &orderDto.TransitionInput{OrderID: o.ID, NewStatus: model.OrderCancelled})
	require.NoError(t, err)

	_, err = f.uc.Advance(ctx, &dto.AdvanceInput{FulfillmentID: ful.ID, Status: model.FulfillmentReadyToShip})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestTimestampsAreSetOnce(t *testing.T) {
	f := newFixture(t)
	f.receive(t, 5)
	o, resID := f.paidOrder(t, "ORD-1", 2)
	ful, err := f.uc.Create(context.Background(), &dto.CreateFulfillmentInput{
		OrderID: o.ID, Items: []dto.CreateItem{{ReservationID: resID, Quantity: 2}},
	})
	require.NoError(t, err)

	first := f.advance(t, ful.ID, model.FulfillmentPicking)
	startedAt := *first.PickingStartedAt
	again := f.advance(t, ful.ID, model.FulfillmentPicking)
	assert.Equal(t, startedAt, *again.PickingStartedAt)
	assert.Equal(t, model.FulfillmentPicking, again.Status)
}

func TestFulfilledRequiresNothingOutstanding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 10)
	o, resID := f.paidOrder(t, "ORD-1", 4)
	ful, err := f.uc.Create(ctx, &dto.CreateFulfillmentInput{
		OrderID: o.ID, Items: []dto.CreateItem{{ReservationID: resID, Quantity: 3}},
	})
	require.NoError(t, err)
	f.advance(t, ful.ID, model.FulfillmentPicking, model.FulfillmentPacking, model.FulfillmentReadyToShip, model.FulfillmentShipped)

	l := f.level(t)
	assert.Equal(t, 7, l.QuantityOnHand)
	assert.Equal(t, 1, l.QuantityReserved)

	_, err = f.uc.Advance(ctx, &dto.AdvanceInput{FulfillmentID: ful.ID, Status: model.FulfillmentFulfilled})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	partial := f.advance(t, ful.ID, model.FulfillmentPartiallyFulfilled)
	assert.Equal(t, model.FulfillmentPartiallyFulfilled, partial.Status)
}

func TestCancelWhilePickingReleasesReservedUnits(t *testing.T) {
	f := newFixture(t)
	f.receive(t, 10)
	o, resID := f.paidOrder(t, "ORD-1", 4)
	ful, err := f.uc.Create(context.Background(), &dto.CreateFulfillmentInput{
		OrderID: o.ID, Items: []dto.CreateItem{{ReservationID: resID, Quantity: 4}},
	})
	require.NoError(t, err)
	f.advance(t, ful.ID, model.FulfillmentPicking)

	cancelled := f.advance(t, ful.ID, model.FulfillmentCancelled)
	assert.NotNil(t, cancelled.CancelledAt)
	l := f.level(t)
	assert.Equal(t, 10, l.QuantityOnHand)
	assert.Equal(t, 0, l.QuantityReserved)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 10)
	o, resID := f.paidOrder(t, "ORD-1", 2)
	other, _ := f.paidOrder(t, "ORD-2", 1)

	_, err := f.uc.Create(ctx, &dto.CreateFulfillmentInput{OrderID: o.ID})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = f.uc.Create(ctx, &dto.CreateFulfillmentInput{OrderID: o.ID, Items: []dto.CreateItem{{ReservationID: resID, Quantity: 3}}})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.Equal(t, model.OrderPaymentReceived, f.orderStatus(t, o.ID))

	_, err = f.uc.Create(ctx, &dto.CreateFulfillmentInput{OrderID: other.ID, Items: []dto.CreateItem{{ReservationID: resID, Quantity: 1}}})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	fresh, err := f.orders.Create(ctx, &orderDto.CreateOrderInput{OrderNumber: "ORD-3"})
	require.NoError(t, err)
	_, err = f.uc.Create(ctx, &dto.CreateFulfillmentInput{OrderID: fresh.ID, Items: []dto.CreateItem{{ReservationID: resID, Quantity: 1}}})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestNumbersIncreaseAndStatsCountEveryStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 10)
	o, resID := f.paidOrder(t, "ORD-1", 4)

	a, err := f.uc.Create(ctx, &dto.CreateFulfillmentInput{OrderID: o.ID, Items: []dto.CreateItem{{ReservationID: resID, Quantity: 2}}})
	require.NoError(t, err)
	b, err := f.uc.Create(ctx, &dto.CreateFulfillmentInput{OrderID: o.ID, Items: []dto.CreateItem{{ReservationID: resID, Quantity: 2}}})
	require.NoError(t, err)
	assert.NotEqual(t, a.FulfillmentNumber, b.FulfillmentNumber)
	assert.Contains(t, b.FulfillmentNumber, "-0002")

	f.advance(t, a.ID, model.FulfillmentPicking)

	stats, err := f.uc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Len(t, stats.ByStatus, len(model.FulfillmentStatuses))
	assert.Equal(t, 1, stats.ByStatus[model.FulfillmentPending])
	assert.Equal(t, 1, stats.ByStatus[model.FulfillmentPicking])
	assert.Equal(t, 0, stats.ByStatus[model.FulfillmentShipped])

	list, err := f.uc.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 10)
	o, resID := f.paidOrder(t, "ORD-1", 1)
	ful, err := f.uc.Create(ctx, &dto.CreateFulfillmentInput{
		OrderID: o.ID, Items: []dto.CreateItem{{ReservationID: resID, Quantity: 1}}, AssignedToID: "alice",
	})
	require.NoError(t, err)
	require.NotNil(t, ful.AssignedToID)
	assert.Equal(t, "alice", *ful.AssignedToID)

	got, err := f.uc.Assign(ctx, &dto.AssignInput{FulfillmentID: ful.ID, AssigneeID: "bob", UserID: "lead"})
	require.NoError(t, err)
	assert.Equal(t, "bob", *got.AssignedToID)

	picked := f.advance(t, ful.ID, model.FulfillmentPicking)
	assert.Equal(t, "bob", *picked.AssignedToID)

	history, _, err := f.orders.History(ctx, &orderDto.HistoryFilters{OrderID: o.ID})
	require.NoError(t, err)
	var assigned int
	for _, h := range history {
		if h.Action == model.ActionAssigned {
			assigned++
		}
	}
	assert.Equal(t, 1, assigned)

	_, err = f.uc.Assign(ctx, &dto.AssignInput{FulfillmentID: "missing", AssigneeID: "bob"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
