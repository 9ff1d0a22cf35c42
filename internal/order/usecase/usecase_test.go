package usecase

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/database/memory"
	invDto "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	resUC "github.com/fekuna/omnipos-inventory-service/internal/reservation/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *memory.Store
	uc    order.UseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	log := logger.NewNop()
	reservations := resUC.NewReservationUseCase(store, store.Reservations(), store.Inventory(), nil, resUC.Config{}, nil, log)
	return &fixture{store: store, uc: NewOrderUseCase(store, store.Orders(), reservations, nil, log)}
}

func (f *fixture) receive(t *testing.T, variant, location string, qty int) {
	t.Helper()
	_, err := f.store.Inventory().ApplyDelta(context.Background(),
		&invDto.LevelDelta{VariantID: variant, LocationID: location, OnHandDelta: qty},
		&model.InventoryMovement{MovementType: model.MovementReceive})
	require.NoError(t, err)
}

func (f *fixture) reserved(t *testing.T, variant, location string) int {
	t.Helper()
	l, err := f.store.Inventory().GetLevel(context.Background(), variant, location)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l.QuantityReserved
}

func (f *fixture) history(t *testing.T, orderID string) []model.OrderHistory {
	t.Helper()
	items, _, err := f.uc.History(context.Background(), &dto.HistoryFilters{OrderID: orderID})
	require.NoError(t, err)
	return items
}

func (f *fixture) create(t *testing.T, number string) *model.Order {
	t.Helper()
	o, err := f.uc.Create(context.Background(), &dto.CreateOrderInput{OrderNumber: number, UserID: "clerk"})
	require.NoError(t, err)
	return o
}

func (f *fixture) moveTo(t *testing.T, orderID string, statuses ...model.OrderStatus) {
	t.Helper()
	for _, s := range statuses {
		_, err := f.uc.Transition(context.Background(), &dto.TransitionInput{OrderID: orderID, NewStatus: s, UserID: "clerk"})
		require.NoError(t, err, "transition to %s", s)
	}
}

func TestHappyPathWritesOneHistoryRowPerTransition(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, "ORD-1")

	f.moveTo(t, o.ID, model.OrderConfirmed, model.OrderPaymentReceived, model.OrderProcessingStarted,
		model.OrderPacked, model.OrderShipped, model.OrderDelivered)

	got, err := f.uc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderDelivered, got.Status)
	assert.NotNil(t, got.ConfirmedAt)
	assert.NotNil(t, got.ShippedAt)
	assert.NotNil(t, got.DeliveredAt)
	assert.Nil(t, got.CancelledAt)

	history := f.history(t, o.ID)
	require.Len(t, history, 7)
	actions := []model.HistoryAction{}
	for _, h := range history {
		actions = append(actions, h.Action)
	}
	assert.Equal(t, []model.HistoryAction{
		model.ActionCreated, model.ActionConfirmed, model.ActionPaymentReceived, model.ActionProcessingStarted,
		model.ActionPacked, model.ActionShipped, model.ActionDelivered,
	}, actions)
	assert.Equal(t, model.OrderPacked, *history[5].OldStatus)
	assert.Equal(t, model.OrderShipped, *history[5].NewStatus)
}

func TestIllegalTransitionWritesNothing(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, "ORD-1")

	_, err := f.uc.Transition(context.Background(), &dto.TransitionInput{OrderID: o.ID, NewStatus: model.OrderShipped})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	got, err := f.uc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCreated, got.Status)
	assert.Len(t, f.history(t, o.ID), 1)

	_, err = f.uc.Transition(context.Background(), &dto.TransitionInput{OrderID: o.ID, NewStatus: "teleported"})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	_, err = f.uc.Transition(context.Background(), &dto.TransitionInput{OrderID: "missing", NewStatus: model.OrderConfirmed})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, "ORD-1")
	f.moveTo(t, o.ID, model.OrderCancelled)

	statuses := []model.OrderStatus{
		model.OrderCreated, model.OrderConfirmed, model.OrderPaymentReceived, model.OrderProcessingStarted,
		model.OrderPacked, model.OrderShipped, model.OrderDelivered, model.OrderCancelled, model.OrderRefunded,
		model.OrderReturnRequested, model.OrderReturned,
	}
	for _, s := range statuses {
		_, err := f.uc.Transition(context.Background(), &dto.TransitionInput{OrderID: o.ID, NewStatus: s})
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition, "cancelled -> %s", s)
	}
}

func TestCancelReleasesReservationsInSameTransaction(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "v1", "loc-a", 10)
	f.receive(t, "v2", "loc-a", 10)
	o := f.create(t, "ORD-1")
	f.moveTo(t, o.ID, model.OrderConfirmed)

	reserved, err := f.uc.ReserveItems(context.Background(), &dto.ReserveItemsInput{
		OrderID: o.ID,
		Items: []dto.ReserveItem{
			{OrderItemID: "i1", VariantID: "v1", LocationID: "loc-a", Quantity: 3},
			{OrderItemID: "i2", VariantID: "v2", LocationID: "loc-a", Quantity: 4},
		},
		UserID: "clerk",
	})
	require.NoError(t, err)
	assert.Len(t, reserved, 2)
	assert.Equal(t, 3, f.reserved(t, "v1", "loc-a"))

	f.moveTo(t, o.ID, model.OrderCancelled)

	assert.Equal(t, 0, f.reserved(t, "v1", "loc-a"))
	assert.Equal(t, 0, f.reserved(t, "v2", "loc-a"))
	history := f.history(t, o.ID)
	last := history[len(history)-1]
	assert.Equal(t, model.ActionInventoryReleased, last.Action)
	assert.EqualValues(t, 7, last.AdditionalData["released_quantity"])
	assert.Equal(t, model.ActionCancelled, history[len(history)-2].Action)
}

func TestRefundFromPaymentReceivedReleasesStock(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "v1", "loc-a", 5)
	o := f.create(t, "ORD-1")
	f.moveTo(t, o.ID, model.OrderConfirmed, model.OrderPaymentReceived)
	_, err := f.uc.ReserveItems(context.Background(), &dto.ReserveItemsInput{
		OrderID: o.ID, Items: []dto.ReserveItem{{VariantID: "v1", LocationID: "loc-a", Quantity: 5}},
	})
	require.NoError(t, err)

	f.moveTo(t, o.ID, model.OrderRefunded)
	assert.Equal(t, 0, f.reserved(t, "v1", "loc-a"))
}

func TestReserveItemsIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "v1", "loc-a", 5)
	f.receive(t, "v2", "loc-a", 1)
	o := f.create(t, "ORD-1")

	_, err := f.uc.ReserveItems(context.Background(), &dto.ReserveItemsInput{
		OrderID: o.ID,
		Items: []dto.ReserveItem{
			{VariantID: "v1", LocationID: "loc-a", Quantity: 2},
			{VariantID: "v2", LocationID: "loc-a", Quantity: 2},
		},
	})
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Equal(t, 0, f.reserved(t, "v1", "loc-a"))
	assert.Len(t, f.history(t, o.ID), 1)

	f.moveTo(t, o.ID, model.OrderConfirmed, model.OrderPaymentReceived, model.OrderProcessingStarted, model.OrderPacked)
	_, err = f.uc.ReserveItems(context.Background(), &dto.ReserveItemsInput{
		OrderID: o.ID, Items: []dto.ReserveItem{{VariantID: "v1", LocationID: "loc-a", Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestBulkTransitionIsolatesOrders(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "ORD-1")
	b := f.create(t, "ORD-2")
	f.moveTo(t, b.ID, model.OrderCancelled)

	result := f.uc.BulkTransition(context.Background(), &dto.BulkTransitionInput{
		OrderIDs:  []string{a.ID, b.ID, "missing"},
		NewStatus: model.OrderConfirmed,
		UserID:    "clerk",
	})
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 2, result.TotalFailed)
	assert.True(t, result.Items[0].Success)
	assert.Equal(t, string(apperror.KindInvalidTransition), result.Items[1].ErrorCode)
	assert.Equal(t, string(apperror.KindNotFound), result.Items[2].ErrorCode)

	got, err := f.uc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, got.Status)
}

func TestNotes(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, "ORD-1")

	_, err := f.uc.AddNote(context.Background(), &dto.AddNoteInput{OrderID: o.ID, Note: "gift wrap", UserID: "clerk"})
	require.NoError(t, err)
	_, err = f.uc.AddNote(context.Background(), &dto.AddNoteInput{OrderID: o.ID, Note: "fraud check passed", IsInternal: true})
	require.NoError(t, err)
	_, err = f.uc.AddNote(context.Background(), &dto.AddNoteInput{OrderID: o.ID, Note: "  "})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	_, err = f.uc.AddNote(context.Background(), &dto.AddNoteInput{OrderID: "missing", Note: "x"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	public, err := f.uc.ListNotes(context.Background(), o.ID, false)
	require.NoError(t, err)
	assert.Len(t, public, 1)
	all, err := f.uc.ListNotes(context.Background(), o.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	history := f.history(t, o.ID)
	require.Len(t, history, 3)
	assert.Equal(t, model.ActionNoteAdded, history[2].Action)
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	f := newFixture(t)
	f.create(t, "ORD-1")

	_, err := f.uc.Create(context.Background(), &dto.CreateOrderInput{OrderNumber: "ORD-1"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
	_, err = f.uc.Create(context.Background(), &dto.CreateOrderInput{})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}
