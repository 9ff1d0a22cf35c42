package model

import (
	"errors"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryLevelApply(t *testing.T) {
	cases := []struct {
		name          string
		onHand, resv  int
		dOnHand, dRes int
		wantErr       error
		wantOnHand    int
		wantReserved  int
	}{
		{name: "receive", onHand: 0, resv: 0, dOnHand: 10, wantOnHand: 10},
		{name: "reserve within available", onHand: 10, resv: 2, dRes: 8, wantOnHand: 10, wantReserved: 10},
		{name: "reserve beyond available", onHand: 10, resv: 2, dRes: 9, wantErr: apperror.ErrInsufficientStock},
		{name: "ship below zero", onHand: 3, dOnHand: -4, wantErr: apperror.ErrInsufficientStock},
		{name: "unreserved ship eating reserved units", onHand: 10, resv: 8, dOnHand: -3, wantErr: apperror.ErrInsufficientStock},
		{name: "release more than reserved", onHand: 10, resv: 2, dRes: -3, wantErr: apperror.ErrInvalidState},
		{name: "fulfil", onHand: 10, resv: 4, dOnHand: -4, dRes: -4, wantOnHand: 6},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := &InventoryLevel{QuantityOnHand: tc.onHand, QuantityReserved: tc.resv}
			err := l.Apply(tc.dOnHand, tc.dRes)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.wantErr), err.Error())
				assert.Equal(t, tc.onHand, l.QuantityOnHand)
				assert.Equal(t, tc.resv, l.QuantityReserved)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantOnHand, l.QuantityOnHand)
			assert.Equal(t, tc.wantReserved, l.QuantityReserved)
			assert.Equal(t, tc.wantOnHand-tc.wantReserved, l.QuantityAvailable)
		})
	}
}

func TestReservationLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := &InventoryReservation{ID: "r1", QuantityReserved: 5, IsActive: true}

	require.NoError(t, r.Fulfill(2, now))
	assert.Equal(t, 3, r.Outstanding())
	assert.True(t, r.IsActive)

	require.NoError(t, r.Release(3, now))
	assert.False(t, r.IsActive)
	assert.NotNil(t, r.ReleasedAt)
	assert.Nil(t, r.FulfilledAt)

	err := r.Release(1, now)
	assert.True(t, errors.Is(err, apperror.ErrInvalidState))
	err = r.Fulfill(1, now)
	assert.True(t, errors.Is(err, apperror.ErrInvalidState))
}

func TestReservationFulfillClosesAsFulfilled(t *testing.T) {
	now := time.Now()
	r := &InventoryReservation{ID: "r1", QuantityReserved: 2, IsActive: true}

	err := r.Fulfill(3, now)
	assert.True(t, errors.Is(err, apperror.ErrInvalidState))

	require.NoError(t, r.Fulfill(2, now))
	assert.False(t, r.IsActive)
	assert.NotNil(t, r.FulfilledAt)
	assert.Nil(t, r.ReleasedAt)
}

func TestReservationIsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	r := &InventoryReservation{ExpiresAt: &past}
	assert.True(t, r.IsExpired(now))
	assert.False(t, (&InventoryReservation{}).IsExpired(now))
}

func TestOrderTransitions(t *testing.T) {
	assert.True(t, OrderCreated.CanTransitionTo(OrderConfirmed))
	assert.True(t, OrderPacked.CanTransitionTo(OrderShipped))
	assert.True(t, OrderReturnRequested.CanTransitionTo(OrderRefunded))
	assert.False(t, OrderCreated.CanTransitionTo(OrderShipped))
	assert.False(t, OrderPacked.CanTransitionTo(OrderCancelled))
	assert.False(t, OrderShipped.CanTransitionTo(OrderCancelled))

	for _, terminal := range []OrderStatus{OrderCancelled, OrderRefunded, OrderReturned} {
		assert.True(t, terminal.IsTerminal(), terminal)
		assert.Empty(t, terminal.AllowedTransitions())
	}
	assert.Equal(t, ActionPacked, OrderPacked.HistoryAction())
}

func TestOrderAtOrPast(t *testing.T) {
	assert.True(t, OrderPacked.AtOrPast(OrderPacked))
	assert.True(t, OrderShipped.AtOrPast(OrderPacked))
	assert.True(t, OrderDelivered.AtOrPast(OrderShipped))
	assert.True(t, OrderReturnRequested.AtOrPast(OrderShipped))
	assert.False(t, OrderProcessingStarted.AtOrPast(OrderPacked))
	assert.False(t, OrderCancelled.AtOrPast(OrderPacked))
	assert.False(t, OrderRefunded.AtOrPast(OrderShipped))
}

func TestFulfillmentStampStatusSetsOnce(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	f := &OrderFulfillment{Status: FulfillmentPicking}

	f.StampStatus(t0)
	require.NotNil(t, f.PickingStartedAt)

	f.Status = FulfillmentPacking
	f.StampStatus(t1)
	f.StampStatus(t1.Add(time.Hour))

	assert.Equal(t, t0, *f.PickingStartedAt)
	assert.Equal(t, t1, *f.PickingCompletedAt)
	assert.Equal(t, t1, *f.PackingStartedAt)
	assert.True(t, FulfillmentShipped.CanTransitionTo(FulfillmentPartiallyFulfilled))
	assert.False(t, FulfillmentReadyToShip.CanTransitionTo(FulfillmentCancelled))
}

func TestFulfillmentItemsRoundTripThroughDriverValue(t *testing.T) {
	items := FulfillmentItems{{OrderItemID: "oi-1", ReservationID: "r-1", Quantity: 2}}
	v, err := items.Value()
	require.NoError(t, err)

	var back FulfillmentItems
	require.NoError(t, back.Scan(v))
	assert.Equal(t, items, back)
}
