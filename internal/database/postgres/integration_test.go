//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fekuna/omnipos-inventory-service/internal/alert"
	alertRepo "github.com/fekuna/omnipos-inventory-service/internal/alert/repository"
	alertUC "github.com/fekuna/omnipos-inventory-service/internal/alert/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/catalog"
	"github.com/fekuna/omnipos-inventory-service/internal/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/internal/fulfillment"
	fulDto "github.com/fekuna/omnipos-inventory-service/internal/fulfillment/dto"
	fulRepo "github.com/fekuna/omnipos-inventory-service/internal/fulfillment/repository"
	fulUC "github.com/fekuna/omnipos-inventory-service/internal/fulfillment/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	invDto "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	invRepo "github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	invUC "github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	orderDto "github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	orderRepo "github.com/fekuna/omnipos-inventory-service/internal/order/repository"
	orderUC "github.com/fekuna/omnipos-inventory-service/internal/order/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	resDto "github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	resRepo "github.com/fekuna/omnipos-inventory-service/internal/reservation/repository"
	resUC "github.com/fekuna/omnipos-inventory-service/internal/reservation/usecase"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	db        *sqlx.DB

	stock        inventory.UseCase
	reservations reservation.UseCase
	alerts       alert.UseCase
	orders       order.UseCase
	fulfillments fulfillment.UseCase
}

func TestPostgresIntegration(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcpostgres.Run(s.ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("inventory_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.db, err = postgres.Open(dsn, &postgres.Config{MaxOpenConns: 20, MaxIdleConns: 5})
	s.Require().NoError(err)
	s.Require().NoError(postgres.Migrate(s.ctx, s.db))

	log := logger.NewNop()
	txm := postgres.NewTxManager(s.db)
	ledger := invRepo.NewPGRepository(s.db, txm)
	orderStore := orderRepo.NewPGRepository(s.db)

	s.alerts = alertUC.NewAlertUseCase(txm, alertRepo.NewPGRepository(s.db), ledger, nil, time.Minute, nil, log)
	s.reservations = resUC.NewReservationUseCase(txm, resRepo.NewPGRepository(s.db), ledger, nil, resUC.Config{}, nil, log)
	s.stock = invUC.NewInventoryUseCase(txm, ledger, s.reservations, catalog.NewAllowAll(), nil, nil, log)
	s.orders = orderUC.NewOrderUseCase(txm, orderStore, s.reservations, nil, log)
	s.fulfillments = fulUC.NewFulfillmentUseCase(txm, fulRepo.NewPGRepository(s.db), s.orders, orderStore, s.stock, s.reservations, nil, log)
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) receive(variant, location string, qty int) {
	_, err := s.stock.Receive(s.ctx, &invDto.ReceiveInput{VariantID: variant, LocationID: location, Quantity: qty})
	s.Require().NoError(err)
}

func (s *PostgresIntegrationSuite) level(variant, location string) *model.InventoryLevel {
	l, err := s.stock.GetLevel(s.ctx, variant, location)
	s.Require().NoError(err)
	return l
}

func (s *PostgresIntegrationSuite) TestLedgerMatchesMovementSum() {
	s.receive("pg-v1", "loc-a", 12)
	_, err := s.stock.Ship(s.ctx, &invDto.ShipInput{VariantID: "pg-v1", LocationID: "loc-a", Quantity: 5})
	s.Require().NoError(err)
	_, err = s.stock.Ship(s.ctx, &invDto.ShipInput{VariantID: "pg-v1", LocationID: "loc-a", Quantity: 50})
	s.ErrorIs(err, apperror.ErrInsufficientStock)

	movements, _, err := s.stock.ListMovements(s.ctx, &invDto.MovementFilters{VariantID: "pg-v1", LocationID: "loc-a"})
	s.Require().NoError(err)
	sum := 0
	for _, m := range movements {
		sum += m.QuantityDelta
	}
	s.Equal(7, sum)
	s.Equal(7, s.level("pg-v1", "loc-a").QuantityOnHand)
}

func (s *PostgresIntegrationSuite) TestConcurrentReservesNeverOversell() {
	s.receive("pg-v2", "loc-a", 5)

	var wg sync.WaitGroup
	var succeeded int32
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.reservations.Reserve(s.ctx, &resDto.ReserveInput{
				OrderID: "pg-order", VariantID: "pg-v2", LocationID: "loc-a", Quantity: 1,
			})
			if err == nil {
				atomic.AddInt32(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	s.EqualValues(5, succeeded)
	l := s.level("pg-v2", "loc-a")
	s.Equal(5, l.QuantityReserved)
	s.Equal(0, l.QuantityAvailable)
}

func (s *PostgresIntegrationSuite) TestTransferIsAtomic() {
	s.receive("pg-v3", "loc-a", 4)
	_, err := s.stock.Transfer(s.ctx, &invDto.TransferInput{VariantID: "pg-v3", FromLocationID: "loc-a", ToLocationID: "loc-b", Quantity: 9})
	s.ErrorIs(err, apperror.ErrInsufficientStock)
	s.Equal(0, s.level("pg-v3", "loc-b").QuantityOnHand)

	_, err = s.stock.Transfer(s.ctx, &invDto.TransferInput{VariantID: "pg-v3", FromLocationID: "loc-a", ToLocationID: "loc-b", Quantity: 3})
	s.Require().NoError(err)
	s.Equal(1, s.level("pg-v3", "loc-a").QuantityOnHand)
	s.Equal(3, s.level("pg-v3", "loc-b").QuantityOnHand)
}

func (s *PostgresIntegrationSuite) TestPanicInsideTransactionReleasesRowLocks() {
	s.receive("pg-v7", "loc-a", 3)
	txm := postgres.NewTxManager(s.db)
	ledger := invRepo.NewPGRepository(s.db, txm)

	s.Panics(func() {
		_ = txm.WithinTx(s.ctx, func(ctx context.Context) error {
			if _, err := ledger.LockLevels(ctx, "pg-v7", []string{"loc-a"}); err != nil {
				return err
			}
			panic("handler bug")
		})
	})

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	_, err := s.stock.Receive(ctx, &invDto.ReceiveInput{VariantID: "pg-v7", LocationID: "loc-a", Quantity: 1})
	s.Require().NoError(err)
	s.Equal(4, s.level("pg-v7", "loc-a").QuantityOnHand)
}

func (s *PostgresIntegrationSuite) TestOrderToShipmentWorkflow() {
	s.receive("pg-v4", "loc-a", 10)

	o, err := s.orders.Create(s.ctx, &orderDto.CreateOrderInput{OrderNumber: "PG-ORD-1"})
	s.Require().NoError(err)
	for _, st := range []model.OrderStatus{model.OrderConfirmed, model.OrderPaymentReceived} {
		_, err = s.orders.Transition(s.ctx, &orderDto.TransitionInput{OrderID: o.ID, NewStatus: st})
		s.Require().NoError(err)
	}
	reserved, err := s.orders.ReserveItems(s.ctx, &orderDto.ReserveItemsInput{
		OrderID: o.ID,
		Items:   []orderDto.ReserveItem{{OrderItemID: "line-1", VariantID: "pg-v4", LocationID: "loc-a", Quantity: 4}},
	})
	s.Require().NoError(err)
	s.Require().Len(reserved, 1)

	f, err := s.fulfillments.Create(s.ctx, &fulDto.CreateFulfillmentInput{
		OrderID: o.ID,
		Items:   []fulDto.CreateItem{{ReservationID: reserved[0].ID, Quantity: 4}},
	})
	s.Require().NoError(err)

	for _, st := range []model.FulfillmentStatus{
		model.FulfillmentPicking, model.FulfillmentPacking, model.FulfillmentReadyToShip,
		model.FulfillmentShipped, model.FulfillmentFulfilled,
	} {
		_, err = s.fulfillments.Advance(s.ctx, &fulDto.AdvanceInput{FulfillmentID: f.ID, Status: st, UserID: "picker"})
		s.Require().NoError(err, "advance to %s", st)
	}

	l := s.level("pg-v4", "loc-a")
	s.Equal(6, l.QuantityOnHand)
	s.Equal(0, l.QuantityReserved)

	got, err := s.orders.Get(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(model.OrderShipped, got.Status)
}

func (s *PostgresIntegrationSuite) TestCancelReleasesReservations() {
	s.receive("pg-v5", "loc-a", 6)
	o, err := s.orders.Create(s.ctx, &orderDto.CreateOrderInput{OrderNumber: "PG-ORD-2"})
	s.Require().NoError(err)
	_, err = s.orders.ReserveItems(s.ctx, &orderDto.ReserveItemsInput{
		OrderID: o.ID,
		Items:   []orderDto.ReserveItem{{VariantID: "pg-v5", LocationID: "loc-a", Quantity: 6}},
	})
	s.Require().NoError(err)
	s.Equal(6, s.level("pg-v5", "loc-a").QuantityReserved)

	_, err = s.orders.Transition(s.ctx, &orderDto.TransitionInput{OrderID: o.ID, NewStatus: model.OrderCancelled})
	s.Require().NoError(err)
	s.Equal(0, s.level("pg-v5", "loc-a").QuantityReserved)

	history, _, err := s.orders.History(s.ctx, &orderDto.HistoryFilters{OrderID: o.ID})
	s.Require().NoError(err)
	s.Equal(model.ActionInventoryReleased, history[len(history)-1].Action)
}

func (s *PostgresIntegrationSuite) TestLowStockAlertLifecycle() {
	s.receive("pg-v6", "loc-a", 2)
	point := 10
	_, err := s.stock.SetThresholds(s.ctx, &invDto.ThresholdsInput{VariantID: "pg-v6", LocationID: "loc-a", ReorderPoint: &point})
	s.Require().NoError(err)

	eval, err := s.alerts.Evaluate(s.ctx, "pg-v6", "loc-a")
	s.Require().NoError(err)
	s.Equal(model.SeverityCritical, eval.Alert.Severity)

	s.receive("pg-v6", "loc-a", 20)
	eval, err = s.alerts.Evaluate(s.ctx, "pg-v6", "loc-a")
	s.Require().NoError(err)
	s.Equal(model.AlertResolved, eval.Alert.Status)
}
