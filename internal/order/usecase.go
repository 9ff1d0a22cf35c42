package order

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
)

type UseCase interface {
	Create(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error)
	Get(ctx context.Context, id string) (*model.Order, error)
	Transition(ctx context.Context, input *dto.TransitionInput) (*model.Order, error)
	BulkTransition(ctx context.Context, input *dto.BulkTransitionInput) *dto.BulkTransitionResult
	ReserveItems(ctx context.Context, input *dto.ReserveItemsInput) ([]model.InventoryReservation, error)
	AddNote(ctx context.Context, input *dto.AddNoteInput) (*model.OrderNote, error)
	ListNotes(ctx context.Context, orderID string, includeInternal bool) ([]model.OrderNote, error)
	History(ctx context.Context, filters *dto.HistoryFilters) ([]model.OrderHistory, int, error)
}
