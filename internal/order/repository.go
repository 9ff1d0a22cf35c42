package order

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
)

// HistoryRecorder appends to the order audit trail. History rows are never updated.
type HistoryRecorder interface {
	AppendHistory(ctx context.Context, h *model.OrderHistory) error
}

type Repository interface {
	HistoryRecorder

	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	GetForUpdate(ctx context.Context, id string) (*model.Order, error)
	UpdateStatus(ctx context.Context, o *model.Order) error

	ListHistory(ctx context.Context, filters *dto.HistoryFilters) ([]model.OrderHistory, int, error)
	CreateNote(ctx context.Context, n *model.OrderNote) error
	ListNotes(ctx context.Context, orderID string, includeInternal bool) ([]model.OrderNote, error)
}
