package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	resDto "github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/server/respond"
	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/inventory")
	g.GET("/levels", h.ListLevels)
	g.GET("/levels/:variant_id/:location_id", h.GetLevel)
	g.PUT("/levels/:variant_id/:location_id/thresholds", h.SetThresholds)
	g.GET("/variants/:variant_id/total", h.GetTotalStock)
	g.GET("/movements", h.ListMovements)

	g.POST("/receive", h.Receive)
	g.POST("/ship", h.Ship)
	g.POST("/transfer", h.Transfer)
	g.POST("/reserve", h.Reserve)
	g.POST("/release", h.Release)
	g.POST("/bulk-update", h.BulkUpdate)

	g.GET("/adjustments", h.ListAdjustments)
	g.POST("/adjustments", h.CreateAdjustment)
	g.POST("/adjustments/:id/approve", h.ApproveAdjustment)
	g.POST("/adjustments/:id/reject", h.RejectAdjustment)
}

type referenceRequest struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Number string `json:"number"`
}

func (r referenceRequest) toDTO() dto.Reference {
	return dto.Reference{Type: r.Type, ID: r.ID, Number: r.Number}
}

type receiveRequest struct {
	VariantID  string           `json:"variant_id" binding:"required"`
	LocationID string           `json:"location_id" binding:"required"`
	Quantity   int              `json:"quantity" binding:"required"`
	UnitCost   *float64         `json:"unit_cost"`
	Reference  referenceRequest `json:"reference"`
	Notes      string           `json:"notes"`
}

type shipRequest struct {
	VariantID     string           `json:"variant_id" binding:"required"`
	LocationID    string           `json:"location_id" binding:"required"`
	Quantity      int              `json:"quantity" binding:"required"`
	ReservationID string           `json:"reservation_id"`
	Reference     referenceRequest `json:"reference"`
	Notes         string           `json:"notes"`
}

type transferRequest struct {
	VariantID      string `json:"variant_id" binding:"required"`
	FromLocationID string `json:"from_location_id" binding:"required"`
	ToLocationID   string `json:"to_location_id" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required"`
	Notes          string `json:"notes"`
}

type reserveRequest struct {
	VariantID   string     `json:"variant_id" binding:"required"`
	LocationID  string     `json:"location_id"`
	OrderID     string     `json:"order_id" binding:"required"`
	OrderItemID string     `json:"order_item_id"`
	Quantity    int        `json:"quantity" binding:"required"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Notes       string     `json:"notes"`
}

type releaseRequest struct {
	ReservationID string `json:"reservation_id" binding:"required"`
	Quantity      *int   `json:"quantity"`
	Reason        string `json:"reason"`
}

type bulkUpdateRequest struct {
	LocationID string               `json:"location_id" binding:"required"`
	Items      []dto.BulkUpdateItem `json:"items" binding:"required"`
	Notes      string               `json:"notes"`
}

type thresholdsRequest struct {
	ReorderPoint    *int `json:"reorder_point"`
	ReorderQuantity *int `json:"reorder_quantity"`
	MaxStockLevel   *int `json:"max_stock_level"`
}

type adjustmentRequest struct {
	VariantID     string `json:"variant_id" binding:"required"`
	LocationID    string `json:"location_id" binding:"required"`
	QuantityDelta int    `json:"quantity_delta"`
	Reason        string `json:"reason"`
	Notes         string `json:"notes"`
}

type reviewRequest struct {
	Notes string `json:"notes"`
}

func (h *InventoryHandler) GetLevel(c *gin.Context) {
	level, err := h.uc.GetLevel(c.Request.Context(), c.Param("variant_id"), c.Param("location_id"))
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, level)
}

func (h *InventoryHandler) ListLevels(c *gin.Context) {
	page, pageSize := respond.Page(c)
	lowStock, _ := strconv.ParseBool(c.Query("low_stock"))

	items, total, err := h.uc.ListLevels(c.Request.Context(), &dto.LevelFilters{
		VariantID:  c.Query("variant_id"),
		LocationID: c.Query("location_id"),
		LowStock:   lowStock,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.List(c, items, total, page, pageSize)
}

func (h *InventoryHandler) SetThresholds(c *gin.Context) {
	var req thresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	level, err := h.uc.SetThresholds(c.Request.Context(), &dto.ThresholdsInput{
		VariantID:       c.Param("variant_id"),
		LocationID:      c.Param("location_id"),
		ReorderPoint:    req.ReorderPoint,
		ReorderQuantity: req.ReorderQuantity,
		MaxStockLevel:   req.MaxStockLevel,
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, level)
}

func (h *InventoryHandler) GetTotalStock(c *gin.Context) {
	total, err := h.uc.GetTotalStock(c.Request.Context(), c.Param("variant_id"))
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, total)
}

func (h *InventoryHandler) ListMovements(c *gin.Context) {
	page, pageSize := respond.Page(c)
	filters := &dto.MovementFilters{
		VariantID:     c.Query("variant_id"),
		LocationID:    c.Query("location_id"),
		MovementType:  model.MovementType(c.Query("movement_type")),
		ReferenceType: c.Query("reference_type"),
		ReferenceID:   c.Query("reference_id"),
		Page:          page,
		PageSize:      pageSize,
	}
	var ok bool
	if filters.StartDate, ok = parseTimeQuery(c, "start_date"); !ok {
		return
	}
	if filters.EndDate, ok = parseTimeQuery(c, "end_date"); !ok {
		return
	}

	items, total, err := h.uc.ListMovements(c.Request.Context(), filters)
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.List(c, items, total, page, pageSize)
}

func (h *InventoryHandler) Receive(c *gin.Context) {
	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.uc.Receive(c.Request.Context(), &dto.ReceiveInput{
		VariantID:  req.VariantID,
		LocationID: req.LocationID,
		Quantity:   req.Quantity,
		UnitCost:   req.UnitCost,
		Reference:  req.Reference.toDTO(),
		Notes:      req.Notes,
		UserID:     auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, result)
}

func (h *InventoryHandler) Ship(c *gin.Context) {
	var req shipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.uc.Ship(c.Request.Context(), &dto.ShipInput{
		VariantID:     req.VariantID,
		LocationID:    req.LocationID,
		Quantity:      req.Quantity,
		ReservationID: req.ReservationID,
		Reference:     req.Reference.toDTO(),
		Notes:         req.Notes,
		UserID:        auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, result)
}

func (h *InventoryHandler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.uc.Transfer(c.Request.Context(), &dto.TransferInput{
		VariantID:      req.VariantID,
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		Quantity:       req.Quantity,
		Notes:          req.Notes,
		UserID:         auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, result)
}

func (h *InventoryHandler) Reserve(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.uc.Reserve(c.Request.Context(), &resDto.ReserveInput{
		OrderID:     req.OrderID,
		OrderItemID: req.OrderItemID,
		VariantID:   req.VariantID,
		LocationID:  req.LocationID,
		Quantity:    req.Quantity,
		ExpiresAt:   req.ExpiresAt,
		Notes:       req.Notes,
		UserID:      auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, result)
}

func (h *InventoryHandler) Release(c *gin.Context) {
	var req releaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.uc.Release(c.Request.Context(), &resDto.ReleaseInput{
		ReservationID: req.ReservationID,
		Quantity:      req.Quantity,
		Reason:        req.Reason,
		UserID:        auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, result)
}

// BulkUpdate answers 200 even when some items fail; per-item outcomes are in the body.
func (h *InventoryHandler) BulkUpdate(c *gin.Context) {
	var req bulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result := h.uc.BulkUpdate(c.Request.Context(), &dto.BulkUpdateInput{
		LocationID: req.LocationID,
		Items:      req.Items,
		Notes:      req.Notes,
		UserID:     auth.GetActor(c.Request.Context()),
	})
	respond.OK(c, result)
}

func (h *InventoryHandler) ListAdjustments(c *gin.Context) {
	page, pageSize := respond.Page(c)
	items, total, err := h.uc.ListAdjustments(c.Request.Context(), &dto.AdjustmentFilters{
		Status:     model.AdjustmentStatus(c.Query("status")),
		VariantID:  c.Query("variant_id"),
		LocationID: c.Query("location_id"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.List(c, items, total, page, pageSize)
}

func (h *InventoryHandler) CreateAdjustment(c *gin.Context) {
	var req adjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	adj, err := h.uc.CreateAdjustment(c.Request.Context(), &dto.CreateAdjustmentInput{
		VariantID:     req.VariantID,
		LocationID:    req.LocationID,
		QuantityDelta: req.QuantityDelta,
		Reason:        req.Reason,
		Notes:         req.Notes,
		UserID:        auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.Created(c, adj)
}

func (h *InventoryHandler) ApproveAdjustment(c *gin.Context) {
	h.review(c, h.uc.ApproveAdjustment)
}

func (h *InventoryHandler) RejectAdjustment(c *gin.Context) {
	h.review(c, h.uc.RejectAdjustment)
}

func (h *InventoryHandler) review(c *gin.Context, fn func(ctx context.Context, input *dto.ReviewAdjustmentInput) (*model.StockAdjustment, error)) {
	var req reviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	adj, err := fn(c.Request.Context(), &dto.ReviewAdjustmentInput{
		AdjustmentID: c.Param("id"),
		Notes:        req.Notes,
		UserID:       auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, adj)
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respond.BadRequest(c, key+" must be an RFC3339 timestamp")
		return nil, false
	}
	return &t, true
}
