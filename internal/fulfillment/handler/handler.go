package handler

import (
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/fulfillment"
	"github.com/fekuna/omnipos-inventory-service/internal/fulfillment/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/server/respond"
	"github.com/gin-gonic/gin"
)

type FulfillmentHandler struct {
	uc     fulfillment.UseCase
	logger logger.ZapLogger
}

func NewFulfillmentHandler(uc fulfillment.UseCase, log logger.ZapLogger) *FulfillmentHandler {
	return &FulfillmentHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *FulfillmentHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/fulfillments")
	g.POST("", h.Create)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
	g.POST("/:id/advance", h.Advance)
	g.POST("/:id/assign", h.Assign)

	rg.GET("/orders/:id/fulfillments", h.ListByOrder)
}

type createRequest struct {
	OrderID           string           `json:"order_id" binding:"required"`
	Items             []dto.CreateItem `json:"items" binding:"required"`
	WarehouseLocation string           `json:"warehouse_location"`
	AssignedToID      string           `json:"assigned_to_id"`
}

type advanceRequest struct {
	Status model.FulfillmentStatus `json:"status" binding:"required"`
	Notes  string                  `json:"notes"`
}

type assignRequest struct {
	AssigneeID string `json:"assignee_id" binding:"required"`
}

func (h *FulfillmentHandler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	f, err := h.uc.Create(c.Request.Context(), &dto.CreateFulfillmentInput{
		OrderID:           req.OrderID,
		Items:             req.Items,
		WarehouseLocation: req.WarehouseLocation,
		AssignedToID:      req.AssignedToID,
		UserID:            auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.Created(c, f)
}

func (h *FulfillmentHandler) Get(c *gin.Context) {
	f, err := h.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, f)
}

func (h *FulfillmentHandler) ListByOrder(c *gin.Context) {
	items, err := h.uc.ListByOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, items)
}

func (h *FulfillmentHandler) Advance(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	f, err := h.uc.Advance(c.Request.Context(), &dto.AdvanceInput{
		FulfillmentID: c.Param("id"),
		Status:        req.Status,
		Notes:         req.Notes,
		UserID:        auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, f)
}

func (h *FulfillmentHandler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	f, err := h.uc.Assign(c.Request.Context(), &dto.AssignInput{
		FulfillmentID: c.Param("id"),
		AssigneeID:    req.AssigneeID,
		UserID:        auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, f)
}

func (h *FulfillmentHandler) Stats(c *gin.Context) {
	stats, err := h.uc.Stats(c.Request.Context())
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, stats)
}
