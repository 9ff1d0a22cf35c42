package handler

import (
	"strconv"

	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/server/respond"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	uc     order.UseCase
	logger logger.ZapLogger
}

func NewOrderHandler(uc order.UseCase, log logger.ZapLogger) *OrderHandler {
	return &OrderHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *OrderHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/orders")
	g.POST("", h.Create)
	g.POST("/bulk-transition", h.BulkTransition)
	g.GET("/:id", h.Get)
	g.POST("/:id/transition", h.Transition)
	g.POST("/:id/reserve", h.ReserveItems)
	g.GET("/:id/history", h.History)
	g.GET("/:id/notes", h.ListNotes)
	g.POST("/:id/notes", h.AddNote)
}

type createRequest struct {
	OrderNumber string `json:"order_number" binding:"required"`
}

type transitionRequest struct {
	Status   model.OrderStatus      `json:"status" binding:"required"`
	Note     string                 `json:"note"`
	Metadata map[string]interface{} `json:"metadata"`
}

type bulkTransitionRequest struct {
	OrderIDs []string          `json:"order_ids" binding:"required"`
	Status   model.OrderStatus `json:"status" binding:"required"`
	Note     string            `json:"note"`
}

type reserveRequest struct {
	Items []dto.ReserveItem `json:"items" binding:"required"`
}

type noteRequest struct {
	Note       string `json:"note" binding:"required"`
	IsInternal bool   `json:"is_internal"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	o, err := h.uc.Create(c.Request.Context(), &dto.CreateOrderInput{
		OrderNumber: req.OrderNumber,
		UserID:      auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.Created(c, o)
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, o)
}

func (h *OrderHandler) Transition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	o, err := h.uc.Transition(c.Request.Context(), &dto.TransitionInput{
		OrderID:   c.Param("id"),
		NewStatus: req.Status,
		Note:      req.Note,
		UserID:    auth.GetActor(c.Request.Context()),
		Metadata:  req.Metadata,
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, o)
}

func (h *OrderHandler) BulkTransition(c *gin.Context) {
	var req bulkTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result := h.uc.BulkTransition(c.Request.Context(), &dto.BulkTransitionInput{
		OrderIDs:  req.OrderIDs,
		NewStatus: req.Status,
		Note:      req.Note,
		UserID:    auth.GetActor(c.Request.Context()),
	})
	respond.OK(c, result)
}

func (h *OrderHandler) ReserveItems(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	reserved, err := h.uc.ReserveItems(c.Request.Context(), &dto.ReserveItemsInput{
		OrderID: c.Param("id"),
		Items:   req.Items,
		UserID:  auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, reserved)
}

func (h *OrderHandler) History(c *gin.Context) {
	page, pageSize := respond.Page(c)
	items, total, err := h.uc.History(c.Request.Context(), &dto.HistoryFilters{
		OrderID:  c.Param("id"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.List(c, items, total, page, pageSize)
}

func (h *OrderHandler) ListNotes(c *gin.Context) {
	includeInternal, _ := strconv.ParseBool(c.DefaultQuery("include_internal", "false"))
	notes, err := h.uc.ListNotes(c.Request.Context(), c.Param("id"), includeInternal)
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, notes)
}

func (h *OrderHandler) AddNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	note, err := h.uc.AddNote(c.Request.Context(), &dto.AddNoteInput{
		OrderID:    c.Param("id"),
		Note:       req.Note,
		IsInternal: req.IsInternal,
		UserID:     auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.Created(c, note)
}
