package handler

import (
	"strconv"

	"github.com/fekuna/omnipos-inventory-service/internal/alert"
	"github.com/fekuna/omnipos-inventory-service/internal/alert/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/server/respond"
	"github.com/gin-gonic/gin"
)

type AlertHandler struct {
	uc     alert.UseCase
	logger logger.ZapLogger
}

func NewAlertHandler(uc alert.UseCase, log logger.ZapLogger) *AlertHandler {
	return &AlertHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *AlertHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/alerts")
	g.GET("", h.List)
	g.GET("/low-stock", h.LowStockReport)
	g.POST("/evaluate", h.Evaluate)
	g.POST("/:id/acknowledge", h.Acknowledge)
}

type evaluateRequest struct {
	VariantID  string `json:"variant_id"`
	LocationID string `json:"location_id"`
}

type acknowledgeRequest struct {
	Notes string `json:"notes"`
}

func (h *AlertHandler) List(c *gin.Context) {
	page, pageSize := respond.Page(c)
	openOnly, _ := strconv.ParseBool(c.Query("open_only"))

	items, total, err := h.uc.ListAlerts(c.Request.Context(), &dto.AlertFilters{
		VariantID:  c.Query("variant_id"),
		LocationID: c.Query("location_id"),
		Severity:   model.AlertSeverity(c.Query("severity")),
		OpenOnly:   openOnly,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.List(c, items, total, page, pageSize)
}

func (h *AlertHandler) LowStockReport(c *gin.Context) {
	report, err := h.uc.LowStockReport(c.Request.Context(), &dto.ReportFilters{
		LocationID: c.Query("location_id"),
		Severity:   model.AlertSeverity(c.Query("severity")),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, report)
}

// Evaluate checks one (variant, location) pair. An empty body sweeps every
// thresholded level instead.
func (h *AlertHandler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	if req.VariantID == "" && req.LocationID == "" {
		result, err := h.uc.Sweep(c.Request.Context())
		if err != nil {
			respond.Error(c, h.logger, err)
			return
		}
		respond.OK(c, result)
		return
	}
	if req.VariantID == "" || req.LocationID == "" {
		respond.BadRequest(c, "variant_id and location_id are required together")
		return
	}

	eval, err := h.uc.Evaluate(c.Request.Context(), req.VariantID, req.LocationID)
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, eval)
}

func (h *AlertHandler) Acknowledge(c *gin.Context) {
	var req acknowledgeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	a, err := h.uc.Acknowledge(c.Request.Context(), &dto.AcknowledgeInput{
		AlertID: c.Param("id"),
		Notes:   req.Notes,
		UserID:  auth.GetActor(c.Request.Context()),
	})
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, a)
}
