package handler

import (
	"strconv"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	"github.com/fekuna/omnipos-inventory-service/internal/server/respond"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	uc     reservation.UseCase
	logger logger.ZapLogger
}

func NewReservationHandler(uc reservation.UseCase, log logger.ZapLogger) *ReservationHandler {
	return &ReservationHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ReservationHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/reservations/expire", h.Expire)
	rg.GET("/reservations/:id", h.Get)
	rg.GET("/orders/:id/reservations", h.ListByOrder)
}

// Expire runs one expiry sweep. It is the hook for external schedulers.
func (h *ReservationHandler) Expire(c *gin.Context) {
	released, err := h.uc.ExpireSweep(c.Request.Context(), time.Now().UTC())
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	h.logger.Info("Expiry sweep triggered over HTTP", zap.Int("released", len(released)))
	respond.OK(c, gin.H{
		"released_count": len(released),
		"reservations":   released,
	})
}

func (h *ReservationHandler) Get(c *gin.Context) {
	res, err := h.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, res)
}

func (h *ReservationHandler) ListByOrder(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active_only", "false"))
	items, err := h.uc.ListByOrder(c.Request.Context(), c.Param("id"), activeOnly)
	if err != nil {
		respond.Error(c, h.logger, err)
		return
	}
	respond.OK(c, items)
}
