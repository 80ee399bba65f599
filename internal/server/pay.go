package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/VladKovDev/qpay-gateway/internal/domain/order"
	"github.com/VladKovDev/qpay-gateway/internal/qpay"
	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const noStore = "no-cache, must-revalidate, max-age=0, no-store, private"

func (h *Handler) payHandler(c *gin.Context) {
	const op = "server.payHandler"

	ctx := c.Request.Context()
	log := logger.FromContext(ctx, h.log)

	id, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil || id <= 0 {
		h.unavailable(c, http.StatusBadRequest)
		return
	}

	o, err := h.deps.Orders.GetByID(ctx, id)
	if errors.Is(err, order.ErrNotFound) {
		h.unavailable(c, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error(op+" failed", zap.Int64("order_id", id), zap.Error(err))
		h.unavailable(c, http.StatusInternalServerError)
		return
	}
	if o.Status != order.StatusPending {
		log.Warn("payment requested for a settled order",
			zap.Int64("order_id", id),
			zap.String("status", string(o.Status)),
		)
		h.unavailable(c, http.StatusConflict)
		return
	}

	req, err := h.deps.Builder.Build(o, c.Query("locale"))
	if err != nil {
		h.buildFailed(c, id, err)
		return
	}

	page := payPage{GatewayURL: req.GatewayURL}
	for _, f := range req.Fields() {
		page.Fields = append(page.Fields, payField{Name: f.Name, Value: f.Value})
	}

	log.Info("redirecting buyer to qpay",
		zap.Int64("order_id", id),
		zap.String("gateway", req.GatewayURL),
		zap.String("amount", req.Amount),
	)

	c.Header("Cache-Control", noStore)
	c.HTML(http.StatusOK, "pay.html", page)
}

func (h *Handler) buildFailed(c *gin.Context, id int64, err error) {
	log := logger.FromContext(c.Request.Context(), h.log)

	var cfgErr *qpay.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		log.Error("qpay gateway misconfigured",
			zap.Int64("order_id", id),
			zap.Strings("missing", cfgErr.Missing),
			zap.String("detail", cfgErr.Detail),
		)
		h.unavailable(c, http.StatusInternalServerError)
	case errors.Is(err, qpay.ErrInvalidOrder):
		log.Warn("order cannot be paid", zap.Int64("order_id", id), zap.Error(err))
		h.unavailable(c, http.StatusBadRequest)
	default:
		log.Error("failed to build payment request", zap.Int64("order_id", id), zap.Error(err))
		h.unavailable(c, http.StatusInternalServerError)
	}
}

func (h *Handler) unavailable(c *gin.Context, status int) {
	c.Header("Cache-Control", noStore)
	c.HTML(status, "error.html", errorPage{Message: h.deps.Messages.BuyerUnavailable})
}

func (h *Handler) noticeHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("order_id"), 10, 64)
	if err != nil || id <= 0 || h.deps.Notices == nil {
		c.Status(http.StatusNoContent)
		return
	}

	if !h.deps.Notices.Consume(id) {
		c.Status(http.StatusNoContent)
		return
	}

	c.Header("Cache-Control", noStore)
	c.JSON(http.StatusOK, gin.H{
		"order_id": id,
		"type":     "error",
		"message":  fmt.Sprintf(h.deps.Messages.BuyerPaymentFailed, id),
	})
}
