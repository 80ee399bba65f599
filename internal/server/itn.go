package server

import (
	"net/http"

	"github.com/VladKovDev/qpay-gateway/internal/qpay"
	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// itnHandler always answers 200 so the processor stops retrying; the
// outcome is carried by logs, metrics and order state only. When the order
// moved, the body sends the buyer's browser to the store page.
func (h *Handler) itnHandler(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx, h.log)
	itn := h.metrics.ITN()
	itn.Received()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic while handling ITN", zap.Any("panic", rec), zap.Stack("stack"))
			itn.ReconcileFailed("panic")
			if !c.Writer.Written() {
				h.ack(c, "")
			}
		}
	}()

	if err := c.Request.ParseForm(); err != nil {
		log.Warn("failed to parse ITN form", zap.Error(err))
	}
	n := qpay.ParseNotification(c.Request.PostForm)

	res := h.deps.Validator.Validate(ctx, n, qpay.Source{
		RemoteAddr:   c.Request.RemoteAddr,
		ForwardedFor: c.GetHeader("X-Forwarded-For"),
	})
	if !res.OK {
		itn.Rejected(qpay.Kind(res.Reason))
		h.ack(c, "")
		return
	}

	out, err := h.deps.Reconciler.Reconcile(ctx, n)
	if err != nil {
		log.Error("failed to reconcile ITN",
			zap.String("pun", n.PUN),
			zap.String("reason", h.deps.Messages.For(err)),
			zap.Error(err),
		)
		h.ack(c, "")
		return
	}

	if out.Err != nil {
		log.Warn("ITN applied with a review flag",
			zap.Int64("order_id", out.OrderID),
			zap.String("reason", h.deps.Messages.For(out.Err)),
		)
	}
	log.Info("ITN processed",
		zap.Int64("order_id", out.OrderID),
		zap.String("action", string(out.Action)),
		zap.String("status", string(out.Status)),
	)

	h.ack(c, out.Redirect)
}

func (h *Handler) ack(c *gin.Context, redirect string) {
	if redirect == "" {
		c.String(http.StatusOK, itnAck)
		return
	}
	c.HTML(http.StatusOK, "redirect.html", redirectPage{URL: redirect, Message: itnAck})
}
