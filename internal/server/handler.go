package server

import (
	"context"
	"html/template"
	"net/http"

	"github.com/VladKovDev/qpay-gateway/internal/domain/order"
	"github.com/VladKovDev/qpay-gateway/internal/qpay"
	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/VladKovDev/qpay-gateway/pkg/metric"
	"github.com/gin-gonic/gin"
)

const (
	DefaultITNPath = "/wc-api/qpay"

	itnAck = "Received ITN data"
)

type ITNValidator interface {
	Validate(ctx context.Context, n *qpay.Notification, src qpay.Source) qpay.Result
}

type Reconciler interface {
	Reconcile(ctx context.Context, n *qpay.Notification) (qpay.Outcome, error)
}

type RequestBuilder interface {
	Build(o *order.Order, locale string) (*qpay.PaymentRequest, error)
}

type OrderReader interface {
	GetByID(ctx context.Context, id int64) (*order.Order, error)
}

type NoticeReader interface {
	Consume(orderID int64) bool
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer drives.
type Deps struct {
	Validator  ITNValidator
	Reconciler Reconciler
	Builder    RequestBuilder
	Orders     OrderReader
	Notices    NoticeReader
	Messages   qpay.Messages
	Metrics    metric.Factory
	Log        logger.Logger
	ITNPath    string

	// Health is optional; without it /health only reports the process is up.
	Health HealthChecker
}

type Handler struct {
	deps    Deps
	log     logger.Logger
	metrics metric.Factory
	router  *gin.Engine
}

func NewHandler(deps Deps) *Handler {
	if deps.Log == nil {
		deps.Log = logger.Noop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metric.Noop()
	}
	if deps.ITNPath == "" {
		deps.ITNPath = DefaultITNPath
	}

	h := &Handler{
		deps:    deps,
		log:     deps.Log,
		metrics: deps.Metrics,
	}

	router := gin.New()
	router.Use(h.requestIDMiddleware())
	router.Use(h.loggingMiddleware())
	router.Use(gin.CustomRecovery(h.recover))
	router.SetHTMLTemplate(template.Must(template.New("qpay").Parse(pageTemplates)))

	h.router = router
	h.setupRoutes()

	return h
}

func (h *Handler) Engine() *gin.Engine {
	return h.router
}

func (h *Handler) setupRoutes() {
	h.router.GET("/health", h.healthHandler)
	h.router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	h.router.POST(h.deps.ITNPath, h.itnHandler)

	pay := h.router.Group("/qpay")
	{
		pay.GET("/pay/:order_id", h.payHandler)
		pay.GET("/notice", h.noticeHandler)
	}
}

func (h *Handler) healthHandler(c *gin.Context) {
	if h.deps.Health != nil {
		if err := h.deps.Health.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
