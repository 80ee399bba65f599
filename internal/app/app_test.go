package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/VladKovDev/qpay-gateway/internal/config"
	"github.com/VladKovDev/qpay-gateway/internal/domain/order"
	"github.com/VladKovDev/qpay-gateway/internal/qpay"
	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.SetDefaultConfig()
	cfg.Database.Driver = "memory"
	cfg.Qpay.MerchantID = "MID001"
	cfg.Qpay.MerchantKey = "s3cr3t"
	cfg.Qpay.BankID = "QPAYPG03"
	cfg.Qpay.TestMode = true
	cfg.Store.BaseURL = "https://shop.example"
	return cfg
}

func TestNewApp_MemoryEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	app, err := NewApp(ctx, testConfig(), logger.Noop())
	require.NoError(t, err)
	t.Cleanup(app.Close)

	require.NoError(t, app.Orders.Create(ctx, &order.Order{
		ID:        5,
		Key:       "wc_order_e2e",
		Total:     decimal.RequireFromString("25.00"),
		ItemCount: 1,
	}))

	engine := app.Handler.Engine()

	assert.Nil(t, app.healthChecker())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/qpay/pay/5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="ExtraFields_f14" value="https://shop.example/wc-api/qpay"`)

	n := &qpay.Notification{
		Amount:            "2500",
		MerchantSessionID: "wc_order_e2e",
		PUN:               "5",
		Status:            qpay.StatusSuccess,
		StatusMessage:     "Approved",
	}
	n.Sign("s3cr3t")

	req := httptest.NewRequest(http.MethodPost, "/wc-api/qpay", strings.NewReader(n.Form().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	o, err := app.Orders.GetByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, o.Status)
	assert.Equal(t, "25.00", o.Meta[order.MetaAmountNet])

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "qpay_gateway_itn_reconciled_total")
}

func TestNewApp_RejectsMissingAllowlistOutsideTestMode(t *testing.T) {
	cfg := testConfig()
	cfg.Qpay.TestMode = false
	cfg.Qpay.AllowlistHosts = nil

	_, err := NewApp(context.Background(), cfg, logger.Noop())
	assert.Error(t, err)
}

func TestCallbackURL(t *testing.T) {
	cfg := testConfig()
	cfg.Store.BaseURL = "https://shop.example/"
	assert.Equal(t, "https://shop.example/wc-api/qpay", callbackURL(cfg))

	cfg.Qpay.CallbackURL = "https://hooks.example/qpay"
	assert.Equal(t, "https://hooks.example/qpay", callbackURL(cfg))
}

func TestAmountEpsilon(t *testing.T) {
	assert.True(t, amountEpsilon(0).IsZero())
	assert.Equal(t, "0.01", amountEpsilon(0.01).String())
}
