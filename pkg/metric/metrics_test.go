package metric

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFactory_ExposesITNCounters(t *testing.T) {
	f := NewFactory()

	f.ITN().Received()
	f.ITN().Rejected("invalid_signature")
	f.ITN().Reconciled("paid")
	f.ITN().AllowlistLookup(10*time.Millisecond, errors.New("timeout"))
	f.HTTP().Request(http.MethodPost, "/wc-api/qpay", http.StatusOK, time.Millisecond)
	f.Cache().Hit("allowlist")

	rec := httptest.NewRecorder()
	f.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(body, `qpay_gateway_itn_rejected_total{reason="invalid_signature"} 1`))
	require.True(t, strings.Contains(body, `qpay_gateway_itn_reconciled_total{action="paid"} 1`))
	require.True(t, strings.Contains(body, `qpay_gateway_http_requests_total{method="POST",path="/wc-api/qpay",status="2xx"} 1`))
}

func TestStatusClass(t *testing.T) {
	require.Equal(t, "2xx", statusClass(200))
	require.Equal(t, "4xx", statusClass(404))
	require.Equal(t, "5xx", statusClass(503))
	require.Equal(t, "unknown", statusClass(42))
}
