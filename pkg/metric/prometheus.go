package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "qpay_gateway"

var _ Factory = (*prometheusFactory)(nil)

type prometheusFactory struct {
	registry *prometheus.Registry
	http     *httpMetrics
	itn      *itnMetrics
	cache    *cacheMetrics
}

func NewFactory() Factory {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &prometheusFactory{
		registry: reg,
		http:     newHTTPMetrics(reg),
		itn:      newITNMetrics(reg),
		cache:    newCacheMetrics(reg),
	}
}

func (f *prometheusFactory) HTTP() HTTP {
	return f.http
}

func (f *prometheusFactory) ITN() ITN {
	return f.itn
}

func (f *prometheusFactory) Cache() Cache {
	return f.cache
}

func (f *prometheusFactory) Handler() http.Handler {
	return promhttp.HandlerFor(f.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
