package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsConfig struct {
	Skipper     Skipper
	Buckets     []float64
	MetricsPath string
}

var DefaultMetricsConfig = MetricsConfig{
	Skipper:     DefaultSkipper,
	Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	MetricsPath: "/metrics",
}

// Metrics records a request duration histogram per method/path/status and
// serves the prometheus endpoint at MetricsPath.
func Metrics() echo.MiddlewareFunc {
	return MetricsWithConfig(DefaultMetricsConfig)
}

func MetricsWithConfig(config MetricsConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = DefaultMetricsConfig.Skipper
	}
	if len(config.Buckets) == 0 {
		config.Buckets = DefaultMetricsConfig.Buckets
	}
	if config.MetricsPath == "" {
		config.MetricsPath = DefaultMetricsConfig.MetricsPath
	}

	duration := promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method, path and status.",
		Buckets: config.Buckets,
	}, []string{"method", "path", "status"})

	metricsHandler := echo.WrapHandler(promhttp.Handler())

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == config.MetricsPath {
				return metricsHandler(c)
			}
			if config.Skipper(c) {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			duration.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(c.Response().Status),
			).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
