package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/mentionproxy/internal/config"
	"github.com/okian/mentionproxy/pkg/logger"
	"github.com/okian/mentionproxy/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testConfig(baseURL string) *config.Config {
	cfg := config.New(context.Background())
	cfg.BaseURL = baseURL
	cfg.LogLevel = "error"
	return cfg
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("SERVER_PORT", "8080")
			defer func() { _ = os.Unsetenv("SERVER_PORT") }()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr(), convey.ShouldEqual, ":8080")
			})
		})

		convey.Convey("When mapping configuration onto the service", func() {
			cfg := testConfig(config.DefaultBaseURL)
			cfg.APIKeyID = "key-1"
			cfg.CachePrivateKey = true
			svc := newService(cfg, logger.Get())

			convey.Convey("Then the service reflects it", func() {
				stats := svc.GetStats()
				convey.So(stats["authenticated"], convey.ShouldEqual, true)
				convey.So(stats["cachedKey"], convey.ShouldEqual, true)
				convey.So(stats["baseURL"], convey.ShouldEqual, config.DefaultBaseURL)
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			srv := newHTTPServer(":3001", http.NotFoundHandler())

			convey.Convey("Then it has no write timeout", func() {
				convey.So(srv.Addr, convey.ShouldEqual, ":3001")
				convey.So(srv.WriteTimeout, convey.ShouldEqual, time.Duration(0))
				convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given a proxy wired against a fake upstream", t, func() {
		var upstreamPath string
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			upstreamPath = r.URL.RequestURI()
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"ticker":"FOO-BAR"}`)
		}))
		defer upstream.Close()

		ctx := context.Background()
		cfg := testConfig(upstream.URL + "/trade-api/v2")
		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		proxy := httptest.NewServer(newHandler(ctx, cfg, svc))
		defer proxy.Close()

		get := func(path string) (*http.Response, string) {
			resp, err := http.Get(proxy.URL + path)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()
			body, _ := io.ReadAll(resp.Body)
			return resp, string(body)
		}

		convey.Convey("When fetching a market", func() {
			resp, body := get("/api/kalshi/markets/FOO-BAR")

			convey.Convey("Then the upstream answer is relayed", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(body, convey.ShouldEqual, `{"ticker":"FOO-BAR"}`)
				convey.So(upstreamPath, convey.ShouldEqual, "/trade-api/v2/markets/FOO-BAR")
				convey.So(resp.Header.Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "*")
			})
		})

		convey.Convey("When fetching health and docs", func() {
			health, healthBody := get("/api/health")
			docs, _ := get("/openapi.yaml")

			convey.Convey("Then both are served locally", func() {
				convey.So(health.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(healthBody, convey.ShouldContainSubstring, `"status":"ok"`)
				convey.So(docs.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(upstreamPath, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When fetching metrics", func() {
			_, _ = get("/api/kalshi/exchange/status")
			_, body := get("/metrics")

			convey.Convey("Then upstream counters are exposed", func() {
				convey.So(strings.Contains(body, "upstream_requests_total"), convey.ShouldBeTrue)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a config listening on an ephemeral port", t, func() {
		cfg := testConfig(config.DefaultBaseURL)
		cfg.ServerPort = 0

		convey.Convey("When the context is canceled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			err := run(ctx, cfg)

			convey.Convey("Then the server shuts down cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When creating a metrics manager on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(registry))

			convey.Convey("Then it should be creatable", func() {
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}
