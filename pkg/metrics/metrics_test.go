package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// findFamily returns the gathered family whose name ends with suffix.
func findFamily(families []*dto.MetricFamily, suffix string) *dto.MetricFamily {
	for _, f := range families {
		if strings.HasSuffix(f.GetName(), suffix) {
			return f
		}
	}
	return nil
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a dedicated registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("test"),
				WithSubsystem("edge"),
				WithMetricPrefix("kx"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithCustomLabels(map[string]string{"env": "test"}),
			)
			manager.signingAttempts.Inc()

			Convey("Then metric names carry namespace, subsystem and prefix", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				family := findFamily(families, "signing_attempts_total")
				So(family, ShouldNotBeNil)
				So(family.GetName(), ShouldEqual, "test_edge_kx_signing_attempts_total")
				So(family.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 1)
			})

			Convey("And constant labels are attached", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				family := findFamily(families, "signing_attempts_total")
				So(family, ShouldNotBeNil)
				labels := family.GetMetric()[0].GetLabel()
				So(len(labels), ShouldEqual, 1)
				So(labels[0].GetName(), ShouldEqual, "env")
				So(labels[0].GetValue(), ShouldEqual, "test")
			})
		})

		Convey("When registering two managers on the same registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the duplicate registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics helpers", t, func() {
		Convey("When recording upstream outcomes", func() {
			RecordUpstreamRequest("/markets", "GET", "200")
			RecordUpstreamRequest("/markets", "GET", "200")
			RecordUpstreamLatency("/markets", "GET", 42)
			RecordUpstreamFailure("transport")

			Convey("Then the custom registry exposes them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)

				requests := findFamily(families, "upstream_requests_total")
				So(requests, ShouldNotBeNil)
				var total float64
				for _, m := range requests.GetMetric() {
					total += m.GetCounter().GetValue()
				}
				So(total, ShouldBeGreaterThanOrEqualTo, 2)

				So(findFamily(families, "upstream_latency_milliseconds"), ShouldNotBeNil)
				So(findFamily(families, "upstream_failures_total"), ShouldNotBeNil)
			})
		})

		Convey("When tracking in-flight calls", func() {
			IncUpstreamInFlight()
			IncUpstreamInFlight()
			DecUpstreamInFlight()

			Convey("Then the gauge reflects the balance", func() {
				So(globalManager.upstreamInFlight, ShouldNotBeNil)
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				gauge := findFamily(families, "upstream_in_flight")
				So(gauge, ShouldNotBeNil)
				So(gauge.GetMetric()[0].GetGauge().GetValue(), ShouldBeGreaterThanOrEqualTo, 1)
				DecUpstreamInFlight()
			})
		})

		Convey("When recording signing, error and system metrics", func() {
			So(func() {
				RecordSigningAttempt()
				RecordSigningFailure("key_unavailable")
				RecordKeyLoad("file", "ok")
				RecordKeyLoad("file", "error")
				RecordHTTPRequest("markets", "GET", "200")
				RecordHTTPRequestDuration("markets", "GET", "200", 3)
				RecordErrorByComponent("forwarder", "sign")
				RecordErrorByType("server_error", "high")
				RecordErrorByEndpoint("orders", "POST", "server_error")
				RecordErrorLatency("http", "server_error", 12)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given recording is disabled", t, func() {
		previous := globalManager
		registry := prometheus.NewRegistry()
		globalManager = NewManager(WithPrometheusRegistry(registry), WithMetricsEnabled(false))
		defer func() { globalManager = previous }()

		RecordSigningAttempt()
		RecordUpstreamRequest("/markets", "GET", "200")

		Convey("Then counters stay at zero", func() {
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			attempts := findFamily(families, "signing_attempts_total")
			So(attempts, ShouldNotBeNil)
			So(attempts.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 0)
			So(findFamily(families, "upstream_requests_total"), ShouldBeNil)
		})
	})
}
