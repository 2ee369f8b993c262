package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a custom registry and options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied and metrics are registered", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "sub")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 10})

				manager.operations.WithLabelValues("scan", "ok").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When empty option values are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "dupscan")
				So(manager.histogramBuckets, ShouldNotBeEmpty)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given a configured global manager", t, func() {
		Configure(WithNamespace("acme"), WithSubsystem("dedupe"), WithHistogramBuckets([]float64{2, 20}))
		Reset(func() { Configure() })

		RecordOperation("scan", "ok")
		RecordOperationDuration("scan", 7)

		Convey("Then recorders write to the new registry under the new names", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			names := map[string]bool{}
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["acme_dedupe_operations_total"], ShouldBeTrue)
			So(names["dupscan_engine_operations_total"], ShouldBeFalse)
			So(testutil.ToFloat64(globalManager.operations.WithLabelValues("scan", "ok")), ShouldEqual, 1)
			So(globalManager.histogramBuckets, ShouldResemble, []float64{2, 20})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording detection metrics", func() {
			before := testutil.ToFloat64(globalManager.operations.WithLabelValues("target", "ok"))
			RecordOperation("target", "ok")
			RecordPairComparisons("target", 41)
			RecordOperationDuration("target", 3)
			RecordCandidatesReturned("target", 2)
			UpdateRecordsScanned(42)

			Convey("Then counters and gauges reflect the calls", func() {
				So(testutil.ToFloat64(globalManager.operations.WithLabelValues("target", "ok")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.pairComparisons.WithLabelValues("target")), ShouldBeGreaterThanOrEqualTo, 41)
				So(testutil.ToFloat64(globalManager.recordsScanned), ShouldEqual, 42)
			})
		})

		Convey("When recording queue and worker metrics", func() {
			UpdateQueueCapacity(10)
			UpdateQueueSize(3)
			UpdateQueueUtilization(0.3)
			IncWorkerActive()
			IncWorkerActive()
			DecWorkerActive()

			Convey("Then gauges hold the latest values", func() {
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.workerActiveCount), ShouldEqual, 1)
			})
			DecWorkerActive()
		})

		Convey("When recording the remaining metrics", func() {
			So(func() {
				RecordRepositoryQueryLatency("memory", "all", 1)
				RecordRepositoryError("sqlite", "get")
				RecordSnapshotSize("memory", 12)
				RecordHTTPRequest("scan", "POST", "200")
				RecordHTTPRequestDuration("scan", "POST", "200", 12)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(2)
				RecordScanJob("done")
				RecordScanJobDuration(150)
				RecordErrorByComponent("worker", "scan_failed")
				RecordErrorByType("internal", "high")
				RecordErrorByEndpoint("scan", "POST", "server_error")
				RecordErrorLatency("http", "server_error", 5)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.5)
			}, ShouldNotPanic)
		})

		Convey("Then the registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
