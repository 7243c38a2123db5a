package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager, err := NewManager(WithPrometheusRegistry(registry))

			Convey("Then every collector should be registered", func() {
				So(err, ShouldBeNil)
				So(manager, ShouldNotBeNil)
				families, gatherErr := registry.Gather()
				So(gatherErr, ShouldBeNil)
				// vectors without observations are not gathered; plain collectors are
				So(len(families), ShouldBeGreaterThan, 10)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager, err := NewManager(
				WithNamespace("test"),
				WithSubsystem("ranking"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names should use the namespace and subsystem", func() {
				So(err, ShouldBeNil)
				manager.scoresPersisted.Inc()
				families, gatherErr := registry.Gather()
				So(gatherErr, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_ranking_scores_persisted_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When registering twice on the same registry", func() {
			registry := prometheus.NewRegistry()
			_, err := NewManager(WithPrometheusRegistry(registry))
			So(err, ShouldBeNil)
			_, err = NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should report ErrRegister", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, ErrRegister), ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording ranking queries", func() {
			before := testutil.ToFloat64(globalManager.rankingQueries.WithLabelValues("list", "ok"))
			RecordRankingQuery("list", "ok")
			RecordRankingQuery("list", "ok")
			RecordRankingQueryLatency("list", 3.5)
			RecordRankingScopeSize(42)

			Convey("Then the counter should advance", func() {
				after := testutil.ToFloat64(globalManager.rankingQueries.WithLabelValues("list", "ok"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording score ingestion", func() {
			before := testutil.ToFloat64(globalManager.scoresPersisted)
			RecordScoreSubmission("accepted")
			RecordScoreSubmission("duplicate")
			RecordScorePersisted()
			RecordScoreWriteError("not_assigned")

			Convey("Then persisted scores should be counted", func() {
				So(testutil.ToFloat64(globalManager.scoresPersisted)-before, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.scoreSubmissions.WithLabelValues("duplicate")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating queue and worker gauges", func() {
			UpdateQueueCapacity(100)
			UpdateQueueSize(25)
			UpdateQueueUtilization(0.25)
			UpdateWorkerCount(4)

			Convey("Then gauges should hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 25)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.25)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
			})
		})

		Convey("When recording the remaining families", func() {
			So(func() {
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordRepositoryQueryLatency("aggregates", 1.2)
				RecordRepositoryUpdateLatency(0.8)
				RecordHTTPRequest("participant_rankings", "GET", "200")
				RecordHTTPRequestDuration("participant_rankings", "GET", "200", 4)
				RecordErrorByComponent("worker", "not_assigned")
				RecordErrorByType("server_error", "high")
				RecordErrorByEndpoint("scores", "POST", "client_error")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("When gathering the exported registry", func() {
			RecordHTTPRequest("healthz", "GET", "200")
			families, err := GetRegistry().Gather()

			Convey("Then every family should carry the juryboard namespace", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "juryboard_leaderboard_"), ShouldBeTrue)
				}
			})
		})
	})
}
