package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/juryboard/internal/config"
	"github.com/okian/juryboard/internal/testutil"
	"github.com/okian/juryboard/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.New()
	cfg.Addr = "127.0.0.1:0"
	cfg.DBDSN = testutil.SQLiteDSN(t.TempDir())
	cfg.WorkerCount = 2
	return cfg
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given a service built from configuration", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		store := testutil.OpenStore(t)
		cfg := testConfig(t)
		ctx := context.Background()

		svc, err := newService(cfg, store)
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()
		mux := newMux(ctx, cfg, svc)

		convey.Convey("Then every public route should answer", func() {
			for _, path := range []string{"/healthz", "/stats", "/openapi.yaml", "/api-docs", "/participant-rankings"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest("GET", path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then the configured page size cap should apply", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("GET", "/participant-rankings?page_size=201", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
		})
	})

	convey.Convey("Given an unknown collation", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		cfg := testConfig(t)
		cfg.Collation = "not a tag"

		convey.Convey("Then building the service should fail", func() {
			_, err := newService(cfg, testutil.OpenStore(t))
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a runnable configuration", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		cfg := testConfig(t)
		ctx, cancel := context.WithCancel(context.Background())

		convey.Convey("When the root context is canceled", func() {
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg) }()
			time.Sleep(200 * time.Millisecond)
			cancel()

			convey.Convey("Then run should shut down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(10 * time.Second):
					t.Fatal("run did not return after cancel")
				}
			})
		})

		convey.Convey("When the driver is unsupported", func() {
			defer cancel()
			cfg.DBDriver = "oracle"

			convey.Convey("Then run should fail before serving", func() {
				convey.So(run(ctx, cfg), convey.ShouldNotBeNil)
			})
		})
	})
}
