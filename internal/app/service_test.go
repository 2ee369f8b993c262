package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/dupscan/internal/adapters/repository"
	service "github.com/okian/dupscan/internal/app"
	"github.com/okian/dupscan/internal/domain/errkind"
	"github.com/okian/dupscan/internal/domain/model"
	"github.com/okian/dupscan/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var errBroken = errors.New("disk on fire")

type brokenSource struct{}

func (brokenSource) Get(context.Context, string, string) (model.DonorRecord, error) {
	return model.DonorRecord{}, errBroken
}

func (brokenSource) All(context.Context, string) ([]model.DonorRecord, error) {
	return nil, errBroken
}

func (brokenSource) Driver() string { return "broken" }

func seeded() *repository.MemorySource {
	ctx := context.Background()
	src := repository.NewMemorySource()
	for _, r := range []model.DonorRecord{
		{ID: model.Str("a"), Email: model.Str("luc@example.com"), FirstName: "Luc", LastName: "Côté", Phone: model.Str("514 555 0101")},
		{ID: model.Str("b"), Email: model.Str("LUC@example.com"), FirstName: "Luc", LastName: "Coté", Mobile: model.Str("514-555-0101")},
		{ID: model.Str("c"), Email: model.Str("anne@example.com"), FirstName: "Anne", LastName: "Roy"},
	} {
		if err := src.Put(ctx, "t1", r); err != nil {
			panic(err)
		}
	}
	return src
}

func intPtr(v int) *int { return &v }

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it is not started", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("Then operations fail as internal until started", func() {
			_, err := svc.ScanAllDuplicates(context.Background(), "t1", nil)
			So(errors.Is(err, errkind.ErrInternal), ShouldBeTrue)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service over a memory source", t, func() {
		svc := service.New(
			service.WithSource(seeded()),
			service.WithWorkerCount(2),
			service.WithQueueSize(4),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then stats report the running components", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["driver"], ShouldEqual, "memory")
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["totalWeight"], ShouldEqual, 130.0)
		})

		Convey("When stopping the service", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Reset(svc.Stop)
	})
}

func TestService_Operations(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithSource(seeded()), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("FindDuplicatesFor finds the reformatted twin", func() {
			res, err := svc.FindDuplicatesFor(ctx, "t1", "a", nil)
			So(err, ShouldBeNil)
			So(res.Duplicates, ShouldHaveLength, 1)
			So(res.Duplicates[0].Record.Key(), ShouldEqual, "b")
		})

		Convey("FindDuplicatesFor passes NotFound through", func() {
			_, err := svc.FindDuplicatesFor(ctx, "t1", "zzz", nil)
			So(errors.Is(err, errkind.ErrNotFound), ShouldBeTrue)
		})

		Convey("ScanAllDuplicates reports the pair once", func() {
			res, err := svc.ScanAllDuplicates(ctx, "t1", nil)
			So(err, ShouldBeNil)
			So(res.TotalRecordsScanned, ShouldEqual, 3)
			So(res.DuplicateGroups, ShouldHaveLength, 1)
		})

		Convey("CheckBatchDuplicates flags a returning donor", func() {
			res, err := svc.CheckBatchDuplicates(ctx, "t1", []model.DonorRecord{
				{Email: model.Str("anne@example.com"), FirstName: "Anne", LastName: "Roy"},
			}, nil)
			So(err, ShouldBeNil)
			So(res.DuplicatesFound, ShouldEqual, 1)
			So(res.Results[0].Duplicates[0].Record.Key(), ShouldEqual, "c")
		})

		Convey("An out-of-range minScore is InvalidInput", func() {
			_, err := svc.ScanAllDuplicates(ctx, "t1", intPtr(101))
			So(errors.Is(err, errkind.ErrInvalidInput), ShouldBeTrue)
			_, err = svc.SubmitScan(ctx, "t1", intPtr(-5))
			So(errors.Is(err, errkind.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("A submitted scan completes and can be polled", func() {
			job, err := svc.SubmitScan(ctx, "t1", intPtr(30))
			So(err, ShouldBeNil)
			So(job.Status, ShouldEqual, model.JobQueued)
			So(job.MinScore, ShouldEqual, 30)

			var polled model.ScanJob
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				polled, err = svc.ScanJob(ctx, job.ID)
				So(err, ShouldBeNil)
				if polled.Status.Finished() {
					break
				}
				time.Sleep(5 * time.Millisecond)
			}
			So(polled.Status, ShouldEqual, model.JobDone)
			So(polled.Result, ShouldNotBeNil)
			So(polled.Result.TotalRecordsScanned, ShouldEqual, 3)
		})

		Convey("Polling an unknown job is NotFound", func() {
			_, err := svc.ScanJob(ctx, "no-such-job")
			So(errors.Is(err, errkind.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_InternalErrors(t *testing.T) {
	Convey("Given a service whose source fails", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithSource(brokenSource{}), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("Then the cause is replaced by a generic internal error", func() {
			_, err := svc.FindDuplicatesFor(ctx, "t1", "a", nil)
			So(errors.Is(err, errkind.ErrInternal), ShouldBeTrue)
			So(errors.Is(err, errBroken), ShouldBeFalse)
			So(err.Error(), ShouldNotContainSubstring, "disk on fire")
		})
	})
}

func TestService_CustomWeights(t *testing.T) {
	Convey("Given a service with an overridden email weight", t, func() {
		svc := service.New(
			service.WithSource(seeded()),
			service.WithWeights(map[string]float64{"email": 70, "postalcode": 10}),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(svc.Stop)

		Convey("Then the denominator follows the configured weights", func() {
			So(svc.GetStats()["totalWeight"], ShouldEqual, 155.0)
		})
	})
}
