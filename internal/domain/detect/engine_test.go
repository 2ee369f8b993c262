package detect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dupscan/internal/domain/errkind"
	"github.com/okian/dupscan/internal/domain/model"
	"github.com/okian/dupscan/pkg/logger"
)

var errStoreDown = errors.New("store down")

type stubSource struct {
	records []model.DonorRecord
	err     error
	gets    int
	alls    int
}

func (s *stubSource) Get(_ context.Context, _ string, id string) (model.DonorRecord, error) {
	s.gets++
	if s.err != nil {
		return model.DonorRecord{}, s.err
	}
	for _, r := range s.records {
		if r.Key() == id {
			return r, nil
		}
	}
	return model.DonorRecord{}, errkind.Errorf("stub.Get", errkind.ErrNotFound, "donor %s", id)
}

func (s *stubSource) All(context.Context, string) ([]model.DonorRecord, error) {
	s.alls++
	if s.err != nil {
		return nil, s.err
	}
	out := append([]model.DonorRecord(nil), s.records...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func intPtr(v int) *int { return &v }

func newTestEngine(src Source, opts ...Option) *Engine {
	l, _ := logger.New(io.Discard, "text")
	return New(src, append([]Option{WithLogger(l)}, opts...)...)
}

// tremblayFixture holds a small tenant with one strong pair (1,2), one
// email-only pair (1,3) and an unrelated donor.
func tremblayFixture() []model.DonorRecord {
	return []model.DonorRecord{
		{
			ID: model.Str("1"), Email: model.Str("Marie.Tremblay@Example.com"),
			FirstName: "Marie", LastName: "Tremblay", Phone: model.Str("514-555-1234"),
			Address: model.Str("123 rue Principale"), PostalCode: model.Str("H2X 1Y4"),
		},
		{
			ID: model.Str("2"), Email: model.Str("marie.tremblay@example.com "),
			FirstName: "MARIE", LastName: "Tremblay", Mobile: model.Str("(514) 555.1234"),
			Address: model.Str("123 Rue Principale"), PostalCode: model.Str("H2X1Y4"),
		},
		{
			ID: model.Str("3"), Email: model.Str("marie.tremblay@example.com"),
			FirstName: "Zoé", LastName: "Gauthier",
		},
		{
			ID: model.Str("4"), Email: model.Str("paul@example.org"),
			FirstName: "Paul", LastName: "Lavoie", Phone: model.Str("418-555-0000"),
		},
	}
}

func TestFindDuplicatesFor(t *testing.T) {
	Convey("Given an engine over a small tenant", t, func() {
		ctx := context.Background()
		src := &stubSource{records: tremblayFixture()}
		e := newTestEngine(src)

		Convey("The reformatted twin scores 100 and email-only evidence falls below the default", func() {
			res, err := e.FindDuplicatesFor(ctx, "t1", "1", nil)
			So(err, ShouldBeNil)
			So(res.SourceRecord.Key(), ShouldEqual, "1")
			So(res.TotalFound, ShouldEqual, 1)
			So(res.Duplicates, ShouldHaveLength, 1)
			So(res.Duplicates[0].Record.Key(), ShouldEqual, "2")
			So(res.Duplicates[0].Score, ShouldEqual, 100)
			So(res.Duplicates[0].Matches, ShouldHaveLength, 6)
		})

		Convey("Lowering minScore to 30 includes the email-only match at 38", func() {
			res, err := e.FindDuplicatesFor(ctx, "t1", "1", intPtr(30))
			So(err, ShouldBeNil)
			So(res.TotalFound, ShouldEqual, 2)
			So(res.Duplicates[1].Record.Key(), ShouldEqual, "3")
			So(res.Duplicates[1].Score, ShouldEqual, 38)
		})

		Convey("The target is never paired with itself", func() {
			res, err := e.FindDuplicatesFor(ctx, "t1", "1", intPtr(0))
			So(err, ShouldBeNil)
			So(res.TotalFound, ShouldEqual, 3)
			for _, d := range res.Duplicates {
				So(d.Record.Key(), ShouldNotEqual, "1")
			}
		})

		Convey("An unknown id is NotFound", func() {
			_, err := e.FindDuplicatesFor(ctx, "t1", "999", nil)
			So(errors.Is(err, errkind.ErrNotFound), ShouldBeTrue)
		})

		Convey("An out-of-range minScore is InvalidInput and no read happens", func() {
			_, err := e.FindDuplicatesFor(ctx, "t1", "1", intPtr(101))
			So(errors.Is(err, errkind.ErrInvalidInput), ShouldBeTrue)
			_, err = e.FindDuplicatesFor(ctx, "t1", "1", intPtr(-1))
			So(errors.Is(err, errkind.ErrInvalidInput), ShouldBeTrue)
			So(src.gets, ShouldEqual, 0)
		})

		Convey("A storage failure is Internal", func() {
			src.err = errStoreDown
			_, err := e.FindDuplicatesFor(ctx, "t1", "1", nil)
			So(errors.Is(err, errkind.ErrInternal), ShouldBeTrue)
			So(errors.Is(err, errStoreDown), ShouldBeTrue)
		})
	})
}

func TestFindDuplicatesFor_Cap(t *testing.T) {
	Convey("Given a target with more matches than the cap", t, func() {
		var recs []model.DonorRecord
		for i := 0; i < 30; i++ {
			recs = append(recs, model.DonorRecord{
				ID:        model.Str(fmt.Sprintf("%02d", i)),
				Email:     model.Str("same@example.com"),
				FirstName: "Anne",
				LastName:  "Roy",
			})
		}
		e := newTestEngine(&stubSource{records: recs})

		res, err := e.FindDuplicatesFor(context.Background(), "t1", "00", nil)
		So(err, ShouldBeNil)

		Convey("Only the first 20 are returned, in discovery order, but all are counted", func() {
			So(res.TotalFound, ShouldEqual, 29)
			So(res.Duplicates, ShouldHaveLength, DefaultTargetLimit)
			So(res.Duplicates[0].Record.Key(), ShouldEqual, "01")
			So(res.Duplicates[19].Record.Key(), ShouldEqual, "20")
		})
	})
}

func TestScanAll(t *testing.T) {
	Convey("Given an engine over a small tenant", t, func() {
		ctx := context.Background()
		src := &stubSource{records: tremblayFixture()}
		e := newTestEngine(src)

		Convey("Each pair is reported once with the lower id first", func() {
			res, err := e.ScanAll(ctx, "t1", intPtr(30))
			So(err, ShouldBeNil)
			So(res.TotalRecordsScanned, ShouldEqual, 4)
			So(res.TotalFound, ShouldEqual, 3)

			seen := map[string]bool{}
			for _, g := range res.DuplicateGroups {
				So(g.RecordA.Key(), ShouldBeLessThan, g.RecordB.Key())
				key := g.RecordA.Key() + "|" + g.RecordB.Key()
				So(seen[key], ShouldBeFalse)
				seen[key] = true
			}
			So(res.DuplicateGroups[0].Score, ShouldEqual, 100)
		})

		Convey("Scanning twice yields identical results", func() {
			first, err := e.ScanAll(ctx, "t1", intPtr(0))
			So(err, ShouldBeNil)
			second, err := e.ScanAll(ctx, "t1", intPtr(0))
			So(err, ShouldBeNil)
			So(second, ShouldResemble, first)
			So(first.TotalFound, ShouldEqual, 6)
		})

		Convey("Ties keep discovery order", func() {
			res, err := e.ScanAll(ctx, "t1", intPtr(30))
			So(err, ShouldBeNil)
			// (1,3) and (2,3) both score 38 on email alone.
			So(res.DuplicateGroups[1].RecordA.Key(), ShouldEqual, "1")
			So(res.DuplicateGroups[1].RecordB.Key(), ShouldEqual, "3")
			So(res.DuplicateGroups[2].RecordA.Key(), ShouldEqual, "2")
			So(res.DuplicateGroups[2].RecordB.Key(), ShouldEqual, "3")
		})

		Convey("An empty tenant scans nothing", func() {
			src.records = nil
			res, err := e.ScanAll(ctx, "t1", nil)
			So(err, ShouldBeNil)
			So(res.TotalRecordsScanned, ShouldEqual, 0)
			So(res.DuplicateGroups, ShouldNotBeNil)
			So(res.DuplicateGroups, ShouldBeEmpty)
		})

		Convey("A cancelled context stops the scan", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := e.ScanAll(cctx, "t1", nil)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("An out-of-range minScore is InvalidInput", func() {
			_, err := e.ScanAll(ctx, "t1", intPtr(200))
			So(errors.Is(err, errkind.ErrInvalidInput), ShouldBeTrue)
			So(src.alls, ShouldEqual, 0)
		})
	})
}

func TestScanAll_Cap(t *testing.T) {
	Convey("Given more matching pairs than the scan cap", t, func() {
		var recs []model.DonorRecord
		for i := 0; i < 16; i++ {
			recs = append(recs, model.DonorRecord{
				ID:        model.Str(fmt.Sprintf("%02d", i)),
				Email:     model.Str("shared@example.com"),
				FirstName: "Luc",
				LastName:  "Côté",
			})
		}
		e := newTestEngine(&stubSource{records: recs}, WithLimits(0, 100, 0))

		res, err := e.ScanAll(context.Background(), "t1", nil)
		So(err, ShouldBeNil)
		So(res.TotalFound, ShouldEqual, 16*15/2)
		So(res.DuplicateGroups, ShouldHaveLength, 100)
	})
}

func TestCheckBatch(t *testing.T) {
	Convey("Given an engine over a small tenant", t, func() {
		ctx := context.Background()
		src := &stubSource{records: tremblayFixture()}
		e := newTestEngine(src)

		Convey("Only candidates with matches are reported, by input index", func() {
			candidates := []model.DonorRecord{
				{FirstName: "Nobody", LastName: "Known"},
				{Email: model.Str("PAUL@example.org"), FirstName: "Paul", LastName: "Lavoie", Phone: model.Str("418 555 0000")},
			}
			res, err := e.CheckBatch(ctx, "t1", candidates, nil)
			So(err, ShouldBeNil)
			So(res.TotalChecked, ShouldEqual, 2)
			So(res.DuplicatesFound, ShouldEqual, 1)
			So(res.Results[0].Index, ShouldEqual, 1)
			So(res.Results[0].Duplicates[0].Record.Key(), ShouldEqual, "4")
			So(res.Results[0].Duplicates[0].Score, ShouldEqual, 88)
		})

		Convey("Each candidate keeps at most five matches", func() {
			var recs []model.DonorRecord
			for i := 0; i < 8; i++ {
				recs = append(recs, model.DonorRecord{ID: model.Str(fmt.Sprint(i)), Email: model.Str("x@y.z"), LastName: "Roy"})
			}
			src.records = recs
			res, err := e.CheckBatch(ctx, "t1", []model.DonorRecord{{Email: model.Str("x@y.z"), LastName: "Roy"}}, nil)
			So(err, ShouldBeNil)
			So(res.Results[0].Duplicates, ShouldHaveLength, DefaultBatchLimit)
		})

		Convey("A candidate carrying a stored id is not compared with that row", func() {
			self := tremblayFixture()[3]
			res, err := e.CheckBatch(ctx, "t1", []model.DonorRecord{self}, intPtr(0))
			So(err, ShouldBeNil)
			for _, d := range res.Results[0].Duplicates {
				So(d.Record.Key(), ShouldNotEqual, "4")
			}
		})

		Convey("A missing candidate list is InvalidInput", func() {
			_, err := e.CheckBatch(ctx, "t1", nil, nil)
			So(errors.Is(err, errkind.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("An empty candidate list checks nothing", func() {
			res, err := e.CheckBatch(ctx, "t1", []model.DonorRecord{}, nil)
			So(err, ShouldBeNil)
			So(res.TotalChecked, ShouldEqual, 0)
			So(res.Results, ShouldBeEmpty)
			So(src.alls, ShouldEqual, 0)
		})

		Convey("An oversized batch is InvalidInput", func() {
			small := newTestEngine(src, WithMaxBatchSize(1))
			_, err := small.CheckBatch(ctx, "t1", make([]model.DonorRecord, 2), nil)
			So(errors.Is(err, errkind.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("A storage failure is Internal", func() {
			src.err = errStoreDown
			_, err := e.CheckBatch(ctx, "t1", []model.DonorRecord{{FirstName: "a"}}, nil)
			So(errors.Is(err, errkind.ErrInternal), ShouldBeTrue)
		})
	})
}
