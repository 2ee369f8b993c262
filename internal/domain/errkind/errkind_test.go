package errkind_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/dupscan/internal/domain/errkind"
	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorKinds(t *testing.T) {
	Convey("Given kinded errors", t, func() {
		cause := errors.New("donor d-9 does not exist")

		Convey("WrapKind keeps both kind and cause reachable", func() {
			err := errkind.WrapKind("detect.target", errkind.ErrNotFound, cause)
			So(errors.Is(err, errkind.ErrNotFound), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "detect.target: donor d-9 does not exist")
			So(errkind.KindOf(err), ShouldEqual, errkind.ErrNotFound)
		})

		Convey("WrapKind of nil is nil", func() {
			So(errkind.WrapKind("op", errkind.ErrInternal, nil), ShouldBeNil)
		})

		Convey("NewKind formats the kind", func() {
			err := errkind.NewKind("api.scan", errkind.ErrBackpressure)
			So(err.Error(), ShouldEqual, "api.scan: backpressure")
			So(errkind.KindOf(err), ShouldEqual, errkind.ErrBackpressure)
		})

		Convey("Errorf builds a descriptive message", func() {
			err := errkind.Errorf("detect.batch", errkind.ErrInvalidInput, "minScore %d out of range", 101)
			So(err.Error(), ShouldContainSubstring, "minScore 101 out of range")
			So(errors.Is(err, errkind.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Wrap keeps known kinds and marks the rest internal", func() {
			known := errkind.NewKind("inner", errkind.ErrInvalidInput)
			So(errkind.Wrap("outer", known), ShouldEqual, known)

			wrapped := errkind.Wrap("store.all", fmt.Errorf("query: %w", cause))
			So(errors.Is(wrapped, errkind.ErrInternal), ShouldBeTrue)
			So(errkind.KindOf(cause), ShouldEqual, errkind.ErrInternal)
		})
	})
}
