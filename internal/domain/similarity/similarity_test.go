package similarity_test

import (
	"testing"

	"github.com/okian/dupscan/internal/domain/similarity"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRatio(t *testing.T) {
	Convey("Given pairs of strings", t, func() {
		Convey("Equal strings score 1", func() {
			So(similarity.Ratio("tremblay", "tremblay"), ShouldEqual, 1.0)
			So(similarity.Ratio("", ""), ShouldEqual, 1.0)
		})

		Convey("One empty side scores 0", func() {
			So(similarity.Ratio("", "roy"), ShouldEqual, 0.0)
			So(similarity.Ratio("roy", ""), ShouldEqual, 0.0)
		})

		Convey("A single substitution is measured against the longer string", func() {
			So(similarity.Ratio("jean", "joan"), ShouldAlmostEqual, 0.75)
			So(similarity.Ratio("tremblay", "tremblai"), ShouldAlmostEqual, 0.875)
		})

		Convey("Insertions count once", func() {
			So(similarity.Distance("marie", "maries"), ShouldEqual, 1)
			So(similarity.Ratio("marie", "maries"), ShouldAlmostEqual, 1-1.0/6)
		})

		Convey("Accented characters count as one rune and are not folded", func() {
			So(similarity.Distance("roy", "côté"), ShouldEqual, 4)
			So(similarity.Ratio("roy", "côté"), ShouldEqual, 0.0)
			So(similarity.Ratio("éric", "eric"), ShouldAlmostEqual, 0.75)
		})

		Convey("The ratio is symmetric", func() {
			So(similarity.Ratio("123 rue main", "123 main st"), ShouldEqual, similarity.Ratio("123 main st", "123 rue main"))
		})
	})
}
