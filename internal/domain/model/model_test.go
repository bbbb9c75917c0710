package model_test

import (
	"testing"

	model "github.com/okian/edusynth/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestWorkUnit(t *testing.T) {
	convey.Convey("Given work units", t, func() {
		a := model.WorkUnit{Subject: "الرياضيات", Level: "ماجستير", Variant: "v1"}
		b := model.WorkUnit{Subject: "الرياضيات", Level: "ماجستير", Variant: "v1"}

		convey.Convey("Then equal tuples collapse to one map key", func() {
			m := map[model.WorkUnit]int{a: 1}
			m[b]++
			convey.So(len(m), convey.ShouldEqual, 1)
			convey.So(m[a], convey.ShouldEqual, 2)
		})

		convey.Convey("Then String omits an empty variant", func() {
			convey.So(a.String(), convey.ShouldEqual, "الرياضيات/ماجستير/v1")
			convey.So(model.WorkUnit{Subject: "s", Level: "l"}.String(), convey.ShouldEqual, "s/l")
		})
	})
}

func TestRecordUnit(t *testing.T) {
	convey.Convey("Given persisted records", t, func() {
		rec := model.Record{"Subject": "s", "Level": "l", "Question Type": "q"}

		convey.Convey("When the task has a variant dimension", func() {
			u, ok := rec.Unit("Level", "Question Type")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(u, convey.ShouldResemble, model.WorkUnit{Subject: "s", Level: "l", Variant: "q"})
		})

		convey.Convey("When the task has none", func() {
			u, ok := rec.Unit("Level", "")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(u.Variant, convey.ShouldEqual, "")
		})

		convey.Convey("When a key is missing or mistyped", func() {
			_, ok := rec.Unit("Education Level", "")
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = model.Record{"Subject": "s", "Level": 3.0}.Unit("Level", "")
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = rec.Unit("Level", "Anxiety Level")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestAnswerContestant(t *testing.T) {
	convey.Convey("Answer exposes its contestant name", t, func() {
		convey.So(model.Answer{"model": "gpt-4o", "answer": "x"}.Contestant(), convey.ShouldEqual, "gpt-4o")
		convey.So(model.Answer{"answer": "x"}.Contestant(), convey.ShouldEqual, "")
	})
}
