package schema

import (
	"errors"
	"testing"

	"github.com/okian/edusynth/internal/catalog"
	. "github.com/smartystreets/goconvey/convey"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	r, err := New(c)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

func TestRegistryLookup(t *testing.T) {
	Convey("Given the default registry", t, func() {
		r := defaultRegistry(t)

		Convey("When looking up a registered task", func() {
			task, err := r.Task("qa")

			Convey("Then codes match case-insensitively and fields keep their order", func() {
				So(err, ShouldBeNil)
				So(task.Code, ShouldEqual, "QA")
				So(task.FieldNames(), ShouldResemble, []string{"Question", "Answer"})
				So(task.Target, ShouldEqual, 5)
				So(task.LevelKey, ShouldEqual, "Education Level")
				So(task.Prompt, ShouldContainSubstring, "Return a single JSON object")
			})
		})

		Convey("When looking up the PLS task", func() {
			task, err := r.Task("PLS")
			So(err, ShouldBeNil)

			Convey("Then nested keys are declared on the content field", func() {
				content := task.Fields[1]
				So(content.Accepts, ShouldEqual, Object)
				So(len(content.Nested), ShouldEqual, 3)
				So(content.Nested[0].Name, ShouldEqual, "One-on-one")
			})
		})

		Convey("When looking up a rubric", func() {
			metrics, err := r.Rubric("AG")
			So(err, ShouldBeNil)
			So(len(metrics), ShouldEqual, 2)
			So(metrics[0].Code, ShouldEqual, "IFTC")
			So(metrics[1].Description, ShouldStartWith, "Content Relevance")
		})

		Convey("When the code is not registered", func() {
			_, terr := r.Task("ZZ")
			_, rerr := r.Rubric("ZZ")

			Convey("Then both fail with UnknownTaskError", func() {
				So(errors.Is(terr, ErrUnknownTask), ShouldBeTrue)
				So(errors.Is(rerr, ErrUnknownTask), ShouldBeTrue)
				var ute *UnknownTaskError
				So(errors.As(rerr, &ute), ShouldBeTrue)
				So(ute.Known, ShouldContain, "IP")
			})
		})

		Convey("When IP is looked up as a generation task", func() {
			_, err := r.Task("IP")
			So(errors.Is(err, ErrUnknownTask), ShouldBeTrue)
		})
	})
}

func TestRegistryImmutable(t *testing.T) {
	Convey("Given values handed out by the registry", t, func() {
		r := defaultRegistry(t)
		task, _ := r.Task("PLS")
		metrics, _ := r.Rubric("EC")
		codes := r.Codes()

		Convey("When the caller mutates them", func() {
			task.Fields[1].Nested[0].Name = "mutated"
			task.Variants = append(task.Variants, "x")
			metrics[0].Code = "mutated"
			codes[0] = "mutated"

			Convey("Then the registry is unchanged", func() {
				again, _ := r.Task("PLS")
				So(again.Fields[1].Nested[0].Name, ShouldEqual, "One-on-one")
				m, _ := r.Rubric("EC")
				So(m[0].Code, ShouldEqual, "IFTC")
				So(r.Codes()[0], ShouldEqual, "AG")
			})
		})
	})
}

func TestRegistryUnits(t *testing.T) {
	Convey("Given the default registry", t, func() {
		r := defaultRegistry(t)

		Convey("Then variant tasks cross every pair with every variant", func() {
			units, err := r.Units("ES")
			So(err, ShouldBeNil)
			So(len(units), ShouldEqual, 90*3)
			So(units[0].Variant, ShouldEqual, "قلق خفيف")
			So(units[1].Variant, ShouldEqual, "قلق متوسط")
			So(units[0].Subject, ShouldEqual, units[2].Subject)
		})

		Convey("Then tasks without variants use the empty variant", func() {
			units, err := r.Units("PCC")
			So(err, ShouldBeNil)
			So(len(units), ShouldEqual, 90)
			So(units[0].Variant, ShouldEqual, "")
		})

		Convey("Then unknown codes fail", func() {
			_, err := r.Units("nope")
			So(errors.Is(err, ErrUnknownTask), ShouldBeTrue)
		})
	})
}

func TestShape(t *testing.T) {
	Convey("Given shape names", t, func() {
		Convey("When parsing a valid list", func() {
			s, err := ParseShape([]string{"Text", "object"})
			So(err, ShouldBeNil)
			So(s.Has(Text), ShouldBeTrue)
			So(s.Has(List), ShouldBeFalse)
			So(s.String(), ShouldEqual, "text|object")
		})

		Convey("When the list is empty", func() {
			s, err := ParseShape(nil)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, Any)
		})

		Convey("When a name is unknown", func() {
			_, err := ParseShape([]string{"blob"})
			So(err, ShouldNotBeNil)
		})

		Convey("When a catalog field nests keys under a non-object shape", func() {
			_, err := New(&catalog.Catalog{Tasks: []catalog.Task{{
				Code: "X", Target: 1,
				Fields: []catalog.Field{{Name: "F", Accepts: []string{"text"}, Nested: []catalog.Field{{Name: "N"}}}},
			}}})
			So(err, ShouldNotBeNil)
		})
	})
}
