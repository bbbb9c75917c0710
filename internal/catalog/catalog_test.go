package catalog

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultCatalog(t *testing.T) {
	Convey("Given the embedded catalog", t, func() {
		c, err := Default()
		So(err, ShouldBeNil)

		Convey("Then it carries every generation task with its target", func() {
			targets := map[string]int{}
			for _, task := range c.Tasks {
				targets[task.Code] = task.Target
			}
			So(targets, ShouldResemble, map[string]int{
				"AG": 4, "EC": 5, "ES": 4, "PCC": 3, "PLS": 1, "QA": 5, "TMG": 5,
			})
		})

		Convey("Then it carries every rubric", func() {
			var codes []string
			for _, r := range c.Rubrics {
				codes = append(codes, r.Code)
			}
			So(codes, ShouldResemble, []string{"EC", "IP", "AG", "QA", "TMG", "QG", "ES", "PCC", "PLS"})
		})

		Convey("Then the pairs span both tiers", func() {
			pairs := c.Pairs()
			So(len(pairs), ShouldEqual, 8*3+22*3)
			So(pairs[0], ShouldResemble, Pair{Subject: "اللغة العربية", Level: "المرحلة الابتدائية"})
		})

		Convey("Then question-type tasks share the anchored variants", func() {
			for _, task := range c.Tasks {
				if task.VariantKey == "Question Type" {
					So(task.Variants, ShouldResemble, c.QuestionTypes)
				}
			}
		})
	})
}

func TestParseRejects(t *testing.T) {
	Convey("Given malformed catalog documents", t, func() {
		base := `
language: {tag: ar, name: Arabic}
tiers: [{name: t, levels: [L1], subjects: [S1]}]
metrics: {IFTC: x}
`
		cases := []struct{ name, doc string }{
			{"unknown key", base + "bogus: 1\n"},
			{"duplicate task", base + "tasks: [{code: QA, target: 1, fields: [{name: Q}]}, {code: QA, target: 1, fields: [{name: Q}]}]\n"},
			{"zero target", base + "tasks: [{code: QA, target: 0, fields: [{name: Q}]}]\n"},
			{"half variant", base + "tasks: [{code: QA, target: 1, variant_key: K, fields: [{name: Q}]}]\n"},
			{"unknown metric", base + "rubrics: [{code: QA, metrics: [NOPE]}]\n"},
			{"empty rubric", base + "rubrics: [{code: QA, metrics: []}]\n"},
			{"no pairs", "language: {tag: ar}\n"},
			{"not yaml at all", "::::"},
		}
		for _, tc := range cases {
			Convey("When the document has "+tc.name, func() {
				_, err := Parse([]byte(tc.doc))
				So(errors.Is(err, ErrInvalidCatalog), ShouldBeTrue)
			})
		}
	})
}
