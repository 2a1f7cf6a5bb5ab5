package accent_test

import (
	"testing"

	"github.com/okian/speakeval/internal/domain/accent"
	. "github.com/smartystreets/goconvey/convey"
)

func tags(fs []accent.Finding) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Tag)
	}
	return out
}

func TestMatcher_Explain(t *testing.T) {
	Convey("Given the default rule set", t, func() {
		m := accent.Default()

		Convey("When th is heard as t", func() {
			So(tags(m.Explain("think", "tink")), ShouldContain, "th-stopping")
		})

		Convey("When th is heard as f", func() {
			So(tags(m.Explain("three", "free")), ShouldContain, "th-fronting")
		})

		Convey("When v is heard as w", func() {
			So(tags(m.Explain("very", "wery")), ShouldContain, "v-w-merger")
		})

		Convey("When only one of two occurrences changes", func() {
			So(tags(m.Explain("rural", "lural")), ShouldContain, "r-l-confusion")
		})

		Convey("When a capture group is used in the replacement", func() {
			So(tags(m.Explain("school", "eschool")), ShouldContain, "s-cluster-epenthesis")
			So(tags(m.Explain("cat", "ca")), ShouldContain, "final-consonant-deletion")
		})

		Convey("When the words are identical or unrelated", func() {
			So(m.Explain("house", "house"), ShouldBeEmpty)
			So(m.Explain("table", "window"), ShouldBeEmpty)
		})
	})
}

func TestMatcher_CustomRules(t *testing.T) {
	Convey("Given a custom rule list with one invalid pattern", t, func() {
		m, bad := accent.NewMatcher([]accent.Rule{
			{Tag: "j-y", Pattern: `^j`, Replacements: []string{"y"}, Description: `"j" as "y"`},
			{Tag: "broken", Pattern: `(`, Replacements: []string{"x"}},
		})

		Convey("Then the invalid rule is reported and the valid one is used", func() {
			So(bad, ShouldHaveLength, 1)
			So(bad[0].Tag, ShouldEqual, "broken")
			So(tags(m.Explain("jes", "yes")), ShouldResemble, []string{"j-y"})
			So(m.Candidates("jam"), ShouldResemble, []string{"yam"})
		})
	})
}

func TestMatcher_Scan(t *testing.T) {
	Convey("Given mismatched pairs", t, func() {
		m := accent.Default()
		findings := m.Scan([][2]string{
			{"think", "tink"},
			{"knight", "night"},
			{"apple", "zebra"},
		})

		Convey("Then rule hits and sound-alike pairs are reported", func() {
			got := tags(findings)
			So(got, ShouldContain, "th-stopping")
			So(got, ShouldContain, "sound-alike")
			for _, f := range findings {
				So(f.Expected, ShouldNotEqual, "apple")
			}
		})
	})
}
