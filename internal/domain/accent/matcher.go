package accent

import (
	"regexp"
	"sort"

	"github.com/okian/speakeval/internal/domain/align"
)

// Finding records a rule that turns an expected word into the recognized one.
type Finding struct {
	Tag         string `json:"tag"`
	Expected    string `json:"expected"`
	Recognized  string `json:"recognized"`
	Description string `json:"description"`
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Matcher interprets a rule list. It is read-only after construction and safe
// for concurrent use.
type Matcher struct {
	rules []compiledRule
}

// NewMatcher compiles rules. Rules whose pattern does not compile are skipped
// and returned as the second value.
func NewMatcher(rules []Rule) (*Matcher, []Rule) {
	m := &Matcher{}
	var bad []Rule
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			bad = append(bad, r)
			continue
		}
		m.rules = append(m.rules, compiledRule{Rule: r, re: re})
	}
	return m, bad
}

// Default returns a matcher over DefaultRules.
func Default() *Matcher {
	m, _ := NewMatcher(DefaultRules)
	return m
}

// Explain returns every rule that maps expected onto recognized, either by
// replacing all pattern occurrences or a single occurrence. Each tag is
// reported once.
func (m *Matcher) Explain(expected, recognized string) []Finding {
	if expected == "" || expected == recognized {
		return nil
	}
	seen := make(map[string]struct{})
	var out []Finding
	for _, r := range m.rules {
		if _, dup := seen[r.Tag]; dup {
			continue
		}
		if r.produces(expected, recognized) {
			seen[r.Tag] = struct{}{}
			out = append(out, Finding{
				Tag:         r.Tag,
				Expected:    expected,
				Recognized:  recognized,
				Description: r.Description,
			})
		}
	}
	return out
}

// Candidates returns every variant of word the rules can produce, sorted.
func (m *Matcher) Candidates(word string) []string {
	set := make(map[string]struct{})
	for _, r := range m.rules {
		for _, v := range r.variants(word) {
			if v != word {
				set[v] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Scan explains a list of (expected, recognized) pairs. Pairs that no rule
// explains but which share a phonetic code are reported with tag
// "sound-alike".
func (m *Matcher) Scan(pairs [][2]string) []Finding {
	var out []Finding
	for _, p := range pairs {
		f := m.Explain(p[0], p[1])
		if len(f) == 0 && p[0] != p[1] && align.SoundsAlike(p[0], p[1]) {
			f = []Finding{{
				Tag:         "sound-alike",
				Expected:    p[0],
				Recognized:  p[1],
				Description: "recognized as a similar-sounding word",
			}}
		}
		out = append(out, f...)
	}
	return out
}

func (r compiledRule) produces(expected, recognized string) bool {
	for _, v := range r.variants(expected) {
		if v == recognized {
			return true
		}
	}
	return false
}

func (r compiledRule) variants(word string) []string {
	matches := r.re.FindAllStringSubmatchIndex(word, -1)
	if len(matches) == 0 {
		return nil
	}
	var out []string
	for _, repl := range r.Replacements {
		out = append(out, r.re.ReplaceAllString(word, repl))
		if len(matches) == 1 {
			continue
		}
		for _, loc := range matches {
			var dst []byte
			dst = r.re.ExpandString(dst, repl, word, loc)
			out = append(out, word[:loc[0]]+string(dst)+word[loc[1]:])
		}
	}
	return out
}
