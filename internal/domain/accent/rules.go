// Package accent explains word-level recognition mismatches as common
// second-language pronunciation substitutions.
//
// Rules are plain data: a tag, a regular expression applied to the expected
// word, candidate replacements (which may reference capture groups with $1)
// and a learner-facing description. Matcher interprets any rule list; the
// default list lives in DefaultRules.
package accent

// Rule is one declarative substitution pattern.
type Rule struct {
	Tag          string   `json:"tag" yaml:"tag"`
	Pattern      string   `json:"pattern" yaml:"pattern"`
	Replacements []string `json:"replacements" yaml:"replacements"`
	Description  string   `json:"description" yaml:"description"`
}

// DefaultRules covers the substitutions most often seen in recognizer output
// for non-native speakers of English.
var DefaultRules = []Rule{
	{Tag: "th-stopping", Pattern: `th`, Replacements: []string{"t", "d"}, Description: `"th" pronounced as "t" or "d"`},
	{Tag: "th-fronting", Pattern: `th`, Replacements: []string{"f", "v", "s", "z"}, Description: `"th" pronounced as "f", "v", "s" or "z"`},
	{Tag: "v-w-merger", Pattern: `v`, Replacements: []string{"w", "b"}, Description: `"v" pronounced as "w" or "b"`},
	{Tag: "w-v-merger", Pattern: `w`, Replacements: []string{"v"}, Description: `"w" pronounced as "v"`},
	{Tag: "r-l-confusion", Pattern: `r`, Replacements: []string{"l"}, Description: `"r" and "l" confused`},
	{Tag: "l-r-confusion", Pattern: `l`, Replacements: []string{"r"}, Description: `"l" and "r" confused`},
	{Tag: "p-b-voicing", Pattern: `p`, Replacements: []string{"b"}, Description: `"p" voiced as "b"`},
	{Tag: "b-p-devoicing", Pattern: `b`, Replacements: []string{"p"}, Description: `"b" devoiced to "p"`},
	{Tag: "g-dropping", Pattern: `ing$`, Replacements: []string{"in", "ink"}, Description: `final "-ing" reduced`},
	{Tag: "h-dropping", Pattern: `^h`, Replacements: []string{""}, Description: `initial "h" dropped`},
	{Tag: "final-consonant-deletion", Pattern: `([aeiou])[bcdfgkpstz]$`, Replacements: []string{"$1"}, Description: "final consonant dropped"},
	{Tag: "vowel-length", Pattern: `ee|ea`, Replacements: []string{"i"}, Description: "long and short vowels merged"},
	{Tag: "vowel-length", Pattern: `i`, Replacements: []string{"ee", "ea"}, Description: "long and short vowels merged"},
	{Tag: "s-cluster-epenthesis", Pattern: `^s([cptkmnl])`, Replacements: []string{"es$1"}, Description: `vowel inserted before initial "s" cluster`},
	{Tag: "z-s-devoicing", Pattern: `z`, Replacements: []string{"s"}, Description: `"z" devoiced to "s"`},
}
