package content

// stopwords are excluded when measuring content-word overlap.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"no": true, "and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "it's": true, "this": true,
	"that": true, "these": true, "those": true, "there": true, "their": true,
	"what": true, "which": true, "who": true, "how": true, "when": true,
	"where": true, "why": true, "you": true, "me": true, "i": true,
	"my": true, "your": true, "we": true, "our": true, "they": true,
	"he": true, "she": true, "her": true, "him": true, "his": true,
	"us": true, "them": true, "also": true, "very": true, "just": true,
	"um": true, "uh": true, "like": true, "really": true, "some": true,
	"all": true, "any": true, "more": true, "most": true, "other": true,
}

// discourseMarkers signal an organised image description.
var discourseMarkers = []string{
	"first", "firstly", "second", "secondly", "then", "next", "finally",
	"overall", "in conclusion", "to sum up", "for example", "for instance",
	"however", "while", "whereas", "compared to", "in contrast", "on the other hand",
	"the highest", "the lowest", "the largest", "the smallest", "increase",
	"decrease", "shows", "illustrates", "represents", "according to",
}

// connectives signal a structured lecture retelling.
var connectives = []string{
	"because", "therefore", "however", "also", "in addition", "moreover",
	"as a result", "consequently", "first", "finally", "for example",
	"the speaker", "the lecture", "the lecturer", "discussed", "mentioned",
	"explained", "talked about", "in conclusion", "such as",
}

// synthesisMarkers signal that several speakers' views were combined.
var synthesisMarkers = []string{
	"both", "agree", "agreed", "disagree", "disagreed", "on the other hand",
	"while", "whereas", "in contrast", "similarly", "one speaker", "another speaker",
	"the first", "the second", "overall", "in summary", "concluded", "suggested",
	"argued", "pointed out",
}

// politenessMarkers signal register appropriate to a situational response.
var politenessMarkers = []string{
	"please", "thank you", "thanks", "sorry", "excuse me", "would you",
	"could you", "would you mind", "do you mind", "i'm afraid", "i apologize",
	"i apologise", "i appreciate", "if possible", "i was wondering", "kindly",
	"i understand",
}
