package content

// Scale identifies which rubric descriptors apply to a content result.
type Scale string

// Rubric scales.
const (
	ScaleReadAloud   Scale = "read_aloud"
	ScaleRepeat      Scale = "repeat"
	ScaleOpen        Scale = "open"
	ScaleAppropriacy Scale = "appropriacy"
	ScaleBinary      Scale = "binary"
)

var openDescriptors = []string{
	"No relevant content",
	"Minimal content",
	"Limited content",
	"Partial content",
	"Adequate content",
	"Good content",
	"Full content",
}

var appropriacyDescriptors = []string{
	"Inappropriate",
	"Barely appropriate",
	"Limited appropriacy",
	"Partly appropriate",
	"Mostly appropriate",
	"Appropriate",
	"Fully appropriate",
}

var repeatDescriptors = []string{
	"Almost nothing repeated",
	"Less than half repeated",
	"At least half repeated",
	"All words in correct sequence",
}

// Descriptor returns the qualitative label for a band on the given scale.
func Descriptor(scale Scale, band, maxBand int) string {
	if band < 0 {
		band = 0
	}
	switch scale {
	case ScaleBinary:
		if band >= 1 {
			return "Correct"
		}
		return "Incorrect"
	case ScaleAppropriacy:
		return pick(appropriacyDescriptors, band)
	case ScaleOpen:
		return pick(openDescriptors, band)
	case ScaleRepeat:
		return pick(repeatDescriptors, band)
	case ScaleReadAloud:
		if maxBand <= 0 {
			return "Not scored"
		}
		return readAloudDescriptor(float64(band) / float64(maxBand))
	default:
		return "Not scored"
	}
}

func readAloudDescriptor(r float64) string {
	switch {
	case r >= 1:
		return "All words read correctly"
	case r >= 0.8:
		return "Minor errors"
	case r >= 0.5:
		return "Several errors"
	case r > 0:
		return "Many errors"
	default:
		return "No words read correctly"
	}
}

func pick(labels []string, band int) string {
	if band >= len(labels) {
		band = len(labels) - 1
	}
	return labels[band]
}
