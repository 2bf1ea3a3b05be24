package analysis

import "strings"

const maxObjects = 5

// Vocabulary is matched in this order; the order also decides which terms
// survive truncation.
var Vocabulary = []string{
	"person",
	"face",
	"hand",
	"object",
	"furniture",
	"device",
	"clothing",
	"background",
	"screen",
	"desk",
}

// ExtractObjects is a display heuristic: a case-insensitive substring match
// of the description against Vocabulary. It is not a vision result.
func ExtractObjects(description string, confidence func() float64) []DetectedObject {
	text := strings.ToLower(description)
	objects := make([]DetectedObject, 0, maxObjects)
	seen := make(map[string]struct{}, len(Vocabulary))

	for _, term := range Vocabulary {
		if len(objects) == maxObjects {
			break
		}
		if _, dup := seen[term]; dup {
			continue
		}
		if !strings.Contains(text, term) {
			continue
		}
		seen[term] = struct{}{}
		objects = append(objects, DetectedObject{
			Name:       term,
			Confidence: confidence(),
		})
	}

	return objects
}
