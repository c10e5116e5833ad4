package classifier

import (
	"fmt"

	"spamguard/internal/models"
)

// BuildExplanation produces the structured justification attached to every
// prediction. A model may flag content without lexical overlap, so an empty
// match list still yields an explanation.
func BuildExplanation(matched []string) models.Explanation {
	if len(matched) == 0 {
		return models.Explanation{
			KeywordsFound: []string{},
			Reason:        "No known indicators found",
		}
	}
	return models.Explanation{
		KeywordsFound: matched,
		Reason:        fmt.Sprintf("Detected %d relevant keywords", len(matched)),
	}
}
