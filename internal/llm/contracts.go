package llm

import (
	"context"
	"encoding/json"
)

// Prompt is the two-part instruction rendered for one completion call. The
// system part carries the analyst role and output contract; the user part
// carries the document text under analysis. Building a Prompt is pure: the
// same input text always produces byte-identical parts.
type Prompt struct {
	System string
	User   string
}

// Chars reports the combined length of both parts, for logging.
func (p Prompt) Chars() int {
	return len(p.System) + len(p.User)
}

// CompletionClient sends one prompt to a model backend and returns the raw
// completion text. Implementations own transport, per-attempt timeouts and
// retry policy; they never interpret the completion content.
type CompletionClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// ParseOutcome tags how a raw completion was turned into a result, so
// callers and logs can distinguish a clean decode from a salvaged one.
type ParseOutcome int

const (
	// StrictlyParsed means the completion decoded as JSON and validated
	// against the four-category schema.
	StrictlyParsed ParseOutcome = iota
	// LenientlyRecovered means strict decoding failed and the section-marker
	// scan salvaged at least one category.
	LenientlyRecovered
	// Unrecoverable means neither tier found any category.
	Unrecoverable
)

func (o ParseOutcome) String() string {
	switch o {
	case StrictlyParsed:
		return "strict"
	case LenientlyRecovered:
		return "lenient"
	case Unrecoverable:
		return "unrecoverable"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the outcome as its string form for API payloads.
func (o ParseOutcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}
