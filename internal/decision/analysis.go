package decision

// Sentinel is the literal substring the model emits, anywhere in its reply,
// to hand the issue off to a human team. Its presence sets ShouldEscalate
// regardless of any other content; matching is case-sensitive and exact.
//
// Substring detection over structured output is deliberate: the model's
// output format is not perfectly reliable, a literal marker is. The marker
// is part of the prompt contract with the model.
const Sentinel = "ESCALATE_TO_TEAM"

// Category classifies the issue.
type Category string

const (
	CategoryBug           Category = "bug"
	CategoryQuestion      Category = "question"
	CategoryFeature       Category = "feature-request"
	CategoryDocumentation Category = "documentation"
)

// Analysis is the interpreted triage decision.
//
// When ShouldEscalate is true, Response is either a human-readable
// assessment or the bare Sentinel, meaning the model produced no usable
// content.
type Analysis struct {
	Response       string
	ShouldEscalate bool
	Category       Category
}

// Answered constructs an analysis the agent can post directly.
func Answered(response string, category Category) Analysis {
	return Analysis{Response: response, ShouldEscalate: false, Category: category}
}

// Escalate constructs an analysis routed to a human team.
func Escalate(response string, category Category) Analysis {
	return Analysis{Response: response, ShouldEscalate: true, Category: category}
}
