package engine

import "strings"

// DirectKind names the templated answer to render when a question is served
// from the snapshot instead of the retrieval pipeline.
type DirectKind int

const (
	KindGeneric DirectKind = iota
	KindContributors
	KindLanguage
	KindStars
	KindForks
	KindCommits
)

// String returns the kind name for logging.
func (k DirectKind) String() string {
	switch k {
	case KindContributors:
		return "contributors"
	case KindLanguage:
		return "language"
	case KindStars:
		return "stars"
	case KindForks:
		return "forks"
	case KindCommits:
		return "commits"
	default:
		return "generic"
	}
}

// Intent is the routing decision for a question: either the contextual
// retrieval pipeline, or a direct templated answer of a given kind.
type Intent struct {
	Direct bool
	Kind   DirectKind
}

// directGate holds the substrings that route a question to the direct path.
// Matching is coarse on purpose: a lower-cased substring scan, no tokenizing.
var directGate = []string{
	"contributor",
	"who worked",
	"commit count",
	"stars",
	"forks",
	"language",
}

// Classify routes a question. Questions mentioning repository facts the
// snapshot already holds go direct; everything else goes through retrieval.
func Classify(question string) Intent {
	lower := strings.ToLower(question)
	for _, kw := range directGate {
		if strings.Contains(lower, kw) {
			return Intent{Direct: true, Kind: directKind(lower)}
		}
	}
	return Intent{}
}

// directKind refines a lower-cased question into a template kind. It also
// serves the fallback path, where any question, contextual ones included,
// must map to some template; unmatched questions get the generic one.
func directKind(lower string) DirectKind {
	switch {
	case strings.Contains(lower, "contributor") || strings.Contains(lower, "who worked"):
		return KindContributors
	case strings.Contains(lower, "language"):
		return KindLanguage
	case strings.Contains(lower, "star"):
		return KindStars
	case strings.Contains(lower, "fork"):
		return KindForks
	case strings.Contains(lower, "commit"):
		return KindCommits
	default:
		return KindGeneric
	}
}
