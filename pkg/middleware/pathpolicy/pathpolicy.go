// Package pathpolicy picks a per-request verbosity from request path prefixes.
// The access log and tracing middleware share it, so a path silenced in one is
// configured the same way in the other.
package pathpolicy

import "strings"

// Mode is the verbosity selected for a request path.
type Mode string

const (
	// Off skips the request entirely.
	Off Mode = "off"
	// Minimal records the request with basic detail.
	Minimal Mode = "minimal"
	// Full records the request with every detail.
	Full Mode = "full"
)

// Policy assigns a mode to every path starting with Prefix.
type Policy struct {
	Prefix string
	Mode   Mode
}

// ParseMode normalizes value; anything unrecognized is Full.
func ParseMode(value string) Mode {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(value))); mode {
	case Off, Minimal:
		return mode
	default:
		return Full
	}
}

// Matcher resolves the mode of a path. It is immutable and safe for concurrent use.
type Matcher struct {
	excluded []string
	policies []Policy
}

// NewMatcher compiles excluded prefixes and policies. Blank prefixes are dropped
// and modes are normalized with ParseMode.
func NewMatcher(excluded []string, policies []Policy) *Matcher {
	m := &Matcher{}
	for _, prefix := range excluded {
		if prefix != "" {
			m.excluded = append(m.excluded, prefix)
		}
	}
	for _, policy := range policies {
		if strings.TrimSpace(policy.Prefix) == "" {
			continue
		}
		m.policies = append(m.policies, Policy{Prefix: policy.Prefix, Mode: ParseMode(string(policy.Mode))})
	}
	return m
}

// ModeFor returns Off for excluded paths, otherwise the mode of the longest
// matching policy prefix, or Full when none matches.
func (m *Matcher) ModeFor(path string) Mode {
	for _, prefix := range m.excluded {
		if strings.HasPrefix(path, prefix) {
			return Off
		}
	}

	best := -1
	mode := Full
	for _, policy := range m.policies {
		if len(policy.Prefix) > best && strings.HasPrefix(path, policy.Prefix) {
			best = len(policy.Prefix)
			mode = policy.Mode
		}
	}
	return mode
}
