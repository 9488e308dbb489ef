package identity

import "strings"

// Role is the coarse authorization role derived from a principal's email.
type Role string

const (
	// RoleLearner may submit topics, vote, and request one-on-one bookings.
	RoleLearner Role = "learner"
	// RoleMentor may declare availability, curate topics, host group
	// sessions, and act on booking requests addressed to them.
	RoleMentor Role = "mentor"
	// RoleOther is denied every mutating operation unless a command
	// explicitly allows it.
	RoleOther Role = "other"
)

// Policy maps email domain suffixes to roles. It is an explicit value object
// rather than package level state so that the mapping stays testable and
// swappable per deployment.
type Policy struct {
	learnerSuffixes []string
	mentorSuffixes  []string
}

// NewPolicy builds a resolution policy from the given suffix sets. Suffixes
// are matched case-insensitively against the domain part of the address; a
// leading "@" is optional.
func NewPolicy(learnerSuffixes, mentorSuffixes []string) Policy {
	return Policy{
		learnerSuffixes: normalizeSuffixes(learnerSuffixes),
		mentorSuffixes:  normalizeSuffixes(mentorSuffixes),
	}
}

// DefaultPolicy returns the resolution policy used when no deployment
// specific suffix sets are configured.
func DefaultPolicy() Policy {
	return NewPolicy([]string{"nest.edu.mn"}, []string{"pineder.mn"})
}

// Resolve maps an email address to a role. A missing or unresolvable email
// yields RoleOther.
func (p Policy) Resolve(email string) Role {
	domain := emailDomain(email)
	if domain == "" {
		return RoleOther
	}
	for _, suffix := range p.mentorSuffixes {
		if matchesSuffix(domain, suffix) {
			return RoleMentor
		}
	}
	for _, suffix := range p.learnerSuffixes {
		if matchesSuffix(domain, suffix) {
			return RoleLearner
		}
	}
	return RoleOther
}

func normalizeSuffixes(suffixes []string) []string {
	out := make([]string, 0, len(suffixes))
	for _, suffix := range suffixes {
		trimmed := strings.ToLower(strings.TrimSpace(suffix))
		trimmed = strings.TrimPrefix(trimmed, "@")
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func emailDomain(email string) string {
	trimmed := strings.TrimSpace(email)
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 || at == len(trimmed)-1 {
		return ""
	}
	return strings.ToLower(trimmed[at+1:])
}

func matchesSuffix(domain, suffix string) bool {
	if domain == suffix {
		return true
	}
	return strings.HasSuffix(domain, "."+suffix)
}
