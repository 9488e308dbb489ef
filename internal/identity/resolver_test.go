package identity

import "testing"

func TestPolicyResolve(t *testing.T) {
	policy := NewPolicy([]string{"nest.edu.mn"}, []string{"pineder.mn"})

	cases := []struct {
		name  string
		email string
		want  Role
	}{
		{"learner domain", "bat@nest.edu.mn", RoleLearner},
		{"learner subdomain", "bat@students.nest.edu.mn", RoleLearner},
		{"mentor domain", "saraa@pineder.mn", RoleMentor},
		{"uppercase domain", "saraa@PINEDER.MN", RoleMentor},
		{"unmatched domain", "someone@gmail.com", RoleOther},
		{"empty email", "", RoleOther},
		{"missing domain", "nobody@", RoleOther},
		{"missing local part", "@nest.edu.mn", RoleOther},
		{"suffix embedded in longer domain", "x@notnest.edu.mn.evil.com", RoleOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.Resolve(tc.email); got != tc.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tc.email, got, tc.want)
			}
		})
	}
}

func TestPolicyMentorTakesPrecedence(t *testing.T) {
	policy := NewPolicy([]string{"pineder.mn"}, []string{"pineder.mn"})
	if got := policy.Resolve("both@pineder.mn"); got != RoleMentor {
		t.Fatalf("expected mentor to win overlapping suffixes, got %q", got)
	}
}

func TestNewPolicyNormalizesSuffixes(t *testing.T) {
	policy := NewPolicy([]string{" @Nest.EDU.mn "}, nil)
	if got := policy.Resolve("bat@nest.edu.mn"); got != RoleLearner {
		t.Fatalf("expected normalized suffix to match, got %q", got)
	}
}
