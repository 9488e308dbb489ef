package ranking

import (
	"sort"
	"time"
)

// Topic identifies a submission that can be ranked.
type Topic struct {
	ID          string
	SubmittedAt time.Time
}

// VoteKind describes the direction of a cast vote.
type VoteKind string

const (
	// VoteUp counts +1 toward a topic's score.
	VoteUp VoteKind = "upvote"
	// VoteDown counts -1 toward a topic's score.
	VoteDown VoteKind = "downvote"
)

// Vote is a single voter's current vote on a topic. Callers are expected to
// pass at most one vote per (topic, voter) pair; duplicates are collapsed so
// that a stale replaced vote can never be double counted.
type Vote struct {
	TopicID string
	VoterID string
	Kind    VoteKind
}

// Ranked pairs a topic with its computed score.
type Ranked struct {
	Topic Topic
	Score int
}

// Score computes upvotes minus downvotes for a single topic.
func Score(votes []Vote, topicID string) int {
	score := 0
	seen := make(map[string]VoteKind)
	for _, vote := range votes {
		if vote.TopicID != topicID {
			continue
		}
		seen[vote.VoterID] = vote.Kind
	}
	for _, kind := range seen {
		switch kind {
		case VoteUp:
			score++
		case VoteDown:
			score--
		}
	}
	return score
}

// Rank orders topics by descending score. Ties are broken by earliest
// submission time, then by ID, so the ordering is fully deterministic.
func Rank(topics []Topic, votes []Vote) []Ranked {
	if len(topics) == 0 {
		return nil
	}

	latest := make(map[string]map[string]VoteKind, len(topics))
	for _, vote := range votes {
		byVoter, ok := latest[vote.TopicID]
		if !ok {
			byVoter = make(map[string]VoteKind)
			latest[vote.TopicID] = byVoter
		}
		byVoter[vote.VoterID] = vote.Kind
	}

	ranked := make([]Ranked, 0, len(topics))
	for _, topic := range topics {
		score := 0
		for _, kind := range latest[topic.ID] {
			switch kind {
			case VoteUp:
				score++
			case VoteDown:
				score--
			}
		}
		ranked = append(ranked, Ranked{Topic: topic, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].Topic.SubmittedAt.Equal(ranked[j].Topic.SubmittedAt) {
			return ranked[i].Topic.SubmittedAt.Before(ranked[j].Topic.SubmittedAt)
		}
		return ranked[i].Topic.ID < ranked[j].Topic.ID
	})

	return ranked
}
