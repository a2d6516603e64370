package arbiter

import (
	"context"
	"fmt"
	"strings"
)

// Offline is a heuristic arbiter that needs no network: it scores each
// candidate by token overlap between the candidate's description line in the
// context and the state summary. It keeps sessions usable when no hosted
// backend is configured, and trades quality for determinism.
type Offline struct{}

// NewOffline returns the heuristic arbiter.
func NewOffline() *Offline {
	return &Offline{}
}

// Decide implements Arbiter. It never fails: with no candidates it picks the
// terminal option, matching what the hosted backend is allowed to do.
func (o *Offline) Decide(_ context.Context, req Request) (Verdict, error) {
	if len(req.Candidates) == 0 {
		return Verdict{Handler: "done", Rationale: "no candidates to choose from"}, nil
	}

	stateTokens := tokenize(req.StateSummary)
	descriptions := candidateDescriptions(req.Context)

	best, bestScore := req.Candidates[0], -1.0
	for _, name := range req.Candidates {
		score := overlap(tokenize(name+" "+descriptions[name]), stateTokens)
		if score > bestScore {
			best, bestScore = name, score
		}
	}

	return Verdict{
		Handler:   best,
		Rationale: fmt.Sprintf("keyword overlap score %.2f", bestScore),
	}, nil
}

// candidateDescriptions parses the "- name: description" lines out of the
// arbitration context.
func candidateDescriptions(context string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(context, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		name, desc, ok := strings.Cut(strings.TrimPrefix(line, "- "), ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(desc)
	}
	return out
}

func tokenize(text string) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, field := range strings.Fields(strings.ToLower(text)) {
		token := strings.Trim(field, ".,:;()[]{}\"'")
		if len(token) < 3 {
			continue
		}
		tokens[token] = struct{}{}
	}
	return tokens
}

// overlap is the fraction of candidate tokens present in the state tokens.
func overlap(candidate, state map[string]struct{}) float64 {
	if len(candidate) == 0 {
		return 0
	}
	hits := 0
	for token := range candidate {
		if _, ok := state[token]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(candidate))
}
