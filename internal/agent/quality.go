package agent

import "strings"

// Phrases that give the game away. Any of these in a generated reply
// disqualifies it.
var disclosurePhrases = []string{
	"i'm an ai",
	"i am an ai",
	"as an ai",
	"language model",
	"i apologize",
	"i cannot",
	"i understand",
	"however,",
}

const minReplyLen = 10

// vetReply runs the quality gate on a generated reply. It returns the
// cleaned reply and whether it is usable at all.
func (o *Orchestrator) vetReply(reply string, in Input) (string, bool) {
	reply = strings.TrimSpace(reply)
	if len(reply) < minReplyLen {
		return "", false
	}

	lower := strings.ToLower(reply)
	for _, phrase := range disclosurePhrases {
		if strings.Contains(lower, phrase) {
			return "", false
		}
	}

	if maxWordRun(lower) >= 3 {
		return "", false
	}

	// Near-duplicate of a recent reply reads as a bot stuck in a loop.
	for _, prev := range in.RecentReplies {
		if wordJaccard(lower, strings.ToLower(prev)) > 0.7 {
			return "", false
		}
	}

	if !strings.ContainsAny(reply[len(reply)-1:], ".!?") {
		reply += "."
	}
	return reply, true
}

// maxWordRun returns the longest run of the same word repeated
// back to back.
func maxWordRun(lower string) int {
	words := strings.Fields(lower)
	best, run := 0, 0
	prev := ""
	for _, w := range words {
		if w == prev {
			run++
		} else {
			run = 1
			prev = w
		}
		if run > best {
			best = run
		}
	}
	return best
}

func wordJaccard(a, b string) float64 {
	setA := map[string]bool{}
	for _, w := range strings.Fields(a) {
		setA[w] = true
	}
	setB := map[string]bool{}
	for _, w := range strings.Fields(b) {
		setB[w] = true
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	return float64(inter) / float64(len(setA)+len(setB)-inter)
}
