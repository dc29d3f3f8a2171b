// Package profile scores the remote party's behavior from raw message
// text. It is pure pattern work that runs on every turn, whether or not
// the generation path is available, so it has to stay cheap: marker
// lookups and a smoothing update, no external calls.
package profile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Smoothing factor: the profile adapts to new evidence but a single
// outlier message cannot whipsaw it.
const alpha = 0.4

var aggressionMarkers = []string{
	"immediately", "right now", "hurry",
	"legal action", "police", "arrest", "court", "jail",
	"freeze", "block", "suspend", "terminate", "cancel",
	"consequences", "penalty", "fine", "warning", "last chance",
	"don't waste", "stop wasting", "listen to me", "do as i say",
	"you will regret", "final notice", "no choice",
}

var impatienceMarkers = []string{
	"why haven't you", "i already told you", "how many times",
	"are you stupid", "can't you understand", "hurry up",
	"i'm waiting", "still waiting", "do it now", "what's taking so long",
	"just do it", "quickly", "asap", "come on", "hello?", "??",
	"are you there",
}

var sophisticationMarkers = []string{
	"protocol", "procedure", "verification", "compliance",
	"regulatory", "reserve bank", "rbi", "sebi",
	"official", "authorized", "certified", "department",
	"reference number", "case id", "ticket number",
	"encrypted", "secure portal", "two-factor", "biometric",
}

// Tactic is a manipulation category detected in the sender's language.
type Tactic string

const (
	TacticFear      Tactic = "fear"
	TacticUrgency   Tactic = "urgency"
	TacticAuthority Tactic = "authority"
	TacticGreed     Tactic = "greed"
	TacticGuilt     Tactic = "guilt"
)

var manipulationMarkers = map[Tactic][]string{
	TacticFear: {
		"lose everything", "all your money", "account hacked",
		"someone accessed", "unauthorized transaction", "stolen",
		"danger", "at stake", "compromised",
	},
	TacticUrgency: {
		"only today", "expires", "deadline", "limited time",
		"last chance", "within 24 hours", "closing soon",
		"running out", "immediately",
	},
	TacticAuthority: {
		"bank manager", "officer", "senior executive", "government",
		"cyber cell", "fraud department", "investigation team",
		"reserve bank", "head office",
	},
	TacticGreed: {
		"guaranteed", "double your money", "100% return",
		"risk free", "selected", "winner", "congratulations",
		"lucky", "exclusive offer", "lakh", "crore",
	},
	TacticGuilt: {
		"i trusted you", "cooperate", "don't you care",
		"your family", "for your safety",
		"we're trying to help", "protect you",
	},
}

// manipulationNorm divides the raw tactic hit count into [0,1].
const manipulationNorm = 5.0

var (
	refNumberRe = regexp.MustCompile(`(?i)(ref|case|ticket|id)[:\s#-]*\w{4,}`)
	formalRe    = regexp.MustCompile(`(?i)(dear\s+(sir|madam|customer)|we\s+regret\s+to\s+inform|as\s+per\s+(our|the)\s+records|kindly\s+note)`)
)

// Strategy is the response posture recommended by the profile.
type Strategy string

const (
	ShowMoreConfusion         Strategy = "show_more_confusion"
	MoreRealisticPersona      Strategy = "more_realistic_persona"
	StrategicAlmostCompliance Strategy = "strategic_almost_compliance"
	DangleCompliance          Strategy = "dangle_compliance"
	MaintainEngagement        Strategy = "maintain_engagement"
)

// Profile carries four bounded behavioral scores and the manipulation
// tactics seen so far. Scores are exponentially smoothed over the whole
// conversation; the tactic set only grows.
type Profile struct {
	Aggression     float64
	Patience       float64
	Sophistication float64
	Manipulation   float64
	tactics        map[Tactic]bool
	recentTexts    []string // sender's last few messages, for repetition detection
}

// New returns the baseline profile used before any sender message has
// been observed.
func New() *Profile {
	return &Profile{
		Aggression:     0.3,
		Patience:       0.7,
		Sophistication: 0.3,
		Manipulation:   0.3,
		tactics:        make(map[Tactic]bool),
	}
}

// Observe folds one sender message into the profile.
func (p *Profile) Observe(text string) {
	lower := strings.ToLower(text)

	p.Aggression = smooth(p.Aggression, p.rawAggression(text, lower))
	p.Patience = smooth(p.Patience, p.rawPatience(lower))
	p.Sophistication = smooth(p.Sophistication, rawSophistication(lower))
	p.Manipulation = smooth(p.Manipulation, p.rawManipulation(lower))

	p.recentTexts = append(p.recentTexts, lower)
	if len(p.recentTexts) > 3 {
		p.recentTexts = p.recentTexts[len(p.recentTexts)-3:]
	}
}

func (p *Profile) rawAggression(text, lower string) float64 {
	hits := countMarkers(lower, aggressionMarkers)

	capsWords := 0
	totalWords := 0
	for _, w := range strings.Fields(text) {
		totalWords++
		if len(w) > 2 && w == strings.ToUpper(w) && w != strings.ToLower(w) {
			capsWords++
		}
	}
	capsRatio := 0.0
	if totalWords > 0 {
		capsRatio = float64(capsWords) / float64(totalWords)
	}

	exclaims := strings.Count(text, "!")

	return clamp(float64(hits)*0.15 + capsRatio*0.8 + float64(exclaims)*0.1)
}

func (p *Profile) rawPatience(lower string) float64 {
	impatience := float64(countMarkers(lower, impatienceMarkers)) * 0.2

	// Near-duplicate demands within the last turns read as frustration.
	for _, prev := range p.recentTexts {
		if jaccard(prev, lower) > 0.6 {
			impatience += 0.3
		}
	}

	return clamp(1.0 - impatience)
}

func rawSophistication(lower string) float64 {
	raw := float64(countMarkers(lower, sophisticationMarkers)) * 0.12
	if refNumberRe.MatchString(lower) {
		raw += 0.15
	}
	if formalRe.MatchString(lower) {
		raw += 0.15
	}
	return clamp(raw)
}

func (p *Profile) rawManipulation(lower string) float64 {
	matched := 0
	for tactic, markers := range manipulationMarkers {
		if countMarkers(lower, markers) > 0 {
			matched++
			p.tactics[tactic] = true
		}
	}
	return clamp(float64(matched) / manipulationNorm)
}

// Tactics returns every manipulation category observed in the session,
// sorted for stable output.
func (p *Profile) Tactics() []Tactic {
	out := make([]Tactic, 0, len(p.tactics))
	for t := range p.tactics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DominantTactic is the manipulation category to call out in prompts and
// report notes, or "" when none was observed.
func (p *Profile) DominantTactic() Tactic {
	tactics := p.Tactics()
	if len(tactics) == 0 {
		return ""
	}
	return tactics[0]
}

// Recommend maps the current scores to a response strategy.
func (p *Profile) Recommend() Strategy {
	switch {
	case p.Patience < 0.4 && p.Aggression > 0.5:
		return ShowMoreConfusion
	case p.Sophistication > 0.6:
		return MoreRealisticPersona
	case p.Manipulation > 0.6:
		return StrategicAlmostCompliance
	case p.Patience < 0.4:
		return DangleCompliance
	default:
		return MaintainEngagement
	}
}

// Weaknesses lists exploitable traits for the report notes.
func (p *Profile) Weaknesses() []string {
	var out []string
	if p.Patience < 0.4 {
		out = append(out, "frustration")
	}
	if p.Aggression > 0.6 {
		out = append(out, "anger_management")
	}
	if p.Sophistication < 0.3 {
		out = append(out, "low_adaptability")
	}
	if p.Manipulation > 0.6 {
		out = append(out, "over_reliance_on_scripts")
	}
	if p.Patience < 0.3 && p.Aggression > 0.5 {
		out = append(out, "time_pressure")
	}
	if p.Sophistication > 0.6 {
		out = append(out, "overconfidence")
	}
	if len(out) == 0 {
		return []string{"generic_engagement"}
	}
	return out
}

// PromptHint is a short psychology line injected into the combined
// instruction. Kept terse to save prompt tokens.
func (p *Profile) PromptHint() string {
	var hints []string
	switch p.Recommend() {
	case ShowMoreConfusion:
		hints = append(hints, "Sender is impatient - act MORE confused, give shorter replies")
	case MoreRealisticPersona:
		hints = append(hints, "Sender is sophisticated - be very realistic, avoid any AI patterns")
	case StrategicAlmostCompliance:
		hints = append(hints, "Sender uses emotional tactics - almost comply, ask for THEIR details")
	case DangleCompliance:
		hints = append(hints, "Sender is frustrated - show willingness but create small obstacles")
	default:
		hints = append(hints, "Keep sender engaged naturally")
	}
	if dom := p.DominantTactic(); dom != "" {
		hints = append(hints, fmt.Sprintf("Sender leans on %s tactics", dom))
	}
	return "PSYCHOLOGY: " + strings.Join(hints, " | ")
}

func smooth(old, raw float64) float64 {
	return clamp(alpha*raw + (1-alpha)*old)
}

func countMarkers(lower string, markers []string) int {
	hits := 0
	for _, m := range markers {
		if strings.Contains(lower, m) {
			hits++
		}
	}
	return hits
}

func jaccard(a, b string) float64 {
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
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
