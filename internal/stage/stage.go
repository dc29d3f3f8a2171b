// Package stage drives the conversation arc. A session only ever moves
// forward through the stages; which stage a turn lands on decides what
// the reply should try to do.
package stage

import (
	"fmt"

	"github.com/baitline/baitline/internal/intel"
	"github.com/baitline/baitline/internal/profile"
)

// Stage is a phase of the engagement arc.
type Stage int

const (
	InitialHook Stage = iota
	Engagement
	InformationProbe
	Resistance
	GradualCompliance
	IntelligenceMining
	Prolongation
)

var stageNames = [...]string{
	"initial_hook",
	"engagement",
	"information_probe",
	"resistance",
	"gradual_compliance",
	"intelligence_mining",
	"prolongation",
}

func (s Stage) String() string {
	if s < InitialHook || s > Prolongation {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Session ends once enough turns have passed or enough intelligence is
// banked, whichever comes first.
const (
	maxMessages    = 15
	intelScoreGoal = 8.0
)

// completenessTarget is the coverage fraction below which a mid-session
// conversation jumps straight to mining.
const completenessTarget = 0.75

// Next returns the stage for the upcoming reply. cur is the stage the
// previous reply was produced under; the result is never earlier than cur.
func Next(cur Stage, messageCount int, inventory *intel.Intelligence, prof *profile.Profile) Stage {
	next := cur

	// Missing categories past the opening turns take priority over the
	// normal pacing.
	if messageCount > 5 && inventory.Completeness() < completenessTarget {
		if cur < IntelligenceMining {
			next = IntelligenceMining
		}
	} else {
		// Roughly one step every two exchanged messages.
		paced := Stage(messageCount / 2)
		if paced > Prolongation {
			paced = Prolongation
		}
		if paced > next {
			next = paced
		}

		// An impatient counterpart will not sit through the slow phases.
		if prof != nil && prof.Patience < 0.4 && next < GradualCompliance {
			next = GradualCompliance
		}
	}

	if next < cur {
		next = cur
	}
	return next
}

// Done reports whether the session has hit a terminal condition.
func Done(messageCount int, inventory *intel.Intelligence) bool {
	return messageCount >= maxMessages || inventory.Score() >= intelScoreGoal
}

// tacticCooldown is how many inbound messages must pass before the same
// canned ask or reply line is used again.
const tacticCooldown = 3

// TacticLog remembers the message index each tactic line was last used
// at. A nil log never blocks anything.
type TacticLog struct {
	lastUsed map[string]int
}

func NewTacticLog() *TacticLog {
	return &TacticLog{lastUsed: make(map[string]int)}
}

// OK reports whether the tactic may be used at messageCount.
func (l *TacticLog) OK(id string, messageCount int) bool {
	if l == nil {
		return true
	}
	last, ok := l.lastUsed[id]
	if !ok {
		return true
	}
	return messageCount-last >= tacticCooldown
}

// Note records that the tactic was used at messageCount.
func (l *TacticLog) Note(id string, messageCount int) {
	if l == nil {
		return
	}
	l.lastUsed[id] = messageCount
}

// Directive is the per-stage instruction injected into the reply prompt.
// During mining it names the highest-priority missing category that has
// not been asked for in the last few messages.
func Directive(s Stage, inventory *intel.Intelligence, tactics *TacticLog, messageCount int) string {
	switch s {
	case InitialHook:
		return "Respond with mild interest. Ask one naive clarifying question."
	case Engagement:
		return "Stay interested and a little confused. Let them explain their scheme."
	case InformationProbe:
		return "Ask which bank or service this is about and how it normally works."
	case Resistance:
		return "Hesitate. Mention a relative or friend who warned you about fraud, but stay reachable."
	case GradualCompliance:
		return "Seem almost convinced. Ask exactly where the money should go before you proceed."
	case IntelligenceMining:
		gaps := inventory.Gaps()
		if len(gaps) == 0 {
			return "Stall for time. Raise a small technical problem with the last step."
		}
		pick := gaps[0]
		for _, g := range gaps {
			if tactics.OK("mining:"+string(g), messageCount) {
				pick = g
				break
			}
		}
		tactics.Note("mining:"+string(pick), messageCount)
		return fmt.Sprintf("You are nearly ready to pay. Ask them to share their %s so you can complete it.", pick)
	case Prolongation:
		return "Invent a small obstacle (bank visit, network issue, waiting for a family member) and promise to finish soon."
	}
	return "Keep the conversation going naturally."
}
