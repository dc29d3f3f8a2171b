// Package agent produces the honeypot's reply for one inbound message.
// One provider call per message covers detection, extraction and reply
// generation together; everything the call needs is packed into a single
// prompt, and everything it returns comes back in one JSON object. When
// the call is skipped or fails the agent degrades to regex extraction
// and canned replies, never to an error the caller has to handle.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/baitline/baitline/internal/groq"
	"github.com/baitline/baitline/internal/intel"
	"github.com/baitline/baitline/internal/persona"
	"github.com/baitline/baitline/internal/rategate"
	"github.com/baitline/baitline/internal/stage"
)

// detectionThreshold is the model confidence below which a "scam" verdict
// is not trusted.
const detectionThreshold = 0.65

// Turn is one prior exchange shown to the model for context.
type Turn struct {
	Role string // "scammer" or "agent"
	Text string
}

// Input carries everything the orchestrator needs for one reply.
type Input struct {
	SessionID     string
	Message       string
	History       []Turn
	Persona       persona.Persona
	Stage         stage.Stage
	Directive     string
	Psychology    string
	Detected      bool // scam already confirmed earlier in the session
	RecentReplies []string
	MessageCount  int
	Tactics       *stage.TacticLog
}

// Result is the outcome of one turn.
type Result struct {
	Reply        string
	Delta        intel.Delta
	ScamDetected bool
	Confidence   float64
	ScamType     persona.ScamType
	AgentNote    string
	UsedFallback bool
	TokensUsed   int
}

// Orchestrator owns the generation path and its degradation ladder.
type Orchestrator struct {
	llm       *groq.Client
	gate      *rategate.Gate
	log       *slog.Logger
	maxTokens int
	maxWait   time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds an orchestrator. llm may be nil, in which case every turn
// uses the fallback path.
func New(llm *groq.Client, gate *rategate.Gate, maxTokens int, maxWait time.Duration, logger *slog.Logger) *Orchestrator {
	if maxTokens <= 0 {
		maxTokens = 250
	}
	return &Orchestrator{
		llm:       llm,
		gate:      gate,
		log:       logger,
		maxTokens: maxTokens,
		maxWait:   maxWait,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand pins the variant selection for tests.
func (o *Orchestrator) SetRand(rng *rand.Rand) {
	o.mu.Lock()
	o.rng = rng
	o.mu.Unlock()
}

// Respond handles one inbound message. It never returns an error: any
// failure inside the generation path downgrades to the deterministic
// fallback so the conversation keeps moving.
func (o *Orchestrator) Respond(ctx context.Context, in Input) Result {
	regexDelta := intel.Extract(in.Message)

	res := Result{
		Delta:    regexDelta,
		ScamType: persona.Classify(in.Message),
	}
	o.detectByKeywords(in, &res)

	if o.llm == nil {
		o.fallback(in, &res, "no provider configured")
		return res
	}

	prompt := o.buildPrompt(in)
	estimate := len(prompt)/4 + o.maxTokens

	if o.gate != nil {
		if err := o.gate.Admit(ctx, estimate, o.maxWait); err != nil {
			reason := "rate budget exhausted"
			if !errors.Is(err, rategate.ErrRateExceeded) {
				reason = err.Error()
			}
			o.fallback(in, &res, reason)
			return res
		}
	}

	comp, err := o.llm.CompleteJSON(ctx, prompt, o.maxTokens)
	if err != nil {
		if o.gate != nil {
			o.gate.Release(estimate)
		}
		o.fallback(in, &res, err.Error())
		return res
	}
	if o.gate != nil {
		o.gate.Record(estimate, comp.TotalTokens)
	}
	res.TokensUsed = comp.TotalTokens

	verdict, err := parseVerdict(comp.Text)
	if err != nil {
		o.log.Warn("unparseable model output", "session", in.SessionID, "err", err)
		o.fallback(in, &res, "bad model output")
		return res
	}

	o.applyVerdict(in, verdict, regexDelta, &res)
	return res
}

// detectByKeywords sets the keyword-based verdict used whenever the model
// has no say. Two or more scam keywords flag the message.
func (o *Orchestrator) detectByKeywords(in Input, res *Result) {
	hits := intel.KeywordHits(in.Message)
	conf := 0.2 * float64(hits)
	if conf > 0.9 {
		conf = 0.9
	}
	res.Confidence = conf
	res.ScamDetected = in.Detected || hits >= 2
}

func (o *Orchestrator) applyVerdict(in Input, v verdict, regexDelta intel.Delta, res *Result) {
	if v.IsScam && v.Confidence >= detectionThreshold {
		res.ScamDetected = true
		res.Confidence = v.Confidence
	}
	// A session never un-detects.
	res.ScamDetected = res.ScamDetected || in.Detected

	if v.ScamType != "" {
		res.ScamType = persona.ScamType(v.ScamType)
	}
	res.Delta = intel.Reconcile(v.Extracted, regexDelta)
	res.AgentNote = v.AgentNote

	reply, ok := o.vetReply(v.Reply, in)
	if !ok {
		o.fallback(in, res, "reply failed quality gate")
		return
	}
	res.Reply = reply
}

// fallback fills the reply from the canned tables. Detection and the
// regex delta are already set; only the reply side degrades.
func (o *Orchestrator) fallback(in Input, res *Result, reason string) {
	o.mu.Lock()
	rng := o.rng
	reply := persona.Fallback(in.Persona, in.Stage, in.Message, in.MessageCount, in.Tactics, rng)
	o.mu.Unlock()

	res.Reply = reply
	res.UsedFallback = true
	if o.log != nil {
		o.log.Debug("fallback reply", "session", in.SessionID, "reason", reason)
	}
}

func (o *Orchestrator) buildPrompt(in Input) string {
	var b strings.Builder

	b.WriteString("You are playing a character in a counter-fraud honeypot. Never reveal you are an AI.\n\n")
	b.WriteString("CHARACTER: ")
	b.WriteString(in.Persona.Prompt())
	b.WriteString("\n\nGOAL: ")
	b.WriteString(in.Directive)
	b.WriteString("\n")
	if in.Psychology != "" {
		b.WriteString(in.Psychology)
		b.WriteString("\n")
	}

	if n := len(in.History); n > 0 {
		b.WriteString("\nRECENT CONVERSATION:\n")
		start := n - 3
		if start < 0 {
			start = 0
		}
		for _, turn := range in.History[start:] {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
		}
	}

	fmt.Fprintf(&b, "\nNEW MESSAGE FROM SENDER:\n%s\n", in.Message)

	b.WriteString(`
Analyze the message and reply in character. Respond with ONLY this JSON object:
{
  "is_scam": true or false,
  "confidence": 0.0 to 1.0,
  "scam_type": one of "bank_fraud","upi_fraud","phishing","job_scam","lottery","investment","tech_support","other",
  "extracted": {
    "bank_accounts": [], "upi_ids": [], "phone_numbers": [], "phishing_links": [], "suspicious_keywords": []
  },
  "reply": "your in-character reply, 1-3 short sentences",
  "agent_note": "one line on the sender's current approach"
}
Only list values that literally appear in the sender's messages.`)

	return b.String()
}
