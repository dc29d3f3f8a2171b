// Package engine runs the per-message pipeline: log the inbound turn,
// update the behavioral profile, advance the conversation arc, produce a
// reply, bank extracted intelligence and close the session out with a
// report when it is done.
package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/baitline/baitline/internal/agent"
	"github.com/baitline/baitline/internal/bus"
	"github.com/baitline/baitline/internal/persona"
	"github.com/baitline/baitline/internal/report"
	"github.com/baitline/baitline/internal/session"
	"github.com/baitline/baitline/internal/stage"
	"github.com/baitline/baitline/internal/store"
)

// Reply is what the API hands back for one inbound message.
type Reply struct {
	SessionID    string  `json:"sessionId"`
	Status       string  `json:"status"` // "active" or "terminated"
	Reply        string  `json:"reply"`
	ScamDetected bool    `json:"scamDetected"`
	Stage        string  `json:"stage"`
	IntelScore   float64 `json:"intelScore"`
}

const (
	StatusActive     = "active"
	StatusTerminated = "terminated"
)

// Engine owns the session registry and the collaborators a finished
// session is reported to. Poster, archive and fanout are all optional.
type Engine struct {
	sessions *session.Store
	orch     *agent.Orchestrator
	poster   *report.Poster
	archive  *store.Archive
	fanout   *bus.Client
	log      *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand

	wg sync.WaitGroup
}

func New(sessions *session.Store, orch *agent.Orchestrator, poster *report.Poster, archive *store.Archive, fanout *bus.Client, logger *slog.Logger) *Engine {
	return &Engine{
		sessions: sessions,
		orch:     orch,
		poster:   poster,
		archive:  archive,
		fanout:   fanout,
		log:      logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand pins persona selection for tests.
func (e *Engine) SetRand(rng *rand.Rand) {
	e.mu.Lock()
	e.rng = rng
	e.mu.Unlock()
}

// HandleMessage processes one inbound message end to end. The session
// lock is held for the whole turn, so turns within a session serialize
// while distinct sessions proceed in parallel.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, text string) Reply {
	s, created := e.sessions.GetOrCreate(sessionID)
	if created {
		e.log.Info("session opened", "session", sessionID)
	}

	s.Lock()
	defer s.Unlock()

	if s.Terminated {
		return Reply{
			SessionID:    s.ID,
			Status:       StatusTerminated,
			ScamDetected: s.Detected,
			Stage:        s.Stage.String(),
			IntelScore:   s.Intel.Score(),
		}
	}

	s.AddMessage("scammer", text)
	s.Profile.Observe(text)

	msgCount := s.ScammerMessageCount()
	s.Stage = stage.Next(s.Stage, msgCount, s.Intel, s.Profile)

	// The persona stays tentative until the scam is confirmed; it locks
	// on the turn detection fires and never changes after that.
	p, locked := s.Persona()
	if !locked {
		e.mu.Lock()
		p = persona.Pick(persona.Classify(text), e.rng)
		e.mu.Unlock()
	}

	res := e.orch.Respond(ctx, agent.Input{
		SessionID:     s.ID,
		Message:       text,
		History:       history(s),
		Persona:       p,
		Stage:         s.Stage,
		Directive:     stage.Directive(s.Stage, s.Intel, s.Tactics, msgCount),
		Psychology:    s.Profile.PromptHint(),
		Detected:      s.Detected,
		RecentReplies: s.RecentAgentReplies(3),
		MessageCount:  msgCount,
		Tactics:       s.Tactics,
	})

	if res.ScamDetected && !s.Detected {
		e.log.Info("scam confirmed", "session", sessionID, "type", res.ScamType, "confidence", res.Confidence)
	}
	s.Detected = s.Detected || res.ScamDetected
	if res.Confidence > s.Confidence {
		s.Confidence = res.Confidence
	}
	s.TokensUsed += res.TokensUsed
	if res.UsedFallback {
		s.FallbackCount++
	}

	reply := res.Reply
	if s.Detected {
		if !locked {
			s.SetPersonaOnce(p)
			e.log.Info("persona assigned", "session", sessionID, "persona", p)
		}
		s.SetScamType(res.ScamType)
		if added := s.Intel.Merge(res.Delta); added > 0 {
			e.log.Info("intelligence banked", "session", sessionID, "new_items", added, "score", s.Intel.Score())
		}
		s.AddNote(res.AgentNote)
	} else {
		// Unconfirmed sessions get a non-committal reply and bank
		// nothing. A mundane conversation must not grow a character or
		// an evidence trail.
		e.mu.Lock()
		reply = persona.Neutral(e.rng)
		e.mu.Unlock()
	}

	s.AddMessage("agent", reply)

	status := StatusActive
	if stage.Done(msgCount, s.Intel) {
		s.Terminated = true
		status = StatusTerminated
		e.log.Info("session terminated", "session", sessionID,
			"messages", msgCount, "intel_score", s.Intel.Score())
		e.dispatchReport(report.Build(s))
	}

	return Reply{
		SessionID:    s.ID,
		Status:       status,
		Reply:        reply,
		ScamDetected: s.Detected,
		Stage:        s.Stage.String(),
		IntelScore:   s.Intel.Score(),
	}
}

func history(s *session.Session) []agent.Turn {
	msgs := s.Messages
	// Skip the turn just logged for the current message.
	if n := len(msgs); n > 0 {
		msgs = msgs[:n-1]
	}
	start := len(msgs) - 6
	if start < 0 {
		start = 0
	}
	out := make([]agent.Turn, 0, len(msgs)-start)
	for _, m := range msgs[start:] {
		out = append(out, agent.Turn{Role: m.Role, Text: m.Text})
	}
	return out
}

// dispatchReport delivers one report to every configured sink without
// blocking the serving path. Exactly one dispatch happens per session;
// the Terminated flag guards re-entry.
func (e *Engine) dispatchReport(p report.Payload) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if e.poster != nil {
			if err := e.poster.Post(ctx, p); err != nil {
				e.log.Error("callback delivery failed", "session", p.SessionID, "err", err)
			}
		}
		if e.archive != nil {
			if err := e.archive.Save(ctx, p); err != nil {
				e.log.Error("archive write failed", "session", p.SessionID, "err", err)
			}
		}
		if e.fanout != nil {
			if err := e.fanout.Publish(bus.SubjectReport, p); err != nil {
				e.log.Warn("report fanout failed", "session", p.SessionID, "err", err)
			}
		}
	}()
}

// RunEviction sweeps idle sessions until ctx is cancelled. A session
// that went quiet still gets its report; the other side walking away is
// the normal way a conversation ends.
func (e *Engine) RunEviction(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweep(ttl)
		}
	}
}

func (e *Engine) sweep(ttl time.Duration) {
	for _, s := range e.sessions.Expired(ttl) {
		s.Lock()
		if !s.Terminated {
			s.Terminated = true
			e.log.Info("session evicted idle", "session", s.ID, "messages", len(s.Messages))
			e.dispatchReport(report.Build(s))
		}
		s.Unlock()
		e.sessions.Delete(s.ID)
	}
}

// Drain waits for in-flight report deliveries, bounded by ctx.
func (e *Engine) Drain(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
