// Package report turns a finished session into the payload delivered to
// the evaluator callback, the archive and the message bus.
package report

import (
	"fmt"
	"strings"

	"github.com/baitline/baitline/internal/session"
)

// Intelligence is the harvested artifact block. Slices are always
// non-nil so consumers never see null arrays.
type Intelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Payload is the final report for one session.
type Payload struct {
	SessionID              string       `json:"sessionId"`
	ScamDetected           bool         `json:"scamDetected"`
	ScamType               string       `json:"scamType"`
	TotalMessagesExchanged int          `json:"totalMessagesExchanged"`
	ExtractedIntelligence  Intelligence `json:"extractedIntelligence"`
	AgentNotes             string       `json:"agentNotes"`
	EngagementSeconds      int          `json:"engagementDurationSeconds"`
}

// Build snapshots a session into its report. Caller holds the session
// lock.
func Build(s *session.Session) Payload {
	p := Payload{
		SessionID:              s.ID,
		ScamDetected:           s.Detected,
		ScamType:               string(s.ScamType()),
		TotalMessagesExchanged: len(s.Messages),
		ExtractedIntelligence: Intelligence{
			BankAccounts:       orEmpty(s.Intel.BankAccounts()),
			UPIIDs:             orEmpty(s.Intel.UPIIDs()),
			PhishingLinks:      orEmpty(s.Intel.PhishingLinks()),
			PhoneNumbers:       orEmpty(s.Intel.PhoneNumbers()),
			SuspiciousKeywords: orEmpty(s.Intel.Keywords()),
		},
		AgentNotes:        buildNotes(s),
		EngagementSeconds: int(s.LastActive.Sub(s.CreatedAt).Seconds()),
	}
	return p
}

func buildNotes(s *session.Session) string {
	var parts []string
	if s.Detected {
		parts = append(parts, fmt.Sprintf("Engaged a %s attempt over %d messages at %.2f confidence.", s.ScamType(), s.ScammerMessageCount(), s.Confidence))
	} else {
		parts = append(parts, fmt.Sprintf("No scam confirmed during the exchange (confidence %.2f).", s.Confidence))
	}
	if p, ok := s.Persona(); ok {
		parts = append(parts, fmt.Sprintf("Played the %s persona.", p))
	}
	parts = append(parts, fmt.Sprintf("Intelligence score %.1f.", s.Intel.Score()))
	if tactics := s.Profile.Tactics(); len(tactics) > 0 {
		strs := make([]string, len(tactics))
		for i, t := range tactics {
			strs[i] = string(t)
		}
		parts = append(parts, "Observed manipulation tactics: "+strings.Join(strs, ", ")+".")
	}
	parts = append(parts, "Likely pressure points: "+strings.Join(s.Profile.Weaknesses(), ", ")+".")
	if len(s.AgentNotes) > 0 {
		parts = append(parts, s.AgentNotes[len(s.AgentNotes)-1])
	}
	return strings.Join(parts, " ")
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
