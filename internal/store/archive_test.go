package store

import (
	"context"
	"testing"

	"github.com/baitline/baitline/internal/report"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func samplePayload(id string, detected bool) report.Payload {
	return report.Payload{
		SessionID:              id,
		ScamDetected:           detected,
		ScamType:               "upi_fraud",
		TotalMessagesExchanged: 6,
		ExtractedIntelligence: report.Intelligence{
			BankAccounts:       []string{},
			UPIIDs:             []string{"fraud@ybl"},
			PhishingLinks:      []string{},
			PhoneNumbers:       []string{"9876543210"},
			SuspiciousKeywords: []string{"otp", "blocked"},
		},
		AgentNotes: "pressure via urgency",
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	if err := a.Save(ctx, samplePayload("s1", true)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := a.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || !got.ScamDetected || got.ExtractedIntelligence.UPIIDs[0] != "fraud@ybl" {
		t.Fatalf("Get = %+v", got)
	}

	if missing, err := a.Get(ctx, "nope"); err != nil || missing != nil {
		t.Fatalf("Get(missing) = %v, %v", missing, err)
	}
}

func TestSaveUpsertsBySession(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	p := samplePayload("s1", false)
	if err := a.Save(ctx, p); err != nil {
		t.Fatal(err)
	}
	p.ScamDetected = true
	p.TotalMessagesExchanged = 15
	if err := a.Save(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := a.Get(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.ScamDetected || got.TotalMessagesExchanged != 15 {
		t.Fatalf("second Save did not replace: %+v", got)
	}

	stats, err := a.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalSessions != 1 {
		t.Fatalf("TotalSessions = %d after upsert", stats.TotalSessions)
	}
}

func TestStatsAndRecent(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	for _, tc := range []struct {
		id       string
		detected bool
	}{{"a", true}, {"b", false}, {"c", true}} {
		if err := a.Save(ctx, samplePayload(tc.id, tc.detected)); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := a.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalSessions != 3 || stats.ScamsDetected != 2 {
		t.Fatalf("Stats = %+v", stats)
	}
	// 4 intel items per sample payload.
	if stats.IntelItemsTotal != 12 {
		t.Fatalf("IntelItemsTotal = %d", stats.IntelItemsTotal)
	}

	recent, err := a.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent returned %d reports", len(recent))
	}
}
