package stage

import (
	"strings"
	"testing"

	"github.com/baitline/baitline/internal/intel"
	"github.com/baitline/baitline/internal/profile"
)

// fullInventory returns an inventory with every category filled so the
// gap rule never fires.
func fullInventory(t *testing.T) *intel.Intelligence {
	t.Helper()
	inv := intel.NewIntelligence()
	inv.Merge(intel.Delta{
		BankAccounts:  []string{"123456789012"},
		UPIIDs:        []string{"fraud@ybl"},
		PhoneNumbers:  []string{"9876543210"},
		PhishingLinks: []string{"http://kyc.example.in"},
	})
	return inv
}

func TestNextNeverMovesBackward(t *testing.T) {
	inv := fullInventory(t)
	prof := profile.New()

	cur := InitialHook
	for msgs := 1; msgs <= 20; msgs++ {
		next := Next(cur, msgs, inv, prof)
		if next < cur {
			t.Fatalf("msg %d: stage moved backward %v -> %v", msgs, cur, next)
		}
		cur = next
	}
}

func TestNextPacesOneStepPerTwoMessages(t *testing.T) {
	inv := fullInventory(t)
	prof := profile.New()

	tests := []struct {
		messages int
		want     Stage
	}{
		{1, InitialHook},
		{2, Engagement},
		{4, InformationProbe},
		{6, Resistance},
		{8, GradualCompliance},
		{10, IntelligenceMining},
		{12, Prolongation},
		{19, Prolongation},
	}
	for _, tt := range tests {
		if got := Next(InitialHook, tt.messages, inv, prof); got != tt.want {
			t.Fatalf("Next(initial, %d) = %v, want %v", tt.messages, got, tt.want)
		}
	}
}

func TestNextJumpsToMiningWhenCategoriesMissing(t *testing.T) {
	inv := intel.NewIntelligence() // nothing collected
	prof := profile.New()

	if got := Next(Engagement, 6, inv, prof); got != IntelligenceMining {
		t.Fatalf("Next with empty inventory at msg 6 = %v, want %v", got, IntelligenceMining)
	}
	// Not before the opening turns have passed.
	if got := Next(InitialHook, 4, inv, prof); got == IntelligenceMining {
		t.Fatal("gap rule fired before message 6")
	}
	// Never pulls a later stage back.
	if got := Next(Prolongation, 10, inv, prof); got != Prolongation {
		t.Fatalf("Next regressed from prolongation to %v", got)
	}
}

func TestImpatienceAcceleratesCompliance(t *testing.T) {
	inv := fullInventory(t)
	prof := profile.New()
	prof.Patience = 0.2

	if got := Next(Engagement, 4, inv, prof); got != GradualCompliance {
		t.Fatalf("Next with patience 0.2 = %v, want %v", got, GradualCompliance)
	}
}

func TestDone(t *testing.T) {
	empty := intel.NewIntelligence()
	if Done(14, empty) {
		t.Fatal("Done at 14 messages with no intel")
	}
	if !Done(15, empty) {
		t.Fatal("not Done at 15 messages")
	}

	rich := intel.NewIntelligence()
	rich.Merge(intel.Delta{
		BankAccounts: []string{"123456789012", "210987654321"},
		UPIIDs:       []string{"a@ybl"},
	})
	if !Done(3, rich) {
		t.Fatalf("not Done with intel score %v", rich.Score())
	}
}

func TestMiningDirectiveNamesTopGap(t *testing.T) {
	inv := intel.NewIntelligence()
	inv.Merge(intel.Delta{PhoneNumbers: []string{"9876543210"}})

	d := Directive(IntelligenceMining, inv, nil, 6)
	if !strings.Contains(d, string(intel.GapUPI)) {
		t.Fatalf("directive %q does not name the upi gap", d)
	}

	full := fullInventory(t)
	if d := Directive(IntelligenceMining, full, nil, 6); strings.Contains(d, "share their") {
		t.Fatalf("directive %q asks for intel with nothing missing", d)
	}
}

func TestMiningDirectiveRotatesAskedCategories(t *testing.T) {
	inv := intel.NewIntelligence()
	log := NewTacticLog()

	wants := []intel.Gap{intel.GapUPI, intel.GapBank, intel.GapLink}
	for i, want := range wants {
		d := Directive(IntelligenceMining, inv, log, 6+i)
		if !strings.Contains(d, string(want)) {
			t.Fatalf("ask %d = %q, want the %q gap", i, d, want)
		}
	}

	// Three messages have passed since the upi ask, so the rotation
	// wraps back to the top priority instead of reaching the phone gap.
	if d := Directive(IntelligenceMining, inv, log, 9); !strings.Contains(d, string(intel.GapUPI)) {
		t.Fatalf("directive %q does not return to the upi gap after cooldown", d)
	}
}
