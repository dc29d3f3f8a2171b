package profile

import "testing"

func TestDefaultsBeforeAnyMessage(t *testing.T) {
	p := New()
	if p.Aggression != 0.3 || p.Patience != 0.7 || p.Sophistication != 0.3 || p.Manipulation != 0.3 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if got := p.Recommend(); got != MaintainEngagement {
		t.Fatalf("Recommend() = %q, want %q", got, MaintainEngagement)
	}
	if len(p.Tactics()) != 0 {
		t.Fatalf("expected no tactics, got %v", p.Tactics())
	}
}

func TestRepeatedDemandsDrainPatience(t *testing.T) {
	p := New()
	demand := "send the OTP, do it now, hurry up, i'm waiting"

	prev := p.Patience
	for i := 0; i < 4; i++ {
		p.Observe(demand)
		if p.Patience >= prev {
			t.Fatalf("iteration %d: patience %v did not drop below %v", i, p.Patience, prev)
		}
		prev = p.Patience
	}
	if p.Patience >= 0.4 {
		t.Fatalf("patience after repeated demands = %v, want < 0.4", p.Patience)
	}
}

func TestAggressionFromThreatsAndCaps(t *testing.T) {
	p := New()
	p.Observe("DO IT NOW!!! POLICE will ARREST you, this is your LAST CHANCE!")
	if p.Aggression <= 0.3 {
		t.Fatalf("aggression %v did not rise from baseline", p.Aggression)
	}

	calm := New()
	calm.Observe("hello, how are you doing today")
	if calm.Aggression >= p.Aggression {
		t.Fatalf("calm message scored %v, aggressive scored %v", calm.Aggression, p.Aggression)
	}
}

func TestSmoothingBoundsSingleMessageSwing(t *testing.T) {
	p := New()
	p.Observe("ARREST POLICE COURT JAIL FREEZE BLOCK!!! LAST CHANCE!!! NO CHOICE!!!")
	// One message moves the score by at most alpha toward the raw value.
	if p.Aggression > 0.3+alpha*0.7+1e-9 {
		t.Fatalf("aggression %v exceeded one-step smoothing bound", p.Aggression)
	}
}

func TestScoresStayBounded(t *testing.T) {
	p := New()
	for i := 0; i < 20; i++ {
		p.Observe("URGENT!!! POLICE ARREST NOW!!! why haven't you done it, hurry up, i'm waiting??")
	}
	for name, v := range map[string]float64{
		"aggression":     p.Aggression,
		"patience":       p.Patience,
		"sophistication": p.Sophistication,
		"manipulation":   p.Manipulation,
	} {
		if v < 0 || v > 1 {
			t.Fatalf("%s = %v out of [0,1]", name, v)
		}
	}
}

func TestManipulationTacticsAccumulate(t *testing.T) {
	p := New()
	p.Observe("your account hacked, you will lose everything")
	p.Observe("offer expires within 24 hours, limited time only")

	got := p.Tactics()
	want := map[Tactic]bool{TacticFear: true, TacticUrgency: true}
	if len(got) != len(want) {
		t.Fatalf("Tactics() = %v, want fear and urgency", got)
	}
	for _, tac := range got {
		if !want[tac] {
			t.Fatalf("unexpected tactic %q in %v", tac, got)
		}
	}
	if p.DominantTactic() != TacticFear {
		t.Fatalf("DominantTactic() = %q, want %q", p.DominantTactic(), TacticFear)
	}
}

func TestRecommendTransitions(t *testing.T) {
	tests := []struct {
		name string
		prof Profile
		want Strategy
	}{
		{"impatient and aggressive", Profile{Aggression: 0.6, Patience: 0.3}, ShowMoreConfusion},
		{"sophisticated", Profile{Patience: 0.7, Sophistication: 0.7}, MoreRealisticPersona},
		{"heavy manipulation", Profile{Patience: 0.7, Manipulation: 0.7}, StrategicAlmostCompliance},
		{"just impatient", Profile{Patience: 0.3, Aggression: 0.2}, DangleCompliance},
		{"baseline", Profile{Aggression: 0.3, Patience: 0.7, Sophistication: 0.3, Manipulation: 0.3}, MaintainEngagement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.prof.Recommend(); got != tt.want {
				t.Fatalf("Recommend() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWeaknessesNeverEmpty(t *testing.T) {
	p := New()
	if got := p.Weaknesses(); len(got) == 0 {
		t.Fatal("Weaknesses() returned empty slice")
	}
}
