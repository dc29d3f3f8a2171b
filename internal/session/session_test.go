package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/baitline/baitline/internal/persona"
)

func TestGetOrCreate(t *testing.T) {
	st := NewStore()

	s, created := st.GetOrCreate("abc")
	if !created {
		t.Fatal("first lookup did not create")
	}
	if s.Intel == nil || s.Profile == nil {
		t.Fatal("new session missing intel or profile state")
	}

	again, created := st.GetOrCreate("abc")
	if created || again != s {
		t.Fatal("second lookup did not return the same session")
	}
	if st.Len() != 1 {
		t.Fatalf("Len() = %d", st.Len())
	}
}

func TestGetOrCreateConcurrent(t *testing.T) {
	st := NewStore()
	var wg sync.WaitGroup
	results := make([]*Session, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = st.GetOrCreate("same-id")
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent GetOrCreate returned distinct sessions")
		}
	}
	if st.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", st.Len())
	}
}

func TestPersonaIsWriteOnce(t *testing.T) {
	s := &Session{}
	s.SetPersonaOnce(persona.ElderlyConfused)
	s.SetPersonaOnce(persona.BusyProfessional)

	got, ok := s.Persona()
	if !ok || got != persona.ElderlyConfused {
		t.Fatalf("Persona() = %q, want first write to stick", got)
	}
}

func TestScamTypeOnlyUpgradesFromOther(t *testing.T) {
	s := &Session{}
	if s.ScamType() != persona.Other {
		t.Fatalf("default ScamType() = %q", s.ScamType())
	}

	s.SetScamType(persona.Other)
	s.SetScamType(persona.BankFraud)
	if s.ScamType() != persona.BankFraud {
		t.Fatalf("ScamType() = %q, want upgrade from other", s.ScamType())
	}

	s.SetScamType(persona.Lottery)
	if s.ScamType() != persona.BankFraud {
		t.Fatalf("ScamType() = %q, specific verdict overwritten", s.ScamType())
	}
}

func TestRecentAgentReplies(t *testing.T) {
	s := &Session{}
	for i := 0; i < 5; i++ {
		s.AddMessage("scammer", fmt.Sprintf("demand %d", i))
		s.AddMessage("agent", fmt.Sprintf("reply %d", i))
	}

	got := s.RecentAgentReplies(3)
	want := []string{"reply 2", "reply 3", "reply 4"}
	if len(got) != 3 {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RecentAgentReplies = %v, want %v", got, want)
		}
	}

	if n := s.ScammerMessageCount(); n != 5 {
		t.Fatalf("ScammerMessageCount() = %d", n)
	}
}

func TestAddNoteKeepsTail(t *testing.T) {
	s := &Session{}
	s.AddNote("   ")
	for i := 0; i < 8; i++ {
		s.AddNote(fmt.Sprintf("note %d", i))
	}
	if len(s.AgentNotes) != 5 {
		t.Fatalf("kept %d notes", len(s.AgentNotes))
	}
	if s.AgentNotes[0] != "note 3" || s.AgentNotes[4] != "note 7" {
		t.Fatalf("AgentNotes = %v", s.AgentNotes)
	}
}

func TestExpired(t *testing.T) {
	st := NewStore()
	old, _ := st.GetOrCreate("old")
	old.Lock()
	old.LastActive = time.Now().Add(-time.Hour)
	old.Unlock()
	st.GetOrCreate("fresh")

	expired := st.Expired(30 * time.Minute)
	if len(expired) != 1 || expired[0].ID != "old" {
		t.Fatalf("Expired = %v", expired)
	}
}
