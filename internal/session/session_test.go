package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
)

func TestStoreGetCreatesIdleSession(t *testing.T) {
	st := NewStore()
	s := st.Get(42)
	if s.State != models.StateIdle {
		t.Errorf("new session state = %s, want idle", s.State)
	}
	if s.Dir != RootPath {
		t.Errorf("new session dir = %q, want root", s.Dir)
	}
	if st.Get(42) != s {
		t.Errorf("Get must return the same session for the same chat")
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
}

func TestStoreConcurrentGet(t *testing.T) {
	st := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(chat int64) {
			defer wg.Done()
			st.Get(chat % 5)
		}(int64(i))
	}
	wg.Wait()
	if st.Len() != 5 {
		t.Errorf("Len = %d, want 5", st.Len())
	}
}

func TestResetKeepsHistory(t *testing.T) {
	st := NewStore()
	s := st.Get(1)
	s.State = models.StateBrowsingDocs
	s.Dir = "/Регионы"
	s.District = "Южный федеральный округ"
	s.ReportID = "rep-1"
	s.Files = []models.DiskItem{{Name: "a.pdf"}}
	s.Append(models.RoleUser, "вопрос")

	s.Reset()
	if s.State != models.StateIdle || s.Dir != "" || s.District != "" || s.ReportID != "" || s.Files != nil {
		t.Errorf("Reset left flow state behind: %+v", s)
	}
	if len(s.History) != 1 {
		t.Errorf("Reset must not clear history, got %d", len(s.History))
	}
}

func TestSetSystemReplacesHead(t *testing.T) {
	s := &Session{}
	s.Append(models.RoleUser, "привет")
	s.SetSystem("первая инструкция")
	if s.History[0].Role != models.RoleSystem || s.History[0].Content != "первая инструкция" {
		t.Fatalf("head = %+v", s.History[0])
	}
	s.SetSystem("вторая инструкция")
	if len(s.History) != 2 {
		t.Errorf("SetSystem must replace, not stack; len = %d", len(s.History))
	}
	if s.History[0].Content != "вторая инструкция" {
		t.Errorf("head content = %q", s.History[0].Content)
	}
}

func TestTruncationKeepsSystemHeadAndRecentTurns(t *testing.T) {
	s := &Session{}
	s.SetSystem("система")
	for i := 0; i < 30; i++ {
		s.Append(models.RoleUser, fmt.Sprintf("вопрос %d", i))
		s.Append(models.RoleAssistant, fmt.Sprintf("ответ %d", i))
	}
	if got := len(s.History); got != HistoryLimit+1 {
		t.Fatalf("history length = %d, want %d", got, HistoryLimit+1)
	}
	if s.History[0].Role != models.RoleSystem {
		t.Errorf("system head must survive truncation")
	}
	// The most recent turn is always retained.
	last := s.History[len(s.History)-1]
	if last.Content != "ответ 29" {
		t.Errorf("last turn = %q, want the newest", last.Content)
	}
	// The oldest turns are dropped first.
	second := s.History[1]
	if second.Content == "вопрос 0" {
		t.Errorf("oldest turn should have been truncated")
	}
}

func TestTruncationWithoutSystemHead(t *testing.T) {
	s := &Session{}
	for i := 0; i < 25; i++ {
		s.Append(models.RoleUser, fmt.Sprintf("m%d", i))
	}
	if got := len(s.History); got != HistoryLimit {
		t.Errorf("history length = %d, want %d", got, HistoryLimit)
	}
	if s.History[0].Content != "m6" {
		t.Errorf("head = %q, want m6", s.History[0].Content)
	}
}
