package reports

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/messaging"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	created   []models.Report
	overdue   []models.Report
	stamped   map[string]bool
	denyMark  bool
	listCalls int
}

func (f *fakeStore) CreateReport(r models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, r)
	return nil
}

func (f *fakeStore) ListOverdueReports(cutoff time.Time) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.overdue, nil
}

func (f *fakeStore) MarkReminderSent(reportID string, recipientID int64, now, cutoff time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denyMark {
		return false, nil
	}
	if f.stamped == nil {
		f.stamped = make(map[string]bool)
	}
	f.stamped[reportID] = true
	return true, nil
}

type fakeSender struct {
	mu       sync.Mutex
	messages []string
	prompts  []string
	keyboard messaging.InlineKeyboard
	chats    []int64
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	f.chats = append(f.chats, chatID)
	return nil
}

func (f *fakeSender) SendInlineKeyboard(ctx context.Context, chatID int64, text string, keyboard messaging.InlineKeyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, text)
	f.keyboard = keyboard
	f.chats = append(f.chats, chatID)
	return nil
}

func TestIsReportBody(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"single line", "Собрание перенесено на пятницу.", false},
		{"two lines", "Сколько мероприятий?\nСколько участников?", true},
		{"numbered single line", "1. Сколько мероприятий проведено?", true},
		{"paren numbering", "1) Укажите количество участников", true},
		{"blank lines only pad", "Вопрос один\n\n\n", false},
	}
	for _, tc := range cases {
		if got := IsReportBody(tc.body); got != tc.want {
			t.Errorf("%s: IsReportBody(%q) = %v, want %v", tc.name, tc.body, got, tc.want)
		}
	}
}

func TestParseQuestions(t *testing.T) {
	body := "Сколько мероприятий?\n\n  Сколько участников?  \n"
	got := ParseQuestions(body)
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d: %v", len(got), got)
	}
	if got[1] != "Сколько участников?" {
		t.Errorf("question not trimmed: %q", got[1])
	}
}

func TestBroadcastAnnouncement(t *testing.T) {
	st := &fakeStore{}
	tr := &fakeSender{}
	svc := NewService(st, tr)

	reportID, err := svc.Broadcast(context.Background(), "Собрание перенесено.", []int64{10, 20})
	if err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}
	if reportID != "" {
		t.Errorf("announcement must not create a report, got id %q", reportID)
	}
	if len(st.created) != 0 {
		t.Errorf("announcement persisted %d report rows", len(st.created))
	}
	if len(tr.messages) != 2 {
		t.Errorf("expected 2 plain sends, got %d", len(tr.messages))
	}
}

func TestBroadcastReportFanOut(t *testing.T) {
	st := &fakeStore{}
	tr := &fakeSender{}
	svc := NewService(st, tr)
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) }

	body := "1. Сколько мероприятий проведено?\n2. Сколько участников?"
	reportID, err := svc.Broadcast(context.Background(), body, []int64{10, 20, 30})
	if err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}
	if reportID == "" {
		t.Fatal("report body must yield a report id")
	}
	if len(st.created) != 3 {
		t.Fatalf("expected 3 report rows, got %d", len(st.created))
	}
	for _, r := range st.created {
		if r.ReportID != reportID {
			t.Errorf("row uses id %q, want shared id %q", r.ReportID, reportID)
		}
		if len(r.Questions) != 2 {
			t.Errorf("row carries %d questions, want 2", len(r.Questions))
		}
		if r.Status != models.ReportStatusPending {
			t.Errorf("new row status = %q", r.Status)
		}
		year, week := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC).ISOWeek()
		if r.ISOYear != year || r.ISOWeek != week {
			t.Errorf("row week = %d/%d, want %d/%d", r.ISOWeek, r.ISOYear, week, year)
		}
	}
	if len(tr.prompts) != 3 {
		t.Fatalf("expected 3 prompt sends, got %d", len(tr.prompts))
	}
	if len(tr.keyboard) == 0 || tr.keyboard[0][0].Data != ResumeCallbackPrefix+reportID {
		t.Errorf("resume button data = %v", tr.keyboard)
	}
}

func TestSweepSendsReminderWithOutstandingQuestions(t *testing.T) {
	report := models.Report{
		ReportID:    "r-1",
		RecipientID: 42,
		Questions:   []string{"Сколько мероприятий?", "Сколько участников?"},
		Answers:     []string{"5"},
		Status:      models.ReportStatusInProgress,
	}
	st := &fakeStore{overdue: []models.Report{report}}
	tr := &fakeSender{}
	svc := NewService(st, tr)

	svc.Sweep(context.Background())

	if !st.stamped["r-1"] {
		t.Fatal("reminder not stamped before send")
	}
	if len(tr.prompts) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(tr.prompts))
	}
	if !strings.Contains(tr.prompts[0], "Сколько участников?") {
		t.Errorf("reminder misses outstanding question: %q", tr.prompts[0])
	}
	if strings.Contains(tr.prompts[0], "Сколько мероприятий?") {
		t.Errorf("reminder repeats answered question: %q", tr.prompts[0])
	}
}

func TestSweepSkipsAfterShutdown(t *testing.T) {
	report := models.Report{ReportID: "r-3", RecipientID: 9, Questions: []string{"q"}, Status: models.ReportStatusPending}
	st := &fakeStore{overdue: []models.Report{report}}
	tr := &fakeSender{}
	svc := NewService(st, tr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Sweep(ctx)

	if st.listCalls != 0 {
		t.Errorf("sweep queried the store after shutdown")
	}
	if len(tr.prompts)+len(tr.messages) != 0 {
		t.Errorf("sweep sent reminders after shutdown")
	}
}

func TestSweepSkipsUnclaimedRows(t *testing.T) {
	report := models.Report{ReportID: "r-2", RecipientID: 7, Questions: []string{"q"}, Status: models.ReportStatusPending}
	st := &fakeStore{overdue: []models.Report{report}, denyMark: true}
	tr := &fakeSender{}
	svc := NewService(st, tr)

	svc.Sweep(context.Background())

	if len(tr.prompts)+len(tr.messages) != 0 {
		t.Errorf("unclaimed row still produced a send")
	}
}
