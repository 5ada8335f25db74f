package models

import (
	"errors"
	"testing"
	"time"
)

func TestProfileComplete(t *testing.T) {
	p := Profile{UserID: 1}
	if p.Complete() {
		t.Errorf("empty profile should not be complete")
	}
	p.FullName = "Иванов Иван Иванович"
	if p.Complete() {
		t.Errorf("profile without region and display name should not be complete")
	}
	p.Region = "Московская область"
	p.DisplayName = "Иван"
	if !p.Complete() {
		t.Errorf("profile with all three fields should be complete")
	}
}

func TestReportValidate(t *testing.T) {
	now := time.Now()
	r := Report{
		ReportID:    "r-1",
		RecipientID: 42,
		Questions:   []string{"q1", "q2"},
		Status:      ReportStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("valid pending report: %v", err)
	}

	r.Answers = []string{"a1", "a2", "a3"}
	if err := r.Validate(); !errors.Is(err, ErrTooManyAnswers) {
		t.Errorf("expected ErrTooManyAnswers, got %v", err)
	}

	r.Answers = []string{"a1"}
	r.Status = ReportStatusCompleted
	if err := r.Validate(); err == nil {
		t.Errorf("completed report with missing answers should fail validation")
	}

	r.Answers = []string{"a1", "a2"}
	if err := r.Validate(); err != nil {
		t.Errorf("completed report with all answers: %v", err)
	}

	r.Status = "bogus"
	if err := r.Validate(); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestParseWeekYear(t *testing.T) {
	week, year, err := ParseWeekYear(" 35  2026 ")
	if err != nil {
		t.Fatalf("ParseWeekYear: %v", err)
	}
	if week != 35 || year != 2026 {
		t.Errorf("got %d/%d, want 35/2026", week, year)
	}

	for _, text := range []string{"", "35", "35 2026 extra", "abc 2026", "35 abc", "0 2026", "54 2026"} {
		if _, _, err := ParseWeekYear(text); !errors.Is(err, ErrInvalidWeekFormat) {
			t.Errorf("ParseWeekYear(%q) = %v, want ErrInvalidWeekFormat", text, err)
		}
	}
}

func TestReportNextQuestionAndOutstanding(t *testing.T) {
	r := Report{Questions: []string{"q1", "q2", "q3"}, Answers: []string{"a1"}}
	if got := r.NextQuestion(); got != "q2" {
		t.Errorf("NextQuestion = %q, want q2", got)
	}
	out := r.Outstanding()
	if len(out) != 2 || out[0] != "q2" || out[1] != "q3" {
		t.Errorf("Outstanding = %v", out)
	}

	r.Answers = []string{"a1", "a2", "a3"}
	if !r.Completed() {
		t.Errorf("report with all answers should be completed")
	}
	if r.NextQuestion() != "" {
		t.Errorf("completed report should have no next question")
	}
	if r.Outstanding() != nil {
		t.Errorf("completed report should have no outstanding questions")
	}
}

func TestIsValidReportStatus(t *testing.T) {
	for _, s := range []ReportStatus{ReportStatusPending, ReportStatusInProgress, ReportStatusCompleted} {
		if !IsValidReportStatus(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	if IsValidReportStatus("done") {
		t.Errorf("unknown status should be invalid")
	}
}

func TestStateClassification(t *testing.T) {
	if !IsRegistrationState(StateAwaitingRegion) {
		t.Errorf("StateAwaitingRegion is a registration state")
	}
	if IsRegistrationState(StateIdle) {
		t.Errorf("StateIdle is not a registration state")
	}
	if !IsPromptState(StateAwaitingNewFact) {
		t.Errorf("StateAwaitingNewFact is a prompt state")
	}
	if IsPromptState(StateAwaitingReportAnswer) {
		t.Errorf("report answering is not a single-value prompt state")
	}
}
