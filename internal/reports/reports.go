// Package reports implements the structured-report workflow: creating
// multi-question reports for a recipient set, classifying broadcast
// bodies, and the fixed-cadence reminder sweep for incomplete reports.
package reports

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/messaging"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/scheduler"
)

// Sweep cadence. A reminder fires at most once per ReminderWindow for an
// incomplete report older than ReminderWindow.
const (
	SweepInterval     = 6 * time.Hour
	SweepInitialDelay = time.Minute
	ReminderWindow    = 24 * time.Hour
)

// ResumeCallbackPrefix is the inline-button token prefix carrying the
// report to resume.
const ResumeCallbackPrefix = "resume:"

// numberedLine detects a numbered-list first line ("1. ..." or "1) ...").
var numberedLine = regexp.MustCompile(`^\s*\d+[.)]`)

// reportStore is the persistence subset the workflow needs.
type reportStore interface {
	CreateReport(r models.Report) error
	ListOverdueReports(cutoff time.Time) ([]models.Report, error)
	MarkReminderSent(reportID string, recipientID int64, now, cutoff time.Time) (bool, error)
}

// sender is the transport subset the workflow needs.
type sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendInlineKeyboard(ctx context.Context, chatID int64, text string, keyboard messaging.InlineKeyboard) error
}

// Service drives report creation and the reminder sweep.
type Service struct {
	store reportStore
	msg   sender
	now   func() time.Time
}

// NewService creates a report workflow service.
func NewService(store reportStore, msg sender) *Service {
	return &Service{store: store, msg: msg, now: time.Now}
}

// IsReportBody heuristically classifies a broadcast body: multi-line or
// numbered-list-looking bodies are reports, the rest are plain
// announcements. Known rough edge, kept deliberately.
func IsReportBody(body string) bool {
	var nonEmpty int
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) != "" {
			nonEmpty++
		}
	}
	if nonEmpty >= 2 {
		return true
	}
	return numberedLine.MatchString(strings.TrimSpace(body))
}

// ParseQuestions splits a report body into its ordered question list,
// one per non-empty line.
func ParseQuestions(body string) []string {
	var questions []string
	for _, line := range strings.Split(body, "\n") {
		if q := strings.TrimSpace(line); q != "" {
			questions = append(questions, q)
		}
	}
	return questions
}

// Broadcast sends body to every recipient. Report-looking bodies fan out
// as one report row per recipient under a shared report id; plain
// announcements are sent verbatim with no persistence.
// It returns the report id, or "" for a plain announcement.
func (s *Service) Broadcast(ctx context.Context, body string, recipients []int64) (string, error) {
	if !IsReportBody(body) {
		slog.Debug("Broadcast classified as announcement", "recipients", len(recipients))
		for _, recipient := range recipients {
			if err := s.msg.SendMessage(ctx, recipient, body); err != nil {
				slog.Error("Broadcast announcement send failed", "error", err, "recipient", recipient)
			}
		}
		return "", nil
	}

	questions := ParseQuestions(body)
	reportID := uuid.NewString()
	now := s.now().UTC()
	year, week := now.ISOWeek()
	slog.Info("Broadcast classified as report", "reportID", reportID, "questions", len(questions), "recipients", len(recipients))

	for _, recipient := range recipients {
		report := models.Report{
			ReportID:    reportID,
			RecipientID: recipient,
			ISOWeek:     week,
			ISOYear:     year,
			Questions:   questions,
			Answers:     []string{},
			Status:      models.ReportStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.store.CreateReport(report); err != nil {
			slog.Error("Broadcast report row creation failed", "error", err, "reportID", reportID, "recipient", recipient)
			continue
		}
		if err := s.sendPrompt(ctx, report, fmt.Sprintf("Вам направлен отчёт за неделю %d/%d.", week, year)); err != nil {
			slog.Error("Broadcast report prompt failed", "error", err, "reportID", reportID, "recipient", recipient)
		}
	}
	return reportID, nil
}

// sendPrompt sends the question list with a resume button.
func (s *Service) sendPrompt(ctx context.Context, r models.Report, header string) error {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\nВопросы:\n")
	for i, q := range r.Outstanding() {
		fmt.Fprintf(&b, "%d. %s\n", len(r.Answers)+i+1, q)
	}
	keyboard := messaging.InlineKeyboard{{
		{Label: "Заполнить отчёт", Data: ResumeCallbackPrefix + r.ReportID},
	}}
	return s.msg.SendInlineKeyboard(ctx, r.RecipientID, b.String(), keyboard)
}

// Start registers the recurring sweep: the first pass runs shortly
// after boot, then on cronExpr when one is configured, otherwise on the
// fixed interval. The boot pass is dropped if ctx is cancelled first.
func (s *Service) Start(ctx context.Context, sched *scheduler.Scheduler, cronExpr string) {
	timer := time.AfterFunc(SweepInitialDelay, func() { s.Sweep(ctx) })
	go func() {
		<-ctx.Done()
		timer.Stop()
	}()

	if cronExpr != "" {
		err := sched.AddJob(cronExpr, func() { s.Sweep(ctx) })
		if err == nil {
			slog.Info("Report reminder sweep scheduled", "cron", cronExpr, "initial_delay", SweepInitialDelay)
			return
		}
		slog.Error("Invalid reminder cron expression, using fixed interval", "error", err, "cron", cronExpr)
	}
	sched.AddEvery(SweepInterval, func() { s.Sweep(ctx) })
	slog.Info("Report reminder sweep scheduled", "interval", SweepInterval, "initial_delay", SweepInitialDelay)
}

// Sweep nudges every incomplete report older than ReminderWindow whose
// last reminder (if any) is also older than ReminderWindow. The stamp is
// a conditional update, so a report completed mid-sweep is skipped.
func (s *Service) Sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	now := s.now().UTC()
	cutoff := now.Add(-ReminderWindow)

	overdue, err := s.store.ListOverdueReports(cutoff)
	if err != nil {
		slog.Error("Reminder sweep listing failed", "error", err)
		return
	}
	slog.Debug("Reminder sweep", "candidates", len(overdue))

	var sent int
	for _, r := range overdue {
		claimed, err := s.store.MarkReminderSent(r.ReportID, r.RecipientID, now, cutoff)
		if err != nil {
			slog.Error("Reminder stamp failed", "error", err, "reportID", r.ReportID, "recipient", r.RecipientID)
			continue
		}
		if !claimed {
			// Completed or reminded since the listing.
			continue
		}
		if err := s.sendPrompt(ctx, r, "Напоминание: у вас есть незаполненный отчёт."); err != nil {
			slog.Error("Reminder send failed", "error", err, "reportID", r.ReportID, "recipient", r.RecipientID)
			continue
		}
		sent++
	}
	if sent > 0 {
		slog.Info("Reminder sweep finished", "sent", sent)
	}
}
