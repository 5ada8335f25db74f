package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/messaging"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/session"
)

// startReportAnswering resumes the given report (or the recipient's open
// report when reportID is empty) and asks the next unanswered question.
func (b *Bot) startReportAnswering(ctx context.Context, sess *session.Session, upd messaging.Update, reportID string) {
	var (
		report *models.Report
		err    error
	)
	if reportID != "" {
		report, err = b.store.GetReport(reportID, upd.UserID)
	} else {
		report, err = b.store.GetOpenReport(upd.UserID)
	}
	if err != nil {
		slog.Error("Report lookup failed", "error", err, "reportID", reportID, "userID", upd.UserID)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	if report == nil {
		b.reply(ctx, upd.ChatID, "У вас нет незаполненных отчётов.")
		return
	}
	if report.Completed() {
		b.reply(ctx, upd.ChatID, "Этот отчёт уже заполнен. Спасибо!")
		return
	}

	sess.Reset()
	sess.State = models.StateAwaitingReportAnswer
	sess.ReportID = report.ReportID
	b.reply(ctx, upd.ChatID, fmt.Sprintf("Вопрос %d из %d:\n%s\n\nДля отмены отправьте «%s».",
		len(report.Answers)+1, len(report.Questions), report.NextQuestion(), btnCancel))
}

// handleReportAnswer records one answer, persisting after every message
// so progress survives a restart. The cancel keyword aborts at a
// question boundary; already-recorded answers are kept.
func (b *Bot) handleReportAnswer(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
	text := strings.TrimSpace(upd.Text)
	if text == btnCancel {
		sess.Reset()
		b.replyKeyboard(ctx, upd.ChatID, "Заполнение отчёта прервано. Вы можете вернуться к нему позже.", mainMenuKeyboard(isAdmin))
		return
	}
	if text == "" {
		b.reply(ctx, upd.ChatID, "Отправьте ответ текстом.")
		return
	}

	report, err := b.store.GetReport(sess.ReportID, upd.UserID)
	if err != nil {
		slog.Error("Report lookup failed", "error", err, "reportID", sess.ReportID, "userID", upd.UserID)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	if report == nil || report.Completed() {
		sess.Reset()
		b.replyKeyboard(ctx, upd.ChatID, "Этот отчёт уже закрыт.", mainMenuKeyboard(isAdmin))
		return
	}

	answers := append(report.Answers, text)
	status := models.ReportStatusInProgress
	if len(answers) == len(report.Questions) {
		status = models.ReportStatusCompleted
	}
	if err := b.store.UpdateReportAnswers(report.ReportID, upd.UserID, answers, status); err != nil {
		slog.Error("Answer persist failed", "error", err, "reportID", report.ReportID, "userID", upd.UserID)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	b.logExchange(upd.UserID, text, fmt.Sprintf("report %s answer %d", report.ReportID, len(answers)))

	if status == models.ReportStatusCompleted {
		sess.Reset()
		slog.Info("Report completed", "reportID", report.ReportID, "recipient", upd.UserID)
		b.replyKeyboard(ctx, upd.ChatID, "Отчёт заполнен. Спасибо!", mainMenuKeyboard(isAdmin))
		return
	}
	b.reply(ctx, upd.ChatID, fmt.Sprintf("Вопрос %d из %d:\n%s",
		len(answers)+1, len(report.Questions), report.Questions[len(answers)]))
}
