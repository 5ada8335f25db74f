package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/messaging"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/session"
)

// handlePrompt consumes the next message of a pending single-value
// prompt. A parse failure re-prompts without clearing the state; success
// performs the side effect, clears the state and returns to the menu.
// The cancel keyword aborts any prompt.
func (b *Bot) handlePrompt(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
	text := strings.TrimSpace(upd.Text)
	if text == btnCancel {
		sess.Reset()
		b.replyKeyboard(ctx, upd.ChatID, "Действие отменено.", mainMenuKeyboard(isAdmin))
		return
	}

	switch sess.State {
	case models.StateAwaitingNewUserID:
		b.finishIDPrompt(ctx, sess, upd, text, isAdmin, "Пользователь %d добавлен.", b.store.AddUser)
	case models.StateAwaitingNewAdminID:
		b.finishIDPrompt(ctx, sess, upd, text, isAdmin, "Администратор %d добавлен.", b.store.AddAdmin)
	case models.StateAwaitingRemoveUserID:
		b.finishIDPrompt(ctx, sess, upd, text, isAdmin, "Пользователь %d удалён.", b.store.RemoveUser)
	case models.StateAwaitingRemoveFactID:
		b.finishRemoveFact(ctx, sess, upd, text, isAdmin)
	case models.StateAwaitingNewFact:
		b.finishNewFact(ctx, sess, upd, text, isAdmin)
	case models.StateAwaitingBroadcast:
		b.finishBroadcast(ctx, sess, upd, text, isAdmin)
	case models.StateAwaitingReportQuery:
		b.finishReportQuery(ctx, sess, upd, text, isAdmin)
	}
}

// finishIDPrompt parses an integer user ID and applies the store effect.
func (b *Bot) finishIDPrompt(ctx context.Context, sess *session.Session, upd messaging.Update, text string, isAdmin bool, okFormat string, effect func(int64) error) {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		b.reply(ctx, upd.ChatID, "Введите числовой ID.")
		return
	}
	if err := effect(id); err != nil {
		slog.Error("Role change failed", "error", err, "target", id)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	sess.Reset()
	response := fmt.Sprintf(okFormat, id)
	b.replyKeyboard(ctx, upd.ChatID, response, mainMenuKeyboard(isAdmin))
	b.logExchange(upd.UserID, text, response)
}

func (b *Bot) finishRemoveFact(ctx context.Context, sess *session.Session, upd messaging.Update, text string, isAdmin bool) {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		b.reply(ctx, upd.ChatID, "Введите числовой ID факта.")
		return
	}
	switch err := b.store.RemoveFact(id); {
	case errors.Is(err, models.ErrNotFound):
		b.reply(ctx, upd.ChatID, fmt.Sprintf("Факт с ID %d не найден.", id))
		return
	case err != nil:
		slog.Error("Fact removal failed", "error", err, "factID", id)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	if err := b.facts.Reload(); err != nil {
		slog.Error("Fact cache reload failed", "error", err)
	}
	sess.Reset()
	response := fmt.Sprintf("Факт %d удалён.", id)
	b.replyKeyboard(ctx, upd.ChatID, response, mainMenuKeyboard(isAdmin))
	b.logExchange(upd.UserID, text, response)
}

func (b *Bot) finishNewFact(ctx context.Context, sess *session.Session, upd messaging.Update, text string, isAdmin bool) {
	if text == "" {
		b.reply(ctx, upd.ChatID, "Введите текст факта.")
		return
	}
	id, err := b.store.AddFact(text, upd.UserID)
	switch {
	case errors.Is(err, models.ErrDuplicateFact):
		sess.Reset()
		b.replyKeyboard(ctx, upd.ChatID, "Такой факт уже есть в базе знаний.", mainMenuKeyboard(isAdmin))
		return
	case errors.Is(err, models.ErrFactTooLong):
		b.reply(ctx, upd.ChatID, fmt.Sprintf("Текст факта слишком длинный (не более %d символов).", models.MaxFactLength))
		return
	case err != nil:
		slog.Error("Fact insert failed", "error", err)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	if err := b.facts.Reload(); err != nil {
		slog.Error("Fact cache reload failed", "error", err)
	}
	sess.Reset()
	response := fmt.Sprintf("Факт добавлен: '%s' (ID %d).", text, id)
	b.replyKeyboard(ctx, upd.ChatID, response, mainMenuKeyboard(isAdmin))
	b.logExchange(upd.UserID, text, response)
}

// finishBroadcast fans the body out to every known principal except the
// sender. Multi-line bodies become reports; see the reports package.
func (b *Bot) finishBroadcast(ctx context.Context, sess *session.Session, upd messaging.Update, text string, isAdmin bool) {
	if text == "" {
		b.reply(ctx, upd.ChatID, "Введите текст рассылки.")
		return
	}
	recipients, err := b.broadcastRecipients(upd.UserID)
	if err != nil {
		slog.Error("Recipient listing failed", "error", err)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	reportID, err := b.reports.Broadcast(ctx, text, recipients)
	if err != nil {
		slog.Error("Broadcast failed", "error", err)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	sess.Reset()
	var response string
	if reportID != "" {
		response = fmt.Sprintf("Отчёт разослан %d получателям.", len(recipients))
	} else {
		response = fmt.Sprintf("Сообщение разослано %d получателям.", len(recipients))
	}
	b.replyKeyboard(ctx, upd.ChatID, response, mainMenuKeyboard(isAdmin))
	b.logExchange(upd.UserID, text, response)
}

// broadcastRecipients is the union of both role sets minus the sender.
func (b *Bot) broadcastRecipients(sender int64) ([]int64, error) {
	users, err := b.store.ListUsers()
	if err != nil {
		return nil, err
	}
	admins, err := b.store.ListAdmins()
	if err != nil {
		return nil, err
	}
	seen := map[int64]bool{sender: true}
	var out []int64
	for _, id := range append(users, admins...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// finishReportQuery answers the "week year" status query.
func (b *Bot) finishReportQuery(ctx context.Context, sess *session.Session, upd messaging.Update, text string, isAdmin bool) {
	week, year, err := models.ParseWeekYear(text)
	if err != nil {
		b.reply(ctx, upd.ChatID, "Введите неделю и год, например: 12 2026")
		return
	}

	rows, err := b.store.ListReportsByWeek(week, year)
	if err != nil {
		slog.Error("Report query failed", "error", err, "week", week, "year", year)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	sess.Reset()
	if len(rows) == 0 {
		b.replyKeyboard(ctx, upd.ChatID, fmt.Sprintf("За неделю %d/%d отчётов нет.", week, year), mainMenuKeyboard(isAdmin))
		return
	}

	profiles, err := b.store.ListProfiles()
	if err != nil {
		slog.Error("Profile listing failed", "error", err)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	names := make(map[int64]string, len(profiles))
	for _, p := range profiles {
		names[p.UserID] = p.DisplayName
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Отчёты за неделю %d/%d:\n", week, year)
	for _, r := range rows {
		name := names[r.RecipientID]
		if name == "" {
			name = strconv.FormatInt(r.RecipientID, 10)
		}
		fmt.Fprintf(&sb, "• %s — %s (%d/%d)\n", name, statusLabel(r.Status), len(r.Answers), len(r.Questions))
	}
	response := sb.String()
	b.replyKeyboard(ctx, upd.ChatID, response, mainMenuKeyboard(isAdmin))
	b.logExchange(upd.UserID, text, response)
}

func statusLabel(s models.ReportStatus) string {
	switch s {
	case models.ReportStatusCompleted:
		return "завершён"
	case models.ReportStatusInProgress:
		return "в работе"
	default:
		return "не начат"
	}
}
