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

// Menu button labels. The dispatch table keys on the literal text, so a
// matching reply-keyboard press and a typed message behave identically.
const (
	btnMainMenu    = "Главное меню"
	btnDocuments   = "Документы"
	btnAskQuestion = "Задать вопрос"
	btnAdminMenu   = "Админ-меню"
	btnBack        = "Назад"
	btnCancel      = "Отмена"

	btnAddUser     = "Добавить пользователя"
	btnRemoveUser  = "Удалить пользователя"
	btnAddAdmin    = "Добавить администратора"
	btnListUsers   = "Список пользователей"
	btnAddFact     = "Добавить факт"
	btnRemoveFact  = "Удалить факт"
	btnListFacts   = "Список фактов"
	btnBroadcast   = "Рассылка"
	btnReportQuery = "Статус отчётов"
	btnUploadFile  = "Загрузить файл"
	btnDeleteFile  = "Удалить файл"
)

type menuAction struct {
	adminOnly bool
	handler   func(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool)
}

// menuActions builds the literal-text dispatch table.
func (b *Bot) menuActions() map[string]menuAction {
	return map[string]menuAction{
		btnMainMenu:    {handler: b.showMainMenu},
		btnDocuments:   {handler: b.enterDocs},
		btnAskQuestion: {handler: b.promptQuestion},
		btnAdminMenu:   {adminOnly: true, handler: b.showAdminMenu},

		btnAddUser:     {adminOnly: true, handler: b.promptState(models.StateAwaitingNewUserID, "Введите числовой ID нового пользователя.")},
		btnRemoveUser:  {adminOnly: true, handler: b.promptState(models.StateAwaitingRemoveUserID, "Введите числовой ID пользователя для удаления.")},
		btnAddAdmin:    {adminOnly: true, handler: b.promptState(models.StateAwaitingNewAdminID, "Введите числовой ID нового администратора.")},
		btnListUsers:   {adminOnly: true, handler: b.listUsers},
		btnAddFact:     {adminOnly: true, handler: b.promptState(models.StateAwaitingNewFact, "Введите новый факт для базы знаний.")},
		btnRemoveFact:  {adminOnly: true, handler: b.promptRemoveFact},
		btnListFacts:   {adminOnly: true, handler: b.listFacts},
		btnBroadcast:   {adminOnly: true, handler: b.promptState(models.StateAwaitingBroadcast, "Введите текст рассылки. Несколько строк или нумерованный список будут разосланы как отчёт.")},
		btnReportQuery: {adminOnly: true, handler: b.promptState(models.StateAwaitingReportQuery, "Введите неделю и год, например: 12 2026")},
		btnUploadFile:  {adminOnly: true, handler: b.promptUpload},
		btnDeleteFile:  {adminOnly: true, handler: b.promptDeleteFile},
	}
}

// promptState returns a handler that arms a pending single-value prompt.
func (b *Bot) promptState(state models.ChatState, prompt string) func(context.Context, *session.Session, messaging.Update, bool) {
	return func(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
		sess.Reset()
		sess.State = state
		b.reply(ctx, upd.ChatID, prompt)
	}
}

func mainMenuKeyboard(isAdmin bool) messaging.ReplyKeyboard {
	keyboard := messaging.ReplyKeyboard{
		{btnDocuments, btnAskQuestion},
	}
	if isAdmin {
		keyboard = append(keyboard, []string{btnAdminMenu})
	}
	return keyboard
}

func adminMenuKeyboard() messaging.ReplyKeyboard {
	return messaging.ReplyKeyboard{
		{btnAddUser, btnRemoveUser},
		{btnAddAdmin, btnListUsers},
		{btnAddFact, btnRemoveFact},
		{btnListFacts, btnBroadcast},
		{btnReportQuery, btnUploadFile},
		{btnDeleteFile, btnMainMenu},
	}
}

func (b *Bot) showMainMenu(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
	sess.Reset()
	b.replyKeyboard(ctx, upd.ChatID, "Главное меню.", mainMenuKeyboard(isAdmin))
}

func (b *Bot) showAdminMenu(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
	sess.Reset()
	b.replyKeyboard(ctx, upd.ChatID, "Админ-меню.", adminMenuKeyboard())
}

func (b *Bot) promptQuestion(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
	sess.Reset()
	b.reply(ctx, upd.ChatID, "Задайте ваш вопрос.")
}

func (b *Bot) listUsers(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
	admins, err := b.store.ListAdmins()
	if err != nil {
		slog.Error("Admin listing failed", "error", err)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	users, err := b.store.ListUsers()
	if err != nil {
		slog.Error("User listing failed", "error", err)
		b.reply(ctx, upd.ChatID, errorReply)
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
	sb.WriteString("Администраторы:\n")
	for _, id := range admins {
		fmt.Fprintf(&sb, "• %d %s\n", id, names[id])
	}
	sb.WriteString("\nПользователи:\n")
	for _, id := range users {
		fmt.Fprintf(&sb, "• %d %s\n", id, names[id])
	}
	response := sb.String()
	b.reply(ctx, upd.ChatID, response)
	b.logExchange(upd.UserID, btnListUsers, response)
}

func (b *Bot) listFacts(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
	facts := b.facts.Facts()
	if len(facts) == 0 {
		b.reply(ctx, upd.ChatID, "База знаний пуста.")
		return
	}
	var sb strings.Builder
	sb.WriteString("База знаний:\n")
	for _, f := range facts {
		fmt.Fprintf(&sb, "%d. %s\n", f.ID, f.Text)
	}
	b.reply(ctx, upd.ChatID, sb.String())
}

func (b *Bot) promptRemoveFact(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
	sess.Reset()
	sess.State = models.StateAwaitingRemoveFactID
	facts := b.facts.Facts()
	if len(facts) == 0 {
		sess.Reset()
		b.reply(ctx, upd.ChatID, "База знаний пуста.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Введите ID факта для удаления:\n")
	for _, f := range facts {
		fmt.Fprintf(&sb, "%d. %s\n", f.ID, f.Text)
	}
	b.reply(ctx, upd.ChatID, sb.String())
}

// promptUpload arms upload mode; the file lands in the current document
// folder, or the root if the admin is not browsing.
func (b *Bot) promptUpload(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
	if sess.Dir == "" {
		sess.Dir = session.RootPath
	}
	sess.State = models.StateAwaitingUpload
	b.reply(ctx, upd.ChatID, fmt.Sprintf("Отправьте файл для загрузки в папку %s (до 50 МБ).", sess.Dir))
}

// promptDeleteFile renders the current folder's files with delete buttons.
func (b *Bot) promptDeleteFile(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
	if sess.Dir == "" {
		sess.Dir = session.RootPath
	}
	files := b.disk.ListFiles(ctx, sess.Dir)
	if len(files) == 0 {
		b.reply(ctx, upd.ChatID, "В текущей папке нет файлов.")
		return
	}
	sess.Files = files
	keyboard := make(messaging.InlineKeyboard, 0, len(files))
	for i, f := range files {
		keyboard = append(keyboard, []messaging.InlineButton{{
			Label: "Удалить " + f.Name,
			Data:  fmt.Sprintf("delete:%d", i),
		}})
	}
	if err := b.msg.SendInlineKeyboard(ctx, upd.ChatID, "Выберите файл для удаления:", keyboard); err != nil {
		slog.Error("Delete listing send failed", "error", err, "chatID", upd.ChatID)
	}
}
