package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/disk"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/messaging"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/reports"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/session"
)

// enterDocs switches the chat into document navigation at the root.
func (b *Bot) enterDocs(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
	sess.Reset()
	sess.State = models.StateBrowsingDocs
	sess.Dir = session.RootPath
	b.renderDir(ctx, sess, upd.ChatID, isAdmin)
}

// handleDocsText interprets free text as navigation while browsing.
// It returns false when the text matches nothing, so the caller can fall
// through to the AI answer path.
func (b *Bot) handleDocsText(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) bool {
	text := strings.TrimSpace(upd.Text)

	if text == btnBack {
		if sess.Dir != session.RootPath {
			sess.Dir = path.Dir(sess.Dir)
			if sess.Dir == "." {
				sess.Dir = session.RootPath
			}
		}
		b.renderDir(ctx, sess, upd.ChatID, isAdmin)
		return true
	}

	// Case-insensitive match against the current folder's subfolders.
	for _, name := range b.disk.ListDirectories(ctx, sess.Dir) {
		if !strings.EqualFold(name, text) {
			continue
		}
		sess.Dir = childPath(sess.Dir, name)
		if !b.disk.EnsureFolder(ctx, sess.Dir) {
			slog.Error("Folder descend failed", "dir", sess.Dir)
			b.reply(ctx, upd.ChatID, errorReply)
			return true
		}
		b.renderDir(ctx, sess, upd.ChatID, isAdmin)
		return true
	}
	return false
}

// renderDir sends the folder keyboard and, when files exist, an inline
// listing with download (and for admins delete) buttons. The listing is
// buffered in the session so callback indices stay resolvable.
func (b *Bot) renderDir(ctx context.Context, sess *session.Session, chatID int64, isAdmin bool) {
	dirs := b.disk.ListDirectories(ctx, sess.Dir)
	files := b.disk.ListFiles(ctx, sess.Dir)
	sess.Files = files

	keyboard := make(messaging.ReplyKeyboard, 0, len(dirs)+1)
	for _, d := range dirs {
		keyboard = append(keyboard, []string{d})
	}
	keyboard = append(keyboard, []string{btnBack, btnMainMenu})
	b.replyKeyboard(ctx, chatID, "Папка: "+sess.Dir, keyboard)

	if len(files) == 0 {
		return
	}
	inline := make(messaging.InlineKeyboard, 0, len(files))
	for i, f := range files {
		row := []messaging.InlineButton{{
			Label: f.Name,
			Data:  fmt.Sprintf("download:%d", i),
		}}
		if isAdmin {
			row = append(row, messaging.InlineButton{
				Label: "Удалить",
				Data:  fmt.Sprintf("delete:%d", i),
			})
		}
		inline = append(inline, row)
	}
	if err := b.msg.SendInlineKeyboard(ctx, chatID, "Файлы:", inline); err != nil {
		slog.Error("File listing send failed", "error", err, "chatID", chatID)
	}
}

// handleCallback resolves inline-button tokens: download:N and delete:N
// against the session-buffered listing, and resume:<reportID> for
// picking a report back up.
func (b *Bot) handleCallback(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
	if reportID, ok := strings.CutPrefix(upd.Callback, reports.ResumeCallbackPrefix); ok {
		b.startReportAnswering(ctx, sess, upd, reportID)
		return
	}

	action, indexText, ok := strings.Cut(upd.Callback, ":")
	if !ok {
		slog.Debug("Unknown callback", "callback", upd.Callback)
		return
	}
	index, err := strconv.Atoi(indexText)
	if err != nil || index < 0 || index >= len(sess.Files) {
		// Stale button from a previous listing.
		b.reply(ctx, upd.ChatID, "Список файлов устарел. Откройте папку заново.")
		return
	}
	file := sess.Files[index]

	switch action {
	case "download":
		b.sendFile(ctx, upd, file)
	case "delete":
		if !isAdmin {
			b.reply(ctx, upd.ChatID, "Удаление файлов доступно только администраторам.")
			return
		}
		if !b.disk.Delete(ctx, file.Path) {
			b.reply(ctx, upd.ChatID, "Не удалось удалить файл.")
			return
		}
		sess.Files = nil
		response := fmt.Sprintf("Файл %s удалён.", file.Name)
		b.reply(ctx, upd.ChatID, response)
		b.logExchange(upd.UserID, upd.Callback, response)
	default:
		slog.Debug("Unknown callback action", "callback", upd.Callback)
	}
}

func (b *Bot) sendFile(ctx context.Context, upd messaging.Update, file models.DiskItem) {
	if file.Size > disk.MaxDownloadSize {
		slog.Warn("Download rejected oversized file", "path", file.Path, "size", file.Size)
		b.reply(ctx, upd.ChatID, "Файл больше 20 МБ и не может быть отправлен в чат.")
		return
	}
	url, err := b.disk.DownloadLink(ctx, file.Path)
	if err != nil {
		slog.Error("Download link failed", "error", err, "path", file.Path)
		b.reply(ctx, upd.ChatID, "Не удалось получить файл.")
		return
	}
	if err := b.msg.SendDocumentURL(ctx, upd.ChatID, file.Name, url); err != nil {
		slog.Error("Document send failed", "error", err, "path", file.Path)
		b.reply(ctx, upd.ChatID, "Не удалось отправить файл.")
		return
	}
	b.logExchange(upd.UserID, upd.Callback, "sent "+file.Name)
}

// handleDocumentUpload stores an attached document in the current folder
// when the chat is in upload mode.
func (b *Bot) handleDocumentUpload(ctx context.Context, sess *session.Session, upd messaging.Update, isAdmin bool) {
	if sess.State != models.StateAwaitingUpload {
		b.reply(ctx, upd.ChatID, "Чтобы загрузить файл, выберите «"+btnUploadFile+"» в меню.")
		return
	}
	doc := upd.Document
	switch err := disk.ValidateUpload(doc.FileName, doc.Size); {
	case errors.Is(err, models.ErrUnsupportedFile):
		b.reply(ctx, upd.ChatID, "Этот тип файла не поддерживается.")
		return
	case errors.Is(err, models.ErrFileTooLarge):
		b.reply(ctx, upd.ChatID, "Файл больше 50 МБ.")
		return
	}

	content, err := b.msg.FetchDocument(ctx, doc.FileID)
	if err != nil {
		slog.Error("Document fetch failed", "error", err, "file", doc.FileName)
		b.reply(ctx, upd.ChatID, "Не удалось получить файл из чата.")
		return
	}
	folder := sess.Dir
	if folder == "" {
		folder = session.RootPath
	}
	if !b.disk.Upload(ctx, content, doc.FileName, folder) {
		b.reply(ctx, upd.ChatID, "Не удалось загрузить файл на диск.")
		return
	}
	sess.State = models.StateIdle
	response := fmt.Sprintf("Файл %s загружен в %s.", doc.FileName, folder)
	b.replyKeyboard(ctx, upd.ChatID, response, mainMenuKeyboard(isAdmin))
	b.logExchange(upd.UserID, "upload "+doc.FileName, response)
}

// childPath joins a folder path with a child name.
func childPath(dir, name string) string {
	if dir == session.RootPath {
		return session.RootPath + name
	}
	return dir + "/" + name
}
